package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"finassist/internal/types"
)

var historyLimit int

// historyCmd prints the latest conversation turns
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the latest conversation turns",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of turns to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	turns, err := a.store.ReadLatest(ctx, userID, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(turns) == 0 {
		fmt.Fprintf(out, "No conversation yet for %s.\n", userID)
		return nil
	}
	for _, t := range turns {
		who := userStyle.Render("you")
		if t.Role == types.RoleAssistant {
			who = botStyle.Render("assistant")
		}
		fmt.Fprintf(out, "%s %s\n%s\n", labelStyle.Render(t.Timestamp.Local().Format("2006-01-02 15:04")), who, t.Content)
		if t.Action != nil {
			fmt.Fprintln(out, labelStyle.Render("  ↳ "+t.Action.Summary()))
		}
	}
	return nil
}
