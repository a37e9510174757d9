package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"finassist/internal/perception"
)

// extractCmd runs the rule-based extractor without touching the ledger
var extractCmd = &cobra.Command{
	Use:   "extract [message]",
	Short: "Show what the local extractor reads from a message (dry run)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")
	h := perception.NewHeuristicExtractor(nil)
	out := cmd.OutOrStdout()

	action, ok := h.Extract(message)
	if !ok {
		if family := h.Family(message); family != "" {
			fmt.Fprintf(out, "%s\n", warnStyle.Render(fmt.Sprintf("looks like %s, but no amount was found", family)))
			return nil
		}
		fmt.Fprintln(out, warnStyle.Render("no action"))
		return nil
	}

	body, err := json.MarshalIndent(action, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode action: %w", err)
	}
	fmt.Fprintf(out, "%s\n%s\n", titleStyle.Render(string(action.Kind())), body)
	return nil
}
