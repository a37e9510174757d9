package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var askJSON bool

// askCmd sends one message through the engine
var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send a message to the assistant",
	Long: `Classifies the message, executes at most one ledger action and stores
both turns in the conversation history.

Examples:
  finassist ask "I spent 150 MAD at the restaurant yesterday"
  finassist ask "set a food budget of 2000 MAD per month"
  finassist ask "show my goals"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the reply as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	d := timeout
	if d <= 0 {
		d = cfg.EngineTimeouts().Request
	}
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}()

	message := strings.Join(args, " ")
	logger.Debug("Processing message", zap.String("user", userID), zap.String("input", message))

	reply, err := a.engine.HandleMessage(ctx, userID, message)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if askJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reply)
	}
	fmt.Fprintln(out, renderReply(reply))
	return nil
}
