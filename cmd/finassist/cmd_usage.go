package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"finassist/internal/usage"
)

// usageCmd prints provider token usage
var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show provider token usage",
	RunE:  runUsage,
}

func runUsage(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if !cfg.Usage.Enabled {
		fmt.Fprintln(out, "Usage tracking is disabled.")
		return nil
	}
	tracker, err := usage.NewTracker(cfg.Usage.Path)
	if err != nil {
		return err
	}
	stats := tracker.Stats()

	fmt.Fprintf(out, "%s\n", titleStyle.Render("Provider usage"))
	fmt.Fprintf(out, "total: %d calls, %d input, %d output tokens\n", stats.Total.Calls, stats.Total.Input, stats.Total.Output)
	printCounts(cmd, "by provider", stats.ByProvider)
	printCounts(cmd, "by model", stats.ByModel)
	printCounts(cmd, "by user", stats.ByUser)

	if len(stats.FailuresBy) > 0 {
		fmt.Fprintf(out, "\n%s\n", labelStyle.Render("failures"))
		for _, k := range sortedKeys(stats.FailuresBy) {
			fmt.Fprintf(out, "  %-30s %d\n", k, stats.FailuresBy[k])
		}
	}
	return nil
}

func printCounts(cmd *cobra.Command, title string, m map[string]usage.TokenCounts) {
	if len(m) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\n%s\n", labelStyle.Render(title))
	for _, k := range sortedKeys(m) {
		c := m[k]
		fmt.Fprintf(out, "  %-30s %6d calls %10d in %10d out\n", k, c.Calls, c.Input, c.Output)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
