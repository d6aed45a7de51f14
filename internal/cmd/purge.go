package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagPurgeDays int

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Apply the data retention policy",
	Long: `Delete events and responded suggestions older than the retention
window. Habits and preferences are kept indefinitely.`,
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().IntVar(&flagPurgeDays, "days", 0, "retention window override in days (default from config)")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	events, suggestions, err := eng.Purge(ctx, flagPurgeDays)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, map[string]int64{
			"events_deleted":      events,
			"suggestions_deleted": suggestions,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%spurged%s %d event(s), %d suggestion(s)\n",
		colorGreen, colorReset, events, suggestions)
	return nil
}
