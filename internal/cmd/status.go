package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/habitd/internal/config"
	"github.com/runger/habitd/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show habitd status",
	Long: `Show where habitd keeps its data, how much it has learned, and
which engine settings are active.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	configPath := flagConfig
	if configPath == "" {
		configPath, _ = config.DefaultPath()
	}
	dbPath := flagDB
	if dbPath == "" {
		dbPath, _ = store.DefaultPath()
	}

	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	a, err := eng.LearningAnalytics(ctx)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, map[string]any{
			"config_path": configPath,
			"db_path":     dbPath,
			"analytics":   a,
		})
	}

	fmt.Fprintf(out, "%shabitd status%s\n", colorBold, colorReset)
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintf(out, "config:      %s\n", configPath)
	fmt.Fprintf(out, "database:    %s\n", dbPath)
	fmt.Fprintf(out, "events:      %d\n", a.TotalEvents)
	fmt.Fprintf(out, "habits:      %d\n", a.Habits.Total)
	fmt.Fprintf(out, "pending:     %d suggestion(s)\n", a.Suggestions.Pending)
	state := fmt.Sprintf("%soff%s", colorDim, colorReset)
	if a.AutoLearn {
		state = fmt.Sprintf("%son%s", colorGreen, colorReset)
	}
	fmt.Fprintf(out, "auto-learn:  %s\n", state)
	if len(a.MutedTypes) > 0 {
		fmt.Fprintf(out, "muted:       %s\n", strings.Join(a.MutedTypes, ", "))
	}
	return nil
}
