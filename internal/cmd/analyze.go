package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	flagAnalyzeWindow int
	flagAnalyzeDryRun bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Detect behavior patterns and store them as habits",
	Long: `Run every pattern detector over the recent event window and store
patterns clearing the confidence threshold as habits. A failing
detector is reported and skipped; the others still run.

Examples:
  habitd analyze
  habitd analyze --window 14
  habitd analyze --dry-run`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().IntVar(&flagAnalyzeWindow, "window", 0, "lookback window in days (default from config)")
	analyzeCmd.Flags().BoolVar(&flagAnalyzeDryRun, "dry-run", false, "detect patterns without storing habits")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()
	out := cmd.OutOrStdout()

	if flagAnalyzeDryRun {
		patterns, detectorErrors, err := eng.DetectPatterns(ctx, flagAnalyzeWindow)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, map[string]any{
				"patterns":        patterns,
				"detector_errors": detectorErrors,
			})
		}
		if len(patterns) == 0 {
			fmt.Fprintf(out, "%sno patterns detected%s\n", colorDim, colorReset)
		}
		for _, p := range patterns {
			fmt.Fprintf(out, "%s%-10s%s %.2f  %s (seen %d times)\n",
				colorCyan, p.Type, colorReset, p.Confidence, p.Description, p.Occurrences)
		}
		if detectorErrors > 0 {
			fmt.Fprintf(out, "%s%d detector(s) failed%s\n", colorYellow, detectorErrors, colorReset)
		}
		return nil
	}

	report, err := eng.Analyze(ctx, flagAnalyzeWindow)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, report)
	}

	fmt.Fprintf(out, "%sAnalysis%s (%d days, %d events)\n",
		colorBold, colorReset, report.WindowDays, report.EventsScanned)
	fmt.Fprintf(out, "  patterns detected: %d\n", report.PatternsFound)
	fmt.Fprintf(out, "  habits stored:     %d new, %d confirmed\n",
		report.HabitsStored, report.HabitsConfirmed)
	if report.DetectorErrors > 0 {
		fmt.Fprintf(out, "  %s%d detector(s) failed%s\n",
			colorYellow, report.DetectorErrors, colorReset)
	}
	if report.HabitsFailed > 0 {
		fmt.Fprintf(out, "  %s%d habit write(s) failed%s\n",
			colorYellow, report.HabitsFailed, colorReset)
	}
	for _, h := range report.Habits {
		fmt.Fprintf(out, "  %s%-10s%s %.2f  %s\n",
			colorCyan, h.PatternType, colorReset, h.Confidence, h.Description)
	}
	return nil
}
