package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/habitd/internal/preference"
	"github.com/runger/habitd/internal/suggestion"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show learning feedback-loop analytics",
	Long: `Summarize how well the feedback loop is working: suggestion
acceptance, habit feedback, inferred preferences, and the overall
learning score (accepted share of responded suggestions).`,
	RunE: runAnalytics,
}

func init() {
	rootCmd.AddCommand(analyticsCmd)
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
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
		return printJSON(cmd, a)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%sLearning analytics%s\n", colorBold, colorReset)
	fmt.Fprintln(out, strings.Repeat("-", 40))

	fmt.Fprintf(out, "learning score:  %s%.1f%%%s\n", colorGreen, a.LearningScore, colorReset)
	fmt.Fprintf(out, "events recorded: %d\n", a.TotalEvents)
	fmt.Fprintf(out, "habits:          %d (avg confidence %.2f)\n",
		a.Habits.Total, a.Habits.AvgConfidence)
	fmt.Fprintf(out, "suggestions:     %d pending, %d accepted, %d rejected, %d deferred\n",
		a.Suggestions.Pending, a.Suggestions.Accepted, a.Suggestions.Rejected, a.Suggestions.Deferred)
	fmt.Fprintf(out, "preferences:     %d (avg confidence %.2f)\n",
		a.Preferences.Total, a.Preferences.AvgConfidence)
	if len(a.Preferences.AvgConfidenceBySource) > 0 {
		sources := make([]string, 0, len(a.Preferences.AvgConfidenceBySource))
		for s := range a.Preferences.AvgConfidenceBySource {
			sources = append(sources, string(s))
		}
		sort.Strings(sources)
		fmt.Fprintf(out, "by source:      ")
		for _, s := range sources {
			fmt.Fprintf(out, " %s=%.2f", s, a.Preferences.AvgConfidenceBySource[preference.Source(s)])
		}
		fmt.Fprintln(out)
	}

	if len(a.ByType) > 0 {
		types := make([]string, 0, len(a.ByType))
		for t := range a.ByType {
			types = append(types, string(t))
		}
		sort.Strings(types)
		fmt.Fprintf(out, "by type:        ")
		for _, t := range types {
			fmt.Fprintf(out, " %s=%d", t, a.ByType[suggestion.Type(t)])
		}
		fmt.Fprintln(out)
	}
	state := "off"
	if a.AutoLearn {
		state = "on"
	}
	fmt.Fprintf(out, "auto-learn:      %s\n", state)
	if len(a.MutedTypes) > 0 {
		fmt.Fprintf(out, "muted types:     %s\n", strings.Join(a.MutedTypes, ", "))
	}
	return nil
}
