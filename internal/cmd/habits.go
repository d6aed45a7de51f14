package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/habitd/internal/habit"
)

var flagHabitsLimit int

var habitsCmd = &cobra.Command{
	Use:   "habits",
	Short: "List detected habits",
	Long: `List habits ordered by confidence.

Examples:
  habitd habits
  habitd habits --limit 5
  habitd habits feedback 3f2a... not_helpful`,
	RunE: runHabitsList,
}

var habitsFeedbackCmd = &cobra.Command{
	Use:   "feedback <habit-id> <helpful|not_helpful|skip>",
	Short: "Record feedback on a habit",
	Args:  cobra.ExactArgs(2),
	RunE:  runHabitsFeedback,
}

func init() {
	habitsCmd.Flags().IntVar(&flagHabitsLimit, "limit", 0, "maximum habits to list (0 = all)")
	habitsCmd.AddCommand(habitsFeedbackCmd)
	rootCmd.AddCommand(habitsCmd)
}

func runHabitsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	habits, err := eng.Habits().List(ctx, flagHabitsLimit)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, habits)
	}

	out := cmd.OutOrStdout()
	if len(habits) == 0 {
		fmt.Fprintf(out, "%sno habits yet; try habitd analyze%s\n", colorDim, colorReset)
		return nil
	}
	nowMs := time.Now().UnixMilli()
	for _, h := range habits {
		marker := " "
		if h.Suppressed(nowMs) {
			marker = "s"
		}
		fmt.Fprintf(out, "%s %s%-10s%s %.2f  %-45s %s%s%s\n",
			marker, colorCyan, h.PatternType, colorReset, h.Confidence,
			h.Description, colorDim, h.ID, colorReset)
	}
	return nil
}

func runHabitsFeedback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, verdict := args[0], args[1]
	if !habit.ValidFeedback(verdict) || verdict == string(habit.FeedbackUnset) {
		return fmt.Errorf("invalid feedback %q, want helpful, not_helpful, or skip", verdict)
	}

	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	if err := eng.Habits().RecordFeedback(ctx, id, habit.Feedback(verdict), time.Now().UnixMilli()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%sfeedback recorded%s %s -> %s\n",
		colorGreen, colorReset, id, verdict)
	return nil
}
