package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runger/habitd/internal/suggestion"
)

var (
	flagSuggestLimit    int
	flagSuggestGenerate bool
	flagSuggestHabits   []string
	flagSuggestTime     string
	flagSuggestApps     []string
)

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Show ranked pending suggestions",
	Long: `Show pending suggestions ranked by relevance. With --generate,
eligible habits are first turned into suggestions. With --time-of-day
or --apps, ranking matches against that context and drops suggestions
that do not fit it.

Examples:
  habitd suggest
  habitd suggest --generate
  habitd suggest --time-of-day morning --apps Chrome,Slack
  habitd suggest --generate --habit 3f2a... --habit 9c1d...`,
	RunE: runSuggest,
}

func init() {
	suggestCmd.Flags().IntVar(&flagSuggestLimit, "limit", 10, "maximum suggestions to show (0 = all)")
	suggestCmd.Flags().BoolVar(&flagSuggestGenerate, "generate", false, "generate suggestions from eligible habits first")
	suggestCmd.Flags().StringArrayVar(&flagSuggestHabits, "habit", nil, "generate only from this habit id (repeatable)")
	suggestCmd.Flags().StringVar(&flagSuggestTime, "time-of-day", "", "rank against this day part (morning, afternoon, evening, night)")
	suggestCmd.Flags().StringSliceVar(&flagSuggestApps, "apps", nil, "rank against these active apps")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	if flagSuggestGenerate || len(flagSuggestHabits) > 0 {
		if _, err := eng.SuggestFromHabits(ctx, flagSuggestHabits); err != nil {
			return err
		}
	}

	var ranked []suggestion.Ranked
	if flagSuggestTime != "" || len(flagSuggestApps) > 0 {
		ranked, err = eng.SuggestionsForContext(ctx, suggestion.Context{
			TimeOfDay:  flagSuggestTime,
			ActiveApps: flagSuggestApps,
		}, flagSuggestLimit)
	} else {
		ranked, err = eng.ActiveSuggestions(ctx, flagSuggestLimit)
	}
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd, ranked)
	}

	out := cmd.OutOrStdout()
	if len(ranked) == 0 {
		fmt.Fprintf(out, "%snothing to suggest right now%s\n", colorDim, colorReset)
		return nil
	}
	for i, sg := range ranked {
		fmt.Fprintf(out, "%s%2d.%s %s%-12s%s %s\n", colorBold, i+1, colorReset,
			colorCyan, sg.Type, colorReset, sg.Title)
		fmt.Fprintf(out, "     %s\n", sg.Description)
		fmt.Fprintf(out, "     %srelevance %.2f  confidence %.2f  id %s%s\n",
			colorDim, sg.Score, sg.Confidence, sg.ID, colorReset)
	}
	fmt.Fprintf(out, "%srespond with: habitd respond <id> <accepted|rejected|deferred>%s\n",
		colorDim, colorReset)
	return nil
}

var (
	flagRespondHelpful    bool
	flagRespondNotHelpful bool
)

var respondCmd = &cobra.Command{
	Use:   "respond <suggestion-id> <accepted|rejected|deferred>",
	Short: "Respond to a suggestion",
	Long: `Record your response to a suggestion. Accepting applies the
suggested action (links the automation or saves the preference) and
counts toward the learning score. Rejecting suppresses the source
habit for a while.

Examples:
  habitd respond 7be0... accepted
  habitd respond 7be0... rejected --not-helpful
  habitd respond 7be0... deferred`,
	Args: cobra.ExactArgs(2),
	RunE: runRespond,
}

func init() {
	respondCmd.Flags().BoolVar(&flagRespondHelpful, "helpful", false, "mark the underlying habit helpful")
	respondCmd.Flags().BoolVar(&flagRespondNotHelpful, "not-helpful", false, "mark the underlying habit not helpful")
	respondCmd.MarkFlagsMutuallyExclusive("helpful", "not-helpful")
	rootCmd.AddCommand(respondCmd)
}

func runRespond(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, response := args[0], strings.ToLower(args[1])
	if !suggestion.ValidResponse(response) {
		return fmt.Errorf("invalid response %q, want accepted, rejected, or deferred", response)
	}

	var helpful *bool
	if flagRespondHelpful {
		v := true
		helpful = &v
	} else if flagRespondNotHelpful {
		v := false
		helpful = &v
	}

	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	sg, err := eng.RespondToSuggestion(ctx, id, suggestion.Status(response), helpful)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, sg)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s%s%s %s\n", colorGreen, response, colorReset, sg.Title)
	return nil
}
