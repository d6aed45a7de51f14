package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/habitd/internal/preference"
)

var (
	flagPrefsCategory string
	flagPrefsWindow   int
	flagPrefsHistoryN int
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Manage stored and inferred preferences",
	Long: `List, set, and remove preferences, inspect their change history,
and run the preference analyzer over recent events.

Examples:
  habitd prefs
  habitd prefs --category ui
  habitd prefs set ui theme dark
  habitd prefs rm ui theme
  habitd prefs promote ui preferred_app
  habitd prefs history --limit 20
  habitd prefs analyze --window 14
  habitd prefs meta`,
	RunE: runPrefsList,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <category> <key> <value>",
	Short: "Set a preference explicitly",
	Args:  cobra.ExactArgs(3),
	RunE:  runPrefsSet,
}

var prefsRmCmd = &cobra.Command{
	Use:   "rm <category> <key>",
	Short: "Remove a preference",
	Args:  cobra.ExactArgs(2),
	RunE:  runPrefsRm,
}

var prefsPromoteCmd = &cobra.Command{
	Use:   "promote <category> <key>",
	Short: "Confirm an inferred preference as manual",
	Long: `Promote an inferred or auto-sourced preference to a manual one at
full confidence, keeping its current value.`,
	Args: cobra.ExactArgs(2),
	RunE: runPrefsPromote,
}

var prefsHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the preference change history",
	RunE:  runPrefsHistory,
}

var prefsAnalyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Infer preferences from recent events",
	RunE:  runPrefsAnalyze,
}

var prefsMetaCmd = &cobra.Command{
	Use:   "meta",
	Short: "Show second-order patterns over stored preferences",
	RunE:  runPrefsMeta,
}

func init() {
	prefsCmd.Flags().StringVar(&flagPrefsCategory, "category", "", "filter by category")
	prefsHistoryCmd.Flags().IntVar(&flagPrefsHistoryN, "limit", 20, "history entries to show (0 = all)")
	prefsAnalyzeCmd.Flags().IntVar(&flagPrefsWindow, "window", 0, "lookback window in days (default from config)")
	prefsCmd.AddCommand(prefsSetCmd, prefsRmCmd, prefsPromoteCmd, prefsHistoryCmd, prefsAnalyzeCmd, prefsMetaCmd)
	rootCmd.AddCommand(prefsCmd)
}

func runPrefsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	prefs, err := eng.Preferences().List(ctx, flagPrefsCategory)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, prefs)
	}

	out := cmd.OutOrStdout()
	if len(prefs) == 0 {
		fmt.Fprintf(out, "%sno preferences stored%s\n", colorDim, colorReset)
		return nil
	}
	for _, p := range prefs {
		fmt.Fprintf(out, "%s%-12s%s %-24s = %-20s %s%s v%d (%.2f)%s\n",
			colorCyan, p.Category, colorReset, p.Key, p.Value,
			colorDim, p.Source, p.Version, p.Confidence, colorReset)
	}
	return nil
}

func runPrefsSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	p, err := eng.Preferences().Set(ctx, preference.Preference{
		Category:   args[0],
		Key:        args[1],
		Value:      args[2],
		Source:     preference.SourceManual,
		Confidence: 1.0,
	}, time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, p)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%sset%s %s/%s = %s (v%d)\n",
		colorGreen, colorReset, p.Category, p.Key, p.Value, p.Version)
	return nil
}

func runPrefsRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	if err := eng.Preferences().Delete(ctx, args[0], args[1], time.Now().UnixMilli()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%sremoved%s %s/%s\n",
		colorGreen, colorReset, args[0], args[1])
	return nil
}

func runPrefsPromote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	p, err := eng.Preferences().Promote(ctx, args[0], args[1], time.Now().UnixMilli())
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, p)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%spromoted%s %s/%s = %s (v%d)\n",
		colorGreen, colorReset, p.Category, p.Key, p.Value, p.Version)
	return nil
}

func runPrefsHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	entries, err := eng.Preferences().History(ctx, flagPrefsHistoryN)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, entries)
	}

	out := cmd.OutOrStdout()
	for _, e := range entries {
		value := e.Value
		if value == "" {
			value = "(removed)"
		}
		fmt.Fprintf(out, "%s  %s%-12s%s %-24s = %-20s %s%s%s\n",
			time.UnixMilli(e.TsMs).Format("2006-01-02 15:04"),
			colorCyan, e.Category, colorReset, e.Key, value,
			colorDim, e.Source, colorReset)
	}
	return nil
}

func runPrefsAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	candidates, err := eng.AnalyzePreferences(ctx, flagPrefsWindow)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, candidates)
	}

	out := cmd.OutOrStdout()
	if len(candidates) == 0 {
		fmt.Fprintf(out, "%snot enough data to infer preferences%s\n", colorDim, colorReset)
		return nil
	}
	for _, c := range candidates {
		fmt.Fprintf(out, "%s%-12s%s %-24s = %-20s (%.2f)\n",
			colorCyan, c.Category, colorReset, c.Key, c.Value, c.Confidence)
	}
	return nil
}

func runPrefsMeta(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	patterns, err := eng.MetaPatterns(ctx)
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, patterns)
	}

	out := cmd.OutOrStdout()
	if len(patterns) == 0 {
		fmt.Fprintf(out, "%sno meta-patterns found%s\n", colorDim, colorReset)
		return nil
	}
	for _, p := range patterns {
		fmt.Fprintf(out, "%s%-20s%s %.2f  %s\n",
			colorCyan, p.Kind, colorReset, p.Confidence, p.Description)
	}
	return nil
}
