package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var muteCmd = &cobra.Command{
	Use:   "mute [suggestion-type]",
	Short: "Stop generating a suggestion type",
	Long: `Mute a suggestion type so the generator skips it. Pending
suggestions of that type are rejected. With no argument, lists muted types.

Suggestion types: automation, preference, optimization, learning

Examples:
  habitd mute optimization
  habitd mute`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMute,
}

var unmuteCmd = &cobra.Command{
	Use:   "unmute <suggestion-type>",
	Short: "Re-enable a muted suggestion type",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnmute,
}

func init() {
	rootCmd.AddCommand(muteCmd)
	rootCmd.AddCommand(unmuteCmd)
}

func runMute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		muted, err := eng.MutedTypes(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, map[string][]string{"muted_types": muted})
		}
		if len(muted) == 0 {
			fmt.Fprintf(out, "%sno muted types%s\n", colorDim, colorReset)
			return nil
		}
		fmt.Fprintf(out, "muted: %s\n", strings.Join(muted, ", "))
		return nil
	}

	rejected, err := eng.MuteSuggestionType(ctx, args[0])
	if err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd, map[string]any{"muted": args[0], "rejected_pending": rejected})
	}
	fmt.Fprintf(out, "%smuted%s %s suggestions", colorYellow, colorReset, args[0])
	if rejected > 0 {
		fmt.Fprintf(out, " (%d pending rejected)", rejected)
	}
	fmt.Fprintln(out)
	return nil
}

func runUnmute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	if err := eng.UnmuteSuggestionType(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%sunmuted%s %s suggestions\n",
		colorGreen, colorReset, args[0])
	return nil
}
