package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var autolearnCmd = &cobra.Command{
	Use:   "autolearn [on|off]",
	Short: "Toggle opportunistic background learning",
	Long: `Enable or disable auto-learn. When enabled, recording events
periodically triggers a full analysis and suggestion refresh without
an explicit habitd analyze. The setting persists across restarts and
defaults to off.

Examples:
  habitd autolearn        # show current state
  habitd autolearn on
  habitd autolearn off`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAutolearn,
}

func init() {
	rootCmd.AddCommand(autolearnCmd)
}

func runAutolearn(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		enabled, err := eng.AutoLearn(ctx)
		if err != nil {
			return err
		}
		if flagJSON {
			return printJSON(cmd, map[string]bool{"auto_learn_enabled": enabled})
		}
		state := "off"
		if enabled {
			state = "on"
		}
		fmt.Fprintf(out, "auto-learn is %s%s%s\n", colorBold, state, colorReset)
		return nil
	}

	switch args[0] {
	case "on":
		if err := eng.SetAutoLearn(ctx, true); err != nil {
			return err
		}
		fmt.Fprintf(out, "%sauto-learn enabled%s\n", colorGreen, colorReset)
	case "off":
		if err := eng.SetAutoLearn(ctx, false); err != nil {
			return err
		}
		fmt.Fprintf(out, "%sauto-learn disabled%s\n", colorYellow, colorReset)
	default:
		return fmt.Errorf("invalid argument %q, want on or off", args[0])
	}
	return nil
}
