package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/habitd/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review pending suggestions interactively",
	Long: `Walk through pending suggestions one at a time and accept, reject,
or defer each with a single keypress.`,
	RunE: runReview,
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	applied, err := review.Run(ctx, eng)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s%d response(s) recorded%s\n",
		colorGreen, applied, colorReset)
	return nil
}
