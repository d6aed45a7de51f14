package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagRecordAt      string
	flagRecordApp     string
	flagRecordCommand string
	flagRecordPayload []string
)

var recordCmd = &cobra.Command{
	Use:   "record <event-type>",
	Short: "Record one user-action event",
	Long: `Record one user-action event into the local event log.

Event types: app_opened, app_closed, command_executed, conversation_turn

Examples:
  habitd record app_opened --app Chrome
  habitd record command_executed --command "git status"
  habitd record conversation_turn --payload chars=120
  habitd record app_opened --app Slack --at 2026-08-29T09:15:00Z`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&flagRecordAt, "at", "", "event timestamp (RFC 3339, default now)")
	recordCmd.Flags().StringVar(&flagRecordApp, "app", "", "application name payload")
	recordCmd.Flags().StringVar(&flagRecordCommand, "command", "", "command line payload")
	recordCmd.Flags().StringArrayVar(&flagRecordPayload, "payload", nil, "extra payload field as key=value (repeatable)")
	rootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var ts time.Time
	if flagRecordAt != "" {
		var err error
		ts, err = time.Parse(time.RFC3339, flagRecordAt)
		if err != nil {
			return fmt.Errorf("parse --at: %w", err)
		}
	}

	payload := make(map[string]string)
	if flagRecordApp != "" {
		payload["app_name"] = flagRecordApp
	}
	if flagRecordCommand != "" {
		payload["command"] = flagRecordCommand
	}
	for _, kv := range flagRecordPayload {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return fmt.Errorf("invalid --payload %q, want key=value", kv)
		}
		payload[key] = value
	}

	eng, closer, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer closer()

	ev, err := eng.RecordEvent(ctx, args[0], ts, payload)
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(cmd, ev)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%srecorded%s %s at %s (%s)\n",
		colorGreen, colorReset, ev.Type, ev.Time().Format(time.RFC3339), ev.DayPart)
	return nil
}
