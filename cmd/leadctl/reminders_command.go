package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lapublica/leadflow/internal/usecase"
)

func newRemindersCommand(ctx *commandContext) *cobra.Command {
	remindersCmd := &cobra.Command{
		Use:   "reminders",
		Short: "Lead reminder scans",
	}

	var asJSON bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the inactive and expiring lead scans once",
		RunE: func(cmd *cobra.Command, args []string) error {
			uc, err := ctx.reminders()
			if err != nil {
				return err
			}
			result := uc.RunAllLeadReminders(cmd.Context())
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printReminderResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
	runCmd.Flags().BoolVar(&asJSON, "json", false, "Print the run summary as JSON")

	remindersCmd.AddCommand(runCmd)
	return remindersCmd
}

func printReminderResult(out io.Writer, r usecase.ReminderRunResult) {
	if r.LockHeld {
		fmt.Fprintln(out, "Another reminder run holds the lock; nothing scanned.")
		return
	}
	fmt.Fprintf(out, "Inactive: checked %d, notified %d, skipped %d, errors %d\n",
		r.Inactive.Checked, r.Inactive.Notified, r.Inactive.Skipped, r.Inactive.Errors)
	fmt.Fprintf(out, "Expiring: checked %d, gestors %d, crm %d, skipped %d, errors %d\n",
		r.Expiring.Checked, r.Expiring.GestorsNotified, r.Expiring.CRMNotified, r.Expiring.Skipped, r.Expiring.Errors)
	fmt.Fprintf(out, "Duration: %s\n", r.Duration.Round(time.Millisecond))
}
