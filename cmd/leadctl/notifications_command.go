package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newNotificationsCommand(ctx *commandContext) *cobra.Command {
	notificationsCmd := &cobra.Command{
		Use:   "notifications",
		Short: "Notification maintenance",
	}

	notificationsCmd.AddCommand(&cobra.Command{
		Use:   "clean",
		Short: "Delete read notifications older than 30 days",
		RunE: func(cmd *cobra.Command, args []string) error {
			dispatcher, err := ctx.dispatcher()
			if err != nil {
				return err
			}
			deleted, err := dispatcher.CleanOldNotifications(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d notifications\n", deleted)
			return nil
		},
	})

	return notificationsCmd
}
