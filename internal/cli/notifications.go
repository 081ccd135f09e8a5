package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visitor-kiosk/internal/notify"
)

func newNotificationsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Show the notification log",
		Long:  "Show host and emergency notifications, newest first, with their delivery status.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			return runNotifications(cmd.Context(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum entries to show (0 = all)")

	return cmd
}

func runNotifications(ctx context.Context, limit int) error {
	k, closeFn, err := openKiosk()
	if err != nil {
		return err
	}
	defer closeFn()

	entries, err := k.Notifications(ctx, limit)
	if err != nil {
		return err
	}

	if isJSON() {
		if entries == nil {
			entries = []*notify.Entry{}
		}
		return printJSON(entries)
	}

	printNotifications(entries)
	return nil
}
