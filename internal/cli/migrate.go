package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visitor-kiosk/internal/migrate"
)

func newMigrateCmd() *cobra.Command {
	var clearAll bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Move local records to the server",
		Long: `Copy every visitor and the emergency session from the local store to
the server, then remove them locally.

Records the server rejects stay in the local store so the command can be
re-run. With --clear-all the local store is emptied regardless and
rejected records are lost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context(), clearAll)
		},
	}

	cmd.Flags().BoolVar(&clearAll, "clear-all", false, "empty the local store even if some records fail")

	return cmd
}

func runMigrate(ctx context.Context, clearAll bool) error {
	if getAPIKey() == "" {
		return fmt.Errorf("no API key configured; run 'kiosk login' first")
	}

	store, closeFn, err := openLocalStore()
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []migrate.Option{migrate.WithNotificationLog(store.Notifications())}
	if clearAll {
		opts = append(opts, migrate.WithClearAll())
	}
	if !isJSON() {
		opts = append(opts, migrate.WithProgress(func(percent int) {
			fmt.Printf("\rMigrating... %3d%%", percent)
			if percent == 100 {
				fmt.Println()
			}
		}))
	}

	m := migrate.New(store.Visitors(), store.Emergency(), newAPIClient(), opts...)
	res, err := m.Run(ctx)
	if err != nil {
		if !isJSON() {
			fmt.Println()
		}
		return fmt.Errorf("migration stopped: %w", err)
	}

	if isJSON() {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printMigrateResult(res, clearAll)
	}

	if n := len(res.Failed); n > 0 || res.SessionFailed {
		return fmt.Errorf("%d visitor(s) failed to migrate", n)
	}
	return nil
}

func printMigrateResult(res *migrate.Result, clearAll bool) {
	fmt.Printf("Migrated %d visitor(s).\n", len(res.Migrated))
	if res.SessionMigrated {
		fmt.Println("Migrated the emergency session.")
	}
	if len(res.Failed) == 0 && !res.SessionFailed {
		return
	}

	if len(res.Failed) > 0 {
		fmt.Printf("Failed: %s\n", strings.Join(res.Failed, ", "))
	}
	if res.SessionFailed {
		fmt.Println("Failed to migrate the emergency session.")
	}
	if clearAll {
		fmt.Println("The local store was cleared; failed records were not kept.")
	} else {
		fmt.Println("Failed records were kept locally. Run 'kiosk migrate' again to retry.")
	}
}
