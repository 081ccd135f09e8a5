// Package cli defines the cobra command tree for the visitor kiosk.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visitor-kiosk/internal/client"
	"github.com/evcraddock/visitor-kiosk/internal/db"
)

var (
	flagFormat    string
	flagDB        string
	flagStore     string
	flagStoreDir  string
	flagRedisAddr string
	flagRemote    bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kiosk",
		Short: "Visitor check-in kiosk",
		Long: `Register visitors, check them in and out with QR codes, run emergency
roll calls, and migrate a kiosk's local records to the central server.

Kiosk commands work on the local store by default. Pass --remote to run
them against the server instead.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "server SQLite database path (default: ~/.config/kiosk/kiosk.db)")
	root.PersistentFlags().StringVar(&flagStore, "store", "", "local store backend (file|redis, default: file)")
	root.PersistentFlags().StringVar(&flagStoreDir, "store-dir", "", "directory for the file store (default: ~/.config/kiosk/store)")
	root.PersistentFlags().StringVar(&flagRedisAddr, "redis-addr", "", "redis address for the redis store (default: localhost:6379)")
	root.PersistentFlags().BoolVar(&flagRemote, "remote", false, "run kiosk commands against the server")

	root.AddCommand(
		newRegisterCmd(),
		newCheckInCmd(),
		newWalkInCmd(),
		newCheckOutCmd(),
		newListCmd(),
		newShowCmd(),
		newDeleteCmd(),
		newQRCmd(),
		newEmergencyCmd(),
		newNotificationsCmd(),
		newMigrateCmd(),
		newServeCmd(),
		newAPIKeyCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the server database from --db, KIOSK_DB_PATH, or the default path.
func openDB() (*sql.DB, error) {
	path := flagDB
	if path == "" {
		path = os.Getenv("KIOSK_DB_PATH")
	}
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newAPIClient creates an HTTP client for the kiosk API.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getAPIKey())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
