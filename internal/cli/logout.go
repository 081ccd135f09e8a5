package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	var forgetServer bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored API key",
		Long: `Removes the stored API key from the kiosk config. Store settings are kept.
With --forget-server the server URL is dropped as well, so the next
'kiosk login' falls back to KIOSK_SERVER_URL or the default.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(forgetServer)
		},
	}

	cmd.Flags().BoolVar(&forgetServer, "forget-server", false, "also remove the stored server URL")
	return cmd
}

func runLogout(forgetServer bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	changed := cfg.APIKey != "" || (forgetServer && cfg.ServerURL != "")
	if !changed {
		fmt.Println("Nothing to remove; no API key stored.")
		return nil
	}

	cfg.APIKey = ""
	if forgetServer {
		cfg.ServerURL = ""
	}
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if forgetServer {
		fmt.Println("✓ API key and server URL removed.")
	} else {
		fmt.Println("✓ API key removed.")
	}
	return nil
}
