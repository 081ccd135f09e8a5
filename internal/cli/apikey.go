package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visitor-kiosk/internal/auth"
)

func newAPIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage server API keys",
		Long:  "Create, list and revoke the API keys kiosks use to reach the server. Runs against the server database.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Create an API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAPIKeyCreate(args[0])
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "List API keys",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAPIKeyList()
			},
		},
		&cobra.Command{
			Use:   "revoke <id>",
			Short: "Revoke an API key",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid key ID: %s", args[0])
				}
				return runAPIKeyRevoke(id)
			},
		},
	)

	return cmd
}

func runAPIKeyCreate(name string) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	raw, key, err := auth.NewAPIKeyStore(database).Create(name)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(map[string]interface{}{"key": raw, "api_key": key})
	}

	fmt.Printf("API key %q created (#%d).\n", key.Name, key.ID)
	fmt.Printf("\n  %s\n\n", raw)
	fmt.Println("Store it now; it will not be shown again.")
	return nil
}

func runAPIKeyList() error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	keys, err := auth.NewAPIKeyStore(database).List()
	if err != nil {
		return err
	}

	if isJSON() {
		if keys == nil {
			keys = []auth.APIKey{}
		}
		return printJSON(keys)
	}

	if len(keys) == 0 {
		fmt.Println("No API keys.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, "ID\tNAME\tPREFIX\tCREATED\tLAST USED\tREVOKED"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	for _, k := range keys {
		revoked := ""
		if k.Revoked {
			revoked = "yes"
		}
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			k.ID, k.Name, k.KeyPrefix, formatTime(&k.CreatedAt), formatTime(k.LastUsedAt), revoked); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}
	return w.Flush()
}

func runAPIKeyRevoke(id int64) error {
	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	if err := auth.NewAPIKeyStore(database).Revoke(id); err != nil {
		return err
	}

	if !isJSON() {
		fmt.Printf("API key #%d revoked.\n", id)
	}
	return nil
}
