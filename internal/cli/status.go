package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visitor-kiosk/internal/client"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check server connection and the local store",
		Long:  "Tests the connection to the server, checks if the stored API key is valid, and reports records waiting in the local store.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	serverURL := getServerURL()
	apiKey := getAPIKey()

	fmt.Printf("Server:  %s\n", serverURL)
	printServerStatus(ctx, serverURL, apiKey)

	store, closeFn, err := openLocalStore()
	if err != nil {
		fmt.Printf("Local:   ✗ %v\n", err)
		return nil
	}
	defer closeFn()

	visitors, err := store.Visitors().List(visitor.ListOptions{})
	if err != nil {
		fmt.Printf("Local:   ✗ %v\n", err)
		return nil
	}
	fmt.Printf("Local:   %s store, %d visitor(s) awaiting migration\n", getStoreKind(), len(visitors))
	return nil
}

func printServerStatus(ctx context.Context, serverURL, apiKey string) {
	if apiKey == "" {
		fmt.Println("API Key: not configured")
		fmt.Println("Status:  run 'kiosk login' to store an API key")
		return
	}

	prefix := apiKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	fmt.Printf("API Key: %s…\n", prefix)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c := client.New(serverURL, apiKey)
	if err := c.Health(ctx); err != nil {
		fmt.Printf("Status:  ✗ cannot reach server (%v)\n", err)
		return
	}

	_, err := c.ListVisitors(ctx, "")
	var apiErr *client.Error
	switch {
	case err == nil:
		fmt.Println("Status:  ✓ connected and authenticated")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		fmt.Println("Status:  ✗ invalid API key")
		fmt.Println("\nRun 'kiosk login' to store a new key.")
	case errors.As(err, &apiErr):
		fmt.Printf("Status:  ✗ unexpected response (%d)\n", apiErr.StatusCode)
	default:
		fmt.Printf("Status:  ✗ %v\n", err)
	}
}
