package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visitor-kiosk/internal/config"
	"github.com/evcraddock/visitor-kiosk/internal/db"
	"github.com/evcraddock/visitor-kiosk/internal/email"
	"github.com/evcraddock/visitor-kiosk/internal/events"
	"github.com/evcraddock/visitor-kiosk/internal/logging"
	"github.com/evcraddock/visitor-kiosk/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		port    int
		envFile string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the kiosk API server",
		Long: `Start the HTTP API server. Settings come from KIOSK_* environment
variables, optionally loaded from a .env file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), port, envFile)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (default: KIOSK_PORT or 8080)")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file to load")

	return cmd
}

func runServe(ctx context.Context, port int, envFile string) error {
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if port != 0 {
		cfg.Port = port
	}

	logging.Setup(os.Stderr, cfg.DevMode)

	database, err := openServerDB(cfg)
	if err != nil {
		return err
	}
	defer closeDB(database)

	webCfg := web.Config{AlertEmails: cfg.AlertEmails}
	if cfg.SMTP.IsConfigured() {
		webCfg.Mailer = email.NewSender(cfg.SMTP)
	} else {
		slog.Info("SMTP not configured; notifications will only be logged")
	}
	if cfg.AMQPURL != "" {
		pub := events.NewPublisher(cfg.AMQPURL, cfg.AMQPQueue)
		webCfg.Publisher = pub
		slog.Info("publishing events", "queue", pub.Queue())
	}

	srv, err := web.NewServer(database, webCfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Kiosk API listening on %s\n", cfg.BaseURL)
	return srv.ListenAndServe(ctx, cfg.Port)
}

// openServerDB opens the database from --db, then the server config, then
// the default path.
func openServerDB(cfg config.Server) (*sql.DB, error) {
	if flagDB != "" {
		return db.Open(flagDB)
	}
	if cfg.DBPath != "" {
		return db.Open(cfg.DBPath)
	}
	return openDB()
}
