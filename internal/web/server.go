// Package web provides the HTTP server and JSON API for the visitor kiosk.
package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evcraddock/visitor-kiosk/internal/auth"
	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/logging"
	"github.com/evcraddock/visitor-kiosk/internal/notify"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

// Config holds optional server collaborators.
type Config struct {
	Mailer      notify.Mailer    // nil = notifications are only logged
	Publisher   notify.Publisher // nil = no event publishing
	AlertEmails []string
	Now         func() time.Time // nil = time.Now
}

// Server is the kiosk API HTTP server.
type Server struct {
	visitors      *visitor.Service
	visitorRepo   *visitor.SQLRepository
	emergency     *emergency.Service
	emergencyRepo *emergency.SQLRepository
	notifications *notify.SQLLog
	apiKeys       *auth.APIKeyStore
	router        chi.Router
}

// NewServer creates an API server over the given database.
func NewServer(db *sql.DB, cfg Config) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	notifications := notify.NewSQLLog(db)
	var notifyOpts []notify.Option
	if cfg.Mailer != nil {
		notifyOpts = append(notifyOpts, notify.WithMailer(cfg.Mailer))
	}
	if cfg.Publisher != nil {
		notifyOpts = append(notifyOpts, notify.WithPublisher(cfg.Publisher))
	}
	if len(cfg.AlertEmails) > 0 {
		notifyOpts = append(notifyOpts, notify.WithAlertAddresses(cfg.AlertEmails...))
	}
	notifier := notify.New(notifications, notifyOpts...)

	visitorRepo := visitor.NewSQLRepository(db)
	visitors := visitor.NewService(visitorRepo,
		visitor.WithClock(now),
		visitor.WithNotifier(notifier),
	)

	emergencyRepo := emergency.NewSQLRepository(db)
	emergencies := emergency.NewService(emergencyRepo, visitorRepo)
	emergencies.SetClock(now)
	emergencies.SetNotifier(notifier)

	s := &Server{
		visitors:      visitors,
		visitorRepo:   visitorRepo,
		emergency:     emergencies,
		emergencyRepo: emergencyRepo,
		notifications: notifications,
		apiKeys:       auth.NewAPIKeyStore(db),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(auth.RequireAPIKey(s.apiKeys))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/visitors", func(r chi.Router) {
			r.Get("/", s.handleListVisitors)
			r.Post("/", s.handleRegister)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetVisitor)
				r.Delete("/", s.handleDeleteVisitor)
				r.Get("/qr.png", s.handleVisitorQR)
				r.Post("/checkout", s.handleCheckOut)
			})
		})
		r.Post("/checkin", s.handleCheckIn)
		r.Post("/walkin", s.handleWalkIn)

		r.Route("/emergency", func(r chi.Router) {
			r.Get("/", s.handleActiveEmergency)
			r.Post("/", s.handleStartEmergency)
			r.Post("/resolve", s.handleResolveEmergency)
			r.Get("/rollcall", s.handleRollCall)
			r.Get("/history", s.handleEmergencyHistory)
		})

		r.Get("/notifications", s.handleNotifications)

		r.Route("/import", func(r chi.Router) {
			r.Post("/visitors", s.handleImportVisitor)
			r.Post("/emergency-sessions", s.handleImportEmergencySession)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, "not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// APIKeys returns the server's API key store.
func (s *Server) APIKeys() *auth.APIKeyStore {
	return s.apiKeys
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	slog.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
