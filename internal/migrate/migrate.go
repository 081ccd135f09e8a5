package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

// VisitorSource is the local visitor slot; *localstore.VisitorStore
// satisfies it.
type VisitorSource interface {
	List(opts visitor.ListOptions) ([]*visitor.Visitor, error)
	Remove(ids []string) error
	Clear() error
}

// SessionSource is the local emergency slot; *localstore.EmergencyStore
// satisfies it.
type SessionSource interface {
	Latest() (*emergency.Session, error)
	Clear() error
}

// LogSource is the local notification log; *localstore.NotificationLog
// satisfies it. It is never migrated.
type LogSource interface {
	Clear() error
}

// Result summarizes a run.
type Result struct {
	Migrated        []string `json:"migrated"`
	Failed          []string `json:"failed"`
	SessionMigrated bool     `json:"session_migrated"`
	SessionFailed   bool     `json:"session_failed"`
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithProgress reports percent complete (0-100) as the run advances.
func WithProgress(fn func(percent int)) Option {
	return func(m *Migrator) { m.progress = fn }
}

// WithClearAll empties the local slots after the run even when records
// failed to migrate. Failed records are lost, and the notification log
// given to WithNotificationLog is cleared too.
func WithClearAll() Option {
	return func(m *Migrator) { m.clearAll = true }
}

// WithNotificationLog sets the local notification log. Only a clear-all
// run touches it; otherwise it stays on the kiosk.
func WithNotificationLog(l LogSource) Option {
	return func(m *Migrator) { m.logs = l }
}

// Migrator drains local slots into a Remote.
type Migrator struct {
	visitors VisitorSource
	sessions SessionSource
	remote   Remote
	logs     LogSource
	progress func(int)
	clearAll bool
}

// New creates a migrator.
func New(visitors VisitorSource, sessions SessionSource, remote Remote, opts ...Option) *Migrator {
	m := &Migrator{
		visitors: visitors,
		sessions: sessions,
		remote:   remote,
		progress: func(int) {},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Run copies every local visitor, then the emergency session, to the
// remote store. A failed record is logged and skipped. Afterwards the
// migrated records are removed locally; with WithClearAll every record is.
// A read error or cancelled context stops the run before anything is
// removed.
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	visitors, err := m.visitors.List(visitor.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("reading local visitors: %w", err)
	}
	session, err := m.sessions.Latest()
	if err != nil {
		return nil, fmt.Errorf("reading local emergency session: %w", err)
	}

	// List is newest first; migrate in creation order.
	for i, j := 0, len(visitors)-1; i < j; i, j = i+1, j-1 {
		visitors[i], visitors[j] = visitors[j], visitors[i]
	}

	res := &Result{}
	m.progress(0)

	n := len(visitors)
	for i, v := range visitors {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := m.remote.CreateVisitor(ctx, ToRemoteVisitor(v)); err != nil {
			slog.Warn("visitor migration failed", "visitor", v.ID, "error", err)
			res.Failed = append(res.Failed, v.ID)
		} else {
			res.Migrated = append(res.Migrated, v.ID)
		}
		m.progress((i + 1) * 50 / n)
	}
	if n == 0 {
		m.progress(50)
	}

	if session != nil {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := m.remote.CreateEmergencySession(ctx, ToRemoteSession(session)); err != nil {
			slog.Warn("emergency session migration failed", "session", session.ID, "error", err)
			res.SessionFailed = true
		} else {
			res.SessionMigrated = true
		}
	}
	m.progress(75)

	if err := m.clear(res); err != nil {
		return res, err
	}

	slog.Info("migration complete",
		"migrated", len(res.Migrated),
		"failed", len(res.Failed),
		"session_migrated", res.SessionMigrated,
		"clear_all", m.clearAll,
	)
	m.progress(100)
	return res, nil
}

func (m *Migrator) clear(res *Result) error {
	if m.clearAll {
		if len(res.Failed) > 0 || res.SessionFailed {
			slog.Warn("clearing local store with unmigrated records",
				"failed", res.Failed, "session_failed", res.SessionFailed)
		}
		if err := m.visitors.Clear(); err != nil {
			return fmt.Errorf("clearing local visitors: %w", err)
		}
		if err := m.sessions.Clear(); err != nil {
			return fmt.Errorf("clearing local emergency session: %w", err)
		}
		if m.logs != nil {
			if err := m.logs.Clear(); err != nil {
				return fmt.Errorf("clearing local notification log: %w", err)
			}
		}
		return nil
	}

	if err := m.visitors.Remove(res.Migrated); err != nil {
		return fmt.Errorf("removing migrated visitors: %w", err)
	}
	if res.SessionMigrated {
		if err := m.sessions.Clear(); err != nil {
			return fmt.Errorf("clearing local emergency session: %w", err)
		}
	}
	return nil
}
