package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/evcraddock/visitor-kiosk/internal/client"
	"github.com/evcraddock/visitor-kiosk/internal/config"
	"github.com/evcraddock/visitor-kiosk/internal/email"
	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/localstore"
	"github.com/evcraddock/visitor-kiosk/internal/notify"
	"github.com/evcraddock/visitor-kiosk/internal/qr"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

// kiosk is the set of operations the kiosk commands run. *client.Client
// serves them from the server; localKiosk serves them from the local store.
type kiosk interface {
	ListVisitors(ctx context.Context, status visitor.Status) ([]*visitor.Visitor, error)
	GetVisitor(ctx context.Context, id string) (*visitor.Visitor, error)
	Register(ctx context.Context, in visitor.Input) (*visitor.Registration, error)
	CheckIn(ctx context.Context, req client.CheckInRequest) (*visitor.Result, error)
	WalkIn(ctx context.Context, in visitor.Input) (*visitor.Visitor, error)
	CheckOut(ctx context.Context, id string) (*visitor.Result, error)
	DeleteVisitor(ctx context.Context, id string) error
	VisitorQR(ctx context.Context, id string) ([]byte, error)
	StartEmergency(ctx context.Context, in emergency.StartInput) (*emergency.Session, error)
	ActiveEmergency(ctx context.Context) (*emergency.Session, error)
	ResolveEmergency(ctx context.Context) (*emergency.Session, error)
	RollCall(ctx context.Context) (*emergency.RollCall, error)
	Notifications(ctx context.Context, limit int) ([]*notify.Entry, error)
}

var (
	_ kiosk = (*client.Client)(nil)
	_ kiosk = (*localKiosk)(nil)
)

// localKiosk runs the visitor and emergency flows over a local store.
type localKiosk struct {
	visitors      *visitor.Service
	emergency     *emergency.Service
	notifications *localstore.NotificationLog
}

func newLocalKiosk(store *localstore.Store, cfg config.Server) *localKiosk {
	var opts []notify.Option
	if cfg.SMTP.IsConfigured() {
		opts = append(opts, notify.WithMailer(email.NewSender(cfg.SMTP)))
	}
	if len(cfg.AlertEmails) > 0 {
		opts = append(opts, notify.WithAlertAddresses(cfg.AlertEmails...))
	}
	notifications := store.Notifications()
	notifier := notify.New(notifications, opts...)

	visitors := store.Visitors()
	emergencies := emergency.NewService(store.Emergency(), visitors)
	emergencies.SetNotifier(notifier)

	return &localKiosk{
		visitors:      visitor.NewService(visitors, visitor.WithNotifier(notifier)),
		emergency:     emergencies,
		notifications: notifications,
	}
}

func (k *localKiosk) ListVisitors(_ context.Context, status visitor.Status) ([]*visitor.Visitor, error) {
	return k.visitors.List(visitor.ListOptions{Status: status})
}

func (k *localKiosk) GetVisitor(_ context.Context, id string) (*visitor.Visitor, error) {
	return k.visitors.Get(id)
}

func (k *localKiosk) Register(_ context.Context, in visitor.Input) (*visitor.Registration, error) {
	return k.visitors.Register(in)
}

func (k *localKiosk) CheckIn(_ context.Context, req client.CheckInRequest) (*visitor.Result, error) {
	if req.Payload != "" {
		return k.visitors.CheckInByPayload(req.Payload)
	}
	return k.visitors.CheckIn(req.ID)
}

func (k *localKiosk) WalkIn(_ context.Context, in visitor.Input) (*visitor.Visitor, error) {
	return k.visitors.WalkIn(in)
}

func (k *localKiosk) CheckOut(_ context.Context, id string) (*visitor.Result, error) {
	return k.visitors.CheckOut(id)
}

func (k *localKiosk) DeleteVisitor(_ context.Context, id string) error {
	return k.visitors.Delete(id)
}

func (k *localKiosk) VisitorQR(_ context.Context, id string) ([]byte, error) {
	v, err := k.visitors.Get(id)
	if err != nil {
		return nil, err
	}
	if v.QRPayload == nil {
		return nil, fmt.Errorf("visitor %s has no QR payload", id)
	}
	return qr.PNG(*v.QRPayload, qr.DefaultSize)
}

func (k *localKiosk) StartEmergency(_ context.Context, in emergency.StartInput) (*emergency.Session, error) {
	return k.emergency.Start(in)
}

func (k *localKiosk) ActiveEmergency(_ context.Context) (*emergency.Session, error) {
	return k.emergency.Active()
}

func (k *localKiosk) ResolveEmergency(_ context.Context) (*emergency.Session, error) {
	return k.emergency.Resolve()
}

func (k *localKiosk) RollCall(_ context.Context) (*emergency.RollCall, error) {
	return k.emergency.RollCall()
}

func (k *localKiosk) Notifications(_ context.Context, limit int) ([]*notify.Entry, error) {
	return k.notifications.List(limit)
}

// openKiosk returns the server client with --remote, otherwise a kiosk
// over the local store. The returned func releases the store.
func openKiosk() (kiosk, func(), error) {
	if flagRemote {
		return newAPIClient(), func() {}, nil
	}

	if err := config.LoadDotEnv(""); err != nil {
		return nil, nil, err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, nil, err
	}

	store, closeFn, err := openLocalStore()
	if err != nil {
		return nil, nil, err
	}
	return newLocalKiosk(store, cfg), closeFn, nil
}

// openLocalStore opens the kiosk's local slot store on the configured backend.
func openLocalStore() (*localstore.Store, func(), error) {
	switch kind := getStoreKind(); kind {
	case "file":
		dir, err := getStoreDir()
		if err != nil {
			return nil, nil, err
		}
		backend, err := localstore.NewFileBackend(dir)
		if err != nil {
			return nil, nil, err
		}
		return localstore.New(backend), func() {}, nil

	case "redis":
		rdb, err := localstore.DialRedis(getRedisAddr(), os.Getenv("KIOSK_REDIS_PASSWORD"), 0)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := rdb.Close(); err != nil {
				slog.Warn("closing redis client", "error", err)
			}
		}
		backend := localstore.NewRedisBackend(rdb, os.Getenv("KIOSK_REDIS_PREFIX"))
		return localstore.New(backend), closeFn, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q (want file or redis)", kind)
	}
}

// isNoActiveSession reports whether err means no emergency is active,
// locally or on the server.
func isNoActiveSession(err error) bool {
	if errors.Is(err, emergency.ErrNoActiveSession) {
		return true
	}
	var apiErr *client.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// commandError turns API validation failures into the same per-field
// error the local flows return.
func commandError(err error) error {
	var apiErr *client.Error
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		return &visitor.ValidationError{Fields: apiErr.Fields}
	}
	return err
}
