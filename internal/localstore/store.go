package localstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/evcraddock/visitor-kiosk/internal/emergency"
	"github.com/evcraddock/visitor-kiosk/internal/notify"
	"github.com/evcraddock/visitor-kiosk/internal/visitor"
)

// Store exposes the kiosk slots as the repositories the flows use.
// Every write replaces a whole slot document.
type Store struct {
	backend Backend
	mu      sync.Mutex
}

// New creates a store over backend.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Visitors returns the visitor repository over the visitors slot.
func (s *Store) Visitors() *VisitorStore {
	return &VisitorStore{s: s}
}

// Emergency returns the session store over the emergency_session slot.
func (s *Store) Emergency() *EmergencyStore {
	return &EmergencyStore{s: s}
}

// Notifications returns the log over the notification_logs slot.
func (s *Store) Notifications() *NotificationLog {
	return &NotificationLog{s: s}
}

func (s *Store) read(slot string, dst interface{}) (bool, error) {
	data, ok, err := s.backend.Get(slot)
	if err != nil || !ok {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decoding slot %s: %w", slot, err)
	}
	return true, nil
}

func (s *Store) write(slot string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding slot %s: %w", slot, err)
	}
	return s.backend.Set(slot, data)
}

// VisitorStore implements visitor.Repository.
type VisitorStore struct {
	s *Store
}

func (vs *VisitorStore) load() ([]*visitor.Visitor, error) {
	var list []*visitor.Visitor
	if _, err := vs.s.read(SlotVisitors, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (vs *VisitorStore) save(list []*visitor.Visitor) error {
	if list == nil {
		list = []*visitor.Visitor{}
	}
	return vs.s.write(SlotVisitors, list)
}

// Insert appends v to the slot.
func (vs *VisitorStore) Insert(v *visitor.Visitor) (*visitor.Visitor, error) {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()

	list, err := vs.load()
	if err != nil {
		return nil, err
	}
	for _, existing := range list {
		if existing.ID == v.ID {
			return nil, fmt.Errorf("%w: %s", visitor.ErrDuplicateID, v.ID)
		}
	}

	c := *v
	if err := vs.save(append(list, &c)); err != nil {
		return nil, err
	}
	out := c
	return &out, nil
}

// Get returns the visitor with id.
func (vs *VisitorStore) Get(id string) (*visitor.Visitor, error) {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()

	list, err := vs.load()
	if err != nil {
		return nil, err
	}
	for _, v := range list {
		if v.ID == id {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", visitor.ErrNotFound, id)
}

// Update replaces the stored visitor with the same ID.
func (vs *VisitorStore) Update(v *visitor.Visitor) error {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()

	list, err := vs.load()
	if err != nil {
		return err
	}
	for i, existing := range list {
		if existing.ID == v.ID {
			c := *v
			list[i] = &c
			return vs.save(list)
		}
	}
	return fmt.Errorf("%w: %s", visitor.ErrNotFound, v.ID)
}

// List returns visitors newest first, optionally filtered by status.
func (vs *VisitorStore) List(opts visitor.ListOptions) ([]*visitor.Visitor, error) {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()

	list, err := vs.load()
	if err != nil {
		return nil, err
	}

	var out []*visitor.Visitor
	for i := len(list) - 1; i >= 0; i-- {
		if opts.Status != "" && list[i].Status != opts.Status {
			continue
		}
		out = append(out, list[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a visitor by ID.
func (vs *VisitorStore) Delete(id string) error {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()

	list, err := vs.load()
	if err != nil {
		return err
	}
	for i, v := range list {
		if v.ID == id {
			return vs.save(append(list[:i], list[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %s", visitor.ErrNotFound, id)
}

// Remove drops every visitor whose ID is in ids. Unknown IDs are ignored.
func (vs *VisitorStore) Remove(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()

	list, err := vs.load()
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, v := range list {
		if !drop[v.ID] {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		return vs.s.backend.Delete(SlotVisitors)
	}
	return vs.save(kept)
}

// Clear deletes the visitors slot.
func (vs *VisitorStore) Clear() error {
	vs.s.mu.Lock()
	defer vs.s.mu.Unlock()
	return vs.s.backend.Delete(SlotVisitors)
}

// EmergencyStore implements emergency.Store over a single-session slot.
type EmergencyStore struct {
	s *Store
}

// Latest returns the stored session, active or resolved, or nil if the
// slot is empty.
func (es *EmergencyStore) Latest() (*emergency.Session, error) {
	es.s.mu.Lock()
	defer es.s.mu.Unlock()
	return es.load()
}

func (es *EmergencyStore) load() (*emergency.Session, error) {
	var session emergency.Session
	ok, err := es.s.read(SlotEmergencySession, &session)
	if err != nil || !ok {
		return nil, err
	}
	return &session, nil
}

// Active returns the stored session if it is active.
func (es *EmergencyStore) Active() (*emergency.Session, error) {
	es.s.mu.Lock()
	defer es.s.mu.Unlock()

	session, err := es.load()
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != emergency.StatusActive {
		return nil, emergency.ErrNoActiveSession
	}
	return session, nil
}

// Insert replaces the slot with session. An active session blocks it.
func (es *EmergencyStore) Insert(session *emergency.Session) error {
	es.s.mu.Lock()
	defer es.s.mu.Unlock()

	current, err := es.load()
	if err != nil {
		return err
	}
	if current != nil && current.Status == emergency.StatusActive {
		return emergency.ErrActiveSession
	}
	return es.s.write(SlotEmergencySession, session)
}

// Update rewrites the slot when it holds the same session.
func (es *EmergencyStore) Update(session *emergency.Session) error {
	es.s.mu.Lock()
	defer es.s.mu.Unlock()

	current, err := es.load()
	if err != nil {
		return err
	}
	if current == nil || current.ID != session.ID {
		return fmt.Errorf("emergency session %s not found", session.ID)
	}
	return es.s.write(SlotEmergencySession, session)
}

// Clear deletes the emergency_session slot.
func (es *EmergencyStore) Clear() error {
	es.s.mu.Lock()
	defer es.s.mu.Unlock()
	return es.s.backend.Delete(SlotEmergencySession)
}

// NotificationLog implements notify.Log over the notification_logs slot.
type NotificationLog struct {
	s *Store
}

// Append adds an entry to the slot.
func (nl *NotificationLog) Append(e *notify.Entry) error {
	nl.s.mu.Lock()
	defer nl.s.mu.Unlock()

	var entries []*notify.Entry
	if _, err := nl.s.read(SlotNotificationLogs, &entries); err != nil {
		return err
	}
	return nl.s.write(SlotNotificationLogs, append(entries, e))
}

// List returns the newest entries first. A limit of 0 returns all.
func (nl *NotificationLog) List(limit int) ([]*notify.Entry, error) {
	nl.s.mu.Lock()
	defer nl.s.mu.Unlock()

	var entries []*notify.Entry
	if _, err := nl.s.read(SlotNotificationLogs, &entries); err != nil {
		return nil, err
	}
	var out []*notify.Entry
	for i := len(entries) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, entries[i])
	}
	return out, nil
}

// Clear deletes the notification_logs slot.
func (nl *NotificationLog) Clear() error {
	nl.s.mu.Lock()
	defer nl.s.mu.Unlock()
	return nl.s.backend.Delete(SlotNotificationLogs)
}

// IsEmpty reports whether no slot holds data.
func (s *Store) IsEmpty() (bool, error) {
	for _, slot := range []string{SlotVisitors, SlotEmergencySession, SlotNotificationLogs} {
		_, ok, err := s.backend.Get(slot)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	return true, nil
}

var (
	_ visitor.Repository = (*VisitorStore)(nil)
	_ emergency.Store    = (*EmergencyStore)(nil)
	_ notify.Log         = (*NotificationLog)(nil)
)
