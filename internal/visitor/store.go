package visitor

import (
	"fmt"
	"sort"
	"sync"
)

// Repository is the visitor record store used by the flows.
// Get and Update return ErrNotFound for unknown IDs; Insert returns
// ErrDuplicateID when the ID is taken.
type Repository interface {
	Insert(v *Visitor) (*Visitor, error)
	Get(id string) (*Visitor, error)
	Update(v *Visitor) error
	List(opts ListOptions) ([]*Visitor, error)
	Delete(id string) error
}

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu       sync.Mutex
	visitors map[string]*Visitor
	order    []string
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{visitors: make(map[string]*Visitor)}
}

// Insert stores a copy of v.
func (r *MemoryRepository) Insert(v *Visitor) (*Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.visitors[v.ID]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, v.ID)
	}
	c := *v
	r.visitors[v.ID] = &c
	r.order = append(r.order, v.ID)

	out := c
	return &out, nil
}

// Get returns a copy of the visitor with the given ID.
func (r *MemoryRepository) Get(id string) (*Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.visitors[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	c := *v
	return &c, nil
}

// Update replaces the stored visitor with the same ID.
func (r *MemoryRepository) Update(v *Visitor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.visitors[v.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, v.ID)
	}
	c := *v
	r.visitors[v.ID] = &c
	return nil
}

// List returns visitors newest first.
func (r *MemoryRepository) List(opts ListOptions) ([]*Visitor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Visitor
	for i := len(r.order) - 1; i >= 0; i-- {
		v := r.visitors[r.order[i]]
		if opts.Status != "" && v.Status != opts.Status {
			continue
		}
		c := *v
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a visitor by ID.
func (r *MemoryRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.visitors[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.visitors, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}
