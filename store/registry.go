package store

import (
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/favac/no-framework-starter/logging"
)

// Registry is the process-wide directory of persistent stores plus the
// pending-snapshot map used by the hot-swap protocol. Both outlive any
// individual module instantiation: a hot-swapped module re-registers its
// stores against the same Registry and gets its previous state back.
//
// The Registry is created once per page/process session and never reset
// until a full reload.
type Registry struct {
	mu      sync.Mutex
	stores  map[string]*Store
	pending map[string]interface{}
	logger  *logrus.Entry
}

// NewRegistry creates an empty persistent-store directory.
func NewRegistry() *Registry {
	return &Registry{
		stores:  make(map[string]*Store),
		pending: make(map[string]interface{}),
		logger:  logging.NewLogger("store-registry"),
	}
}

// CreatePersistent returns the store registered under name, creating it on
// first reference. If the store already exists it is returned unchanged and
// initial is ignored. Otherwise the starting state is the pending snapshot
// for name if one exists (consumed), else initial.
func (r *Registry) CreatePersistent(name string, initial interface{}) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.stores[name]; ok {
		return existing
	}

	starting := initial
	if snap, ok := r.pending[name]; ok {
		starting = snap
		delete(r.pending, name)
		r.logger.WithField("store", name).Debug("Seeded new store from pending snapshot")
	}

	s := newStore(name, starting)
	r.stores[name] = s
	return s
}

// Lookup returns the store registered under name, if any.
func (r *Registry) Lookup(name string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[name]
	return s, ok
}

// Names returns the names of all registered stores, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot copies every registered store's current state into the pending
// map, keyed by store name. Called at the start of a hot-swap cycle, before
// the old module instantiation is torn down. Returns the number of stores
// captured.
func (r *Registry) Snapshot() int {
	r.mu.Lock()
	stores := make(map[string]*Store, len(r.stores))
	for name, s := range r.stores {
		stores[name] = s
	}
	r.mu.Unlock()

	for name, s := range stores {
		state := s.Get()
		r.mu.Lock()
		r.pending[name] = state
		r.mu.Unlock()
	}
	return len(stores)
}

// Restore writes each pending snapshot back into the store of the same name,
// if one exists, forcing notification so bindings and subscribers re-render
// with the restored state. Consumed entries are cleared; snapshots for
// stores the new module did not re-create stay pending for a later reload.
// Returns the number of stores restored.
func (r *Registry) Restore() int {
	r.mu.Lock()
	type pair struct {
		store *Store
		value interface{}
	}
	var matched []pair
	for name, value := range r.pending {
		if s, ok := r.stores[name]; ok {
			matched = append(matched, pair{store: s, value: value})
			delete(r.pending, name)
		}
	}
	r.mu.Unlock()

	for _, p := range matched {
		p.store.ForceSet(p.value)
	}
	return len(matched)
}

// Pending returns the pending snapshot for name, if any. Primarily useful
// for diagnostics and tests.
func (r *Registry) Pending(name string) (interface{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.pending[name]
	return v, ok
}

// PendingCount returns the number of unconsumed snapshots.
func (r *Registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Forget removes a store from the directory. Persistent stores are never
// destroyed during a normal session; this exists for tests that simulate a
// module failing to re-register a store after a swap.
func (r *Registry) Forget(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, name)
}
