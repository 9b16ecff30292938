// Package store provides observable state containers for the dev toolkit.
//
// A Store holds a single state value that is replaced wholesale on every
// update; listeners and fine-grained key bindings are notified whenever the
// value actually changes. Named stores live in a Registry (see registry.go)
// so their state can survive a module hot-swap.
package store

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/favac/no-framework-starter/logging"
)

// Updater transforms the current state into the next state. Set and Update
// accept an Updater in place of a plain value.
type Updater func(current interface{}) interface{}

// Listener receives the full new state after every change.
type Listener func(state interface{})

// Store is a mutable container of arbitrary state with pub/sub semantics.
// All methods are safe for concurrent use. Notifications run outside the
// store's lock, so listeners may call back into the store.
type Store struct {
	mu        sync.Mutex
	name      string
	state     interface{}
	listeners map[int]Listener
	nextID    int
	bindings  map[string][]*Binding
	logger    *logrus.Entry
}

// New creates an anonymous store with the given initial state.
func New(initial interface{}) *Store {
	return newStore("", initial)
}

func newStore(name string, initial interface{}) *Store {
	return &Store{
		name:      name,
		state:     initial,
		listeners: make(map[int]Listener),
		bindings:  make(map[string][]*Binding),
		logger:    logging.NewLogger("store"),
	}
}

// Name returns the store's registry name, or "" for anonymous stores.
func (s *Store) Name() string {
	return s.name
}

// Get returns the current state. No side effects.
func (s *Store) Get() interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Set replaces the state. If value is an Updater (or a bare
// func(interface{}) interface{}), it is invoked with the current state and
// must return the new state. Setting a value reference-equal to the current
// state is a no-op: no listener or binding is notified.
//
// Notification order: bindings whose key's value changed first, then all
// whole-state listeners, then the optional after callbacks.
func (s *Store) Set(value interface{}, after ...func(state interface{})) {
	s.set(value, false, after...)
}

// ForceSet replaces the state and always notifies, even when the new value is
// reference-equal to the old one. Used by the registry's snapshot restore,
// which must push the restored value through every binding and listener.
func (s *Store) ForceSet(value interface{}) {
	s.set(value, true)
}

// Update shallow-merges a partial map (or the map returned by an Updater)
// into the current state, which must itself be a map. Notification semantics
// match Set.
func (s *Store) Update(patch interface{}, after ...func(state interface{})) {
	s.set(func(current interface{}) interface{} {
		p := patch
		if fn := asUpdater(patch); fn != nil {
			p = fn(current)
		}
		return merge(current, p)
	}, false, after...)
}

func (s *Store) set(value interface{}, force bool, after ...func(state interface{})) {
	s.mu.Lock()

	next := value
	if fn := asUpdater(value); fn != nil {
		next = fn(s.state)
	}

	if !force && same(s.state, next) {
		s.mu.Unlock()
		return
	}

	prev := s.state
	s.state = next

	// Collect deliveries under the lock, run them outside it.
	changed := s.collectBindingDeliveries(prev, next, force)
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, d := range changed {
		s.deliver(func() { d.binding.Apply(d.value) })
	}
	for _, fn := range listeners {
		fn := fn
		s.deliver(func() { fn(next) })
	}
	for _, fn := range after {
		fn(next)
	}
}

// deliver runs a single notification, isolating panics so one failing
// listener cannot block the others.
func (s *Store) deliver(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("store", s.name).Warnf("listener panicked: %v", r)
		}
	}()
	fn()
}

// Subscribe registers fn to be called with the new state on every future
// change. It returns an unsubscribe function; calling it more than once is
// harmless.
func (s *Store) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func asUpdater(v interface{}) Updater {
	switch fn := v.(type) {
	case Updater:
		return fn
	case func(interface{}) interface{}:
		return fn
	}
	return nil
}

// merge shallow-merges patch into current when both are string-keyed maps,
// producing a new map. A non-map current is replaced by the patch.
func merge(current, patch interface{}) interface{} {
	cur, curOK := current.(map[string]interface{})
	pat, patOK := patch.(map[string]interface{})
	if !patOK {
		return patch
	}

	next := make(map[string]interface{}, len(cur)+len(pat))
	if curOK {
		for k, v := range cur {
			next[k] = v
		}
	}
	for k, v := range pat {
		next[k] = v
	}
	return next
}

// same reports whether two state values are identical by reference (for
// maps, slices, pointers, funcs and channels) or by value for comparable
// kinds. This mirrors the equality-skip contract: replacing state with the
// very same object must not re-notify.
func same(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Slice:
		if va.Len() != vb.Len() {
			return false
		}
		if va.Len() == 0 {
			return true
		}
		return va.Pointer() == vb.Pointer()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}

	if !va.Comparable() {
		return false
	}
	return a == b
}
