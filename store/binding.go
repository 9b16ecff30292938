package store

import (
	"github.com/favac/no-framework-starter/errors"
)

// Binding wires a single render target (typically one DOM text node) to a
// single key of the store's state. Apply receives the key's new value; it is
// called once at registration time and again whenever the key's value
// changes by reference.
//
// Detached, when non-nil, reports that the target has left the document. A
// detached binding is unregistered lazily: it is dropped on the next update
// it would otherwise receive, not immediately on detach.
type Binding struct {
	Key      string
	Apply    func(value interface{})
	Detached func() bool
}

type bindingDelivery struct {
	binding *Binding
	value   interface{}
}

// Bind registers a fine-grained binding for a state key. The binding is
// synchronized to the current value immediately. It returns an unbind
// function; calling it more than once is harmless.
//
// A nil store, a nil or malformed binding, or an empty key is a usage error
// reported synchronously.
func (s *Store) Bind(key string, b *Binding) (func(), error) {
	if s == nil {
		return nil, errors.InvalidBinding("bind target is not a store")
	}
	if key == "" {
		return nil, errors.InvalidBinding("key must be a non-empty string")
	}
	if b == nil || b.Apply == nil {
		return nil, errors.InvalidBinding("binding must have an Apply function")
	}
	b.Key = key

	s.mu.Lock()
	s.bindings[key] = append(s.bindings[key], b)
	current := keyValue(s.state, key)
	s.mu.Unlock()

	// Immediate sync so the target does not wait for the next change.
	s.deliver(func() { b.Apply(current) })

	return func() { s.unbind(key, b) }, nil
}

func (s *Store) unbind(key string, b *Binding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.bindings[key][:0]
	for _, existing := range s.bindings[key] {
		if existing != b {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		delete(s.bindings, key)
	} else {
		s.bindings[key] = kept
	}
}

// collectBindingDeliveries gathers the bindings whose key's value changed
// between prev and next, pruning detached bindings along the way. Caller
// holds s.mu.
func (s *Store) collectBindingDeliveries(prev, next interface{}, force bool) []bindingDelivery {
	var out []bindingDelivery
	for key, list := range s.bindings {
		kept := list[:0]
		for _, b := range list {
			if b.Detached != nil && b.Detached() {
				continue // lazy cleanup on the update it would have received
			}
			kept = append(kept, b)
		}
		if len(kept) == 0 {
			delete(s.bindings, key)
			continue
		}
		s.bindings[key] = kept

		oldVal := keyValue(prev, key)
		newVal := keyValue(next, key)
		if !force && same(oldVal, newVal) {
			continue
		}
		for _, b := range kept {
			out = append(out, bindingDelivery{binding: b, value: newVal})
		}
	}
	return out
}

// keyValue extracts a single key from a map-shaped state. Non-map state has
// no addressable keys, so every binding sees nil.
func keyValue(state interface{}, key string) interface{} {
	m, ok := state.(map[string]interface{})
	if !ok {
		return nil
	}
	return m[key]
}
