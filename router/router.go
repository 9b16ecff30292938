// Package router maps route names to view handlers and tracks the current
// navigation location. The reload engine reads this table as a fallback for
// locating render functions; it never writes to it.
package router

import (
	"fmt"
	"sync"

	"github.com/favac/no-framework-starter/dom"
)

// Handler produces the view for a route. Handlers take no arguments; any
// state they need lives in stores.
type Handler func() (dom.Node, error)

// Router is a named route table plus the current location.
type Router struct {
	mu        sync.Mutex
	routes    map[string]Handler
	current   string
	listeners map[int]func(route string)
	nextID    int
}

// New creates an empty router.
func New() *Router {
	return &Router{
		routes:    make(map[string]Handler),
		listeners: make(map[int]func(string)),
	}
}

// Register installs the handler for a route name, replacing any previous
// registration under the same name.
func (r *Router) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[name] = h
}

// Lookup returns the handler for a route name.
func (r *Router) Lookup(name string) (Handler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.routes[name]
	return h, ok
}

// Navigate updates the current location and notifies listeners.
func (r *Router) Navigate(name string) error {
	r.mu.Lock()
	if _, ok := r.routes[name]; !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown route: %s", name)
	}
	r.current = name
	listeners := make([]func(string), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(name)
	}
	return nil
}

// Current returns the current route name, or "" before first navigation.
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Subscribe registers a navigation listener and returns an unsubscribe
// function.
func (r *Router) Subscribe(fn func(route string)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, id)
	}
}
