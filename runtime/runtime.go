// Package runtime holds the process-wide registries that must survive a
// module hot-swap: the persistent-store directory, the cleanup registry, the
// view registry, and the module factories that stand in for re-executable
// top-level module code.
//
// A Runtime is created once per page/process session and never torn down
// until a full reload. It is passed explicitly to whatever needs it rather
// than accessed as an ambient global.
package runtime

import (
	"path"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/favac/no-framework-starter/dom"
	"github.com/favac/no-framework-starter/errors"
	"github.com/favac/no-framework-starter/logging"
	"github.com/favac/no-framework-starter/store"
)

// RenderFunc produces the current DOM for a view.
type RenderFunc func() dom.Node

// ModuleFactory is a module's re-executable top level: it re-registers the
// module's stores and views against the Runtime. Hot-swapping a module means
// running its factory again.
type ModuleFactory func(rt *Runtime) error

// Runtime owns the registries shared across module instantiations.
type Runtime struct {
	Stores *store.Registry

	mu        sync.Mutex
	cleanups  []func()
	views     map[string]RenderFunc
	factories map[string]ModuleFactory
	logger    *logrus.Entry
}

// New creates a Runtime with an empty store directory.
func New() *Runtime {
	return &Runtime{
		Stores:    store.NewRegistry(),
		views:     make(map[string]RenderFunc),
		factories: make(map[string]ModuleFactory),
		logger:    logging.NewLogger("runtime"),
	}
}

// OnCleanup appends a teardown callback to the cleanup registry. Application
// code registers subscriptions and timers here so they can be released
// before the owning module is hot-swapped.
func (rt *Runtime) OnCleanup(fn func()) {
	if fn == nil {
		return
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.cleanups = append(rt.cleanups, fn)
}

// RunCleanups invokes every registered cleanup in insertion order, then
// clears the registry. A panicking callback is logged and does not block
// the others. Returns the number of callbacks run.
func (rt *Runtime) RunCleanups() int {
	rt.mu.Lock()
	pending := rt.cleanups
	rt.cleanups = nil
	rt.mu.Unlock()

	for i, fn := range pending {
		func() {
			defer func() {
				if r := recover(); r != nil {
					rt.logger.Warnf("Cleanup callback %d panicked: %v", i, r)
				}
			}()
			fn()
		}()
	}
	return len(pending)
}

// CleanupCount returns the number of pending cleanup callbacks.
func (rt *Runtime) CleanupCount() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.cleanups)
}

// RegisterView installs a view's render function under its identifier.
// Modules call this from their factory; re-running the factory after a swap
// re-registers the fresh function under the same name.
func (rt *Runtime) RegisterView(name string, render RenderFunc) error {
	if name == "" {
		return errors.InvalidView("name must be a non-empty string")
	}
	if render == nil {
		return errors.InvalidView("render function must not be nil")
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.views[name] = render
	return nil
}

// View returns the render function registered for a view identifier.
func (rt *Runtime) View(name string) (RenderFunc, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	fn, ok := rt.views[name]
	return fn, ok
}

// RegisterModule installs the factory for a module path (root-relative web
// path, as carried in hmr:update messages).
func (rt *Runtime) RegisterModule(modulePath string, factory ModuleFactory) {
	rt.mu.Lock()
	rt.factories[modulePath] = factory
	rt.mu.Unlock()
}

// Module returns the factory registered for a module path.
func (rt *Runtime) Module(modulePath string) (ModuleFactory, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	f, ok := rt.factories[modulePath]
	return f, ok
}

// LoadModule runs a module's factory for the first time, registering it
// under modulePath so later hot-updates can re-execute it.
func (rt *Runtime) LoadModule(modulePath string, factory ModuleFactory) error {
	rt.RegisterModule(modulePath, factory)
	return factory(rt)
}

// ViewNameFor derives a view identifier from a module path: the file's base
// name without extension, matching how views register themselves.
func ViewNameFor(modulePath string) string {
	base := path.Base(modulePath)
	return strings.TrimSuffix(base, path.Ext(base))
}
