// Package reload implements the client side of the hot-update protocol: a
// state machine that receives wire messages, snapshots store state, swaps
// the affected module, restores state, and re-renders the active view.
package reload

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/favac/no-framework-starter/dom"
	"github.com/favac/no-framework-starter/logging"
	"github.com/favac/no-framework-starter/protocol"
	"github.com/favac/no-framework-starter/router"
	"github.com/favac/no-framework-starter/runtime"
)

// State is the engine's connection state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnected
	StateReloading
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReloading:
		return "reloading"
	}
	return "idle"
}

// DefaultRetryDelay is the fixed pause between reconnection attempts.
const DefaultRetryDelay = time.Second

// Options configures an Engine.
type Options struct {
	// ServerURL is the push-channel endpoint, e.g. "ws://localhost:4173/__hmr".
	ServerURL string

	// Runtime owns the registries the hot-swap procedure operates on.
	Runtime *runtime.Runtime

	// Router is the secondary source for locating the active view's render
	// function when the view registry has no entry. Optional.
	Router *router.Router

	// Root is the container the active view is re-rendered into. Optional;
	// without it the re-render step only invokes the render function.
	Root *dom.Element

	// Styles receives css:update swaps. Optional.
	Styles *dom.Stylesheets

	// Loader performs the unload/fetch/execute steps of a script update.
	// Defaults to a loader that fetches over HTTP and re-runs the module's
	// registered factory.
	Loader ModuleLoader

	// ReloadPage is invoked on full-reload messages.
	ReloadPage func()

	// ActiveView names the currently active view. Defaults to the router's
	// current route.
	ActiveView func() string

	// RetryDelay overrides DefaultRetryDelay.
	RetryDelay time.Duration
}

// Engine is one client's reload state machine. Multiple clients each run an
// independent Engine driven by the same broadcast; there is no cross-client
// coordination.
type Engine struct {
	opts   Options
	loader ModuleLoader
	logger *logrus.Entry
	dialer *websocket.Dialer
	state  atomic.Int32

	// token serializes overlapping script updates: a reload whose token has
	// been superseded skips its restore and re-render phases.
	token atomic.Int64
}

// New creates an Engine. Runtime is required.
func New(opts Options) *Engine {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	loader := opts.Loader
	if loader == nil {
		loader = NewFactoryLoader(opts.Runtime, opts.ServerURL)
	}
	return &Engine{
		opts:   opts,
		loader: loader,
		logger: logging.NewLogger("reload"),
		dialer: websocket.DefaultDialer,
	}
}

// State returns the engine's current connection state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Run opens the push channel and processes messages until the context is
// cancelled. Unexpected disconnects trigger reconnection after a fixed
// delay, indefinitely, for the life of the client.
func (e *Engine) Run(ctx context.Context) {
	for {
		e.setState(StateConnecting)
		conn, _, err := e.dialer.DialContext(ctx, e.opts.ServerURL, nil)
		if err != nil {
			e.logger.WithError(err).Debug("Connection attempt failed")
			if !e.pause(ctx) {
				e.setState(StateIdle)
				return
			}
			continue
		}

		e.setState(StateConnected)
		e.logger.Info("Connected to dev server")
		e.readLoop(ctx, conn)
		conn.Close()

		if ctx.Err() != nil {
			e.setState(StateIdle)
			return
		}
		e.logger.Warn("Connection lost, reconnecting")
		if !e.pause(ctx) {
			e.setState(StateIdle)
			return
		}
	}
}

// pause waits one retry delay; it returns false when the context ended.
func (e *Engine) pause(ctx context.Context) bool {
	select {
	case <-time.After(e.opts.RetryDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msg, err := protocol.Decode(data)
		if err != nil {
			e.logger.WithError(err).Warn("Discarding malformed frame")
			continue
		}
		e.Handle(context.Background(), msg)
	}
}

// Handle dispatches a single wire message. A disconnect after the message
// has been received does not affect the in-flight reload; the swap procedure
// does not depend on the socket.
func (e *Engine) Handle(ctx context.Context, msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeScriptUpdate:
		e.setState(StateReloading)
		if err := e.applyScriptUpdate(ctx, msg); err != nil {
			e.logger.WithField("module", msg.Module).WithError(err).Error("Hot update failed")
		}
		e.setState(StateConnected)
	case protocol.TypeStyleUpdate:
		e.applyStyleUpdate(msg)
	case protocol.TypeFullReload:
		e.logger.Info("Full reload requested")
		if e.opts.ReloadPage != nil {
			e.opts.ReloadPage()
		}
	default:
		e.logger.WithField("type", msg.Type).Warn("Unknown message type")
	}
}

// applyScriptUpdate executes the hot-swap procedure, strictly in order:
// snapshot, cleanup, unload the previous instantiation, fetch and re-execute
// the module, restore snapshotted state, re-render the active view.
//
// A fetch or execution failure short-circuits before restore: the pending
// snapshot is kept for the next successful reload and the previous DOM and
// module instance stay in effect.
func (e *Engine) applyScriptUpdate(ctx context.Context, msg protocol.Message) error {
	rt := e.opts.Runtime
	token := e.token.Add(1)

	// a. Snapshot every persistent store.
	captured := rt.Stores.Snapshot()
	e.logger.WithFields(logrus.Fields{
		"module": msg.Module,
		"stores": captured,
	}).Debug("Snapshot taken")

	// b. Drain the cleanup registry.
	rt.RunCleanups()

	// c. Unmount the previous instantiation.
	e.loader.Unload(msg.Module)

	// d. Fetch and re-execute with cache busting.
	if err := e.loader.Load(ctx, msg.Module, msg.Timestamp); err != nil {
		// Leave the pending snapshot in place; a later successful reload
		// consumes it. No restore, no re-render.
		return err
	}

	// A newer update superseded this one mid-flight: let it own the restore
	// and re-render phases.
	if e.token.Load() != token {
		e.logger.WithField("module", msg.Module).Debug("Reload superseded, skipping restore")
		return nil
	}

	// e. Restore snapshotted state into the re-created stores.
	restored := rt.Stores.Restore()
	e.logger.WithField("stores", restored).Debug("Snapshot restored")

	// f. Re-render the currently active view, if there is one.
	e.renderActiveView()
	return nil
}

// renderActiveView locates the active view's render function, first in the
// view registry, then in the route table. Not finding one is normal: some
// modules are not views.
func (e *Engine) renderActiveView() {
	name := e.activeViewName()
	if name == "" {
		return
	}

	if render, ok := e.opts.Runtime.View(name); ok {
		e.mount(render())
		return
	}

	if e.opts.Router != nil {
		if handler, ok := e.opts.Router.Lookup(name); ok {
			node, err := handler()
			if err != nil {
				e.logger.WithField("view", name).WithError(err).Error("Route handler failed")
				return
			}
			e.mount(node)
			return
		}
	}

	e.logger.WithField("view", name).Debug("No render function found")
}

func (e *Engine) activeViewName() string {
	if e.opts.ActiveView != nil {
		return e.opts.ActiveView()
	}
	if e.opts.Router != nil {
		return e.opts.Router.Current()
	}
	return ""
}

func (e *Engine) mount(node dom.Node) {
	if e.opts.Root != nil {
		dom.Mount(e.opts.Root, node)
	}
}

// applyStyleUpdate swaps every stylesheet link containing the URL for a
// cache-busted replacement, insert-then-remove so there is no unstyled
// flash.
func (e *Engine) applyStyleUpdate(msg protocol.Message) {
	if e.opts.Styles == nil {
		return
	}
	swapped := e.opts.Styles.Swap(msg.URL, msg.Timestamp)
	e.logger.WithFields(logrus.Fields{
		"url":   msg.URL,
		"links": swapped,
	}).Info("Stylesheet refreshed")
}
