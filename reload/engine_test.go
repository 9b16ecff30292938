package reload

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favac/no-framework-starter/dom"
	"github.com/favac/no-framework-starter/protocol"
	"github.com/favac/no-framework-starter/router"
	"github.com/favac/no-framework-starter/runtime"
)

// recordingLoader captures the order of unload/load operations and can fail
// on demand.
type recordingLoader struct {
	ops     *[]string
	loadErr error
	onLoad  func()
}

func (l *recordingLoader) Unload(module string) {
	*l.ops = append(*l.ops, "unload:"+module)
}

func (l *recordingLoader) Load(ctx context.Context, module string, timestamp int64) error {
	*l.ops = append(*l.ops, "load:"+module)
	if l.onLoad != nil {
		l.onLoad()
	}
	return l.loadErr
}

func scriptMsg(module string) protocol.Message {
	return protocol.ScriptUpdate(module, time.Now())
}

func TestCleanupRunsBeforeSwap(t *testing.T) {
	rt := runtime.New()
	var ops []string

	rt.OnCleanup(func() { ops = append(ops, "cleanup:first") })
	rt.OnCleanup(func() { ops = append(ops, "cleanup:second") })

	e := New(Options{
		Runtime: rt,
		Loader:  &recordingLoader{ops: &ops},
	})

	e.Handle(context.Background(), scriptMsg("/js/views/home.js"))

	assert.Equal(t, []string{
		"cleanup:first",
		"cleanup:second",
		"unload:/js/views/home.js",
		"load:/js/views/home.js",
	}, ops, "cleanups run in registration order, strictly before unload and load")
	assert.Equal(t, StateConnected, e.State())
}

func TestScriptUpdateRestoresStateAndRerenders(t *testing.T) {
	rt := runtime.New()
	rtr := router.New()
	root := dom.NewRoot("body")

	// Module factory: the re-executable top level of a view module. It
	// recreates the store (initial state zero) and re-registers the view.
	factory := func(rt *runtime.Runtime) error {
		counter := rt.Stores.CreatePersistent("counter", map[string]interface{}{"count": 0})
		return rt.RegisterView("home", func() dom.Node {
			count := counter.Get().(map[string]interface{})["count"]
			return dom.H("p", nil, dom.Text(strings.Repeat("*", count.(int))))
		})
	}
	require.NoError(t, rt.LoadModule("/js/views/home.js", factory))
	rtr.Register("home", func() (dom.Node, error) { return dom.Text(""), nil })
	require.NoError(t, rtr.Navigate("home"))

	// The running app accumulates state past the initial value.
	counter, ok := rt.Stores.Lookup("counter")
	require.True(t, ok)
	counter.Set(map[string]interface{}{"count": 3})

	e := New(Options{
		Runtime: rt,
		Router:  rtr,
		Root:    root,
		// No ServerURL: the default loader skips the HTTP fetch and just
		// re-runs the factory.
	})

	e.Handle(context.Background(), scriptMsg("/js/views/home.js"))

	assert.Equal(t, map[string]interface{}{"count": 3}, counter.Get(),
		"snapshotted state survives the factory re-run")
	assert.Equal(t, "<body><p>***</p></body>", root.HTML(),
		"the active view re-renders with restored state")
	assert.Equal(t, 0, rt.Stores.PendingCount())
}

func TestFetchFailureSkipsRestoreAndRerender(t *testing.T) {
	rt := runtime.New()
	root := dom.NewRoot("body")
	dom.Mount(root, dom.Text("stale but functional"))

	s := rt.Stores.CreatePersistent("counter", map[string]interface{}{"count": 5})

	notified := 0
	s.Subscribe(func(interface{}) { notified++ })

	var ops []string
	e := New(Options{
		Runtime:    rt,
		Root:       root,
		Loader:     &recordingLoader{ops: &ops, loadErr: errors.New("connection refused")},
		ActiveView: func() string { return "home" },
	})

	e.Handle(context.Background(), scriptMsg("/js/views/home.js"))

	// The snapshot stays pending for the next successful reload.
	pending, ok := rt.Stores.Pending("counter")
	require.True(t, ok)
	assert.Equal(t, map[string]interface{}{"count": 5}, pending)

	assert.Equal(t, 0, notified, "no restore step ran")
	assert.Equal(t, "<body>stale but functional</body>", root.HTML(), "prior DOM remains")
	assert.Equal(t, StateConnected, e.State(), "engine returns to connected")
}

func TestSupersededReloadSkipsRestore(t *testing.T) {
	rt := runtime.New()
	rt.Stores.CreatePersistent("counter", map[string]interface{}{"count": 1})

	var ops []string
	loader := &recordingLoader{ops: &ops}

	e := New(Options{Runtime: rt, Loader: loader})

	// A second update lands while the first load is still in flight. The
	// first reload must cede its restore phase to the newer one.
	second := scriptMsg("/js/views/home.js")
	fired := false
	loader.onLoad = func() {
		if !fired {
			fired = true
			e.Handle(context.Background(), second)
		}
	}

	e.Handle(context.Background(), scriptMsg("/js/views/home.js"))

	assert.Equal(t, 0, rt.Stores.PendingCount(), "the newer reload consumed the snapshot")
	assert.Len(t, ops, 4, "both reloads ran their unload/load phases")
}

func TestMissingViewIsNotAnError(t *testing.T) {
	rt := runtime.New()
	var ops []string

	e := New(Options{
		Runtime:    rt,
		Loader:     &recordingLoader{ops: &ops},
		ActiveView: func() string { return "not-a-view" },
	})

	e.Handle(context.Background(), scriptMsg("/js/lib/util.js"))
	assert.Equal(t, StateConnected, e.State())
}

func TestRouterFallbackRendersView(t *testing.T) {
	rt := runtime.New()
	rtr := router.New()
	root := dom.NewRoot("body")

	// The view registry has no entry, but the route table still knows how
	// to produce the view.
	rtr.Register("home", func() (dom.Node, error) {
		return dom.H("p", nil, dom.Text("from route table")), nil
	})
	require.NoError(t, rtr.Navigate("home"))

	var ops []string
	e := New(Options{
		Runtime: rt,
		Router:  rtr,
		Root:    root,
		Loader:  &recordingLoader{ops: &ops},
	})

	e.Handle(context.Background(), scriptMsg("/js/views/home.js"))

	assert.Equal(t, "<body><p>from route table</p></body>", root.HTML())
}

func TestStyleUpdateSwapsLinks(t *testing.T) {
	sheets := dom.NewStylesheets("/css/app.css", "/css/theme.css")
	rt := runtime.New()

	e := New(Options{Runtime: rt, Styles: sheets})

	msg := protocol.StyleUpdate("/css/app.css", time.UnixMilli(1699999999000))
	e.Handle(context.Background(), msg)

	hrefs := sheets.Hrefs()
	assert.Equal(t, "/css/app.css?t=1699999999000", hrefs[0])
	assert.Equal(t, "/css/theme.css", hrefs[1])
}

func TestFullReloadInvokesCallback(t *testing.T) {
	rt := runtime.New()
	reloaded := false

	e := New(Options{
		Runtime:    rt,
		ReloadPage: func() { reloaded = true },
	})

	e.Handle(context.Background(), protocol.FullReload(time.Now()))
	assert.True(t, reloaded)
}

func TestReconnectRetriesIndefinitely(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // Every dial to this address now fails.

	rt := runtime.New()
	e := New(Options{
		Runtime:    rt,
		ServerURL:  "ws" + strings.TrimPrefix(srv.URL, "http"),
		RetryDelay: 20 * time.Millisecond,
	})

	// Observe the state machine: after repeated dial failures it must still
	// be in the connecting state, retrying, for the life of the context.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, StateConnecting, e.State(), "engine keeps retrying after repeated failures")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop on context cancellation")
	}
	assert.Equal(t, StateIdle, e.State())
}

func TestRunReceivesPushedUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

	msg := protocol.FullReload(time.Now())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		data, _ := msg.Encode()
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}))
	defer srv.Close()

	rt := runtime.New()
	reloaded := make(chan struct{}, 1)
	e := New(Options{
		Runtime:    rt,
		ServerURL:  "ws" + strings.TrimPrefix(srv.URL, "http"),
		RetryDelay: 20 * time.Millisecond,
		ReloadPage: func() { reloaded <- struct{}{} },
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	select {
	case <-reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("pushed full-reload never reached the engine")
	}
}
