package reload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/favac/no-framework-starter/errors"
	"github.com/favac/no-framework-starter/runtime"
)

// ModuleLoader performs the unload and fetch-execute steps of a script
// update. Implementations must be safe for use from the engine's message
// loop.
type ModuleLoader interface {
	// Unload discards the previous instantiation of the module, if any.
	Unload(module string)

	// Load fetches the updated module with a cache-defeating parameter and
	// re-executes it. Top-level registrations (stores, views) run again as
	// a side effect.
	Load(ctx context.Context, module string, timestamp int64) error
}

// FactoryLoader is the default ModuleLoader: it verifies the updated source
// is fetchable from the dev server, then re-runs the module's registered
// factory, which is this runtime's equivalent of re-executing top-level
// module code.
type FactoryLoader struct {
	rt      *runtime.Runtime
	baseURL string
	client  *http.Client

	mu     sync.Mutex
	loaded map[string]int64 // module -> cache-bust stamp of current instantiation
}

// NewFactoryLoader creates a FactoryLoader. serverURL may be the ws://
// push-channel endpoint; it is rewritten to the http:// origin.
func NewFactoryLoader(rt *runtime.Runtime, serverURL string) *FactoryLoader {
	return &FactoryLoader{
		rt:      rt,
		baseURL: httpOrigin(serverURL),
		client:  &http.Client{Timeout: 10 * time.Second},
		loaded:  make(map[string]int64),
	}
}

// Unload forgets the module's previous instantiation.
func (l *FactoryLoader) Unload(module string) {
	l.mu.Lock()
	delete(l.loaded, module)
	l.mu.Unlock()
}

// Load fetches the module and re-runs its factory. A module with no
// registered factory is not componentized; its fetch still validates the
// update but execution is a no-op.
func (l *FactoryLoader) Load(ctx context.Context, module string, timestamp int64) error {
	if l.baseURL != "" {
		if err := l.fetch(ctx, module, timestamp); err != nil {
			return errors.ModuleFetch(module, err)
		}
	}

	if factory, ok := l.rt.Module(module); ok {
		if err := factory(l.rt); err != nil {
			return errors.ModuleExecute(module, err)
		}
	}

	l.mu.Lock()
	l.loaded[module] = timestamp
	l.mu.Unlock()
	return nil
}

func (l *FactoryLoader) fetch(ctx context.Context, module string, timestamp int64) error {
	target := fmt.Sprintf("%s%s?t=%d", l.baseURL, module, timestamp)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

// httpOrigin rewrites a ws(s):// endpoint URL to its http(s):// origin.
func httpOrigin(serverURL string) string {
	if serverURL == "" {
		return ""
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return ""
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = ""
	u.RawQuery = ""
	return strings.TrimSuffix(u.String(), "/")
}
