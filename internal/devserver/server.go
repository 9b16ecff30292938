// Package devserver is the development file server: it serves the project
// tree, injects the reload bootstrap into HTML pages, and pushes file-change
// notifications to connected clients.
package devserver

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/favac/no-framework-starter/config"
	"github.com/favac/no-framework-starter/internal/hub"
	"github.com/favac/no-framework-starter/internal/watcher"
	"github.com/favac/no-framework-starter/logging"
	"github.com/favac/no-framework-starter/protocol"
)

// Server ties together the watcher, the classifier, the broadcast hub and
// the static file handler.
type Server struct {
	cfg     *config.Config
	hub     *hub.Hub
	watcher *watcher.Watcher
	httpSrv *http.Server
	logger  *logrus.Entry
}

// New creates a Server for the given configuration.
func New(cfg *config.Config) (*Server, error) {
	w, err := watcher.New(cfg.Root, cfg.Watch.Ignore, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Server{
		cfg:     cfg,
		hub:     hub.New(),
		watcher: w,
		logger:  logging.NewLogger("devserver"),
	}, nil
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/__hmr/client.js", s.handleClientJS)
	mux.Handle("/__hmr", s.hub.Handler())
	mux.HandleFunc("/", s.handleStatic)
	return mux
}

// Run starts the watcher, the update pump and the HTTP server, then blocks
// until the context is cancelled. Shutdown order: watcher, hub, HTTP server.
func (s *Server) Run(ctx context.Context) error {
	go s.watcher.Start(ctx)
	go s.pump(ctx)

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler()}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpSrv.Serve(listener)
	}()

	s.logger.WithFields(logrus.Fields{
		"addr": addr,
		"root": s.cfg.Root,
	}).Info("Dev server listening")

	select {
	case <-ctx.Done():
		s.shutdown()
		<-errCh
		return nil
	case err := <-errCh:
		s.shutdown()
		return err
	}
}

func (s *Server) shutdown() {
	s.logger.Info("Shutting down")
	s.watcher.Close()
	s.hub.Close()
	if s.httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpSrv.Shutdown(shutdownCtx)
	}
}

// pump forwards classified change events to the broadcast hub. Every change
// event produces at most one outbound message; unrecognized kinds produce
// none.
func (s *Server) pump(ctx context.Context) {
	for {
		select {
		case ev, ok := <-s.watcher.Events():
			if !ok {
				return
			}
			msg, send := protocol.Classify(s.cfg.Root, ev)
			if !send {
				s.logger.Debugf("Ignoring change: %s", ev.Path)
				continue
			}
			s.logger.WithFields(logrus.Fields{
				"type": msg.Type,
				"path": ev.Path,
			}).Info("Change detected")
			s.hub.Broadcast(msg)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleClientJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(clientJS)
}

// handleStatic serves files under the project root. HTML documents get the
// reload bootstrap injected; cache-busting query parameters are accepted and
// ignored for file lookup.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	urlPath := filepath.Clean("/" + strings.TrimPrefix(r.URL.Path, "/"))
	target := filepath.Join(s.cfg.Root, filepath.FromSlash(urlPath))

	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		target = filepath.Join(target, "index.html")
		_, err = os.Stat(target)
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}

	data, err := os.ReadFile(target)
	if err != nil {
		s.logger.WithError(err).Errorf("Failed to read %s", target)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	ext := filepath.Ext(target)
	ctype := mime.TypeByExtension(ext)
	if ctype == "" {
		ctype = http.DetectContentType(data)
	}

	if ext == ".html" || ext == ".htm" {
		data = InjectBootstrap(data)
	}

	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}
