// Package watcher observes a project tree for source changes and emits
// categorized change events for the update pipeline.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/moby/patternmatcher"
	"github.com/sirupsen/logrus"

	"github.com/favac/no-framework-starter/logging"
	"github.com/favac/no-framework-starter/protocol"
)

// DefaultIgnore is the ignore set applied when the config provides none.
var DefaultIgnore = []string{".git", "node_modules", "dist"}

// Watcher monitors a directory tree recursively and emits one ChangeEvent
// per detected modification. Rapid repeated writes to the same file are
// debounced per file; events for ignored paths are dropped.
type Watcher struct {
	fsw      *fsnotify.Watcher
	matcher  *patternmatcher.PatternMatcher
	root     string
	events   chan protocol.ChangeEvent
	debounce time.Duration
	logger   *logrus.Entry

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// New creates a Watcher over root. Every directory under root is watched,
// excluding those matching the ignore patterns. The debounce window controls
// how quickly repeated writes to the same file collapse; values <= 0 fall
// back to 100ms.
func New(root string, ignore []string, debounce time.Duration) (*Watcher, error) {
	if len(ignore) == 0 {
		ignore = DefaultIgnore
	}
	matcher, err := patternmatcher.New(ignore)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}

	w := &Watcher{
		fsw:      fsw,
		matcher:  matcher,
		root:     root,
		events:   make(chan protocol.ChangeEvent, 64),
		debounce: debounce,
		logger:   logging.NewLogger("watcher"),
		lastSeen: make(map[string]time.Time),
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Events returns the channel of change events. The channel is closed when
// the watcher stops.
func (w *Watcher) Events() <-chan protocol.ChangeEvent {
	return w.events
}

// Start runs the watch loop. It blocks until the context is cancelled or the
// underlying watcher shuts down; individual file errors never stop it.
func (w *Watcher) Start(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.fsw.Close()
			return
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Rename-based atomic saves surface as Create (new file moved into
	// place) or Rename; treat all three as a modification.
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

	if w.ignored(event.Name) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// The file may have been removed between the event and the stat
		// (temp files from atomic saves). Log and drop this one event.
		w.logger.WithError(err).Debugf("Dropping event for %s", event.Name)
		return
	}

	// New directories need their own watch so the tree stays covered.
	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.addTree(event.Name); err != nil {
				w.logger.WithError(err).Warnf("Failed to watch new directory %s", event.Name)
			}
		}
		return
	}

	if !w.admit(event.Name) {
		return
	}

	ev := protocol.ChangeEvent{
		Path: event.Name,
		Kind: protocol.KindOf(event.Name),
		Time: time.Now(),
	}

	select {
	case w.events <- ev:
	default:
		w.logger.Warnf("Event queue full, dropping change for %s", event.Name)
	}
}

// admit applies the per-file debounce window.
func (w *Watcher) admit(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if last, ok := w.lastSeen[path]; ok && now.Sub(last) < w.debounce {
		w.logger.Debugf("Debounced: %s (only %v since last change)", filepath.Base(path), now.Sub(last))
		return false
	}
	w.lastSeen[path] = now
	return true
}

// ignored reports whether path falls under an ignore pattern.
func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	matched, err := w.matcher.MatchesOrParentMatches(filepath.ToSlash(rel))
	if err != nil {
		w.logger.WithError(err).Debugf("Ignore match failed for %s", rel)
		return false
	}
	return matched
}

// addTree registers dir and all non-ignored subdirectories with the
// underlying watcher.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.logger.WithError(err).Warnf("Skipping unreadable path %s", path)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.WithError(err).Warnf("Failed to watch %s", path)
		}
		return nil
	})
}
