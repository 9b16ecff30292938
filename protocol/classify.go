package protocol

import (
	"path/filepath"
	"strings"
	"time"
)

// Kind is the file-extension-derived category of a change event.
type Kind int

const (
	KindOther Kind = iota
	KindScript
	KindStylesheet
	KindMarkup
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindStylesheet:
		return "stylesheet"
	case KindMarkup:
		return "markup"
	}
	return "other"
}

// ChangeEvent is a single filesystem notification, already categorized.
type ChangeEvent struct {
	Path string
	Kind Kind
	Time time.Time
}

// KindOf categorizes a path by extension.
func KindOf(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".mjs":
		return KindScript
	case ".css":
		return KindStylesheet
	case ".html", ".htm":
		return KindMarkup
	}
	return KindOther
}

// Classify maps a change event to at most one outbound wire message. Script
// changes become hmr:update, stylesheet changes css:update, markup changes
// full-reload; any other kind produces no message.
func Classify(root string, ev ChangeEvent) (Message, bool) {
	switch ev.Kind {
	case KindScript:
		return ScriptUpdate(WebPath(root, ev.Path), ev.Time), true
	case KindStylesheet:
		return StyleUpdate(WebPath(root, ev.Path), ev.Time), true
	case KindMarkup:
		return FullReload(ev.Time), true
	}
	return Message{}, false
}

// WebPath converts a filesystem path into a root-relative web path: leading
// slash, OS separators normalized to "/".
func WebPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	return "/" + strings.TrimPrefix(rel, "/")
}
