package protocol

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMapping(t *testing.T) {
	root := filepath.Join("/", "project")
	now := time.UnixMilli(1699999999000)

	tests := []struct {
		name     string
		path     string
		wantType string
		wantPath string
		wantSent bool
	}{
		{
			name:     "stylesheet",
			path:     filepath.Join(root, "css", "app.css"),
			wantType: TypeStyleUpdate,
			wantPath: "/css/app.css",
			wantSent: true,
		},
		{
			name:     "view module",
			path:     filepath.Join(root, "js", "views", "home.js"),
			wantType: TypeScriptUpdate,
			wantPath: "/js/views/home.js",
			wantSent: true,
		},
		{
			name:     "markup",
			path:     filepath.Join(root, "index.html"),
			wantType: TypeFullReload,
			wantSent: true,
		},
		{
			name:     "unrecognized extension",
			path:     filepath.Join(root, "README.md"),
			wantSent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := ChangeEvent{Path: tt.path, Kind: KindOf(tt.path), Time: now}
			msg, ok := Classify(root, ev)
			require.Equal(t, tt.wantSent, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantType, msg.Type)
			assert.Equal(t, now.UnixMilli(), msg.Timestamp)
			switch msg.Type {
			case TypeScriptUpdate:
				assert.Equal(t, tt.wantPath, msg.Module)
			case TypeStyleUpdate:
				assert.Equal(t, tt.wantPath, msg.URL)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindScript, KindOf("a/b.js"))
	assert.Equal(t, KindScript, KindOf("a/b.MJS"))
	assert.Equal(t, KindStylesheet, KindOf("styles.css"))
	assert.Equal(t, KindMarkup, KindOf("index.htm"))
	assert.Equal(t, KindOther, KindOf("notes.txt"))
	assert.Equal(t, KindOther, KindOf("Makefile"))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := ScriptUpdate("/js/views/home.js", time.UnixMilli(1699999999000))

	data, err := msg.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"hmr:update","module":"/js/views/home.js","timestamp":1699999999000}`, string(data))

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}
