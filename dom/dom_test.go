package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHRendersTree(t *testing.T) {
	node := H("div", map[string]string{"class": "card"},
		H("h1", nil, Text("Hello")),
		Fragment(Text("a"), Text("b")),
	)

	assert.Equal(t, `<div class="card"><h1>Hello</h1>ab</div>`, node.HTML())
}

func TestMountReplacesChildren(t *testing.T) {
	body := NewRoot("body")

	first := H("p", nil, Text("first"))
	Mount(body, first)
	require.Equal(t, "<body><p>first</p></body>", body.HTML())
	assert.True(t, first.Attached())

	second := H("p", nil, Text("second"))
	Mount(body, second)
	assert.Equal(t, "<body><p>second</p></body>", body.HTML())
	assert.True(t, second.Attached())
	assert.False(t, first.Attached(), "previous tree is detached on remount")
}

func TestTextNodeAttachment(t *testing.T) {
	body := NewRoot("body")
	txt := Text("count: 0")
	Mount(body, H("span", nil, txt))

	require.True(t, txt.Attached())
	txt.Set("count: 1")
	assert.Equal(t, "<body><span>count: 1</span></body>", body.HTML())

	Clear(body)
	assert.False(t, txt.Attached())
}

func TestStylesheetSwapOrder(t *testing.T) {
	sheets := NewStylesheets("/css/app.css", "/css/theme.css")

	swapped := sheets.Swap("/css/app.css", 1699999999000)

	require.Equal(t, 1, swapped)
	hrefs := sheets.Hrefs()
	require.Len(t, hrefs, 2)
	assert.Equal(t, "/css/app.css?t=1699999999000", hrefs[0], "replacement takes the original's position")
	assert.Equal(t, "/css/theme.css", hrefs[1])
}

func TestStylesheetSwapNoMatch(t *testing.T) {
	sheets := NewStylesheets("/css/app.css")
	assert.Equal(t, 0, sheets.Swap("/css/missing.css", 1))
	assert.Equal(t, []string{"/css/app.css"}, sheets.Hrefs())
}
