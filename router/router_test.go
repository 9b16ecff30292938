package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favac/no-framework-starter/dom"
)

func TestNavigateNotifiesListeners(t *testing.T) {
	r := New()
	r.Register("home", func() (dom.Node, error) {
		return dom.Text("home"), nil
	})

	var seen []string
	unsubscribe := r.Subscribe(func(route string) { seen = append(seen, route) })
	defer unsubscribe()

	require.NoError(t, r.Navigate("home"))

	assert.Equal(t, "home", r.Current())
	assert.Equal(t, []string{"home"}, seen)
}

func TestNavigateUnknownRoute(t *testing.T) {
	r := New()
	err := r.Navigate("nowhere")
	require.Error(t, err)
	assert.Equal(t, "", r.Current())
}

func TestRegisterReplacesHandler(t *testing.T) {
	r := New()
	r.Register("home", func() (dom.Node, error) { return dom.Text("old"), nil })
	r.Register("home", func() (dom.Node, error) { return dom.Text("new"), nil })

	h, ok := r.Lookup("home")
	require.True(t, ok)
	node, err := h()
	require.NoError(t, err)
	assert.Equal(t, "new", node.HTML())
}
