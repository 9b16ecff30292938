package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/favac/no-framework-starter/dom"
	deverrors "github.com/favac/no-framework-starter/errors"
)

func TestRunCleanupsInInsertionOrder(t *testing.T) {
	rt := New()

	var order []string
	rt.OnCleanup(func() { order = append(order, "first") })
	rt.OnCleanup(func() { order = append(order, "second") })

	assert.Equal(t, 2, rt.RunCleanups())
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, 0, rt.CleanupCount(), "registry is cleared after draining")
}

func TestRunCleanupsPanicIsolation(t *testing.T) {
	rt := New()

	ran := false
	rt.OnCleanup(func() { panic("boom") })
	rt.OnCleanup(func() { ran = true })

	assert.Equal(t, 2, rt.RunCleanups())
	assert.True(t, ran, "a failing cleanup must not block the others")
}

func TestRegisterViewValidation(t *testing.T) {
	rt := New()

	err := rt.RegisterView("", func() dom.Node { return dom.Text("x") })
	require.Error(t, err)
	assert.True(t, deverrors.Is(err, deverrors.ErrCodeInvalidView))

	err = rt.RegisterView("home", nil)
	require.Error(t, err)
	assert.True(t, deverrors.Is(err, deverrors.ErrCodeInvalidView))
}

func TestReRegisterViewReplacesRenderFunc(t *testing.T) {
	rt := New()

	require.NoError(t, rt.RegisterView("home", func() dom.Node { return dom.Text("old") }))
	require.NoError(t, rt.RegisterView("home", func() dom.Node { return dom.Text("new") }))

	render, ok := rt.View("home")
	require.True(t, ok)
	assert.Equal(t, "new", render().HTML())
}

func TestLoadModuleRegistersFactory(t *testing.T) {
	rt := New()

	runs := 0
	err := rt.LoadModule("/js/views/home.js", func(rt *Runtime) error {
		runs++
		return rt.RegisterView("home", func() dom.Node { return dom.Text("home") })
	})
	require.NoError(t, err)
	require.Equal(t, 1, runs)

	factory, ok := rt.Module("/js/views/home.js")
	require.True(t, ok)
	require.NoError(t, factory(rt))
	assert.Equal(t, 2, runs, "the registered factory re-executes the module")
}

func TestViewNameFor(t *testing.T) {
	assert.Equal(t, "home", ViewNameFor("/js/views/home.js"))
	assert.Equal(t, "about", ViewNameFor("about.mjs"))
	assert.Equal(t, "main", ViewNameFor("/main"))
}
