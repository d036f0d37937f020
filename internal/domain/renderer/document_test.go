package renderer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codecraft-ai/backend/internal/domain/renderer/sandbox"
)

func TestBuildDocument(t *testing.T) {
	doc, err := BuildDocument(DefaultDocumentConfig(),
		`function Component() { return <div id="x"/>; }`,
		`.card { width: 100%; }`)
	require.NoError(t, err)

	assert.Contains(t, doc, "<!DOCTYPE html>")
	assert.Contains(t, doc, `function Component() { return <div id="x"/>; }`)
	assert.Contains(t, doc, ".card { width: 100%; }")
	assert.Contains(t, doc, "unpkg.com/react@18")
	assert.Contains(t, doc, "unpkg.com/@babel/standalone")
	assert.Contains(t, doc, `<div id="root">`)
}

func TestBuildDocumentCarriesFaultBarrier(t *testing.T) {
	doc, err := BuildDocument(DefaultDocumentConfig(), "function Component(){return null}", "")
	require.NoError(t, err)

	assert.Contains(t, doc, "Runtime Error:")
	assert.Contains(t, doc, "Component() function not found")
}

func TestBuildDocumentSelectionBridge(t *testing.T) {
	doc, err := BuildDocument(DefaultDocumentConfig(), "function Component(){return null}", "")
	require.NoError(t, err)

	// Selector priority: id, then class chain, then tag.
	assert.Contains(t, doc, "if (el.id) selector = '#' + el.id;")
	assert.Contains(t, doc, "el.className.split(' ').join('.')")
	assert.Contains(t, doc, "el.tagName.toLowerCase()")
	assert.Contains(t, doc, "'element-select'")
	assert.Contains(t, doc, "'update-element-text'")
	// A stale selector applies to nothing and raises nothing.
	assert.Contains(t, doc, "if (el) el.innerText = event.data.text;")
}

func TestBuildDocumentLocalAssets(t *testing.T) {
	doc, err := BuildDocument(LocalDocumentConfig("/assets"), "function Component(){return null}", "")
	require.NoError(t, err)

	assert.Contains(t, doc, `src="/assets/react.js"`)
	assert.Contains(t, doc, `src="/assets/react-dom.js"`)
	assert.Contains(t, doc, `src="/assets/babel.js"`)
	assert.NotContains(t, doc, "unpkg.com")
}

func TestBuildDocumentStyleOrderPreserved(t *testing.T) {
	style := ".a { color: red; }\n#title { color: blue !important; }"
	doc, err := BuildDocument(DefaultDocumentConfig(), "function Component(){return null}", style)
	require.NoError(t, err)

	assert.Contains(t, doc, style, "appended override rules keep their relative order")
}

func TestRendererMountWithoutPreflight(t *testing.T) {
	r := New(nil, DefaultDocumentConfig())

	mount, err := r.Mount(context.Background(), "function Component(){return null}", "")
	require.NoError(t, err)

	assert.NotEmpty(t, mount.Document)
	assert.Nil(t, mount.Mirror)
	assert.False(t, mount.Faulted())
	assert.Equal(t, uint64(1), mount.Generation)

	second, err := r.Mount(context.Background(), "function Component(){return null}", "")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Generation, "generations are monotonic")
}

func TestRendererMountSkipsPreflightWithoutTranspiler(t *testing.T) {
	pool, err := sandbox.NewPool(1, sandbox.DefaultConfig(), "")
	require.NoError(t, err)
	defer pool.Close()

	r := New(pool, DefaultDocumentConfig())
	mount, err := r.Mount(context.Background(), "function Component(){return <div/>}", "")
	require.NoError(t, err)

	assert.False(t, mount.Faulted())
	assert.Nil(t, mount.Mirror)
}
