package renderer

import (
	"context"
	"sync/atomic"

	"github.com/codecraft-ai/backend/internal/domain/renderer/sandbox"
)

// Mount is one rendered generation of a component: the document the client
// embeds, plus what the preflight run learned about it.
type Mount struct {
	Document   string
	Mirror     *Mirror
	Fault      *sandbox.Fault
	NotFound   bool
	Console    []sandbox.LogEntry
	Generation uint64
}

// Faulted reports whether the generated code failed during preflight.
func (m *Mount) Faulted() bool { return m.Fault != nil }

// Renderer builds sandbox documents and runs the server-side preflight. A
// nil pool disables preflight: the document still carries its own fault
// barrier, the server just loses early detection and the selector mirror.
type Renderer struct {
	pool   *sandbox.Pool
	docCfg DocumentConfig
	gen    atomic.Uint64
}

func New(pool *sandbox.Pool, docCfg DocumentConfig) *Renderer {
	return &Renderer{pool: pool, docCfg: docCfg}
}

// Mount renders a component body and stylesheet into a new generation.
// Preflight failures are reported on the Mount, not as errors: a component
// that crashes still produces a servable document whose barrier shows the
// failure in place.
func (r *Renderer) Mount(ctx context.Context, body, style string) (*Mount, error) {
	document, err := BuildDocument(r.docCfg, body, style)
	if err != nil {
		return nil, err
	}

	mount := &Mount{
		Document:   document,
		Generation: r.gen.Add(1),
	}

	if r.pool == nil || !r.pool.CanTranspile() {
		return mount, nil
	}

	result, err := r.pool.Render(ctx, body, true)
	if err != nil {
		return nil, err
	}

	mount.Console = result.Console
	mount.Fault = result.Fault
	mount.NotFound = result.NotFound

	if result.Fault == nil && !result.NotFound {
		mirror, err := NewMirror(result.Root)
		if err != nil {
			return nil, err
		}
		mount.Mirror = mirror
	}
	return mount, nil
}
