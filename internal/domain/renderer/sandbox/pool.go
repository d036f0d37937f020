package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Pool manages a set of warm runtimes. Creating a runtime is cheap but
// loading the transpiler into it is not, so runtimes are built once and
// reused across renders.
type Pool struct {
	runtimes chan *Runtime
	config   Config
	babelSrc string
	size     int
	closed   bool
	mu       sync.RWMutex
}

// NewPool creates a pool of warmed runtimes. babelSrc may be empty, in which
// case Transpile is unavailable and callers must supply pre-transpiled bodies.
func NewPool(size int, config Config, babelSrc string) (*Pool, error) {
	if size <= 0 {
		size = 4
	}

	p := &Pool{
		runtimes: make(chan *Runtime, size),
		config:   config,
		babelSrc: babelSrc,
		size:     size,
	}

	for i := 0; i < size; i++ {
		rt, err := p.newRuntime()
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("warm runtime %d: %w", i, err)
		}
		p.runtimes <- rt
	}

	return p, nil
}

func (p *Pool) newRuntime() (*Runtime, error) {
	rt, err := New(p.config)
	if err != nil {
		return nil, err
	}
	if p.babelSrc != "" {
		if err := rt.LoadBabel(p.babelSrc); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

// Acquire gets a runtime from the pool, waiting up to the context deadline.
func (p *Pool) Acquire(ctx context.Context) (*Runtime, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, ErrPoolClosed
	}
	p.mu.RUnlock()

	select {
	case rt := <-p.runtimes:
		return rt, nil
	case <-ctx.Done():
		return nil, ErrTimeout
	}
}

// Release returns a runtime to the pool. The runtime is reset first; if the
// reset fails it is discarded and replaced with a fresh one.
func (p *Pool) Release(rt *Runtime) {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	if closed {
		rt.Close()
		return
	}

	if err := rt.Reset(); err != nil {
		rt.Close()
		if fresh, ferr := p.newRuntime(); ferr == nil {
			rt = fresh
		} else {
			return
		}
	}

	select {
	case p.runtimes <- rt:
	default:
		rt.Close()
	}
}

// Render acquires a runtime, optionally transpiles, executes, and releases.
// This is the entry point the renderer uses.
func (p *Pool) Render(ctx context.Context, body string, transpile bool) (*Result, error) {
	acquireCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	rt, err := p.Acquire(acquireCtx)
	if err != nil {
		return nil, err
	}
	defer p.Release(rt)

	script := body
	if transpile {
		script, err = rt.Transpile(body)
		if err != nil {
			// Syntax the transpiler rejects is a fault of the generated
			// code, not of the host.
			return &Result{Fault: &Fault{Message: err.Error()}}, nil
		}
	}

	return rt.Render(ctx, script), nil
}

// CanTranspile reports whether the pool's runtimes were warmed with a
// transpiler.
func (p *Pool) CanTranspile() bool {
	return p.babelSrc != ""
}

// Size returns the pool capacity.
func (p *Pool) Size() int {
	return p.size
}

// Available returns the number of idle runtimes.
func (p *Pool) Available() int {
	return len(p.runtimes)
}

// Close shuts down the pool and all runtimes.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	close(p.runtimes)
	for rt := range p.runtimes {
		rt.Close()
	}
}
