package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// fragmentTag marks Fragment elements in the recorded tree. The mirror
// flattens them during serialization.
const fragmentTag = "#fragment"

// Runtime wraps a goja VM with the stub UI runtime and the transpiler.
type Runtime struct {
	vm     *goja.Runtime
	config Config
	mu     sync.Mutex

	console   []LogEntry
	consoleMu sync.Mutex

	babelLoaded bool
}

// New creates a sandboxed runtime. The transpiler is loaded separately via
// LoadBabel because its source comes from the asset cache.
func New(config Config) (*Runtime, error) {
	vm := goja.New()

	r := &Runtime{
		vm:     vm,
		config: config,
	}

	if config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStack)
	}

	if err := r.setupGlobals(); err != nil {
		return nil, err
	}

	return r, nil
}

// LoadBabel evaluates the Babel standalone source inside the runtime.
// Loading it once and keeping the VM warm is what makes pooling worthwhile.
func (r *Runtime) LoadBabel(src string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.vm.RunString(src); err != nil {
		return fmt.Errorf("load transpiler: %w", err)
	}
	v, err := r.vm.RunString(`typeof Babel === "object" && typeof Babel.transform === "function"`)
	if err != nil || !v.ToBoolean() {
		return ErrNoTranspiler
	}
	r.babelLoaded = true
	return nil
}

// Transpile converts a JSX component body into plain script.
func (r *Runtime) Transpile(src string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.babelLoaded {
		return "", ErrNoTranspiler
	}

	r.vm.Set("__component_src", src)
	val, err := r.vm.RunString(`Babel.transform(__component_src, { presets: ["react"] }).code`)
	if err != nil {
		return "", fmt.Errorf("transpile: %w", err)
	}
	return val.String(), nil
}

// Render executes a transpiled component body, resolves the Component
// declaration, and records the rendered tree. Failures raised by the
// generated code come back as a Fault, never as an error: the caller decides
// what to show, the host process is never at risk.
func (r *Runtime) Render(ctx context.Context, body string) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	result := &Result{}

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	done := make(chan struct{})
	go func() {
		select {
		case <-timer.C:
			r.vm.Interrupt("execution timeout exceeded")
		case <-ctx.Done():
			r.vm.Interrupt("context cancelled")
		case <-done:
		}
	}()

	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()

	root, notFound, fault := r.execute(body)

	close(done)
	r.vm.ClearInterrupt()

	result.Duration = time.Since(start)
	result.Root = root
	result.NotFound = notFound
	result.Fault = fault

	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	return result
}

// execute runs the body and invokes the resolved component. Must be called
// with the interrupt watchdog armed.
func (r *Runtime) execute(body string) (root *Node, notFound bool, fault *Fault) {
	val, err := r.vm.RunString(wrapBody(body))
	if err != nil {
		return nil, false, &Fault{Message: faultMessage(err)}
	}

	comp, ok := goja.AssertFunction(val)
	if !ok {
		return nil, true, nil
	}

	rendered, err := comp(goja.Undefined())
	if err != nil {
		return nil, false, &Fault{Message: faultMessage(err)}
	}

	root = &Node{
		Tag:      "div",
		Props:    map[string]interface{}{"id": "root"},
		Children: r.childNodes(rendered.Export()),
	}
	return root, false, nil
}

// wrapBody scopes the component body so its top-level bindings do not leak
// into the shared global object between renders.
func wrapBody(body string) string {
	return ";(function(){\n" + body + "\nif (typeof Component === \"function\") { return Component; }\nreturn null;\n})()"
}

// setupGlobals configures global objects and removes everything the
// generated code must not reach.
func (r *Runtime) setupGlobals() error {
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		r.vm.Set("console", console)
	}

	// Timers are no-ops: preflight records a single synchronous render.
	r.vm.Set("setTimeout", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})
	r.vm.Set("setInterval", func(call goja.FunctionCall) goja.Value {
		return goja.Undefined()
	})

	return r.installUIRuntime()
}

// installUIRuntime exposes the stub React object both as a global and on
// window, matching how the render document loads the real runtime.
func (r *Runtime) installUIRuntime() error {
	react := r.vm.NewObject()
	react.Set("createElement", r.createElement)
	react.Set("Fragment", fragmentTag)
	react.Set("useState", r.useState)
	react.Set("useReducer", r.useReducer)
	react.Set("useEffect", r.noopHook)
	react.Set("useRef", r.useRef)
	react.Set("useContext", r.noopHook)
	react.Set("useCallback", r.identityHook)
	react.Set("useMemo", r.useMemo)

	window := r.vm.NewObject()
	window.Set("React", react)

	r.vm.Set("React", react)
	r.vm.Set("window", window)
	return nil
}

// createElement records one element. Function types (nested components) are
// invoked immediately; exceptions they raise propagate to the fault barrier.
func (r *Runtime) createElement(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 {
		return goja.Null()
	}
	typ := call.Arguments[0]

	if fn, ok := goja.AssertFunction(typ); ok {
		props := goja.Value(goja.Undefined())
		if len(call.Arguments) > 1 {
			props = call.Arguments[1]
		}
		val, err := fn(goja.Undefined(), props)
		if err != nil {
			r.rethrow(err)
		}
		return val
	}

	node := &Node{Tag: typ.String(), Props: exportProps(call)}
	for _, arg := range call.Arguments[2:] {
		node.Children = append(node.Children, r.childNodes(arg.Export())...)
	}
	return r.vm.ToValue(node)
}

// rethrow propagates an error raised inside a nested component call as a JS
// exception so the wrapping try/catch semantics stay intact.
func (r *Runtime) rethrow(err error) {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		panic(r.vm.ToValue(exc.Value()))
	}
	panic(r.vm.NewGoError(err))
}

// childNodes converts an exported child argument into recorded nodes.
// Arrays flatten, booleans and nulls render nothing, everything else
// becomes text.
func (r *Runtime) childNodes(v interface{}) []*Node {
	switch val := v.(type) {
	case nil:
		return nil
	case *Node:
		return []*Node{val}
	case []interface{}:
		var nodes []*Node
		for _, item := range val {
			nodes = append(nodes, r.childNodes(item)...)
		}
		return nodes
	case bool:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return []*Node{{Text: val}}
	default:
		return []*Node{{Text: fmt.Sprint(val)}}
	}
}

func exportProps(call goja.FunctionCall) map[string]interface{} {
	if len(call.Arguments) < 2 {
		return nil
	}
	v := call.Arguments[1]
	if v == nil || goja.IsNull(v) || goja.IsUndefined(v) {
		return nil
	}
	if m, ok := v.Export().(map[string]interface{}); ok {
		return m
	}
	return nil
}

// Hook stubs. Preflight records the first render only, so state never
// changes and effects never run.

func (r *Runtime) useState(call goja.FunctionCall) goja.Value {
	initial := goja.Value(goja.Undefined())
	if len(call.Arguments) > 0 {
		initial = call.Arguments[0]
		if fn, ok := goja.AssertFunction(initial); ok {
			if v, err := fn(goja.Undefined()); err == nil {
				initial = v
			}
		}
	}
	setter := r.vm.ToValue(func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	return r.vm.NewArray(initial, setter)
}

func (r *Runtime) useReducer(call goja.FunctionCall) goja.Value {
	initial := goja.Value(goja.Undefined())
	if len(call.Arguments) > 1 {
		initial = call.Arguments[1]
	}
	dispatch := r.vm.ToValue(func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	return r.vm.NewArray(initial, dispatch)
}

func (r *Runtime) useRef(call goja.FunctionCall) goja.Value {
	ref := r.vm.NewObject()
	if len(call.Arguments) > 0 {
		ref.Set("current", call.Arguments[0])
	} else {
		ref.Set("current", goja.Undefined())
	}
	return ref
}

func (r *Runtime) useMemo(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) > 0 {
		if fn, ok := goja.AssertFunction(call.Arguments[0]); ok {
			v, err := fn(goja.Undefined())
			if err != nil {
				r.rethrow(err)
			}
			return v
		}
	}
	return goja.Undefined()
}

func (r *Runtime) identityHook(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) > 0 {
		return call.Arguments[0]
	}
	return goja.Undefined()
}

func (r *Runtime) noopHook(call goja.FunctionCall) goja.Value {
	return goja.Undefined()
}

func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg strings.Builder
		for i, arg := range call.Arguments {
			if i > 0 {
				msg.WriteString(" ")
			}
			msg.WriteString(arg.String())
		}

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: msg.String(),
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		return goja.Undefined()
	}
}

// Reset clears per-render state but keeps the loaded transpiler, which is
// the expensive part of a warm runtime.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm.GlobalObject().Delete("Component")
	r.vm.GlobalObject().Delete("__component_src")

	r.consoleMu.Lock()
	r.console = nil
	r.consoleMu.Unlock()

	return r.setupGlobals()
}

// Close releases resources
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	return nil
}

func faultMessage(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		line, _, _ := strings.Cut(exc.Error(), "\n")
		return strings.TrimSpace(line)
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Sprint(interrupted.Value())
	}
	return err.Error()
}
