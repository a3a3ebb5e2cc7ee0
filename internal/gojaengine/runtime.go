//go:build !v8

// Package gojaengine implements the boundary contract on the pure-Go goja
// engine. It is the default backend.
package gojaengine

import (
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/cryguy/jsi/internal/core"
	"github.com/cryguy/jsi/internal/handles"
	"github.com/cryguy/jsi/internal/sourcecache"
	"github.com/cryguy/jsi/internal/transform"
)

// Runtime implements core.Runtime for goja.
type Runtime struct {
	vm    *goja.Runtime
	cfg   core.Config
	log   *zap.Logger
	table *handles.Table
	cache *sourcecache.Cache

	// Native implementations behind JS objects, keyed by the goja object
	// identity so they can be recovered from any handle aliasing it.
	hostObjects map[*goja.Object]core.HostObject
	hostFuncs   map[*goja.Object]core.HostFunction

	// Helper callables compiled once at construction.
	jsonParse  goja.Callable
	instanceOf goja.Callable
	isArray    goja.Callable
	hasProp    goja.Callable
	defineFn   goja.Callable

	lastErr *core.Error
	closed  bool
}

var _ core.Runtime = (*Runtime)(nil)

// New constructs a goja-backed runtime.
func New(cfg core.Config) (*Runtime, error) {
	cfg.Normalize()

	r := &Runtime{
		vm:          goja.New(),
		cfg:         cfg,
		log:         cfg.Logger,
		table:       handles.New(),
		cache:       sourcecache.New(cfg.CacheSize),
		hostObjects: make(map[*goja.Object]core.HostObject),
		hostFuncs:   make(map[*goja.Object]core.HostFunction),
	}

	helpers := []struct {
		src  string
		dest *goja.Callable
	}{
		{`(s) => JSON.parse(s)`, &r.jsonParse},
		{`(o, c) => o instanceof c`, &r.instanceOf},
		{`(o) => Array.isArray(o)`, &r.isArray},
		{`(o, k) => k in o`, &r.hasProp},
		{`(f, name, length) => {
			Object.defineProperty(f, "name", { value: name });
			Object.defineProperty(f, "length", { value: length });
			return f;
		}`, &r.defineFn},
	}
	for _, h := range helpers {
		v, err := r.vm.RunString(h.src)
		if err != nil {
			return nil, fmt.Errorf("compiling helper: %w", err)
		}
		fn, ok := goja.AssertFunction(v)
		if !ok {
			return nil, fmt.Errorf("helper did not compile to a function")
		}
		*h.dest = fn
	}

	return r, nil
}

// Description names the backing engine.
func (r *Runtime) Description() string { return "goja" }

// Close releases all handles and detaches the engine.
func (r *Runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.table.Close()
	r.hostObjects = nil
	r.hostFuncs = nil
	r.lastErr = nil
	r.vm = nil
	return nil
}

// --- error plumbing ---

// fail records e in the current-error slot and returns it, so the Go error
// return and the drain-style GetAndClearError path observe the same state.
func (r *Runtime) fail(e *core.Error) error {
	r.lastErr = e
	return e
}

func (r *Runtime) failNative(format string, args ...any) error {
	return r.fail(core.NewNativeError(format, args...))
}

// jsError converts an error returned by goja into the contract error shape.
// A *goja.Exception carries the thrown JS value; anything else is a native
// fault.
func (r *Runtime) jsError(err error) *core.Error {
	var ex *goja.Exception
	if !asException(err, &ex) {
		return &core.Error{Type: core.NativeException, Message: err.Error()}
	}
	thrown := ex.Value()
	e := &core.Error{
		Type:  core.JSError,
		Value: r.toCore(thrown),
		Stack: ex.String(),
	}
	if thrown != nil {
		e.Message = thrown.String()
	}
	return e
}

func asException(err error, out **goja.Exception) bool {
	ex, ok := err.(*goja.Exception)
	if ok {
		*out = ex
	}
	return ok
}

// SetError overwrites the current-error slot. Last write wins.
func (r *Runtime) SetError(errType core.ErrorType, details string, value core.Value) {
	r.lastErr = &core.Error{Type: errType, Details: details, Value: value}
}

// GetAndClearError atomically reads and clears the slot.
func (r *Runtime) GetAndClearError() *core.Error {
	e := r.lastErr
	r.lastErr = nil
	return e
}

// --- evaluation ---

// prepareSource drains, optionally transforms, and caches script source.
func (r *Runtime) prepareSource(source core.ByteSource, sourceURL string) (string, error) {
	raw, err := core.CopyBytes(source)
	if err != nil {
		return "", r.failNative("reading source for %s: %v", sourceURL, err)
	}
	if !r.cfg.Transform {
		return string(raw), nil
	}
	if cached, ok := r.cache.Get(raw); ok {
		return cached, nil
	}
	out, err := transform.Source(string(raw), sourceURL, r.cfg.TransformTarget)
	if err != nil {
		return "", r.failNative("%v", err)
	}
	r.cache.Put(raw, out)
	return out, nil
}

// EvaluateJavaScript parses and runs source in one step.
func (r *Runtime) EvaluateJavaScript(source core.ByteSource, sourceURL string) (core.Value, error) {
	if r.closed {
		return core.Undefined(), r.failNative("runtime is closed")
	}
	if sourceURL == "" {
		sourceURL = r.cfg.SourceURL
	}
	src, err := r.prepareSource(source, sourceURL)
	if err != nil {
		return core.Undefined(), err
	}
	prog, err := goja.Compile(sourceURL, src, false)
	if err != nil {
		return core.Undefined(), r.fail(r.jsError(err))
	}
	v, err := r.vm.RunProgram(prog)
	if err != nil {
		return core.Undefined(), r.fail(r.jsError(err))
	}
	return r.toCore(v), nil
}

type prepared struct {
	program *goja.Program
}

// PrepareJavaScript compiles source once for repeated evaluation. The
// returned handle lives outside the scope stack and is freed only by
// ReleasePreparedScript.
func (r *Runtime) PrepareJavaScript(source core.ByteSource, sourceURL string) (core.PreparedScript, error) {
	if r.closed {
		return 0, r.failNative("runtime is closed")
	}
	if sourceURL == "" {
		sourceURL = r.cfg.SourceURL
	}
	src, err := r.prepareSource(source, sourceURL)
	if err != nil {
		return 0, err
	}
	prog, err := goja.Compile(sourceURL, src, false)
	if err != nil {
		return 0, r.fail(r.jsError(err))
	}
	h := r.table.AllocRoot(handles.KindPreparedScript, &prepared{program: prog})
	return core.PreparedScript(h), nil
}

// EvaluatePreparedJavaScript runs a previously prepared script.
func (r *Runtime) EvaluatePreparedJavaScript(script core.PreparedScript) (core.Value, error) {
	if r.closed {
		return core.Undefined(), r.failNative("runtime is closed")
	}
	v, ok := r.table.Get(handles.Handle(script), handles.KindPreparedScript)
	if !ok {
		return core.Undefined(), r.failNative("invalid prepared script handle")
	}
	result, err := r.vm.RunProgram(v.(*prepared).program)
	if err != nil {
		return core.Undefined(), r.fail(r.jsError(err))
	}
	return r.toCore(result), nil
}

// ReleasePreparedScript frees a prepared script.
func (r *Runtime) ReleasePreparedScript(script core.PreparedScript) {
	if !r.table.Release(handles.Handle(script)) {
		r.log.Debug("release of invalid prepared script handle")
	}
}

// Global returns the top-level object as a scope-owned handle.
func (r *Runtime) Global() core.ObjectRef {
	return r.allocObject(r.vm.GlobalObject())
}

// CreateValueFromJSON parses JSON text with JSON.parse semantics.
func (r *Runtime) CreateValueFromJSON(source core.ByteSource) (core.Value, error) {
	if r.closed {
		return core.Undefined(), r.failNative("runtime is closed")
	}
	var result core.Value
	err := source.WithBytes(func(view []byte) error {
		v, err := r.jsonParse(goja.Undefined(), r.vm.ToValue(string(view)))
		if err != nil {
			return r.fail(r.jsError(err))
		}
		result = r.toCore(v)
		return nil
	})
	if err != nil {
		return core.Undefined(), err
	}
	return result, nil
}

// --- scopes ---

// PushScope opens a lifetime region.
func (r *Runtime) PushScope() core.ScopeState {
	return core.ScopeState(r.table.Push())
}

// PopScope closes the region, releasing handles created since, other than
// those promoted out. A non-top state is a scope-discipline violation.
func (r *Runtime) PopScope(state core.ScopeState) error {
	if !r.table.Pop(int(state)) {
		r.log.Error("scope stack misuse: popped state is not the current top",
			zap.Uint64("state", uint64(state)),
			zap.Int("depth", r.table.Depth()))
		return r.failNative("PopScope: state %d is not the current scope top", state)
	}
	return nil
}
