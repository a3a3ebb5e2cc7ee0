//go:build v8

// Package v8engine implements the boundary contract on V8 via v8go.
package v8engine

import (
	"fmt"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"

	"github.com/cryguy/jsi/internal/core"
	"github.com/cryguy/jsi/internal/handles"
	"github.com/cryguy/jsi/internal/sourcecache"
	"github.com/cryguy/jsi/internal/transform"
)

// Runtime implements core.Runtime for V8. Host-backed objects are tagged
// with a private symbol holding a registry id, since v8go hands out a fresh
// wrapper per retrieval and pointer identity cannot be used.
type Runtime struct {
	iso   *v8.Isolate
	ctx   *v8.Context
	cfg   core.Config
	log   *zap.Logger
	table *handles.Table
	cache *sourcecache.Cache

	hostObjects map[int32]core.HostObject
	hostFuncs   map[int32]core.HostFunction
	nextHostID  int32

	lastErr *core.Error
	closed  bool
}

var _ core.Runtime = (*Runtime)(nil)

// helperScript installs the JS-side plumbing: host-id tagging through a
// private symbol, the Proxy factory for host objects, and small helpers the
// adapter calls instead of reaching for per-API bindings.
const helperScript = `(() => {
	const tag = Symbol('jsi.host');
	globalThis.__jsi_tag = (o, id) => {
		Object.defineProperty(o, tag, { value: id });
		return o;
	};
	globalThis.__jsi_id = (o) => {
		if (o === null || typeof o !== 'object' && typeof o !== 'function') return -1;
		const id = o[tag];
		return id === undefined ? -1 : id;
	};
	globalThis.__jsi_mkhost = (id, get, set, keys) => {
		const target = {};
		globalThis.__jsi_tag(target, id);
		return new Proxy(target, {
			get: (t, prop) => {
				if (typeof prop === 'symbol') return Reflect.get(t, prop);
				return get(id, String(prop));
			},
			set: (t, prop, value) => {
				if (typeof prop === 'symbol') return Reflect.set(t, prop, value);
				set(id, String(prop), value);
				return true;
			},
			has: (t, prop) => {
				if (typeof prop === 'symbol') return Reflect.has(t, prop);
				return keys(id).indexOf(String(prop)) >= 0;
			},
			ownKeys: (t) => keys(id),
			getOwnPropertyDescriptor: (t, prop) => ({
				value: get(id, String(prop)),
				enumerable: true,
				configurable: true,
			}),
		});
	};
	globalThis.__jsi_deffn = (f, name, length) => {
		Object.defineProperty(f, 'name', { value: name });
		Object.defineProperty(f, 'length', { value: length });
		return f;
	};
	let thrown;
	let hasThrown = false;
	globalThis.__jsi_apply = (f, t, ...a) => {
		try {
			return f.apply(t, a);
		} catch (e) {
			thrown = e;
			hasThrown = true;
			throw e;
		}
	};
	globalThis.__jsi_construct = (f, ...a) => {
		try {
			return Reflect.construct(f, a);
		} catch (e) {
			thrown = e;
			hasThrown = true;
			throw e;
		}
	};
	globalThis.__jsi_hasthrown = () => hasThrown;
	globalThis.__jsi_takethrown = () => {
		const v = thrown;
		thrown = undefined;
		hasThrown = false;
		return v;
	};
	globalThis.__jsi_eq = (a, b) => a === b;
	globalThis.__jsi_instanceof = (o, c) => o instanceof c;
	globalThis.__jsi_keys = (o) => Object.keys(o);
	globalThis.__jsi_isarray = (o) => Array.isArray(o);
	globalThis.__jsi_isab = (o) => o instanceof ArrayBuffer;
	globalThis.__jsi_absize = (ab) => ab.byteLength;
	globalThis.__jsi_abjoin = (ab) => new Uint8Array(ab).join(',');
	globalThis.__jsi_mkarray = (n) => new Array(n);
	globalThis.__jsi_mkweak = (o) => new WeakRef(o);
	globalThis.__jsi_deref = (w) => {
		const v = w.deref();
		return v === undefined ? null : v;
	};
	globalThis.__jsi_symstr = (s) => String(s);
})()`

// New constructs a V8-backed runtime.
func New(cfg core.Config) (*Runtime, error) {
	cfg.Normalize()

	iso := v8.NewIsolate()
	ctx := v8.NewContext(iso)

	r := &Runtime{
		iso:         iso,
		ctx:         ctx,
		cfg:         cfg,
		log:         cfg.Logger,
		table:       handles.New(),
		cache:       sourcecache.New(cfg.CacheSize),
		hostObjects: make(map[int32]core.HostObject),
		hostFuncs:   make(map[int32]core.HostFunction),
	}

	if _, err := ctx.RunScript(helperScript, "jsi_helpers.js"); err != nil {
		ctx.Close()
		iso.Dispose()
		return nil, fmt.Errorf("installing helper script: %w", err)
	}
	if err := r.installHostCallbacks(); err != nil {
		ctx.Close()
		iso.Dispose()
		return nil, err
	}
	return r, nil
}

// Description names the backing engine.
func (r *Runtime) Description() string { return "v8" }

// Close releases all handles and disposes the isolate.
func (r *Runtime) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.table.Close()
	r.hostObjects = nil
	r.hostFuncs = nil
	r.lastErr = nil
	r.ctx.Close()
	r.iso.Dispose()
	return nil
}

// helper invokes one of the globals installed by helperScript.
func (r *Runtime) helper(name string, args ...v8.Valuer) (*v8.Value, error) {
	fnVal, err := r.ctx.Global().Get(name)
	if err != nil {
		return nil, r.failNative("missing helper %s: %v", name, err)
	}
	fn, err := fnVal.AsFunction()
	if err != nil {
		return nil, r.failNative("helper %s is not a function: %v", name, err)
	}
	out, err := fn.Call(v8.Undefined(r.iso), args...)
	if err != nil {
		return nil, r.fail(r.jsError(err))
	}
	return out, nil
}

// --- error plumbing ---

func (r *Runtime) fail(e *core.Error) error {
	r.lastErr = e
	return e
}

func (r *Runtime) failNative(format string, args ...any) error {
	return r.fail(core.NewNativeError(format, args...))
}

// jsError converts a v8go error into the contract error shape. v8go
// surfaces JS throws as *v8.JSError with message and stack trace only, so
// the thrown value itself is recovered from the capture slot the apply and
// construct helpers fill before rethrowing.
func (r *Runtime) jsError(err error) *core.Error {
	if jse, ok := err.(*v8.JSError); ok {
		return &core.Error{
			Type:    core.JSError,
			Value:   r.takeThrown(),
			Message: jse.Message,
			Stack:   jse.StackTrace,
		}
	}
	return &core.Error{Type: core.NativeException, Message: err.Error()}
}

// takeThrown drains the JS-side capture slot. It calls the helpers raw, not
// through helper(), so a failure here cannot loop back into jsError. A
// top-level script throw never passes through the slot; the result is then
// Undefined and only message and stack survive.
func (r *Runtime) takeThrown() core.Value {
	call := func(name string) (*v8.Value, bool) {
		fnVal, err := r.ctx.Global().Get(name)
		if err != nil {
			return nil, false
		}
		fn, err := fnVal.AsFunction()
		if err != nil {
			return nil, false
		}
		out, err := fn.Call(v8.Undefined(r.iso))
		if err != nil {
			return nil, false
		}
		return out, true
	}
	has, ok := call("__jsi_hasthrown")
	if !ok || !has.Boolean() {
		return core.Undefined()
	}
	out, ok := call("__jsi_takethrown")
	if !ok {
		return core.Undefined()
	}
	return r.toCore(out)
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
	v, err := r.ctx.RunScript(src, sourceURL)
	if err != nil {
		return core.Undefined(), r.fail(r.jsError(err))
	}
	return r.toCore(v), nil
}

type prepared struct {
	script *v8.UnboundScript
}

// PrepareJavaScript compiles source once for repeated evaluation.
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
	ubs, err := r.iso.CompileUnboundScript(src, sourceURL, v8.CompileOptions{})
	if err != nil {
		return 0, r.fail(r.jsError(err))
	}
	h := r.table.AllocRoot(handles.KindPreparedScript, &prepared{script: ubs})
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
	result, err := v.(*prepared).script.Run(r.ctx)
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
	return r.allocObject(r.ctx.Global())
}

// CreateValueFromJSON parses JSON text with JSON.parse semantics.
func (r *Runtime) CreateValueFromJSON(source core.ByteSource) (core.Value, error) {
	if r.closed {
		return core.Undefined(), r.failNative("runtime is closed")
	}
	var result core.Value
	err := source.WithBytes(func(view []byte) error {
		v, err := v8.JSONParse(r.ctx, string(view))
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

// PopScope closes the region; a non-top state is a discipline violation.
func (r *Runtime) PopScope(state core.ScopeState) error {
	if !r.table.Pop(int(state)) {
		r.log.Error("scope stack misuse: popped state is not the current top",
			zap.Uint64("state", uint64(state)),
			zap.Int("depth", r.table.Depth()))
		return r.failNative("PopScope: state %d is not the current scope top", state)
	}
	return nil
}
