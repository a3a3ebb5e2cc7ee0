//go:build !v8

package gojaengine

import (
	"github.com/dop251/goja"

	"github.com/cryguy/jsi/internal/core"
	"github.com/cryguy/jsi/internal/handles"
)

// hostObjectAdapter presents a core.HostObject to goja as a dynamic object.
// Every accessor runs synchronously on the JS call stack and may re-enter
// the runtime.
type hostObjectAdapter struct {
	rt   *Runtime
	impl core.HostObject
}

var _ goja.DynamicObject = (*hostObjectAdapter)(nil)

func (a *hostObjectAdapter) Get(key string) goja.Value {
	pid := core.PropertyID(a.rt.table.Alloc(handles.KindPropertyID, key))
	defer a.rt.ReleasePropertyID(pid)

	v, err := a.impl.Get(a.rt, pid)
	a.rt.raisePending(err, v)

	jv, convErr := a.rt.fromCore(v)
	if convErr != nil {
		panic(a.rt.throwable(core.NewNativeError("host object returned an invalid value: %v", convErr)))
	}
	return jv
}

func (a *hostObjectAdapter) Set(key string, val goja.Value) bool {
	pid := core.PropertyID(a.rt.table.Alloc(handles.KindPropertyID, key))
	defer a.rt.ReleasePropertyID(pid)

	err := a.impl.Set(a.rt, pid, a.rt.toCore(val))
	a.rt.raisePending(err, core.Undefined())
	return true
}

func (a *hostObjectAdapter) Has(key string) bool {
	for _, name := range a.keys() {
		if name == key {
			return true
		}
	}
	return false
}

// Delete is not part of the host object contract; deletion attempts fail.
func (a *hostObjectAdapter) Delete(key string) bool { return false }

func (a *hostObjectAdapter) Keys() []string { return a.keys() }

func (a *hostObjectAdapter) keys() []string {
	ids := a.impl.PropertyIDs(a.rt)
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, err := a.rt.propertyName(id)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names
}

// CreateObjectWithHostObject installs h as a JS-visible object.
func (r *Runtime) CreateObjectWithHostObject(h core.HostObject) (core.ObjectRef, error) {
	if r.closed {
		return 0, r.failNative("runtime is closed")
	}
	if h == nil {
		return 0, r.failNative("nil host object")
	}
	obj := r.vm.NewDynamicObject(&hostObjectAdapter{rt: r, impl: h})
	r.hostObjects[obj] = h
	return r.allocObject(obj), nil
}

// GetHostObject recovers the native implementation, or nil.
func (r *Runtime) GetHostObject(o core.ObjectRef) core.HostObject {
	obj, err := r.object(o)
	if err != nil {
		return nil
	}
	return r.hostObjects[obj]
}

// IsHostObject reports whether the object is host-backed.
func (r *Runtime) IsHostObject(o core.ObjectRef) bool {
	return r.GetHostObject(o) != nil
}

// CreateFunctionFromHostFunction installs fn as a JS function with the
// given name and declared parameter count.
func (r *Runtime) CreateFunctionFromHostFunction(name string, paramCount int, fn core.HostFunction) (core.ObjectRef, error) {
	if r.closed {
		return 0, r.failNative("runtime is closed")
	}

	wrapped := func(call goja.FunctionCall) goja.Value {
		args := make([]core.Value, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = r.toCore(a)
		}
		ret, err := fn(r, r.toCore(call.This), args)
		r.raisePending(err, ret)

		jv, convErr := r.fromCore(ret)
		if convErr != nil {
			panic(r.throwable(core.NewNativeError("host function returned an invalid value: %v", convErr)))
		}
		return jv
	}

	fnVal := r.vm.ToValue(wrapped)
	named, err := r.defineFn(goja.Undefined(), fnVal, r.vm.ToValue(name), r.vm.ToValue(paramCount))
	if err != nil {
		return 0, r.fail(r.jsError(err))
	}
	obj := named.(*goja.Object)
	r.hostFuncs[obj] = fn
	return r.allocObject(obj), nil
}

// GetHostFunction recovers the native callable, or nil.
func (r *Runtime) GetHostFunction(o core.ObjectRef) core.HostFunction {
	obj, err := r.object(o)
	if err != nil {
		return nil
	}
	return r.hostFuncs[obj]
}

// IsHostFunction reports whether the object is a host function.
func (r *Runtime) IsHostFunction(o core.ObjectRef) bool {
	return r.GetHostFunction(o) != nil
}

// raisePending implements the host-callback error protocol: a non-nil
// callback error, or an error deposited in the slot alongside the Undefined
// sentinel, becomes an engine-native throw at the JS call site.
func (r *Runtime) raisePending(err error, ret core.Value) {
	if err != nil {
		if ce, ok := err.(*core.Error); ok {
			panic(r.throwable(ce))
		}
		panic(r.throwable(&core.Error{Type: core.NativeException, Message: err.Error()}))
	}
	if r.lastErr != nil && ret.IsUndefined() {
		pending := r.GetAndClearError()
		panic(r.throwable(pending))
	}
}

// throwable builds the goja value to panic with: goja turns a panicked
// Value into a JS throw. A pending error that carries a JS value is
// rethrown as that value; anything else becomes a wrapped native error.
func (r *Runtime) throwable(e *core.Error) goja.Value {
	if !e.Value.IsUndefined() {
		if jv, err := r.fromCore(e.Value); err == nil {
			return jv
		}
	}
	return r.vm.NewGoError(e)
}
