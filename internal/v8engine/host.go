//go:build v8

package v8engine

import (
	"errors"
	"fmt"

	v8 "github.com/tommie/v8go"

	"github.com/cryguy/jsi/internal/core"
	"github.com/cryguy/jsi/internal/handles"
)

// installHostCallbacks registers the Go-side dispatch functions the Proxy
// traps call. A single id space covers host objects and host functions.
func (r *Runtime) installHostCallbacks() error {
	global := r.ctx.Global()

	getTmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()
		if len(args) < 2 {
			return v8.Undefined(r.iso)
		}
		impl, ok := r.hostObjects[int32(args[0].Int32())]
		if !ok {
			return v8.Undefined(r.iso)
		}
		pid := core.PropertyID(r.table.Alloc(handles.KindPropertyID, args[1].String()))
		out, err := impl.Get(r, pid)
		r.release(handles.Handle(pid))
		if thrown := r.raisePending(out, err); thrown != nil {
			return thrown
		}
		ev, err := r.fromCore(out)
		if err != nil {
			return r.throwMessage(err.Error())
		}
		return ev
	})

	setTmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()
		if len(args) < 3 {
			return v8.Undefined(r.iso)
		}
		impl, ok := r.hostObjects[int32(args[0].Int32())]
		if !ok {
			return v8.Undefined(r.iso)
		}
		pid := core.PropertyID(r.table.Alloc(handles.KindPropertyID, args[1].String()))
		err := impl.Set(r, pid, r.toCore(args[2]))
		r.release(handles.Handle(pid))
		if thrown := r.raisePending(core.Undefined(), err); thrown != nil {
			return thrown
		}
		return v8.Undefined(r.iso)
	})

	keysTmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()
		if len(args) < 1 {
			return v8.Undefined(r.iso)
		}
		impl, ok := r.hostObjects[int32(args[0].Int32())]
		if !ok {
			return v8.Undefined(r.iso)
		}
		ids := impl.PropertyIDs(r)
		arrRef, err := r.CreateArray(len(ids))
		if err != nil {
			return r.throwMessage(err.Error())
		}
		for i, pid := range ids {
			name, nerr := r.propertyName(pid)
			if nerr != nil {
				continue
			}
			sref := core.StringRef(r.table.Alloc(handles.KindString, name))
			_ = r.SetValueAtIndex(arrRef, i, core.FromString(sref))
		}
		arr, err := r.object(arrRef)
		if err != nil {
			return r.throwMessage(err.Error())
		}
		return arr.Value
	})

	for name, tmpl := range map[string]*v8.FunctionTemplate{
		"__jsi_host_get":  getTmpl,
		"__jsi_host_set":  setTmpl,
		"__jsi_host_keys": keysTmpl,
	} {
		if err := global.Set(name, tmpl.GetFunction(r.ctx)); err != nil {
			return fmt.Errorf("installing %s: %w", name, err)
		}
	}
	return nil
}

// raisePending turns a callback failure into an engine throw. An Undefined
// result with a pending slot error is the sentinel for "the host deposited
// the error instead of returning it".
func (r *Runtime) raisePending(result core.Value, err error) *v8.Value {
	if err != nil {
		var ce *core.Error
		if errors.As(err, &ce) {
			return r.throwError(ce)
		}
		return r.throwMessage(err.Error())
	}
	if result.IsUndefined() && r.lastErr != nil {
		pending := r.lastErr
		r.lastErr = nil
		return r.throwError(pending)
	}
	return nil
}

func (r *Runtime) throwError(e *core.Error) *v8.Value {
	if e.Value.Kind() != core.KindUndefined {
		if ev, err := r.fromCore(e.Value); err == nil {
			return r.iso.ThrowException(ev)
		}
	}
	return r.throwMessage(e.Error())
}

func (r *Runtime) throwMessage(msg string) *v8.Value {
	ev, err := v8.NewValue(r.iso, msg)
	if err != nil {
		ev = v8.Undefined(r.iso)
	}
	return r.iso.ThrowException(ev)
}

// hostID reads the private tag from an object, -1 when untagged.
func (r *Runtime) hostID(obj *v8.Object) int32 {
	out, err := r.helper("__jsi_id", obj)
	if err != nil {
		return -1
	}
	return out.Int32()
}

// CreateObjectWithHostObject wraps a host implementation in a Proxy whose
// traps dispatch back into Go.
func (r *Runtime) CreateObjectWithHostObject(h core.HostObject) (core.ObjectRef, error) {
	if h == nil {
		return 0, r.failNative("nil host object")
	}
	id := r.nextHostID
	r.nextHostID++
	r.hostObjects[id] = h

	global := r.ctx.Global()
	get, errG := global.Get("__jsi_host_get")
	set, errS := global.Get("__jsi_host_set")
	keys, errK := global.Get("__jsi_host_keys")
	if errG != nil || errS != nil || errK != nil {
		delete(r.hostObjects, id)
		return 0, r.failNative("host dispatch functions missing")
	}
	idVal, err := v8.NewValue(r.iso, id)
	if err != nil {
		delete(r.hostObjects, id)
		return 0, r.failNative("creating host id: %v", err)
	}
	out, err := r.helper("__jsi_mkhost", idVal, get, set, keys)
	if err != nil {
		delete(r.hostObjects, id)
		return 0, err
	}
	obj, err := out.AsObject()
	if err != nil {
		delete(r.hostObjects, id)
		return 0, r.failNative("host proxy is not an object: %v", err)
	}
	return r.allocObject(obj), nil
}

// GetHostObject recovers the implementation behind a host-backed object,
// or nil when the object is not host-backed.
func (r *Runtime) GetHostObject(o core.ObjectRef) core.HostObject {
	obj, err := r.object(o)
	if err != nil {
		return nil
	}
	return r.hostObjects[r.hostID(obj)]
}

func (r *Runtime) IsHostObject(o core.ObjectRef) bool {
	obj, err := r.object(o)
	if err != nil {
		return false
	}
	_, ok := r.hostObjects[r.hostID(obj)]
	return ok
}

// CreateFunctionFromHostFunction exposes a Go function as a JS function
// with the given name and declared arity.
func (r *Runtime) CreateFunctionFromHostFunction(name string, paramCount int, fn core.HostFunction) (core.ObjectRef, error) {
	if fn == nil {
		return 0, r.failNative("nil host function")
	}
	id := r.nextHostID
	r.nextHostID++
	r.hostFuncs[id] = fn

	tmpl := v8.NewFunctionTemplate(r.iso, func(info *v8.FunctionCallbackInfo) *v8.Value {
		args := info.Args()
		coreArgs := make([]core.Value, len(args))
		for i, a := range args {
			coreArgs[i] = r.toCore(a)
		}
		this := core.Undefined()
		if t := info.This(); t != nil {
			this = core.FromObject(r.allocObject(t))
		}
		out, err := fn(r, this, coreArgs)
		if thrown := r.raisePending(out, err); thrown != nil {
			return thrown
		}
		ev, err := r.fromCore(out)
		if err != nil {
			return r.throwMessage(err.Error())
		}
		return ev
	})

	f := tmpl.GetFunction(r.ctx)

	idVal, err := v8.NewValue(r.iso, id)
	if err != nil {
		delete(r.hostFuncs, id)
		return 0, r.failNative("creating host id: %v", err)
	}
	if _, err := r.helper("__jsi_tag", f, idVal); err != nil {
		delete(r.hostFuncs, id)
		return 0, err
	}
	nameVal, err := v8.NewValue(r.iso, name)
	if err != nil {
		delete(r.hostFuncs, id)
		return 0, r.failNative("creating function name: %v", err)
	}
	lenVal, err := v8.NewValue(r.iso, int32(paramCount))
	if err != nil {
		delete(r.hostFuncs, id)
		return 0, r.failNative("creating function length: %v", err)
	}
	if _, err := r.helper("__jsi_deffn", f, nameVal, lenVal); err != nil {
		delete(r.hostFuncs, id)
		return 0, err
	}
	fobj, err := f.AsObject()
	if err != nil {
		delete(r.hostFuncs, id)
		return 0, r.failNative("function is not an object: %v", err)
	}
	return r.allocObject(fobj), nil
}

// GetHostFunction recovers the callable behind a host-backed function, or
// nil when the object is not a host function.
func (r *Runtime) GetHostFunction(o core.ObjectRef) core.HostFunction {
	obj, err := r.object(o)
	if err != nil {
		return nil
	}
	return r.hostFuncs[r.hostID(obj)]
}

func (r *Runtime) IsHostFunction(o core.ObjectRef) bool {
	obj, err := r.object(o)
	if err != nil {
		return false
	}
	_, ok := r.hostFuncs[r.hostID(obj)]
	return ok
}
