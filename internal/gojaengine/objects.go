//go:build !v8

package gojaengine

import (
	"strconv"
	"weak"

	"github.com/dop251/goja"

	"github.com/cryguy/jsi/internal/core"
	"github.com/cryguy/jsi/internal/handles"
)

// CreateObject returns a fresh plain object.
func (r *Runtime) CreateObject() (core.ObjectRef, error) {
	if r.closed {
		return 0, r.failNative("runtime is closed")
	}
	return r.allocObject(r.vm.NewObject()), nil
}

// GetProperty reads a named property.
func (r *Runtime) GetProperty(o core.ObjectRef, p core.PropertyID) (core.Value, error) {
	obj, err := r.object(o)
	if err != nil {
		return core.Undefined(), err
	}
	name, err := r.propertyName(p)
	if err != nil {
		return core.Undefined(), err
	}
	v, err := r.guarded(func() (goja.Value, error) {
		return obj.Get(name), nil
	})
	if err != nil {
		return core.Undefined(), err
	}
	return r.toCore(v), nil
}

// SetProperty writes a named property.
func (r *Runtime) SetProperty(o core.ObjectRef, p core.PropertyID, v core.Value) error {
	obj, err := r.object(o)
	if err != nil {
		return err
	}
	name, err := r.propertyName(p)
	if err != nil {
		return err
	}
	jv, err := r.fromCore(v)
	if err != nil {
		return err
	}
	_, err = r.guarded(func() (goja.Value, error) {
		return nil, obj.Set(name, jv)
	})
	return err
}

// HasProperty reports whether the property exists (own or inherited).
func (r *Runtime) HasProperty(o core.ObjectRef, p core.PropertyID) (bool, error) {
	obj, err := r.object(o)
	if err != nil {
		return false, err
	}
	name, err := r.propertyName(p)
	if err != nil {
		return false, err
	}
	v, err := r.guarded(func() (goja.Value, error) {
		return r.hasProp(goja.Undefined(), obj, r.vm.ToValue(name))
	})
	if err != nil {
		return false, err
	}
	return v.ToBoolean(), nil
}

// DeleteProperty removes a named property.
func (r *Runtime) DeleteProperty(o core.ObjectRef, p core.PropertyID) error {
	obj, err := r.object(o)
	if err != nil {
		return err
	}
	name, err := r.propertyName(p)
	if err != nil {
		return err
	}
	_, err = r.guarded(func() (goja.Value, error) {
		return nil, obj.Delete(name)
	})
	return err
}

// GetPropertyIDs returns the object's own enumerable keys in reflection
// order.
func (r *Runtime) GetPropertyIDs(o core.ObjectRef) ([]core.PropertyID, error) {
	obj, err := r.object(o)
	if err != nil {
		return nil, err
	}
	keys := obj.Keys()
	ids := make([]core.PropertyID, len(keys))
	for i, k := range keys {
		ids[i] = core.PropertyID(r.table.Alloc(handles.KindPropertyID, k))
	}
	return ids, nil
}

// IsArray reports whether the object is a JS array.
func (r *Runtime) IsArray(o core.ObjectRef) bool {
	obj, err := r.object(o)
	if err != nil {
		return false
	}
	v, err := r.isArray(goja.Undefined(), obj)
	return err == nil && v.ToBoolean()
}

// IsArrayBuffer reports whether the object is an ArrayBuffer.
func (r *Runtime) IsArrayBuffer(o core.ObjectRef) bool {
	obj, err := r.object(o)
	if err != nil {
		return false
	}
	_, ok := obj.Export().(goja.ArrayBuffer)
	return ok
}

// IsFunction reports whether the object is callable.
func (r *Runtime) IsFunction(o core.ObjectRef) bool {
	obj, err := r.object(o)
	if err != nil {
		return false
	}
	_, ok := goja.AssertFunction(obj)
	return ok
}

// GetArrayBufferSize returns the buffer's byte length.
func (r *Runtime) GetArrayBufferSize(o core.ObjectRef) (int, error) {
	obj, err := r.object(o)
	if err != nil {
		return 0, err
	}
	ab, ok := obj.Export().(goja.ArrayBuffer)
	if !ok {
		return 0, r.failNative("object is not an ArrayBuffer")
	}
	return len(ab.Bytes()), nil
}

// GetArrayBufferData exposes the buffer's bytes for the duration of fn
// without copying.
func (r *Runtime) GetArrayBufferData(o core.ObjectRef, fn func(view []byte) error) error {
	obj, err := r.object(o)
	if err != nil {
		return err
	}
	ab, ok := obj.Export().(goja.ArrayBuffer)
	if !ok {
		return r.failNative("object is not an ArrayBuffer")
	}
	return fn(ab.Bytes())
}

// --- weak references ---

// CreateWeakObject makes a weak reference to the target. The reference
// itself holds no claim: once every strong handle is released and the
// engine collects the target, locking yields Null.
func (r *Runtime) CreateWeakObject(o core.ObjectRef) (core.WeakObjectRef, error) {
	obj, err := r.object(o)
	if err != nil {
		return 0, err
	}
	// Weak handles are freed only by ReleaseWeakObject, never by scope exit.
	wp := weak.Make(obj)
	h := r.table.AllocRoot(handles.KindWeakObject, wp)
	return core.WeakObjectRef(h), nil
}

// LockWeakObject returns the target while it is alive, Null once collected.
func (r *Runtime) LockWeakObject(w core.WeakObjectRef) core.Value {
	v, ok := r.table.Get(handles.Handle(w), handles.KindWeakObject)
	if !ok {
		return core.Null()
	}
	obj := v.(weak.Pointer[goja.Object]).Value()
	if obj == nil {
		return core.Null()
	}
	return core.FromObject(r.allocObject(obj))
}

// ReleaseWeakObject drops the weak reference.
func (r *Runtime) ReleaseWeakObject(w core.WeakObjectRef) {
	r.release(handles.Handle(w))
}

// --- arrays ---

// CreateArray returns a new array of the given length.
func (r *Runtime) CreateArray(length int) (core.ObjectRef, error) {
	if r.closed {
		return 0, r.failNative("runtime is closed")
	}
	arr := r.vm.NewArray()
	if err := arr.Set("length", length); err != nil {
		return 0, r.fail(r.jsError(err))
	}
	return r.allocObject(arr), nil
}

// ArraySize returns the array's length.
func (r *Runtime) ArraySize(o core.ObjectRef) (int, error) {
	obj, err := r.object(o)
	if err != nil {
		return 0, err
	}
	length := obj.Get("length")
	if length == nil {
		return 0, r.failNative("object has no length")
	}
	return int(length.ToInteger()), nil
}

// GetValueAtIndex reads arr[i].
func (r *Runtime) GetValueAtIndex(o core.ObjectRef, i int) (core.Value, error) {
	obj, err := r.object(o)
	if err != nil {
		return core.Undefined(), err
	}
	v, err := r.guarded(func() (goja.Value, error) {
		return obj.Get(strconv.Itoa(i)), nil
	})
	if err != nil {
		return core.Undefined(), err
	}
	return r.toCore(v), nil
}

// SetValueAtIndex writes arr[i].
func (r *Runtime) SetValueAtIndex(o core.ObjectRef, i int, v core.Value) error {
	obj, err := r.object(o)
	if err != nil {
		return err
	}
	jv, err := r.fromCore(v)
	if err != nil {
		return err
	}
	_, err = r.guarded(func() (goja.Value, error) {
		return nil, obj.Set(strconv.Itoa(i), jv)
	})
	return err
}

// --- calls ---

// Call invokes fn with the given this and arguments.
func (r *Runtime) Call(fn core.ObjectRef, this core.Value, args []core.Value) (core.Value, error) {
	obj, err := r.object(fn)
	if err != nil {
		return core.Undefined(), err
	}
	callable, ok := goja.AssertFunction(obj)
	if !ok {
		return core.Undefined(), r.failNative("object is not callable")
	}
	jsThis, err := r.fromCore(this)
	if err != nil {
		return core.Undefined(), err
	}
	jsArgs, err := r.fromCoreSlice(args)
	if err != nil {
		return core.Undefined(), err
	}
	result, err := callable(jsThis, jsArgs...)
	if err != nil {
		return core.Undefined(), r.fail(r.jsError(err))
	}
	return r.toCore(result), nil
}

// CallAsConstructor invokes fn with new semantics.
func (r *Runtime) CallAsConstructor(fn core.ObjectRef, args []core.Value) (core.Value, error) {
	obj, err := r.object(fn)
	if err != nil {
		return core.Undefined(), err
	}
	jsArgs, err := r.fromCoreSlice(args)
	if err != nil {
		return core.Undefined(), err
	}
	result, err := r.vm.New(obj, jsArgs...)
	if err != nil {
		return core.Undefined(), r.fail(r.jsError(err))
	}
	return core.FromObject(r.allocObject(result)), nil
}

// InstanceOf delegates to the engine's instanceof semantics.
func (r *Runtime) InstanceOf(o core.ObjectRef, ctor core.ObjectRef) (bool, error) {
	obj, err := r.object(o)
	if err != nil {
		return false, err
	}
	ctorObj, err := r.object(ctor)
	if err != nil {
		return false, err
	}
	v, err := r.instanceOf(goja.Undefined(), obj, ctorObj)
	if err != nil {
		return false, r.fail(r.jsError(err))
	}
	return v.ToBoolean(), nil
}

func (r *Runtime) fromCoreSlice(args []core.Value) ([]goja.Value, error) {
	out := make([]goja.Value, len(args))
	for i, a := range args {
		v, err := r.fromCore(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// guarded runs fn and converts a goja panic (a thrown JS value escaping a
// native accessor) into a contract error instead of unwinding the host.
func (r *Runtime) guarded(fn func() (goja.Value, error)) (result goja.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			if ex, ok := p.(*goja.Exception); ok {
				err = r.fail(r.jsError(ex))
				return
			}
			panic(p)
		}
	}()
	result, err = fn()
	if err != nil {
		err = r.fail(r.jsError(err))
	}
	return result, err
}
