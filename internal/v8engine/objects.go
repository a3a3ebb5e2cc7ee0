//go:build v8

package v8engine

import (
	"strconv"
	"strings"

	v8 "github.com/tommie/v8go"

	"github.com/cryguy/jsi/internal/core"
	"github.com/cryguy/jsi/internal/handles"
)

// CreateObject makes a fresh plain object.
func (r *Runtime) CreateObject() (core.ObjectRef, error) {
	tmpl := v8.NewObjectTemplate(r.iso)
	obj, err := tmpl.NewInstance(r.ctx)
	if err != nil {
		return 0, r.failNative("creating object: %v", err)
	}
	return r.allocObject(obj), nil
}

// --- properties ---

func (r *Runtime) GetProperty(o core.ObjectRef, p core.PropertyID) (core.Value, error) {
	obj, err := r.object(o)
	if err != nil {
		return core.Undefined(), err
	}
	name, err := r.propertyName(p)
	if err != nil {
		return core.Undefined(), err
	}
	v, err := obj.Get(name)
	if err != nil {
		return core.Undefined(), r.fail(r.jsError(err))
	}
	return r.toCore(v), nil
}

func (r *Runtime) SetProperty(o core.ObjectRef, p core.PropertyID, v core.Value) error {
	obj, err := r.object(o)
	if err != nil {
		return err
	}
	name, err := r.propertyName(p)
	if err != nil {
		return err
	}
	ev, err := r.fromCore(v)
	if err != nil {
		return err
	}
	if err := obj.Set(name, ev); err != nil {
		return r.fail(r.jsError(err))
	}
	return nil
}

func (r *Runtime) HasProperty(o core.ObjectRef, p core.PropertyID) (bool, error) {
	obj, err := r.object(o)
	if err != nil {
		return false, err
	}
	name, err := r.propertyName(p)
	if err != nil {
		return false, err
	}
	return obj.Has(name), nil
}

func (r *Runtime) DeleteProperty(o core.ObjectRef, p core.PropertyID) error {
	obj, err := r.object(o)
	if err != nil {
		return err
	}
	name, err := r.propertyName(p)
	if err != nil {
		return err
	}
	obj.Delete(name)
	return nil
}

// GetPropertyIDs returns the object's own enumerable string keys.
func (r *Runtime) GetPropertyIDs(o core.ObjectRef) ([]core.PropertyID, error) {
	obj, err := r.object(o)
	if err != nil {
		return nil, err
	}
	keys, err := r.helper("__jsi_keys", obj)
	if err != nil {
		return nil, err
	}
	arr, err := keys.AsObject()
	if err != nil {
		return nil, r.failNative("key list is not an object: %v", err)
	}
	n, err := r.arrayLength(arr)
	if err != nil {
		return nil, err
	}
	ids := make([]core.PropertyID, 0, n)
	for i := 0; i < n; i++ {
		kv, err := arr.GetIdx(uint32(i))
		if err != nil {
			return nil, r.fail(r.jsError(err))
		}
		ids = append(ids, core.PropertyID(r.table.Alloc(handles.KindPropertyID, kv.String())))
	}
	return ids, nil
}

// --- predicates ---

func (r *Runtime) IsArray(o core.ObjectRef) bool {
	obj, err := r.object(o)
	if err != nil {
		return false
	}
	out, err := r.helper("__jsi_isarray", obj)
	return err == nil && out.Boolean()
}

func (r *Runtime) IsArrayBuffer(o core.ObjectRef) bool {
	obj, err := r.object(o)
	if err != nil {
		return false
	}
	out, err := r.helper("__jsi_isab", obj)
	return err == nil && out.Boolean()
}

func (r *Runtime) IsFunction(o core.ObjectRef) bool {
	obj, err := r.object(o)
	if err != nil {
		return false
	}
	return obj.IsFunction()
}

// --- array buffers ---

func (r *Runtime) GetArrayBufferSize(o core.ObjectRef) (int, error) {
	obj, err := r.object(o)
	if err != nil {
		return 0, err
	}
	out, err := r.helper("__jsi_absize", obj)
	if err != nil {
		return 0, err
	}
	return int(out.Number()), nil
}

// GetArrayBufferData reads the buffer contents. v8go exposes no direct
// backing-store view, so the bytes cross the boundary as a joined decimal
// string and the callback observes a copy.
func (r *Runtime) GetArrayBufferData(o core.ObjectRef, fn func(view []byte) error) error {
	obj, err := r.object(o)
	if err != nil {
		return err
	}
	out, err := r.helper("__jsi_abjoin", obj)
	if err != nil {
		return err
	}
	joined := out.String()
	if joined == "" {
		return fn(nil)
	}
	parts := strings.Split(joined, ",")
	buf := make([]byte, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return r.failNative("malformed buffer byte %q: %v", p, err)
		}
		buf[i] = byte(n)
	}
	return fn(buf)
}

// --- weak references ---

func (r *Runtime) CreateWeakObject(o core.ObjectRef) (core.WeakObjectRef, error) {
	obj, err := r.object(o)
	if err != nil {
		return 0, err
	}
	out, err := r.helper("__jsi_mkweak", obj)
	if err != nil {
		return 0, err
	}
	wr, err := out.AsObject()
	if err != nil {
		return 0, r.failNative("WeakRef result is not an object: %v", err)
	}
	// Weak handles are freed only by ReleaseWeakObject, never by scope exit.
	return core.WeakObjectRef(r.table.AllocRoot(handles.KindWeakObject, wr)), nil
}

// LockWeakObject returns the referent, or Null once it has been collected.
func (r *Runtime) LockWeakObject(w core.WeakObjectRef) core.Value {
	v, ok := r.table.Get(handles.Handle(w), handles.KindWeakObject)
	if !ok {
		// No error return and the slot stays untouched: a deposit here
		// could surface later as a spurious throw from a host callback.
		r.log.Debug("lock on a stale weak object handle")
		return core.Null()
	}
	out, err := r.helper("__jsi_deref", v.(*v8.Object))
	if err != nil {
		return core.Null()
	}
	if out.IsNull() {
		return core.Null()
	}
	return r.toCore(out)
}

func (r *Runtime) ReleaseWeakObject(w core.WeakObjectRef) {
	r.release(handles.Handle(w))
}

// --- arrays ---

func (r *Runtime) CreateArray(length int) (core.ObjectRef, error) {
	n, err := v8.NewValue(r.iso, int32(length))
	if err != nil {
		return 0, r.failNative("creating array length: %v", err)
	}
	out, err := r.helper("__jsi_mkarray", n)
	if err != nil {
		return 0, err
	}
	arr, err := out.AsObject()
	if err != nil {
		return 0, r.failNative("array result is not an object: %v", err)
	}
	return r.allocObject(arr), nil
}

func (r *Runtime) arrayLength(obj *v8.Object) (int, error) {
	length, err := obj.Get("length")
	if err != nil {
		return 0, r.fail(r.jsError(err))
	}
	return int(length.Number()), nil
}

func (r *Runtime) ArraySize(o core.ObjectRef) (int, error) {
	obj, err := r.object(o)
	if err != nil {
		return 0, err
	}
	return r.arrayLength(obj)
}

func (r *Runtime) GetValueAtIndex(o core.ObjectRef, index int) (core.Value, error) {
	obj, err := r.object(o)
	if err != nil {
		return core.Undefined(), err
	}
	if index < 0 {
		return core.Undefined(), r.failNative("negative array index %d", index)
	}
	v, err := obj.GetIdx(uint32(index))
	if err != nil {
		return core.Undefined(), r.fail(r.jsError(err))
	}
	return r.toCore(v), nil
}

func (r *Runtime) SetValueAtIndex(o core.ObjectRef, index int, v core.Value) error {
	obj, err := r.object(o)
	if err != nil {
		return err
	}
	if index < 0 {
		return r.failNative("negative array index %d", index)
	}
	ev, err := r.fromCore(v)
	if err != nil {
		return err
	}
	if err := obj.SetIdx(uint32(index), ev); err != nil {
		return r.fail(r.jsError(err))
	}
	return nil
}

// --- calls ---

func (r *Runtime) fromCoreSlice(args []core.Value) ([]v8.Valuer, error) {
	out := make([]v8.Valuer, len(args))
	for i, a := range args {
		v, err := r.fromCore(a)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (r *Runtime) Call(fn core.ObjectRef, this core.Value, args []core.Value) (core.Value, error) {
	obj, err := r.object(fn)
	if err != nil {
		return core.Undefined(), err
	}
	if _, err := obj.AsFunction(); err != nil {
		return core.Undefined(), r.failNative("object is not callable: %v", err)
	}
	thisVal, err := r.fromCore(this)
	if err != nil {
		return core.Undefined(), err
	}
	eargs, err := r.fromCoreSlice(args)
	if err != nil {
		return core.Undefined(), err
	}
	// The apply helper captures a thrown value before rethrowing, so the
	// contract error carries it.
	out, err := r.helper("__jsi_apply", append([]v8.Valuer{obj, thisVal}, eargs...)...)
	if err != nil {
		return core.Undefined(), err
	}
	return r.toCore(out), nil
}

func (r *Runtime) CallAsConstructor(fn core.ObjectRef, args []core.Value) (core.Value, error) {
	obj, err := r.object(fn)
	if err != nil {
		return core.Undefined(), err
	}
	if _, err := obj.AsFunction(); err != nil {
		return core.Undefined(), r.failNative("object is not a constructor: %v", err)
	}
	eargs, err := r.fromCoreSlice(args)
	if err != nil {
		return core.Undefined(), err
	}
	out, err := r.helper("__jsi_construct", append([]v8.Valuer{obj}, eargs...)...)
	if err != nil {
		return core.Undefined(), err
	}
	instance, err := out.AsObject()
	if err != nil {
		return core.Undefined(), r.failNative("constructed value is not an object: %v", err)
	}
	return core.FromObject(r.allocObject(instance)), nil
}

func (r *Runtime) InstanceOf(o core.ObjectRef, ctor core.ObjectRef) (bool, error) {
	obj, err := r.object(o)
	if err != nil {
		return false, err
	}
	c, err := r.object(ctor)
	if err != nil {
		return false, err
	}
	out, err := r.helper("__jsi_instanceof", obj, c)
	if err != nil {
		return false, err
	}
	return out.Boolean(), nil
}
