//go:build !v8

package gojaengine

import (
	"strings"
	"unicode/utf8"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/cryguy/jsi/internal/core"
	"github.com/cryguy/jsi/internal/handles"
)

// toCore converts an engine value into the boundary representation,
// allocating scope-owned handles for symbols, strings and objects.
func (r *Runtime) toCore(v goja.Value) core.Value {
	if v == nil || goja.IsUndefined(v) {
		return core.Undefined()
	}
	if goja.IsNull(v) {
		return core.Null()
	}
	if obj, ok := v.(*goja.Object); ok {
		return core.FromObject(r.allocObject(obj))
	}
	if sym, ok := v.(*goja.Symbol); ok {
		h := r.table.Alloc(handles.KindSymbol, sym)
		return core.FromSymbol(core.SymbolRef(h))
	}
	switch exported := v.Export().(type) {
	case bool:
		return core.Bool(exported)
	case int64:
		return core.Number(float64(exported))
	case float64:
		return core.Number(exported)
	case string:
		h := r.table.Alloc(handles.KindString, exported)
		return core.FromString(core.StringRef(h))
	default:
		// Anything else (e.g. exotic exports) is still an object to JS.
		return core.FromObject(r.allocObject(v.ToObject(r.vm)))
	}
}

// fromCore converts a boundary value back into an engine value, validating
// any handle it carries.
func (r *Runtime) fromCore(v core.Value) (goja.Value, error) {
	switch v.Kind() {
	case core.KindUndefined:
		return goja.Undefined(), nil
	case core.KindNull:
		return goja.Null(), nil
	case core.KindBoolean:
		return r.vm.ToValue(v.Bool()), nil
	case core.KindNumber:
		return r.vm.ToValue(v.Number()), nil
	case core.KindSymbol:
		sym, err := r.symbol(v.Symbol())
		if err != nil {
			return nil, err
		}
		return sym, nil
	case core.KindString:
		s, err := r.str(v.String())
		if err != nil {
			return nil, err
		}
		return r.vm.ToValue(s), nil
	case core.KindObject:
		return r.object(v.Object())
	default:
		return nil, r.failNative("value of unknown kind %d", v.Kind())
	}
}

func (r *Runtime) allocObject(obj *goja.Object) core.ObjectRef {
	return core.ObjectRef(r.table.Alloc(handles.KindObject, obj))
}

// object dereferences an object handle, validating generation and kind.
func (r *Runtime) object(o core.ObjectRef) (*goja.Object, error) {
	v, ok := r.table.Get(handles.Handle(o), handles.KindObject)
	if !ok {
		return nil, r.failNative("invalid object handle")
	}
	return v.(*goja.Object), nil
}

func (r *Runtime) str(s core.StringRef) (string, error) {
	v, ok := r.table.Get(handles.Handle(s), handles.KindString)
	if !ok {
		return "", r.failNative("invalid string handle")
	}
	return v.(string), nil
}

func (r *Runtime) symbol(s core.SymbolRef) (*goja.Symbol, error) {
	v, ok := r.table.Get(handles.Handle(s), handles.KindSymbol)
	if !ok {
		return nil, r.failNative("invalid symbol handle")
	}
	return v.(*goja.Symbol), nil
}

func (r *Runtime) propertyName(p core.PropertyID) (string, error) {
	v, ok := r.table.Get(handles.Handle(p), handles.KindPropertyID)
	if !ok {
		return "", r.failNative("invalid property id handle")
	}
	return v.(string), nil
}

// --- clone / release / promote ---

func (r *Runtime) clone(h handles.Handle, kind handles.Kind) handles.Handle {
	out, ok := r.table.Clone(h, kind)
	if !ok {
		r.log.Debug("clone of invalid handle", zap.Uint64("handle", uint64(h)))
		return 0
	}
	return out
}

func (r *Runtime) promote(h handles.Handle, kind handles.Kind) handles.Handle {
	out, ok := r.table.Promote(h, kind)
	if !ok {
		r.log.Debug("promote of invalid handle", zap.Uint64("handle", uint64(h)))
		return 0
	}
	return out
}

func (r *Runtime) release(h handles.Handle) {
	if !r.table.Release(h) {
		r.log.Debug("release of invalid handle", zap.Uint64("handle", uint64(h)))
	}
}

func (r *Runtime) CloneSymbol(s core.SymbolRef) core.SymbolRef {
	return core.SymbolRef(r.clone(handles.Handle(s), handles.KindSymbol))
}

func (r *Runtime) CloneString(s core.StringRef) core.StringRef {
	return core.StringRef(r.clone(handles.Handle(s), handles.KindString))
}

func (r *Runtime) CloneObject(o core.ObjectRef) core.ObjectRef {
	return core.ObjectRef(r.clone(handles.Handle(o), handles.KindObject))
}

func (r *Runtime) ClonePropertyID(p core.PropertyID) core.PropertyID {
	return core.PropertyID(r.clone(handles.Handle(p), handles.KindPropertyID))
}

func (r *Runtime) ReleaseSymbol(s core.SymbolRef) { r.release(handles.Handle(s)) }
func (r *Runtime) ReleaseString(s core.StringRef) { r.release(handles.Handle(s)) }
func (r *Runtime) ReleaseObject(o core.ObjectRef) { r.release(handles.Handle(o)) }
func (r *Runtime) ReleasePropertyID(p core.PropertyID) { r.release(handles.Handle(p)) }

func (r *Runtime) PromoteSymbol(s core.SymbolRef) core.SymbolRef {
	return core.SymbolRef(r.promote(handles.Handle(s), handles.KindSymbol))
}

func (r *Runtime) PromoteString(s core.StringRef) core.StringRef {
	return core.StringRef(r.promote(handles.Handle(s), handles.KindString))
}

func (r *Runtime) PromoteObject(o core.ObjectRef) core.ObjectRef {
	return core.ObjectRef(r.promote(handles.Handle(o), handles.KindObject))
}

func (r *Runtime) PromotePropertyID(p core.PropertyID) core.PropertyID {
	return core.PropertyID(r.promote(handles.Handle(p), handles.KindPropertyID))
}

// --- strings and symbols ---

// CreateStringFromASCII rejects non-ASCII bytes.
func (r *Runtime) CreateStringFromASCII(source core.ByteSource) (core.StringRef, error) {
	var out core.StringRef
	err := source.WithBytes(func(view []byte) error {
		for i, b := range view {
			if b >= utf8.RuneSelf {
				return r.failNative("non-ASCII byte 0x%02x at offset %d", b, i)
			}
		}
		out = core.StringRef(r.table.Alloc(handles.KindString, string(view)))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return out, nil
}

// CreateStringFromUTF8 substitutes U+FFFD for malformed sequences.
func (r *Runtime) CreateStringFromUTF8(source core.ByteSource) (core.StringRef, error) {
	var out core.StringRef
	err := source.WithBytes(func(view []byte) error {
		out = core.StringRef(r.table.Alloc(handles.KindString, sanitizeUTF8(view)))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return out, nil
}

func sanitizeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

// CreateString creates an engine string from a native string.
func (r *Runtime) CreateString(s string) (core.StringRef, error) {
	return core.StringRef(r.table.Alloc(handles.KindString, s)), nil
}

// StringToString copies the engine string out.
func (r *Runtime) StringToString(s core.StringRef) (string, error) {
	return r.str(s)
}

// StringToUTF8 exposes the string's bytes for the duration of fn.
func (r *Runtime) StringToUTF8(s core.StringRef, fn func(view []byte) error) error {
	str, err := r.str(s)
	if err != nil {
		return err
	}
	return core.StringSource(str).WithBytes(fn)
}

// SymbolToString returns the symbol's string form.
func (r *Runtime) SymbolToString(s core.SymbolRef) (string, error) {
	sym, err := r.symbol(s)
	if err != nil {
		return "", err
	}
	return sym.String(), nil
}

// --- property ids ---

func (r *Runtime) CreatePropertyIDFromASCII(source core.ByteSource) (core.PropertyID, error) {
	s, err := r.CreateStringFromASCII(source)
	if err != nil {
		return 0, err
	}
	defer r.ReleaseString(s)
	return r.CreatePropertyIDFromString(s)
}

func (r *Runtime) CreatePropertyIDFromUTF8(source core.ByteSource) (core.PropertyID, error) {
	var out core.PropertyID
	err := source.WithBytes(func(view []byte) error {
		out = core.PropertyID(r.table.Alloc(handles.KindPropertyID, sanitizeUTF8(view)))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return out, nil
}

func (r *Runtime) CreatePropertyID(name string) (core.PropertyID, error) {
	return core.PropertyID(r.table.Alloc(handles.KindPropertyID, name)), nil
}

func (r *Runtime) CreatePropertyIDFromString(s core.StringRef) (core.PropertyID, error) {
	str, err := r.str(s)
	if err != nil {
		return 0, err
	}
	return core.PropertyID(r.table.Alloc(handles.KindPropertyID, str)), nil
}

func (r *Runtime) PropertyIDToString(p core.PropertyID) (string, error) {
	return r.propertyName(p)
}

func (r *Runtime) PropertyIDToUTF8(p core.PropertyID, fn func(view []byte) error) error {
	name, err := r.propertyName(p)
	if err != nil {
		return err
	}
	return core.StringSource(name).WithBytes(fn)
}

// PropertyIDEquals compares the interned keys, not the handle values.
func (r *Runtime) PropertyIDEquals(a, b core.PropertyID) bool {
	an, errA := r.propertyName(a)
	bn, errB := r.propertyName(b)
	return errA == nil && errB == nil && an == bn
}

// --- identity ---

// SymbolStrictEquals compares symbol identity.
func (r *Runtime) SymbolStrictEquals(a, b core.SymbolRef) bool {
	as, errA := r.symbol(a)
	bs, errB := r.symbol(b)
	return errA == nil && errB == nil && as == bs
}

// StringStrictEquals compares string contents, matching === on strings.
func (r *Runtime) StringStrictEquals(a, b core.StringRef) bool {
	as, errA := r.str(a)
	bs, errB := r.str(b)
	return errA == nil && errB == nil && as == bs
}

// ObjectStrictEquals compares object identity.
func (r *Runtime) ObjectStrictEquals(a, b core.ObjectRef) bool {
	ao, errA := r.object(a)
	bo, errB := r.object(b)
	return errA == nil && errB == nil && ao == bo
}
