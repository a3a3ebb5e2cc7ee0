//go:build v8

package v8engine

import (
	"strings"
	"unicode/utf8"

	v8 "github.com/tommie/v8go"
	"go.uber.org/zap"

	"github.com/cryguy/jsi/internal/core"
	"github.com/cryguy/jsi/internal/handles"
)

// toCore converts an engine value into the tagged boundary representation.
// Reference kinds allocate a handle owned by the current scope.
func (r *Runtime) toCore(v *v8.Value) core.Value {
	switch {
	case v == nil || v.IsUndefined():
		return core.Undefined()
	case v.IsNull():
		return core.Null()
	case v.IsBoolean():
		return core.Bool(v.Boolean())
	case v.IsNumber():
		return core.Number(v.Number())
	case v.IsString():
		return core.FromString(core.StringRef(r.table.Alloc(handles.KindString, v.String())))
	case v.IsSymbol():
		return core.FromSymbol(core.SymbolRef(r.table.Alloc(handles.KindSymbol, v)))
	default:
		obj, err := v.AsObject()
		if err != nil {
			r.log.Debug("value is neither primitive nor object", zap.String("value", v.String()))
			return core.Undefined()
		}
		return core.FromObject(r.allocObject(obj))
	}
}

// fromCore resolves a boundary value back to an engine value.
func (r *Runtime) fromCore(v core.Value) (*v8.Value, error) {
	switch v.Kind() {
	case core.KindUndefined:
		return v8.Undefined(r.iso), nil
	case core.KindNull:
		return v8.Null(r.iso), nil
	case core.KindBoolean:
		return v8.NewValue(r.iso, v.Bool())
	case core.KindNumber:
		return v8.NewValue(r.iso, v.Number())
	case core.KindString:
		s, err := r.str(v.String())
		if err != nil {
			return nil, err
		}
		return v8.NewValue(r.iso, s)
	case core.KindSymbol:
		sym, err := r.symbol(v.Symbol())
		if err != nil {
			return nil, err
		}
		return sym, nil
	case core.KindObject:
		obj, err := r.object(v.Object())
		if err != nil {
			return nil, err
		}
		return obj.Value, nil
	default:
		return nil, r.failNative("unknown value kind %d", v.Kind())
	}
}

func (r *Runtime) allocObject(obj *v8.Object) core.ObjectRef {
	return core.ObjectRef(r.table.Alloc(handles.KindObject, obj))
}

func (r *Runtime) object(o core.ObjectRef) (*v8.Object, error) {
	v, ok := r.table.Get(handles.Handle(o), handles.KindObject)
	if !ok {
		return nil, r.failNative("invalid object handle")
	}
	return v.(*v8.Object), nil
}

func (r *Runtime) str(s core.StringRef) (string, error) {
	v, ok := r.table.Get(handles.Handle(s), handles.KindString)
	if !ok {
		return "", r.failNative("invalid string handle")
	}
	return v.(string), nil
}

func (r *Runtime) symbol(s core.SymbolRef) (*v8.Value, error) {
	v, ok := r.table.Get(handles.Handle(s), handles.KindSymbol)
	if !ok {
		return nil, r.failNative("invalid symbol handle")
	}
	return v.(*v8.Value), nil
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
	return strings.ToValidUTF8(string(b), "�")
}

func (r *Runtime) CreateString(s string) (core.StringRef, error) {
	return core.StringRef(r.table.Alloc(handles.KindString, s)), nil
}

func (r *Runtime) StringToString(s core.StringRef) (string, error) {
	return r.str(s)
}

func (r *Runtime) StringToUTF8(s core.StringRef, fn func(view []byte) error) error {
	str, err := r.str(s)
	if err != nil {
		return err
	}
	return fn([]byte(str))
}

func (r *Runtime) SymbolToString(s core.SymbolRef) (string, error) {
	sym, err := r.symbol(s)
	if err != nil {
		return "", err
	}
	out, err := r.helper("__jsi_symstr", sym)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// --- property ids ---

func (r *Runtime) CreatePropertyIDFromASCII(source core.ByteSource) (core.PropertyID, error) {
	var out core.PropertyID
	err := source.WithBytes(func(view []byte) error {
		for i, b := range view {
			if b >= utf8.RuneSelf {
				return r.failNative("non-ASCII byte 0x%02x at offset %d", b, i)
			}
		}
		out = core.PropertyID(r.table.Alloc(handles.KindPropertyID, string(view)))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return out, nil
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
	return fn([]byte(name))
}

func (r *Runtime) PropertyIDEquals(a, b core.PropertyID) bool {
	na, errA := r.propertyName(a)
	nb, errB := r.propertyName(b)
	return errA == nil && errB == nil && na == nb
}

// --- strict equality ---

// SymbolStrictEquals compares symbol identity through the engine.
func (r *Runtime) SymbolStrictEquals(a, b core.SymbolRef) bool {
	sa, errA := r.symbol(a)
	sb, errB := r.symbol(b)
	if errA != nil || errB != nil {
		return false
	}
	out, err := r.helper("__jsi_eq", sa, sb)
	return err == nil && out.Boolean()
}

func (r *Runtime) StringStrictEquals(a, b core.StringRef) bool {
	sa, errA := r.str(a)
	sb, errB := r.str(b)
	return errA == nil && errB == nil && sa == sb
}

func (r *Runtime) ObjectStrictEquals(a, b core.ObjectRef) bool {
	oa, errA := r.object(a)
	ob, errB := r.object(b)
	if errA != nil || errB != nil {
		return false
	}
	out, err := r.helper("__jsi_eq", oa, ob)
	return err == nil && out.Boolean()
}
