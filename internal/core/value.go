package core

import (
	"fmt"
	"math"
)

// Kind discriminates the variants of a Value.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBoolean
	KindNumber
	KindSymbol
	KindString
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindNumber:
		return "number"
	case KindSymbol:
		return "symbol"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Value is a tagged union over every JavaScript value an engine can hand
// across the boundary. Boolean and Number payloads are encoded inline;
// Symbol, String and Object payloads carry an opaque engine handle that the
// holder must release (directly or via scope exit).
type Value struct {
	kind    Kind
	payload uint64
}

// Undefined returns the undefined value.
func Undefined() Value { return Value{kind: KindUndefined} }

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value {
	v := Value{kind: KindBoolean}
	if b {
		v.payload = 1
	}
	return v
}

// Number returns a number value. The float64 is packed into the payload bit
// for bit, so NaN payloads and negative zero survive the round trip.
func Number(f float64) Value {
	return Value{kind: KindNumber, payload: math.Float64bits(f)}
}

// FromSymbol wraps a symbol handle as a Value. The Value aliases the handle;
// it does not take an additional claim.
func FromSymbol(s SymbolRef) Value { return Value{kind: KindSymbol, payload: uint64(s)} }

// FromString wraps a string handle as a Value.
func FromString(s StringRef) Value { return Value{kind: KindString, payload: uint64(s)} }

// FromObject wraps an object handle as a Value.
func FromObject(o ObjectRef) Value { return Value{kind: KindObject, payload: uint64(o)} }

// Kind reports which variant the value holds.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether the value is undefined.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean payload. It is only meaningful for KindBoolean.
func (v Value) Bool() bool { return v.payload != 0 }

// Number returns the number payload. It is only meaningful for KindNumber.
func (v Value) Number() float64 { return math.Float64frombits(v.payload) }

// Symbol returns the symbol handle. It is only meaningful for KindSymbol.
func (v Value) Symbol() SymbolRef { return SymbolRef(v.payload) }

// String returns the string handle. It is only meaningful for KindString.
func (v Value) String() StringRef { return StringRef(v.payload) }

// Object returns the object handle. It is only meaningful for KindObject.
func (v Value) Object() ObjectRef { return ObjectRef(v.payload) }
