package jsi

import "github.com/cryguy/jsi/internal/core"

// Type aliases re-exporting internal/core types so downstream code
// can use jsi.Value, jsi.Runtime, etc. without importing the internal
// package directly.

type Runtime = core.Runtime
type Config = core.Config
type Value = core.Value
type Kind = core.Kind
type SymbolRef = core.SymbolRef
type StringRef = core.StringRef
type ObjectRef = core.ObjectRef
type WeakObjectRef = core.WeakObjectRef
type PropertyID = core.PropertyID
type ScopeState = core.ScopeState
type PreparedScript = core.PreparedScript
type ByteSource = core.ByteSource
type Bytes = core.Bytes
type StringSource = core.StringSource
type HostObject = core.HostObject
type HostFunction = core.HostFunction
type Error = core.Error
type ErrorType = core.ErrorType

// Value kinds re-exported from core.
const (
	KindUndefined = core.KindUndefined
	KindNull      = core.KindNull
	KindBoolean   = core.KindBoolean
	KindNumber    = core.KindNumber
	KindSymbol    = core.KindSymbol
	KindString    = core.KindString
	KindObject    = core.KindObject
)

// Error channels re-exported from core.
const (
	JSError         = core.JSError
	NativeException = core.NativeException
)

const DefaultCacheSize = core.DefaultCacheSize

// Value constructors re-exported from core.
var (
	Undefined  = core.Undefined
	Null       = core.Null
	Bool       = core.Bool
	Number     = core.Number
	FromSymbol = core.FromSymbol
	FromString = core.FromString
	FromObject = core.FromObject
)

// Byte-source helpers re-exported from core.
var (
	CopyBytes    = core.CopyBytes
	SourceString = core.SourceString
)

var NewNativeError = core.NewNativeError
