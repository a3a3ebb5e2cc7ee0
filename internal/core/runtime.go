package core

// Runtime is the engine-neutral boundary contract. One instance binds one
// concrete engine. All operations are synchronous and must be serialized by
// the host: a runtime instance is single-threaded-at-a-time, but host
// callbacks invoked during JS execution may re-enter it on the same call
// stack. Re-entrancy is the dominant interaction pattern, not an edge case.
//
// Fallible operations return a Go error (always a *Error) and also deposit
// the same *Error in the instance's current-error slot, so both the
// Go-idiomatic path and the drain-style GetAndClearError path observe one
// state.
type Runtime interface {
	// Description names the engine backing this instance.
	Description() string

	// Close releases every live handle and shuts the engine down. The
	// runtime must not be used afterwards.
	Close() error

	// --- Evaluation ---

	// EvaluateJavaScript parses and runs source in one step. sourceURL is
	// used only for diagnostics and stack traces.
	EvaluateJavaScript(source ByteSource, sourceURL string) (Value, error)

	// PrepareJavaScript parses source once for repeated evaluation.
	// Semantically equivalent to evaluating the source directly each time;
	// the split is purely a performance path.
	PrepareJavaScript(source ByteSource, sourceURL string) (PreparedScript, error)

	// EvaluatePreparedJavaScript runs a previously prepared script.
	EvaluatePreparedJavaScript(script PreparedScript) (Value, error)

	// ReleasePreparedScript frees a prepared script. Prepared scripts are
	// never freed by scope exit.
	ReleasePreparedScript(script PreparedScript)

	// Global returns the top-level object. The returned handle is owned by
	// the current scope like any other.
	Global() ObjectRef

	// CreateValueFromJSON parses JSON text with JSON.parse semantics.
	CreateValueFromJSON(source ByteSource) (Value, error)

	// --- Scopes ---

	// PushScope opens a lifetime region and returns its marker. Handles
	// created while the region is open belong to it.
	PushScope() ScopeState

	// PopScope closes the region opened by the matching PushScope,
	// releasing every handle created since, except handles promoted to an
	// ancestor scope. Scopes nest strictly: popping a state that is not the
	// current top is a fatal NativeException (popping the outermost root
	// marker is a no-op).
	PopScope(state ScopeState) error

	// --- Clone / release / promote ---
	// Clone* takes an additional claim on the same engine entity and
	// returns a new handle owned by the current scope. Release* drops one
	// claim. Promote* clones the handle into the immediately enclosing
	// scope so it survives the current scope's pop.

	CloneSymbol(s SymbolRef) SymbolRef
	CloneString(s StringRef) StringRef
	CloneObject(o ObjectRef) ObjectRef
	ClonePropertyID(p PropertyID) PropertyID

	ReleaseSymbol(s SymbolRef)
	ReleaseString(s StringRef)
	ReleaseObject(o ObjectRef)
	ReleasePropertyID(p PropertyID)

	PromoteSymbol(s SymbolRef) SymbolRef
	PromoteString(s StringRef) StringRef
	PromoteObject(o ObjectRef) ObjectRef
	PromotePropertyID(p PropertyID) PropertyID

	// --- Strings and symbols ---

	// CreateStringFromASCII fails with a NativeException if the source
	// contains non-ASCII bytes.
	CreateStringFromASCII(source ByteSource) (StringRef, error)

	// CreateStringFromUTF8 substitutes U+FFFD for malformed sequences.
	CreateStringFromUTF8(source ByteSource) (StringRef, error)

	// CreateString creates an engine string from a native string.
	CreateString(s string) (StringRef, error)

	// StringToString copies the engine string out as a native string.
	StringToString(s StringRef) (string, error)

	// StringToUTF8 exposes the string's UTF-8 bytes through a zero-copy
	// view valid only for the duration of fn.
	StringToUTF8(s StringRef, fn func(view []byte) error) error

	// SymbolToString returns the symbol's description.
	SymbolToString(s SymbolRef) (string, error)

	// --- Property IDs ---

	CreatePropertyIDFromASCII(source ByteSource) (PropertyID, error)
	CreatePropertyIDFromUTF8(source ByteSource) (PropertyID, error)
	CreatePropertyID(name string) (PropertyID, error)
	CreatePropertyIDFromString(s StringRef) (PropertyID, error)

	PropertyIDToString(p PropertyID) (string, error)
	PropertyIDToUTF8(p PropertyID, fn func(view []byte) error) error

	// PropertyIDEquals compares the interned keys, not the handles.
	PropertyIDEquals(a, b PropertyID) bool

	// --- Objects ---

	CreateObject() (ObjectRef, error)

	// CreateObjectWithHostObject installs a native object into JS. The
	// returned object answers IsHostObject and round-trips through
	// GetHostObject.
	CreateObjectWithHostObject(h HostObject) (ObjectRef, error)

	// GetHostObject recovers the native implementation behind a host
	// object, or nil if the object is not host-backed.
	GetHostObject(o ObjectRef) HostObject

	// GetHostFunction recovers the native callable behind a host function,
	// or nil if the object is not a host function.
	GetHostFunction(o ObjectRef) HostFunction

	IsHostObject(o ObjectRef) bool
	IsHostFunction(o ObjectRef) bool

	GetProperty(o ObjectRef, p PropertyID) (Value, error)
	SetProperty(o ObjectRef, p PropertyID, v Value) error
	HasProperty(o ObjectRef, p PropertyID) (bool, error)
	DeleteProperty(o ObjectRef, p PropertyID) error

	// GetPropertyIDs returns the object's own enumerable keys in JS
	// reflection order.
	GetPropertyIDs(o ObjectRef) ([]PropertyID, error)

	IsArray(o ObjectRef) bool
	IsArrayBuffer(o ObjectRef) bool
	IsFunction(o ObjectRef) bool

	// GetArrayBufferSize returns the buffer's byte length.
	GetArrayBufferSize(o ObjectRef) (int, error)

	// GetArrayBufferData exposes the buffer contents through a zero-copy
	// view valid only for the duration of fn.
	GetArrayBufferData(o ObjectRef, fn func(view []byte) error) error

	// --- Weak references ---

	// CreateWeakObject makes a non-owning reference to the target. Weak
	// handles are freed only by ReleaseWeakObject, never by scope exit.
	CreateWeakObject(o ObjectRef) (WeakObjectRef, error)

	// LockWeakObject returns the target as an Object value while it is
	// still alive, and Null once it has been collected.
	LockWeakObject(w WeakObjectRef) Value

	ReleaseWeakObject(w WeakObjectRef)

	// --- Arrays ---

	CreateArray(length int) (ObjectRef, error)
	ArraySize(o ObjectRef) (int, error)
	GetValueAtIndex(o ObjectRef, i int) (Value, error)
	SetValueAtIndex(o ObjectRef, i int, v Value) error

	// --- Functions ---

	// CreateFunctionFromHostFunction installs fn as a JS function with the
	// given name and declared parameter count.
	CreateFunctionFromHostFunction(name string, paramCount int, fn HostFunction) (ObjectRef, error)

	Call(fn ObjectRef, this Value, args []Value) (Value, error)
	CallAsConstructor(fn ObjectRef, args []Value) (Value, error)

	// --- Identity and type tests ---

	SymbolStrictEquals(a, b SymbolRef) bool
	StringStrictEquals(a, b StringRef) bool
	ObjectStrictEquals(a, b ObjectRef) bool

	// InstanceOf delegates to the engine's instanceof semantics.
	InstanceOf(o ObjectRef, ctor ObjectRef) (bool, error)

	// --- Error channel ---

	// SetError overwrites the instance's current-error slot. Last write
	// wins; an uncleared previous error is silently discarded.
	SetError(errType ErrorType, details string, value Value)

	// GetAndClearError reads and clears the slot in one step. Returns nil
	// when no error is pending.
	GetAndClearError() *Error
}
