package core

// Opaque 64-bit handles denoting engine-managed entities. A handle is a
// logical claim on the engine's internal store: the holder releases it
// exactly once, either explicitly or by letting its owning scope pop.
// Handles are never raw pointers; adapters map them through a validating
// table so a stale handle fails instead of corrupting memory.

// SymbolRef is a handle to an engine symbol.
type SymbolRef uint64

// StringRef is a handle to an engine string.
type StringRef uint64

// ObjectRef is a handle to an engine object.
type ObjectRef uint64

// WeakObjectRef is a handle to a weak reference. It never keeps its target
// alive; locking it after the target was collected yields Null.
type WeakObjectRef uint64

// PropertyID is a handle to an interned property key.
type PropertyID uint64

// ScopeState marks a position in a runtime's scope stack at the moment
// PushScope captured it.
type ScopeState uint64

// PreparedScript is a handle to a compiled script. Prepared scripts are not
// scope-owned: they outlive any scope and are freed only by explicit
// release.
type PreparedScript uint64
