package core

// HostFunction is a native callable installed into JS via
// CreateFunctionFromHostFunction. It runs synchronously on the thread
// executing JS and may re-enter the runtime freely. Returning a non-nil
// error, or calling SetError and returning Undefined, makes the adapter
// raise an engine-native throw at the JS call site.
type HostFunction func(rt Runtime, this Value, args []Value) (Value, error)

// HostObject exposes a native object into JS. All three methods run
// synchronously during JS execution and may re-enter the runtime.
type HostObject interface {
	// Get returns the value of the named property. Unknown properties
	// should return Undefined, not an error.
	Get(rt Runtime, name PropertyID) (Value, error)

	// Set stores a property value.
	Set(rt Runtime, name PropertyID, value Value) error

	// PropertyIDs returns the object's own property keys in the order JS
	// reflection will observe them. The order must be stable for a given
	// instance unless properties are added or removed.
	PropertyIDs(rt Runtime) []PropertyID
}
