package core

import "fmt"

// ErrorType separates JS-thrown exceptions from faults in native code.
type ErrorType uint8

const (
	// JSError is a value thrown by JavaScript code. Value, Message and
	// Stack are meaningful.
	JSError ErrorType = iota

	// NativeException originates on the native side: malformed input, a
	// stale handle, a scope-discipline violation. Details and Message are
	// meaningful; Value and Stack usually are not.
	NativeException
)

func (t ErrorType) String() string {
	switch t {
	case JSError:
		return "js error"
	case NativeException:
		return "native exception"
	default:
		return fmt.Sprintf("ErrorType(%d)", uint8(t))
	}
}

// Error is the single error shape that crosses the boundary in both
// directions. A runtime instance holds at most one current Error at a time;
// setting a new one replaces any uncleared previous one.
type Error struct {
	Type    ErrorType
	Details string
	Message string
	Stack   string
	Value   Value
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Details
	}
	if msg == "" {
		return e.Type.String()
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// NewNativeError builds a NativeException with a formatted message.
func NewNativeError(format string, args ...any) *Error {
	return &Error{
		Type:    NativeException,
		Message: fmt.Sprintf(format, args...),
	}
}
