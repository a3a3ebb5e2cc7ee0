package core

// ByteSource provides a byte range across the boundary without forcing a
// copy. The view handed to WithBytes is valid only for the dynamic extent of
// the callback; callers that need the data afterwards must copy it out.
// Providers may pin or stage the bytes immediately before the callback and
// tear down immediately after. The same protocol carries script source,
// JSON text, ASCII/UTF-8 string and property-name bytes, and array-buffer
// contents.
type ByteSource interface {
	// Size returns the number of bytes the source will expose.
	Size() int

	// WithBytes invokes fn with a view of the bytes. The view must not be
	// retained or mutated after fn returns. WithBytes is synchronous and
	// reentrant-safe: fn may call back into the runtime that supplied the
	// source.
	WithBytes(fn func(view []byte) error) error
}

// Bytes adapts a byte slice to ByteSource. The slice itself is the view; no
// staging happens.
type Bytes []byte

// Size returns the slice length.
func (b Bytes) Size() int { return len(b) }

// WithBytes invokes fn with the slice.
func (b Bytes) WithBytes(fn func(view []byte) error) error { return fn(b) }

// StringSource adapts a string to ByteSource without copying up front; the
// conversion to bytes happens once inside WithBytes.
type StringSource string

// Size returns the string length in bytes.
func (s StringSource) Size() int { return len(s) }

// WithBytes invokes fn with the string's bytes.
func (s StringSource) WithBytes(fn func(view []byte) error) error {
	return fn([]byte(s))
}

// CopyBytes drains a ByteSource into a fresh slice. Use when the bytes are
// needed past the view's lifetime.
func CopyBytes(src ByteSource) ([]byte, error) {
	out := make([]byte, 0, src.Size())
	err := src.WithBytes(func(view []byte) error {
		out = append(out, view...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SourceString drains a ByteSource into a string.
func SourceString(src ByteSource) (string, error) {
	b, err := CopyBytes(src)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
