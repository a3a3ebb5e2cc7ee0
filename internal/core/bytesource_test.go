package core

import (
	"bytes"
	"errors"
	"testing"
)

func TestBytesSource(t *testing.T) {
	src := Bytes([]byte{1, 2, 3})
	if src.Size() != 3 {
		t.Fatalf("Size = %d", src.Size())
	}
	out, err := CopyBytes(src)
	if err != nil {
		t.Fatalf("CopyBytes: %v", err)
	}
	if !bytes.Equal(out, []byte{1, 2, 3}) {
		t.Fatalf("copy = %v", out)
	}
}

func TestStringSource(t *testing.T) {
	src := StringSource("héllo")
	if src.Size() != len("héllo") {
		t.Fatalf("Size = %d", src.Size())
	}
	s, err := SourceString(src)
	if err != nil {
		t.Fatalf("SourceString: %v", err)
	}
	if s != "héllo" {
		t.Fatalf("round trip = %q", s)
	}
}

func TestWithBytesPropagatesError(t *testing.T) {
	sentinel := errors.New("stop")
	err := Bytes("data").WithBytes(func(view []byte) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}
	if _, err := CopyBytes(failingSource{sentinel}); !errors.Is(err, sentinel) {
		t.Fatalf("CopyBytes err = %v", err)
	}
}

type failingSource struct{ err error }

func (f failingSource) Size() int                                { return 0 }
func (f failingSource) WithBytes(func(view []byte) error) error { return f.err }
