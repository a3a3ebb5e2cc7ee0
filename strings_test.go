package jsi

import (
	"strings"
	"testing"
)

func TestStringRoundTrip(t *testing.T) {
	rt := newTestRuntime(t)

	s, err := rt.CreateString("héllo wörld")
	if err != nil {
		t.Fatalf("CreateString: %v", err)
	}
	got, err := rt.StringToString(s)
	if err != nil {
		t.Fatalf("StringToString: %v", err)
	}
	if got != "héllo wörld" {
		t.Fatalf("round trip = %q", got)
	}
}

func TestCreateStringFromASCII(t *testing.T) {
	rt := newTestRuntime(t)

	s, err := rt.CreateStringFromASCII(Bytes("plain ascii"))
	if err != nil {
		t.Fatalf("CreateStringFromASCII: %v", err)
	}
	got, _ := rt.StringToString(s)
	if got != "plain ascii" {
		t.Fatalf("round trip = %q", got)
	}

	if _, err := rt.CreateStringFromASCII(Bytes("caf\xc3\xa9")); err == nil {
		t.Fatal("expected error for non-ASCII input")
	}
	rt.GetAndClearError()
}

func TestCreateStringFromUTF8Sanitizes(t *testing.T) {
	rt := newTestRuntime(t)

	// Truncated two-byte sequence becomes U+FFFD instead of failing.
	s, err := rt.CreateStringFromUTF8(Bytes("ok\xc3"))
	if err != nil {
		t.Fatalf("CreateStringFromUTF8: %v", err)
	}
	got, _ := rt.StringToString(s)
	if got != "ok�" {
		t.Fatalf("sanitized = %q", got)
	}
}

func TestStringUTF8RoundTrip(t *testing.T) {
	rt := newTestRuntime(t)

	// Well-formed UTF-8 must come back byte for byte.
	input := []byte("mixed ascii, émoji ☃, and \xf0\x9f\x8e\x89")
	s, err := rt.CreateStringFromUTF8(Bytes(input))
	if err != nil {
		t.Fatalf("CreateStringFromUTF8: %v", err)
	}
	var seen []byte
	err = rt.StringToUTF8(s, func(view []byte) error {
		seen = append(seen, view...)
		return nil
	})
	if err != nil {
		t.Fatalf("StringToUTF8: %v", err)
	}
	if string(seen) != string(input) {
		t.Fatalf("round trip = %q, want %q", seen, input)
	}
}

func TestStringStrictEquals(t *testing.T) {
	rt := newTestRuntime(t)

	a, _ := rt.CreateString("same")
	b, _ := rt.CreateString("same")
	c, _ := rt.CreateString("different")

	if !rt.StringStrictEquals(a, b) {
		t.Fatal("equal contents compare unequal")
	}
	if rt.StringStrictEquals(a, c) {
		t.Fatal("different contents compare equal")
	}
}

func TestSymbols(t *testing.T) {
	rt := newTestRuntime(t)

	v, err := rt.EvaluateJavaScript(StringSource("globalThis.sym = Symbol('tag'); globalThis.sym"), "sym.js")
	if err != nil {
		t.Fatalf("EvaluateJavaScript: %v", err)
	}
	if v.Kind() != KindSymbol {
		t.Fatalf("kind = %v, want symbol", v.Kind())
	}
	sym := v.Symbol()

	desc, err := rt.SymbolToString(sym)
	if err != nil {
		t.Fatalf("SymbolToString: %v", err)
	}
	if !strings.Contains(desc, "tag") {
		t.Fatalf("description = %q", desc)
	}

	// The same symbol fetched again compares identical; a fresh one does not.
	again, err := rt.EvaluateJavaScript(StringSource("globalThis.sym"), "sym2.js")
	if err != nil {
		t.Fatalf("EvaluateJavaScript: %v", err)
	}
	if !rt.SymbolStrictEquals(sym, again.Symbol()) {
		t.Fatal("same symbol compares unequal across handles")
	}
	other, err := rt.EvaluateJavaScript(StringSource("Symbol('tag')"), "sym3.js")
	if err != nil {
		t.Fatalf("EvaluateJavaScript: %v", err)
	}
	if rt.SymbolStrictEquals(sym, other.Symbol()) {
		t.Fatal("distinct symbols compare equal")
	}
}

func TestPropertyIDForms(t *testing.T) {
	rt := newTestRuntime(t)

	fromASCII, err := rt.CreatePropertyIDFromASCII(Bytes("key"))
	if err != nil {
		t.Fatalf("CreatePropertyIDFromASCII: %v", err)
	}
	fromUTF8, err := rt.CreatePropertyIDFromUTF8(Bytes("key"))
	if err != nil {
		t.Fatalf("CreatePropertyIDFromUTF8: %v", err)
	}
	fromNative, err := rt.CreatePropertyID("key")
	if err != nil {
		t.Fatalf("CreatePropertyID: %v", err)
	}
	s, _ := rt.CreateString("key")
	fromString, err := rt.CreatePropertyIDFromString(s)
	if err != nil {
		t.Fatalf("CreatePropertyIDFromString: %v", err)
	}

	for _, other := range []PropertyID{fromUTF8, fromNative, fromString} {
		if !rt.PropertyIDEquals(fromASCII, other) {
			t.Fatal("same key from different constructors compares unequal")
		}
	}
	different, _ := rt.CreatePropertyID("other")
	if rt.PropertyIDEquals(fromASCII, different) {
		t.Fatal("different keys compare equal")
	}

	name, err := rt.PropertyIDToString(fromASCII)
	if err != nil {
		t.Fatalf("PropertyIDToString: %v", err)
	}
	if name != "key" {
		t.Fatalf("name = %q", name)
	}
	var viewed string
	if err := rt.PropertyIDToUTF8(fromASCII, func(view []byte) error {
		viewed = string(view)
		return nil
	}); err != nil {
		t.Fatalf("PropertyIDToUTF8: %v", err)
	}
	if viewed != "key" {
		t.Fatalf("view = %q", viewed)
	}
}
