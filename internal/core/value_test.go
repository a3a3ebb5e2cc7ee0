package core

import (
	"math"
	"testing"
)

func TestValueKinds(t *testing.T) {
	if !Undefined().IsUndefined() {
		t.Fatal("Undefined is not undefined")
	}
	if !Null().IsNull() {
		t.Fatal("Null is not null")
	}
	if Bool(true).Kind() != KindBoolean || !Bool(true).Bool() {
		t.Fatal("Bool(true) broken")
	}
	if Bool(false).Bool() {
		t.Fatal("Bool(false) is truthy")
	}
	if Number(1.5).Kind() != KindNumber {
		t.Fatal("Number kind wrong")
	}
}

func TestNumberPayloadRoundTrip(t *testing.T) {
	for _, f := range []float64{0, -0, 1.5, -1e308, math.Inf(1), math.Inf(-1)} {
		v := Number(f)
		if got := v.Number(); math.Float64bits(got) != math.Float64bits(f) {
			t.Fatalf("round trip of %v changed bits", f)
		}
	}

	// NaN must survive bit for bit, not collapse to a canonical NaN.
	nan := math.Float64frombits(0x7FF8_0000_DEAD_BEEF)
	if got := Number(nan).Number(); math.Float64bits(got) != math.Float64bits(nan) {
		t.Fatal("NaN payload not preserved")
	}

	negZero := math.Copysign(0, -1)
	if got := Number(negZero).Number(); math.Signbit(got) != true {
		t.Fatal("negative zero lost its sign")
	}
}

func TestReferencePayloads(t *testing.T) {
	if FromSymbol(SymbolRef(7)).Symbol() != 7 {
		t.Fatal("symbol handle mangled")
	}
	if FromString(StringRef(9)).String() != 9 {
		t.Fatal("string handle mangled")
	}
	if FromObject(ObjectRef(11)).Object() != 11 {
		t.Fatal("object handle mangled")
	}
	if FromObject(ObjectRef(11)).Kind() != KindObject {
		t.Fatal("object kind wrong")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		KindUndefined: "undefined",
		KindNull:      "null",
		KindBoolean:   "boolean",
		KindNumber:    "number",
		KindSymbol:    "symbol",
		KindString:    "string",
		KindObject:    "object",
	}
	for k, want := range cases {
		if k.String() != want {
			t.Fatalf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}
