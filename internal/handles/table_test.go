package handles

import "testing"

func TestAllocGetRelease(t *testing.T) {
	tbl := New()

	h := tbl.Alloc(KindObject, "payload")
	if h == 0 {
		t.Fatal("Alloc returned zero handle")
	}

	v, ok := tbl.Get(h, KindObject)
	if !ok || v.(string) != "payload" {
		t.Fatalf("Get = %v, %v", v, ok)
	}

	// Wrong kind must not dereference.
	if _, ok := tbl.Get(h, KindString); ok {
		t.Fatal("Get with wrong kind succeeded")
	}

	if !tbl.Release(h) {
		t.Fatal("Release reported false for a live handle")
	}
	if _, ok := tbl.Get(h, KindObject); ok {
		t.Fatal("Get succeeded after Release")
	}
	if tbl.Release(h) {
		t.Fatal("double Release reported true")
	}
}

func TestGenerationInvalidation(t *testing.T) {
	tbl := New()

	h1 := tbl.Alloc(KindObject, "first")
	tbl.Release(h1)

	// The slot is reused; the stale handle must still fail.
	h2 := tbl.Alloc(KindObject, "second")
	if h2.index() != h1.index() {
		t.Fatalf("expected slot reuse, got index %d vs %d", h2.index(), h1.index())
	}
	if _, ok := tbl.Get(h1, KindObject); ok {
		t.Fatal("stale handle dereferenced a reused slot")
	}
	if v, ok := tbl.Get(h2, KindObject); !ok || v.(string) != "second" {
		t.Fatalf("fresh handle Get = %v, %v", v, ok)
	}
}

func TestScopePopReleases(t *testing.T) {
	tbl := New()

	outer := tbl.Alloc(KindObject, "outer")
	state := tbl.Push()

	inner := tbl.Alloc(KindObject, "inner")
	if tbl.Live() != 2 {
		t.Fatalf("Live = %d, want 2", tbl.Live())
	}

	if !tbl.Pop(state) {
		t.Fatal("Pop of top state failed")
	}
	if _, ok := tbl.Get(inner, KindObject); ok {
		t.Fatal("scoped handle survived Pop")
	}
	if _, ok := tbl.Get(outer, KindObject); !ok {
		t.Fatal("handle from the enclosing scope was released by Pop")
	}
}

func TestPromoteSurvivesPop(t *testing.T) {
	tbl := New()

	state := tbl.Push()
	h := tbl.Alloc(KindString, "kept")

	kept, ok := tbl.Promote(h, KindString)
	if !ok {
		t.Fatal("Promote failed")
	}

	tbl.Pop(state)

	if _, ok := tbl.Get(h, KindString); ok {
		t.Fatal("original scoped handle survived Pop")
	}
	if v, ok := tbl.Get(kept, KindString); !ok || v.(string) != "kept" {
		t.Fatalf("promoted handle Get = %v, %v", v, ok)
	}
}

func TestPopLIFODiscipline(t *testing.T) {
	tbl := New()

	s1 := tbl.Push()
	s2 := tbl.Push()

	// Popping a state that is not the current top is a contract violation.
	if tbl.Pop(s1) {
		t.Fatal("Pop of a non-top state succeeded")
	}
	if !tbl.Pop(s2) {
		t.Fatal("Pop of the top state failed")
	}
	if !tbl.Pop(s1) {
		t.Fatal("Pop of the new top state failed")
	}

	// The root marker may be popped as a no-op.
	if !tbl.Pop(0) {
		t.Fatal("Pop of the root marker was rejected")
	}
}

func TestExplicitReleaseThenPop(t *testing.T) {
	tbl := New()

	state := tbl.Push()
	h := tbl.Alloc(KindObject, "x")
	tbl.Release(h)

	// Pop must tolerate handles already released inside the scope.
	if !tbl.Pop(state) {
		t.Fatal("Pop failed after explicit release")
	}
	if tbl.Live() != 0 {
		t.Fatalf("Live = %d, want 0", tbl.Live())
	}
}

func TestAllocRootExemptFromPop(t *testing.T) {
	tbl := New()

	state := tbl.Push()
	p := tbl.AllocRoot(KindPreparedScript, "program")
	tbl.Pop(state)

	if _, ok := tbl.Get(p, KindPreparedScript); !ok {
		t.Fatal("root allocation was released by scope pop")
	}

	tbl.Close()
	if _, ok := tbl.Get(p, KindPreparedScript); ok {
		t.Fatal("handle survived Close")
	}
}

func TestRootFrameCompacts(t *testing.T) {
	tb := New()
	for i := 0; i < 1000; i++ {
		tb.Release(tb.AllocRoot(KindPreparedScript, i))
	}
	if n := len(tb.frames[0]); n > 64 {
		t.Fatalf("root frame holds %d entries after releasing everything", n)
	}
	if got := tb.Live(); got != 0 {
		t.Fatalf("live = %d, want 0", got)
	}

	// Live root handles survive compaction.
	keep := tb.AllocRoot(KindWeakObject, "keep")
	for i := 0; i < 1000; i++ {
		tb.Release(tb.AllocRoot(KindPreparedScript, i))
	}
	if _, ok := tb.Get(keep, KindWeakObject); !ok {
		t.Fatal("live root handle lost by compaction")
	}
}
