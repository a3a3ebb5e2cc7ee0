// Package handles implements the validating handle table shared by the
// engine adapters: an arena of generation-tagged slots addressed by opaque
// 64-bit handles, plus the scope stack that bounds handle lifetime.
//
// A handle packs the slot index in the high 32 bits and the slot's
// generation at allocation time in the low 32 bits. Freeing a slot bumps its
// generation, so a stale handle fails validation instead of aliasing
// whatever the slot holds next. Handle zero is never issued.
//
// The table is instance-local state of a single runtime and is deliberately
// unsynchronized: the boundary contract requires the host to serialize all
// access to one runtime instance.
package handles

// Kind tags what a slot holds, so a handle of one kind cannot be
// dereferenced as another.
type Kind uint8

const (
	KindSymbol Kind = iota + 1
	KindString
	KindObject
	KindWeakObject
	KindPropertyID
	KindPreparedScript
)

// Handle addresses a slot. The zero Handle is always invalid.
type Handle uint64

func pack(index, gen uint32) Handle { return Handle(uint64(index)<<32 | uint64(gen)) }

func (h Handle) index() uint32 { return uint32(uint64(h) >> 32) }
func (h Handle) gen() uint32   { return uint32(uint64(h)) }

type slot struct {
	value any
	gen   uint32
	frame int32
	kind  Kind
	live  bool
}

// Table is the arena plus scope stack. Frame 0 is the root scope; it exists
// for the table's whole life and is swept only by Close.
type Table struct {
	slots  []slot
	free   []uint32
	frames [][]Handle

	// rootDead counts root-frame handles released explicitly. The root
	// frame is never popped, so its list is compacted once dead entries
	// dominate, instead of growing for the table's whole life.
	rootDead int
}

// New returns an empty table with an open root scope.
func New() *Table {
	return &Table{
		slots:  make([]slot, 0, 64),
		frames: [][]Handle{nil},
	}
}

// Depth returns the index of the current top scope. 0 is the root.
func (t *Table) Depth() int { return len(t.frames) - 1 }

// Push opens a new scope and returns its depth as the state marker.
func (t *Table) Push() int {
	t.frames = append(t.frames, nil)
	return len(t.frames) - 1
}

// Pop closes the scope identified by state, releasing every handle it still
// owns. Scopes are strictly LIFO: ok is false when state does not name the
// current top. Popping the root marker (state 0) is a permitted no-op.
func (t *Table) Pop(state int) (ok bool) {
	if state == 0 {
		return true
	}
	if state != len(t.frames)-1 || state < 1 {
		return false
	}
	frame := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]
	for _, h := range frame {
		t.Release(h) // skips handles already released explicitly
	}
	return true
}

// Alloc stores value in the current top scope and returns its handle.
func (t *Table) Alloc(kind Kind, value any) Handle {
	return t.allocIn(len(t.frames)-1, kind, value)
}

// AllocRoot stores value in the root scope, exempting it from every Pop.
// Used for prepared scripts and weak handles, which are released only
// explicitly.
func (t *Table) AllocRoot(kind Kind, value any) Handle {
	return t.allocIn(0, kind, value)
}

func (t *Table) allocIn(frame int, kind Kind, value any) Handle {
	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		t.slots = append(t.slots, slot{gen: 1})
		index = uint32(len(t.slots) - 1)
	}
	s := &t.slots[index]
	s.value = value
	s.kind = kind
	s.frame = int32(frame)
	s.live = true
	h := pack(index, s.gen)
	t.frames[frame] = append(t.frames[frame], h)
	return h
}

func (t *Table) lookup(h Handle) *slot {
	index := h.index()
	if int(index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[index]
	if !s.live || s.gen != h.gen() {
		return nil
	}
	return s
}

// Get returns the value behind h if the handle is live and of the expected
// kind.
func (t *Table) Get(h Handle, kind Kind) (any, bool) {
	s := t.lookup(h)
	if s == nil || s.kind != kind {
		return nil, false
	}
	return s.value, true
}

// Clone takes a fresh claim on the entity behind h, owned by the current
// top scope.
func (t *Table) Clone(h Handle, kind Kind) (Handle, bool) {
	s := t.lookup(h)
	if s == nil || s.kind != kind {
		return 0, false
	}
	return t.Alloc(kind, s.value), true
}

// Promote takes a fresh claim owned by the scope immediately enclosing the
// current top, so it survives the top scope's pop. In the root scope it
// degenerates to a plain clone.
func (t *Table) Promote(h Handle, kind Kind) (Handle, bool) {
	s := t.lookup(h)
	if s == nil || s.kind != kind {
		return 0, false
	}
	frame := len(t.frames) - 2
	if frame < 0 {
		frame = 0
	}
	return t.allocIn(frame, kind, s.value), true
}

// Release drops the claim h holds. Releasing a stale or already-released
// handle reports false and does nothing else.
func (t *Table) Release(h Handle) bool {
	s := t.lookup(h)
	if s == nil {
		return false
	}
	wasRoot := s.frame == 0
	s.live = false
	s.value = nil
	s.gen++
	t.free = append(t.free, h.index())
	if wasRoot {
		t.rootDead++
		if t.rootDead > 32 && t.rootDead*2 > len(t.frames[0]) {
			t.compactRoot()
		}
	}
	return true
}

// compactRoot drops stale handles from the root frame's list.
func (t *Table) compactRoot() {
	live := t.frames[0][:0]
	for _, h := range t.frames[0] {
		if t.lookup(h) != nil {
			live = append(live, h)
		}
	}
	t.frames[0] = live
	t.rootDead = 0
}

// Live returns the number of live slots, across all scopes.
func (t *Table) Live() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].live {
			n++
		}
	}
	return n
}

// Close sweeps everything, including the root scope.
func (t *Table) Close() {
	for i := range t.slots {
		s := &t.slots[i]
		if s.live {
			s.live = false
			s.value = nil
			s.gen++
		}
	}
	t.free = t.free[:0]
	t.frames = [][]Handle{nil}
	t.rootDead = 0
}
