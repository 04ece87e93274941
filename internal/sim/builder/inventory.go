package builder

// Stack is a run of identical material. A zero Count means an empty slot.
type Stack struct {
	Material string
	Count    int
}

func (s Stack) Empty() bool { return s.Count <= 0 || s.Material == "" }

// InventorySource is the builder's material store. Units are drawn
// round-robin so that every stocked slot is consumed in turn.
type InventorySource struct {
	slots []Stack
	next  int
}

func NewInventorySource(n int) *InventorySource {
	if n < 1 {
		n = 1
	}
	return &InventorySource{slots: make([]Stack, n)}
}

func (inv *InventorySource) Len() int { return len(inv.slots) }

// Next is the index the next scan starts from; always in [0, Len()).
func (inv *InventorySource) Next() int { return inv.next }

func (inv *InventorySource) SetNext(i int) {
	if i < 0 || i >= len(inv.slots) {
		i = 0
	}
	inv.next = i
}

func (inv *InventorySource) Slot(i int) Stack {
	if i < 0 || i >= len(inv.slots) {
		return Stack{}
	}
	return inv.slots[i]
}

// Slots returns a copy of all slots.
func (inv *InventorySource) Slots() []Stack {
	out := make([]Stack, len(inv.slots))
	copy(out, inv.slots)
	return out
}

func (inv *InventorySource) Set(i int, s Stack) bool {
	if i < 0 || i >= len(inv.slots) {
		return false
	}
	if s.Empty() {
		s = Stack{}
	}
	inv.slots[i] = s
	return true
}

// Insert merges s into a slot holding the same material, then the first
// empty slot, up to maxStack per slot. It returns the number inserted.
func (inv *InventorySource) Insert(s Stack, maxStack int) int {
	if s.Empty() {
		return 0
	}
	if maxStack <= 0 {
		maxStack = 64
	}
	left := s.Count
	for i := range inv.slots {
		if left == 0 {
			break
		}
		sl := &inv.slots[i]
		if sl.Empty() || sl.Material != s.Material || sl.Count >= maxStack {
			continue
		}
		n := min(left, maxStack-sl.Count)
		sl.Count += n
		left -= n
	}
	for i := range inv.slots {
		if left == 0 {
			break
		}
		sl := &inv.slots[i]
		if !sl.Empty() {
			continue
		}
		n := min(left, maxStack)
		*sl = Stack{Material: s.Material, Count: n}
		left -= n
	}
	return s.Count - left
}

func (inv *InventorySource) Total() int {
	n := 0
	for _, s := range inv.slots {
		if !s.Empty() {
			n += s.Count
		}
	}
	return n
}

// ResetPointer aims the scan at the first stocked slot and reports whether
// there is one.
func (inv *InventorySource) ResetPointer() bool {
	for i, s := range inv.slots {
		if !s.Empty() {
			inv.next = i
			return true
		}
	}
	inv.next = 0
	return false
}

// TakeOne removes a single unit, scanning forward from the pointer and
// wrapping once. ok is false when every slot is empty.
func (inv *InventorySource) TakeOne() (Stack, bool) {
	n := len(inv.slots)
	for i := 0; i < n; i++ {
		idx := (inv.next + i) % n
		sl := &inv.slots[idx]
		if sl.Empty() {
			*sl = Stack{}
			continue
		}
		out := Stack{Material: sl.Material, Count: 1}
		if sl.Count == 1 {
			*sl = Stack{}
		} else {
			sl.Count--
		}
		inv.next = (idx + 1) % n
		return out, true
	}
	return Stack{}, false
}
