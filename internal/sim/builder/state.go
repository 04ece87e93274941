package builder

import "voxelbuilder.ai/internal/sim/geom"

// State is the resumable part of a builder. The work area itself is not
// stored; Restore re-derives it from the marker references.
type State struct {
	Mode      Mode
	Status    Status
	Powered   bool
	Markers   [2]string
	Cursor    geom.Vec3i
	CursorDir int
	Charge    float64
	BaseCost  float64
	Slots     []Stack
	NextSlot  int
}

func (b *Builder) Export() State {
	return State{
		Mode:      b.mode,
		Status:    b.status,
		Powered:   b.powered,
		Markers:   b.markers,
		Cursor:    b.cursor.Pos(),
		CursorDir: b.cursor.Dir(),
		Charge:    b.energy.Charge(),
		BaseCost:  b.baseCost,
		Slots:     b.inv.Slots(),
		NextSlot:  b.inv.Next(),
	}
}

// Restore loads st and re-validates it against the current markers. A
// work area that no longer resolves replaces the stored status; a cursor that
// no longer lies inside the area demotes the builder to Ready so the next
// start rewinds.
func (b *Builder) Restore(st State, r MarkerResolver) {
	if st.Mode.Valid() {
		b.mode = st.Mode
	}
	b.powered = st.Powered
	b.markers = st.Markers
	b.energy.SetCharge(st.Charge)
	if st.BaseCost > 0 {
		b.baseCost = st.BaseCost
	}
	for i := 0; i < b.inv.Len(); i++ {
		var s Stack
		if i < len(st.Slots) {
			s = st.Slots[i]
		}
		b.inv.Set(i, s)
	}
	b.inv.SetNext(st.NextSlot)

	// Restoring is not an operator action; do not fire transition hooks.
	hook := b.onTransition
	b.onTransition = nil
	defer func() { b.onTransition = hook }()

	area := b.setupWorkArea(r)
	switch {
	case area != StatusReady:
		b.status = area
	case st.Status.Geometric():
		b.status = StatusReady
	default:
		b.status = st.Status
		dir := st.CursorDir
		if dir == 0 {
			dir = b.mode.YDirection()
		}
		if !b.cursor.Restore(*b.area, st.Cursor, dir) {
			b.cursor.Reset(*b.area, b.mode.YDirection())
			if !b.status.ResetsCursor() || b.status == StatusRunning {
				b.status = StatusReady
			}
		}
	}
}
