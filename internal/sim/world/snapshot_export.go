package world

import (
	"fmt"
	"sort"

	"voxelbuilder.ai/internal/persistence/snapshot"
	"voxelbuilder.ai/internal/sim/world/store"
)

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:               w.cfg.Seed,
		TickRate:           w.cfg.TickRateHz,
		Height:             w.cfg.Height,
		BoundaryR:          w.cfg.BoundaryR,
		GroundY:            w.cfg.GroundY,
		SnapshotEveryTicks: w.cfg.SnapshotEveryTicks,
		PaletteDigest:      w.catalogs.Blocks.PaletteDigest,
		Chunks:             store.ExportLoadedChunks(w.chunks),
	}

	for _, c := range w.claims.All() {
		members := make([]string, 0, len(c.Members))
		for m, ok := range c.Members {
			if ok {
				members = append(members, m)
			}
		}
		sort.Strings(members)
		snap.Claims = append(snap.Claims, snapshot.ClaimV1{
			LandID:  c.LandID,
			Owner:   c.Owner,
			Min:     c.Area.Min.ToArray(),
			Max:     c.Area.Max.ToArray(),
			Flags:   snapshot.ClaimFlagsV1{AllowBuild: c.Flags.AllowBuild, AllowBreak: c.Flags.AllowBreak},
			Members: members,
		})
	}

	refs := make([]string, 0, len(w.markers))
	for ref := range w.markers {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		m := w.markers[ref]
		snap.Markers = append(snap.Markers, snapshot.MarkerV1{Ref: ref, WorldID: m.WorldID, Pos: m.Pos.ToArray()})
	}

	for _, id := range w.order {
		b := w.builders[id]
		cfg := b.Config()
		st := b.Export()
		slots := make([]snapshot.StackV1, len(st.Slots))
		for i, s := range st.Slots {
			slots[i] = snapshot.StackV1{Material: s.Material, Count: s.Count}
		}
		snap.Builders = append(snap.Builders, snapshot.BuilderV1{
			ID:          id,
			Owner:       cfg.Owner,
			WorldID:     cfg.WorldID,
			Pos:         cfg.Pos.ToArray(),
			Mode:        st.Mode.String(),
			Status:      st.Status.String(),
			Powered:     st.Powered,
			Markers:     st.Markers,
			Cursor:      st.Cursor.ToArray(),
			CursorDir:   st.CursorDir,
			Charge:      st.Charge,
			BaseCost:    st.BaseCost,
			SCUPerOp:    cfg.BaseCost,
			MaxCharge:   cfg.MaxCharge,
			ChargeRate:  cfg.ChargeRate,
			MaxDistance: cfg.MaxDistance,
			Slots:       slots,
			NextSlot:    st.NextSlot,
		})
	}
	return snap
}

// Checkpoint exports the state at the end of the last completed tick. It
// must be called from the goroutine that steps the world, and only after
// at least one tick.
func (w *World) Checkpoint() (snapshot.SnapshotV1, error) {
	t := w.tick.Load()
	if t == 0 {
		return snapshot.SnapshotV1{}, fmt.Errorf("checkpoint: no tick completed yet")
	}
	return w.ExportSnapshot(t - 1), nil
}
