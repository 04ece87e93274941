package world

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"voxelbuilder.ai/internal/persistence/snapshot"
	"voxelbuilder.ai/internal/sim/builder"
	"voxelbuilder.ai/internal/sim/catalogs"
	"voxelbuilder.ai/internal/sim/geom"
	"voxelbuilder.ai/internal/sim/world/permissions"
	"voxelbuilder.ai/internal/sim/world/store"
)

// NewFromSnapshot rebuilds a world from s. World parameters stored in the
// snapshot override cfg; builder work areas are re-derived from markers.
func NewFromSnapshot(cfg WorldConfig, cats *catalogs.Catalogs, s snapshot.SnapshotV1, logger *logrus.Entry) (*World, error) {
	if s.Header.Version != snapshot.Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", s.Header.Version)
	}
	if s.PaletteDigest != "" && s.PaletteDigest != cats.Blocks.PaletteDigest {
		return nil, fmt.Errorf("snapshot block palette digest mismatch")
	}
	cfg.ID = s.Header.WorldID
	cfg.Seed = s.Seed
	cfg.Height = s.Height
	cfg.BoundaryR = s.BoundaryR
	cfg.GroundY = s.GroundY
	if s.TickRate > 0 {
		cfg.TickRateHz = s.TickRate
	}
	if s.SnapshotEveryTicks > 0 {
		cfg.SnapshotEveryTicks = s.SnapshotEveryTicks
	}
	cfg.applyDefaults()

	gen, err := worldGen(cfg, cats)
	if err != nil {
		return nil, err
	}
	chunks, err := store.ImportChunks(gen, s.Chunks)
	if err != nil {
		return nil, err
	}
	w := newWorld(cfg, cats, chunks, logger)

	for _, c := range s.Claims {
		members := map[string]bool{}
		for _, m := range c.Members {
			members[m] = true
		}
		w.claims.Put(&permissions.Claim{
			LandID:  c.LandID,
			Owner:   c.Owner,
			Area:    geom.NewVolume(geom.FromArray(c.Min), geom.FromArray(c.Max)),
			Flags:   permissions.Flags{AllowBuild: c.Flags.AllowBuild, AllowBreak: c.Flags.AllowBreak},
			Members: members,
		})
	}
	for _, m := range s.Markers {
		w.markers[m.Ref] = builder.Marker{WorldID: m.WorldID, Pos: geom.FromArray(m.Pos)}
	}

	for _, bv := range s.Builders {
		b, err := w.AddBuilder(BuilderSpec{
			ID:          bv.ID,
			Owner:       bv.Owner,
			Pos:         geom.FromArray(bv.Pos),
			SCUPerOp:    bv.SCUPerOp,
			MaxCharge:   bv.MaxCharge,
			ChargeRate:  bv.ChargeRate,
			MaxDistance: bv.MaxDistance,
			InputSlots:  len(bv.Slots),
		})
		if err != nil {
			return nil, fmt.Errorf("import builder: %w", err)
		}
		mode, err := builder.ParseMode(bv.Mode)
		if err != nil {
			return nil, fmt.Errorf("import builder %s: %w", bv.ID, err)
		}
		status, err := builder.ParseStatus(bv.Status)
		if err != nil {
			return nil, fmt.Errorf("import builder %s: %w", bv.ID, err)
		}
		slots := make([]builder.Stack, len(bv.Slots))
		for i, sl := range bv.Slots {
			slots[i] = builder.Stack{Material: sl.Material, Count: sl.Count}
		}
		b.Restore(builder.State{
			Mode:      mode,
			Status:    status,
			Powered:   bv.Powered,
			Markers:   bv.Markers,
			Cursor:    geom.FromArray(bv.Cursor),
			CursorDir: bv.CursorDir,
			Charge:    bv.Charge,
			BaseCost:  bv.BaseCost,
			Slots:     slots,
			NextSlot:  bv.NextSlot,
		}, w)
	}
	w.refreshBootstrap()
	w.tick.Store(s.Header.Tick + 1)
	return w, nil
}
