package world

import "voxelbuilder.ai/internal/sim/tuning"

type WorldConfig struct {
	ID         string
	TickRateHz int
	Height     int
	Seed       int64
	BoundaryR  int

	// GroundY is the first air layer of generated terrain.
	GroundY int

	// Operational parameters. These are included in snapshots for resume.
	SnapshotEveryTicks int

	// Defaults applied to every builder added to this world.
	Builder tuning.Builder
}

// ConfigFromTuning derives a world config from a loaded tuning file.
func ConfigFromTuning(id string, seed int64, t tuning.Tuning) WorldConfig {
	return WorldConfig{
		ID:                 id,
		TickRateHz:         t.TickRateHz,
		Height:             t.WorldHeight,
		Seed:               seed,
		BoundaryR:          t.BoundaryR,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		Builder:            t.Builder,
	}
}

func (c *WorldConfig) applyDefaults() {
	d := tuning.Defaults()
	if c.ID == "" {
		c.ID = "world_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = d.TickRateHz
	}
	if c.Height <= 0 {
		c.Height = d.WorldHeight
	}
	if c.BoundaryR <= 0 {
		c.BoundaryR = d.BoundaryR
	}
	if c.GroundY <= 0 {
		c.GroundY = c.Height / 2
	}
	if c.GroundY > c.Height {
		c.GroundY = c.Height
	}
	if c.SnapshotEveryTicks < 0 {
		c.SnapshotEveryTicks = 0
	}
	if c.Builder.SCUPerOp <= 0 {
		c.Builder.SCUPerOp = d.Builder.SCUPerOp
	}
	if c.Builder.MaxCharge <= 0 {
		c.Builder.MaxCharge = d.Builder.MaxCharge
	}
	if c.Builder.ChargeRate < 0 {
		c.Builder.ChargeRate = 0
	}
	if c.Builder.MaxDistance <= 0 {
		c.Builder.MaxDistance = d.Builder.MaxDistance
	}
	if c.Builder.InputSlots <= 0 {
		c.Builder.InputSlots = d.Builder.InputSlots
	}
}
