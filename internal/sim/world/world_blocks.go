package world

import (
	"voxelbuilder.ai/internal/sim/builder"
	"voxelbuilder.ai/internal/sim/geom"
)

// The World satisfies the builder's capability interfaces. Block edits are
// audited from step reports, not here.

func (w *World) MaterialAt(pos geom.Vec3i) string {
	id := w.chunks.GetBlock(pos.X, pos.Y, pos.Z)
	if int(id) < len(w.catalogs.Blocks.Palette) {
		return w.catalogs.Blocks.Palette[id]
	}
	return builder.Air
}

func (w *World) SetMaterial(pos geom.Vec3i, material string) {
	id, ok := w.catalogs.Blocks.Index[material]
	if !ok {
		w.log.WithField("material", material).Warn("set unknown material ignored")
		return
	}
	w.chunks.SetBlock(pos.X, pos.Y, pos.Z, id)
}

func (w *World) Hardness(material string) (float64, bool) {
	return w.catalogs.Blocks.Hardness(material)
}

func (w *World) IsSolid(material string) bool { return w.catalogs.Blocks.IsSolid(material) }

func (w *World) IsLiquid(pos geom.Vec3i) bool {
	return w.catalogs.Blocks.IsLiquid(w.MaterialAt(pos))
}

// Cells outside the world bounds can be neither broken nor built.
func (w *World) CanBreak(actor string, pos geom.Vec3i) bool {
	return w.chunks.InBounds(pos.X, pos.Y, pos.Z) && w.claims.CanBreak(actor, pos)
}

func (w *World) CanPlace(actor string, pos geom.Vec3i) bool {
	return w.chunks.InBounds(pos.X, pos.Y, pos.Z) && w.claims.CanPlace(actor, pos)
}

func (w *World) StepSound(pos geom.Vec3i, material string) {
	w.effects.Sounds++
	w.log.WithField("pos", pos.String()).WithField("material", material).Trace("step sound")
}

func (w *World) IdleParticles(pos geom.Vec3i) {
	w.effects.Particles++
	w.log.WithField("pos", pos.String()).Trace("idle particles")
}

func (w *World) ResolveMarker(ref string) (builder.Marker, bool) {
	m, ok := w.markers[ref]
	return m, ok
}

var (
	_ builder.StepEnv        = (*World)(nil)
	_ builder.MarkerResolver = (*World)(nil)
)
