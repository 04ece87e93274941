package builder

import "voxelbuilder.ai/internal/sim/geom"

// Air is the material id of an empty cell. Catalogs must define it.
const Air = "AIR"

// World is the cell-level view of the voxel world a builder works on.
type World interface {
	MaterialAt(pos geom.Vec3i) string
	SetMaterial(pos geom.Vec3i, material string)
	// Hardness reports ok=false for indestructible materials.
	Hardness(material string) (hardness float64, ok bool)
	IsSolid(material string) bool
	IsLiquid(pos geom.Vec3i) bool
}

type Permissions interface {
	CanBreak(actor string, pos geom.Vec3i) bool
	CanPlace(actor string, pos geom.Vec3i) bool
}

// Effects are cosmetic only; implementations may drop them.
type Effects interface {
	StepSound(pos geom.Vec3i, material string)
	IdleParticles(pos geom.Vec3i)
}

// StepEnv is everything a single Step borrows from the host.
type StepEnv interface {
	World
	Permissions
	Effects
}

// Marker is a recorded world position carried by a marker item.
type Marker struct {
	WorldID string
	Pos     geom.Vec3i
}

// MarkerResolver resolves a marker item reference held in a builder slot.
// ok is false when the item is not a marker or has no marked location.
type MarkerResolver interface {
	ResolveMarker(ref string) (m Marker, ok bool)
}
