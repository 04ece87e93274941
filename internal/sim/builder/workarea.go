package builder

import "voxelbuilder.ai/internal/sim/geom"

// DefaultMaxDistance is how far outside the work area a builder may stand.
const DefaultMaxDistance = 5

// ResolveWorkArea derives the work area from two optional markers and the
// builder's own location. It returns StatusReady with the volume, or the
// status naming the first check that failed.
func ResolveWorkArea(m1, m2 *Marker, self Marker, maxDistance int) (geom.Volume, Status) {
	if m1 == nil || m2 == nil {
		return geom.Volume{}, StatusNoWorkArea
	}
	if m1.WorldID != m2.WorldID {
		return geom.Volume{}, StatusWorldMismatch
	}
	vol := geom.NewVolume(m1.Pos, m2.Pos)
	if self.WorldID != m1.WorldID {
		// A builder in another world can never be within reach.
		return geom.Volume{}, StatusTooFar
	}
	if vol.Contains(self.Pos) {
		return geom.Volume{}, StatusTooNear
	}
	if !vol.Outset(maxDistance).Contains(self.Pos) {
		return geom.Volume{}, StatusTooFar
	}
	return vol, StatusReady
}
