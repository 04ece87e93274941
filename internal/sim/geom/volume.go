package geom

import "fmt"

// Volume is an axis-aligned box of cells with inclusive bounds.
// Min <= Max holds on every axis for values built with NewVolume.
type Volume struct {
	Min Vec3i
	Max Vec3i
}

// NewVolume returns the smallest volume containing both corners.
func NewVolume(a, b Vec3i) Volume {
	return Volume{
		Min: Vec3i{X: minInt(a.X, b.X), Y: minInt(a.Y, b.Y), Z: minInt(a.Z, b.Z)},
		Max: Vec3i{X: maxInt(a.X, b.X), Y: maxInt(a.Y, b.Y), Z: maxInt(a.Z, b.Z)},
	}
}

func (v Volume) Contains(p Vec3i) bool {
	return p.X >= v.Min.X && p.X <= v.Max.X &&
		p.Y >= v.Min.Y && p.Y <= v.Max.Y &&
		p.Z >= v.Min.Z && p.Z <= v.Max.Z
}

// Outset grows the volume by margin cells in both directions on every axis.
func (v Volume) Outset(margin int) Volume {
	return Volume{
		Min: Vec3i{X: v.Min.X - margin, Y: v.Min.Y - margin, Z: v.Min.Z - margin},
		Max: Vec3i{X: v.Max.X + margin, Y: v.Max.Y + margin, Z: v.Max.Z + margin},
	}
}

// Size is the per-axis extent in cells.
func (v Volume) Size() Vec3i {
	return Vec3i{X: v.Max.X - v.Min.X + 1, Y: v.Max.Y - v.Min.Y + 1, Z: v.Max.Z - v.Min.Z + 1}
}

func (v Volume) Cells() int64 {
	s := v.Size()
	return int64(s.X) * int64(s.Y) * int64(s.Z)
}

// Corners lists the eight corner cells, lower Y layer first.
func (v Volume) Corners() [8]Vec3i {
	return [8]Vec3i{
		{X: v.Min.X, Y: v.Min.Y, Z: v.Min.Z},
		{X: v.Max.X, Y: v.Min.Y, Z: v.Min.Z},
		{X: v.Min.X, Y: v.Min.Y, Z: v.Max.Z},
		{X: v.Max.X, Y: v.Min.Y, Z: v.Max.Z},
		{X: v.Min.X, Y: v.Max.Y, Z: v.Min.Z},
		{X: v.Max.X, Y: v.Max.Y, Z: v.Min.Z},
		{X: v.Min.X, Y: v.Max.Y, Z: v.Max.Z},
		{X: v.Max.X, Y: v.Max.Y, Z: v.Max.Z},
	}
}

func (v Volume) String() string {
	return fmt.Sprintf("(%s)-(%s)", v.Min, v.Max)
}
