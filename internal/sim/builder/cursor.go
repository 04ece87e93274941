package builder

import "voxelbuilder.ai/internal/sim/geom"

// Cursor walks a volume X-innermost, then Z, then Y in a fixed direction.
type Cursor struct {
	pos geom.Vec3i
	vol geom.Volume
	dir int
}

// Reset places the cursor on the starting corner for the given direction:
// the top layer when dir < 0, the bottom layer otherwise.
func (c *Cursor) Reset(vol geom.Volume, dir int) {
	c.vol = vol
	c.dir = normDir(dir)
	c.pos = geom.Vec3i{X: vol.Min.X, Y: vol.Min.Y, Z: vol.Min.Z}
	if c.dir < 0 {
		c.pos.Y = vol.Max.Y
	}
}

// Restore resumes a cursor at pos. It reports false if pos lies outside vol.
func (c *Cursor) Restore(vol geom.Volume, pos geom.Vec3i, dir int) bool {
	if !vol.Contains(pos) {
		return false
	}
	c.vol = vol
	c.pos = pos
	c.dir = normDir(dir)
	return true
}

func (c *Cursor) Pos() geom.Vec3i     { return c.pos }
func (c *Cursor) Dir() int            { return c.dir }
func (c *Cursor) Volume() geom.Volume { return c.vol }

// Advance moves one cell and reports whether the traversal left the last layer.
func (c *Cursor) Advance() (done bool) {
	c.pos.X++
	if c.pos.X <= c.vol.Max.X {
		return false
	}
	c.pos.X = c.vol.Min.X
	c.pos.Z++
	if c.pos.Z <= c.vol.Max.Z {
		return false
	}
	c.pos.Z = c.vol.Min.Z
	c.pos.Y += c.dir
	if c.dir < 0 {
		return c.pos.Y < c.vol.Min.Y
	}
	return c.pos.Y > c.vol.Max.Y
}

func normDir(dir int) int {
	if dir < 0 {
		return -1
	}
	return 1
}
