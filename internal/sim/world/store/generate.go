package store

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash2(seed int64, x, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// inPond reports whether (x,z) lies in a circular pond centered somewhere in
// its grid cell or a neighbor.
func inPond(seed int64, x, z, grid, radius int, probPermille uint64) bool {
	gx := FloorDiv(x, grid)
	gz := FloorDiv(z, grid)
	r2 := radius * radius
	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			cgx, cgz := gx+dx, gz+dz
			h := Hash2(seed, cgx, cgz)
			if h%1000 >= probPermille {
				continue
			}
			cx := cgx*grid + int((h>>10)%uint64(grid))
			cz := cgz*grid + int((h>>20)%uint64(grid))
			ddx, ddz := x-cx, z-cz
			if ddx*ddx+ddz*ddz <= r2 {
				return true
			}
		}
	}
	return false
}

// GenerateChunk lays flat terrain: stone, three layers of dirt, a grass top
// at GroundY-1, and shallow water ponds in place of the grass.
func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	g := s.Gen
	top := g.GroundY - 1
	if top >= ch.Height {
		top = ch.Height - 1
	}
	for z := 0; z < ChunkSize; z++ {
		for x := 0; x < ChunkSize; x++ {
			wx := ch.CX*ChunkSize + x
			wz := ch.CZ*ChunkSize + z
			pond := inPond(g.Seed+501, wx, wz, 64, 4, 300)
			for y := 0; y <= top; y++ {
				var b uint16
				switch {
				case y == top && pond:
					b = g.Water
				case y == top:
					b = g.Grass
				case y >= top-3:
					b = g.Dirt
				default:
					b = g.Stone
				}
				ch.Blocks[ch.index(x, y, z)] = b
			}
		}
	}
}
