package store

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

func (s *ChunkStore) InBounds(x, y, z int) bool {
	if y < 0 || y >= s.Gen.Height {
		return false
	}
	if s.Gen.BoundaryR > 0 {
		if x < -s.Gen.BoundaryR || x > s.Gen.BoundaryR || z < -s.Gen.BoundaryR || z > s.Gen.BoundaryR {
			return false
		}
	}
	return true
}

func (s *ChunkStore) LoadedChunkKeys() []ChunkKey {
	keys := make([]ChunkKey, 0, len(s.Chunks))
	for k := range s.Chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].CX != keys[j].CX {
			return keys[i].CX < keys[j].CX
		}
		return keys[i].CZ < keys[j].CZ
	})
	return keys
}

// GetBlock returns Air outside the world bounds.
func (s *ChunkStore) GetBlock(x, y, z int) uint16 {
	if !s.InBounds(x, y, z) {
		return s.Gen.Air
	}
	ch := s.GetOrGenChunk(FloorDiv(x, ChunkSize), FloorDiv(z, ChunkSize))
	return ch.Get(Mod(x, ChunkSize), y, Mod(z, ChunkSize))
}

// SetBlock reports false for positions outside the world bounds.
func (s *ChunkStore) SetBlock(x, y, z int, b uint16) bool {
	if !s.InBounds(x, y, z) {
		return false
	}
	ch := s.GetOrGenChunk(FloorDiv(x, ChunkSize), FloorDiv(z, ChunkSize))
	ch.Set(Mod(x, ChunkSize), y, Mod(z, ChunkSize), b)
	return true
}

func (s *ChunkStore) GetOrGenChunk(cx, cz int) *Chunk {
	k := ChunkKey{CX: cx, CZ: cz}
	if ch, ok := s.Chunks[k]; ok {
		return ch
	}
	ch := &Chunk{
		CX:     cx,
		CZ:     cz,
		Height: s.Gen.Height,
		Blocks: make([]uint16, ChunkSize*ChunkSize*s.Gen.Height),
	}
	s.GenerateChunk(ch)
	ch.dirty = true
	_ = ch.Digest()
	s.Chunks[k] = ch
	return ch
}

// Digest hashes every loaded chunk in key order.
func (s *ChunkStore) Digest() string {
	h := sha256.New()
	for _, k := range s.LoadedChunkKeys() {
		d := s.Chunks[k].Digest()
		h.Write(d[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
