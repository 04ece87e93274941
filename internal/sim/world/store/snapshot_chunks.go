package store

import (
	"fmt"

	snapv1 "voxelbuilder.ai/internal/persistence/snapshot"
	"voxelbuilder.ai/internal/sim/encoding"
)

// ExportLoadedChunks converts loaded chunk data into snapshot chunks.
func ExportLoadedChunks(s *ChunkStore) []snapv1.ChunkV1 {
	keys := s.LoadedChunkKeys()
	out := make([]snapv1.ChunkV1, 0, len(keys))
	for _, k := range keys {
		ch := s.Chunks[k]
		out = append(out, snapv1.ChunkV1{
			CX:     k.CX,
			CZ:     k.CZ,
			Height: ch.Height,
			Blocks: encoding.EncodeBlocks(ch.Blocks),
		})
	}
	return out
}

// ImportChunks rebuilds a chunk store from snapshot chunks.
func ImportChunks(gen WorldGen, chunks []snapv1.ChunkV1) (*ChunkStore, error) {
	store := NewChunkStore(gen)
	h := store.Gen.Height
	for _, ch := range chunks {
		if ch.Height != h {
			return nil, fmt.Errorf("snapshot chunk height mismatch: got %d want %d", ch.Height, h)
		}
		blocks, err := encoding.DecodeBlocks(ch.Blocks, ChunkSize*ChunkSize*h)
		if err != nil {
			return nil, fmt.Errorf("snapshot chunk %d,%d: %w", ch.CX, ch.CZ, err)
		}
		c := &Chunk{
			CX:     ch.CX,
			CZ:     ch.CZ,
			Height: h,
			Blocks: blocks,
		}
		_ = c.Digest()
		store.Chunks[ChunkKey{CX: ch.CX, CZ: ch.CZ}] = c
	}
	return store, nil
}
