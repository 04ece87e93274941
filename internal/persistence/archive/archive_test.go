package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelbuilder.ai/internal/persistence/snapshot"
)

func TestEpoch(t *testing.T) {
	for _, tc := range []struct {
		tick, every uint64
		epoch       uint64
		ok          bool
	}{
		{99, 100, 1, true},
		{199, 100, 2, true},
		{100, 100, 0, false},
		{0, 1, 1, true},
		{5, 0, 0, false},
	} {
		epoch, ok := Epoch(tc.tick, tc.every)
		assert.Equal(t, tc.ok, ok, "tick %d every %d", tc.tick, tc.every)
		assert.Equal(t, tc.epoch, epoch, "tick %d every %d", tc.tick, tc.every)
	}
}

func TestArchiveEpochCopiesSnapshot(t *testing.T) {
	worldDir := filepath.Join(t.TempDir(), "w1")
	src := filepath.Join(worldDir, "snapshots", "199.snap.zst")
	require.NoError(t, os.MkdirAll(filepath.Dir(src), 0o755))
	require.NoError(t, os.WriteFile(src, []byte("snap"), 0o644))

	snap := snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: snapshot.Version, WorldID: "w1", Tick: 199},
		Seed:     42,
		Builders: []snapshot.BuilderV1{{ID: "B1", Owner: "alice", Mode: "FILL", Status: "FINISHED", Cursor: [3]int{1, 2, 3}}},
	}
	dst, archived, err := ArchiveEpoch(worldDir, src, snap, 100)
	require.NoError(t, err)
	require.True(t, archived)
	assert.Equal(t, filepath.Join(worldDir, "archives", "epoch_0002", "199.snap.zst"), dst)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "snap", string(got))

	raw, err := os.ReadFile(filepath.Join(filepath.Dir(dst), "meta.json"))
	require.NoError(t, err)
	var meta EpochMeta
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, uint64(2), meta.Epoch)
	assert.Equal(t, uint64(199), meta.EndTick)
	require.Len(t, meta.Builders, 1)
	assert.Equal(t, "FINISHED", meta.Builders[0].Status)
}

func TestArchiveEpochSkipsMidEpoch(t *testing.T) {
	snap := snapshot.SnapshotV1{Header: snapshot.Header{Tick: 150}}
	_, archived, err := ArchiveEpoch(t.TempDir(), "missing.snap.zst", snap, 100)
	require.NoError(t, err)
	assert.False(t, archived)
}
