package log

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelbuilder.ai/internal/sim/world"
)

type entry struct {
	N int `json:"n"`
}

func scanAll(t *testing.T, path string) []int {
	t.Helper()
	var out []int
	require.NoError(t, Scan(path, func(e entry) error {
		out = append(out, e.N)
		return nil
	}))
	return out
}

func TestRotatingCutsHourly(t *testing.T) {
	dir := t.TempDir()
	r := NewRotating(dir, "x")
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }

	require.NoError(t, r.Append(entry{1}))
	require.NoError(t, r.Append(entry{2}))
	clock = clock.Add(2 * time.Minute)
	require.NoError(t, r.Append(entry{3}))
	require.NoError(t, r.Close())
	assert.Equal(t, uint64(3), r.Lines())

	files, err := Files(dir, "x")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "x-2026-03-01-10.jsonl.zst"),
		filepath.Join(dir, "x-2026-03-01-11.jsonl.zst"),
	}, files)
	assert.Equal(t, []int{1, 2}, scanAll(t, files[0]))
	assert.Equal(t, []int{3}, scanAll(t, files[1]))
}

func TestRotatingReopenAppendsFrame(t *testing.T) {
	dir := t.TempDir()
	clock := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 2; i++ {
		r := NewRotating(dir, "x")
		r.now = func() time.Time { return clock }
		require.NoError(t, r.Append(entry{i}))
		require.NoError(t, r.Close())
	}
	files, err := Files(dir, "x")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, []int{1, 2}, scanAll(t, files[0]))
}

func TestScanStop(t *testing.T) {
	dir := t.TempDir()
	r := NewRotating(dir, "x")
	for i := 0; i < 5; i++ {
		require.NoError(t, r.Append(entry{i}))
	}
	require.NoError(t, r.Close())
	files, err := Files(dir, "x")
	require.NoError(t, err)

	seen := 0
	err = Scan(files[0], func(e entry) error {
		seen++
		if e.N == 2 {
			return ErrStop
		}
		return nil
	})
	assert.True(t, errors.Is(err, ErrStop))
	assert.Equal(t, 3, seen)
}

func TestTickAndAuditLoggers(t *testing.T) {
	dir := t.TempDir()
	tl := NewTickLogger(dir)
	al := NewAuditLogger(dir)

	require.NoError(t, tl.WriteTick(world.TickLogEntry{Tick: 7, Digest: "abc"}))
	require.NoError(t, al.WriteAudit(world.AuditEntry{Tick: 7, Actor: "B1", Action: "BREAK", Pos: [3]int{1, 2, 3}, From: "DIRT", To: "AIR", Cost: 0.5}))
	require.NoError(t, tl.Close())
	require.NoError(t, al.Close())

	ticks, err := TickFiles(TickDir(dir))
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	var te []world.TickLogEntry
	require.NoError(t, Scan(ticks[0], func(e world.TickLogEntry) error {
		te = append(te, e)
		return nil
	}))
	require.Len(t, te, 1)
	assert.Equal(t, uint64(7), te[0].Tick)
	assert.Equal(t, "abc", te[0].Digest)

	audits, err := Files(filepath.Join(dir, "audit"), "audit")
	require.NoError(t, err)
	require.Len(t, audits, 1)
	var ae []world.AuditEntry
	require.NoError(t, Scan(audits[0], func(e world.AuditEntry) error {
		ae = append(ae, e)
		return nil
	}))
	require.Len(t, ae, 1)
	assert.Equal(t, "DIRT", ae[0].From)
	assert.Equal(t, [3]int{1, 2, 3}, ae[0].Pos)
}
