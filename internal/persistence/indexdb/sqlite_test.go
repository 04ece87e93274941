package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"voxelbuilder.ai/internal/observerproto"
	"voxelbuilder.ai/internal/persistence/snapshot"
	"voxelbuilder.ai/internal/sim/catalogs"
	"voxelbuilder.ai/internal/sim/tuning"
	"voxelbuilder.ai/internal/sim/world"
)

func TestSQLiteIndex_WritesTicksTransitionsAndAudits(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index", "world.sqlite")
	idx, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_ = idx.WriteTick(world.TickLogEntry{
		Tick:   1,
		Digest: "d1",
		Transitions: []observerproto.Transition{
			{BuilderID: "B1", From: "READY", To: "RUNNING"},
			{BuilderID: "B2", From: "NO_WORK_AREA", To: "READY"},
		},
	})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 1, Actor: "B1", Action: "BREAK", Pos: [3]int{0, 7, 0}, From: "GRASS", To: "AIR", Cost: 0.6})
	_ = idx.WriteAudit(world.AuditEntry{Tick: 1, Actor: "B1", Action: "BREAK", Pos: [3]int{1, 7, 0}, From: "GRASS", To: "AIR", Cost: 0.6})
	_ = idx.WriteTick(world.TickLogEntry{
		Tick:        2,
		Digest:      "d2",
		Transitions: []observerproto.Transition{{BuilderID: "B1", From: "RUNNING", To: "FINISHED"}},
	})
	idx.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{
		Header:   snapshot.Header{Version: snapshot.Version, WorldID: "W", Tick: 2},
		Seed:     9,
		Height:   16,
		Builders: []snapshot.BuilderV1{{ID: "B1"}, {ID: "B2"}},
	})
	if err := idx.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Writes after close are ignored.
	_ = idx.WriteTick(world.TickLogEntry{Tick: 3})

	idx, err = OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer idx.Close()
	ctx := context.Background()

	trs, err := idx.Transitions(ctx, "B1")
	if err != nil {
		t.Fatalf("transitions: %v", err)
	}
	if len(trs) != 2 {
		t.Fatalf("expected 2 transitions for B1, got %+v", trs)
	}
	if trs[0].To != "RUNNING" || trs[1].Tick != 2 || trs[1].To != "FINISHED" {
		t.Fatalf("unexpected transitions: %+v", trs)
	}

	n, err := idx.AuditCount(ctx, "B1")
	if err != nil || n != 2 {
		t.Fatalf("audit count: n=%d err=%v", n, err)
	}

	var ticks, builders int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&ticks); err != nil {
		t.Fatalf("count ticks: %v", err)
	}
	if ticks != 2 {
		t.Fatalf("expected 2 ticks, got %d", ticks)
	}
	if err := idx.db.QueryRow(`SELECT builders FROM snapshots WHERE tick = 2`).Scan(&builders); err != nil {
		t.Fatalf("snapshot row: %v", err)
	}
	if builders != 2 {
		t.Fatalf("expected 2 builders, got %d", builders)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "world.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()

	cats := &catalogs.Catalogs{Blocks: catalogs.BlockCatalog{
		Palette:       []string{"AIR", "STONE"},
		PaletteDigest: "pal",
	}}
	if err := idx.UpsertCatalogs("", cats, tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	var digest, raw string
	if err := idx.db.QueryRow(`SELECT digest, json FROM catalogs WHERE name = 'blocks_palette'`).Scan(&digest, &raw); err != nil {
		t.Fatalf("palette row: %v", err)
	}
	if digest != "pal" || raw != `["AIR","STONE"]` {
		t.Fatalf("unexpected palette row: %q %q", digest, raw)
	}
	var n int
	if err := idx.db.QueryRow(`SELECT COUNT(*) FROM catalogs WHERE name = 'tuning'`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("tuning row: n=%d err=%v", n, err)
	}
}

func TestSQLiteIndex_DropsWhenQueueFull(t *testing.T) {
	idx, err := openSQLite(filepath.Join(t.TempDir(), "world.sqlite"), 1)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer idx.Close()
	for i := 0; i < 5000; i++ {
		_ = idx.WriteAudit(world.AuditEntry{Tick: uint64(i), Actor: "B1", Action: "PLACE"})
	}
	if idx.Dropped() == 0 {
		t.Fatalf("expected drops with a one-slot queue")
	}
}

func TestSQLiteIndex_ReadableWhileOpen(t *testing.T) {
	idx, err := OpenSQLite(filepath.Join(t.TempDir(), "world.sqlite"))
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.WriteTick(world.TickLogEntry{
		Tick:        4,
		Digest:      "d4",
		Transitions: []observerproto.Transition{{BuilderID: "B9", From: "READY", To: "RUNNING"}},
	}))
	require.Eventually(t, func() bool {
		trs, err := idx.Transitions(context.Background(), "B9")
		return err == nil && len(trs) == 1
	}, 10*time.Second, 50*time.Millisecond)
	require.Zero(t, idx.Failed())
}

type brokenOp struct{}

func (brokenOp) apply(b *batch) error {
	return b.exec(`INSERT INTO no_such_table(x) VALUES(1)`)
}

func TestSQLiteIndex_FailedOpKeepsRestOfBatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "world.sqlite")
	idx, err := OpenSQLite(dbPath)
	require.NoError(t, err)

	require.NoError(t, idx.WriteTick(world.TickLogEntry{Tick: 1, Digest: "d1"}))
	idx.push(brokenOp{})
	require.NoError(t, idx.WriteTick(world.TickLogEntry{Tick: 2, Digest: "d2"}))
	require.NoError(t, idx.Close())
	require.Equal(t, uint64(1), idx.Failed())

	idx, err = OpenSQLite(dbPath)
	require.NoError(t, err)
	defer idx.Close()
	var ticks int
	require.NoError(t, idx.db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&ticks))
	require.Equal(t, 2, ticks)
}
