package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxelbuilder.ai/internal/observerproto"
	"voxelbuilder.ai/internal/persistence/snapshot"
	"voxelbuilder.ai/internal/sim/builder"
	"voxelbuilder.ai/internal/sim/geom"
	"voxelbuilder.ai/internal/sim/world/permissions"
)

type recordingObserver struct{ msgs []observerproto.TickMsg }

func (o *recordingObserver) ObserveTick(msg observerproto.TickMsg) { o.msgs = append(o.msgs, msg) }

func TestWorldClearsAreaTopDown(t *testing.T) {
	w := newTestWorld(t)
	setupArea(t, w)
	ticks := &memTickLogger{}
	audits := &memAuditLogger{}
	obs := &recordingObserver{}
	w.SetTickLogger(ticks)
	w.SetAuditLogger(audits)
	w.AddObserver(obs)

	cmdOK(t, w, Command{Kind: CmdRecharge, BuilderID: "B1", Amount: 1000})
	w.StepOnce([]Command{{Kind: CmdStart, BuilderID: "B1"}})

	b, err := w.Builder("B1")
	require.NoError(t, err)
	for i := 0; i < 100 && b.Status() == builder.StatusRunning; i++ {
		w.StepOnce(nil)
	}
	require.Equal(t, builder.StatusFinished, b.Status())

	for x := 0; x <= 2; x++ {
		for y := 5; y <= 7; y++ {
			for z := 0; z <= 2; z++ {
				assert.Equal(t, "AIR", w.MaterialAt(geom.Vec3i{X: x, Y: y, Z: z}))
			}
		}
	}
	assert.Equal(t, "DIRT", w.MaterialAt(geom.Vec3i{X: 0, Y: 4, Z: 0}))
	assert.Equal(t, "GRASS", w.MaterialAt(geom.Vec3i{X: 3, Y: 7, Z: 0}))

	require.Len(t, audits.entries, 27)
	assert.Equal(t, 7, audits.entries[0].Pos[1])
	assert.Equal(t, "BREAK", audits.entries[0].Action)
	assert.Equal(t, "alice", audits.entries[0].Owner)
	assert.Equal(t, 5, audits.entries[26].Pos[1])

	// 9 grass at 0.6 and 18 dirt at 0.5.
	assert.InDelta(t, 1000-9*0.6-18*0.5, b.Energy().Charge(), 1e-9)

	var saw []string
	for _, e := range ticks.entries {
		for _, tr := range e.Transitions {
			saw = append(saw, tr.To)
		}
	}
	assert.Equal(t, []string{"RUNNING", "FINISHED"}, saw)
	require.NotEmpty(t, obs.msgs)
	last := obs.msgs[len(obs.msgs)-1]
	require.Len(t, last.Builders, 1)
	assert.Equal(t, "FINISHED", last.Builders[0].Status)
}

func TestWorldFillConsumesInventory(t *testing.T) {
	w := newTestWorld(t)
	if _, err := w.AddBuilder(BuilderSpec{ID: "B1", Owner: "alice", Pos: geom.Vec3i{X: -1, Y: 8, Z: 0}}); err != nil {
		t.Fatal(err)
	}
	cmdOK(t, w, Command{Kind: CmdMarkLocation, Ref: "a", Pos: [3]int{0, 8, 0}})
	cmdOK(t, w, Command{Kind: CmdMarkLocation, Ref: "b", Pos: [3]int{1, 9, 1}})
	cmdOK(t, w, Command{Kind: CmdInsertMarker, BuilderID: "B1", Ref: "a"})
	cmdOK(t, w, Command{Kind: CmdInsertMarker, BuilderID: "B1", Ref: "b"})
	cmdOK(t, w, Command{Kind: CmdSetMode, BuilderID: "B1", Mode: "fill"})

	res := cmdOK(t, w, Command{Kind: CmdStart, BuilderID: "B1"})
	if res.Status != builder.StatusNoInventory {
		t.Fatalf("expected NO_INVENTORY, got %s", res.Status)
	}

	res = w.applyCommand(Command{Kind: CmdInsertMaterial, BuilderID: "B1", Material: "GRASS", Count: 4})
	if !errors.Is(res.Err, ErrRejectedItem) {
		t.Fatalf("expected ErrRejectedItem, got %v", res.Err)
	}
	res = cmdOK(t, w, Command{Kind: CmdInsertMaterial, BuilderID: "B1", Material: "BRICK", Count: 5})
	if res.Accepted != 5 {
		t.Fatalf("accepted %v", res.Accepted)
	}
	cmdOK(t, w, Command{Kind: CmdRecharge, BuilderID: "B1", Amount: 100})
	cmdOK(t, w, Command{Kind: CmdStart, BuilderID: "B1"})

	b, _ := w.Builder("B1")
	for i := 0; i < 20 && b.Status() == builder.StatusRunning; i++ {
		w.StepOnce(nil)
	}
	// Eight cells, five bricks.
	if b.Status() != builder.StatusHalted {
		t.Fatalf("expected HALTED, got %s", b.Status())
	}
	if b.Cursor() != (geom.Vec3i{X: 1, Y: 9, Z: 0}) {
		t.Fatalf("unexpected halt position %v", b.Cursor())
	}
	if got := w.MaterialAt(geom.Vec3i{X: 1, Y: 8, Z: 1}); got != "BRICK" {
		t.Fatalf("expected BRICK, got %s", got)
	}
}

func TestWorldClaimDeniesBuilder(t *testing.T) {
	w := newTestWorld(t)
	setupArea(t, w)
	w.PutClaim(&permissions.Claim{
		LandID: "L1",
		Owner:  "bob",
		Area:   geom.NewVolume(geom.Vec3i{X: 0, Y: 0, Z: 0}, geom.Vec3i{X: 10, Y: 15, Z: 10}),
	})
	cmdOK(t, w, Command{Kind: CmdRecharge, BuilderID: "B1", Amount: 100})
	w.StepOnce([]Command{{Kind: CmdStart, BuilderID: "B1"}})

	b, _ := w.Builder("B1")
	if b.Status() != builder.StatusNoPermission {
		t.Fatalf("expected NO_PERMISSION, got %s", b.Status())
	}
	if w.MaterialAt(geom.Vec3i{X: 0, Y: 7, Z: 0}) != "GRASS" {
		t.Fatalf("claimed cell was changed")
	}

	w.Claims().Get("L1").Members["alice"] = true
	w.StepOnce([]Command{{Kind: CmdStart, BuilderID: "B1"}})
	if b.Status() != builder.StatusRunning {
		t.Fatalf("expected RUNNING after membership, got %s", b.Status())
	}
}

func TestWorldCommandErrors(t *testing.T) {
	w := newTestWorld(t)
	setupArea(t, w)

	res := w.applyCommand(Command{Kind: CmdStart, BuilderID: "nope"})
	assert.ErrorIs(t, res.Err, ErrUnknownBuilder)

	cmdOK(t, w, Command{Kind: CmdStart, BuilderID: "B1"})
	res = w.applyCommand(Command{Kind: CmdSetMode, BuilderID: "B1", Mode: "FILL"})
	assert.ErrorIs(t, res.Err, ErrRunning)
	res = w.applyCommand(Command{Kind: CmdSetMarker, BuilderID: "B1", Slot: 0})
	assert.ErrorIs(t, res.Err, ErrRunning)
	res = w.applyCommand(Command{Kind: CmdSetMode, BuilderID: "B1", Mode: "DIG"})
	assert.Error(t, res.Err)

	cmdOK(t, w, Command{Kind: CmdStop, BuilderID: "B1"})
	res = w.applyCommand(Command{Kind: CmdInsertMarker, BuilderID: "B1", Ref: "ghost"})
	assert.ErrorIs(t, res.Err, ErrUnknownMarker)
	res = w.applyCommand(Command{Kind: CommandKind("EXPLODE"), BuilderID: "B1"})
	assert.ErrorIs(t, res.Err, ErrUnknownCommand)
	res = w.applyCommand(Command{Kind: CmdStart, BuilderID: "B1", Actor: "mallory"})
	assert.ErrorIs(t, res.Err, ErrNotOwner)
	assert.Equal(t, builder.StatusPaused, res.Status)
	cmdOK(t, w, Command{Kind: CmdStart, BuilderID: "B1", Actor: "alice"})

	_, err := w.AddBuilder(BuilderSpec{ID: "B1"})
	assert.ErrorIs(t, err, ErrDuplicate)
	_, err = w.AddBuilder(BuilderSpec{ID: "B2", Pos: geom.Vec3i{Y: 99}})
	assert.Error(t, err)
}

func TestWorldUnpoweredBuilderNeitherChargesNorSteps(t *testing.T) {
	w := newTestWorld(t)
	if _, err := w.AddBuilder(BuilderSpec{ID: "B1", Owner: "alice", Pos: geom.Vec3i{X: -1, Y: 8}, ChargeRate: 10}); err != nil {
		t.Fatal(err)
	}
	cmdOK(t, w, Command{Kind: CmdMarkLocation, Ref: "a", Pos: [3]int{0, 7, 0}})
	cmdOK(t, w, Command{Kind: CmdMarkLocation, Ref: "b", Pos: [3]int{1, 7, 0}})
	cmdOK(t, w, Command{Kind: CmdInsertMarker, BuilderID: "B1", Ref: "a"})
	cmdOK(t, w, Command{Kind: CmdInsertMarker, BuilderID: "B1", Ref: "b"})
	w.StepOnce([]Command{
		{Kind: CmdSetPowered, BuilderID: "B1", Powered: false},
		{Kind: CmdStart, BuilderID: "B1"},
	})
	b, _ := w.Builder("B1")
	assert.Equal(t, 0.0, b.Energy().Charge())
	assert.Equal(t, "GRASS", w.MaterialAt(geom.Vec3i{X: 0, Y: 7, Z: 0}))

	w.StepOnce([]Command{{Kind: CmdSetPowered, BuilderID: "B1", Powered: true}})
	assert.Equal(t, "AIR", w.MaterialAt(geom.Vec3i{X: 0, Y: 7, Z: 0}))
	assert.InDelta(t, 10-0.6, b.Energy().Charge(), 1e-9)
}

func TestWorldSnapshotRoundTripIsDeterministic(t *testing.T) {
	w := newTestWorld(t)
	setupArea(t, w)
	w.PutClaim(&permissions.Claim{LandID: "L9", Owner: "alice", Area: geom.NewVolume(geom.Vec3i{X: 30}, geom.Vec3i{X: 40, Y: 15, Z: 10}), Flags: permissions.Flags{AllowBreak: true}})
	cmdOK(t, w, Command{Kind: CmdRecharge, BuilderID: "B1", Amount: 3})
	w.StepOnce([]Command{{Kind: CmdStart, BuilderID: "B1"}})
	w.StepOnce(nil)

	snap := w.ExportSnapshot(w.CurrentTick() - 1)
	w2, err := NewFromSnapshot(WorldConfig{}, w.catalogs, snap, nil)
	require.NoError(t, err)
	require.Equal(t, w.stateDigest(), w2.stateDigest())
	require.Equal(t, w.CurrentTick(), w2.CurrentTick())

	b2, err := w2.Builder("B1")
	require.NoError(t, err)
	b1, _ := w.Builder("B1")
	assert.Equal(t, b1.Status(), b2.Status())
	assert.Equal(t, b1.Cursor(), b2.Cursor())
	require.NotNil(t, w2.Claims().Get("L9"))

	for i := 0; i < 5; i++ {
		_, d1 := w.StepOnce(nil)
		_, d2 := w2.StepOnce(nil)
		require.Equal(t, d1, d2, "tick %d", i)
	}
}

func TestWorldSnapshotRejectsPaletteMismatch(t *testing.T) {
	w := newTestWorld(t)
	snap := w.ExportSnapshot(0)
	snap.PaletteDigest = "other"
	_, err := NewFromSnapshot(WorldConfig{}, w.catalogs, snap, nil)
	assert.Error(t, err)
}

func TestWorldSnapshotSinkEveryN(t *testing.T) {
	w := newTestWorld(t)
	w.cfg.SnapshotEveryTicks = 3
	sink := make(chan snapshot.SnapshotV1, 4)
	w.SetSnapshotSink(sink)
	for i := 0; i < 7; i++ {
		w.StepOnce(nil)
	}
	require.Len(t, sink, 2)
	assert.Equal(t, uint64(3), (<-sink).Header.Tick)
	assert.Equal(t, uint64(6), (<-sink).Header.Tick)
}

func TestWorldBootstrapCorners(t *testing.T) {
	w := newTestWorld(t)
	setupArea(t, w)
	w.StepOnce(nil)
	infos := w.Builders()
	require.Len(t, infos, 1)
	require.NotNil(t, infos[0].WorkArea)
	assert.Equal(t, int64(27), infos[0].WorkArea.Cells)
	assert.Equal(t, [3]int{0, 5, 0}, infos[0].WorkArea.Corners[0])
	assert.Equal(t, [3]int{2, 7, 2}, infos[0].WorkArea.Corners[7])
	assert.Equal(t, "Selected area:", infos[0].Label[0])
}

func TestWorldRunAcceptsSubmittedCommands(t *testing.T) {
	w := newTestWorld(t)
	setupArea(t, w)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	res, err := w.Submit(ctx, Command{Kind: CmdToggle, BuilderID: "B1"})
	require.NoError(t, err)
	assert.Equal(t, builder.StatusRunning, res.Status)

	_, err = w.Submit(ctx, Command{Kind: CmdStart, BuilderID: "missing"})
	assert.ErrorIs(t, err, ErrUnknownBuilder)

	w.Stop()
	require.NoError(t, <-done)

	_, err = w.Submit(context.Background(), Command{Kind: CmdStop, BuilderID: "B1"})
	assert.ErrorIs(t, err, ErrWorldNotRunning)
}

func TestWorldCheckpointResumesAtNextTick(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.Checkpoint()
	require.Error(t, err)

	setupArea(t, w)
	cmdOK(t, w, Command{Kind: CmdRecharge, BuilderID: "B1", Amount: 100})
	w.StepOnce([]Command{{Kind: CmdStart, BuilderID: "B1"}})
	snap, err := w.Checkpoint()
	require.NoError(t, err)
	require.Equal(t, uint64(0), snap.Header.Tick)

	w2, err := NewFromSnapshot(WorldConfig{}, w.catalogs, snap, w.log)
	require.NoError(t, err)
	require.Equal(t, w.CurrentTick(), w2.CurrentTick())
	for i := 0; i < 3; i++ {
		_, d1 := w.StepOnce(nil)
		_, d2 := w2.StepOnce(nil)
		require.Equal(t, d1, d2)
	}
}
