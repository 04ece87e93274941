package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	persistlog "voxelbuilder.ai/internal/persistence/log"
	"voxelbuilder.ai/internal/sim/tuning"
	"voxelbuilder.ai/internal/sim/world"
)

func TestReplayMatchesLiveRun(t *testing.T) {
	w, cats, scen := newScenarioWorld(t)
	dir := t.TempDir()
	tl := persistlog.NewTickLogger(dir)
	w.SetTickLogger(tl)

	w.StepOnce(nil)
	genesis, err := w.Checkpoint()
	require.NoError(t, err)

	const ticks = 40
	for i := 0; i < ticks; i++ {
		var cmds []world.Command
		switch i {
		case 10:
			cmds = []world.Command{{Kind: world.CmdStop, BuilderID: "B2", Actor: "bob"}}
		case 15:
			cmds = []world.Command{{Kind: world.CmdStart, BuilderID: "B2", Actor: "bob"}}
		case 20:
			cmds = []world.Command{{Kind: world.CmdSetPowered, BuilderID: "B1", Powered: false}}
		}
		w.StepOnce(cmds)
	}
	require.NoError(t, tl.Close())

	replayed, err := world.NewFromSnapshot(world.ConfigFromTuning(scen.WorldID, scen.Seed, tuning.Defaults()), cats, genesis, logrus.WithField("world", "replay"))
	require.NoError(t, err)
	checked, err := replayDir(replayed, filepath.Join(dir, "ticks"), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(ticks), checked)
	assert.Equal(t, w.CurrentTick(), replayed.CurrentTick())
}

func TestReplayStopsAtToTick(t *testing.T) {
	w, cats, scen := newScenarioWorld(t)
	dir := t.TempDir()
	tl := persistlog.NewTickLogger(dir)
	w.SetTickLogger(tl)

	w.StepOnce(nil)
	genesis, err := w.Checkpoint()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		w.StepOnce(nil)
	}
	require.NoError(t, tl.Close())

	replayed, err := world.NewFromSnapshot(world.ConfigFromTuning(scen.WorldID, scen.Seed, tuning.Defaults()), cats, genesis, logrus.WithField("world", "replay"))
	require.NoError(t, err)
	// Ticks 1..5 are stepped; only 3..5 are compared.
	checked, err := replayDir(replayed, filepath.Join(dir, "ticks"), 3, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), checked)
	assert.Equal(t, uint64(6), replayed.CurrentTick())
}

func TestReplayDirWithoutLogs(t *testing.T) {
	w, _, _ := newScenarioWorld(t)
	_, err := replayDir(w, t.TempDir(), 0, 0)
	assert.Error(t, err)
}

func TestReplayUsesSnapshotMachineParams(t *testing.T) {
	w, cats, scen := newTunedScenarioWorld(t, func(tu *tuning.Tuning) { tu.Builder.SCUPerOp = 3 })
	dir := t.TempDir()
	tl := persistlog.NewTickLogger(dir)
	w.SetTickLogger(tl)

	w.StepOnce(nil)
	genesis, err := w.Checkpoint()
	require.NoError(t, err)
	for _, b := range genesis.Builders {
		require.Equal(t, 3.0, b.SCUPerOp, b.ID)
	}

	// Restarting makes the builders read their per-operation cost again.
	const ticks = 20
	for i := 0; i < ticks; i++ {
		var cmds []world.Command
		switch i {
		case 4:
			cmds = []world.Command{
				{Kind: world.CmdStop, BuilderID: "B1", Actor: "alice"},
				{Kind: world.CmdStop, BuilderID: "B2", Actor: "bob"},
			}
		case 5:
			cmds = []world.Command{
				{Kind: world.CmdStart, BuilderID: "B1", Actor: "alice"},
				{Kind: world.CmdStart, BuilderID: "B2", Actor: "bob"},
			}
		}
		w.StepOnce(cmds)
	}
	require.NoError(t, tl.Close())

	replayed, err := world.NewFromSnapshot(world.ConfigFromTuning(scen.WorldID, scen.Seed, tuning.Defaults()), cats, genesis, logrus.WithField("world", "replay"))
	require.NoError(t, err)
	checked, err := replayDir(replayed, filepath.Join(dir, "ticks"), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(ticks), checked)
}

func TestLoadReplayTuning(t *testing.T) {
	prev := configDir
	configDir = t.TempDir()
	t.Cleanup(func() { configDir = prev })

	// A missing default file falls back to the defaults.
	tu, err := loadReplayTuning("")
	require.NoError(t, err)
	assert.Equal(t, tuning.Defaults(), tu)

	_, err = loadReplayTuning(filepath.Join(configDir, "nope.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	bad := filepath.Join(configDir, "tuning.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("builder: [oops"), 0o644))
	_, err = loadReplayTuning("")
	assert.Error(t, err, "a malformed default file must not fall back")

	tu, err = loadReplayTuning(filepath.Join(repoConfigs, "tuning.yaml"))
	require.NoError(t, err)
	assert.Positive(t, tu.Builder.SCUPerOp)
}
