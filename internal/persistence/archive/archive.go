// Package archive keeps long-lived copies of selected snapshots. Regular
// snapshots may be pruned or overwritten; epoch archives are not.
package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"voxelbuilder.ai/internal/persistence/snapshot"
)

type BuilderMeta struct {
	ID     string `json:"id"`
	Owner  string `json:"owner"`
	Mode   string `json:"mode"`
	Status string `json:"status"`
	Cursor [3]int `json:"cursor"`
}

type EpochMeta struct {
	Epoch     uint64        `json:"epoch"`
	EndTick   uint64        `json:"end_tick"`
	WorldID   string        `json:"world_id"`
	Seed      int64         `json:"seed"`
	Snapshot  string        `json:"snapshot"`
	CreatedAt string        `json:"created_at"`
	Builders  []BuilderMeta `json:"builders"`
}

// Epoch reports which epoch a snapshot closes, if any. A snapshot records
// the last completed tick, so epoch k ends at tick every*k-1.
func Epoch(tick, every uint64) (uint64, bool) {
	if every == 0 || (tick+1)%every != 0 {
		return 0, false
	}
	return (tick + 1) / every, true
}

// ArchiveEpoch copies an epoch-closing snapshot into
// worldDir/archives/epoch_NNNN/ next to a meta.json. Snapshots that close no
// epoch are ignored and archived is false.
func ArchiveEpoch(worldDir, snapshotPath string, snap snapshot.SnapshotV1, every uint64) (dst string, archived bool, err error) {
	epoch, ok := Epoch(snap.Header.Tick, every)
	if !ok {
		return "", false, nil
	}
	dir := filepath.Join(worldDir, "archives", fmt.Sprintf("epoch_%04d", epoch))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, err
	}
	dst = filepath.Join(dir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, fmt.Errorf("archive epoch %d: %w", epoch, err)
	}

	meta := EpochMeta{
		Epoch:     epoch,
		EndTick:   snap.Header.Tick,
		WorldID:   snap.Header.WorldID,
		Seed:      snap.Seed,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Builders:  make([]BuilderMeta, 0, len(snap.Builders)),
	}
	for _, b := range snap.Builders {
		meta.Builders = append(meta.Builders, BuilderMeta{ID: b.ID, Owner: b.Owner, Mode: b.Mode, Status: b.Status, Cursor: b.Cursor})
	}
	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dst, true, err
	}
	return dst, true, os.WriteFile(filepath.Join(dir, "meta.json"), raw, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
