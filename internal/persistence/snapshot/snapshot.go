package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	WorldID string `json:"world_id"`
	Tick    uint64 `json:"tick"`
}

type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed               int64 `json:"seed"`
	TickRate           int   `json:"tick_rate_hz"`
	Height             int   `json:"height"`
	BoundaryR          int   `json:"boundary_r"`
	GroundY            int   `json:"ground_y"`
	SnapshotEveryTicks int   `json:"snapshot_every_ticks,omitempty"`

	// Palette digest of the block catalog the chunk ids were written against.
	PaletteDigest string `json:"palette_digest"`

	Chunks   []ChunkV1   `json:"chunks"`
	Claims   []ClaimV1   `json:"claims"`
	Markers  []MarkerV1  `json:"markers"`
	Builders []BuilderV1 `json:"builders"`
}

// ChunkV1 holds one chunk column; Blocks is the run-length encoded palette
// id array in store index order.
type ChunkV1 struct {
	CX     int    `json:"cx"`
	CZ     int    `json:"cz"`
	Height int    `json:"height"`
	Blocks string `json:"blocks_rle"`
}

type ClaimV1 struct {
	LandID  string       `json:"land_id"`
	Owner   string       `json:"owner"`
	Min     [3]int       `json:"min"`
	Max     [3]int       `json:"max"`
	Flags   ClaimFlagsV1 `json:"flags"`
	Members []string     `json:"members,omitempty"`
}

type ClaimFlagsV1 struct {
	AllowBuild bool `json:"allow_build"`
	AllowBreak bool `json:"allow_break"`
}

// MarkerV1 is a marker item with a recorded location. The ref is what a
// builder's marker slot holds.
type MarkerV1 struct {
	Ref     string `json:"ref"`
	WorldID string `json:"world_id"`
	Pos     [3]int `json:"pos"`
}

type StackV1 struct {
	Material string `json:"material"`
	Count    int    `json:"count"`
}

// BuilderV1 stores what is needed to resume a traversal. The work area is
// re-derived from the marker refs on import.
type BuilderV1 struct {
	ID      string `json:"id"`
	Owner   string `json:"owner"`
	WorldID string `json:"world_id"`
	Pos     [3]int `json:"pos"`

	Mode    string    `json:"mode"`
	Status  string    `json:"status"`
	Powered bool      `json:"powered"`
	Markers [2]string `json:"markers"`

	Cursor    [3]int  `json:"cursor"`
	CursorDir int     `json:"cursor_dir"`
	Charge    float64 `json:"charge"`
	BaseCost  float64 `json:"base_cost"`

	// Machine parameters the builder was created with. Start re-reads
	// SCUPerOp, so replays must not take it from the current tuning.
	SCUPerOp    float64 `json:"scu_per_op,omitempty"`
	MaxCharge   float64 `json:"max_charge"`
	ChargeRate  float64 `json:"charge_rate"`
	MaxDistance int     `json:"max_distance,omitempty"`

	Slots    []StackV1 `json:"slots"`
	NextSlot int       `json:"next_slot"`
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

// PathForTick is the conventional file name for a snapshot taken at tick.
func PathForTick(dir string, tick uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d.snap.zst", tick))
}
