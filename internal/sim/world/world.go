package world

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"voxelbuilder.ai/internal/observerproto"
	"voxelbuilder.ai/internal/persistence/snapshot"
	"voxelbuilder.ai/internal/sim/builder"
	"voxelbuilder.ai/internal/sim/catalogs"
	"voxelbuilder.ai/internal/sim/geom"
	"voxelbuilder.ai/internal/sim/world/permissions"
	"voxelbuilder.ai/internal/sim/world/store"
)

var (
	ErrUnknownBuilder  = errors.New("unknown builder")
	ErrDuplicate       = errors.New("builder already exists")
	ErrRunning         = errors.New("builder is running")
	ErrUnknownMarker   = errors.New("marker has no recorded location")
	ErrRejectedItem    = errors.New("material not accepted by builder")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrWorldNotRunning = errors.New("world loop is not running")
	ErrNotOwner        = errors.New("actor does not own builder")
)

// World hosts builders on a voxel grid. It is single-threaded: all state is
// accessed only from the goroutine running Run (or calling StepOnce).
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	log      *logrus.Entry

	tick atomic.Uint64

	chunks   *store.ChunkStore
	claims   *permissions.Registry
	markers  map[string]builder.Marker
	builders map[string]*builder.Builder
	order    []string

	inbox chan Command
	stop  chan struct{}

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	observers []TickObserver

	// Per-tick scratch.
	transitions []observerproto.Transition
	effects     effectCounts

	// Read-only view for other goroutines, refreshed every tick.
	bootstrap atomic.Pointer[[]observerproto.BuilderInfo]
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

// TickObserver receives the tick message from the world goroutine. It must
// not block.
type TickObserver interface {
	ObserveTick(msg observerproto.TickMsg)
}

type TickLogEntry struct {
	Tick        uint64                     `json:"tick"`
	Commands    []Command                  `json:"commands,omitempty"`
	Steps       []StepRecord               `json:"steps,omitempty"`
	Transitions []observerproto.Transition `json:"transitions,omitempty"`
	Digest      string                     `json:"digest"`
}

type StepRecord struct {
	BuilderID string  `json:"builder_id"`
	Action    string  `json:"action"`
	Pos       [3]int  `json:"pos"`
	Cost      float64 `json:"cost,omitempty"`
	Status    string  `json:"status"`
}

type AuditEntry struct {
	Tick   uint64  `json:"tick"`
	Actor  string  `json:"actor"`
	Owner  string  `json:"owner,omitempty"`
	Action string  `json:"action"` // BREAK or PLACE
	Pos    [3]int  `json:"pos"`
	From   string  `json:"from"`
	To     string  `json:"to"`
	Cost   float64 `json:"cost,omitempty"`
}

type effectCounts struct {
	Sounds    int
	Particles int
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, logger *logrus.Entry) (*World, error) {
	cfg.applyDefaults()
	gen, err := worldGen(cfg, cats)
	if err != nil {
		return nil, err
	}
	return newWorld(cfg, cats, store.NewChunkStore(gen), logger), nil
}

func newWorld(cfg WorldConfig, cats *catalogs.Catalogs, chunks *store.ChunkStore, logger *logrus.Entry) *World {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	w := &World{
		cfg:      cfg,
		catalogs: cats,
		log:      logger.WithField("world", cfg.ID),
		chunks:   chunks,
		claims:   permissions.NewRegistry(),
		markers:  map[string]builder.Marker{},
		builders: map[string]*builder.Builder{},
		inbox:    make(chan Command, 256),
		stop:     make(chan struct{}),
	}
	empty := []observerproto.BuilderInfo{}
	w.bootstrap.Store(&empty)
	return w
}

func worldGen(cfg WorldConfig, cats *catalogs.Catalogs) (store.WorldGen, error) {
	b := func(id string) (uint16, error) {
		v, ok := cats.Blocks.Index[id]
		if !ok {
			return 0, fmt.Errorf("missing block id in palette: %s", id)
		}
		return v, nil
	}
	gen := store.WorldGen{
		Seed:      cfg.Seed,
		Height:    cfg.Height,
		BoundaryR: cfg.BoundaryR,
		GroundY:   cfg.GroundY,
	}
	var err error
	for _, f := range []struct {
		id  string
		dst *uint16
	}{
		{"AIR", &gen.Air},
		{"STONE", &gen.Stone},
		{"DIRT", &gen.Dirt},
		{"GRASS", &gen.Grass},
		{"WATER", &gen.Water},
	} {
		if *f.dst, err = b(f.id); err != nil {
			return gen, err
		}
	}
	return gen, nil
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }
func (w *World) AddObserver(o TickObserver)                    { w.observers = append(w.observers, o) }
func (w *World) Config() WorldConfig                           { return w.cfg }
func (w *World) CurrentTick() uint64                           { return w.tick.Load() }
func (w *World) BlockPalette() []string                        { return append([]string(nil), w.catalogs.Blocks.Palette...) }
func (w *World) Builders() []observerproto.BuilderInfo         { return *w.bootstrap.Load() }
func (w *World) Claims() *permissions.Registry                 { return w.claims }

// BuilderSpec places a new builder. Zero machine parameters take the world
// defaults.
type BuilderSpec struct {
	ID    string
	Owner string
	Pos   geom.Vec3i

	SCUPerOp    float64
	MaxCharge   float64
	ChargeRate  float64
	MaxDistance int
	InputSlots  int
}

// AddBuilder registers a builder. Call before Run, or from the world loop.
func (w *World) AddBuilder(spec BuilderSpec) (*builder.Builder, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("add builder: empty id")
	}
	if _, ok := w.builders[spec.ID]; ok {
		return nil, fmt.Errorf("add builder %s: %w", spec.ID, ErrDuplicate)
	}
	if !w.chunks.InBounds(spec.Pos.X, spec.Pos.Y, spec.Pos.Z) {
		return nil, fmt.Errorf("add builder %s: position %s out of bounds", spec.ID, spec.Pos)
	}
	bc := w.cfg.Builder
	cfg := builder.Config{
		ID:          spec.ID,
		Owner:       spec.Owner,
		WorldID:     w.cfg.ID,
		Pos:         spec.Pos,
		BaseCost:    bc.SCUPerOp,
		MaxCharge:   bc.MaxCharge,
		ChargeRate:  bc.ChargeRate,
		MaxDistance: bc.MaxDistance,
		InputSlots:  bc.InputSlots,
	}
	if spec.SCUPerOp > 0 {
		cfg.BaseCost = spec.SCUPerOp
	}
	if spec.MaxCharge > 0 {
		cfg.MaxCharge = spec.MaxCharge
	}
	if spec.ChargeRate > 0 {
		cfg.ChargeRate = spec.ChargeRate
	}
	if spec.MaxDistance > 0 {
		cfg.MaxDistance = spec.MaxDistance
	}
	if spec.InputSlots > 0 {
		cfg.InputSlots = spec.InputSlots
	}
	b := builder.New(cfg)
	id := spec.ID
	b.OnTransition(func(from, to builder.Status) { w.onTransition(id, from, to) })
	w.builders[id] = b
	w.order = append(w.order, id)
	sort.Strings(w.order)
	w.refreshBootstrap()
	return b, nil
}

// Builder returns the builder with id. Only safe from the world goroutine.
func (w *World) Builder(id string) (*builder.Builder, error) {
	b := w.builders[id]
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBuilder, id)
	}
	return b, nil
}

// MarkLocation records the location a marker item points at. A marker
// recorded in another world keeps that world id.
func (w *World) MarkLocation(ref string, m builder.Marker) error {
	if ref == "" {
		return fmt.Errorf("mark location: empty ref")
	}
	if m.WorldID == "" {
		m.WorldID = w.cfg.ID
	}
	w.markers[ref] = m
	return nil
}

func (w *World) PutClaim(c *permissions.Claim) { w.claims.Put(c) }

func (w *World) onTransition(id string, from, to builder.Status) {
	w.transitions = append(w.transitions, observerproto.Transition{BuilderID: id, From: from.String(), To: to.String()})
	w.log.WithFields(logrus.Fields{
		"builder": id,
		"tick":    w.tick.Load(),
		"from":    from.String(),
		"to":      to.String(),
	}).Info("builder status changed")
}
