package indexdb

import (
	"database/sql"
	"encoding/json"
	"time"

	"voxelbuilder.ai/internal/persistence/snapshot"
	"voxelbuilder.ai/internal/sim/world"
)

const (
	batchOps  = 2000
	batchWait = 2 * time.Second
)

// op is one queued write. apply runs inside the writer's open transaction.
type op interface {
	apply(b *batch) error
}

type tickOp world.TickLogEntry

func (o tickOp) apply(b *batch) error {
	raw, err := json.Marshal(world.TickLogEntry(o))
	if err != nil {
		return err
	}
	if err := b.exec(`INSERT OR REPLACE INTO ticks(tick, digest, commands, steps, raw_json) VALUES(?, ?, ?, ?, ?)`,
		int64(o.Tick), o.Digest, len(o.Commands), len(o.Steps), string(raw)); err != nil {
		return err
	}
	for seq, tr := range o.Transitions {
		if err := b.exec(`INSERT OR REPLACE INTO transitions(tick, seq, builder_id, from_status, to_status) VALUES(?, ?, ?, ?, ?)`,
			int64(o.Tick), seq, tr.BuilderID, tr.From, tr.To); err != nil {
			return err
		}
	}
	return nil
}

type auditOp world.AuditEntry

func (o auditOp) apply(b *batch) error {
	// Audits arrive in tick order; seq restarts with every tick.
	if o.Tick != b.auditTick || !b.auditSeen {
		b.auditTick, b.auditSeq, b.auditSeen = o.Tick, 0, true
	}
	seq := b.auditSeq
	b.auditSeq++
	return b.exec(`INSERT OR REPLACE INTO audits(tick, seq, actor, action, x, y, z, from_block, to_block, cost) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(o.Tick), seq, o.Actor, o.Action, o.Pos[0], o.Pos[1], o.Pos[2], o.From, o.To, o.Cost)
}

// snapshotOp keeps only the counts of a snapshot, not its contents.
type snapshotOp struct {
	tick   uint64
	path   string
	seed   int64
	height int
	counts [4]int // chunks, claims, markers, builders
}

func newSnapshotOp(path string, s snapshot.SnapshotV1) snapshotOp {
	return snapshotOp{
		tick:   s.Header.Tick,
		path:   path,
		seed:   s.Seed,
		height: s.Height,
		counts: [4]int{len(s.Chunks), len(s.Claims), len(s.Markers), len(s.Builders)},
	}
}

func (o snapshotOp) apply(b *batch) error {
	return b.exec(`INSERT OR REPLACE INTO snapshots(tick, path, seed, height, chunks, claims, markers, builders) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(o.tick), o.path, o.seed, o.height, o.counts[0], o.counts[1], o.counts[2], o.counts[3])
}

// batch groups queued writes into one transaction that is committed after
// batchOps statements or batchWait, whichever comes first.
type batch struct {
	db      *sql.DB
	tx      *sql.Tx
	n       int // statements
	ops     int // ops applied
	lost    uint64
	started time.Time

	auditTick uint64
	auditSeq  int
	auditSeen bool
}

func newBatch(db *sql.DB) *batch {
	return &batch{db: db}
}

func (b *batch) open() error {
	if b.tx != nil {
		return nil
	}
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	b.tx, b.n, b.ops, b.lost, b.started = tx, 0, 0, 0, time.Now()
	return nil
}

// try applies o between a savepoint and its release. On failure only o is
// rolled back. If even that fails the whole transaction is dropped and
// lost holds how many earlier ops went with it.
func (b *batch) try(o op) error {
	if _, err := b.tx.Exec(`SAVEPOINT op`); err != nil {
		b.drop()
		return err
	}
	if err := o.apply(b); err != nil {
		_, rbErr := b.tx.Exec(`ROLLBACK TO op`)
		_, relErr := b.tx.Exec(`RELEASE op`)
		if rbErr != nil || relErr != nil {
			b.drop()
		}
		return err
	}
	if _, err := b.tx.Exec(`RELEASE op`); err != nil {
		b.drop()
		return err
	}
	b.ops++
	return nil
}

func (b *batch) exec(query string, args ...any) error {
	// The transaction owns the only connection; everything goes through it.
	if _, err := b.tx.Exec(query, args...); err != nil {
		return err
	}
	b.n++
	return nil
}

func (b *batch) due() bool {
	return b.tx != nil && (b.n >= batchOps || time.Since(b.started) >= batchWait)
}

func (b *batch) commit() error {
	if b.tx == nil {
		return nil
	}
	err := b.tx.Commit()
	b.tx = nil
	return err
}

func (b *batch) drop() {
	if b.tx != nil {
		_ = b.tx.Rollback()
		b.tx = nil
		b.lost = uint64(b.ops)
	}
}
