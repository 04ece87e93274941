package indexdb

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"voxelbuilder.ai/internal/persistence/snapshot"
	"voxelbuilder.ai/internal/sim/catalogs"
	"voxelbuilder.ai/internal/sim/tuning"
	"voxelbuilder.ai/internal/sim/world"
)

const defaultQueue = 1 << 16

var errEmptyPath = errors.New("indexdb: empty db path")

// SQLiteIndex is a queryable read model of the tick and audit streams.
// Writes are queued and applied by one goroutine in batched transactions.
// The JSONL logs stay the source of truth when the queue overflows.
type SQLiteIndex struct {
	db  *sql.DB
	log *logrus.Entry

	queue chan op
	done  chan struct{}
	once  sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
	failed  atomic.Uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, defaultQueue)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, errEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	// One connection: the writer goroutine and readers share it serially.
	db.SetMaxOpenConns(1)
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &SQLiteIndex{
		db:    db,
		log:   logrus.WithField("component", "indexdb"),
		queue: make(chan op, queue),
		done:  make(chan struct{}),
	}
	go s.run()
	return s, nil
}

// Close drains the queue and closes the database.
func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.queue)
		<-s.done
		err = s.db.Close()
	})
	return err
}

// Dropped reports how many writes were discarded because the queue was full.
func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

// Failed reports how many queued writes were lost to sqlite errors.
func (s *SQLiteIndex) Failed() uint64 { return s.failed.Load() }

func (s *SQLiteIndex) push(o op) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.queue <- o:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) WriteTick(entry world.TickLogEntry) error {
	s.push(tickOp(entry))
	return nil
}

func (s *SQLiteIndex) WriteAudit(entry world.AuditEntry) error {
	s.push(auditOp(entry))
	return nil
}

// RecordSnapshot indexes a written snapshot file. Only header counts are
// stored, not the snapshot itself.
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	s.push(newSnapshotOp(path, snap))
}

func (s *SQLiteIndex) run() {
	defer close(s.done)
	b := newBatch(s.db)
	defer s.commit(b)
	// An idle writer must not hold the only connection inside an open
	// transaction, so pending work is also committed on a timer.
	flush := time.NewTicker(batchWait)
	defer flush.Stop()
	for {
		select {
		case o, ok := <-s.queue:
			if !ok {
				return
			}
			s.apply(b, o)
		case <-flush.C:
			s.commit(b)
		}
	}
}

// apply runs o inside a savepoint, so a failing op loses only its own rows
// and not the rest of the open batch.
func (s *SQLiteIndex) apply(b *batch, o op) {
	if err := b.open(); err != nil {
		s.fail(err, 1)
		return
	}
	if err := b.try(o); err != nil {
		s.fail(err, 1)
		if b.tx == nil {
			// The transaction itself broke; everything already in it is gone.
			s.fail(nil, b.lost)
		}
	}
	if b.due() {
		s.commit(b)
	}
}

func (s *SQLiteIndex) commit(b *batch) {
	n := b.ops
	if err := b.commit(); err != nil {
		s.fail(err, uint64(n))
	}
}

// fail counts n lost writes. Only the first failure is logged.
func (s *SQLiteIndex) fail(err error, n uint64) {
	if n == 0 {
		return
	}
	if s.failed.Add(n) == n && err != nil {
		s.log.WithError(err).Warn("index write failed")
	}
}

// UpsertCatalogs stores the block catalog and the applied tuning so a run
// can be read back without the original config directory.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	type entry struct{ name, digest, body string }
	var entries []entry
	if configDir != "" {
		if raw, err := os.ReadFile(filepath.Join(configDir, "blocks.json")); err == nil {
			entries = append(entries, entry{"blocks_defs", cats.Blocks.DefsDigest, string(raw)})
		}
	}
	if raw, err := json.Marshal(cats.Blocks.Palette); err == nil {
		entries = append(entries, entry{"blocks_palette", cats.Blocks.PaletteDigest, string(raw)})
	}
	if raw, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(raw)
		entries = append(entries, entry{"tuning", hex.EncodeToString(sum[:]), string(raw)})
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, e := range entries {
		if e.digest == "" || e.body == "" || e.body == "null" {
			continue
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO catalogs(name, digest, json, updated_at) VALUES(?, ?, ?, ?)`,
			e.name, e.digest, e.body, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

var (
	_ world.TickLogger  = (*SQLiteIndex)(nil)
	_ world.AuditLogger = (*SQLiteIndex)(nil)
)
