package indexdb

import (
	"database/sql"
	"fmt"
	"net/url"
)

const schemaVersion = "1"

// pragmas are applied through the DSN so every pooled connection gets them.
var pragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
	"temp_store(MEMORY)",
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + path + "?" + q.Encode()
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS catalogs (
		name       TEXT PRIMARY KEY,
		digest     TEXT NOT NULL,
		json       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ticks (
		tick     INTEGER PRIMARY KEY,
		digest   TEXT NOT NULL,
		commands INTEGER NOT NULL,
		steps    INTEGER NOT NULL,
		raw_json TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transitions (
		tick        INTEGER NOT NULL,
		seq         INTEGER NOT NULL,
		builder_id  TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status   TEXT NOT NULL,
		PRIMARY KEY (tick, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS transitions_by_builder ON transitions(builder_id, tick)`,
	`CREATE TABLE IF NOT EXISTS audits (
		tick       INTEGER NOT NULL,
		seq        INTEGER NOT NULL,
		actor      TEXT NOT NULL,
		action     TEXT NOT NULL,
		x          INTEGER NOT NULL,
		y          INTEGER NOT NULL,
		z          INTEGER NOT NULL,
		from_block TEXT NOT NULL,
		to_block   TEXT NOT NULL,
		cost       REAL NOT NULL,
		PRIMARY KEY (tick, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS audits_by_actor ON audits(actor, tick)`,
	`CREATE INDEX IF NOT EXISTS audits_by_cell ON audits(x, z, y, tick)`,
	`CREATE TABLE IF NOT EXISTS snapshots (
		tick     INTEGER PRIMARY KEY,
		path     TEXT NOT NULL,
		seed     INTEGER NOT NULL,
		height   INTEGER NOT NULL,
		chunks   INTEGER NOT NULL,
		claims   INTEGER NOT NULL,
		markers  INTEGER NOT NULL,
		builders INTEGER NOT NULL
	)`,
}

func migrate(db *sql.DB) error {
	for i, stmt := range tables {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES('schema_version', ?)`, schemaVersion)
	return err
}
