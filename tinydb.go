// Package tinydb is a small single-node relational engine: fixed-schema
// tables over a paged data file, a B+-tree primary-key index per table,
// and snapshot-style MVCC visibility. Durability comes from explicit or
// periodic checkpoints that flush all dirty pages.
package tinydb

import (
	"github.com/tuannm99/tinydb/internal/engine"
	"github.com/tuannm99/tinydb/internal/record"
	"github.com/tuannm99/tinydb/internal/sql/executor"
)

// DB is the embedding handle: one open data file plus its engine state.
type DB struct {
	eng *engine.Database
}

// Open opens (or creates) the database file at path.
func Open(path string) (*DB, error) {
	return OpenWithPoolSize(path, 0)
}

// OpenWithPoolSize opens the database with an explicit buffer pool
// capacity; capacity <= 0 uses the default.
func OpenWithPoolSize(path string, capacity int) (*DB, error) {
	eng, err := engine.Open(path, capacity)
	if err != nil {
		return nil, err
	}
	return &DB{eng: eng}, nil
}

// NewSession returns a statement executor carrying its own current
// transaction, the way one interactive connection would.
func (db *DB) NewSession() *executor.Session {
	return executor.NewSession(db.eng)
}

// Engine exposes the underlying engine facade.
func (db *DB) Engine() *engine.Database { return db.eng }

// Tables lists the schemas currently in the catalog.
func (db *DB) Tables() []record.TableSchema { return db.eng.Tables() }

// Checkpoint flushes all dirty pages and fsyncs the data file.
func (db *DB) Checkpoint() error { return db.eng.Checkpoint() }

// Close releases the data file without checkpointing.
func (db *DB) Close() error { return db.eng.Close() }
