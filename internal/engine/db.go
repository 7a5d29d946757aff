package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/tuannm99/tinydb/internal/btree"
	"github.com/tuannm99/tinydb/internal/bufferpool"
	"github.com/tuannm99/tinydb/internal/catalog"
	"github.com/tuannm99/tinydb/internal/heap"
	"github.com/tuannm99/tinydb/internal/record"
	"github.com/tuannm99/tinydb/internal/storage"
	"github.com/tuannm99/tinydb/internal/txn"
)

var (
	ErrDatabaseClosed = errors.New("engine: database is closed")
	ErrTooManyColumns = errors.New("engine: too many columns")
	ErrColumnCount    = errors.New("engine: value count does not match schema")
	ErrNoWhereKey     = errors.New("engine: SELECT without a key is not supported")
	ErrValueTooLarge  = errors.New("engine: varchar value exceeds declared size")
)

// Database composes the pager, buffer pool, catalog, B+-tree, heap store,
// and transaction manager over a single data file.
type Database struct {
	Path string

	file *os.File
	pool *bufferpool.Pool
	cat  *catalog.Catalog
	tree *btree.Tree
	rows *heap.Store
	txns *txn.Manager

	// writers serializes mutating statements per table; the B+-tree has
	// no latch protocol of its own.
	mu      sync.Mutex
	writers map[string]*sync.Mutex
	closed  bool
}

// Open opens (or creates) the data file at path and loads the catalog.
func Open(path string, poolCapacity int) (*Database, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, storage.FileMode0644)
	if err != nil {
		return nil, fmt.Errorf("engine: open data file: %w", err)
	}

	pool := bufferpool.NewPool(storage.NewPager(f), poolCapacity)
	cat := catalog.New(pool)

	db := &Database{
		Path:    path,
		file:    f,
		pool:    pool,
		cat:     cat,
		tree:    btree.New(pool, cat),
		rows:    heap.New(pool),
		txns:    txn.NewManager(),
		writers: make(map[string]*sync.Mutex),
	}

	if err := cat.Load(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("engine: load metadata: %w", err)
	}

	for _, s := range cat.Schemas() {
		slog.Info("engine: recovered table",
			"table", s.Name, "columns", len(s.Columns), "rootPage", s.RootPageID)
	}

	return db, nil
}

// Txns exposes the transaction manager for BEGIN/COMMIT/ROLLBACK.
func (db *Database) Txns() *txn.Manager { return db.txns }

// Tables returns the current schema list.
func (db *Database) Tables() []record.TableSchema { return db.cat.Schemas() }

// CreateTable registers a schema and plants its empty B+-tree root.
func (db *Database) CreateTable(name string, cols []record.Column) error {
	if err := db.ensureOpen(); err != nil {
		return err
	}
	if len(name) > record.MaxTableName {
		return fmt.Errorf("engine: table name too long: %q", name)
	}
	if len(cols) == 0 || len(cols) > record.MaxColumns {
		return ErrTooManyColumns
	}
	pk := 0
	for _, c := range cols {
		if len(c.Name) > record.MaxColumnName {
			return fmt.Errorf("engine: column name too long: %q", c.Name)
		}
		if c.PrimaryKey {
			pk++
		}
	}
	if pk > 1 {
		return fmt.Errorf("engine: table %q has more than one primary key", name)
	}

	rootID, err := db.tree.CreateRoot()
	if err != nil {
		return err
	}

	schema := record.TableSchema{
		Name:       name,
		Columns:    cols,
		RootPageID: rootID,
	}
	if err := db.cat.AddSchema(schema); err != nil {
		return err
	}

	slog.Info("engine.CreateTable", "table", name, "rootPage", rootID)
	return nil
}

// DropTable removes the schema from the catalog. The table's pages are
// orphaned, not reclaimed; the data file grows monotonically.
func (db *Database) DropTable(name string) error {
	if err := db.ensureOpen(); err != nil {
		return err
	}
	return db.cat.DropSchema(name)
}

// Insert stamps the tuple's MVCC header, places it in a fresh heap page,
// and indexes the primary key. A B+-tree failure does not undo the heap
// write; the orphan version is unreachable without an index entry.
func (db *Database) Insert(table string, values []record.Value, txnID uint64) error {
	if err := db.ensureOpen(); err != nil {
		return err
	}

	schema, err := db.cat.FindSchema(table)
	if err != nil {
		return err
	}
	if len(values) != len(schema.Columns) {
		return ErrColumnCount
	}
	for i, v := range values {
		col := schema.Columns[i]
		if v.Type == record.TypeVarchar && !v.IsNull && int32(len(v.Str)) > col.Size {
			return fmt.Errorf("%w: column %s", ErrValueTooLarge, col.Name)
		}
	}

	mu := db.writerLock(table)
	mu.Lock()
	defer mu.Unlock()

	tup := record.Tuple{
		Header: record.TupleHeader{Xmin: txnID},
		Values: values,
	}

	pageID, err := db.cat.AllocatePage()
	if err != nil {
		return err
	}
	slot, err := db.rows.Append(pageID, tup)
	if err != nil {
		return err
	}

	pkIdx := schema.PrimaryKeyIndex()
	if pkIdx < 0 {
		// Unindexed table: the heap write is all there is.
		return nil
	}

	// Re-read the root under the writer lock: a concurrent insert may
	// have split it since FindSchema.
	schema, err = db.cat.FindSchema(table)
	if err != nil {
		return err
	}

	newRoot, err := db.tree.Insert(schema.RootPageID, values[pkIdx], pageID, slot)
	if err != nil {
		return err
	}
	if newRoot != schema.RootPageID {
		if err := db.cat.SetRootPageID(table, newRoot); err != nil {
			return err
		}
	}

	return nil
}

// Select returns the single visible tuple for key, or (nil, nil) when no
// visible version exists. A nil key is rejected: the engine has no scan
// path, only primary-key point lookups.
func (db *Database) Select(table string, key *record.Value, txnID uint64) (*record.Tuple, error) {
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, ErrNoWhereKey
	}

	schema, err := db.cat.FindSchema(table)
	if err != nil {
		return nil, err
	}

	pageID, slot, err := db.tree.Search(schema.RootPageID, *key)
	if errors.Is(err, btree.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tup, err := db.rows.Load(pageID, slot)
	if err != nil {
		return nil, err
	}
	if !db.txns.IsVisible(tup.Header, txnID) {
		return nil, nil
	}
	return &tup, nil
}

// Delete stamps the visible version's xmax with the deleting transaction.
// The index entry stays; visibility alone hides the tuple.
func (db *Database) Delete(table string, key record.Value, txnID uint64) error {
	if err := db.ensureOpen(); err != nil {
		return err
	}

	schema, err := db.cat.FindSchema(table)
	if err != nil {
		return err
	}

	mu := db.writerLock(table)
	mu.Lock()
	defer mu.Unlock()

	pageID, slot, err := db.tree.Search(schema.RootPageID, key)
	if err != nil {
		return err
	}

	tup, err := db.rows.Load(pageID, slot)
	if err != nil {
		return err
	}
	if !db.txns.IsVisible(tup.Header, txnID) {
		return btree.ErrKeyNotFound
	}

	return db.rows.StampDeleted(pageID, slot, txnID)
}

// Checkpoint persists the catalog, flushes every dirty page, and fsyncs
// the data file. This is the engine's only durability point.
func (db *Database) Checkpoint() error {
	if err := db.ensureOpen(); err != nil {
		return err
	}

	if err := db.cat.Save(); err != nil {
		return err
	}
	if err := db.pool.FlushAll(); err != nil {
		return err
	}
	return db.file.Sync()
}

// PinnedFrames reports frames still pinned; zero at steady state.
func (db *Database) PinnedFrames() int { return db.pool.PinnedCount() }

// Close releases the data file. It does not checkpoint; callers decide
// whether in-flight work becomes durable.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	if n := db.pool.PinnedCount(); n > 0 {
		slog.Warn("engine: frames still pinned at close", "frames", n)
	}
	return db.file.Close()
}

func (db *Database) ensureOpen() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}
	return nil
}

func (db *Database) writerLock(table string) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()

	mu, ok := db.writers[table]
	if !ok {
		mu = &sync.Mutex{}
		db.writers[table] = mu
	}
	return mu
}
