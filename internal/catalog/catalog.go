package catalog

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/tuannm99/tinydb/internal/bufferpool"
	"github.com/tuannm99/tinydb/internal/bx"
	"github.com/tuannm99/tinydb/internal/record"
	"github.com/tuannm99/tinydb/internal/storage"
)

// Metadata page layout (page 1): schemaCount u32 @0, pad @4,
// nextPageID u64 @8, schema records from schemaArrayOffset.
const (
	nextPageIDOffset  = 8
	schemaArrayOffset = 16

	// MaxSchemas caps the inline schema array so it always fits in the
	// metadata page alongside the header fields.
	MaxSchemas = 9
)

// The inline schema array must fit in one page.
var _ [storage.PageSize - schemaArrayOffset - MaxSchemas*record.SchemaRecordSize]struct{}

var (
	ErrDuplicateTable = errors.New("catalog: table already exists")
	ErrCatalogFull    = errors.New("catalog: schema capacity exhausted")
	ErrTableNotFound  = errors.New("catalog: table not found")
)

// Catalog keeps the in-memory schema list and mediates all access to the
// metadata page, including page allocation. The authoritative nextPageID
// lives in the buffered metadata page bytes so that allocation and
// checkpointing agree on a single counter.
type Catalog struct {
	pool *bufferpool.Pool

	mu      sync.Mutex
	schemas []record.TableSchema
}

func New(pool *bufferpool.Pool) *Catalog {
	return &Catalog{pool: pool}
}

// Load reads the metadata page into the in-memory catalog. A fresh data
// file (all-zero metadata page) is initialized with no schemas and
// nextPageID = 2, and the page is marked dirty so the next checkpoint
// persists the initialized state.
func (c *Catalog) Load() error {
	f, err := c.pool.GetPage(storage.MetadataPageID)
	if err != nil {
		return err
	}
	dirty := false
	defer func() { c.pool.Unpin(f, dirty) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if bx.U64At(f.Data, nextPageIDOffset) == 0 {
		slog.Info("catalog: empty data file, initializing metadata")
		clear(f.Data)
		bx.PutU32At(f.Data, 0, 0)
		bx.PutU64At(f.Data, nextPageIDOffset, storage.MetadataPageID+1)
		dirty = true
		c.schemas = nil
		return nil
	}

	n := int(bx.U32At(f.Data, 0))
	if n > MaxSchemas {
		n = MaxSchemas
	}
	c.schemas = c.schemas[:0]
	off := schemaArrayOffset
	for i := 0; i < n; i++ {
		c.schemas = append(c.schemas, record.DecodeSchema(f.Data[off:]))
		off += record.SchemaRecordSize
	}

	slog.Debug("catalog.Load", "schemas", len(c.schemas),
		"nextPageID", bx.U64At(f.Data, nextPageIDOffset))
	return nil
}

// Save encodes the schema list into the metadata page (preserving the
// page's nextPageID) and writes it through.
func (c *Catalog) Save() error {
	f, err := c.pool.GetPage(storage.MetadataPageID)
	if err != nil {
		return err
	}
	defer func() { c.pool.Unpin(f, false) }()

	c.mu.Lock()
	bx.PutU32At(f.Data, 0, uint32(len(c.schemas)))
	off := schemaArrayOffset
	for i := range c.schemas {
		record.EncodeSchema(f.Data[off:], c.schemas[i])
		off += record.SchemaRecordSize
	}
	c.mu.Unlock()

	c.pool.MarkDirty(f)
	return c.pool.FlushPage(f)
}

// AllocatePage hands out the next page id and bumps the counter in the
// metadata page. The returned page is not materialized on disk; the
// first GetPage zero-fills it.
func (c *Catalog) AllocatePage() (uint64, error) {
	f, err := c.pool.GetPage(storage.MetadataPageID)
	if err != nil {
		return 0, err
	}
	defer func() { c.pool.Unpin(f, false) }()

	c.mu.Lock()
	id := bx.U64At(f.Data, nextPageIDOffset)
	bx.PutU64At(f.Data, nextPageIDOffset, id+1)
	c.mu.Unlock()

	c.pool.MarkDirty(f)
	slog.Debug("catalog.AllocatePage", "pageID", id)
	return id, nil
}

// NextPageID reports the allocation counter without bumping it.
func (c *Catalog) NextPageID() (uint64, error) {
	f, err := c.pool.GetPage(storage.MetadataPageID)
	if err != nil {
		return 0, err
	}
	defer func() { c.pool.Unpin(f, false) }()
	return bx.U64At(f.Data, nextPageIDOffset), nil
}

// AddSchema appends a new table schema.
func (c *Catalog) AddSchema(s record.TableSchema) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.schemas {
		if c.schemas[i].Name == s.Name {
			return ErrDuplicateTable
		}
	}
	if len(c.schemas) >= MaxSchemas {
		return ErrCatalogFull
	}
	c.schemas = append(c.schemas, s)
	return nil
}

// DropSchema removes a table schema by name. Its pages are not reclaimed;
// the data file only ever grows.
func (c *Catalog) DropSchema(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.schemas {
		if c.schemas[i].Name == name {
			c.schemas = append(c.schemas[:i], c.schemas[i+1:]...)
			return nil
		}
	}
	return ErrTableNotFound
}

// FindSchema returns a copy of the named table's schema.
func (c *Catalog) FindSchema(name string) (record.TableSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.schemas {
		if c.schemas[i].Name == name {
			return c.schemas[i], nil
		}
	}
	return record.TableSchema{}, ErrTableNotFound
}

// SetRootPageID updates a table's B+-tree root after a root split.
func (c *Catalog) SetRootPageID(name string, root uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.schemas {
		if c.schemas[i].Name == name {
			c.schemas[i].RootPageID = root
			return nil
		}
	}
	return ErrTableNotFound
}

// Schemas returns a snapshot of the schema list.
func (c *Catalog) Schemas() []record.TableSchema {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]record.TableSchema, len(c.schemas))
	copy(out, c.schemas)
	return out
}
