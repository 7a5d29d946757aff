package catalog

import (
	"fmt"
	"testing"

	"github.com/dsnet/golib/memfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuannm99/tinydb/internal/bufferpool"
	"github.com/tuannm99/tinydb/internal/record"
	"github.com/tuannm99/tinydb/internal/storage"
)

func newTestCatalog(t *testing.T) (*Catalog, *memfile.File) {
	t.Helper()
	mf := memfile.New(nil)
	pool := bufferpool.NewPool(storage.NewPager(mf), 8)
	cat := New(pool)
	require.NoError(t, cat.Load())
	return cat, mf
}

func testSchema(name string) record.TableSchema {
	return record.TableSchema{
		Name: name,
		Columns: []record.Column{
			{Name: "id", Type: record.TypeInt, Size: 4, PrimaryKey: true},
		},
		RootPageID: 2,
	}
}

func TestCatalog_FreshFileInitializes(t *testing.T) {
	cat, _ := newTestCatalog(t)

	next, err := cat.NextPageID()
	require.NoError(t, err)
	assert.EqualValues(t, 2, next)
	assert.Empty(t, cat.Schemas())
}

func TestCatalog_AllocatePageMonotonic(t *testing.T) {
	cat, _ := newTestCatalog(t)

	a, err := cat.AllocatePage()
	require.NoError(t, err)
	b, err := cat.AllocatePage()
	require.NoError(t, err)

	assert.EqualValues(t, 2, a)
	assert.EqualValues(t, 3, b)

	next, err := cat.NextPageID()
	require.NoError(t, err)
	assert.EqualValues(t, 4, next)
}

func TestCatalog_AddFindDrop(t *testing.T) {
	cat, _ := newTestCatalog(t)

	require.NoError(t, cat.AddSchema(testSchema("users")))

	got, err := cat.FindSchema("users")
	require.NoError(t, err)
	assert.Equal(t, "users", got.Name)

	err = cat.AddSchema(testSchema("users"))
	require.ErrorIs(t, err, ErrDuplicateTable)

	require.NoError(t, cat.DropSchema("users"))
	_, err = cat.FindSchema("users")
	require.ErrorIs(t, err, ErrTableNotFound)

	err = cat.DropSchema("users")
	require.ErrorIs(t, err, ErrTableNotFound)
}

func TestCatalog_CapacityIsNineTables(t *testing.T) {
	cat, _ := newTestCatalog(t)

	for i := 0; i < MaxSchemas; i++ {
		require.NoError(t, cat.AddSchema(testSchema(fmt.Sprintf("t%d", i))))
	}
	err := cat.AddSchema(testSchema("overflow"))
	require.ErrorIs(t, err, ErrCatalogFull)
}

func TestCatalog_SaveLoadRoundTrip(t *testing.T) {
	mf := memfile.New(nil)
	pool := bufferpool.NewPool(storage.NewPager(mf), 8)
	cat := New(pool)
	require.NoError(t, cat.Load())

	require.NoError(t, cat.AddSchema(testSchema("users")))
	require.NoError(t, cat.AddSchema(testSchema("orders")))
	require.NoError(t, cat.SetRootPageID("orders", 17))

	_, err := cat.AllocatePage() // bump nextPageID to 3
	require.NoError(t, err)
	require.NoError(t, cat.Save())
	require.NoError(t, pool.FlushAll())

	// Reopen over the same backing bytes with a fresh pool.
	pool2 := bufferpool.NewPool(storage.NewPager(mf), 8)
	cat2 := New(pool2)
	require.NoError(t, cat2.Load())

	schemas := cat2.Schemas()
	require.Len(t, schemas, 2)
	assert.Equal(t, "users", schemas[0].Name)
	assert.Equal(t, "orders", schemas[1].Name)
	assert.EqualValues(t, 17, schemas[1].RootPageID)

	next, err := cat2.NextPageID()
	require.NoError(t, err)
	assert.EqualValues(t, 3, next)
}
