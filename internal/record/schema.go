package record

import (
	"github.com/tuannm99/tinydb/internal/bx"
)

const (
	// ColumnRecordSize: name[MaxColumnName], type u8, isPrimaryKey u8,
	// pad[2], size i32.
	ColumnRecordSize = MaxColumnName + 4 + 4

	// SchemaRecordSize: name[MaxTableName], columnCount u32, rootPageID u64,
	// columns[MaxColumns].
	SchemaRecordSize = MaxTableName + 4 + 8 + MaxColumns*ColumnRecordSize
)

// Column is one column definition of a table schema.
type Column struct {
	Name       string
	Type       DataType
	Size       int32
	PrimaryKey bool
}

// TableSchema describes one table: its name, ordered columns, and the root
// page of its primary-key B+-tree.
type TableSchema struct {
	Name       string
	Columns    []Column
	RootPageID uint64
}

// PrimaryKeyIndex returns the position of the primary-key column, or -1
// when the table has none.
func (s TableSchema) PrimaryKeyIndex() int {
	for i := range s.Columns {
		if s.Columns[i].PrimaryKey {
			return i
		}
	}
	return -1
}

func encodeColumn(dst []byte, c Column) {
	_ = dst[ColumnRecordSize-1]

	clear(dst[:ColumnRecordSize])
	copy(dst[:MaxColumnName], c.Name)
	dst[MaxColumnName] = byte(c.Type)
	if c.PrimaryKey {
		dst[MaxColumnName+1] = 1
	}
	bx.PutI32At(dst, MaxColumnName+4, c.Size)
}

func decodeColumn(src []byte) Column {
	_ = src[ColumnRecordSize-1]

	return Column{
		Name:       cstr(src[:MaxColumnName]),
		Type:       DataType(src[MaxColumnName]),
		PrimaryKey: src[MaxColumnName+1] != 0,
		Size:       bx.I32At(src, MaxColumnName+4),
	}
}

// EncodeSchema writes s into dst (SchemaRecordSize bytes).
func EncodeSchema(dst []byte, s TableSchema) {
	_ = dst[SchemaRecordSize-1]

	clear(dst[:SchemaRecordSize])
	copy(dst[:MaxTableName], s.Name)
	bx.PutU32At(dst, MaxTableName, uint32(len(s.Columns)))
	bx.PutU64At(dst, MaxTableName+4, s.RootPageID)

	off := MaxTableName + 4 + 8
	for i := range s.Columns {
		encodeColumn(dst[off:], s.Columns[i])
		off += ColumnRecordSize
	}
}

// DecodeSchema reads a TableSchema back from src (SchemaRecordSize bytes).
func DecodeSchema(src []byte) TableSchema {
	_ = src[SchemaRecordSize-1]

	s := TableSchema{
		Name:       cstr(src[:MaxTableName]),
		RootPageID: bx.U64At(src, MaxTableName+4),
	}

	n := int(bx.U32At(src, MaxTableName))
	if n > MaxColumns {
		n = MaxColumns
	}
	off := MaxTableName + 4 + 8
	for i := 0; i < n; i++ {
		s.Columns = append(s.Columns, decodeColumn(src[off:]))
		off += ColumnRecordSize
	}
	return s
}

// cstr reads a NUL-padded fixed-width string field.
func cstr(b []byte) string {
	end := 0
	for end < len(b) && b[end] != 0 {
		end++
	}
	return string(b[:end])
}
