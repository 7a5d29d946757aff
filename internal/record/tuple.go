package record

import (
	"github.com/tuannm99/tinydb/internal/bx"
)

const (
	// TupleHeaderSize: xmin u64, xmax u64, isDeleted u8, pad[3].
	TupleHeaderSize = 8 + 8 + 4

	// TupleRecordSize is the fixed on-disk footprint of one tuple:
	// header, columnCount u32, values[MaxColumns].
	TupleRecordSize = TupleHeaderSize + 4 + MaxColumns*ValueRecordSize
)

// TupleHeader carries the MVCC version stamps of one tuple.
// Xmin is the inserting transaction, Xmax the deleting one (0 = live).
type TupleHeader struct {
	Xmin      uint64
	Xmax      uint64
	IsDeleted bool
}

// Tuple is one row version: header plus the ordered column values.
type Tuple struct {
	Header TupleHeader
	Values []Value
}

// EncodeTuple writes t into dst (TupleRecordSize bytes).
func EncodeTuple(dst []byte, t Tuple) {
	_ = dst[TupleRecordSize-1]

	clear(dst[:TupleRecordSize])
	bx.PutU64At(dst, 0, t.Header.Xmin)
	bx.PutU64At(dst, 8, t.Header.Xmax)
	if t.Header.IsDeleted {
		dst[16] = 1
	}
	bx.PutU32At(dst, TupleHeaderSize, uint32(len(t.Values)))

	off := TupleHeaderSize + 4
	for i := range t.Values {
		EncodeValue(dst[off:], t.Values[i])
		off += ValueRecordSize
	}
}

// DecodeTuple reads a Tuple back from src (TupleRecordSize bytes).
// The result owns its values; it does not alias src.
func DecodeTuple(src []byte) Tuple {
	_ = src[TupleRecordSize-1]

	t := Tuple{
		Header: TupleHeader{
			Xmin:      bx.U64At(src, 0),
			Xmax:      bx.U64At(src, 8),
			IsDeleted: src[16] != 0,
		},
	}

	n := int(bx.U32At(src, TupleHeaderSize))
	if n > MaxColumns {
		n = MaxColumns
	}
	off := TupleHeaderSize + 4
	for i := 0; i < n; i++ {
		t.Values = append(t.Values, DecodeValue(src[off:]))
		off += ValueRecordSize
	}
	return t
}
