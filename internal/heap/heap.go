package heap

import (
	"errors"
	"log/slog"

	"github.com/tuannm99/tinydb/internal/bufferpool"
	"github.com/tuannm99/tinydb/internal/bx"
	"github.com/tuannm99/tinydb/internal/record"
	"github.com/tuannm99/tinydb/internal/storage"
)

// Heap page layout: tupleCount u32 @0, fixed-size tuple records from @4.
const (
	countOffset  = 0
	tuplesOffset = 4

	// PageCapacity is how many tuple records fit in one heap page.
	PageCapacity = (storage.PageSize - tuplesOffset) / record.TupleRecordSize
)

var (
	// ErrPageFull is returned when a heap page has no free slot. The
	// engine allocates a fresh page per insert, so this bound is a
	// forward-compatible invariant rather than a reachable state there.
	ErrPageFull = errors.New("heap: page is full")

	// ErrBadSlot is returned when a slot index is outside the page's
	// occupied range.
	ErrBadSlot = errors.New("heap: slot out of range")
)

// Store reads and writes tuple records on heap pages through the buffer
// pool. Tuples are appended in slot order and logically deleted in place;
// pages are never compacted.
type Store struct {
	pool *bufferpool.Pool
}

func New(pool *bufferpool.Pool) *Store {
	return &Store{pool: pool}
}

// Append writes tup into the next free slot of the page and returns the
// slot id. The page is written through so the tuple location handed to
// the index always refers to persisted bytes.
func (s *Store) Append(pageID uint64, tup record.Tuple) (uint32, error) {
	f, err := s.pool.GetPage(pageID)
	if err != nil {
		return 0, err
	}
	dirty := false
	defer func() { s.pool.Unpin(f, dirty) }()

	count := bx.U32At(f.Data, countOffset)
	if int(count) >= PageCapacity {
		return 0, ErrPageFull
	}

	record.EncodeTuple(f.Data[tuplesOffset+int(count)*record.TupleRecordSize:], tup)
	bx.PutU32At(f.Data, countOffset, count+1)
	dirty = true

	if err := flushPinned(s.pool, f); err != nil {
		return 0, err
	}

	slog.Debug("heap.Append", "pageID", pageID, "slot", count)
	return count, nil
}

// Load copies the tuple at (pageID, slot) out of the pinned page.
func (s *Store) Load(pageID uint64, slot uint32) (record.Tuple, error) {
	f, err := s.pool.GetPage(pageID)
	if err != nil {
		return record.Tuple{}, err
	}
	defer func() { s.pool.Unpin(f, false) }()

	count := bx.U32At(f.Data, countOffset)
	if slot >= count {
		return record.Tuple{}, ErrBadSlot
	}

	return record.DecodeTuple(f.Data[tuplesOffset+int(slot)*record.TupleRecordSize:]), nil
}

// StampDeleted writes txnID into the tuple's xmax in place, making the
// version invisible to transactions that observe the deleter as committed.
func (s *Store) StampDeleted(pageID uint64, slot uint32, txnID uint64) error {
	f, err := s.pool.GetPage(pageID)
	if err != nil {
		return err
	}
	dirty := false
	defer func() { s.pool.Unpin(f, dirty) }()

	count := bx.U32At(f.Data, countOffset)
	if slot >= count {
		return ErrBadSlot
	}

	// xmax lives at offset 8 of the tuple header.
	off := tuplesOffset + int(slot)*record.TupleRecordSize
	bx.PutU64At(f.Data, off+8, txnID)
	dirty = true

	if err := flushPinned(s.pool, f); err != nil {
		return err
	}

	slog.Debug("heap.StampDeleted", "pageID", pageID, "slot", slot, "xmax", txnID)
	return nil
}

// flushPinned marks the frame dirty and writes it through immediately.
func flushPinned(pool *bufferpool.Pool, f *bufferpool.Frame) error {
	pool.MarkDirty(f)
	return pool.FlushPage(f)
}
