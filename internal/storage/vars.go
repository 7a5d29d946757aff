package storage

import "errors"

const (
	// PageSize is the fixed size of every on-disk and in-memory page.
	PageSize = 4096

	// MetadataPageID is the well-known page holding the catalog.
	// Page ids are 1-based; page id 0 is the null sentinel.
	MetadataPageID = 1

	// BufferPoolCapacity is the default number of frames in the buffer pool.
	BufferPoolCapacity = 256
)

const (
	FileMode0644 = 0o644
	FileMode0755 = 0o755
)

var (
	// ErrShortRead is returned when the data file ends before a full page.
	ErrShortRead = errors.New("storage: short page read")

	// ErrShortWrite is returned when fewer than PageSize bytes were written.
	ErrShortWrite = errors.New("storage: short page write")

	// ErrInvalidPageID is returned for page id 0 (the null sentinel).
	ErrInvalidPageID = errors.New("storage: invalid page id")
)
