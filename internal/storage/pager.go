package storage

import (
	"fmt"
	"io"
	"log/slog"
)

// File is the minimal surface the pager needs from its backing store.
// *os.File satisfies it, and so does memfile.File for in-memory tests.
type File interface {
	io.ReaderAt
	io.WriterAt
}

type syncer interface {
	Sync() error
}

// Pager performs whole-page, page-aligned I/O against a single data file.
// Page p occupies bytes [(p-1)*PageSize, p*PageSize). The file grows by
// writing beyond its current end.
type Pager struct {
	f File
}

func NewPager(f File) *Pager {
	return &Pager{f: f}
}

// ReadPage reads exactly one page into dst.
// Returns ErrShortRead when the file is shorter than the requested page;
// callers that lazily materialize pages zero-fill on that error.
func (p *Pager) ReadPage(pageID uint64, dst []byte) error {
	if len(dst) != PageSize {
		return fmt.Errorf("storage: dst must be exactly %d bytes", PageSize)
	}
	if pageID == 0 {
		return ErrInvalidPageID
	}

	off := int64(pageID-1) * PageSize
	n, err := p.f.ReadAt(dst, off)
	if n < PageSize {
		slog.Debug("storage.ReadPage.short", "pageID", pageID, "read", n)
		return ErrShortRead
	}
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}

// WritePage writes exactly one page from src at the page's offset.
func (p *Pager) WritePage(pageID uint64, src []byte) error {
	if len(src) != PageSize {
		return fmt.Errorf("storage: src must be exactly %d bytes", PageSize)
	}
	if pageID == 0 {
		return ErrInvalidPageID
	}

	off := int64(pageID-1) * PageSize
	n, err := p.f.WriteAt(src, off)
	if err != nil {
		return err
	}
	if n != PageSize {
		return ErrShortWrite
	}
	return nil
}

// Sync flushes the backing file to stable storage when it supports it.
// In-memory backings (tests) are a no-op.
func (p *Pager) Sync() error {
	if s, ok := p.f.(syncer); ok {
		return s.Sync()
	}
	return nil
}
