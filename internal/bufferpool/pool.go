package bufferpool

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/tuannm99/tinydb/internal/storage"
)

var (
	// ErrNoVictim is returned when every frame is pinned and none can be
	// evicted to make room.
	ErrNoVictim = errors.New("bufferpool: no unpinned frame available")
)

// Frame holds one page's bytes plus its bookkeeping inside the pool.
// PageID 0 means the frame is empty. The data bytes are read and mutated
// by callers while the frame is pinned; mu guards only Pin and Dirty.
type Frame struct {
	PageID uint64
	Data   []byte
	Dirty  bool
	Pin    int32

	mu sync.Mutex
}

// Pool is a fixed-capacity page cache in front of the pager. Victim
// selection is a first-fit scan over unpinned frames; dirty victims are
// written through before reuse.
type Pool struct {
	pager *storage.Pager

	mu        sync.Mutex
	frames    []*Frame
	pageTable map[uint64]int // PageID -> index in frames
}

// NewPool creates a pool with the given number of frames.
// If capacity <= 0 the default capacity is used.
func NewPool(pager *storage.Pager, capacity int) *Pool {
	if capacity <= 0 {
		capacity = storage.BufferPoolCapacity
	}
	frames := make([]*Frame, capacity)
	for i := range frames {
		frames[i] = &Frame{Data: make([]byte, storage.PageSize)}
	}
	return &Pool{
		pager:     pager,
		frames:    frames,
		pageTable: make(map[uint64]int),
	}
}

// GetPage returns the frame holding pageID with its pin count raised.
// A page absent from the pool evicts a first-fit unpinned victim (writing
// it through if dirty) and loads the page from disk; a short read leaves
// the frame zero-filled so pages beyond EOF materialize lazily.
func (p *Pool) GetPage(pageID uint64) (*Frame, error) {
	if pageID == 0 {
		return nil, storage.ErrInvalidPageID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.pageTable[pageID]; ok {
		f := p.frames[idx]
		f.mu.Lock()
		f.Pin++
		f.mu.Unlock()
		slog.Debug("bufferpool.GetPage.hit", "pageID", pageID, "frame", idx, "pin", f.Pin)
		return f, nil
	}

	idx := p.pickVictimLocked()
	if idx < 0 {
		slog.Debug("bufferpool.GetPage.no_victim", "pageID", pageID)
		return nil, ErrNoVictim
	}

	f := p.frames[idx]
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Dirty && f.PageID != 0 {
		slog.Debug("bufferpool.GetPage.evict_dirty", "victimPageID", f.PageID, "frame", idx)
		if err := p.pager.WritePage(f.PageID, f.Data); err != nil {
			return nil, err
		}
		f.Dirty = false
	}
	if f.PageID != 0 {
		delete(p.pageTable, f.PageID)
	}

	if err := p.pager.ReadPage(pageID, f.Data); err != nil {
		if !errors.Is(err, storage.ErrShortRead) {
			return nil, err
		}
		// Page beyond EOF: hand out a zero page.
		clear(f.Data)
	}

	f.PageID = pageID
	f.Pin = 1
	f.Dirty = false
	p.pageTable[pageID] = idx

	slog.Debug("bufferpool.GetPage.load", "pageID", pageID, "frame", idx)
	return f, nil
}

// pickVictimLocked scans for the first frame with no pins.
// The caller must hold p.mu.
func (p *Pool) pickVictimLocked() int {
	for i, f := range p.frames {
		f.mu.Lock()
		pin := f.Pin
		f.mu.Unlock()
		if pin == 0 {
			return i
		}
	}
	return -1
}

// Unpin releases one pin on the frame, marking it dirty if requested.
// The pin count floors at zero.
func (p *Pool) Unpin(f *Frame, dirty bool) {
	if f == nil {
		return
	}
	f.mu.Lock()
	if dirty {
		f.Dirty = true
	}
	if f.Pin > 0 {
		f.Pin--
	}
	f.mu.Unlock()
}

// MarkDirty flags the frame as modified under its lock.
func (p *Pool) MarkDirty(f *Frame) {
	f.mu.Lock()
	f.Dirty = true
	f.mu.Unlock()
}

// FlushPage writes a dirty frame through the pager and clears the flag.
func (p *Pool) FlushPage(f *Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.Dirty || f.PageID == 0 {
		return nil
	}
	if err := p.pager.WritePage(f.PageID, f.Data); err != nil {
		return err
	}
	f.Dirty = false
	return nil
}

// FlushAll writes every dirty frame to disk.
func (p *Pool) FlushAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, f := range p.frames {
		if err := p.FlushPage(f); err != nil {
			return err
		}
	}
	return nil
}

// PinnedCount reports how many frames currently hold at least one pin.
// Used by shutdown checks and tests of the pin discipline.
func (p *Pool) PinnedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, f := range p.frames {
		f.mu.Lock()
		if f.Pin > 0 {
			n++
		}
		f.mu.Unlock()
	}
	return n
}
