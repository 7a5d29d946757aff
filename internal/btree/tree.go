package btree

import (
	"errors"
	"log/slog"

	"github.com/tuannm99/tinydb/internal/bufferpool"
	"github.com/tuannm99/tinydb/internal/catalog"
	"github.com/tuannm99/tinydb/internal/record"
)

var (
	// ErrDuplicateKey is returned when inserting a key that already exists.
	ErrDuplicateKey = errors.New("btree: duplicate key")

	// ErrKeyNotFound is returned by Search when no entry matches.
	ErrKeyNotFound = errors.New("btree: key not found")
)

// Tree is the primary-key index: an on-page B+-tree mapping key values to
// (heap page, slot) tuple locations. One Tree instance serves every table;
// each operation takes the table's root page id.
type Tree struct {
	pool *bufferpool.Pool
	cat  *catalog.Catalog
}

func New(pool *bufferpool.Pool, cat *catalog.Catalog) *Tree {
	return &Tree{pool: pool, cat: cat}
}

// CreateRoot allocates and persists an empty leaf node, returning its
// page id for the table schema.
func (t *Tree) CreateRoot() (uint64, error) {
	pid, err := t.cat.AllocatePage()
	if err != nil {
		return 0, err
	}

	f, err := t.pool.GetPage(pid)
	if err != nil {
		return 0, err
	}
	defer func() { t.pool.Unpin(f, true) }()

	initNode(f.Data, true)
	if err := t.pool.FlushPage(f); err != nil {
		return 0, err
	}

	slog.Debug("btree.CreateRoot", "pageID", pid)
	return pid, nil
}

// Insert adds key -> (tuplePageID, slot) to the tree rooted at rootPageID,
// splitting nodes as needed. It returns the root page id afterwards, which
// differs from rootPageID when the root itself split; the caller must then
// record the new root in the table schema.
func (t *Tree) Insert(rootPageID uint64, key record.Value, tuplePageID uint64, slot uint32) (uint64, error) {
	split, promoted, rightID, err := t.insertAt(rootPageID, key, tuplePageID, slot)
	if err != nil {
		return rootPageID, err
	}
	if !split {
		return rootPageID, nil
	}

	// Root split: build a new internal root over the two halves.
	newRootID, err := t.cat.AllocatePage()
	if err != nil {
		return rootPageID, err
	}
	f, err := t.pool.GetPage(newRootID)
	if err != nil {
		return rootPageID, err
	}
	defer func() { t.pool.Unpin(f, true) }()

	initNode(f.Data, false)
	root := node{data: f.Data}
	root.setKeyAt(0, promoted)
	root.setChildAt(0, rootPageID)
	root.setChildAt(1, rightID)
	root.setKeyCount(1)

	slog.Debug("btree.Insert.root_split",
		"oldRoot", rootPageID, "newRoot", newRootID, "right", rightID)
	return newRootID, nil
}

// insertAt inserts into the subtree rooted at pageID.
// On a node split it reports the promoted key and the new right sibling.
func (t *Tree) insertAt(pageID uint64, key record.Value, tuplePageID uint64, slot uint32) (didSplit bool, promoted record.Value, rightID uint64, err error) {
	f, err := t.pool.GetPage(pageID)
	if err != nil {
		return false, record.Value{}, 0, err
	}

	dirty := false
	defer func() { t.pool.Unpin(f, dirty) }()

	n := node{data: f.Data}

	if n.isLeaf() {
		pos, err := n.lowerBound(key)
		if err != nil {
			return false, record.Value{}, 0, err
		}
		if pos < n.keyCount() {
			cmp, err := record.Compare(n.keyAt(pos), key)
			if err != nil {
				return false, record.Value{}, 0, err
			}
			if cmp == 0 {
				return false, record.Value{}, 0, ErrDuplicateKey
			}
		}

		n.insertLeafAt(pos, key, tuplePageID, slot)
		dirty = true

		if n.keyCount() < MaxKeys {
			return false, record.Value{}, 0, nil
		}
		return t.splitLeaf(f.PageID, n)
	}

	pos, err := n.upperBound(key)
	if err != nil {
		return false, record.Value{}, 0, err
	}
	childID := n.childAt(pos)

	childSplit, childPromoted, childRightID, err := t.insertAt(childID, key, tuplePageID, slot)
	if err != nil {
		return false, record.Value{}, 0, err
	}
	if !childSplit {
		return false, record.Value{}, 0, nil
	}

	n.insertInternalAt(pos, childPromoted, childRightID)
	dirty = true

	if n.keyCount() < MaxKeys {
		return false, record.Value{}, 0, nil
	}
	return t.splitInternal(f.PageID, n)
}

// splitLeaf moves the upper half of a full leaf into a fresh node. The
// middle key is copied up: it stays as the first key of the right sibling
// so every key remains reachable from the leaves.
func (t *Tree) splitLeaf(pageID uint64, left node) (bool, record.Value, uint64, error) {
	mid := Order / 2
	count := left.keyCount()

	rightID, err := t.cat.AllocatePage()
	if err != nil {
		return false, record.Value{}, 0, err
	}
	rf, err := t.pool.GetPage(rightID)
	if err != nil {
		return false, record.Value{}, 0, err
	}
	defer func() { t.pool.Unpin(rf, true) }()

	initNode(rf.Data, true)
	right := node{data: rf.Data}

	for i := mid; i < count; i++ {
		p, s := left.leafRefAt(i)
		right.setKeyAt(i-mid, left.keyAt(i))
		right.setLeafRefAt(i-mid, p, s)
	}
	right.setKeyCount(count - mid)
	left.setKeyCount(mid)

	promoted := right.keyAt(0)
	slog.Debug("btree.splitLeaf", "left", pageID, "right", rightID,
		"leftKeys", mid, "rightKeys", count-mid)
	return true, promoted, rightID, nil
}

// splitInternal promotes the middle key out of a full internal node; the
// right sibling takes the keys and children above it.
func (t *Tree) splitInternal(pageID uint64, left node) (bool, record.Value, uint64, error) {
	mid := Order / 2
	count := left.keyCount()
	promoted := left.keyAt(mid)

	rightID, err := t.cat.AllocatePage()
	if err != nil {
		return false, record.Value{}, 0, err
	}
	rf, err := t.pool.GetPage(rightID)
	if err != nil {
		return false, record.Value{}, 0, err
	}
	defer func() { t.pool.Unpin(rf, true) }()

	initNode(rf.Data, false)
	right := node{data: rf.Data}

	for i := mid + 1; i < count; i++ {
		right.setKeyAt(i-mid-1, left.keyAt(i))
	}
	for i := mid + 1; i <= count; i++ {
		right.setChildAt(i-mid-1, left.childAt(i))
	}
	right.setKeyCount(count - mid - 1)
	left.setKeyCount(mid)

	slog.Debug("btree.splitInternal", "left", pageID, "right", rightID,
		"promoted", promoted.String())
	return true, promoted, rightID, nil
}

// Search walks from the root to a leaf and returns the tuple location for
// key. A type-mismatched key compares as absent.
func (t *Tree) Search(rootPageID uint64, key record.Value) (tuplePageID uint64, slot uint32, err error) {
	pageID := rootPageID

	for pageID != 0 {
		f, err := t.pool.GetPage(pageID)
		if err != nil {
			return 0, 0, err
		}
		n := node{data: f.Data}

		if n.isLeaf() {
			pos, err := n.lowerBound(key)
			if err == nil && pos < n.keyCount() {
				var cmp int
				cmp, err = record.Compare(n.keyAt(pos), key)
				if err == nil && cmp == 0 {
					p, s := n.leafRefAt(pos)
					t.pool.Unpin(f, false)
					return p, s, nil
				}
			}
			t.pool.Unpin(f, false)
			if err != nil && !errors.Is(err, record.ErrTypeMismatch) {
				return 0, 0, err
			}
			return 0, 0, ErrKeyNotFound
		}

		pos, err := n.upperBound(key)
		next := uint64(0)
		if err == nil {
			next = n.childAt(pos)
		}
		t.pool.Unpin(f, false)
		if err != nil {
			if errors.Is(err, record.ErrTypeMismatch) {
				return 0, 0, ErrKeyNotFound
			}
			return 0, 0, err
		}
		pageID = next
	}

	return 0, 0, ErrKeyNotFound
}

// Delete removes nothing: index entries are retained and deletion is
// handled by MVCC version stamps on the heap tuples. Space reclamation
// would require a vacuum pass that rewrites leaves.
func (t *Tree) Delete(rootPageID uint64, key record.Value) error {
	return nil
}
