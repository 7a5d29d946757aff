package btree

import (
	"github.com/tuannm99/tinydb/internal/bx"
	"github.com/tuannm99/tinydb/internal/record"
	"github.com/tuannm99/tinydb/internal/storage"
)

const (
	// Order is the maximum number of children per internal node.
	Order = 49

	// MaxKeys is the key capacity of one node.
	MaxKeys = Order - 1
)

// Node page layout, little-endian:
//
//	isLeaf    u8   @0 (pad to 4)
//	keyCount  u32  @4
//	keys      [MaxKeys]Value @8
//	pointers  @ptrOffset:
//	  leaf:     tuplePageIDs [MaxKeys]u64, tupleSlots [MaxKeys]u32
//	  internal: children [Order]u64
const (
	keyCountOffset = 4
	keysOffset     = 8
	ptrOffset      = keysOffset + MaxKeys*record.ValueRecordSize
	slotsOffset    = ptrOffset + MaxKeys*8

	leafEnd     = slotsOffset + MaxKeys*4
	internalEnd = ptrOffset + Order*8
)

// Both pointer-union branches must fit in one page.
var (
	_ [storage.PageSize - leafEnd]struct{}
	_ [storage.PageSize - internalEnd]struct{}
)

// node is a view over a pinned page frame's bytes. Mutations are only
// valid while the caller holds the pin.
type node struct {
	data []byte
}

func (n node) isLeaf() bool { return n.data[0] != 0 }

func (n node) keyCount() int { return int(bx.U32At(n.data, keyCountOffset)) }

func (n node) setKeyCount(c int) { bx.PutU32At(n.data, keyCountOffset, uint32(c)) }

func (n node) keyAt(i int) record.Value {
	return record.DecodeValue(n.data[keysOffset+i*record.ValueRecordSize:])
}

func (n node) setKeyAt(i int, v record.Value) {
	record.EncodeValue(n.data[keysOffset+i*record.ValueRecordSize:], v)
}

func (n node) childAt(i int) uint64 { return bx.U64At(n.data, ptrOffset+i*8) }

func (n node) setChildAt(i int, pid uint64) { bx.PutU64At(n.data, ptrOffset+i*8, pid) }

func (n node) leafRefAt(i int) (pageID uint64, slot uint32) {
	return bx.U64At(n.data, ptrOffset+i*8), bx.U32At(n.data, slotsOffset+i*4)
}

func (n node) setLeafRefAt(i int, pageID uint64, slot uint32) {
	bx.PutU64At(n.data, ptrOffset+i*8, pageID)
	bx.PutU32At(n.data, slotsOffset+i*4, slot)
}

// initNode zeroes the page and stamps the leaf flag.
func initNode(data []byte, leaf bool) {
	clear(data)
	if leaf {
		data[0] = 1
	}
}

// keyBytes returns the raw byte range of keys [i, j).
func (n node) keyBytes(i, j int) []byte {
	return n.data[keysOffset+i*record.ValueRecordSize : keysOffset+j*record.ValueRecordSize]
}

// insertLeafAt shifts keys[pos:] and the parallel pointer arrays up one
// slot and writes the new entry. The caller ensures count < MaxKeys+1
// never overflows the arrays (a split follows when the node fills).
func (n node) insertLeafAt(pos int, key record.Value, tuplePageID uint64, slot uint32) {
	count := n.keyCount()
	copy(n.keyBytes(pos+1, count+1), n.keyBytes(pos, count))
	copy(n.data[ptrOffset+(pos+1)*8:ptrOffset+(count+1)*8], n.data[ptrOffset+pos*8:ptrOffset+count*8])
	copy(n.data[slotsOffset+(pos+1)*4:slotsOffset+(count+1)*4], n.data[slotsOffset+pos*4:slotsOffset+count*4])

	n.setKeyAt(pos, key)
	n.setLeafRefAt(pos, tuplePageID, slot)
	n.setKeyCount(count + 1)
}

// insertInternalAt shifts keys[pos:] and children[pos+1:] up one slot,
// then records the promoted key with its new right-hand child.
func (n node) insertInternalAt(pos int, key record.Value, rightChild uint64) {
	count := n.keyCount()
	copy(n.keyBytes(pos+1, count+1), n.keyBytes(pos, count))
	copy(n.data[ptrOffset+(pos+2)*8:ptrOffset+(count+2)*8], n.data[ptrOffset+(pos+1)*8:ptrOffset+(count+1)*8])

	n.setKeyAt(pos, key)
	n.setChildAt(pos+1, rightChild)
	n.setKeyCount(count + 1)
}

// lowerBound returns the first index whose key is >= target.
func (n node) lowerBound(key record.Value) (int, error) {
	lo, hi := 0, n.keyCount()
	for lo < hi {
		mid := (lo + hi) / 2
		cmp, err := record.Compare(n.keyAt(mid), key)
		if err != nil {
			return 0, err
		}
		if cmp < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// upperBound returns the first index whose key is > target. Internal
// descent uses it so that a key equal to keys[i] routes into child i+1,
// matching the node ordering invariant.
func (n node) upperBound(key record.Value) (int, error) {
	lo, hi := 0, n.keyCount()
	for lo < hi {
		mid := (lo + hi) / 2
		cmp, err := record.Compare(n.keyAt(mid), key)
		if err != nil {
			return 0, err
		}
		if cmp <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}
