package index

import (
	"bytes"
	"sort"

	"github.com/emberdb/emberdb/data"
)

// sliceIterator implements Iterator over a pre-sorted snapshot of
// (key, pos) pairs. BTreeIndexer, SkipListIndexer and BPlusTreeIndexer all
// build their iterators this way: each takes a consistent snapshot at construction
// time and hands back a plain slice walk, keeping the seek/ordering logic
// in one place instead of duplicated per backend.
type sliceIterator struct {
	items   []btreeItem
	cursor  int
	reverse bool
}

// Rewind implements Iterator.
func (it *sliceIterator) Rewind() {
	it.cursor = 0
}

// Seek implements Iterator: positions at the first key >= target (ascending
// order) or the first key <= target (descending order, i.e. reverse).
func (it *sliceIterator) Seek(target []byte) {
	if !it.reverse {
		it.cursor = sort.Search(len(it.items), func(i int) bool {
			return bytes.Compare(it.items[i].key, target) >= 0
		})
		return
	}
	it.cursor = sort.Search(len(it.items), func(i int) bool {
		return bytes.Compare(it.items[i].key, target) <= 0
	})
}

// Next implements Iterator.
func (it *sliceIterator) Next() {
	it.cursor++
}

// Valid implements Iterator.
func (it *sliceIterator) Valid() bool {
	return it.cursor < len(it.items)
}

// Key implements Iterator.
func (it *sliceIterator) Key() []byte {
	return it.items[it.cursor].key
}

// Value implements Iterator.
func (it *sliceIterator) Value() *data.LogRecordPos {
	return it.items[it.cursor].pos
}

// Close implements Iterator; the snapshot is plain memory, nothing to
// release.
func (it *sliceIterator) Close() {
	it.items = nil
}
