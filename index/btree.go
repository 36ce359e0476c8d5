package index

import (
	"bytes"
	"sync"

	"github.com/emberdb/emberdb/data"
	"github.com/google/btree"
)

// btreeItem is the value type stored in the google/btree tree, ordered by
// raw byte comparison of Key.
type btreeItem struct {
	key []byte
	pos *data.LogRecordPos
}

func btreeItemLess(a, b btreeItem) bool {
	return bytes.Compare(a.key, b.key) < 0
}

// BTreeIndexer is the default ordered in-memory index: a google/btree tree
// guarded by a read-write lock. google/btree is not safe for concurrent
// use on its own, so every operation here takes the lock itself.
type BTreeIndexer struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[btreeItem]
}

// NewBTreeIndexer constructs an empty BTreeIndexer.
func NewBTreeIndexer() *BTreeIndexer {
	return &BTreeIndexer{
		tree: btree.NewG[btreeItem](32, btreeItemLess),
	}
}

// Put implements Indexer.
func (t *BTreeIndexer) Put(key []byte, pos *data.LogRecordPos) *data.LogRecordPos {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, existed := t.tree.ReplaceOrInsert(btreeItem{key: key, pos: pos})
	if !existed {
		return nil
	}
	return old.pos
}

// Get implements Indexer.
func (t *BTreeIndexer) Get(key []byte) *data.LogRecordPos {
	t.mu.RLock()
	defer t.mu.RUnlock()
	item, ok := t.tree.Get(btreeItem{key: key})
	if !ok {
		return nil
	}
	return item.pos
}

// Delete implements Indexer.
func (t *BTreeIndexer) Delete(key []byte) (*data.LogRecordPos, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, existed := t.tree.Delete(btreeItem{key: key})
	if !existed {
		return nil, false
	}
	return old.pos, true
}

// Size implements Indexer.
func (t *BTreeIndexer) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.tree.Len()
}

// Close implements Indexer; the in-memory tree holds no external resources.
func (t *BTreeIndexer) Close() error {
	return nil
}

// Iterator implements Indexer by copying the tree into a sorted slice, the
// snapshot-at-construction-time contract spec.md's iterator section
// requires.
func (t *BTreeIndexer) Iterator(reverse bool) Iterator {
	t.mu.RLock()
	defer t.mu.RUnlock()

	items := make([]btreeItem, 0, t.tree.Len())
	iterFn := func(item btreeItem) bool {
		items = append(items, item)
		return true
	}
	if reverse {
		t.tree.Descend(iterFn)
	} else {
		t.tree.Ascend(iterFn)
	}

	return &sliceIterator{items: items, reverse: reverse}
}
