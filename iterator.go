package emberdb

import (
	"bytes"

	"github.com/emberdb/emberdb/index"
)

// Iterator walks the live keys of an Engine in sorted (or reverse-sorted)
// order. It snapshots the index at construction time (spec.md §4.5): keys
// written or deleted after NewIterator returns are invisible to it, even
// though values are still resolved from disk lazily as each entry is
// visited.
type Iterator struct {
	indexIter index.Iterator
	engine    *Engine
	options   IteratorOptions
}

// NewIterator takes a consistent snapshot of the current index and returns
// an Iterator over it, already positioned at the first entry matching
// options.Prefix.
func (e *Engine) NewIterator(options IteratorOptions) *Iterator {
	e.mu.RLock()
	defer e.mu.RUnlock()

	it := &Iterator{
		indexIter: e.index.Iterator(options.Reverse),
		engine:    e,
		options:   options,
	}
	it.Rewind()
	return it
}

// Rewind positions the iterator at the first key matching the configured
// prefix (or the first key at all, if no prefix was set).
func (it *Iterator) Rewind() {
	it.indexIter.Rewind()
	it.skipToPrefix()
}

// Seek positions the iterator at the first key >= target (or <= target in
// reverse mode) that also matches the configured prefix.
func (it *Iterator) Seek(key []byte) {
	it.indexIter.Seek(key)
	it.skipToPrefix()
}

// Next advances to the next key matching the configured prefix.
func (it *Iterator) Next() {
	it.indexIter.Next()
	it.skipToPrefix()
}

// Valid reports whether the iterator is positioned at an entry.
func (it *Iterator) Valid() bool {
	return it.indexIter.Valid()
}

// Key returns the key at the current position.
func (it *Iterator) Key() []byte {
	return it.indexIter.Key()
}

// Value resolves and returns the value at the current position, reading
// it from whichever segment holds it.
func (it *Iterator) Value() ([]byte, error) {
	pos := it.indexIter.Value()
	it.engine.mu.RLock()
	defer it.engine.mu.RUnlock()
	return it.engine.getValueByPosition(pos)
}

// Close releases the iterator's index snapshot.
func (it *Iterator) Close() {
	it.indexIter.Close()
}

// skipToPrefix advances past any entries that don't match the configured
// prefix, since the underlying index.Iterator has no prefix concept of its
// own (kept centralized here rather than duplicated per index backend).
func (it *Iterator) skipToPrefix() {
	if len(it.options.Prefix) == 0 {
		return
	}
	for ; it.indexIter.Valid(); it.indexIter.Next() {
		key := it.indexIter.Key()
		if len(key) >= len(it.options.Prefix) && bytes.Equal(key[:len(it.options.Prefix)], it.options.Prefix) {
			break
		}
	}
}
