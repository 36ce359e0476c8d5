package index

import (
	"testing"

	"github.com/emberdb/emberdb/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newIndexers builds one instance of every backend for table-driven tests
// that should hold across all three.
func newIndexers(t *testing.T) map[string]Indexer {
	t.Helper()
	bptree, err := NewBPlusTreeIndexer(t.TempDir(), false)
	require.NoError(t, err)
	return map[string]Indexer{
		"btree":    NewBTreeIndexer(),
		"skiplist": NewSkipListIndexer(),
		"bptree":   bptree,
	}
}

func TestIndexer_PutGetDelete(t *testing.T) {
	for name, idx := range newIndexers(t) {
		t.Run(name, func(t *testing.T) {
			defer idx.Close()

			pos1 := &data.LogRecordPos{Fid: 1, Offset: 0, Size: 10}
			assert.Nil(t, idx.Put([]byte("a"), pos1))
			assert.Equal(t, pos1, idx.Get([]byte("a")))

			pos2 := &data.LogRecordPos{Fid: 1, Offset: 10, Size: 20}
			old := idx.Put([]byte("a"), pos2)
			assert.Equal(t, pos1, old)
			assert.Equal(t, pos2, idx.Get([]byte("a")))

			assert.Nil(t, idx.Get([]byte("missing")))

			removed, existed := idx.Delete([]byte("a"))
			assert.True(t, existed)
			assert.Equal(t, pos2, removed)
			assert.Nil(t, idx.Get([]byte("a")))

			_, existed = idx.Delete([]byte("a"))
			assert.False(t, existed)
		})
	}
}

func TestIndexer_SizeAndIterator(t *testing.T) {
	for name, idx := range newIndexers(t) {
		t.Run(name, func(t *testing.T) {
			defer idx.Close()

			keys := [][]byte{[]byte("b"), []byte("a"), []byte("c")}
			for i, k := range keys {
				idx.Put(k, &data.LogRecordPos{Fid: 1, Offset: int64(i), Size: 1})
			}
			assert.Equal(t, 3, idx.Size())

			it := idx.Iterator(false)
			var ordered []string
			for it.Rewind(); it.Valid(); it.Next() {
				ordered = append(ordered, string(it.Key()))
			}
			it.Close()
			assert.Equal(t, []string{"a", "b", "c"}, ordered)

			revIt := idx.Iterator(true)
			var reversed []string
			for revIt.Rewind(); revIt.Valid(); revIt.Next() {
				reversed = append(reversed, string(revIt.Key()))
			}
			revIt.Close()
			assert.Equal(t, []string{"c", "b", "a"}, reversed)
		})
	}
}

func TestIndexer_IteratorSeek(t *testing.T) {
	for name, idx := range newIndexers(t) {
		t.Run(name, func(t *testing.T) {
			defer idx.Close()

			for _, k := range []string{"a", "c", "e"} {
				idx.Put([]byte(k), &data.LogRecordPos{Fid: 1, Offset: 0, Size: 1})
			}

			it := idx.Iterator(false)
			defer it.Close()
			it.Seek([]byte("b"))
			require.True(t, it.Valid())
			assert.Equal(t, "c", string(it.Key()))
		})
	}
}
