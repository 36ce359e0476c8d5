package index

import (
	"path/filepath"

	"github.com/emberdb/emberdb/data"
	bolt "go.etcd.io/bbolt"
)

const (
	bptreeIndexFileName = "bptree-index"
	bptreeBucketName    = "emberdb-index"
)

// BPlusTreeIndexer is the persistent index variant: a single-bucket bbolt
// database storing encoded LogRecordPos values keyed by the user key. Its
// defining property (spec.md §4.3) is that it survives process restarts
// without replaying the log, at the cost of needing the sequence number
// persisted separately (see seqno.go).
type BPlusTreeIndexer struct {
	tree *bolt.DB
}

// NewBPlusTreeIndexer opens (creating if necessary) the bbolt file at
// {dirPath}/bptree-index.
func NewBPlusTreeIndexer(dirPath string, syncWrites bool) (*BPlusTreeIndexer, error) {
	opts := *bolt.DefaultOptions
	opts.NoSync = !syncWrites

	db, err := bolt.Open(filepath.Join(dirPath, bptreeIndexFileName), 0644, &opts)
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bptreeBucketName))
		return err
	}); err != nil {
		return nil, err
	}

	return &BPlusTreeIndexer{tree: db}, nil
}

// Put implements Indexer.
func (b *BPlusTreeIndexer) Put(key []byte, pos *data.LogRecordPos) *data.LogRecordPos {
	var old *data.LogRecordPos
	_ = b.tree.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bptreeBucketName))
		if existing := bucket.Get(key); existing != nil {
			old = data.DecodeLogRecordPos(existing)
		}
		return bucket.Put(key, pos.Encode())
	})
	return old
}

// Get implements Indexer.
func (b *BPlusTreeIndexer) Get(key []byte) *data.LogRecordPos {
	var pos *data.LogRecordPos
	_ = b.tree.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bptreeBucketName))
		if value := bucket.Get(key); value != nil {
			pos = data.DecodeLogRecordPos(value)
		}
		return nil
	})
	return pos
}

// Delete implements Indexer.
func (b *BPlusTreeIndexer) Delete(key []byte) (*data.LogRecordPos, bool) {
	var old *data.LogRecordPos
	var existed bool
	_ = b.tree.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bptreeBucketName))
		if value := bucket.Get(key); value != nil {
			old = data.DecodeLogRecordPos(value)
			existed = true
		}
		return bucket.Delete(key)
	})
	return old, existed
}

// Size implements Indexer.
func (b *BPlusTreeIndexer) Size() int {
	var n int
	_ = b.tree.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bptreeBucketName)).Stats().KeyN
		return nil
	})
	return n
}

// Close implements Indexer.
func (b *BPlusTreeIndexer) Close() error {
	return b.tree.Close()
}

// Iterator implements Indexer by copying every (key, pos) pair into memory
// inside a single read transaction, then handing back the same
// sliceIterator the other backends use.
func (b *BPlusTreeIndexer) Iterator(reverse bool) Iterator {
	items := make([]btreeItem, 0, b.Size())
	_ = b.tree.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket([]byte(bptreeBucketName)).Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			keyCopy := append([]byte(nil), k...)
			items = append(items, btreeItem{
				key: keyCopy,
				pos: data.DecodeLogRecordPos(v),
			})
		}
		return nil
	})
	if reverse {
		for l, r := 0, len(items)-1; l < r; l, r = l+1, r-1 {
			items[l], items[r] = items[r], items[l]
		}
	}
	return &sliceIterator{items: items, reverse: reverse}
}
