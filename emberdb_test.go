package emberdb

import (
	"testing"

	emberErrors "github.com/emberdb/emberdb/errors"
	"github.com/emberdb/emberdb/index"
	"github.com/emberdb/emberdb/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.DirPath = t.TempDir()
	opts.DataFileSize = 64 * 1024 * 1024
	return opts
}

func TestEngine_PutGetDelete(t *testing.T) {
	db, err := Open(testOptions(t))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("k1"), []byte("v1")))
	value, err := db.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	assert.True(t, db.Has([]byte("k1")))

	require.NoError(t, db.Put([]byte("k1"), []byte("v2")))
	value, err = db.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), value)

	require.NoError(t, db.Delete([]byte("k1")))
	_, err = db.Get([]byte("k1"))
	assert.ErrorIs(t, err, emberErrors.ErrKeyNotFound)
	assert.False(t, db.Has([]byte("k1")))

	assert.ErrorIs(t, db.Delete(nil), emberErrors.ErrKeyIsEmpty)
	assert.ErrorIs(t, db.Put(nil, []byte("v")), emberErrors.ErrKeyIsEmpty)
}

func TestEngine_DeleteAbsentKeyIsNoop(t *testing.T) {
	db, err := Open(testOptions(t))
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Delete([]byte("never-written")))
}

func TestEngine_ListKeysAndFold(t *testing.T) {
	db, err := Open(testOptions(t))
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, db.Put(utils.GetTestKey(i), utils.RandomValue(8)))
	}

	keys := db.ListKeys()
	assert.Len(t, keys, 10)

	visited := 0
	require.NoError(t, db.Fold(func(key, value []byte) bool {
		visited++
		return true
	}))
	assert.Equal(t, 10, visited)
}

func TestEngine_SegmentRotation(t *testing.T) {
	opts := testOptions(t)
	opts.DataFileSize = 1024 // force many rotations with small values
	db, err := Open(opts)
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 500; i++ {
		require.NoError(t, db.Put(utils.GetTestKey(i), utils.RandomValue(32)))
	}

	stat, err := db.Stat()
	require.NoError(t, err)
	assert.Greater(t, stat.DataFileNum, uint(1))
	assert.EqualValues(t, 500, stat.KeyNum)
}

func TestEngine_ReopenRecoversIndex(t *testing.T) {
	opts := testOptions(t)
	opts.DataFileSize = 4096

	db, err := Open(opts)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		require.NoError(t, db.Put(utils.GetTestKey(i), utils.RandomValue(16)))
	}
	require.NoError(t, db.Delete(utils.GetTestKey(5)))
	require.NoError(t, db.Close())

	reopened, err := Open(opts)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.Get(utils.GetTestKey(5))
	assert.ErrorIs(t, err, emberErrors.ErrKeyNotFound)

	value, err := reopened.Get(utils.GetTestKey(100))
	require.NoError(t, err)
	assert.NotEmpty(t, value)

	stat, err := reopened.Stat()
	require.NoError(t, err)
	assert.EqualValues(t, 199, stat.KeyNum)
}

func TestEngine_DatabaseIsUsing(t *testing.T) {
	opts := testOptions(t)
	db, err := Open(opts)
	require.NoError(t, err)
	defer db.Close()

	_, err = Open(opts)
	assert.ErrorIs(t, err, emberErrors.ErrDatabaseIsUsing)
}

func TestEngine_CheckOptions(t *testing.T) {
	opts := testOptions(t)
	opts.DirPath = ""
	_, err := Open(opts)
	assert.ErrorIs(t, err, emberErrors.ErrDirPathIsEmpty)

	opts = testOptions(t)
	opts.DataFileSize = 0
	_, err = Open(opts)
	assert.ErrorIs(t, err, emberErrors.ErrDataFileSizeTooSmall)

	opts = testOptions(t)
	opts.DataFileMergeRatio = 1.5
	_, err = Open(opts)
	assert.ErrorIs(t, err, emberErrors.ErrInvalidMergeRatio)
}

func TestEngine_BPlusTreeIndexPersistsSeqNo(t *testing.T) {
	opts := testOptions(t)
	opts.IndexType = index.BPlusTreeIndex

	db, err := Open(opts)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	require.NoError(t, db.Close())

	reopened, err := Open(opts)
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	// The seq-no file written by Close is what lets a reopened (non-fresh)
	// B+ tree database create write batches.
	_, err = reopened.NewWriteBatch(DefaultWriteBatchOptions())
	assert.NoError(t, err)
}

func TestEngine_Backup(t *testing.T) {
	db, err := Open(testOptions(t))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("k"), []byte("v")))

	dest := t.TempDir()
	require.NoError(t, db.Backup(dest))

	restoreOpts := testOptions(t)
	restoreOpts.DirPath = dest
	restored, err := Open(restoreOpts)
	require.NoError(t, err)
	defer restored.Close()

	value, err := restored.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}
