package emberdb

import (
	"testing"

	emberErrors "github.com/emberdb/emberdb/errors"
	"github.com/emberdb/emberdb/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerge_ReclaimsSpaceAndPreservesData(t *testing.T) {
	opts := testOptions(t)
	opts.DataFileSize = 4096
	opts.DataFileMergeRatio = 0 // always eligible, to keep the test deterministic

	db, err := Open(opts)
	require.NoError(t, err)
	defer db.Close()

	for i := 0; i < 300; i++ {
		require.NoError(t, db.Put(utils.GetTestKey(i), utils.RandomValue(32)))
	}
	// Overwrite half the keys so their earlier records become reclaimable.
	for i := 0; i < 150; i++ {
		require.NoError(t, db.Put(utils.GetTestKey(i), utils.RandomValue(32)))
	}

	statBefore, err := db.Stat()
	require.NoError(t, err)
	require.Greater(t, statBefore.ReclaimableSize, int64(0))

	require.NoError(t, db.Merge())

	for i := 0; i < 300; i++ {
		value, err := db.Get(utils.GetTestKey(i))
		require.NoError(t, err)
		assert.NotEmpty(t, value)
	}
}

func TestMerge_ConcurrentMergeRejected(t *testing.T) {
	opts := testOptions(t)
	db, err := Open(opts)
	require.NoError(t, err)
	defer db.Close()

	db.isMerging = true
	err = db.Merge()
	assert.ErrorIs(t, err, emberErrors.ErrMergeInProgress)
	db.isMerging = false
}

func TestMerge_SurvivesReopen(t *testing.T) {
	opts := testOptions(t)
	opts.DataFileSize = 4096
	opts.DataFileMergeRatio = 0

	db, err := Open(opts)
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		require.NoError(t, db.Put(utils.GetTestKey(i), utils.RandomValue(32)))
	}
	for i := 0; i < 100; i++ {
		require.NoError(t, db.Put(utils.GetTestKey(i), utils.RandomValue(32)))
	}
	require.NoError(t, db.Merge())
	require.NoError(t, db.Close())

	reopened, err := Open(opts)
	require.NoError(t, err)
	defer reopened.Close()

	for i := 0; i < 200; i++ {
		value, err := reopened.Get(utils.GetTestKey(i))
		require.NoError(t, err)
		assert.NotEmpty(t, value)
	}
}
