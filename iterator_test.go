package emberdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIterator_AscendingAndReverse(t *testing.T) {
	db, err := Open(testOptions(t))
	require.NoError(t, err)
	defer db.Close()

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, db.Put([]byte(k), []byte(k+"-value")))
	}

	it := db.NewIterator(DefaultIteratorOptions())
	defer it.Close()

	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	revOpts := DefaultIteratorOptions()
	revOpts.Reverse = true
	revIt := db.NewIterator(revOpts)
	defer revIt.Close()

	var reversed []string
	for ; revIt.Valid(); revIt.Next() {
		reversed = append(reversed, string(revIt.Key()))
	}
	assert.Equal(t, []string{"c", "b", "a"}, reversed)
}

func TestIterator_PrefixFilter(t *testing.T) {
	db, err := Open(testOptions(t))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("user:1"), []byte("alice")))
	require.NoError(t, db.Put([]byte("user:2"), []byte("bob")))
	require.NoError(t, db.Put([]byte("order:1"), []byte("widget")))

	opts := DefaultIteratorOptions()
	opts.Prefix = []byte("user:")
	it := db.NewIterator(opts)
	defer it.Close()

	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"user:1", "user:2"}, keys)
}

func TestIterator_SnapshotAtConstruction(t *testing.T) {
	db, err := Open(testOptions(t))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("a"), []byte("1")))

	it := db.NewIterator(DefaultIteratorOptions())
	defer it.Close()

	require.NoError(t, db.Put([]byte("b"), []byte("2")))

	var keys []string
	for ; it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"a"}, keys)
}

func TestIterator_ValueReadsFromDisk(t *testing.T) {
	db, err := Open(testOptions(t))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Put([]byte("a"), []byte("aval")))

	it := db.NewIterator(DefaultIteratorOptions())
	defer it.Close()

	require.True(t, it.Valid())
	value, err := it.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("aval"), value)
}
