package snapshot

import (
	"testing"

	"github.com/emberdb/emberdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestEngine(t *testing.T) *emberdb.Engine {
	t.Helper()
	opts := emberdb.DefaultOptions()
	opts.DirPath = t.TempDir()
	db, err := emberdb.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestManager_CreateAndRestore(t *testing.T) {
	db := openTestEngine(t)
	require.NoError(t, db.Put([]byte("k1"), []byte("v1")))
	require.NoError(t, db.Put([]byte("k2"), []byte("v2")))

	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	meta, err := mgr.Create("test-1", db)
	require.NoError(t, err)
	assert.Equal(t, "test-1", meta.ID)
	assert.Greater(t, meta.SizeBytes, int64(0))

	restoreOpts := emberdb.DefaultOptions()
	restoreOpts.DirPath = mgr.Dir("test-1")
	restored, err := emberdb.Open(restoreOpts)
	require.NoError(t, err)
	defer restored.Close()

	v1, err := restored.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v1)
}

func TestManager_List(t *testing.T) {
	db := openTestEngine(t)
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		_, err := mgr.Create(id, db)
		require.NoError(t, err)
	}

	metas, err := mgr.List()
	require.NoError(t, err)
	assert.Len(t, metas, 3)
}

func TestManager_Delete(t *testing.T) {
	db := openTestEngine(t)
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = mgr.Create("del-me", db)
	require.NoError(t, err)
	require.NoError(t, mgr.Delete("del-me"))

	metas, err := mgr.List()
	require.NoError(t, err)
	assert.Empty(t, metas)
}

func TestManager_CreateDuplicateID(t *testing.T) {
	db := openTestEngine(t)
	mgr, err := NewManager(t.TempDir())
	require.NoError(t, err)

	_, err = mgr.Create("dup", db)
	require.NoError(t, err)

	_, err = mgr.Create("dup", db)
	assert.Error(t, err)
}
