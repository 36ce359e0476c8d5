package fio

import (
	"path/filepath"
	"testing"

	emberErrors "github.com/emberdb/emberdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMMapIO_ReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "000000001.data")
	f, err := NewFileIOManager(path)
	require.NoError(t, err)
	_, err = f.Write([]byte("mmap payload"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	m, err := NewMMapIOManager(path)
	require.NoError(t, err)
	defer m.Close()

	buf := make([]byte, 4)
	_, err = m.Read(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "mmap", string(buf))

	_, err = m.Write([]byte("x"))
	assert.ErrorIs(t, err, emberErrors.ErrMMapWriteUnsupported)
}
