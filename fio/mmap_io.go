package fio

import (
	emberErrors "github.com/emberdb/emberdb/errors"
	"golang.org/x/exp/mmap"
)

// MMapIO is a read-only IOManager backed by a memory-mapped file. It exists
// to speed up startup recovery, which only reads segments sequentially. It
// is used only while Engine.Open runs: every segment that already holds data,
// the active file included, is mapped, and Open rebinds all of them to
// standard IO before it returns.
type MMapIO struct {
	reader *mmap.ReaderAt
}

// NewMMapIOManager memory-maps path for reading. The file must already
// exist; callers open the standard IOManager first if it might not.
func NewMMapIOManager(path string) (*MMapIO, error) {
	reader, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &MMapIO{reader: reader}, nil
}

// Read implements IOManager.
func (m *MMapIO) Read(buf []byte, offset int64) (int, error) {
	return m.reader.ReadAt(buf, offset)
}

// Write implements IOManager; memory maps opened by this type are read-only.
func (m *MMapIO) Write(_ []byte) (int, error) {
	return 0, emberErrors.ErrMMapWriteUnsupported
}

// Sync implements IOManager; there is nothing to flush for a read-only map.
func (m *MMapIO) Sync() error {
	return nil
}

// Size implements IOManager.
func (m *MMapIO) Size() (int64, error) {
	return int64(m.reader.Len()), nil
}

// Close implements IOManager.
func (m *MMapIO) Close() error {
	return m.reader.Close()
}
