package fio

import (
	"os"
)

// FileIO is the standard IOManager, backed by an *os.File opened for
// read-write. Reads go through ReadAt, so they don't depend on a shared file
// offset; writes are appends, since the file is opened with O_APPEND.
type FileIO struct {
	file *os.File
}

// NewFileIOManager opens (creating if necessary) a standard file IOManager.
func NewFileIOManager(path string) (*FileIO, error) {
	file, err := os.OpenFile(
		path,
		os.O_CREATE|os.O_RDWR|os.O_APPEND,
		0644,
	)
	if err != nil {
		return nil, err
	}
	return &FileIO{file: file}, nil
}

// Read implements IOManager.
func (f *FileIO) Read(buf []byte, offset int64) (int, error) {
	return f.file.ReadAt(buf, offset)
}

// Write implements IOManager. O_APPEND on the underlying file makes every
// write land at the current end of file regardless of offset.
func (f *FileIO) Write(buf []byte) (int, error) {
	return f.file.Write(buf)
}

// Sync implements IOManager.
func (f *FileIO) Sync() error {
	return f.file.Sync()
}

// Size implements IOManager.
func (f *FileIO) Size() (int64, error) {
	info, err := f.file.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close implements IOManager.
func (f *FileIO) Close() error {
	return f.file.Close()
}
