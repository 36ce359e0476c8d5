package data

import (
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"

	emberErrors "github.com/emberdb/emberdb/errors"
	"github.com/emberdb/emberdb/fio"
)

const (
	// DataFileNameSuffix names ordinary append-only segments.
	DataFileNameSuffix = ".data"
	// HintFileName accelerates recovery after a successful merge.
	HintFileName = "hint-index"
	// MergeFinishedFileName marks a merge as durably complete.
	MergeFinishedFileName = "merge-finished"
	// SeqNoFileName persists the sequence number for the B+ tree index.
	SeqNoFileName = "seq-no"
)

// DataFile owns one append-only log segment: a dense file id (starting at 0), the
// current write offset, and the FileIO handle backing it. Once superseded
// by a newer active file, a DataFile is never written to again.
type DataFile struct {
	FileID      uint32
	WriteOffset int64
	IoManager   fio.IOManager
}

// GetDataFileName builds the zero-padded 9-digit segment path for fileID.
func GetDataFileName(dirPath string, fileID uint32) string {
	return filepath.Join(dirPath, fmt.Sprintf("%09d%s", fileID, DataFileNameSuffix))
}

// OpenDataFile opens or creates the segment identified by fileID using the
// requested IO manager type.
func OpenDataFile(dirPath string, fileID uint32, ioType fio.IOType) (*DataFile, error) {
	return newDataFile(GetDataFileName(dirPath, fileID), fileID, ioType)
}

// OpenHintFile opens the hint-index file, always via standard IO: it is
// written sequentially once per merge and never mmap'd.
func OpenHintFile(dirPath string) (*DataFile, error) {
	return newDataFile(filepath.Join(dirPath, HintFileName), 0, fio.StandardFIO)
}

// OpenMergeFinishedFile opens the merge-finished marker file.
func OpenMergeFinishedFile(dirPath string) (*DataFile, error) {
	return newDataFile(filepath.Join(dirPath, MergeFinishedFileName), 0, fio.StandardFIO)
}

// OpenSeqNoFile opens the file that persists the sequence number across
// restarts for the B+ tree index variant.
func OpenSeqNoFile(dirPath string) (*DataFile, error) {
	return newDataFile(filepath.Join(dirPath, SeqNoFileName), 0, fio.StandardFIO)
}

func newDataFile(path string, fileID uint32, ioType fio.IOType) (*DataFile, error) {
	// Memory-mapping a file that doesn't exist yet (or is still empty)
	// fails on most platforms; fall back to standard IO in that case.
	actualType := ioType
	if actualType == fio.MemoryMap {
		probe, err := fio.NewFileIOManager(path)
		if err != nil {
			return nil, emberErrors.ErrFailedToOpenDataFile
		}
		size, _ := probe.Size()
		probe.Close()
		if size == 0 {
			actualType = fio.StandardFIO
		}
	}

	manager, err := fio.NewIOManager(path, actualType)
	if err != nil {
		return nil, emberErrors.ErrFailedToOpenDataFile
	}

	size, err := manager.Size()
	if err != nil {
		return nil, emberErrors.ErrFailedToOpenDataFile
	}

	return &DataFile{
		FileID:      fileID,
		WriteOffset: size,
		IoManager:   manager,
	}, nil
}

// ReadLogRecord reads and decodes a single record at offset, returning the
// record and its total on-disk size. Returns errors.ErrDataFileEOF once the
// header decodes to zero-length key and value, signalling the end of valid
// data in this segment.
func (df *DataFile) ReadLogRecord(offset int64) (*LogRecord, int64, error) {
	fileSize, err := df.IoManager.Size()
	if err != nil {
		return nil, 0, err
	}

	headerBytes := int64(maxLogRecordHeaderSize)
	if offset+headerBytes > fileSize {
		headerBytes = fileSize - offset
	}
	if headerBytes <= 0 {
		return nil, 0, emberErrors.ErrDataFileEOF
	}

	headerBuf := make([]byte, headerBytes)
	if _, err := df.IoManager.Read(headerBuf, offset); err != nil {
		if err == io.EOF {
			return nil, 0, emberErrors.ErrDataFileEOF
		}
		return nil, 0, err
	}

	header, headerSize := decodeLogRecordHeader(headerBuf)
	if header == nil {
		return nil, 0, emberErrors.ErrDataFileEOF
	}
	if header.keySize == 0 && header.valueSize == 0 {
		return nil, 0, emberErrors.ErrDataFileEOF
	}

	rec := &LogRecord{Type: header.rtype}

	kvSize := int64(header.keySize) + int64(header.valueSize)
	tailSize := kvSize + 4
	tailBuf := make([]byte, tailSize)
	if _, err := df.IoManager.Read(tailBuf, offset+headerSize); err != nil {
		return nil, 0, err
	}
	rec.Key = tailBuf[:header.keySize]
	rec.Value = tailBuf[header.keySize:kvSize]
	crc := binary.LittleEndian.Uint32(tailBuf[kvSize:])

	expectedCRC := getLogRecordCRC(rec, headerBuf[:headerSize])
	if expectedCRC != crc {
		return nil, 0, emberErrors.ErrInvalidLogRecordCrc
	}

	return rec, headerSize + tailSize, nil
}

// WriteHintRecord appends a hint-index entry mapping key to pos.
func (df *DataFile) WriteHintRecord(key []byte, pos *LogRecordPos) error {
	rec := &LogRecord{Key: key, Value: pos.Encode(), Type: LogRecordNormal}
	encoded, _ := EncodeLogRecord(rec)
	return df.Write(encoded)
}

// Write appends buf and advances the write offset.
func (df *DataFile) Write(buf []byte) error {
	n, err := df.IoManager.Write(buf)
	if err != nil {
		return err
	}
	df.WriteOffset += int64(n)
	return nil
}

// Sync flushes buffered writes to stable storage.
func (df *DataFile) Sync() error {
	return df.IoManager.Sync()
}

// Close releases the underlying file handle.
func (df *DataFile) Close() error {
	return df.IoManager.Close()
}

// SetIOManager rebinds the data file to a freshly opened manager of the
// given type, used to reset mmap'd recovery readers back to standard IO
// once the database is ready to accept writes.
func (df *DataFile) SetIOManager(dirPath string, ioType fio.IOType) error {
	if err := df.IoManager.Close(); err != nil {
		return err
	}
	manager, err := fio.NewIOManager(GetDataFileName(dirPath, df.FileID), ioType)
	if err != nil {
		return err
	}
	df.IoManager = manager
	return nil
}
