// Package emberdb implements an embeddable, persistent key/value store
// built on the Bitcask model: an append-only log of records on disk,
// backed by an in-memory (or persistent B+ tree) key index. See SPEC_FULL.md
// for the full module layout.
package emberdb

import (
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/emberdb/emberdb/data"
	emberErrors "github.com/emberdb/emberdb/errors"
	"github.com/emberdb/emberdb/fio"
	"github.com/emberdb/emberdb/index"
	"github.com/emberdb/emberdb/utils"
	"github.com/gofrs/flock"
)

const (
	fileLockName                = "flock"
	initialFileID                = uint32(0)
	nonTransactionSeqNo uint64 = 0
)

// Engine is a single open Bitcask-model database. It owns the active
// (writable) data file, the sealed older files, the in-memory index, and
// the directory lock that keeps a second process out. Safe for concurrent
// use by multiple goroutines.
type Engine struct {
	options Options
	mu      sync.RWMutex

	// fileIDs are the file ids discovered at open time, used only while
	// loading the index; never read or mutated afterwards.
	fileIDs []int

	activeFile *data.DataFile
	olderFiles map[uint32]*data.DataFile
	index      index.Indexer

	seqNo uint64 // atomic, accessed via sync/atomic

	batchCommitLock sync.Mutex
	mergingLock     sync.Mutex
	isMerging       bool

	seqNoFileExists bool
	isInitial       bool

	fileLock *flock.Flock

	bytesWrite  uint
	reclaimSize int64 // atomic

	logger *slog.Logger
}

// Stat summarizes the state of an open Engine.
type Stat struct {
	KeyNum          uint
	DataFileNum     uint
	ReclaimableSize int64
	DiskSize        int64
}

// Open opens (or creates) a database rooted at options.DirPath. It recovers
// the index from sealed segments, any hint file left by a prior merge, and
// the active file's own tail, per spec.md §4.4.1.
func Open(options Options) (*Engine, error) {
	if err := checkOptions(options); err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var isInitial bool
	if _, err := os.Stat(options.DirPath); os.IsNotExist(err) {
		isInitial = true
		if err := os.MkdirAll(options.DirPath, 0755); err != nil {
			return nil, emberErrors.ErrFailedToCreateDatabaseDir
		}
	} else {
		entries, err := os.ReadDir(options.DirPath)
		if err != nil {
			return nil, emberErrors.ErrFailedToReadDatabaseDir
		}
		if len(entries) == 0 {
			isInitial = true
		}
	}

	fileLock := flock.New(filepath.Join(options.DirPath, fileLockName))
	held, err := fileLock.TryLock()
	if err != nil {
		return nil, err
	}
	if !held {
		return nil, emberErrors.ErrDatabaseIsUsing
	}

	e := &Engine{
		options:    options,
		olderFiles: make(map[uint32]*data.DataFile),
		index:      index.NewIndexer(options.IndexType, options.DirPath, options.SyncWrites),
		isInitial:  isInitial,
		fileLock:   fileLock,
		logger:     logger,
	}

	if err := e.loadMergeFiles(); err != nil {
		_ = fileLock.Unlock()
		return nil, err
	}

	if err := e.loadDataFiles(); err != nil {
		_ = fileLock.Unlock()
		return nil, err
	}

	if options.IndexType != index.BPlusTreeIndex {
		if err := e.loadIndexFromHintFile(); err != nil {
			_ = fileLock.Unlock()
			return nil, err
		}
		if err := e.loadIndexFromDataFiles(); err != nil {
			_ = fileLock.Unlock()
			return nil, err
		}
		if options.MMapAtStartup {
			if err := e.resetIOType(); err != nil {
				_ = fileLock.Unlock()
				return nil, err
			}
		}
	} else {
		if err := e.loadSeqNo(); err != nil {
			_ = fileLock.Unlock()
			return nil, err
		}
		if options.MMapAtStartup {
			if err := e.resetIOType(); err != nil {
				_ = fileLock.Unlock()
				return nil, err
			}
		}
		if e.activeFile != nil {
			size, err := e.activeFile.IoManager.Size()
			if err != nil {
				_ = fileLock.Unlock()
				return nil, err
			}
			e.activeFile.WriteOffset = size
		}
	}

	if atomic.LoadUint64(&e.seqNo) == 0 {
		atomic.StoreUint64(&e.seqNo, 1)
	}

	logger.Info("emberdb engine opened", "dir", options.DirPath, "initial", isInitial)
	return e, nil
}

// checkOptions validates options in the order spec.md's §4.4.1 algorithm
// implies: directory path, then file size, then merge ratio.
func checkOptions(options Options) error {
	if options.DirPath == "" {
		return emberErrors.ErrDirPathIsEmpty
	}
	if options.DataFileSize <= 0 {
		return emberErrors.ErrDataFileSizeTooSmall
	}
	if options.DataFileMergeRatio < 0 || options.DataFileMergeRatio > 1 {
		return emberErrors.ErrInvalidMergeRatio
	}
	return nil
}

// Close syncs and releases the active file, persists the sequence number
// for the B+ tree index variant, closes the index, and releases the
// directory lock. Safe to call once; a second Close on an already-closed
// Engine will return an error from the now-closed file handles.
func (e *Engine) Close() error {
	defer func() {
		if err := e.fileLock.Unlock(); err != nil {
			e.logger.Warn("failed to release directory lock", "err", err)
		}
	}()

	if e.activeFile == nil {
		return e.index.Close()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.saveSeqNo(); err != nil {
		return err
	}

	if err := e.activeFile.Sync(); err != nil {
		return err
	}
	if err := e.activeFile.Close(); err != nil {
		return err
	}
	for _, df := range e.olderFiles {
		if err := df.Close(); err != nil {
			return err
		}
	}

	return e.index.Close()
}

// Sync flushes the active file to stable storage.
func (e *Engine) Sync() error {
	if e.activeFile == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activeFile.Sync()
}

// Stat reports key count, segment count, reclaimable bytes, and on-disk
// directory size.
func (e *Engine) Stat() (*Stat, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	dataFiles := uint(len(e.olderFiles))
	if e.activeFile != nil {
		dataFiles++
	}

	size, err := utils.DirSize(e.options.DirPath)
	if err != nil {
		return nil, err
	}

	return &Stat{
		KeyNum:          uint(e.index.Size()),
		DataFileNum:     dataFiles,
		ReclaimableSize: atomic.LoadInt64(&e.reclaimSize),
		DiskSize:        size,
	}, nil
}

// Backup copies every file in the data directory except the directory
// lock into dest.
func (e *Engine) Backup(dest string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return utils.CopyDirectory(e.options.DirPath, dest, []string{fileLockName})
}

// Put writes key/value as a NORMAL record. key must be non-empty.
func (e *Engine) Put(key, value []byte) error {
	if len(key) == 0 {
		return emberErrors.ErrKeyIsEmpty
	}

	rec := &data.LogRecord{
		Key:   logRecordKeyWithSeq(key, nonTransactionSeqNo),
		Value: value,
		Type:  data.LogRecordNormal,
	}

	pos, err := e.appendLogRecordWithLock(rec)
	if err != nil {
		return err
	}

	if old := e.index.Put(key, pos); old != nil {
		atomic.AddInt64(&e.reclaimSize, int64(old.Size))
	}
	return nil
}

// Get returns the most recently written value for key.
func (e *Engine) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, emberErrors.ErrKeyIsEmpty
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	pos := e.index.Get(key)
	if pos == nil {
		return nil, emberErrors.ErrKeyNotFound
	}
	return e.getValueByPosition(pos)
}

// Has reports whether key currently has a live entry, without reading its
// value from disk.
func (e *Engine) Has(key []byte) bool {
	if len(key) == 0 {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.Get(key) != nil
}

// Delete removes key. Deleting an absent key is a no-op that returns nil.
func (e *Engine) Delete(key []byte) error {
	if len(key) == 0 {
		return emberErrors.ErrKeyIsEmpty
	}

	e.mu.Lock()
	if e.index.Get(key) == nil {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	rec := &data.LogRecord{
		Key:  logRecordKeyWithSeq(key, nonTransactionSeqNo),
		Type: data.LogRecordDeleted,
	}
	pos, err := e.appendLogRecordWithLock(rec)
	if err != nil {
		return err
	}
	atomic.AddInt64(&e.reclaimSize, int64(pos.Size))

	e.mu.Lock()
	old, existed := e.index.Delete(key)
	e.mu.Unlock()
	if !existed {
		return emberErrors.ErrIndexUpdateFailed
	}
	if old != nil {
		atomic.AddInt64(&e.reclaimSize, int64(old.Size))
	}
	return nil
}

// ListKeys returns every live key in index order.
func (e *Engine) ListKeys() [][]byte {
	e.mu.RLock()
	defer e.mu.RUnlock()

	it := e.index.Iterator(false)
	defer it.Close()

	keys := make([][]byte, 0, e.index.Size())
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Key())
	}
	return keys
}

// Fold calls fn for every live key/value pair in index order, stopping
// early if fn returns false.
func (e *Engine) Fold(fn func(key, value []byte) bool) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	it := e.index.Iterator(false)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		value, err := e.getValueByPosition(it.Value())
		if err != nil {
			return err
		}
		if !fn(it.Key(), value) {
			break
		}
	}
	return nil
}

// getValueByPosition resolves pos to its value, reading from the active
// file or the matching older file. Must be called with e.mu held.
func (e *Engine) getValueByPosition(pos *data.LogRecordPos) ([]byte, error) {
	var df *data.DataFile
	if e.activeFile != nil && e.activeFile.FileID == pos.Fid {
		df = e.activeFile
	} else {
		df = e.olderFiles[pos.Fid]
	}
	if df == nil {
		return nil, emberErrors.ErrDataFileNotFound
	}

	rec, _, err := df.ReadLogRecord(pos.Offset)
	if err != nil {
		return nil, err
	}
	if rec.Type == data.LogRecordDeleted {
		return nil, emberErrors.ErrKeyNotFound
	}
	return rec.Value, nil
}

// appendLogRecordWithLock takes the write lock and delegates to
// appendLogRecord.
func (e *Engine) appendLogRecordWithLock(rec *data.LogRecord) (*data.LogRecordPos, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.appendLogRecord(rec)
}

// appendLogRecord is the single serialized mutation point (spec.md §4.4.5):
// rotate the active file if this record would overflow it, append, and
// sync according to the configured durability policy. Callers must hold
// e.mu.
func (e *Engine) appendLogRecord(rec *data.LogRecord) (*data.LogRecordPos, error) {
	if e.activeFile == nil {
		if err := e.setActiveDataFile(); err != nil {
			return nil, err
		}
	}

	encoded, size := data.EncodeLogRecord(rec)

	if e.activeFile.WriteOffset+size > e.options.DataFileSize {
		if err := e.activeFile.Sync(); err != nil {
			return nil, err
		}
		e.olderFiles[e.activeFile.FileID] = e.activeFile
		if err := e.setActiveDataFile(); err != nil {
			return nil, err
		}
		e.logger.Info("rotated active data file", "dir", e.options.DirPath, "file_id", e.activeFile.FileID)
	}

	writeOffset := e.activeFile.WriteOffset
	if err := e.activeFile.Write(encoded); err != nil {
		return nil, err
	}
	e.bytesWrite += uint(size)

	needSync := e.options.SyncWrites
	if !needSync && e.options.BytesPerSync > 0 && e.bytesWrite >= e.options.BytesPerSync {
		needSync = true
	}
	if needSync {
		if err := e.activeFile.Sync(); err != nil {
			return nil, err
		}
		e.bytesWrite = 0
	}

	return &data.LogRecordPos{
		Fid:    e.activeFile.FileID,
		Offset: writeOffset,
		Size:   uint32(size),
	}, nil
}

// setActiveDataFile opens a fresh standard-IO active file with the next
// file id. Callers must hold e.mu.
func (e *Engine) setActiveDataFile() error {
	var fileID uint32 = initialFileID
	if e.activeFile != nil {
		fileID = e.activeFile.FileID + 1
	}
	df, err := data.OpenDataFile(e.options.DirPath, fileID, fio.StandardFIO)
	if err != nil {
		return err
	}
	e.activeFile = df
	return nil
}

// loadDataFiles discovers *.data segments, opens them in ascending file-id
// order, and assigns the highest-id one as active.
func (e *Engine) loadDataFiles() error {
	entries, err := os.ReadDir(e.options.DirPath)
	if err != nil {
		return emberErrors.ErrFailedToReadDatabaseDir
	}

	var fileIDs []int
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), data.DataFileNameSuffix) {
			continue
		}
		splitName := strings.Split(entry.Name(), ".")
		fileID, err := strconv.Atoi(splitName[0])
		if err != nil {
			return emberErrors.ErrDataDirectoryCorrupted
		}
		fileIDs = append(fileIDs, fileID)
	}
	sort.Ints(fileIDs)
	e.fileIDs = fileIDs

	for i, fid := range fileIDs {
		ioType := fio.StandardFIO
		if e.options.MMapAtStartup {
			ioType = fio.MemoryMap
		}
		df, err := data.OpenDataFile(e.options.DirPath, uint32(fid), ioType)
		if err != nil {
			return err
		}
		if i == len(fileIDs)-1 {
			e.activeFile = df
		} else {
			e.olderFiles[uint32(fid)] = df
		}
	}

	if len(fileIDs) == 0 {
		return e.setActiveDataFile()
	}
	return nil
}

// loadIndexFromDataFiles replays every segment not already covered by a
// hint file, reconstructing the index per spec.md §4.4.6: non-transactional
// records apply immediately, transactional records buffer until their
// terminator, and an unterminated batch is left invisible.
func (e *Engine) loadIndexFromDataFiles() error {
	if len(e.fileIDs) == 0 {
		return nil
	}

	hasMerge, nonMergeFileID := false, uint32(0)
	mergeFinPath := filepath.Join(e.options.DirPath, data.MergeFinishedFileName)
	if _, err := os.Stat(mergeFinPath); err == nil {
		fid, err := e.loadNonMergeFileID()
		if err != nil {
			return err
		}
		hasMerge, nonMergeFileID = true, fid
	}

	updateIndex := func(key []byte, rtype data.LogRecordType, pos *data.LogRecordPos) {
		var old *data.LogRecordPos
		if rtype == data.LogRecordDeleted {
			old, _ = e.index.Delete(key)
			atomic.AddInt64(&e.reclaimSize, int64(pos.Size))
		} else {
			old = e.index.Put(key, pos)
		}
		if old != nil {
			atomic.AddInt64(&e.reclaimSize, int64(old.Size))
		}
	}

	transactions := make(map[uint64][]*data.TransactionRecord)
	var currentSeqNo = nonTransactionSeqNo

	for i, fid := range e.fileIDs {
		fileID := uint32(fid)
		if hasMerge && fileID < nonMergeFileID {
			continue
		}

		var df *data.DataFile
		if e.activeFile != nil && fileID == e.activeFile.FileID {
			df = e.activeFile
		} else {
			df = e.olderFiles[fileID]
		}
		if df == nil {
			continue
		}

		var offset int64
		for {
			rec, size, err := df.ReadLogRecord(offset)
			if err != nil {
				if err == emberErrors.ErrDataFileEOF {
					break
				}
				return err
			}

			pos := &data.LogRecordPos{Fid: fileID, Offset: offset, Size: uint32(size)}

			realKey, seqNo := parseLogRecordKey(rec.Key)
			if seqNo == nonTransactionSeqNo {
				updateIndex(realKey, rec.Type, pos)
			} else if rec.Type == data.LogRecordTxnFinished {
				for _, txnRec := range transactions[seqNo] {
					updateIndex(txnRec.Record.Key, txnRec.Record.Type, txnRec.Pos)
				}
				delete(transactions, seqNo)
			} else {
				rec.Key = realKey
				transactions[seqNo] = append(transactions[seqNo], &data.TransactionRecord{Record: rec, Pos: pos})
			}

			if seqNo > currentSeqNo {
				currentSeqNo = seqNo
			}
			offset += size
		}

		if i == len(e.fileIDs)-1 && e.activeFile != nil {
			e.activeFile.WriteOffset = offset
		}
	}

	atomic.StoreUint64(&e.seqNo, currentSeqNo+1)
	return nil
}

// resetIOType rebinds every open segment back to standard file IO once
// recovery has finished reading through them via mmap, so subsequent
// writes (which always land on the active file) go through a writable
// handle.
func (e *Engine) resetIOType() error {
	if e.activeFile != nil {
		if err := e.activeFile.SetIOManager(e.options.DirPath, fio.StandardFIO); err != nil {
			return err
		}
	}
	for _, df := range e.olderFiles {
		if err := df.SetIOManager(e.options.DirPath, fio.StandardFIO); err != nil {
			return err
		}
	}
	return nil
}

// logRecordKeyWithSeq prefixes key with seqNo's varint encoding, per
// spec.md §3's "encoded-key framing inside a batch".
func logRecordKeyWithSeq(key []byte, seqNo uint64) []byte {
	seqBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(seqBuf, seqNo)
	out := make([]byte, n+len(key))
	copy(out, seqBuf[:n])
	copy(out[n:], key)
	return out
}

// parseLogRecordKey reverses logRecordKeyWithSeq.
func parseLogRecordKey(key []byte) ([]byte, uint64) {
	seqNo, n := binary.Uvarint(key)
	return key[n:], seqNo
}
