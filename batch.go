package emberdb

import (
	"sync"
	"sync/atomic"

	"github.com/emberdb/emberdb/data"
	emberErrors "github.com/emberdb/emberdb/errors"
	"github.com/emberdb/emberdb/index"
)

// WriteBatch stages a set of Put/Delete operations and commits them as one
// atomic unit: either every staged write becomes visible, or none does, per
// spec.md §4.4.7. A WriteBatch is not reusable after Commit.
type WriteBatch struct {
	options       WriteBatchOptions
	mu            sync.Mutex
	engine        *Engine
	pendingWrites map[string]*data.LogRecord
}

// NewWriteBatch creates a WriteBatch against the engine. The B+ tree index
// variant requires the persisted sequence-number file from a prior run
// (loadSeqNo) unless the directory was fresh when the engine was opened;
// absent both, batches can't be made crash-safe, so this returns
// an error instead of silently writing unbatched records.
func (e *Engine) NewWriteBatch(options WriteBatchOptions) (*WriteBatch, error) {
	if e.options.IndexType == index.BPlusTreeIndex && !e.seqNoFileExists && !e.isInitial {
		return nil, emberErrors.ErrUnableToUseWriteBatch
	}
	return &WriteBatch{
		options:       options,
		engine:        e,
		pendingWrites: make(map[string]*data.LogRecord),
	}, nil
}

// Put stages a write of key/value, overriding any earlier staged write for
// the same key in this batch.
func (wb *WriteBatch) Put(key, value []byte) error {
	if len(key) == 0 {
		return emberErrors.ErrKeyIsEmpty
	}
	wb.mu.Lock()
	defer wb.mu.Unlock()

	wb.pendingWrites[string(key)] = &data.LogRecord{Key: key, Value: value, Type: data.LogRecordNormal}
	return nil
}

// Delete stages a deletion of key. If key was only ever staged (never
// committed) in this same batch, the staged write is simply dropped rather
// than appending a tombstone for a key nobody else has seen.
func (wb *WriteBatch) Delete(key []byte) error {
	if len(key) == 0 {
		return emberErrors.ErrKeyIsEmpty
	}
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if wb.engine.index.Get(key) == nil {
		if _, staged := wb.pendingWrites[string(key)]; staged {
			delete(wb.pendingWrites, string(key))
		}
		return nil
	}

	wb.pendingWrites[string(key)] = &data.LogRecord{Key: key, Type: data.LogRecordDeleted}
	return nil
}

// Commit appends every staged record under a single reserved sequence
// number, followed by a TXN_FINISHED terminator, serialized against every
// other Commit via the engine's batch commit lock so seq_no allocation and
// the terminator write stay atomic (spec.md §4.4.7, §5).
func (wb *WriteBatch) Commit() error {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if len(wb.pendingWrites) == 0 {
		return nil
	}
	if uint(len(wb.pendingWrites)) > wb.options.MaxBatchNum {
		return emberErrors.ErrExceedMaxBatchNum
	}

	wb.engine.batchCommitLock.Lock()
	defer wb.engine.batchCommitLock.Unlock()

	seqNo := atomic.AddUint64(&wb.engine.seqNo, 1)

	wb.engine.mu.Lock()
	defer wb.engine.mu.Unlock()

	positions := make(map[string]*data.LogRecordPos, len(wb.pendingWrites))
	for key, rec := range wb.pendingWrites {
		pos, err := wb.engine.appendLogRecord(&data.LogRecord{
			Key:   logRecordKeyWithSeq(rec.Key, seqNo),
			Value: rec.Value,
			Type:  rec.Type,
		})
		if err != nil {
			return err
		}
		positions[key] = pos
	}

	finishedRecord := &data.LogRecord{
		Key:  logRecordKeyWithSeq([]byte(data.TxnFinKey), seqNo),
		Type: data.LogRecordTxnFinished,
	}
	if _, err := wb.engine.appendLogRecord(finishedRecord); err != nil {
		return err
	}

	if wb.options.SyncWrites && wb.engine.activeFile != nil {
		if err := wb.engine.activeFile.Sync(); err != nil {
			return err
		}
	}

	for key, rec := range wb.pendingWrites {
		pos := positions[key]
		var old *data.LogRecordPos
		var existed = true
		if rec.Type == data.LogRecordDeleted {
			old, existed = wb.engine.index.Delete(rec.Key)
			atomic.AddInt64(&wb.engine.reclaimSize, int64(pos.Size))
		} else {
			old = wb.engine.index.Put(rec.Key, pos)
		}
		if existed && old != nil {
			atomic.AddInt64(&wb.engine.reclaimSize, int64(old.Size))
		}
	}

	wb.pendingWrites = make(map[string]*data.LogRecord)
	return nil
}
