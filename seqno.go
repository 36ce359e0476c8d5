package emberdb

import (
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/emberdb/emberdb/data"
	"github.com/emberdb/emberdb/index"
)

// isBPlusTree reports whether this Engine was opened with the persistent
// B+ tree index variant, the only one that needs the seq-no file.
func (e *Engine) isBPlusTree() bool {
	return e.options.IndexType == index.BPlusTreeIndex
}

// loadSeqNo restores the last-persisted sequence number for the B+ tree
// index variant, whose Iterator doesn't require a log replay and so has no
// other way to learn it. The seq-no file is deleted immediately after
// being read: it is only ever valid for the single Open that follows the
// Close which wrote it, and its absence is how a later Open tells a clean
// shutdown apart from a crash (see ErrUnableToUseWriteBatch).
func (e *Engine) loadSeqNo() error {
	path := filepath.Join(e.options.DirPath, data.SeqNoFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	seqNoFile, err := data.OpenSeqNoFile(e.options.DirPath)
	if err != nil {
		return err
	}

	rec, _, err := seqNoFile.ReadLogRecord(0)
	if err != nil {
		return err
	}

	seqNo, err := strconv.ParseUint(string(rec.Value), 10, 64)
	if err != nil {
		return err
	}
	atomic.StoreUint64(&e.seqNo, seqNo)
	e.seqNoFileExists = true

	_ = seqNoFile.Close()
	return os.Remove(path)
}

// saveSeqNo persists the current sequence number so the next Open of a
// B+ tree-indexed database can resume issuing fresh ones, and removes any
// pre-existing copy first so a repeated Open/Close cycle doesn't append to
// a growing file.
func (e *Engine) saveSeqNo() error {
	if e.index == nil {
		return nil
	}
	if !e.isBPlusTree() {
		return nil
	}

	path := filepath.Join(e.options.DirPath, data.SeqNoFileName)
	_ = os.Remove(path)

	seqNoFile, err := data.OpenSeqNoFile(e.options.DirPath)
	if err != nil {
		return err
	}

	rec := &data.LogRecord{
		Value: []byte(strconv.FormatUint(atomic.LoadUint64(&e.seqNo), 10)),
	}
	encoded, _ := data.EncodeLogRecord(rec)
	if err := seqNoFile.Write(encoded); err != nil {
		return err
	}
	return seqNoFile.Sync()
}
