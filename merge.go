package emberdb

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/emberdb/emberdb/data"
	emberErrors "github.com/emberdb/emberdb/errors"
	"github.com/emberdb/emberdb/utils"
)

const mergeDirSuffix = "-merge"

// mergeDirPath returns the sibling directory a merge rewrites segments
// into, e.g. "/data/mydb" -> "/data/mydb-merge".
func mergeDirPath(dirPath string) string {
	base := filepath.Dir(dirPath)
	name := filepath.Base(dirPath)
	return filepath.Join(base, name+mergeDirSuffix)
}

// Merge rewrites every sealed segment's still-live records into a fresh,
// compact set of segments plus a hint-index file, per spec.md §6.
// The active file is sealed first, so its records are merged too.
// Preconditions are checked in order: no other merge may already be
// running, the data directory must hold data (an empty one makes Merge
// return nil without doing anything), the reclaimable
// ratio must meet options.DataFileMergeRatio, and there must be enough
// free disk space for a full rewrite.
func (e *Engine) Merge() error {
	if e.activeFile == nil {
		return nil
	}

	e.mergingLock.Lock()
	if e.isMerging {
		e.mergingLock.Unlock()
		return emberErrors.ErrMergeInProgress
	}
	e.isMerging = true
	defer func() {
		e.mergingLock.Lock()
		e.isMerging = false
		e.mergingLock.Unlock()
	}()
	e.mergingLock.Unlock()

	e.mu.Lock()

	totalSize, err := utils.DirSize(e.options.DirPath)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if totalSize == 0 {
		e.mu.Unlock()
		return nil
	}
	ratio := float32(atomic.LoadInt64(&e.reclaimSize)) / float32(totalSize)
	if ratio < e.options.DataFileMergeRatio {
		e.mu.Unlock()
		return emberErrors.ErrMergeRatioUnreached
	}

	availableSpace, err := utils.AvailableDiskSpace(e.options.DirPath)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if uint64(totalSize-atomic.LoadInt64(&e.reclaimSize)) > availableSpace {
		e.mu.Unlock()
		return emberErrors.ErrMergeNoEnoughSpace
	}

	if err := e.activeFile.Sync(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.olderFiles[e.activeFile.FileID] = e.activeFile
	if err := e.setActiveDataFile(); err != nil {
		e.mu.Unlock()
		return err
	}

	// Every sealed file up to (but excluding) the new active file's id is
	// eligible for rewriting; anything appended after this point belongs to
	// the new active file and is picked up by the next merge.
	nonMergeFileID := e.activeFile.FileID
	var mergeFiles []*data.DataFile
	for _, df := range e.olderFiles {
		mergeFiles = append(mergeFiles, df)
	}
	e.mu.Unlock()

	sort.Slice(mergeFiles, func(i, j int) bool { return mergeFiles[i].FileID < mergeFiles[j].FileID })

	mergePath := mergeDirPath(e.options.DirPath)
	if _, err := os.Stat(mergePath); err == nil {
		if err := os.RemoveAll(mergePath); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(mergePath, 0755); err != nil {
		return emberErrors.ErrFailedToCreateDatabaseDir
	}

	mergeOptions := e.options
	mergeOptions.DirPath = mergePath
	mergeOptions.SyncWrites = false
	mergeEngine, err := Open(mergeOptions)
	if err != nil {
		return err
	}
	defer mergeEngine.Close()

	hintFile, err := data.OpenHintFile(mergePath)
	if err != nil {
		return err
	}

	for _, df := range mergeFiles {
		var offset int64
		for {
			rec, size, err := df.ReadLogRecord(offset)
			if err != nil {
				if err == emberErrors.ErrDataFileEOF {
					break
				}
				return err
			}

			realKey, _ := parseLogRecordKey(rec.Key)
			livePos := e.index.Get(realKey)
			if livePos != nil && livePos.Fid == df.FileID && livePos.Offset == offset {
				rec.Key = logRecordKeyWithSeq(realKey, nonTransactionSeqNo)
				newPos, err := mergeEngine.appendLogRecordWithLock(rec)
				if err != nil {
					return err
				}
				if err := hintFile.WriteHintRecord(realKey, newPos); err != nil {
					return err
				}
			}

			offset += size
		}
	}

	if err := hintFile.Sync(); err != nil {
		return err
	}

	finFile, err := data.OpenMergeFinishedFile(mergePath)
	if err != nil {
		return err
	}
	finRecord := &data.LogRecord{Value: []byte(strconv.Itoa(int(nonMergeFileID)))}
	encoded, _ := data.EncodeLogRecord(finRecord)
	if err := finFile.Write(encoded); err != nil {
		return err
	}
	if err := finFile.Sync(); err != nil {
		return err
	}

	e.logger.Info("merge complete", "non_merge_file_id", nonMergeFileID, "files_rewritten", len(mergeFiles))
	return nil
}

// loadMergeFiles runs at the top of Open (spec.md §6.4): if a prior merge
// finished durably, it atomically swaps the merge directory's contents
// into the live directory before any segment is opened, so a crash between
// merge completion and swap never leaves two conflicting views of the data.
func (e *Engine) loadMergeFiles() error {
	mergePath := mergeDirPath(e.options.DirPath)
	if _, err := os.Stat(mergePath); os.IsNotExist(err) {
		return nil
	}
	defer os.RemoveAll(mergePath)

	entries, err := os.ReadDir(mergePath)
	if err != nil {
		return emberErrors.ErrFailedToReadDatabaseDir
	}

	var mergeFinished bool
	var mergeFileNames []string
	for _, entry := range entries {
		if entry.Name() == data.MergeFinishedFileName {
			mergeFinished = true
		}
		if entry.Name() == fileLockName || entry.Name() == data.SeqNoFileName {
			continue
		}
		mergeFileNames = append(mergeFileNames, entry.Name())
	}
	if !mergeFinished {
		return nil
	}

	nonMergeFileID, err := e.loadNonMergeFileIDFrom(mergePath)
	if err != nil {
		return err
	}

	for fid := uint32(0); fid < nonMergeFileID; fid++ {
		fileName := data.GetDataFileName(e.options.DirPath, fid)
		if _, err := os.Stat(fileName); err == nil {
			if err := os.Remove(fileName); err != nil {
				return err
			}
		}
	}

	for _, name := range mergeFileNames {
		src := filepath.Join(mergePath, name)
		dst := filepath.Join(e.options.DirPath, name)
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	}

	return nil
}

// loadNonMergeFileID reads the merge-finished marker from the live data
// directory (used while replaying segments, not while swapping them in).
func (e *Engine) loadNonMergeFileID() (uint32, error) {
	return e.loadNonMergeFileIDFrom(e.options.DirPath)
}

func (e *Engine) loadNonMergeFileIDFrom(dirPath string) (uint32, error) {
	finFile, err := data.OpenMergeFinishedFile(dirPath)
	if err != nil {
		return 0, err
	}
	defer finFile.Close()

	rec, _, err := finFile.ReadLogRecord(0)
	if err != nil {
		return 0, err
	}
	fid, err := strconv.ParseUint(string(rec.Value), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(fid), nil
}

// loadIndexFromHintFile replays the hint-index file left by a completed
// merge, if any: a sequential file of plain key -> LogRecordPos records
// that lets recovery skip re-parsing the (much larger) compacted
// segments' payload bytes.
func (e *Engine) loadIndexFromHintFile() error {
	hintPath := filepath.Join(e.options.DirPath, data.HintFileName)
	if _, err := os.Stat(hintPath); os.IsNotExist(err) {
		return nil
	}

	hintFile, err := data.OpenHintFile(e.options.DirPath)
	if err != nil {
		return err
	}
	defer hintFile.Close()

	var offset int64
	for {
		rec, size, err := hintFile.ReadLogRecord(offset)
		if err != nil {
			if err == emberErrors.ErrDataFileEOF || err == io.EOF {
				break
			}
			return err
		}
		pos := data.DecodeLogRecordPos(rec.Value)
		e.index.Put(rec.Key, pos)
		offset += size
	}
	return nil
}
