package emberdb

import (
	"log/slog"

	"github.com/emberdb/emberdb/index"
)

// Options configures an Engine at open time.
type Options struct {
	// DirPath is the data directory. Required.
	DirPath string
	// DataFileSize is the number of bytes at which a new segment is
	// rotated in. Must be greater than zero.
	DataFileSize int64
	// SyncWrites fsyncs the active file after every append.
	SyncWrites bool
	// BytesPerSync, when greater than zero, fsyncs once that many bytes
	// have accumulated since the last sync. Ignored when SyncWrites is set.
	BytesPerSync uint
	// IndexType selects the in-memory/on-disk index backend.
	IndexType index.IndexType
	// MMapAtStartup opens existing segments read-only via mmap while Open
	// runs, then resets them to standard IO before Open returns.
	MMapAtStartup bool
	// DataFileMergeRatio is the reclaimable/total-size threshold that must
	// be met before Merge will proceed. Must be within [0, 1].
	DataFileMergeRatio float32
	// Logger receives structured events about recovery, rotation, and
	// merge. A nil Logger discards everything.
	Logger *slog.Logger
}

// DefaultOptions returns sensible defaults for embedding emberdb with a
// in-memory B-tree index and no forced fsync.
func DefaultOptions() Options {
	return Options{
		DirPath:            "",
		DataFileSize:       256 * 1024 * 1024,
		SyncWrites:         false,
		BytesPerSync:       0,
		IndexType:          index.BTreeIndex,
		MMapAtStartup:      true,
		DataFileMergeRatio: 0.5,
	}
}

// WriteBatchOptions configures a WriteBatch at creation time.
type WriteBatchOptions struct {
	// MaxBatchNum caps how many staged writes a single commit may contain.
	MaxBatchNum uint
	// SyncWrites fsyncs the active file once the batch's records and
	// terminator have all been appended.
	SyncWrites bool
}

// DefaultWriteBatchOptions returns the spec's defaults: 10000 max writes,
// fsync on commit.
func DefaultWriteBatchOptions() WriteBatchOptions {
	return WriteBatchOptions{
		MaxBatchNum: 10000,
		SyncWrites:  true,
	}
}

// IteratorOptions configures an Iterator at construction time.
type IteratorOptions struct {
	// Prefix, when non-empty, restricts iteration to keys starting with it.
	Prefix []byte
	// Reverse iterates descending instead of ascending.
	Reverse bool
}

// DefaultIteratorOptions iterates every key, ascending.
func DefaultIteratorOptions() IteratorOptions {
	return IteratorOptions{}
}
