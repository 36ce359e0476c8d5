// Package errors defines the sentinel error values returned by the emberdb
// storage core. Callers should compare against these with errors.Is.
package errors

import "errors"

// Input errors: the caller passed something the engine will never accept.
var (
	ErrKeyIsEmpty         = errors.New("emberdb: key is empty")
	ErrDirPathIsEmpty     = errors.New("emberdb: database directory path is empty")
	ErrDataFileSizeTooSmall = errors.New("emberdb: data file size must be greater than zero")
	ErrInvalidMergeRatio  = errors.New("emberdb: data file merge ratio must be between 0 and 1")
	ErrExceedMaxBatchNum  = errors.New("emberdb: write batch exceeds max batch size")
)

// State errors: the request was well formed but the engine's current state
// can't satisfy it.
var (
	ErrKeyNotFound           = errors.New("emberdb: key not found")
	ErrDataFileNotFound      = errors.New("emberdb: data file not found")
	ErrDatabaseIsUsing       = errors.New("emberdb: the database directory is in use by another process")
	ErrUnableToUseWriteBatch = errors.New("emberdb: write batch unavailable, seq-no file missing for the B+ tree index")
	ErrMergeInProgress       = errors.New("emberdb: a merge is already in progress")
	ErrMergeRatioUnreached   = errors.New("emberdb: reclaimable ratio has not reached the merge threshold")
	ErrMergeNoEnoughSpace    = errors.New("emberdb: not enough free disk space to merge")
)

// I/O errors.
var (
	ErrFailedReadFromDataFile      = errors.New("emberdb: failed to read from data file")
	ErrFailedWriteToDataFile       = errors.New("emberdb: failed to write to data file")
	ErrFailedSyncDataFile          = errors.New("emberdb: failed to sync data file")
	ErrFailedToOpenDataFile        = errors.New("emberdb: failed to open data file")
	ErrFailedToCreateDatabaseDir   = errors.New("emberdb: failed to create database directory")
	ErrFailedToReadDatabaseDir     = errors.New("emberdb: failed to read database directory")
	ErrFailedToCopyDirectory       = errors.New("emberdb: failed to copy directory")
	ErrMMapWriteUnsupported        = errors.New("emberdb: the memory-mapped IO manager is read-only")
)

// Integrity errors.
var (
	ErrDataDirectoryCorrupted = errors.New("emberdb: data directory corrupted, a file name is not a valid file id")
	ErrInvalidLogRecordCrc    = errors.New("emberdb: invalid crc, log record may be corrupted")
	// ErrDataFileEOF is an internal signal, not surfaced past recovery/merge
	// loops: it means "stop scanning this file", not "something failed".
	ErrDataFileEOF = errors.New("emberdb: reached end of data file")
)

// Logic errors.
var (
	ErrIndexUpdateFailed = errors.New("emberdb: failed to update in-memory index")
)
