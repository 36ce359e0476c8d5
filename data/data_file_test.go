package data

import (
	"path/filepath"
	"testing"

	emberErrors "github.com/emberdb/emberdb/errors"
	"github.com/emberdb/emberdb/fio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDataFile_NamePadding(t *testing.T) {
	dir := t.TempDir()
	df, err := OpenDataFile(dir, 3, fio.StandardFIO)
	require.NoError(t, err)
	defer df.Close()

	assert.Equal(t, filepath.Join(dir, "000000003.data"), GetDataFileName(dir, 3))
}

func TestDataFile_WriteAndReadLogRecord(t *testing.T) {
	dir := t.TempDir()
	df, err := OpenDataFile(dir, 1, fio.StandardFIO)
	require.NoError(t, err)
	defer df.Close()

	rec := &LogRecord{Key: []byte("key-1"), Value: []byte("value-1"), Type: LogRecordNormal}
	encoded, size := EncodeLogRecord(rec)

	require.NoError(t, df.Write(encoded))
	assert.EqualValues(t, size, df.WriteOffset)

	got, readSize, err := df.ReadLogRecord(0)
	require.NoError(t, err)
	assert.Equal(t, rec.Key, got.Key)
	assert.Equal(t, rec.Value, got.Value)
	assert.Equal(t, size, readSize)
}

func TestDataFile_ReadLogRecord_CorruptedCRC(t *testing.T) {
	dir := t.TempDir()
	df, err := OpenDataFile(dir, 1, fio.StandardFIO)
	require.NoError(t, err)
	defer df.Close()

	rec := &LogRecord{Key: []byte("key-1"), Value: []byte("value-1"), Type: LogRecordNormal}
	encoded, _ := EncodeLogRecord(rec)
	encoded[len(encoded)-1] ^= 0xFF // flip the bits of the stored crc's last byte
	require.NoError(t, df.Write(encoded))

	_, _, err = df.ReadLogRecord(0)
	assert.ErrorIs(t, err, emberErrors.ErrInvalidLogRecordCrc)
}

func TestDataFile_ReadLogRecord_EOF(t *testing.T) {
	dir := t.TempDir()
	df, err := OpenDataFile(dir, 1, fio.StandardFIO)
	require.NoError(t, err)
	defer df.Close()

	_, _, err = df.ReadLogRecord(0)
	assert.ErrorIs(t, err, emberErrors.ErrDataFileEOF)
}

func TestDataFile_WriteHintRecord(t *testing.T) {
	dir := t.TempDir()
	hintFile, err := OpenHintFile(dir)
	require.NoError(t, err)
	defer hintFile.Close()

	pos := &LogRecordPos{Fid: 1, Offset: 10, Size: 20}
	require.NoError(t, hintFile.WriteHintRecord([]byte("key-1"), pos))

	rec, _, err := hintFile.ReadLogRecord(0)
	require.NoError(t, err)
	assert.Equal(t, []byte("key-1"), rec.Key)

	decoded := DecodeLogRecordPos(rec.Value)
	assert.Equal(t, pos.Fid, decoded.Fid)
	assert.Equal(t, pos.Offset, decoded.Offset)
	assert.Equal(t, pos.Size, decoded.Size)
}
