package data

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLogRecord_NormalRecord(t *testing.T) {
	rec := &LogRecord{
		Key:   []byte("emberdb-key"),
		Value: []byte("emberdb-value"),
		Type:  LogRecordNormal,
	}
	encoded, size := EncodeLogRecord(rec)
	require.NotNil(t, encoded)
	assert.Greater(t, size, int64(5))
}

func TestEncodeLogRecord_EmptyValue(t *testing.T) {
	rec := &LogRecord{
		Key:  []byte("emberdb-key"),
		Type: LogRecordDeleted,
	}
	encoded, size := EncodeLogRecord(rec)
	require.NotNil(t, encoded)
	assert.EqualValues(t, len(encoded), size)
}

func TestLogRecordPos_EncodeDecode(t *testing.T) {
	pos := &LogRecordPos{Fid: 7, Offset: 128, Size: 64}
	encoded := pos.Encode()
	decoded := DecodeLogRecordPos(encoded)
	assert.Equal(t, pos.Fid, decoded.Fid)
	assert.Equal(t, pos.Offset, decoded.Offset)
	assert.Equal(t, pos.Size, decoded.Size)
}

func TestGetLogRecordCRC_DetectsCorruption(t *testing.T) {
	rec := &LogRecord{Key: []byte("k"), Value: []byte("v"), Type: LogRecordNormal}
	encoded, _ := EncodeLogRecord(rec)

	header, headerSize := decodeLogRecordHeader(encoded)
	require.NotNil(t, header)

	storedCRC := binary.LittleEndian.Uint32(encoded[len(encoded)-4:])
	goodCRC := getLogRecordCRC(rec, encoded[:headerSize])
	assert.Equal(t, storedCRC, goodCRC)

	rec.Value = []byte("tampered")
	badCRC := getLogRecordCRC(rec, encoded[:headerSize])
	assert.NotEqual(t, storedCRC, badCRC)
}
