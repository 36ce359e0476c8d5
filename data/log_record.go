// Package data implements the on-disk record framing and segment files
// (DataFile) the emberdb storage core appends to and replays from.
package data

import (
	"encoding/binary"
	"hash/crc32"
)

// LogRecordType distinguishes a live write from a tombstone from the
// sentinel that closes out a write batch.
type LogRecordType = byte

const (
	LogRecordNormal LogRecordType = iota
	LogRecordDeleted
	LogRecordTxnFinished
)

// TxnFinKey is the reserved user key persisted on a batch's terminator
// record, behind the batch's seq-no prefix. Recovery tells the terminator
// apart from a user record with the same key by its record type
// (LogRecordTxnFinished), not by the key.
const TxnFinKey = "txn-fin"

// maxLogRecordHeaderSize bounds the header: 1 byte type + two
// varint-encoded uint32 lengths (5 bytes max each). The crc trails the
// key and value on disk rather than leading them, so it isn't part of
// this header.
const maxLogRecordHeaderSize = 1 + binary.MaxVarintLen32*2

// LogRecord is the unit persisted to a data file.
type LogRecord struct {
	Key   []byte
	Value []byte
	Type  LogRecordType
}

// LogRecordPos is the in-memory handle the index maps a key to.
type LogRecordPos struct {
	Fid    uint32
	Offset int64
	Size   uint32
}

// Encode packs pos into a compact varint blob, used for hint-file records
// and B+ tree index values.
func (p *LogRecordPos) Encode() []byte {
	buf := make([]byte, binary.MaxVarintLen32*2+binary.MaxVarintLen64)
	var idx int
	idx += binary.PutVarint(buf[idx:], int64(p.Fid))
	idx += binary.PutVarint(buf[idx:], p.Offset)
	idx += binary.PutVarint(buf[idx:], int64(p.Size))
	return buf[:idx]
}

// DecodeLogRecordPos reverses Encode.
func DecodeLogRecordPos(buf []byte) *LogRecordPos {
	var idx int
	fid, n := binary.Varint(buf[idx:])
	idx += n
	offset, n := binary.Varint(buf[idx:])
	idx += n
	size, _ := binary.Varint(buf[idx:])
	return &LogRecordPos{
		Fid:    uint32(fid),
		Offset: offset,
		Size:   uint32(size),
	}
}

// TransactionRecord pairs a staged record with the position it was written
// to, used while replaying an as-yet-unterminated batch during recovery.
type TransactionRecord struct {
	Record *LogRecord
	Pos    *LogRecordPos
}

// logRecordHeader is the decoded form of the type-plus-varint header that
// precedes every record's key and value on disk. The crc trails the
// record and is read and checked separately (see DataFile.ReadLogRecord).
type logRecordHeader struct {
	rtype     LogRecordType
	keySize   uint32
	valueSize uint32
}

// EncodeLogRecord serializes rec per the on-disk framing:
//
//	+------+-------------+-------------+-----+-------+-----+
//	| type | keylen (vi) | valuelen(vi)| key | value | crc |
//	| (1)  |             |             |     |       | (4) |
//	+------+-------------+-------------+-----+-------+-----+
//
// CRC32 (IEEE) is computed over every byte preceding it.
func EncodeLogRecord(rec *LogRecord) ([]byte, int64) {
	header := make([]byte, maxLogRecordHeaderSize)
	header[0] = rec.Type
	idx := 1
	idx += binary.PutVarint(header[idx:], int64(len(rec.Key)))
	idx += binary.PutVarint(header[idx:], int64(len(rec.Value)))

	size := idx + len(rec.Key) + len(rec.Value) + 4
	encoded := make([]byte, size)
	copy(encoded[:idx], header[:idx])
	copy(encoded[idx:], rec.Key)
	copy(encoded[idx+len(rec.Key):], rec.Value)

	crc := crc32.ChecksumIEEE(encoded[:size-4])
	binary.LittleEndian.PutUint32(encoded[size-4:], crc)

	return encoded, int64(size)
}

// decodeLogRecordHeader parses the 1-byte type and the two varint lengths
// from the front of buf. It returns nil if buf is too short to contain
// even the type byte.
func decodeLogRecordHeader(buf []byte) (*logRecordHeader, int64) {
	if len(buf) < 1 {
		return nil, 0
	}

	h := &logRecordHeader{rtype: buf[0]}

	idx := 1
	keySize, n := binary.Varint(buf[idx:])
	h.keySize = uint32(keySize)
	idx += n

	valueSize, n := binary.Varint(buf[idx:])
	h.valueSize = uint32(valueSize)
	idx += n

	return h, int64(idx)
}

// getLogRecordCRC recomputes the checksum over the record's header bytes
// plus key and value (the crc field itself trails all of this on disk).
func getLogRecordCRC(rec *LogRecord, header []byte) uint32 {
	crc := crc32.ChecksumIEEE(header)
	crc = crc32.Update(crc, crc32.IEEETable, rec.Key)
	crc = crc32.Update(crc, crc32.IEEETable, rec.Value)
	return crc
}
