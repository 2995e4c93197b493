// Package snapshot stores compiled search tables as CRC32-framed records.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/dsjohal14/docsearch/internal/scope/index"
)

// Record Format (24-byte header + payload + 4-byte payload CRC):
// ┌─────────────────────────────────────────────────────────────┐
// │ Magic (4B)  │ Type (1B) │ Flags (1B) │ Version (2B)         │
// ├─────────────────────────────────────────────────────────────┤
// │ Seq (8B, uint64) - position of the record in the file       │
// ├─────────────────────────────────────────────────────────────┤
// │ PayloadLen (4B, uint32)                                     │
// ├─────────────────────────────────────────────────────────────┤
// │ HeaderCRC32 (4B) - checksum of bytes [0:20]                 │
// ├─────────────────────────────────────────────────────────────┤
// │ Payload (variable)                                          │
// ├─────────────────────────────────────────────────────────────┤
// │ PayloadCRC32 (4B) - checksum of payload                     │
// └─────────────────────────────────────────────────────────────┘

const (
	// MagicBytes identifies a snapshot record ("DSNP")
	MagicBytes uint32 = 0x44534E50

	// Version is the payload layout version written by this package
	Version uint16 = 1

	// HeaderSize is the fixed size of the record header
	HeaderSize = 24

	// MaxPayloadSize limits individual record size (10MB)
	MaxPayloadSize = 10 * 1024 * 1024

	// MaxTokenLen limits token length
	MaxTokenLen = 65535
)

// RecordType identifies the type of snapshot record
type RecordType uint8

const (
	RecordTypeTable RecordType = 0x01 // Starts a table, payload is its name
	RecordTypeToken RecordType = 0x02 // One token and its matches
	RecordTypeEnd   RecordType = 0x03 // Trailer, payload is the record count
)

func (r RecordType) String() string {
	switch r {
	case RecordTypeTable:
		return "TABLE"
	case RecordTypeToken:
		return "TOKEN"
	case RecordTypeEnd:
		return "END"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", r)
	}
}

// Record is one framed snapshot record
type Record struct {
	Type       RecordType
	Flags      uint8
	Version    uint16
	Seq        uint64
	PayloadLen uint32
	HeaderCRC  uint32
	Payload    []byte
	PayloadCRC uint32
}

// NewRecord creates a record with checksums filled in
func NewRecord(recType RecordType, seq uint64, payload []byte) (*Record, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d > %d", len(payload), MaxPayloadSize)
	}

	rec := &Record{
		Type:       recType,
		Version:    Version,
		Seq:        seq,
		PayloadLen: uint32(len(payload)),
		Payload:    payload,
	}
	rec.HeaderCRC = crc32.ChecksumIEEE(rec.headerBytes())
	rec.PayloadCRC = crc32.ChecksumIEEE(payload)
	return rec, nil
}

// headerBytes returns header bytes [0:20], the range covered by HeaderCRC
func (r *Record) headerBytes() []byte {
	buf := make([]byte, 20)
	binary.LittleEndian.PutUint32(buf[0:4], MagicBytes)
	buf[4] = byte(r.Type)
	buf[5] = r.Flags
	binary.LittleEndian.PutUint16(buf[6:8], r.Version)
	binary.LittleEndian.PutUint64(buf[8:16], r.Seq)
	binary.LittleEndian.PutUint32(buf[16:20], r.PayloadLen)
	return buf
}

// Encode serializes the record to bytes
func (r *Record) Encode() []byte {
	buf := make([]byte, HeaderSize+len(r.Payload)+4)
	copy(buf[0:20], r.headerBytes())
	binary.LittleEndian.PutUint32(buf[20:24], r.HeaderCRC)
	copy(buf[HeaderSize:], r.Payload)
	binary.LittleEndian.PutUint32(buf[HeaderSize+len(r.Payload):], r.PayloadCRC)
	return buf
}

// ReadRecord reads and verifies the next record from r.
// It returns io.EOF only when r is exhausted exactly at a record boundary.
func ReadRecord(r io.Reader) (*Record, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	if magic := binary.LittleEndian.Uint32(header[0:4]); magic != MagicBytes {
		return nil, fmt.Errorf("invalid magic: expected 0x%X, got 0x%X", MagicBytes, magic)
	}

	rec := &Record{
		Type:       RecordType(header[4]),
		Flags:      header[5],
		Version:    binary.LittleEndian.Uint16(header[6:8]),
		Seq:        binary.LittleEndian.Uint64(header[8:16]),
		PayloadLen: binary.LittleEndian.Uint32(header[16:20]),
		HeaderCRC:  binary.LittleEndian.Uint32(header[20:24]),
	}

	if expected := crc32.ChecksumIEEE(header[0:20]); rec.HeaderCRC != expected {
		return nil, fmt.Errorf("header CRC mismatch: expected 0x%X, got 0x%X", expected, rec.HeaderCRC)
	}
	if rec.Version != Version {
		return nil, fmt.Errorf("unsupported snapshot version %d", rec.Version)
	}
	if rec.PayloadLen > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d > %d", rec.PayloadLen, MaxPayloadSize)
	}

	body := make([]byte, int(rec.PayloadLen)+4)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	rec.Payload = body[:rec.PayloadLen]
	rec.PayloadCRC = binary.LittleEndian.Uint32(body[rec.PayloadLen:])

	if expected := crc32.ChecksumIEEE(rec.Payload); rec.PayloadCRC != expected {
		return nil, fmt.Errorf("payload CRC mismatch: expected 0x%X, got 0x%X", expected, rec.PayloadCRC)
	}
	return rec, nil
}

// EncodeTokenPayload serializes a token record
// Format:
// - Token Length (2B) + Token
// - Match Count (4B)
// - per match: Flags (1B), then Label, Scope, Target each as Length (4B) + bytes
func EncodeTokenPayload(rec index.Record) ([]byte, error) {
	if len(rec.Token) > MaxTokenLen {
		return nil, fmt.Errorf("token too long: %d > %d", len(rec.Token), MaxTokenLen)
	}

	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, uint16(len(rec.Token)))
	buf.WriteString(rec.Token)
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(rec.Matches)))

	for _, m := range rec.Matches {
		var flags uint8
		if m.External {
			flags = 1
		}
		buf.WriteByte(flags)
		for _, s := range []string{m.Label, m.Scope, m.Target} {
			_ = binary.Write(buf, binary.LittleEndian, uint32(len(s)))
			buf.WriteString(s)
		}
	}
	return buf.Bytes(), nil
}

// DecodeTokenPayload deserializes a token record
func DecodeTokenPayload(data []byte) (index.Record, error) {
	r := bytes.NewReader(data)

	var tokLen uint16
	if err := binary.Read(r, binary.LittleEndian, &tokLen); err != nil {
		return index.Record{}, fmt.Errorf("failed to read token length: %w", err)
	}
	tok, err := readBytes(r, int(tokLen))
	if err != nil {
		return index.Record{}, fmt.Errorf("failed to read token: %w", err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return index.Record{}, fmt.Errorf("failed to read match count: %w", err)
	}
	if int64(count) > int64(r.Len()) {
		return index.Record{}, fmt.Errorf("match count %d exceeds payload", count)
	}

	rec := index.Record{Token: string(tok), Matches: make([]index.Match, 0, count)}
	for i := uint32(0); i < count; i++ {
		flags, err := r.ReadByte()
		if err != nil {
			return index.Record{}, fmt.Errorf("match %d: failed to read flags: %w", i, err)
		}
		var fields [3]string
		for j := range fields {
			var n uint32
			if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
				return index.Record{}, fmt.Errorf("match %d: failed to read field length: %w", i, err)
			}
			b, err := readBytes(r, int(n))
			if err != nil {
				return index.Record{}, fmt.Errorf("match %d: failed to read field: %w", i, err)
			}
			fields[j] = string(b)
		}
		rec.Matches = append(rec.Matches, index.Match{
			Label:    fields[0],
			Scope:    fields[1],
			Target:   fields[2],
			External: flags&1 != 0,
		})
	}

	if r.Len() != 0 {
		return index.Record{}, fmt.Errorf("%d trailing bytes in token payload", r.Len())
	}
	return rec, nil
}

func readBytes(r *bytes.Reader, n int) ([]byte, error) {
	if n > r.Len() {
		return nil, fmt.Errorf("length %d exceeds remaining %d bytes", n, r.Len())
	}
	b := make([]byte, n)
	_, err := io.ReadFull(r, b)
	return b, err
}

// EncodeEndPayload serializes the trailer
func EncodeEndPayload(records uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, records)
	return buf
}

// DecodeEndPayload deserializes the trailer
func DecodeEndPayload(data []byte) (uint64, error) {
	if len(data) < 8 {
		return 0, fmt.Errorf("end payload too short: %d", len(data))
	}
	return binary.LittleEndian.Uint64(data), nil
}
