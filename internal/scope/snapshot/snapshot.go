package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dsjohal14/docsearch/internal/scope/index"
)

// Write serializes tables, in order, as a framed record stream.
// Records are written as given; merging happens when the tables are loaded.
func Write(w io.Writer, tables []index.Table) error {
	bw := bufio.NewWriter(w)
	var seq uint64

	emit := func(t RecordType, payload []byte) error {
		rec, err := NewRecord(t, seq, payload)
		if err != nil {
			return fmt.Errorf("record %d: %w", seq, err)
		}
		if _, err := bw.Write(rec.Encode()); err != nil {
			return fmt.Errorf("failed to write record %d: %w", seq, err)
		}
		seq++
		return nil
	}

	for _, t := range tables {
		if err := emit(RecordTypeTable, []byte(t.Name)); err != nil {
			return err
		}
		for _, rec := range t.Records {
			payload, err := EncodeTokenPayload(rec)
			if err != nil {
				return fmt.Errorf("table %s: %w", t.Name, err)
			}
			if err := emit(RecordTypeToken, payload); err != nil {
				return err
			}
		}
	}

	if err := emit(RecordTypeEnd, EncodeEndPayload(seq)); err != nil {
		return err
	}
	return bw.Flush()
}

// Read parses a record stream written by Write. A missing trailer, a gap in
// sequence numbers or a checksum failure is an error.
func Read(r io.Reader) ([]index.Table, error) {
	br := bufio.NewReader(r)
	var (
		tables []index.Table
		seq    uint64
	)

	for {
		rec, err := ReadRecord(br)
		if err == io.EOF {
			return nil, errors.New("snapshot truncated: missing end record")
		}
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", seq, err)
		}
		if rec.Seq != seq {
			return nil, fmt.Errorf("record %d: out of sequence (got %d)", seq, rec.Seq)
		}

		switch rec.Type {
		case RecordTypeTable:
			tables = append(tables, index.Table{Name: string(rec.Payload)})
		case RecordTypeToken:
			if len(tables) == 0 {
				return nil, fmt.Errorf("record %d: token before any table", seq)
			}
			tok, err := DecodeTokenPayload(rec.Payload)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", seq, err)
			}
			cur := &tables[len(tables)-1]
			cur.Records = append(cur.Records, tok)
		case RecordTypeEnd:
			count, err := DecodeEndPayload(rec.Payload)
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", seq, err)
			}
			if count != seq {
				return nil, fmt.Errorf("end record counts %d records, read %d", count, seq)
			}
			if _, err := br.Peek(1); err != io.EOF {
				return nil, errors.New("trailing data after end record")
			}
			return tables, nil
		default:
			return nil, fmt.Errorf("record %d: unknown type %v", seq, rec.Type)
		}
		seq++
	}
}

// WriteFile writes the snapshot to path through a temp file and rename
func WriteFile(path string, tables []index.Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Write(tmp, tables); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}

// ReadFile reads a snapshot from path
func ReadFile(path string) ([]index.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	tables, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return tables, nil
}
