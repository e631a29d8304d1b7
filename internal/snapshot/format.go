// Package snapshot implements persistence (spec §4.J): a single binary
// file capturing the file store, trigram postings, symbol table, and
// dependency graph, written atomically and validated against the
// engine's version and configuration on load.
//
// Grounded on the teacher's internal/core/file_content_store.go for the
// general persistence posture (xxhash fingerprinting, single-file
// binary blob) and on sourcegraph-zoekt's shard-file conventions
// (length-prefixed sections, a trailing checksum) for the concrete wire
// layout, since the teacher itself has no save/load path of its own —
// it rebuilds its index from scratch on every process start.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// magic identifies an fcsx snapshot file; fmtVersion gates wire-format
// compatibility independent of engineVersion, which gates semantic
// compatibility (symbol kinds, ranking behavior) between the file and
// the running binary.
const (
	magic      = "FCSX"
	fmtVersion = uint32(1)
)

// fingerprintSize is fixed at 32 bytes per spec §6's config_fingerprint
// field. The fingerprint itself is a single xxhash.Sum64 (8 bytes) of
// the configuration that affects what gets indexed; the remaining 24
// bytes are reserved and zero-filled, keeping the field width stable if
// a stronger hash ever replaces xxhash without changing every other
// offset in the file.
const fingerprintSize = 32

// errTruncated is a dedicated sentinel for truncated-file reads,
// never surfaced across package boundaries as a bare error — reader.go
// wraps every decode failure in errx.SnapshotIncompatible.
type errTruncated struct{ want, have int }

func (e errTruncated) Error() string { return "snapshot: truncated read" }

// encoder appends length-prefixed and fixed-width fields to an
// in-memory buffer; the whole body is assembled before anything is
// written to disk so the footer's crc32 and total_length can be
// computed over a complete, immutable byte slice.
type encoder struct {
	buf bytes.Buffer
}

func (e *encoder) u8(v uint8)   { e.buf.WriteByte(v) }
func (e *encoder) u32(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); e.buf.Write(b[:]) }
func (e *encoder) u64(v uint64) { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); e.buf.Write(b[:]) }
func (e *encoder) i64(v int64)  { e.u64(uint64(v)) }

func (e *encoder) bytesField(b []byte) {
	e.u32(uint32(len(b)))
	e.buf.Write(b)
}

func (e *encoder) str(s string) { e.bytesField([]byte(s)) }

func (e *encoder) raw(b []byte) { e.buf.Write(b) }

// decoder walks a byte slice sequentially, returning errTruncated the
// moment a read would run past the end.
type decoder struct {
	data []byte
	pos  int
}

func newDecoder(data []byte) *decoder { return &decoder{data: data} }

func (d *decoder) need(n int) error {
	if d.pos+n > len(d.data) {
		return errTruncated{want: n, have: len(d.data) - d.pos}
	}
	return nil
}

func (d *decoder) u8() (uint8, error) {
	if err := d.need(1); err != nil {
		return 0, err
	}
	v := d.data[d.pos]
	d.pos++
	return v, nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) u64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(d.data[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *decoder) i64() (int64, error) {
	v, err := d.u64()
	return int64(v), err
}

func (d *decoder) bytesField() ([]byte, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	v := d.data[d.pos : d.pos+int(n)]
	d.pos += int(n)
	return v, nil
}

func (d *decoder) str() (string, error) {
	b, err := d.bytesField()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *decoder) rawN(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	v := d.data[d.pos : d.pos+n]
	d.pos += n
	return v, nil
}

// checksum computes the crc32 (IEEE) of body, matching the footer
// field the writer emits.
func checksum(body []byte) uint32 { return crc32.ChecksumIEEE(body) }
