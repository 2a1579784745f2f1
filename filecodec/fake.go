package filecodec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/siyangzeng/paimon-go/internal/base"
	"github.com/siyangzeng/paimon-go/internal/manifest"
)

// FakeCodec is a length-prefixed, uncompressed stand-in for the real
// columnar file format this core does not implement (SPEC_FULL.md's "File
// Format Codec" module is explicitly opaque/external). Used only by this
// module's own tests so the LSM writer and scan planner can be exercised
// end to end without depending on a real columnar library the rest of the
// module never imports. Each row is written as a varint-length-prefixed
// key, a varint trailer and a varint-length-prefixed value, the same varint
// framing `internal/manifest/encode.go` uses, without its per-entry tag
// byte or snappy compression.
type FakeCodec struct {
	FS FS
}

func (c *FakeCodec) WriteFile(name string, rows []Row) (manifest.FileMeta, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	for _, row := range rows {
		writeBytes(w, row.Key.UserKey)
		writeVarint(w, int64(row.Key.Trailer))
		writeBytes(w, row.Value)
	}
	if err := w.Flush(); err != nil {
		return manifest.FileMeta{}, err
	}
	if err := c.FS.WriteFile(name, buf.Bytes()); err != nil {
		return manifest.FileMeta{}, err
	}

	keyStats, valueStats := c.Stats(rows)
	meta := manifest.FileMeta{
		FileName:     name,
		FileSize:     int64(buf.Len()),
		RowCount:     int64(len(rows)),
		KeyStats:     keyStats,
		ValueStats:   valueStats,
		CreationTime: time.Unix(0, 0).UTC(),
	}
	if len(rows) > 0 {
		meta.MinKey = rows[0].Key.UserKey
		meta.MaxKey = rows[0].Key.UserKey
		meta.MinSequenceNumber = rows[0].Key.SeqNum()
		meta.MaxSequenceNumber = rows[0].Key.SeqNum()
		for _, row := range rows[1:] {
			if base.DefaultCompare(row.Key.UserKey, meta.MinKey) < 0 {
				meta.MinKey = row.Key.UserKey
			}
			if base.DefaultCompare(row.Key.UserKey, meta.MaxKey) > 0 {
				meta.MaxKey = row.Key.UserKey
			}
			if row.Key.SeqNum() < meta.MinSequenceNumber {
				meta.MinSequenceNumber = row.Key.SeqNum()
			}
			if row.Key.SeqNum() > meta.MaxSequenceNumber {
				meta.MaxSequenceNumber = row.Key.SeqNum()
			}
		}
	}
	return meta, nil
}

func (c *FakeCodec) ReadFile(name string) ([]Row, error) {
	data, err := c.FS.ReadFile(name)
	if err != nil {
		return nil, err
	}
	r := bufio.NewReader(bytes.NewReader(data))
	var rows []Row
	for {
		userKey, err := readBytes(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		trailer, err := readVarint(r)
		if err != nil {
			return nil, err
		}
		value, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		rows = append(rows, Row{
			Key:   base.InternalKey{UserKey: userKey, Trailer: base.Trailer(trailer)},
			Value: value,
		})
	}
	return rows, nil
}

// Stats computes min/max-key byte stats for keyStats and leaves valueStats
// empty: the fake codec has no column schema to aggregate per-column
// value bounds from.
func (c *FakeCodec) Stats(rows []Row) (keyStats, valueStats []byte) {
	if len(rows) == 0 {
		return nil, nil
	}
	minKey, maxKey := rows[0].Key.UserKey, rows[0].Key.UserKey
	for _, row := range rows[1:] {
		if base.DefaultCompare(row.Key.UserKey, minKey) < 0 {
			minKey = row.Key.UserKey
		}
		if base.DefaultCompare(row.Key.UserKey, maxKey) > 0 {
			maxKey = row.Key.UserKey
		}
	}
	var buf bytes.Buffer
	writeBytesPlain(&buf, minKey)
	writeBytesPlain(&buf, maxKey)
	return buf.Bytes(), nil
}

func writeVarint(w *bufio.Writer, v int64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	_, _ = w.Write(tmp[:n])
}

func readVarint(r *bufio.Reader) (int64, error) {
	return binary.ReadVarint(r)
}

func writeBytes(w *bufio.Writer, b []byte) {
	writeVarint(w, int64(len(b)))
	_, _ = w.Write(b)
}

func writeBytesPlain(buf *bytes.Buffer, b []byte) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], int64(len(b)))
	buf.Write(tmp[:n])
	buf.Write(b)
}

func readBytes(r *bufio.Reader) ([]byte, error) {
	n, err := readVarint(r)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "corrupt fake codec file")
	}
	return buf, nil
}
