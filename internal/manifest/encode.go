package manifest

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/siyangzeng/paimon-go/internal/base"
)

// Manifest files are written as a snappy-compressed stream of tag-prefixed
// entries, the same general shape as pebble's VersionEdit disk format
// (internal/manifest/version_edit.go), generalised to spec.md §6's entry
// schema. Compression is grounded on sstable/compression.go's use of
// golang/snappy for block payloads; manifest files are just another kind of
// payload blob written once and read many times.

const (
	tagEntry byte = 1
)

// EncodeFile writes entries as a single snappy-compressed manifest file
// payload.
func EncodeFile(entries []Entry) ([]byte, error) {
	var raw bytes.Buffer
	w := bufio.NewWriter(&raw)
	for i := range entries {
		if err := encodeEntry(w, &entries[i]); err != nil {
			return nil, err
		}
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw.Bytes()), nil
}

// DecodeFile reverses EncodeFile.
func DecodeFile(compressed []byte) ([]Entry, error) {
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt manifest: snappy decode")
	}
	r := bufio.NewReader(bytes.NewReader(raw))
	var entries []Entry
	for {
		e, err := decodeEntry(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, nil
}

func encodeEntry(w *bufio.Writer, e *Entry) error {
	if err := w.WriteByte(tagEntry); err != nil {
		return err
	}
	if err := w.WriteByte(byte(e.Kind)); err != nil {
		return err
	}
	writeBytes(w, e.Partition)
	writeVarint(w, int64(e.Bucket))
	writeVarint(w, int64(e.TotalBuckets))
	writeString(w, e.File.FileName)
	writeVarint(w, e.File.FileSize)
	writeVarint(w, e.File.RowCount)
	writeBytes(w, e.File.MinKey)
	writeBytes(w, e.File.MaxKey)
	writeBytes(w, e.File.KeyStats)
	writeBytes(w, e.File.ValueStats)
	writeVarint(w, int64(e.File.MinSequenceNumber))
	writeVarint(w, int64(e.File.MaxSequenceNumber))
	writeVarint(w, e.File.SchemaID)
	writeVarint(w, int64(e.File.Level))
	writeVarint(w, int64(len(e.File.ExtraFiles)))
	for _, extra := range e.File.ExtraFiles {
		writeString(w, extra)
	}
	writeVarint(w, e.File.CreationTime.UnixNano())
	return nil
}

func decodeEntry(r *bufio.Reader) (*Entry, error) {
	tag, err := r.ReadByte()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, err
	}
	if tag != tagEntry {
		return nil, errors.Newf("corrupt manifest: unknown tag %d", tag)
	}
	kindByte, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, "corrupt manifest")
	}
	e := &Entry{Kind: EntryKind(kindByte)}
	if e.Partition, err = readBytes(r); err != nil {
		return nil, err
	}
	var v int64
	if v, err = readVarint(r); err != nil {
		return nil, err
	}
	e.Bucket = int32(v)
	if v, err = readVarint(r); err != nil {
		return nil, err
	}
	e.TotalBuckets = int32(v)
	if e.File.FileName, err = readString(r); err != nil {
		return nil, err
	}
	if e.File.FileSize, err = readVarint(r); err != nil {
		return nil, err
	}
	if e.File.RowCount, err = readVarint(r); err != nil {
		return nil, err
	}
	if e.File.MinKey, err = readBytes(r); err != nil {
		return nil, err
	}
	if e.File.MaxKey, err = readBytes(r); err != nil {
		return nil, err
	}
	if e.File.KeyStats, err = readBytes(r); err != nil {
		return nil, err
	}
	if e.File.ValueStats, err = readBytes(r); err != nil {
		return nil, err
	}
	if v, err = readVarint(r); err != nil {
		return nil, err
	}
	e.File.MinSequenceNumber = seqNumFromInt64(v)
	if v, err = readVarint(r); err != nil {
		return nil, err
	}
	e.File.MaxSequenceNumber = seqNumFromInt64(v)
	if e.File.SchemaID, err = readVarint(r); err != nil {
		return nil, err
	}
	if v, err = readVarint(r); err != nil {
		return nil, err
	}
	e.File.Level = int32(v)
	var extraCount int64
	if extraCount, err = readVarint(r); err != nil {
		return nil, err
	}
	for i := int64(0); i < extraCount; i++ {
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		e.File.ExtraFiles = append(e.File.ExtraFiles, s)
	}
	var nanos int64
	if nanos, err = readVarint(r); err != nil {
		return nil, err
	}
	e.File.CreationTime = time.Unix(0, nanos).UTC()
	return e, nil
}

func writeVarint(w *bufio.Writer, v int64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutVarint(buf[:], v)
	_, _ = w.Write(buf[:n])
}

func readVarint(r *bufio.Reader) (int64, error) {
	return binary.ReadVarint(r)
}

func writeBytes(w *bufio.Writer, b []byte) {
	writeVarint(w, int64(len(b)))
	_, _ = w.Write(b)
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
		return nil, err
	}
	return buf, nil
}

func writeString(w *bufio.Writer, s string) {
	writeBytes(w, []byte(s))
}

func readString(r *bufio.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

func seqNumFromInt64(v int64) base.SeqNum {
	return base.SeqNum(v)
}
