package manifest

import (
	"bufio"
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
)

// ListEntry references one manifest file and the aggregated partition
// statistics the scan planner's step 2 filters on ("Filter manifest files
// by partition-level aggregated statistics", spec.md §4.4) without opening
// it, the same role pebble's version_set keeps sstable-level bounds for.
type ListEntry struct {
	ManifestFileName string
	NumAddedFiles    int64
	NumDeletedFiles  int64
	PartitionStats   []byte // opaque, min/max per partition column
}

// EncodeList serialises a manifest list as varint/length-prefixed fields,
// snappy-compressed like EncodeFile's output; unlike EncodeFile, no tag byte
// precedes each entry.
func EncodeList(entries []ListEntry) ([]byte, error) {
	var raw bytes.Buffer
	w := bufio.NewWriter(&raw)
	for _, e := range entries {
		writeString(w, e.ManifestFileName)
		writeVarint(w, e.NumAddedFiles)
		writeVarint(w, e.NumDeletedFiles)
		writeBytes(w, e.PartitionStats)
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw.Bytes()), nil
}

// DecodeList reverses EncodeList.
func DecodeList(compressed []byte) ([]ListEntry, error) {
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt manifest list: snappy decode")
	}
	r := bufio.NewReader(bytes.NewReader(raw))
	var out []ListEntry
	for {
		name, err := readString(r)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		var e ListEntry
		e.ManifestFileName = name
		if e.NumAddedFiles, err = readVarint(r); err != nil {
			return nil, err
		}
		if e.NumDeletedFiles, err = readVarint(r); err != nil {
			return nil, err
		}
		if e.PartitionStats, err = readBytes(r); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
