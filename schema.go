package paimon

import "encoding/binary"

// DataType is a minimal column type tag. The engine itself is
// schema-agnostic for anything beyond ordering and null-handling; actual
// value encoding/decoding is the file codec's job (spec.md §1, treated as
// an opaque external collaborator).
type DataType uint8

const (
	TypeInt32 DataType = iota
	TypeInt64
	TypeFloat64
	TypeString
	TypeBytes
	TypeBool
	TypeTimestamp
)

// Column is one named, typed field of a table's schema.
type Column struct {
	Name string
	Type DataType
}

// Schema is a single versioned snapshot of a table's column list, partition
// keys and primary keys (spec.md §3: "an evolving schema-id history").
type Schema struct {
	ID            int64
	Columns       []Column
	PartitionKeys []string
	PrimaryKeys   []string
}

// BucketKeys returns the columns a static bucket assignment hashes over:
// the configured bucket-key option, or (spec.md §6) the primary key
// trimmed of partition columns.
func (s *Schema) BucketKeys(opts *CoreOptions) []string {
	if len(opts.BucketKey) > 0 {
		return opts.BucketKey
	}
	return TrimPartitionColumns(s.PrimaryKeys, s.PartitionKeys)
}

// TrimPartitionColumns returns keys with any column present in partition
// removed, preserving order. Used to derive the primary key's
// cross-partition component (spec.md §4.2 applies the global index only
// "for tables whose primary key is not a strict superset of the partition
// key").
func TrimPartitionColumns(keys, partition []string) []string {
	inPartition := make(map[string]bool, len(partition))
	for _, p := range partition {
		inPartition[p] = true
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !inPartition[k] {
			out = append(out, k)
		}
	}
	return out
}

// CrossPartition reports whether the primary key is not a strict superset
// of the partition key, i.e. whether the global index (spec.md §4.2) is
// required at all.
func (s *Schema) CrossPartition() bool {
	return len(TrimPartitionColumns(s.PrimaryKeys, s.PartitionKeys)) > 0
}

// Table identifies a bucketed LSM table on the underlying filesystem,
// spec.md §3: "A table is identified by a path and has a fixed schema."
type Table struct {
	Path    string
	Schema  *Schema
	Options *CoreOptions
}

// ColumnIndex returns the position of name in the schema's column list, or
// -1 if absent.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// EncodeBinaryRow serialises fields into a compact binary row, per spec.md
// §3: "A tuple of values for the partition columns; serialised as a compact
// binary row." The row is a 4-byte big-endian field count followed by each
// field as a 4-byte big-endian length and its bytes; a nil field is written
// with length zero. Values are passed already encoded by the caller;
// EncodeBinaryRow only frames them, since per-type encoding is the file
// codec's concern.
func EncodeBinaryRow(fields [][]byte) []byte {
	size := 4
	for _, f := range fields {
		size += 4 + len(f)
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf, uint32(len(fields)))
	off := 4
	for _, f := range fields {
		binary.BigEndian.PutUint32(buf[off:], uint32(len(f)))
		off += 4
		copy(buf[off:], f)
		off += len(f)
	}
	return buf
}

// EncodeInt64 encodes v as a fixed 8-byte big-endian field, used by the
// merge engine (SPEC_FULL.md's mergeengine package) to compare sequence
// group and aggregate-function values without depending on the file
// codec's type system.
func EncodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

// DecodeInt64 reverses EncodeInt64. buf shorter than 8 bytes decodes as 0,
// treating an absent/null field as the zero value for comparison purposes.
func DecodeInt64(buf []byte) int64 {
	if len(buf) < 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(buf))
}

// DecodeBinaryRow reverses EncodeBinaryRow. A zero-length field decodes as
// nil, so a nil (null) field comes back nil.
func DecodeBinaryRow(buf []byte) ([][]byte, error) {
	if len(buf) < 4 {
		return nil, Errorf(ErrKindCorruptDataFile, "binary row too short: %d bytes", len(buf))
	}
	n := binary.BigEndian.Uint32(buf)
	out := make([][]byte, 0, n)
	off := 4
	for i := uint32(0); i < n; i++ {
		if off+4 > len(buf) {
			return nil, Errorf(ErrKindCorruptDataFile, "binary row truncated")
		}
		l := binary.BigEndian.Uint32(buf[off:])
		off += 4
		if off+int(l) > len(buf) {
			return nil, Errorf(ErrKindCorruptDataFile, "binary row truncated")
		}
		if l == 0 {
			out = append(out, nil)
		} else {
			out = append(out, buf[off:off+int(l)])
		}
		off += int(l)
	}
	return out, nil
}
