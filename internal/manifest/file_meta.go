// Package manifest implements the metadata layer of the table: file
// statistics, manifest entries, the manifest-list/snapshot tree, and the
// commit-time optimistic-concurrency pointer swap. Grounded on pebble's
// internal/manifest package (version.go, version_edit.go), generalised from
// pebble's single-keyspace levels to spec.md §3's per-(partition, bucket)
// sorted runs.
package manifest

import (
	"time"

	"github.com/siyangzeng/paimon-go/internal/base"
)

// FileMeta describes one immutable data file, spec.md §3's "Data file"
// and the binary layout in spec.md §6.
type FileMeta struct {
	FileName           string
	FileSize           int64
	RowCount           int64
	MinKey             []byte
	MaxKey             []byte
	KeyStats           []byte // opaque, produced by the file codec
	ValueStats         []byte // opaque, produced by the file codec
	MinSequenceNumber  base.SeqNum
	MaxSequenceNumber  base.SeqNum
	SchemaID           int64
	Level              int32
	ExtraFiles         []string
	CreationTime       time.Time
}

// Overlaps reports whether f's key range intersects other's, used by the
// level-invariant checker (spec.md §3: "within any sorted run at level ≥ 1,
// keys are strictly increasing and unique").
func (f *FileMeta) Overlaps(cmp base.Compare, other *FileMeta) bool {
	return cmp(f.MinKey, other.MaxKey) <= 0 && cmp(other.MinKey, f.MaxKey) <= 0
}

// EntryKind distinguishes an ADD from a DELETE manifest entry (spec.md §3).
type EntryKind uint8

const (
	EntryAdd EntryKind = iota
	EntryDelete
)

// Entry is one manifest entry, spec.md §3: "{ partition, bucket,
// total-buckets, file-meta, level, kind ∈ {ADD, DELETE} }".
type Entry struct {
	Kind         EntryKind
	Partition    []byte
	Bucket       int32
	TotalBuckets int32
	File         FileMeta
}

// Key identifies the (partition, bucket, file-name) triple ADD/DELETE
// entries are merged on, per spec.md §4.4 step 4.
type EntryKey struct {
	Partition string
	Bucket    int32
	FileName  string
}

func (e *Entry) Key() EntryKey {
	return EntryKey{Partition: string(e.Partition), Bucket: e.Bucket, FileName: e.File.FileName}
}
