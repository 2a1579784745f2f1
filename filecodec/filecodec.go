// Package filecodec defines the boundary to the columnar data file
// format this core does not implement, per SPEC_FULL.md's "[MODULE] File
// Format Codec (external, unchanged)": spec.md §1/§2 treat the on-disk row
// format as opaque, produced and consumed by a columnar writer/reader
// outside this engine's scope. Grounded on pebble's own sstable package
// boundary — pebble's LSM core depends on `sstable.Writer`/`sstable.Reader`
// as an interface-shaped dependency, not on a block format it owns outright
// for every table; this package plays the same role here.
package filecodec

import (
	"github.com/siyangzeng/paimon-go/internal/base"
	"github.com/siyangzeng/paimon-go/internal/manifest"
)

// Row is one encoded record payload plus the internal key ordering it
// sorts under, the unit a Codec writes and reads back.
type Row struct {
	Key   base.InternalKey
	Value []byte
}

// Codec writes and reads one data file's worth of rows and reports the
// statistics a manifest entry needs without requiring the caller to
// re-scan the file. Real implementations (outside this module's scope)
// would be a columnar writer/reader; this interface is the seam.
type Codec interface {
	WriteFile(name string, rows []Row) (manifest.FileMeta, error)
	ReadFile(name string) ([]Row, error)
	Stats(rows []Row) (keyStats, valueStats []byte)
}

// FS is the minimal filesystem surface a Codec needs, matching the
// subset of vfs.FS this package actually calls.
type FS interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
}
