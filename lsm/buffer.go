// Package lsm implements the per-(partition, bucket) merge-tree writer of
// spec.md §4.1: an in-memory buffer, level-0 flush, and universal-style
// compaction over sorted runs. Grounded on pebble's mem_table.go / options.go
// (buffer sizing, flush/spill triggers) and compaction_picker.go (sorted-run
// counting and size-ratio selection), generalised from pebble's single
// whole-database LSM to one independent tree per (partition, bucket).
package lsm

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	paimon "github.com/siyangzeng/paimon-go"
	"github.com/siyangzeng/paimon-go/internal/base"
)

// entry is one buffered record plus the precomputed sort key, mirroring
// pebble's memTable entries (mem_table.go) but as a plain sorted slice
// rather than a lock-free skiplist: spec.md §5 assigns each (partition,
// bucket) writer to a single owning worker, so there is no concurrent
// writer into one Buffer to make lock-free. A mutex-guarded sorted slice
// gets the same externally-observable behavior with far less unsafe code;
// see DESIGN.md for the full justification of this simplification.
type entry struct {
	key     base.InternalKey
	abbrev  uint64
	value   []byte
	memSize int64
}

// Buffer is the "configurable-size memory segment pool" spec.md §4.1
// describes. Records are kept sorted by (key, sequence-number) on
// insertion via a normalised-key prefix (internal/base.AbbreviatedKey),
// ties broken on sequence, exactly as §4.1 specifies.
type Buffer struct {
	cmp     base.Compare
	maxSize int64

	mu      sync.Mutex
	entries []entry
	used    int64
}

// NewBuffer returns an empty Buffer bounded at maxSize bytes.
func NewBuffer(cmp base.Compare, maxSize int64) *Buffer {
	return &Buffer{cmp: cmp, maxSize: maxSize}
}

// entrySize approximates the memory an entry consumes, the same role
// pebble's memTableEntrySize plays for arena accounting (mem_table.go).
func entrySize(keyLen, valueLen int) int64 {
	return int64(keyLen + valueLen + 48) // +overhead for slice/struct headers
}

// Add inserts rec's encoded form into the buffer. It returns
// *paimon.EngineError{Kind: ErrKindBufferFull} once the buffer has reached
// maxSize, per spec.md §4.1: "write(record) ... fails with BufferFull only
// transiently: the caller must await a flush."
func (b *Buffer) Add(key base.InternalKey, value []byte) error {
	size := entrySize(len(key.UserKey), len(value))

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used+size > b.maxSize && len(b.entries) > 0 {
		return paimon.NewError(paimon.ErrKindBufferFull,
			errorsBufferFull(b.used, b.maxSize))
	}
	e := entry{
		key:     key,
		abbrev:  base.AbbreviatedKey(key.UserKey),
		value:   append([]byte(nil), value...),
		memSize: size,
	}
	idx := b.search(key)
	b.entries = append(b.entries, entry{})
	copy(b.entries[idx+1:], b.entries[idx:])
	b.entries[idx] = e
	b.used += size
	return nil
}

// search returns the insertion index for key, comparing the 8-byte
// abbreviated prefix first for cache locality before falling back to the
// full comparator, the same optimisation pebble's AbbreviatedKey exists
// for. Ordering within a key uses CompareForMerge (sequence ascending),
// not CompareForLookup (sequence descending): every consumer downstream
// of a flushed file — the loser-tree merge in compaction_executor.go's
// mergeRuns, and NewSliceIterator's documented "already sorted ascending
// by (key, sequence-number)" contract — needs a key's versions oldest to
// newest, matching sortbuf.go's byMergeOrder.
func (b *Buffer) search(key base.InternalKey) int {
	abbrev := base.AbbreviatedKey(key.UserKey)
	return sort.Search(len(b.entries), func(i int) bool {
		if b.entries[i].abbrev != abbrev {
			return b.entries[i].abbrev > abbrev
		}
		return base.CompareForMerge(b.cmp, b.entries[i].key, key) >= 0
	})
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Size returns the current memory usage estimate in bytes.
func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// Full reports whether the buffer has reached its configured capacity.
func (b *Buffer) Full() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used >= b.maxSize
}

// Drain empties the buffer and returns its contents sorted ascending by
// (key, sequence-number) — oldest version of each key first, the order a
// level-0 flush writes out and the order every downstream merge consumer
// requires (spec.md §4.1: "Flush ... produces one level-0 file per
// flush").
func (b *Buffer) Drain() []FlushedEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]FlushedEntry, len(b.entries))
	for i, e := range b.entries {
		out[i] = FlushedEntry{Key: e.key, Value: e.value}
	}
	b.entries = nil
	b.used = 0
	return out
}

// FlushedEntry is one record drained from the buffer, ready to be handed
// to the file codec.
type FlushedEntry struct {
	Key   base.InternalKey
	Value []byte
}

func errorsBufferFull(used, max int64) error {
	return errors.Newf("write buffer full: %s used of %s capacity",
		humanize.IBytes(uint64(used)), humanize.IBytes(uint64(max)))
}
