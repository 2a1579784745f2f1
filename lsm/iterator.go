package lsm

import "github.com/siyangzeng/paimon-go/internal/base"

// Iterator produces (key, value) pairs in ascending (key, sequence-number)
// order. Every merge input — a level-0 file, a sorted run's file, a
// spilled sort run — implements this so the loser-tree merge (below) can
// treat them uniformly, the same role pebble's internalIterator plays for
// mergingIter (internal_iterator.go).
type Iterator interface {
	// Next advances to the next entry, returning false when exhausted.
	Next() bool
	Key() base.InternalKey
	Value() []byte
	Close() error
}

// SliceIterator adapts an in-memory, already-sorted slice of entries to
// the Iterator interface; used to feed the rows of a data file read back
// through the codec (mergeRuns) and the sort buffer's in-memory tail
// (package sortbuf) into the loser-tree merge. A flush does not go through
// it: flushLocked writes the drained buffer straight to one file.
type SliceIterator struct {
	entries []FlushedEntry
	pos     int
}

// NewSliceIterator wraps entries, which must already be sorted ascending
// by (key, sequence-number).
func NewSliceIterator(entries []FlushedEntry) *SliceIterator {
	return &SliceIterator{entries: entries, pos: -1}
}

func (it *SliceIterator) Next() bool {
	it.pos++
	return it.pos < len(it.entries)
}

func (it *SliceIterator) Key() base.InternalKey { return it.entries[it.pos].Key }
func (it *SliceIterator) Value() []byte         { return it.entries[it.pos].Value }
func (it *SliceIterator) Close() error          { return nil }
