// Package base holds the primitive types shared by every package in this
// module: sequence numbers, row kinds, comparators and the binary trailer
// format used to order versions of the same key.
package base

import "fmt"

// SeqNum orders versions of the same key. Higher sequence numbers are newer.
// Sequence numbers are monotonic within a key (spec.md §3) and are either
// extracted from a configured column or assigned by the engine.
type SeqNum uint64

const (
	// SeqNumZero is never assigned to a live record; it is reserved so that
	// zero-valued Records are recognizably uninitialized.
	SeqNumZero SeqNum = 0

	// SeqNumStart is the first sequence number the engine itself assigns.
	// Numbers below it are reserved the way pebble reserves 1-9 for foreign
	// sstable levels (internal/base/seqnums.go).
	SeqNumStart SeqNum = 10

	// SeqNumMax sorts above every real sequence number; used as a sentinel
	// "read as of now" watermark by the scan planner.
	SeqNumMax SeqNum = 1<<63 - 1
)

func (s SeqNum) String() string {
	if s == SeqNumMax {
		return "inf"
	}
	return fmt.Sprintf("%d", uint64(s))
}
