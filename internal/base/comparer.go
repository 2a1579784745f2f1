package base

import "bytes"

// Compare orders two raw primary keys. Returns -1, 0 or +1, the bytes.Compare
// convention, grounded on pebble's Compare func type
// (internal/base/comparer.go).
type Compare func(a, b []byte) int

// DefaultCompare is a plain byte-wise comparator, sufficient for the
// binary-row encoded keys this module operates on.
func DefaultCompare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// AbbreviatedKey returns an 8-byte prefix of key, big-endian so that integer
// comparison of the returned uint64 agrees with DefaultCompare on the
// prefix. This is the "normalised-key prefix (8-16 bytes)" spec.md §4.1 and
// §4.6 call for: a cache-friendly hint that avoids touching the full key
// for the common case where prefixes already differ, the same role played
// by pebble's AbbreviatedKey (internal/base/comparer.go).
func AbbreviatedKey(key []byte) uint64 {
	var buf [8]byte
	n := copy(buf[:], key)
	_ = n
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(buf[i])
	}
	return v
}
