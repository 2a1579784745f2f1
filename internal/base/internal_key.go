package base

// InternalKey is the on-disk sort key for one version of one record: a user
// key (the serialized primary/sort key) paired with a Trailer encoding its
// sequence number and row kind. Grounded on pebble's InternalKey
// (internal/base/internal.go), but ordered the way spec.md §4.1 requires
// for compaction merges: "primary by key ascending, tie-break by sequence
// ascending" so the merge function sees all versions of a key oldest to
// newest. Pebble's own InternalKey instead sorts newest-first, since reads
// want the latest version without scanning history; this module needs both
// directions for different consumers (merge vs. point lookup) and keeps
// them as two comparator functions over the same representation.
type InternalKey struct {
	UserKey []byte
	Trailer Trailer
}

// MakeInternalKey builds an InternalKey from its parts.
func MakeInternalKey(userKey []byte, seq SeqNum, kind RowKind) InternalKey {
	return InternalKey{UserKey: userKey, Trailer: MakeTrailer(seq, kind)}
}

func (k InternalKey) SeqNum() SeqNum { return k.Trailer.SeqNum() }
func (k InternalKey) Kind() RowKind  { return k.Trailer.Kind() }

// CompareForMerge orders two InternalKeys the way the loser-tree merge in
// §4.1 requires: user key ascending, then sequence number ascending.
func CompareForMerge(cmp Compare, a, b InternalKey) int {
	if c := cmp(a.UserKey, b.UserKey); c != 0 {
		return c
	}
	as, bs := a.SeqNum(), b.SeqNum()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return a.Trailer.Compare(b.Trailer)
	}
}

// CompareForLookup orders two InternalKeys the way a point lookup wants:
// user key ascending, then sequence number *descending*, so the newest
// version of a key sorts first. This mirrors pebble's own InternalKey
// ordering (internal/base/internal.go). The in-memory write buffer does not
// use it: it orders with CompareForMerge, so flushed files hold each key's
// versions oldest first.
func CompareForLookup(cmp Compare, a, b InternalKey) int {
	if c := cmp(a.UserKey, b.UserKey); c != 0 {
		return c
	}
	as, bs := a.SeqNum(), b.SeqNum()
	switch {
	case as > bs:
		return -1
	case as < bs:
		return 1
	default:
		return 0
	}
}
