package base

// RowKind enumerates the CDC row kinds a Record may carry (spec.md §3).
// These values are part of the on-disk data file and manifest format and
// must not be renumbered once written.
type RowKind uint8

const (
	// RowKindInsert is a freshly inserted row with no prior version.
	RowKindInsert RowKind = 0
	// RowKindUpdateBefore is the pre-image of an update; paired with the
	// following RowKindUpdateAfter for the same key.
	RowKindUpdateBefore RowKind = 1
	// RowKindUpdateAfter is the post-image of an update.
	RowKindUpdateAfter RowKind = 2
	// RowKindDelete retracts the row entirely.
	RowKindDelete RowKind = 3
)

// IsAdd reports whether the row kind introduces or replaces a live value,
// as opposed to retracting one.
func (k RowKind) IsAdd() bool {
	return k == RowKindInsert || k == RowKindUpdateAfter
}

// IsRetract reports whether the row kind removes a previously live value.
func (k RowKind) IsRetract() bool {
	return k == RowKindUpdateBefore || k == RowKindDelete
}

func (k RowKind) String() string {
	switch k {
	case RowKindInsert:
		return "+I"
	case RowKindUpdateBefore:
		return "-U"
	case RowKindUpdateAfter:
		return "+U"
	case RowKindDelete:
		return "-D"
	default:
		return "?"
	}
}
