// Package mergeengine implements the four CDC merge functions spec.md §4.5
// folds compaction's loser-tree winner stream through: deduplicate,
// first-row, partial-update, and aggregate. Grounded on how pebble's own
// compaction pipes its mergingIter output through a base.Merger
// (internal/base/merger.go) before writing the destination file — here the
// "merger" is one of these four, selected by CoreOptions.MergeEngine.
package mergeengine

import (
	paimon "github.com/siyangzeng/paimon-go"
)

// MergeFunction accumulates every version of one key emitted consecutively
// by the loser-tree merge (spec.md §4.1: "the merge function ... emits a
// single logical record per key") and produces at most one output record.
type MergeFunction interface {
	// Reset discards any accumulated state, preparing for the next key's
	// run of versions.
	Reset()
	// Add folds one version of the key into the accumulator. Versions
	// arrive in ascending sequence order (the loser-tree's merge order).
	Add(rec paimon.Record) error
	// GetResult returns the merged record, or ok=false if the key
	// resolves to nothing: Add was never called, or every version added
	// was one the engine does not fold (a DELETE ignored by partial-update,
	// a DELETE or UPDATE_BEFORE under aggregate). Deduplicate's terminal
	// DELETE is still returned with ok=true, and callers emit it.
	GetResult() (paimon.Record, bool)
}

// New constructs the MergeFunction configured by opts for schema. Grounded
// on the Design Notes' "enumerated option struct" driving a small factory
// rather than a generic plugin registry.
func New(kind paimon.MergeEngineKind, schema *paimon.Schema, opts *paimon.CoreOptions) (MergeFunction, error) {
	switch kind {
	case paimon.MergeEngineDeduplicate, "":
		return &Deduplicate{}, nil
	case paimon.MergeEngineFirstRow:
		return &FirstRow{}, nil
	case paimon.MergeEnginePartialUpdate:
		return NewPartialUpdate(schema, opts), nil
	case paimon.MergeEngineAggregate:
		return NewAggregate(schema, opts), nil
	default:
		return nil, paimon.Errorf(paimon.ErrKindSchemaIncompatible, "unknown merge engine %q", kind)
	}
}
