package paimon

import (
	"github.com/cockroachdb/errors"
)

// ErrKind classifies an engine error, grounded on pebble's
// BackgroundErrorReason/Severity split (error_handler.go) and spec.md §7.
type ErrKind uint8

const (
	// ErrKindSchemaIncompatible surfaces to the caller; ignore-incompatible
	// may let the caller skip the offending table.
	ErrKindSchemaIncompatible ErrKind = iota
	// ErrKindBucketCountMismatch is fatal; the caller must OVERWRITE to
	// rescale.
	ErrKindBucketCountMismatch
	// ErrKindDuplicateKeyInMerge is raised when bootstrap finds two rows for
	// the same primary key that disagree on partition with no resolution
	// policy configured.
	ErrKindDuplicateKeyInMerge
	// ErrKindBufferFull is transient; it triggers a spill or back-pressure.
	ErrKindBufferFull
	// ErrKindCompactionFailed is non-fatal: logged, inputs retained, retried
	// next cycle.
	ErrKindCompactionFailed
	// ErrKindCommitConflict is recoverable: retry with a new base snapshot
	// up to a bounded number of attempts.
	ErrKindCommitConflict
	// ErrKindCorruptManifest is fatal for the read in progress.
	ErrKindCorruptManifest
	// ErrKindCorruptDataFile is fatal for the read in progress.
	ErrKindCorruptDataFile
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindSchemaIncompatible:
		return "schema-incompatible"
	case ErrKindBucketCountMismatch:
		return "bucket-count-mismatch"
	case ErrKindDuplicateKeyInMerge:
		return "duplicate-key-in-merge"
	case ErrKindBufferFull:
		return "buffer-full"
	case ErrKindCompactionFailed:
		return "compaction-failed"
	case ErrKindCommitConflict:
		return "commit-conflict"
	case ErrKindCorruptManifest:
		return "corrupt-manifest"
	case ErrKindCorruptDataFile:
		return "corrupt-data-file"
	default:
		return "unknown"
	}
}

// EngineError carries a classification alongside the underlying cause, the
// same shape as pebble's BackgroundError (error_handler.go), so callers can
// switch on Kind() without string-matching error text.
type EngineError struct {
	kind ErrKind
	err  error
}

// NewError wraps err with a classification.
func NewError(kind ErrKind, err error) *EngineError {
	return &EngineError{kind: kind, err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind ErrKind, format string, args ...interface{}) *EngineError {
	return &EngineError{kind: kind, err: errors.Newf(format, args...)}
}

func (e *EngineError) Kind() ErrKind { return e.kind }
func (e *EngineError) Error() string { return e.err.Error() }
func (e *EngineError) Unwrap() error { return e.err }

// IsFatal reports whether the error must abort the in-progress operation
// rather than being retried or swallowed, per spec.md §7's propagation
// rules.
func (e *EngineError) IsFatal() bool {
	switch e.kind {
	case ErrKindBucketCountMismatch, ErrKindDuplicateKeyInMerge,
		ErrKindCorruptManifest, ErrKindCorruptDataFile:
		return true
	default:
		return false
	}
}

// KindOf extracts the ErrKind from err if it (or something it wraps) is an
// *EngineError, mirroring errors.As.
func KindOf(err error) (ErrKind, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.kind, true
	}
	return 0, false
}

// ErrCommitConflict describes an optimistic commit that lost the race; it
// carries the snapshot id that won. Package commit does not return it: the
// committer reports conflicts through its Outcome, and the manifest store
// through its own ConflictError.
type ErrCommitConflict struct {
	ObservedLatest int64
}

func (e *ErrCommitConflict) Error() string {
	return errors.Newf("commit conflict: latest snapshot is now %d", e.ObservedLatest).Error()
}
