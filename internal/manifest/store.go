package manifest

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/siyangzeng/paimon-go/internal/base"
	"github.com/siyangzeng/paimon-go/vfs"
)

// Store owns the snapshot/manifest metadata for one table root, including
// the optimistic-concurrency pointer swap spec.md §5 describes: "a
// committer proposes snapshot N+1 ... it succeeds only if the currently
// latest snapshot is still N after a filesystem rename on the snapshot
// pointer." Grounded on pebble's directory-lock/filenames conventions
// (internal/base/filenames.go) generalised from a single DB-wide CURRENT
// file to spec.md §6's LATEST/EARLIEST pointer pair.
//
// commitMu serialises the read-check-write span of CommitLatest (and
// Rollback's unconditional pointer write) so two committers racing on the
// same expectedCurrent can't both observe the pre-swap LATEST and both
// write: spec.md §8 requires exactly one to succeed and the other to see
// CommitConflict. vfs.FS only guarantees atomicity of each individual
// ReadFile/WriteFile call, not across the pair, so the Store itself is the
// only place that can close the gap. A single mutex is sufficient because
// spec.md §5 scopes commits to one owning worker / bounded thread pool
// calling through the same Store rather than separate processes.
type Store struct {
	FS     vfs.FS
	Root   string
	Logger base.Logger

	commitMu sync.Mutex
}

// Latest returns the currently committed snapshot id, or 0 if the table
// has never been committed to.
func (s *Store) Latest() (int64, error) {
	data, err := s.FS.ReadFile(LatestPointerPath(s.Root))
	if err != nil {
		if !s.FS.Exists(LatestPointerPath(s.Root)) {
			return 0, nil
		}
		return 0, err
	}
	return parsePointer(data)
}

// Earliest returns the oldest non-expired snapshot id, or 0 if none.
func (s *Store) Earliest() (int64, error) {
	if !s.FS.Exists(EarliestPointerPath(s.Root)) {
		return 0, nil
	}
	data, err := s.FS.ReadFile(EarliestPointerPath(s.Root))
	if err != nil {
		return 0, err
	}
	return parsePointer(data)
}

// ReadSnapshot loads and parses the JSON descriptor for id.
func (s *Store) ReadSnapshot(id int64) (*Snapshot, error) {
	data, err := s.FS.ReadFile(SnapshotPath(s.Root, id))
	if err != nil {
		return nil, errors.Wrapf(err, "reading snapshot %d", id)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.Wrapf(err, "corrupt snapshot %d", id)
	}
	return &snap, nil
}

// WriteSnapshot durably writes snap's JSON descriptor, but does not make it
// the latest: that is a separate, atomic step (CommitLatest) so a crash
// between the two never leaves LATEST pointing at a snapshot id whose file
// doesn't exist.
func (s *Store) WriteSnapshot(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshalling snapshot %d", snap.ID)
	}
	return s.FS.WriteFile(SnapshotPath(s.Root, snap.ID), data)
}

// CommitLatest performs the optimistic pointer swap: it only succeeds if
// Latest() still reports expectedCurrent, matching spec.md §5's "succeeds
// only if the currently latest snapshot is still N". The swap itself is
// implemented as write-new-file-then-rename (vfs.FS.WriteFile already does
// this atomically), mirroring how pebble swaps its CURRENT file. commitMu
// holds for the entire check-then-write span so two racing callers can't
// both observe expectedCurrent before either writes: the second to acquire
// the lock re-reads LATEST and, finding it already advanced, returns
// ConflictError instead of clobbering the winner.
func (s *Store) CommitLatest(expectedCurrent, newID int64) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	observed, err := s.Latest()
	if err != nil {
		return err
	}
	if observed != expectedCurrent {
		return &ConflictError{ObservedLatest: observed}
	}
	if err := s.FS.MkdirAll(s.Root + "/snapshot"); err != nil {
		return err
	}
	if err := s.FS.WriteFile(LatestPointerPath(s.Root), pointerBytes(newID)); err != nil {
		return err
	}
	if !s.FS.Exists(EarliestPointerPath(s.Root)) {
		return s.FS.WriteFile(EarliestPointerPath(s.Root), pointerBytes(newID))
	}
	return nil
}

// ConflictError is returned by CommitLatest when another committer won the
// race, spec.md §7's CommitConflict: "recoverable; retry with new base
// snapshot up to a bounded number of attempts."
type ConflictError struct {
	ObservedLatest int64
}

func (e *ConflictError) Error() string {
	return errors.Newf("commit conflict: latest snapshot advanced to %d", e.ObservedLatest).Error()
}

// Rollback truncates the snapshot tail to id, per spec.md §8 scenario 5:
// "rollback_to(id) produces a state identical to the state observed
// immediately after snapshot id was committed." It does not delete the
// orphaned snapshot files (that is the out-of-scope expiration task's
// job); it only rewinds LATEST so the next commit allocates id+1 fresh.
func (s *Store) Rollback(id int64) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if !s.FS.Exists(SnapshotPath(s.Root, id)) {
		return errors.Newf("cannot roll back to snapshot %d: not found", id)
	}
	return s.FS.WriteFile(LatestPointerPath(s.Root), pointerBytes(id))
}

func pointerBytes(id int64) []byte {
	return []byte(strconv.FormatInt(id, 10))
}

func parsePointer(data []byte) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed pointer file: %q", string(data))
	}
	return id, nil
}
