// Package commit implements spec.md §5's optimistic commit loop: propose a
// new snapshot, attempt the LATEST pointer swap, and on conflict rebase and
// retry up to a bounded number of attempts. Grounded on pebble's own
// version-set logAndApply retry path (internal/base/... conventions the
// manifest package already follows) generalised to this table's snapshot
// tree instead of pebble's single VersionEdit log.
package commit

import (
	"context"
	"math/rand"
	"time"

	paimon "github.com/siyangzeng/paimon-go"
	"github.com/siyangzeng/paimon-go/internal/base"
	"github.com/siyangzeng/paimon-go/internal/manifest"
)

// Outcome is the result-typed retry loop's terminal state, per the Design
// Notes' "Optimistic commit loop → result-typed retry": a commit either
// succeeds, exhausts its retries against a still-conflicting pointer, or
// fails outright on a non-conflict error.
type Outcome struct {
	// Committed is non-zero when the commit succeeded; it is the new
	// snapshot id now pointed to by LATEST.
	Committed int64
	// Conflict is set when every retry observed a newer snapshot than
	// the one the caller's builder was prepared against.
	Conflict bool
	// ObservedLatest is the latest snapshot id seen on the final
	// conflicting attempt, for the caller to rebase against.
	ObservedLatest int64
	// Err is set on any non-conflict failure (I/O, corrupt pointer,
	// canceled context).
	Err error
}

// Build produces the next snapshot to attempt, given the base snapshot id
// the caller last observed as LATEST. Build may be called more than once
// if the committer must rebase after a conflict (spec.md §5: "retry with
// new base snapshot").
type Build func(base int64) (*manifest.Snapshot, error)

// Committer drives the retry loop for one table root.
type Committer struct {
	Store      *manifest.Store
	MaxRetries int
	Logger     base.Logger

	// now and sleep are overridden in tests to avoid real timing.
	now   func() time.Time
	sleep func(time.Duration)
}

// NewCommitter returns a Committer backed by store, retrying up to
// opts.CommitMaxRetries times (spec.md §6's commit.max-retries, default
// 10 per ParseOptions).
func NewCommitter(store *manifest.Store, opts *paimon.CoreOptions, logger base.Logger) *Committer {
	if logger == nil {
		logger = base.NopLogger{}
	}
	maxRetries := opts.CommitMaxRetries
	if maxRetries <= 0 {
		maxRetries = 10
	}
	return &Committer{
		Store:      store,
		MaxRetries: maxRetries,
		Logger:     logger,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Run executes the full optimistic commit loop: read LATEST, call build,
// write the candidate snapshot, attempt CommitLatest, and on conflict
// rebase against the newly observed latest and retry with exponential
// backoff, per the SUPPLEMENTED FEATURES "Commit-retry bounded backoff"
// decision (capped at MaxRetries, base delay doubling each attempt, with
// jitter to avoid a thundering herd of committers retrying in lockstep).
func (c *Committer) Run(ctx context.Context, build Build) Outcome {
	base, err := c.Store.Latest()
	if err != nil {
		return Outcome{Err: err}
	}

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Err: err}
		}

		snap, err := build(base)
		if err != nil {
			return Outcome{Err: err}
		}

		if err := c.Store.WriteSnapshot(snap); err != nil {
			return Outcome{Err: err}
		}

		err = c.Store.CommitLatest(base, snap.ID)
		if err == nil {
			return Outcome{Committed: snap.ID}
		}

		conflict, ok := err.(*manifest.ConflictError)
		if !ok {
			return Outcome{Err: err}
		}

		c.Logger.Infof("commit conflict on snapshot %d: latest advanced to %d, retrying (attempt %d/%d)",
			snap.ID, conflict.ObservedLatest, attempt+1, c.MaxRetries)

		if attempt == c.MaxRetries {
			return Outcome{Conflict: true, ObservedLatest: conflict.ObservedLatest}
		}
		base = conflict.ObservedLatest
		c.sleep(backoff(attempt))
	}

	// unreachable: the loop above always returns by its last iteration.
	return Outcome{Conflict: true, ObservedLatest: base}
}

// backoff returns an exponentially increasing delay with jitter, capped at
// a few seconds so a stuck committer does not stall indefinitely.
func backoff(attempt int) time.Duration {
	const (
		baseDelay = 20 * time.Millisecond
		maxDelay  = 5 * time.Second
	)
	d := baseDelay << attempt
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	return d/2 + jitter
}
