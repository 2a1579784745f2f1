package commit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	paimon "github.com/siyangzeng/paimon-go"
	"github.com/siyangzeng/paimon-go/internal/manifest"
	"github.com/siyangzeng/paimon-go/vfs"
)

func newTestCommitter(t *testing.T) (*Committer, *manifest.Store) {
	store := &manifest.Store{FS: vfs.NewMemFS(), Root: "/table"}
	c := NewCommitter(store, &paimon.CoreOptions{CommitMaxRetries: 3}, nil)
	c.sleep = func(time.Duration) {}
	return c, store
}

func TestRunCommitsFirstAttempt(t *testing.T) {
	c, store := newTestCommitter(t)
	out := c.Run(context.Background(), func(base int64) (*manifest.Snapshot, error) {
		require.Equal(t, int64(0), base)
		return &manifest.Snapshot{ID: base + 1, Version: manifest.CurrentSnapshotVersion}, nil
	})
	require.Equal(t, int64(1), out.Committed)
	require.False(t, out.Conflict)
	require.NoError(t, out.Err)

	latest, err := store.Latest()
	require.NoError(t, err)
	require.Equal(t, int64(1), latest)
}

func TestRunRebasesOnConflict(t *testing.T) {
	c, store := newTestCommitter(t)

	var seenBases []int64
	raced := false
	out := c.Run(context.Background(), func(base int64) (*manifest.Snapshot, error) {
		seenBases = append(seenBases, base)
		if !raced {
			raced = true
			// A racing committer lands snapshot 1 first, after this
			// committer has already read base=0 but before its own
			// CommitLatest call runs.
			require.NoError(t, store.WriteSnapshot(&manifest.Snapshot{ID: 1, Version: manifest.CurrentSnapshotVersion}))
			require.NoError(t, store.CommitLatest(0, 1))
		}
		return &manifest.Snapshot{ID: base + 1, Version: manifest.CurrentSnapshotVersion}, nil
	})
	require.Equal(t, int64(2), out.Committed)
	require.Equal(t, []int64{0, 1}, seenBases)
}

func TestRunExhaustsRetriesOnPersistentConflict(t *testing.T) {
	c, store := newTestCommitter(t)
	require.NoError(t, store.WriteSnapshot(&manifest.Snapshot{ID: 1, Version: manifest.CurrentSnapshotVersion}))
	require.NoError(t, store.CommitLatest(0, 1))

	raceID := int64(1)
	attempts := 0
	out := c.Run(context.Background(), func(base int64) (*manifest.Snapshot, error) {
		attempts++
		// Simulate a racing external committer that always wins: it
		// advances LATEST past whatever base this committer is about to
		// propose against, every single attempt.
		actualLatest, err := store.Latest()
		require.NoError(t, err)
		raceID++
		require.NoError(t, store.WriteSnapshot(&manifest.Snapshot{ID: raceID, Version: manifest.CurrentSnapshotVersion}))
		require.NoError(t, store.CommitLatest(actualLatest, raceID))
		return &manifest.Snapshot{ID: base + 1, Version: manifest.CurrentSnapshotVersion}, nil
	})
	require.True(t, out.Conflict)
	require.Equal(t, c.MaxRetries+1, attempts)
}

func TestRunPropagatesBuildError(t *testing.T) {
	c, _ := newTestCommitter(t)
	wantErr := paimon.Errorf(paimon.ErrKindSchemaIncompatible, "boom")
	out := c.Run(context.Background(), func(int64) (*manifest.Snapshot, error) {
		return nil, wantErr
	})
	require.Error(t, out.Err)
}
