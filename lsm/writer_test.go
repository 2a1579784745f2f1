package lsm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	paimon "github.com/siyangzeng/paimon-go"
	"github.com/siyangzeng/paimon-go/filecodec"
	"github.com/siyangzeng/paimon-go/internal/base"
	"github.com/siyangzeng/paimon-go/internal/manifest"
	"github.com/siyangzeng/paimon-go/vfs"
)

func newTestWriter(t *testing.T, trigger, stop int) (*Writer, *filecodec.FakeCodec) {
	t.Helper()
	fs := vfs.NewMemFS()
	codec := &filecodec.FakeCodec{FS: fs}
	w, err := NewWriter(Config{
		Bucket:            0,
		TotalBuckets:      1,
		DataDir:           manifest.BucketPartitionDir("/table", 0, ""),
		WriteBufferSize:   1 << 20,
		Codec:             codec,
		CompactionTrigger: trigger,
		StopTrigger:       stop,
		MergeEngine:       paimon.MergeEngineDeduplicate,
		Options:           &paimon.CoreOptions{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	return w, codec
}

func rec(key string, seq int64, kind base.RowKind, value string) paimon.Record {
	var v []byte
	if kind != base.RowKindDelete {
		v = []byte(value)
	}
	return paimon.Record{Kind: kind, Key: []byte(key), Value: v, Sequence: base.SeqNum(seq)}
}

func TestWriteAndPrepareCommitProducesOneAddPerFlush(t *testing.T) {
	w, _ := newTestWriter(t, 5, 6)
	require.NoError(t, w.Write(rec("a", 1, base.RowKindInsert, "va")))
	require.NoError(t, w.Write(rec("b", 2, base.RowKindInsert, "vb")))

	entries, changes, err := w.PrepareCommit(true)
	require.NoError(t, err)
	require.Empty(t, changes)
	require.Len(t, entries, 1)
	require.Equal(t, manifest.EntryAdd, entries[0].Kind)
	require.Equal(t, int64(2), entries[0].File.RowCount)
}

func TestPrepareCommitWithNoWritesReturnsNothing(t *testing.T) {
	w, _ := newTestWriter(t, 5, 6)
	entries, changes, err := w.PrepareCommit(true)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Empty(t, changes)
}

// TestSortedRunCountStaysBoundedUnderRepeatedFlushes exercises spec.md §8
// scenario 3: with a compaction trigger of 3 and a stop-trigger of 4, ten
// sequential flushes must never let the sorted-run count exceed 4 at any
// snapshot this test can observe synchronously, and the final state must
// still contain every key written.
func TestSortedRunCountStaysBoundedUnderRepeatedFlushes(t *testing.T) {
	w, _ := newTestWriter(t, 3, 4)

	var allEntries []manifest.Entry
	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("k%02d", i)
		require.NoError(t, w.Write(rec(key, int64(i+1), base.RowKindInsert, fmt.Sprintf("v%d", i))))

		entries, _, err := w.PrepareCommit(true)
		require.NoError(t, err)
		allEntries = append(allEntries, entries...)

		w.mu.Lock()
		runCount := len(w.runsSnapshotLocked())
		w.mu.Unlock()
		require.LessOrEqual(t, runCount, 4, "sorted-run count exceeded stop-trigger after flush %d", i)
	}

	w.mu.Lock()
	liveFiles := map[string]manifest.FileMeta{}
	for _, f := range w.level0 {
		liveFiles[f.FileName] = f
	}
	for _, files := range w.levels {
		for _, f := range files {
			liveFiles[f.FileName] = f
		}
	}
	w.mu.Unlock()

	codec := w.codec
	seen := map[string]bool{}
	for _, f := range liveFiles {
		rows, err := codec.ReadFile(f.FileName)
		require.NoError(t, err)
		for _, row := range rows {
			seen[string(row.Key.UserKey)] = true
		}
	}
	require.Len(t, seen, 10, "expected all 10 written keys to survive compaction")
}

func TestCompactionDeduplicatesMultipleVersionsOfAKey(t *testing.T) {
	w, codec := newTestWriter(t, 2, 3)

	require.NoError(t, w.Write(rec("a", 1, base.RowKindInsert, "v1")))
	_, _, err := w.PrepareCommit(true)
	require.NoError(t, err)

	require.NoError(t, w.Write(rec("a", 2, base.RowKindInsert, "v2")))
	entries, _, err := w.PrepareCommit(true)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	w.mu.Lock()
	var liveFiles []manifest.FileMeta
	liveFiles = append(liveFiles, w.level0...)
	for _, files := range w.levels {
		liveFiles = append(liveFiles, files...)
	}
	w.mu.Unlock()

	var found []filecodec.Row
	for _, f := range liveFiles {
		rows, err := codec.ReadFile(f.FileName)
		require.NoError(t, err)
		for _, row := range rows {
			if string(row.Key.UserKey) == "a" {
				found = append(found, row)
			}
		}
	}
	require.Len(t, found, 1, "compaction should have folded both versions of key \"a\" into one")
	require.Equal(t, []byte("v2"), found[0].Value)
}

// TestSameKeyWithinOneBufferFlushMergesInSequenceOrder guards against a
// buffer that hands the loser tree a non-ascending same-key run: two
// writes to the same key land in one buffer before any flush, so the
// level-0 file the flush produces must still contain them oldest-sequence
// first, or an order-dependent merge engine like partial-update folds
// them backwards.
func TestSameKeyWithinOneBufferFlushMergesInSequenceOrder(t *testing.T) {
	fs := vfs.NewMemFS()
	codec := &filecodec.FakeCodec{FS: fs}
	schema := &paimon.Schema{Columns: []paimon.Column{
		{Name: "pk", Type: paimon.TypeString},
		{Name: "v", Type: paimon.TypeString},
	}}
	w, err := NewWriter(Config{
		Bucket:            0,
		TotalBuckets:      1,
		DataDir:           manifest.BucketPartitionDir("/table", 0, ""),
		WriteBufferSize:   1 << 20,
		Codec:             codec,
		CompactionTrigger: 100,
		StopTrigger:       100,
		MergeEngine:       paimon.MergeEnginePartialUpdate,
		Schema:            schema,
		Options:           &paimon.CoreOptions{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	row1 := paimon.EncodeBinaryRow([][]byte{[]byte("a"), []byte("v1")})
	row2 := paimon.EncodeBinaryRow([][]byte{[]byte("a"), []byte("v2")})

	// Both writes land in the same buffer; no flush happens between them.
	require.NoError(t, w.Write(paimon.Record{Kind: base.RowKindInsert, Key: []byte("a"), Value: row1, Sequence: 1}))
	require.NoError(t, w.Write(paimon.Record{Kind: base.RowKindInsert, Key: []byte("a"), Value: row2, Sequence: 2}))

	_, _, err = w.PrepareCommit(false)
	require.NoError(t, err)

	require.True(t, w.ForceFullCompaction())
	_, _, err = w.PrepareCommit(true)
	require.NoError(t, err)

	w.mu.Lock()
	var liveFiles []manifest.FileMeta
	liveFiles = append(liveFiles, w.level0...)
	for _, files := range w.levels {
		liveFiles = append(liveFiles, files...)
	}
	w.mu.Unlock()

	var found []filecodec.Row
	for _, f := range liveFiles {
		rows, err := codec.ReadFile(f.FileName)
		require.NoError(t, err)
		found = append(found, rows...)
	}
	require.Len(t, found, 1, "partial-update compaction should fold both versions of key \"a\" into one")

	decoded, err := paimon.DecodeBinaryRow(found[0].Value)
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), decoded[1],
		"partial-update must apply the higher-sequence version last; a descending-sequence buffer order would leave the stale v1 value")
}

func TestWriteAfterCloseFails(t *testing.T) {
	w, _ := newTestWriter(t, 5, 6)
	require.NoError(t, w.Close())
	err := w.Write(rec("a", 1, base.RowKindInsert, "va"))
	require.Error(t, err)
}

func TestForceFullCompactionMergesEveryRun(t *testing.T) {
	w, codec := newTestWriter(t, 100, 100)

	require.NoError(t, w.Write(rec("a", 1, base.RowKindInsert, "v1")))
	_, _, err := w.PrepareCommit(false)
	require.NoError(t, err)
	require.NoError(t, w.Write(rec("b", 2, base.RowKindInsert, "v2")))
	_, _, err = w.PrepareCommit(false)
	require.NoError(t, err)

	w.mu.Lock()
	runCountBefore := len(w.runsSnapshotLocked())
	w.mu.Unlock()
	require.Equal(t, 2, runCountBefore)

	require.True(t, w.ForceFullCompaction())
	entries, _, err := w.PrepareCommit(true)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	w.mu.Lock()
	runCountAfter := len(w.runsSnapshotLocked())
	w.mu.Unlock()
	require.Equal(t, 1, runCountAfter)

	var keys []string
	w.mu.Lock()
	for _, files := range w.levels {
		for _, f := range files {
			rows, err := codec.ReadFile(f.FileName)
			require.NoError(t, err)
			for _, row := range rows {
				keys = append(keys, string(row.Key.UserKey))
			}
		}
	}
	w.mu.Unlock()
	require.ElementsMatch(t, []string{"a", "b"}, keys)
}
