package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siyangzeng/paimon-go/internal/manifest"
	"github.com/siyangzeng/paimon-go/vfs"
)

func writeManifest(t *testing.T, fs vfs.FS, root, name string, entries []manifest.Entry) manifest.ListEntry {
	data, err := manifest.EncodeFile(entries)
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile(manifest.ManifestPath(root, name), data))
	return manifest.ListEntry{ManifestFileName: name}
}

func TestRunMergesAddDeleteByNetBalance(t *testing.T) {
	fs := vfs.NewMemFS()
	root := "/table"

	le1 := writeManifest(t, fs, root, "m1", []manifest.Entry{
		{Kind: manifest.EntryAdd, Partition: []byte("A"), Bucket: 0, TotalBuckets: 1,
			File: manifest.FileMeta{FileName: "f1", Level: 0}},
		{Kind: manifest.EntryAdd, Partition: []byte("A"), Bucket: 0, TotalBuckets: 1,
			File: manifest.FileMeta{FileName: "f2", Level: 0}},
	})
	le2 := writeManifest(t, fs, root, "m2", []manifest.Entry{
		{Kind: manifest.EntryDelete, Partition: []byte("A"), Bucket: 0, TotalBuckets: 1,
			File: manifest.FileMeta{FileName: "f2", Level: 0}},
	})
	listData, err := manifest.EncodeList([]manifest.ListEntry{le1, le2})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile(manifest.ManifestPath(root, "list1"), listData))

	snap := &manifest.Snapshot{Version: manifest.CurrentSnapshotVersion, BaseManifestList: "list1"}
	p := &Planner{FS: fs, Root: root}
	plan, err := p.Run(context.Background(), snap, Filter{CurrentBucketCount: 1})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	require.Equal(t, "f1", plan.Entries[0].File.FileName)
}

func TestRunAppliesPartitionAndLevelFilters(t *testing.T) {
	fs := vfs.NewMemFS()
	root := "/table"

	le := writeManifest(t, fs, root, "m1", []manifest.Entry{
		{Kind: manifest.EntryAdd, Partition: []byte("A"), Bucket: 0, TotalBuckets: 1,
			File: manifest.FileMeta{FileName: "fa", Level: 0}},
		{Kind: manifest.EntryAdd, Partition: []byte("B"), Bucket: 0, TotalBuckets: 1,
			File: manifest.FileMeta{FileName: "fb", Level: 1}},
	})
	listData, err := manifest.EncodeList([]manifest.ListEntry{le})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile(manifest.ManifestPath(root, "list1"), listData))

	snap := &manifest.Snapshot{Version: manifest.CurrentSnapshotVersion, BaseManifestList: "list1"}
	p := &Planner{FS: fs, Root: root}
	plan, err := p.Run(context.Background(), snap, Filter{
		CurrentBucketCount: 1,
		PartitionFilter:    func(part []byte) bool { return string(part) == "A" },
	})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	require.Equal(t, "fa", plan.Entries[0].File.FileName)

	plan, err = p.Run(context.Background(), snap, Filter{
		CurrentBucketCount: 1,
		LevelFilter:        func(level int32) bool { return level == 1 },
	})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	require.Equal(t, "fb", plan.Entries[0].File.FileName)
}

func TestRunFailsOnBucketCountMismatch(t *testing.T) {
	fs := vfs.NewMemFS()
	root := "/table"

	le := writeManifest(t, fs, root, "m1", []manifest.Entry{
		{Kind: manifest.EntryAdd, Partition: []byte("A"), Bucket: 0, TotalBuckets: 2,
			File: manifest.FileMeta{FileName: "fa", Level: 0}},
	})
	listData, err := manifest.EncodeList([]manifest.ListEntry{le})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile(manifest.ManifestPath(root, "list1"), listData))

	snap := &manifest.Snapshot{Version: manifest.CurrentSnapshotVersion, BaseManifestList: "list1"}
	p := &Planner{FS: fs, Root: root}

	_, err = p.Run(context.Background(), snap, Filter{CurrentBucketCount: 4})
	require.Error(t, err)

	plan, err := p.Run(context.Background(), snap, Filter{CurrentBucketCount: 4, SkipBucketCountCheck: true})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
}

func TestRunChangelogScanFallsBackToDeltaForPreV03Snapshot(t *testing.T) {
	fs := vfs.NewMemFS()
	root := "/table"

	le := writeManifest(t, fs, root, "m1", []manifest.Entry{
		{Kind: manifest.EntryAdd, Partition: []byte("A"), Bucket: 0, TotalBuckets: 1,
			File: manifest.FileMeta{FileName: "fa", Level: 0}},
	})
	listData, err := manifest.EncodeList([]manifest.ListEntry{le})
	require.NoError(t, err)
	require.NoError(t, fs.WriteFile(manifest.ManifestPath(root, "deltalist"), listData))

	snap := &manifest.Snapshot{
		Version:           2,
		CommitKind:        manifest.CommitAppend,
		DeltaManifestList: "deltalist",
	}
	p := &Planner{FS: fs, Root: root}
	plan, err := p.Run(context.Background(), snap, Filter{Kind: KindChangelog, CurrentBucketCount: 1})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
}

func TestManifestCacheEvictsLRU(t *testing.T) {
	c := NewManifestCache(1)
	c.PutFile("a", []manifest.Entry{{File: manifest.FileMeta{FileName: "a"}}})
	c.PutFile("b", []manifest.Entry{{File: manifest.FileMeta{FileName: "b"}}})

	_, ok := c.GetFile("a")
	require.False(t, ok)
	entries, ok := c.GetFile("b")
	require.True(t, ok)
	require.Equal(t, "b", entries[0].File.FileName)
}
