// Package scan implements spec.md §4.4's manifest-driven scan planner:
// resolving a snapshot's manifest-list, reading manifest files in bounded
// parallel, merging ADD/DELETE entries, and applying the planner's filter
// chain. Grounded on pebble's version_set.go (manifest reading) and its use
// of bounded-parallelism helpers elsewhere in the wider example pack for
// fan-out I/O, via golang.org/x/sync/errgroup (DOMAIN STACK).
package scan

import (
	"context"

	"golang.org/x/sync/errgroup"

	paimon "github.com/siyangzeng/paimon-go"
	"github.com/siyangzeng/paimon-go/internal/manifest"
	"github.com/siyangzeng/paimon-go/vfs"
)

// Kind selects which family of manifests a scan reads, spec.md §4.4's
// "scan-kind ∈ {ALL, DELTA, CHANGELOG}".
type Kind int

const (
	KindAll Kind = iota
	KindDelta
	KindChangelog
)

// Filter is spec.md §4.4's input: "{ snapshot-id | manifest-list,
// partition-filter, bucket-filter, level-filter, value-filter, scan-kind
// }". All fields are optional; a nil predicate matches everything.
type Filter struct {
	Kind Kind

	PartitionFilter func(partition []byte) bool
	BucketFilter    func(bucket int32) bool
	LevelFilter     func(level int32) bool
	ValueFilter     func(valueStats []byte) bool

	// PushDownPartitionFilter narrows manifest files by their partition
	// stats before they are even opened (SPEC_FULL.md's supplemented
	// cross-partition delete-pushdown feature). Nothing in this module sets
	// it; package commit has no OVERWRITE path.
	PushDownPartitionFilter func(partitionStats []byte) bool

	// CurrentBucketCount is the table's current static bucket count B,
	// used by step 6's BucketCountMismatch validation and step 3's
	// "only when file's total-buckets == current B" gating.
	CurrentBucketCount int32
	// SkipBucketCountCheck disables step 6's validation, "used during
	// OVERWRITE" per spec.md §4.4 step 6.
	SkipBucketCountCheck bool

	// Parallelism bounds step 3's concurrent manifest-file reads
	// (spec.md §4.4: "bounded by scan.manifest.parallelism").
	Parallelism int
}

// Planner resolves snapshot manifest lists into a live-file plan.
type Planner struct {
	FS    vfs.FS
	Root  string
	Cache *ManifestCache
}

// Plan is spec.md §4.4's output: "A list of ManifestEntry describing live
// data files after ADD/DELETE merging."
type Plan struct {
	Entries []manifest.Entry
}

// Run executes the full six-step algorithm against snap.
func (p *Planner) Run(ctx context.Context, snap *manifest.Snapshot, f Filter) (*Plan, error) {
	listNames := p.resolveManifestLists(snap, f.Kind)

	var allListEntries []manifest.ListEntry
	for _, name := range listNames {
		entries, err := p.readManifestList(name)
		if err != nil {
			return nil, err
		}
		allListEntries = append(allListEntries, entries...)
	}

	// Step 2: filter manifest files by partition-level aggregated
	// statistics before opening them.
	retained := allListEntries[:0:0]
	for _, le := range allListEntries {
		if f.PushDownPartitionFilter != nil && !f.PushDownPartitionFilter(le.PartitionStats) {
			continue
		}
		retained = append(retained, le)
	}

	// Step 3: read retained manifest files in bounded parallel.
	parallelism := f.Parallelism
	if parallelism <= 0 {
		parallelism = 8
	}
	fileEntries := make([][]manifest.Entry, len(retained))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for i, le := range retained {
		i, le := i, le
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			entries, err := p.readManifestFile(le.ManifestFileName, f)
			if err != nil {
				return err
			}
			fileEntries[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []manifest.Entry
	for _, fe := range fileEntries {
		all = append(all, fe...)
	}

	// Step 4: merge ADD/DELETE entries per (partition, bucket, file-name).
	merged := mergeAddDelete(all)

	// Step 5: further per-entry filters.
	var out []manifest.Entry
	for _, e := range merged {
		if f.BucketFilter != nil && !f.BucketFilter(e.Bucket) {
			continue
		}
		if f.LevelFilter != nil && !f.LevelFilter(e.File.Level) {
			continue
		}
		if f.ValueFilter != nil && !f.ValueFilter(e.File.ValueStats) {
			continue
		}
		out = append(out, e)
	}

	// Step 6: validate total-buckets == B.
	if !f.SkipBucketCountCheck && f.CurrentBucketCount > 0 {
		for _, e := range out {
			if e.TotalBuckets != f.CurrentBucketCount {
				return nil, paimon.Errorf(paimon.ErrKindBucketCountMismatch,
					"manifest entry %q has total-buckets %d, table is configured for %d",
					e.File.FileName, e.TotalBuckets, f.CurrentBucketCount)
			}
		}
	}

	return &Plan{Entries: out}, nil
}

// resolveManifestLists implements step 1: "Resolve manifest-file list from
// the snapshot per scan-kind (ALL = base; DELTA = delta-manifests;
// CHANGELOG = changelog-manifests, with backward compatibility for
// pre-v0.3 snapshots where APPEND deltas substitute)."
func (p *Planner) resolveManifestLists(snap *manifest.Snapshot, kind Kind) []string {
	switch kind {
	case KindDelta:
		return nonEmpty(snap.DeltaManifestList)
	case KindChangelog:
		if snap.ChangelogManifestList != "" {
			return nonEmpty(snap.ChangelogManifestList)
		}
		if snap.Version < manifest.CurrentSnapshotVersion && snap.CommitKind == manifest.CommitAppend {
			return nonEmpty(snap.DeltaManifestList)
		}
		return nil
	default:
		return nonEmpty(snap.BaseManifestList)
	}
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}

func (p *Planner) readManifestList(name string) ([]manifest.ListEntry, error) {
	if p.Cache != nil {
		if cached, ok := p.Cache.GetList(name); ok {
			return cached, nil
		}
	}
	data, err := p.FS.ReadFile(manifest.ManifestPath(p.Root, name))
	if err != nil {
		return nil, err
	}
	entries, err := manifest.DecodeList(data)
	if err != nil {
		return nil, err
	}
	if p.Cache != nil {
		p.Cache.PutList(name, entries)
	}
	return entries, nil
}

func (p *Planner) readManifestFile(name string, f Filter) ([]manifest.Entry, error) {
	var entries []manifest.Entry
	if p.Cache != nil {
		if cached, ok := p.Cache.GetFile(name); ok {
			entries = cached
		}
	}
	if entries == nil {
		data, err := p.FS.ReadFile(manifest.ManifestPath(p.Root, name))
		if err != nil {
			return nil, err
		}
		decoded, err := manifest.DecodeFile(data)
		if err != nil {
			return nil, err
		}
		entries = decoded
		if p.Cache != nil {
			p.Cache.PutFile(name, entries)
		}
	}

	var out []manifest.Entry
	for _, e := range entries {
		if f.PartitionFilter != nil && !f.PartitionFilter(e.Partition) {
			continue
		}
		if f.BucketFilter != nil && e.TotalBuckets == f.CurrentBucketCount && !f.BucketFilter(e.Bucket) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// mergeAddDelete implements step 4: "a file appears in the output iff its
// net balance is +1."
func mergeAddDelete(entries []manifest.Entry) []manifest.Entry {
	balance := make(map[manifest.EntryKey]int)
	latest := make(map[manifest.EntryKey]manifest.Entry)
	var order []manifest.EntryKey
	for _, e := range entries {
		k := e.Key()
		if _, seen := balance[k]; !seen {
			order = append(order, k)
		}
		if e.Kind == manifest.EntryAdd {
			balance[k]++
		} else {
			balance[k]--
		}
		latest[k] = e
	}
	var out []manifest.Entry
	for _, k := range order {
		if balance[k] > 0 {
			out = append(out, latest[k])
		}
	}
	return out
}
