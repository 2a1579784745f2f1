package lsm

import (
	paimon "github.com/siyangzeng/paimon-go"
	"github.com/siyangzeng/paimon-go/changelog"
	"github.com/siyangzeng/paimon-go/filecodec"
	"github.com/siyangzeng/paimon-go/internal/base"
	"github.com/siyangzeng/paimon-go/internal/manifest"
)

// runCompactionExecutor is the bucket's single-threaded compaction
// executor, spec.md §4.1: "compaction runs as an independent task... the
// writer publishes compaction requests to a dedicated executor and
// reintegrates results." It is the one goroutine that ever touches
// w.mergeFn, so the merge function's Reset/Add/GetResult sequence needs
// no locking of its own. Modelled on pebble's compaction goroutine
// (compaction.go's flushAndCompact loop) reduced to message-passing
// instead of pebble's shared-mutex-plus-callback structure, per the
// Design Notes.
func (w *Writer) runCompactionExecutor() {
	defer close(w.doneCh)
	for req := range w.reqCh {
		result := w.doCompaction(req)

		w.mu.Lock()
		w.applyCompactionResultLocked(result)
		w.compactionInFlight = false
		w.cond.Broadcast()
		w.mu.Unlock()
	}
}

// doCompaction merges req's input runs through the configured merge
// function and writes one output file at req.destLevel. It touches no
// Writer state under lock — req.runs is an immutable snapshot handed off
// by checkCompactionLocked/ForceFullCompaction, so this can run entirely
// outside w.mu.
func (w *Writer) doCompaction(req compactionRequest) compactionResult {
	merged, err := w.mergeRuns(req.runs)
	if err != nil {
		return compactionResult{err: err}
	}

	var changelogRecs []paimon.Record
	if req.full && w.changelog != nil {
		changelogRecs, err = w.fullCompactionChangelog(req, merged)
		if err != nil {
			return compactionResult{err: err}
		}
	}

	rows := make([]filecodec.Row, len(merged))
	for i, rec := range merged {
		rows[i] = filecodec.Row{Key: base.MakeInternalKey(rec.Key, rec.Sequence, rec.Kind), Value: rec.Value}
	}
	name := w.newDataFilePath()
	meta, err := w.codec.WriteFile(name, rows)
	if err != nil {
		return compactionResult{err: err}
	}
	meta.Level = req.destLevel

	var removed []manifest.FileMeta
	for _, r := range req.runs {
		removed = append(removed, r.Files...)
	}
	return compactionResult{removed: removed, added: []manifest.FileMeta{meta}, changelog: changelogRecs}
}

// fullCompactionChangelog computes the before/after pair
// changelog.ModeFullCompaction needs. "Before" is the merge of only the
// runs already resident at the destination level — the state readers saw
// before this compaction folded in the newer runs (typically level-0
// flushes); "after" is the full merge result. A key absent from the
// before set is represented as a DELETE sentinel, which OnCompaction
// already treats as "didn't exist before."
func (w *Writer) fullCompactionChangelog(req compactionRequest, after []paimon.Record) ([]paimon.Record, error) {
	var oldRuns []Run
	for _, r := range req.runs {
		if r.Level == req.destLevel {
			oldRuns = append(oldRuns, r)
		}
	}
	before, err := w.mergeRuns(oldRuns)
	if err != nil {
		return nil, err
	}
	beforeByKey := make(map[string]paimon.Record, len(before))
	for _, rec := range before {
		beforeByKey[string(rec.Key)] = rec
	}
	alignedBefore := make([]paimon.Record, len(after))
	for i, rec := range after {
		if b, ok := beforeByKey[string(rec.Key)]; ok {
			alignedBefore[i] = b
		} else {
			alignedBefore[i] = paimon.Record{Kind: paimon.RowKindDelete, Key: rec.Key, Partition: w.partition, Bucket: w.bucket}
		}
	}
	return w.changelog.OnCompaction(changelog.CompactionResult{IsFullMerge: true, Before: alignedBefore, After: after})
}

// mergeRuns reads every file in runs, k-way merges them through the
// loser tree, and folds each key's run of versions through the merge
// function. A nil/empty runs returns no records without touching the
// merge function.
func (w *Writer) mergeRuns(runs []Run) ([]paimon.Record, error) {
	var iters []Iterator
	for _, r := range runs {
		for _, f := range r.Files {
			fileRows, err := w.codec.ReadFile(f.FileName)
			if err != nil {
				return nil, err
			}
			entries := make([]FlushedEntry, len(fileRows))
			for i, row := range fileRows {
				entries[i] = FlushedEntry{Key: row.Key, Value: row.Value}
			}
			iters = append(iters, NewSliceIterator(entries))
		}
	}
	if len(iters) == 0 {
		return nil, nil
	}
	tree := NewLoserTree(w.cmp, iters)
	drained, err := tree.Drain()
	if err != nil {
		return nil, err
	}
	return w.foldMerged(drained)
}

// foldMerged groups the loser tree's ascending-(key, sequence) output by
// key and folds each group through w.mergeFn, per spec.md §4.1: "the
// merge function emits a single logical record per key."
func (w *Writer) foldMerged(drained []FlushedEntry) ([]paimon.Record, error) {
	var out []paimon.Record
	var groupKey []byte
	haveGroup := false

	flushGroup := func() error {
		if !haveGroup {
			return nil
		}
		if rec, ok := w.mergeFn.GetResult(); ok {
			out = append(out, rec)
		}
		return nil
	}

	for _, e := range drained {
		rec := recordFromEntry(w.partition, w.bucket, e)
		if !haveGroup || w.cmp(rec.Key, groupKey) != 0 {
			if err := flushGroup(); err != nil {
				return nil, err
			}
			w.mergeFn.Reset()
			groupKey = rec.Key
			haveGroup = true
		}
		if err := w.mergeFn.Add(rec); err != nil {
			return nil, err
		}
	}
	if err := flushGroup(); err != nil {
		return nil, err
	}
	return out, nil
}

// applyCompactionResultLocked reintegrates a completed compaction into
// the writer's level layout, or, on failure, leaves the inputs untouched
// for a future retry — spec.md §4.1: "compaction failure is non-fatal:
// the engine logs, retains the original inputs, and retries next cycle."
// w.mu must already be held.
func (w *Writer) applyCompactionResultLocked(result compactionResult) {
	if result.err != nil {
		w.logger.Errorf("bucket %d compaction failed, retaining inputs: %v", w.bucket, result.err)
		if w.metrics != nil {
			w.metrics.CompactionFailures.Inc()
		}
		return
	}

	removedByName := make(map[string]bool, len(result.removed))
	for _, f := range result.removed {
		removedByName[f.FileName] = true
	}

	filtered := w.level0[:0:0]
	for _, f := range w.level0 {
		if !removedByName[f.FileName] {
			filtered = append(filtered, f)
		}
	}
	w.level0 = filtered

	for level, files := range w.levels {
		kept := files[:0:0]
		for _, f := range files {
			if !removedByName[f.FileName] {
				kept = append(kept, f)
			}
		}
		w.levels[level] = kept
	}

	for _, f := range result.added {
		w.levels[f.Level] = append(w.levels[f.Level], f)
		w.pendingAdds = append(w.pendingAdds, manifest.Entry{
			Kind:         manifest.EntryAdd,
			Partition:    w.partition,
			Bucket:       w.bucket,
			TotalBuckets: w.totalBuckets,
			File:         f,
		})
	}
	for _, f := range result.removed {
		w.pendingDeletes = append(w.pendingDeletes, manifest.Entry{
			Kind:         manifest.EntryDelete,
			Partition:    w.partition,
			Bucket:       w.bucket,
			TotalBuckets: w.totalBuckets,
			File:         f,
		})
	}
	w.pendingChangelog = append(w.pendingChangelog, result.changelog...)

	if w.metrics != nil {
		w.metrics.CompactionSuccesses.Inc()
		w.metrics.RecordSortedRunCount(int64(len(w.runsSnapshotLocked())))
		var debt int64
		for _, files := range w.levels {
			for _, f := range files {
				debt += f.FileSize
			}
		}
		w.metrics.RecordCompactionDebt(debt)
	}
}
