package lsm

import (
	"time"

	"github.com/siyangzeng/paimon-go/filecodec"
	"github.com/siyangzeng/paimon-go/internal/manifest"
)

// flushLocked drains the buffer into one level-0 file, per spec.md §4.1:
// "one level-0 file per flush, stats computed during write." w.mu must
// already be held. A drain of zero entries is a no-op — PrepareCommit
// calls this unconditionally and an idle writer has nothing to flush.
func (w *Writer) flushLocked() error {
	drained := w.buf.Drain()
	if len(drained) == 0 {
		return nil
	}

	rows := make([]filecodec.Row, len(drained))
	for i, e := range drained {
		rows[i] = filecodec.Row{Key: e.Key, Value: e.Value}
	}

	start := time.Now()
	name := w.newDataFilePath()
	meta, err := w.codec.WriteFile(name, rows)
	if err != nil {
		return err
	}
	meta.Level = 0

	w.level0 = append(w.level0, meta)
	w.pendingAdds = append(w.pendingAdds, manifest.Entry{
		Kind:         manifest.EntryAdd,
		Partition:    w.partition,
		Bucket:       w.bucket,
		TotalBuckets: w.totalBuckets,
		File:         meta,
	})

	if w.metrics != nil {
		w.metrics.FlushCount.Inc()
		w.metrics.FlushLatency.Observe(time.Since(start).Seconds())
		w.metrics.RecordSortedRunCount(int64(len(w.runsSnapshotLocked())))
	}
	if w.changelog != nil {
		if err := w.emitWriteChangelogLocked(drained); err != nil {
			return err
		}
	}

	w.checkCompactionLocked()
	w.waitForStallLocked()
	return nil
}

// emitWriteChangelogLocked feeds every flushed version through the
// changelog producer's per-write path. Flushing is the only point a
// freshly-written record is observed in isolation (before compaction
// folds it together with earlier versions), matching spec.md §4.1's
// "the changelog producer observes records as they are written, not as
// they are merged."
func (w *Writer) emitWriteChangelogLocked(entries []FlushedEntry) error {
	for _, e := range entries {
		rec := recordFromEntry(w.partition, w.bucket, e)
		changes, err := w.changelog.OnWrite(rec)
		if err != nil {
			return err
		}
		w.pendingChangelog = append(w.pendingChangelog, changes...)
	}
	return nil
}

// waitForStallLocked blocks the caller while the sorted-run count is at
// or above the stop-trigger and a background compaction is in flight. It
// returns once no compaction is in flight, even if the count is still at
// or above the stop-trigger (no compaction is running that could lower
// it). w.mu must already be held; cond.Wait releases and reacquires it.
func (w *Writer) waitForStallLocked() {
	for w.picker.ShouldStall(len(w.runsSnapshotLocked())) && w.compactionInFlight {
		w.cond.Wait()
	}
}

// checkCompactionLocked schedules an asynchronous compaction if the
// sorted-run count has crossed the trigger and none is already running,
// per spec.md §4.1: "If count ≥ num-sorted-run.compaction-trigger,
// schedule an asynchronous compaction." w.mu must already be held.
func (w *Writer) checkCompactionLocked() {
	if w.compactionInFlight {
		return
	}
	runs := w.runsSnapshotLocked()
	if !w.picker.ShouldSchedule(len(runs)) {
		return
	}
	selected, destLevel, ok := w.picker.Pick(runs)
	if !ok {
		return
	}
	w.compactionInFlight = true
	w.reqCh <- compactionRequest{runs: selected, destLevel: destLevel}
}
