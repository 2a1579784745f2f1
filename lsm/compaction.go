package lsm

// Picker implements the "universal-compaction variant" of spec.md §4.1:
// trigger/stop thresholds on sorted-run count, and a size-ratio heuristic
// selecting the contiguous prefix of runs that minimises write
// amplification. Grounded on pebble's compaction_picker.go
// (compactionPickerByScore), adapted from pebble's per-level score-driven
// selection to the flat sorted-run list universal compaction operates
// over.
type Picker struct {
	CompactionTrigger int
	StopTrigger       int
	// SizeRatio bounds how much larger the next run's size may be,
	// relative to the accumulated size of the runs already selected,
	// before the prefix selection stops extending. spec.md §4.1: "extend
	// while the next run's size is within a configured ratio of the
	// accumulated size." A ratio of 1.0 means "no more than double."
	SizeRatio float64
	// MinRunsPerCompaction is the fewest runs a single compaction will
	// merge (below this, merging isn't worth the write amplification).
	MinRunsPerCompaction int
}

// DefaultPicker returns a Picker configured with spec.md §6's documented
// defaults.
func DefaultPicker(trigger, stop int) *Picker {
	if trigger <= 0 {
		trigger = 5
	}
	if stop <= 0 {
		stop = trigger + 1
	}
	return &Picker{
		CompactionTrigger:     trigger,
		StopTrigger:           stop,
		SizeRatio:             1.0,
		MinRunsPerCompaction:  2,
	}
}

// ShouldSchedule reports whether the current sorted-run count warrants
// scheduling an asynchronous compaction (spec.md §4.1: "If count ≥
// num-sorted-run.compaction-trigger, schedule an asynchronous compaction").
func (p *Picker) ShouldSchedule(runCount int) bool {
	return runCount >= p.CompactionTrigger
}

// ShouldStall reports whether runCount has reached the stop-trigger, at
// which point writes must block until compaction drains (spec.md §4.1).
func (p *Picker) ShouldStall(runCount int) bool {
	return runCount >= p.StopTrigger
}

// Pick selects the contiguous prefix of runs to merge. runs is ordered
// newest-first (runs[0] is the most recently produced, smallest run, as a
// fresh level-0 flush always is). Returns the selected runs and the
// destination level they should be merged into, or ok=false if no
// beneficial compaction exists.
func (p *Picker) Pick(runs []Run) (selected []Run, destLevel int32, ok bool) {
	if len(runs) < p.MinRunsPerCompaction {
		return nil, 0, false
	}

	accumulated := runs[0].Size
	end := 1
	for end < len(runs) {
		next := runs[end]
		if float64(next.Size) > (1+p.SizeRatio)*float64(accumulated) && end >= p.MinRunsPerCompaction {
			break
		}
		accumulated += next.Size
		end++
	}
	if end < p.MinRunsPerCompaction {
		return nil, 0, false
	}

	selected = runs[:end]
	destLevel = maxLevel(selected)
	if destLevel == 0 {
		destLevel = 1
	}
	return selected, destLevel, true
}

// PickFull selects every run, used by the full-compaction changelog
// producer (SPEC_FULL.md's changelog package) which needs a compaction
// that observes every live version of every key at once.
func (p *Picker) PickFull(runs []Run) (selected []Run, destLevel int32, ok bool) {
	if len(runs) == 0 {
		return nil, 0, false
	}
	destLevel = maxLevel(runs)
	if destLevel == 0 {
		destLevel = 1
	}
	return runs, destLevel, true
}

func maxLevel(runs []Run) int32 {
	var max int32
	for _, r := range runs {
		if r.Level > max {
			max = r.Level
		}
	}
	return max
}
