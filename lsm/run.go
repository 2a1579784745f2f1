package lsm

import "github.com/siyangzeng/paimon-go/internal/manifest"

// Run is one sorted run: level-0 runs are always a single file (they freely
// overlap each other); runs at level ≥ 1 may span several non-overlapping
// files but are still exactly one logical merge input, per spec.md §3.
type Run struct {
	Level int32
	Files []manifest.FileMeta
	Size  int64
}

func newRun(level int32, files []manifest.FileMeta) Run {
	var size int64
	for _, f := range files {
		size += f.FileSize
	}
	return Run{Level: level, Files: files, Size: size}
}

// sortedRunCount mirrors spec.md §4.1's "Count sorted runs = level-0 files
// + number of non-empty upper levels."
func sortedRunCount(level0 []manifest.FileMeta, levels [][]manifest.FileMeta) int {
	count := len(level0)
	for _, files := range levels {
		if len(files) > 0 {
			count++
		}
	}
	return count
}
