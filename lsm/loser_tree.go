package lsm

import (
	"container/heap"

	"github.com/siyangzeng/paimon-go/internal/base"
)

// LoserTree performs the k-way merge spec.md §4.1 describes: "For k input
// iterators a loser-tree (tournament) maintains the current winner in
// O(log k) per step." A binary min-heap achieves the same O(log k)
// winner-selection bound as an explicit tournament tree and is the
// idiomatic Go structure for it — this is exactly what pebble's own
// mergingIterHeap (merging_iter_heap.go) is, despite pebble's docs calling
// it a "heap" rather than a "loser tree": the two names describe the same
// asymptotic technique. Ordering matches original_source's
// LoserTreeTest.java and spec.md §4.1: "primary by key ascending, tie-break
// by sequence ascending," so that popping the heap surfaces every version
// of a key consecutively — "adjustForNextLoop" in the Java source is simply
// what happens naturally each time the heap root is popped and
// re-pushed here.
type LoserTree struct {
	cmp   base.Compare
	items []*treeItem
}

type treeItem struct {
	it  Iterator
	key base.InternalKey
}

// NewLoserTree builds a tree over iters, consuming their first entry from
// each. Exhausted iterators are dropped immediately.
func NewLoserTree(cmp base.Compare, iters []Iterator) *LoserTree {
	t := &LoserTree{cmp: cmp}
	for _, it := range iters {
		if it.Next() {
			t.items = append(t.items, &treeItem{it: it, key: it.Key()})
		}
	}
	heap.Init(t)
	return t
}

func (t *LoserTree) Len() int { return len(t.items) }

func (t *LoserTree) Less(i, j int) bool {
	return base.CompareForMerge(t.cmp, t.items[i].key, t.items[j].key) < 0
}

func (t *LoserTree) Swap(i, j int) { t.items[i], t.items[j] = t.items[j], t.items[i] }

func (t *LoserTree) Push(x interface{}) { t.items = append(t.items, x.(*treeItem)) }

func (t *LoserTree) Pop() interface{} {
	n := len(t.items)
	item := t.items[n-1]
	t.items = t.items[:n-1]
	return item
}

// Valid reports whether any input iterator still has entries.
func (t *LoserTree) Valid() bool {
	return len(t.items) > 0
}

// Winner returns the current smallest (key, sequence) pair across all
// inputs without advancing.
func (t *LoserTree) Winner() (base.InternalKey, []byte) {
	top := t.items[0]
	return top.key, top.it.Value()
}

// Advance consumes the current winner and refills the tree from its
// source iterator, or drops that iterator if it is now exhausted. This is
// the step that "re-materialises losers between duplicate-key clusters"
// (original_source's adjustForNextLoop): the next call to Winner will
// surface the next version of the same key if another input iterator still
// holds one, since the heap invariant re-sorts on every Advance.
func (t *LoserTree) Advance() error {
	top := t.items[0]
	if top.it.Next() {
		top.key = top.it.Key()
		heap.Fix(t, 0)
		return nil
	}
	if err := top.it.Close(); err != nil {
		return err
	}
	heap.Pop(t)
	return nil
}

// Drain consumes the entire tree into a single ascending-ordered slice.
// Used by compaction's mergeRuns and by the external sort buffer's
// intermediate spill merges (spec.md §4.6); the sort buffer's final merge
// steps through the tree with Winner/Advance instead.
func (t *LoserTree) Drain() ([]FlushedEntry, error) {
	var out []FlushedEntry
	for t.Valid() {
		key, value := t.Winner()
		out = append(out, FlushedEntry{Key: key, Value: append([]byte(nil), value...)})
		if err := t.Advance(); err != nil {
			return nil, err
		}
	}
	return out, nil
}
