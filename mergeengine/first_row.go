package mergeengine

import paimon "github.com/siyangzeng/paimon-go"

// FirstRow implements spec.md §4.5's `first-row` engine: "Keep the earliest
// record (lowest sequence) per key; drop subsequent." The exists-action
// table (spec.md §4.2) pairs this engine with SKIP_NEW, which drops a later
// insert only when its key already lives in a different partition. Later
// records for a key in the same partition still reach the LSM writer, so
// this accumulator can see several versions of a key and keeps the one
// with the lowest sequence.
type FirstRow struct {
	have  bool
	first paimon.Record
}

func (m *FirstRow) Reset() { m.have = false }

func (m *FirstRow) Add(rec paimon.Record) error {
	if !m.have || rec.Sequence < m.first.Sequence {
		m.first = rec
		m.have = true
	}
	return nil
}

func (m *FirstRow) GetResult() (paimon.Record, bool) {
	return m.first, m.have
}
