package mergeengine

import paimon "github.com/siyangzeng/paimon-go"

// Deduplicate implements spec.md §4.5's `deduplicate` engine: "Keep the
// record with the highest sequence. DELETE wins over INSERT at equal
// sequence."
type Deduplicate struct {
	have bool
	best paimon.Record
}

func (m *Deduplicate) Reset() { m.have = false }

func (m *Deduplicate) Add(rec paimon.Record) error {
	if !m.have {
		m.best = rec
		m.have = true
		return nil
	}
	if rec.Sequence > m.best.Sequence {
		m.best = rec
		return nil
	}
	if rec.Sequence == m.best.Sequence && rec.Kind == paimon.RowKindDelete {
		m.best = rec
	}
	return nil
}

func (m *Deduplicate) GetResult() (paimon.Record, bool) {
	return m.best, m.have
}
