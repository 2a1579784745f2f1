package mergeengine

import paimon "github.com/siyangzeng/paimon-go"

// PartialUpdate implements spec.md §4.5's `partial-update` engine: "Fold
// non-null fields from successive records into the accumulator; DELETE is
// rejected unless ignore-delete; optional per-field sequence groups gate
// writes (a field updates only if its group's sequence ≥ previous group
// sequence)."
//
// Sequence-group gating is grounded on
// original_source/.../PartialUpdateMergeFunction.java: spec.md leaves the
// group-comparison operator unstated, resolved here (and recorded in
// DESIGN.md) as ">=", matching the Java source and spec.md §8 scenario 4's
// worked example (`g1=5 < 10` is rejected, `g2=10 > 5` is accepted).
//
// Field values are read and written through paimon.EncodeInt64/DecodeInt64:
// the group columns spec.md's option table names (`fields.<field>.sequence-
// group`) are always sequence-like integers, so this accumulator only needs
// integer comparison, not the full per-column type dispatch that belongs to
// the file codec.
type PartialUpdate struct {
	schema       *paimon.Schema
	ignoreDelete bool

	// groupGoverns maps a sequence-group governing column name to the list
	// of columns it gates, taken directly from CoreOptions.FieldSequenceGroups.
	groupGoverns map[string][]string
	// governedBy is the inverse index: governed column name -> its group's
	// column name. Populated once at construction.
	governedBy map[string]string

	have     bool
	fields   [][]byte
	groupSeq map[string]int64
	maxSeq   paimon.SeqNum
	meta     paimon.Record
}

// NewPartialUpdate builds a PartialUpdate accumulator for schema, wiring up
// opts.FieldSequenceGroups and opts.PartialUpdateIgnoreDelete.
func NewPartialUpdate(schema *paimon.Schema, opts *paimon.CoreOptions) *PartialUpdate {
	governedBy := make(map[string]string, len(opts.FieldSequenceGroups))
	for group, governed := range opts.FieldSequenceGroups {
		for _, f := range governed {
			governedBy[f] = group
		}
	}
	return &PartialUpdate{
		schema:       schema,
		ignoreDelete: opts.PartialUpdateIgnoreDelete,
		groupGoverns: opts.FieldSequenceGroups,
		governedBy:   governedBy,
	}
}

func (m *PartialUpdate) Reset() {
	m.have = false
	m.fields = nil
	m.groupSeq = nil
}

// Add folds rec into the accumulator. Per spec.md's Open Questions,
// UPDATE_BEFORE always raises an explicit error regardless of
// ignore-delete — the source's ambiguity here is resolved conservatively:
// ignore-delete only suppresses plain DELETEs, not retractions, since a
// silently-dropped UPDATE_BEFORE could mask a real upstream bug.
func (m *PartialUpdate) Add(rec paimon.Record) error {
	switch rec.Kind {
	case paimon.RowKindUpdateBefore:
		return paimon.Errorf(paimon.ErrKindSchemaIncompatible,
			"partial-update merge function does not support UPDATE_BEFORE records")
	case paimon.RowKindDelete:
		if m.ignoreDelete {
			return nil
		}
		return paimon.Errorf(paimon.ErrKindSchemaIncompatible,
			"partial-update merge function received a DELETE record; set partial-update.ignore-delete to drop it instead")
	}

	row, err := paimon.DecodeBinaryRow(rec.Value)
	if err != nil {
		return err
	}
	if len(row) != len(m.schema.Columns) {
		return paimon.Errorf(paimon.ErrKindSchemaIncompatible,
			"partial-update: row has %d fields, schema has %d", len(row), len(m.schema.Columns))
	}

	if !m.have {
		m.fields = append([][]byte(nil), row...)
		m.groupSeq = make(map[string]int64, len(m.groupGoverns))
		for group := range m.groupGoverns {
			if idx := m.schema.ColumnIndex(group); idx >= 0 && row[idx] != nil {
				m.groupSeq[group] = paimon.DecodeInt64(row[idx])
			}
		}
		m.have = true
		m.maxSeq = rec.Sequence
		m.meta = rec
		return nil
	}

	for group, governed := range m.groupGoverns {
		idx := m.schema.ColumnIndex(group)
		if idx < 0 || row[idx] == nil {
			continue
		}
		newVal := paimon.DecodeInt64(row[idx])
		if newVal < m.groupSeq[group] {
			continue
		}
		m.groupSeq[group] = newVal
		m.fields[idx] = row[idx]
		for _, f := range governed {
			if fi := m.schema.ColumnIndex(f); fi >= 0 && row[fi] != nil {
				m.fields[fi] = row[fi]
			}
		}
	}

	for i, col := range m.schema.Columns {
		if _, governed := m.governedBy[col.Name]; governed {
			continue
		}
		if _, isGroup := m.groupGoverns[col.Name]; isGroup {
			continue
		}
		if row[i] != nil {
			m.fields[i] = row[i]
		}
	}

	if rec.Sequence >= m.maxSeq {
		m.maxSeq = rec.Sequence
		m.meta = rec
	}
	return nil
}

func (m *PartialUpdate) GetResult() (paimon.Record, bool) {
	if !m.have {
		return paimon.Record{}, false
	}
	out := m.meta.Clone()
	out.Kind = paimon.RowKindInsert
	out.Sequence = m.maxSeq
	out.Value = paimon.EncodeBinaryRow(m.fields)
	return out, true
}
