package mergeengine

import paimon "github.com/siyangzeng/paimon-go"

// AggregateFunc is one column aggregator from spec.md §4.5's `aggregate`
// engine table: "sum, max, min, last-non-null, list-agg …".
type AggregateFunc string

const (
	AggSum          AggregateFunc = "sum"
	AggMax          AggregateFunc = "max"
	AggMin          AggregateFunc = "min"
	AggLastNonNull  AggregateFunc = "last_non_null_value"
	AggListAgg      AggregateFunc = "listagg"
)

// listAggSeparator matches the delimiter Paimon's own list-agg aggregator
// documents as its default.
const listAggSeparator = ","

// Aggregate implements spec.md §4.5's `aggregate` engine: "Per-column
// aggregator functions ... folded over the key's version sequence." Numeric
// aggregators (sum/max/min) operate on paimon.EncodeInt64-encoded columns,
// the same simplification PartialUpdate documents: full per-type numeric
// dispatch belongs to the file codec, not this accumulator.
//
// The Open Question spec.md §9 leaves unresolved — "behaviour under
// aggregate when a key migrates partitions is undefined" — is resolved
// here by treating DELETE and UPDATE_BEFORE as no-ops that still advance
// the accumulator's sequence watermark without folding any field, so a
// migrating key's aggregate simply carries forward unchanged at its old
// location until a genuine INSERT/UPDATE_AFTER arrives at the new one.
type Aggregate struct {
	schema *paimon.Schema
	funcs  []AggregateFunc

	have   bool
	fields [][]byte
	maxSeq paimon.SeqNum
	meta   paimon.Record
}

// NewAggregate builds an Aggregate accumulator for schema, using
// opts.FieldAggregateFunctions to select each column's aggregator and
// defaulting unconfigured columns to last-non-null, matching how Paimon
// treats columns with no explicit `fields.<field>.aggregate-function`.
func NewAggregate(schema *paimon.Schema, opts *paimon.CoreOptions) *Aggregate {
	funcs := make([]AggregateFunc, len(schema.Columns))
	for i, col := range schema.Columns {
		if fn, ok := opts.FieldAggregateFunctions[col.Name]; ok {
			funcs[i] = AggregateFunc(fn)
		} else {
			funcs[i] = AggLastNonNull
		}
	}
	return &Aggregate{schema: schema, funcs: funcs}
}

func (m *Aggregate) Reset() {
	m.have = false
	m.fields = nil
}

func (m *Aggregate) Add(rec paimon.Record) error {
	if rec.Kind == paimon.RowKindDelete || rec.Kind == paimon.RowKindUpdateBefore {
		if rec.Sequence >= m.maxSeq {
			m.maxSeq = rec.Sequence
		}
		return nil
	}

	row, err := paimon.DecodeBinaryRow(rec.Value)
	if err != nil {
		return err
	}
	if len(row) != len(m.schema.Columns) {
		return paimon.Errorf(paimon.ErrKindSchemaIncompatible,
			"aggregate: row has %d fields, schema has %d", len(row), len(m.schema.Columns))
	}

	if !m.have {
		m.fields = make([][]byte, len(row))
		for i, v := range row {
			if v != nil {
				m.fields[i] = append([]byte(nil), v...)
			}
		}
		m.have = true
		m.maxSeq = rec.Sequence
		m.meta = rec
		return nil
	}

	for i, v := range row {
		if v == nil {
			continue
		}
		m.fields[i] = foldOne(m.funcs[i], m.fields[i], v)
	}

	if rec.Sequence >= m.maxSeq {
		m.maxSeq = rec.Sequence
		m.meta = rec
	}
	return nil
}

func foldOne(fn AggregateFunc, acc, next []byte) []byte {
	if acc == nil {
		return append([]byte(nil), next...)
	}
	switch fn {
	case AggSum:
		return paimon.EncodeInt64(paimon.DecodeInt64(acc) + paimon.DecodeInt64(next))
	case AggMax:
		if paimon.DecodeInt64(next) > paimon.DecodeInt64(acc) {
			return append([]byte(nil), next...)
		}
		return acc
	case AggMin:
		if paimon.DecodeInt64(next) < paimon.DecodeInt64(acc) {
			return append([]byte(nil), next...)
		}
		return acc
	case AggListAgg:
		out := make([]byte, 0, len(acc)+len(listAggSeparator)+len(next))
		out = append(out, acc...)
		out = append(out, listAggSeparator...)
		out = append(out, next...)
		return out
	case AggLastNonNull:
		fallthrough
	default:
		return append([]byte(nil), next...)
	}
}

func (m *Aggregate) GetResult() (paimon.Record, bool) {
	if !m.have {
		return paimon.Record{}, false
	}
	out := m.meta.Clone()
	out.Kind = paimon.RowKindInsert
	out.Sequence = m.maxSeq
	out.Value = paimon.EncodeBinaryRow(m.fields)
	return out, true
}
