package mergeengine

import (
	"testing"

	"github.com/stretchr/testify/require"

	paimon "github.com/siyangzeng/paimon-go"
)

// schema (k, g1, a, g2, b), matching spec.md §8 scenario 4 exactly.
func scenario4Schema() *paimon.Schema {
	return &paimon.Schema{
		Columns: []paimon.Column{
			{Name: "k", Type: paimon.TypeInt64},
			{Name: "g1", Type: paimon.TypeInt64},
			{Name: "a", Type: paimon.TypeInt64},
			{Name: "g2", Type: paimon.TypeInt64},
			{Name: "b", Type: paimon.TypeInt64},
		},
		PrimaryKeys: []string{"k"},
	}
}

func row(k, g1, a, g2, b int64) []byte {
	return paimon.EncodeBinaryRow([][]byte{
		paimon.EncodeInt64(k),
		paimon.EncodeInt64(g1),
		paimon.EncodeInt64(a),
		paimon.EncodeInt64(g2),
		paimon.EncodeInt64(b),
	})
}

func TestPartialUpdateSequenceGroups(t *testing.T) {
	schema := scenario4Schema()
	opts := &paimon.CoreOptions{
		FieldSequenceGroups: map[string][]string{
			"g1": {"a"},
			"g2": {"b"},
		},
	}
	m := NewPartialUpdate(schema, opts)

	require.NoError(t, m.Add(paimon.Record{
		Kind: paimon.RowKindInsert, Sequence: 1,
		Key: paimon.EncodeInt64(1), Value: row(1, 10, 100 /* A */, 5, 200 /* X */),
	}))
	require.NoError(t, m.Add(paimon.Record{
		Kind: paimon.RowKindInsert, Sequence: 2,
		Key: paimon.EncodeInt64(1), Value: row(1, 5, 101 /* A' */, 10, 201 /* Y */),
	}))

	out, ok := m.GetResult()
	require.True(t, ok)
	fields, err := paimon.DecodeBinaryRow(out.Value)
	require.NoError(t, err)

	// g1=5 < 10: rejected, a stays A (100).
	require.Equal(t, int64(10), paimon.DecodeInt64(fields[1]))
	require.Equal(t, int64(100), paimon.DecodeInt64(fields[2]))
	// g2=10 > 5: accepted, b becomes Y (201).
	require.Equal(t, int64(10), paimon.DecodeInt64(fields[3]))
	require.Equal(t, int64(201), paimon.DecodeInt64(fields[4]))
}

func TestPartialUpdateFirstRecordAlwaysAccepted(t *testing.T) {
	schema := scenario4Schema()
	opts := &paimon.CoreOptions{
		FieldSequenceGroups: map[string][]string{"g1": {"a"}},
	}
	m := NewPartialUpdate(schema, opts)

	require.NoError(t, m.Add(paimon.Record{
		Kind: paimon.RowKindInsert, Sequence: 1,
		Value: row(1, 0, 42, 0, 0),
	}))
	out, ok := m.GetResult()
	require.True(t, ok)
	fields, err := paimon.DecodeBinaryRow(out.Value)
	require.NoError(t, err)
	require.Equal(t, int64(42), paimon.DecodeInt64(fields[2]))
}

func TestPartialUpdateDeleteRejectedUnlessIgnored(t *testing.T) {
	schema := scenario4Schema()
	m := NewPartialUpdate(schema, &paimon.CoreOptions{})
	err := m.Add(paimon.Record{Kind: paimon.RowKindDelete, Value: row(1, 0, 0, 0, 0)})
	require.Error(t, err)

	m2 := NewPartialUpdate(schema, &paimon.CoreOptions{PartialUpdateIgnoreDelete: true})
	require.NoError(t, m2.Add(paimon.Record{Kind: paimon.RowKindDelete, Value: row(1, 0, 0, 0, 0)}))
	_, ok := m2.GetResult()
	require.False(t, ok)
}

func TestPartialUpdateUpdateBeforeAlwaysErrors(t *testing.T) {
	schema := scenario4Schema()
	m := NewPartialUpdate(schema, &paimon.CoreOptions{PartialUpdateIgnoreDelete: true})
	err := m.Add(paimon.Record{Kind: paimon.RowKindUpdateBefore, Value: row(1, 0, 0, 0, 0)})
	require.Error(t, err)
}
