package mergeengine

import (
	"testing"

	"github.com/stretchr/testify/require"

	paimon "github.com/siyangzeng/paimon-go"
)

func aggSchema() *paimon.Schema {
	return &paimon.Schema{
		Columns: []paimon.Column{
			{Name: "k", Type: paimon.TypeInt64},
			{Name: "total", Type: paimon.TypeInt64},
			{Name: "high", Type: paimon.TypeInt64},
			{Name: "tag", Type: paimon.TypeString},
		},
		PrimaryKeys: []string{"k"},
	}
}

func aggRow(k, total, high int64, tag string) []byte {
	return paimon.EncodeBinaryRow([][]byte{
		paimon.EncodeInt64(k),
		paimon.EncodeInt64(total),
		paimon.EncodeInt64(high),
		[]byte(tag),
	})
}

func TestAggregateSumMaxLastNonNull(t *testing.T) {
	opts := &paimon.CoreOptions{
		FieldAggregateFunctions: map[string]string{
			"total": string(AggSum),
			"high":  string(AggMax),
			"tag":   string(AggLastNonNull),
		},
	}
	m := NewAggregate(aggSchema(), opts)
	require.NoError(t, m.Add(paimon.Record{Sequence: 1, Kind: paimon.RowKindInsert, Value: aggRow(1, 10, 5, "x")}))
	require.NoError(t, m.Add(paimon.Record{Sequence: 2, Kind: paimon.RowKindInsert, Value: aggRow(1, 20, 3, "y")}))
	require.NoError(t, m.Add(paimon.Record{Sequence: 3, Kind: paimon.RowKindInsert, Value: aggRow(1, 5, 9, "z")}))

	out, ok := m.GetResult()
	require.True(t, ok)
	fields, err := paimon.DecodeBinaryRow(out.Value)
	require.NoError(t, err)
	require.Equal(t, int64(35), paimon.DecodeInt64(fields[1])) // 10+20+5
	require.Equal(t, int64(9), paimon.DecodeInt64(fields[2]))  // max(5,3,9)
	require.Equal(t, "z", string(fields[3]))
}

func TestAggregateDeleteDoesNotFold(t *testing.T) {
	opts := &paimon.CoreOptions{FieldAggregateFunctions: map[string]string{"total": string(AggSum)}}
	m := NewAggregate(aggSchema(), opts)
	require.NoError(t, m.Add(paimon.Record{Sequence: 1, Kind: paimon.RowKindInsert, Value: aggRow(1, 10, 0, "x")}))
	require.NoError(t, m.Add(paimon.Record{Sequence: 2, Kind: paimon.RowKindDelete}))

	out, ok := m.GetResult()
	require.True(t, ok)
	fields, err := paimon.DecodeBinaryRow(out.Value)
	require.NoError(t, err)
	require.Equal(t, int64(10), paimon.DecodeInt64(fields[1]))
}
