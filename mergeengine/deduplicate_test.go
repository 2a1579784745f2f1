package mergeengine

import (
	"testing"

	"github.com/stretchr/testify/require"

	paimon "github.com/siyangzeng/paimon-go"
)

func TestDeduplicateHighestSequenceWins(t *testing.T) {
	m := &Deduplicate{}
	require.NoError(t, m.Add(paimon.Record{Sequence: 1, Kind: paimon.RowKindInsert}))
	require.NoError(t, m.Add(paimon.Record{Sequence: 3, Kind: paimon.RowKindInsert}))
	require.NoError(t, m.Add(paimon.Record{Sequence: 2, Kind: paimon.RowKindInsert}))
	out, ok := m.GetResult()
	require.True(t, ok)
	require.Equal(t, paimon.SeqNum(3), out.Sequence)
}

func TestDeduplicateDeleteWinsAtEqualSequence(t *testing.T) {
	m := &Deduplicate{}
	require.NoError(t, m.Add(paimon.Record{Sequence: 5, Kind: paimon.RowKindInsert}))
	require.NoError(t, m.Add(paimon.Record{Sequence: 5, Kind: paimon.RowKindDelete}))
	out, ok := m.GetResult()
	require.True(t, ok)
	require.Equal(t, paimon.RowKindDelete, out.Kind)
}

func TestFirstRowKeepsLowestSequence(t *testing.T) {
	m := &FirstRow{}
	require.NoError(t, m.Add(paimon.Record{Sequence: 3, Kind: paimon.RowKindInsert}))
	require.NoError(t, m.Add(paimon.Record{Sequence: 1, Kind: paimon.RowKindInsert}))
	require.NoError(t, m.Add(paimon.Record{Sequence: 2, Kind: paimon.RowKindInsert}))
	out, ok := m.GetResult()
	require.True(t, ok)
	require.Equal(t, paimon.SeqNum(1), out.Sequence)
}
