package changelog

import (
	"testing"

	"github.com/stretchr/testify/require"

	paimon "github.com/siyangzeng/paimon-go"
)

func TestNoneModeDropsEverything(t *testing.T) {
	p := New(ModeNone, nil)
	out, err := p.OnWrite(paimon.Record{Kind: paimon.RowKindInsert, Key: []byte("k")})
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestInputModeMirrorsVerbatim(t *testing.T) {
	p := New(ModeInput, nil)
	rec := paimon.Record{Kind: paimon.RowKindInsert, Key: []byte("k"), Value: []byte("v")}
	out, err := p.OnWrite(rec)
	require.NoError(t, err)
	require.Equal(t, []paimon.Record{rec}, out)
}

func TestLookupModeSynthesizesUpdatePair(t *testing.T) {
	lookup := func(key []byte) ([]byte, bool, error) {
		return []byte("old-value"), true, nil
	}
	p := New(ModeLookup, lookup)
	rec := paimon.Record{Kind: paimon.RowKindInsert, Key: []byte("k"), Value: []byte("new-value")}
	out, err := p.OnWrite(rec)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, paimon.RowKindUpdateBefore, out[0].Kind)
	require.Equal(t, []byte("old-value"), out[0].Value)
	require.Equal(t, paimon.RowKindUpdateAfter, out[1].Kind)
	require.Equal(t, []byte("new-value"), out[1].Value)
}

func TestLookupModeFirstInsertHasNoPreimage(t *testing.T) {
	lookup := func(key []byte) ([]byte, bool, error) { return nil, false, nil }
	p := New(ModeLookup, lookup)
	rec := paimon.Record{Kind: paimon.RowKindInsert, Key: []byte("k"), Value: []byte("v1")}
	out, err := p.OnWrite(rec)
	require.NoError(t, err)
	require.Equal(t, []paimon.Record{rec}, out)
}

func TestLookupModeDeleteOfUnknownKeyEmitsNothing(t *testing.T) {
	lookup := func(key []byte) ([]byte, bool, error) { return nil, false, nil }
	p := New(ModeLookup, lookup)
	rec := paimon.Record{Kind: paimon.RowKindDelete, Key: []byte("k")}
	out, err := p.OnWrite(rec)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestFullCompactionOnlyEmitsOnFullMerge(t *testing.T) {
	p := New(ModeFullCompaction, nil)
	before := paimon.Record{Kind: paimon.RowKindInsert, Key: []byte("k"), Value: []byte("old")}
	after := paimon.Record{Kind: paimon.RowKindInsert, Key: []byte("k"), Value: []byte("new")}

	out, err := p.OnCompaction(CompactionResult{IsFullMerge: false, Before: []paimon.Record{before}, After: []paimon.Record{after}})
	require.NoError(t, err)
	require.Nil(t, out)

	out, err = p.OnCompaction(CompactionResult{IsFullMerge: true, Before: []paimon.Record{before}, After: []paimon.Record{after}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, paimon.RowKindUpdateBefore, out[0].Kind)
	require.Equal(t, paimon.RowKindUpdateAfter, out[1].Kind)
}

func TestFullCompactionInsertAndDeleteNetChanges(t *testing.T) {
	p := New(ModeFullCompaction, nil)
	insertedKey := paimon.Record{Kind: paimon.RowKindInsert, Key: []byte("k1"), Value: []byte("v1")}
	deletedKey := paimon.Record{Kind: paimon.RowKindInsert, Key: []byte("k2"), Value: []byte("v2")}

	result := CompactionResult{
		IsFullMerge: true,
		Before:      []paimon.Record{{Kind: paimon.RowKindDelete, Key: []byte("k1")}, deletedKey},
		After:       []paimon.Record{insertedKey, {Kind: paimon.RowKindDelete, Key: []byte("k2")}},
	}
	out, err := p.OnCompaction(result)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, paimon.RowKindInsert, out[0].Kind)
	require.Equal(t, []byte("k1"), out[0].Key)
	require.Equal(t, paimon.RowKindDelete, out[1].Kind)
	require.Equal(t, []byte("k2"), out[1].Key)
}
