package globalindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	paimon "github.com/siyangzeng/paimon-go"
)

func newTestIndex(t *testing.T) *Index {
	idx, err := Open(Options{
		Dir:          t.TempDir(),
		ShardIndex:   0,
		ShardCount:   1,
		TargetRowNum: 3,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

// TestResolveCrossPartitionUpsert reproduces spec.md §8 scenario 2: "PK
// {id}, partition {pt}, engine=deduplicate. Write (id=7, pt=A, v=10), then
// (id=7, pt=B, v=20). After commit, reading all partitions returns exactly
// one row (id=7, pt=B, v=20); a synthetic DELETE for (id=7, pt=A) exists in
// the changelog."
func TestResolveCrossPartitionUpsert(t *testing.T) {
	idx := newTestIndex(t)

	first := paimon.Record{
		Kind: paimon.RowKindInsert, Key: []byte("7"),
		Partition: []byte("A"), Value: []byte("v=10"), Sequence: 1,
	}
	out, err := idx.Resolve(first, paimon.MergeEngineDeduplicate)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, int32(0), out[0].Bucket)

	second := paimon.Record{
		Kind: paimon.RowKindInsert, Key: []byte("7"),
		Partition: []byte("B"), Value: []byte("v=20"), Sequence: 2,
	}
	out, err = idx.Resolve(second, paimon.MergeEngineDeduplicate)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, paimon.RowKindDelete, out[0].Kind)
	require.Equal(t, []byte("A"), out[0].Partition)
	require.Equal(t, paimon.RowKindInsert, out[1].Kind)
	require.Equal(t, []byte("B"), out[1].Partition)
}

func TestResolveSamePartitionReusesBucket(t *testing.T) {
	idx := newTestIndex(t)
	rec := paimon.Record{Key: []byte("k1"), Partition: []byte("A"), Kind: paimon.RowKindInsert}
	first, err := idx.Resolve(rec, paimon.MergeEngineDeduplicate)
	require.NoError(t, err)

	rec2 := paimon.Record{Key: []byte("k1"), Partition: []byte("A"), Kind: paimon.RowKindInsert, Sequence: 1}
	second, err := idx.Resolve(rec2, paimon.MergeEngineDeduplicate)
	require.NoError(t, err)
	require.Equal(t, first[0].Bucket, second[0].Bucket)
}

func TestResolvePartialUpdateUsesOldPartition(t *testing.T) {
	idx := newTestIndex(t)
	first := paimon.Record{Key: []byte("k1"), Partition: []byte("A"), Kind: paimon.RowKindInsert}
	_, err := idx.Resolve(first, paimon.MergeEnginePartialUpdate)
	require.NoError(t, err)

	second := paimon.Record{Key: []byte("k1"), Partition: []byte("B"), Kind: paimon.RowKindInsert}
	out, err := idx.Resolve(second, paimon.MergeEnginePartialUpdate)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, []byte("A"), out[0].Partition)
}

func TestResolveFirstRowSkipsNew(t *testing.T) {
	idx := newTestIndex(t)
	first := paimon.Record{Key: []byte("k1"), Partition: []byte("A"), Kind: paimon.RowKindInsert}
	_, err := idx.Resolve(first, paimon.MergeEngineFirstRow)
	require.NoError(t, err)

	second := paimon.Record{Key: []byte("k1"), Partition: []byte("B"), Kind: paimon.RowKindInsert}
	out, err := idx.Resolve(second, paimon.MergeEngineFirstRow)
	require.NoError(t, err)
	require.Nil(t, out)
}
