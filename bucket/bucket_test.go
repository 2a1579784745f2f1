package bucket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAssignerScenario1 reproduces spec.md §8 scenario 1 verbatim: "table
// with bucket=-1, target-row-num=3, 1 assigner shard, 1 partition. Feed
// primary keys [1,2,3,4,5,6,7]. Expected bucket assignments
// [0,0,0,1,1,1,2]."
func TestAssignerScenario1(t *testing.T) {
	a := NewAssigner(0, 1, 3)
	var got []int32
	for i := 0; i < 7; i++ {
		got = append(got, a.Assign())
	}
	require.Equal(t, []int32{0, 0, 0, 1, 1, 1, 2}, got)
}

func TestAssignerRespectsShardOwnership(t *testing.T) {
	// 2 shards: shard 0 owns even buckets, shard 1 owns odd.
	shard0 := NewAssigner(0, 2, 2)
	shard1 := NewAssigner(1, 2, 2)
	for i := 0; i < 4; i++ {
		require.Equal(t, int32(0), shard0.Assign()%2)
	}
	for i := 0; i < 4; i++ {
		require.Equal(t, int32(1), shard1.Assign()%2)
	}
}

func TestStaticHashStableAndInRange(t *testing.T) {
	key := []byte("row-key-42")
	h1 := StaticHash(key, 16)
	h2 := StaticHash(key, 16)
	require.Equal(t, h1, h2)
	require.GreaterOrEqual(t, h1, int32(0))
	require.Less(t, h1, int32(16))
}
