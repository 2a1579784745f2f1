package filecodec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/siyangzeng/paimon-go/internal/base"
	"github.com/siyangzeng/paimon-go/vfs"
)

func TestFakeCodecRoundTrips(t *testing.T) {
	fs := vfs.NewMemFS()
	c := &FakeCodec{FS: fs}

	rows := []Row{
		{Key: base.MakeInternalKey([]byte("a"), 1, base.RowKindInsert), Value: []byte("va")},
		{Key: base.MakeInternalKey([]byte("c"), 3, base.RowKindInsert), Value: []byte("vc")},
		{Key: base.MakeInternalKey([]byte("b"), 2, base.RowKindDelete), Value: nil},
	}

	meta, err := c.WriteFile("/data/f1", rows)
	require.NoError(t, err)
	require.Equal(t, int64(3), meta.RowCount)
	require.Equal(t, []byte("a"), meta.MinKey)
	require.Equal(t, []byte("c"), meta.MaxKey)
	require.Equal(t, base.SeqNum(1), meta.MinSequenceNumber)
	require.Equal(t, base.SeqNum(3), meta.MaxSequenceNumber)

	got, err := c.ReadFile("/data/f1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []byte("a"), got[0].Key.UserKey)
	require.Equal(t, []byte("va"), got[0].Value)
	require.Equal(t, base.RowKindDelete, got[2].Key.Kind())
}

func TestFakeCodecStatsEmptyFile(t *testing.T) {
	fs := vfs.NewMemFS()
	c := &FakeCodec{FS: fs}
	meta, err := c.WriteFile("/data/empty", nil)
	require.NoError(t, err)
	require.Equal(t, int64(0), meta.RowCount)
	require.Nil(t, meta.MinKey)
}
