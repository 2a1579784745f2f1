package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	m := New()
	m.CommitConflicts.Inc()
	m.CommitConflicts.Inc()
	require.Equal(t, float64(2), testutil.ToFloat64(m.CommitConflicts))

	m.CompactionSuccesses.Inc()
	require.Equal(t, float64(1), testutil.ToFloat64(m.CompactionSuccesses))
}

func TestSortedRunAndCompactionDebtSnapshot(t *testing.T) {
	m := New()
	m.RecordSortedRunCount(1)
	m.RecordSortedRunCount(4)
	m.RecordSortedRunCount(2)
	m.RecordCompactionDebt(1024)
	m.RecordCompactionDebt(4096)

	snap := m.Snapshot()
	require.Equal(t, int64(4), snap.SortedRunCountMax)
	// With 3 significant digits, 4096 falls in a bucket 4 wide; Max reports
	// the highest value equivalent to it, 4099.
	require.Equal(t, int64(4099), snap.CompactionDebtMax)
}

func TestCollectorsReturnsEveryCollector(t *testing.T) {
	m := New()
	require.Len(t, m.Collectors(), 6)
}
