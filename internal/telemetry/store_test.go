package telemetry

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteMetricsStore {
	t.Helper()
	store, err := OpenSQLiteMetricsStore(filepath.Join(t.TempDir(), "telemetry", "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteMetricsStore_OperationCounts_Accumulate(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveOperationCounts("2026-10-18", map[Operation]int64{OpSearch: 10, OpThemes: 2}))
	require.NoError(t, store.SaveOperationCounts("2026-10-18", map[Operation]int64{OpSearch: 5}))
	require.NoError(t, store.SaveOperationCounts("2026-10-19", map[Operation]int64{OpSearch: 1}))

	day, err := store.GetOperationCounts("2026-10-18", "2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, int64(15), day[OpSearch])
	assert.Equal(t, int64(2), day[OpThemes])

	both, err := store.GetOperationCounts("2026-10-18", "2026-10-19")
	require.NoError(t, err)
	assert.Equal(t, int64(16), both[OpSearch])
}

func TestSQLiteMetricsStore_TopTerms(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"学而": 3, "论语": 1}))
	require.NoError(t, store.UpsertTermCounts(map[string]int64{"论语": 4}))
	require.NoError(t, store.UpsertTermCounts(nil))

	top, err := store.GetTopTerms(1)
	require.NoError(t, err)
	assert.Equal(t, []TermCount{{Term: "论语", Count: 5}}, top)
}

func TestSQLiteMetricsStore_ZeroResultQueries_Trimmed(t *testing.T) {
	store := openTestStore(t)

	batch := make([]string, 0, zeroResultRetention+5)
	for i := 0; i < zeroResultRetention+5; i++ {
		batch = append(batch, "q"+string(rune('a'+i%26)))
	}
	require.NoError(t, store.AddZeroResultQueries(batch, time.Now()))
	require.NoError(t, store.AddZeroResultQueries([]string{"latest"}, time.Now()))

	got, err := store.GetZeroResultQueries(1000)
	require.NoError(t, err)
	assert.Len(t, got, zeroResultRetention)
	assert.Equal(t, "latest", got[0])
}

func TestSQLiteMetricsStore_LatencyCounts(t *testing.T) {
	store := openTestStore(t)

	require.NoError(t, store.SaveLatencyCounts("2026-10-19", map[LatencyBucket]int64{BucketP10: 7, BucketP500: 1}))
	require.NoError(t, store.SaveLatencyCounts("2026-10-19", map[LatencyBucket]int64{BucketP10: 3}))

	got, err := store.GetLatencyCounts("2026-10-01", "2026-10-31")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got[BucketP10])
	assert.Equal(t, int64(1), got[BucketP500])
}

func TestSQLiteMetricsStore_SharedConnectionNotClosed(t *testing.T) {
	db, err := sql.Open(driverName, filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, InitTelemetrySchema(db))

	store, err := NewSQLiteMetricsStore(db)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	assert.NoError(t, db.Ping())
}

func TestNewSQLiteMetricsStore_RequiresDB(t *testing.T) {
	_, err := NewSQLiteMetricsStore(nil)
	assert.Error(t, err)
}

func TestQueryMetrics_PersistsThroughSQLite(t *testing.T) {
	// Given: a collector writing to SQLite
	path := filepath.Join(t.TempDir(), "metrics.db")
	store, err := OpenSQLiteMetricsStore(path)
	require.NoError(t, err)
	cfg := DefaultQueryMetricsConfig()
	cfg.FlushInterval = 0
	m := NewQueryMetricsWithConfig(store, cfg)

	// When: recording and closing
	m.Record(QueryEvent{Operation: OpSearch, Keyword: "学而", ResultCount: 2})
	m.Record(QueryEvent{Operation: OpSearch, Keyword: "nothing", ResultCount: 0})
	require.NoError(t, m.Close())

	// Then: a fresh store sees the aggregates
	reopened, err := OpenSQLiteMetricsStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	today := time.Now().Format("2006-01-02")
	ops, err := reopened.GetOperationCounts(today, today)
	require.NoError(t, err)
	assert.Equal(t, int64(2), ops[OpSearch])

	zero, err := reopened.GetZeroResultQueries(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"nothing"}, zero)
}
