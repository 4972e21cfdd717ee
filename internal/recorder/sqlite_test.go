package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"StockDog/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRecorder_QuoteHistory(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RecordQuotes("req-1", []model.Quote{
		{Symbol: "AAPL", LastPrice: 150, Change: 2, PercentChange: 1.3},
		{Symbol: "MSFT", LastPrice: 300},
	}))
	require.NoError(t, r.RecordQuotes("req-2", []model.Quote{
		{Symbol: "AAPL", LastPrice: 151, Change: 3, PercentChange: 2},
	}))
	require.NoError(t, r.RecordQuotes("req-3", nil))

	points, err := r.QuoteHistory("aapl", 10)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 151.0, points[0].LastPrice, "newest first")
	assert.Equal(t, 150.0, points[1].LastPrice)
	assert.Equal(t, "AAPL", points[0].Symbol)

	points, err = r.QuoteHistory("AAPL", 1)
	require.NoError(t, err)
	assert.Len(t, points, 1)

	points, err = r.QuoteHistory("NONE", 0)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestSQLiteRecorder_RecordSync(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.RecordSync(&SyncEvent{
		RequestID: "req-1",
		Trigger:   "scheduled",
		Status:    "failed",
		Symbols:   []string{"AAPL", "MSFT"},
		Duration:  1500 * time.Millisecond,
		Error:     "quote provider error: timeout",
	}))

	var (
		requested int
		status    string
		ms        int64
	)
	require.NoError(t, r.db.QueryRow(`SELECT requested, status, duration_ms FROM sync_events`).Scan(&requested, &status, &ms))
	assert.Equal(t, 2, requested)
	assert.Equal(t, "failed", status)
	assert.Equal(t, int64(1500), ms)
}

func TestNoopRecorder(t *testing.T) {
	var r Recorder = NewNoopRecorder()
	assert.NoError(t, r.RecordSync(&SyncEvent{}))
	assert.NoError(t, r.RecordQuotes("x", []model.Quote{{Symbol: "A"}}))
	points, err := r.QuoteHistory("A", 5)
	assert.NoError(t, err)
	assert.Nil(t, points)
	assert.NoError(t, r.Close())
}
