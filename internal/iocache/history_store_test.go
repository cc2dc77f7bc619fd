package iocache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/safeupdate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteHistory(t *testing.T) *HistoryStoreImpl {
	t.Helper()
	store, err := NewHistoryStore(schema.SQLiteBackend, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestHistoryStoreNoneBackend(t *testing.T) {
	store, err := NewHistoryStore(schema.NoneBackend, "")
	require.NoError(t, err)

	runID, err := store.BeginRun(time.Now(), map[string]any{"cooldown_days": 14})
	assert.NoError(t, err)
	assert.Zero(t, runID)
	assert.NoError(t, store.EndRun(1, time.Now(), 3, 1))
	assert.NoError(t, store.RecordDecision(1, schema.DecisionRecord{PackageName: "rack"}))

	runs, err := store.GetAllRuns()
	assert.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, store.Close())
}

func TestHistoryStoreSQLiteLifecycle(t *testing.T) {
	store := newSQLiteHistory(t)

	start := time.Now().Add(-2 * time.Second)
	runID, err := store.BeginRun(start, map[string]any{"cooldown_days": 14})
	require.NoError(t, err)
	assert.Positive(t, runID)

	age := int64(3)
	require.NoError(t, store.RecordDecision(runID, schema.DecisionRecord{
		PackageName:    "tiny",
		Version:        "0.2.0",
		CurrentVersion: "0.1.0",
		AgeDays:        &age,
		Allowed:        false,
		Reason:         string(schema.ReasonTooNew),
		RiskSignals:    "low_downloads",
		RiskBlocked:    true,
	}))
	require.NoError(t, store.RecordDecision(runID, schema.DecisionRecord{
		PackageName: "internal-gem",
		Version:     "1.0.0",
		Allowed:     true,
		Reason:      string(schema.ReasonIgnored),
	}))
	require.NoError(t, store.EndRun(runID, time.Now(), 2, 1))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
	require.NotNil(t, runs[0].EndTime)
	require.NotNil(t, runs[0].RunDurationMs)
	assert.GreaterOrEqual(t, *runs[0].RunDurationMs, int64(2000))
	assert.Equal(t, int64(2), *runs[0].TotalPackages)
	assert.Equal(t, int64(1), *runs[0].BlockedPackages)
	assert.JSONEq(t, `{"cooldown_days":14}`, *runs[0].ConfigParams)

	decisions, err := store.GetAllDecisions()
	require.NoError(t, err)
	require.Len(t, decisions, 2)
	// Ordered by package name within a run
	assert.Equal(t, "internal-gem", decisions[0].PackageName)
	assert.Nil(t, decisions[0].AgeDays)
	assert.True(t, decisions[0].Allowed)
	assert.Equal(t, "tiny", decisions[1].PackageName)
	assert.Equal(t, int64(3), *decisions[1].AgeDays)
	assert.True(t, decisions[1].RiskBlocked)
	assert.False(t, decisions[1].RecordedAt.IsZero())

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalRuns)
	assert.Equal(t, runID, status.LastRunID)
	assert.Equal(t, 2, status.TotalDecisions)
	assert.Equal(t, int64(1), status.TableSizes[runsTable])
}

func TestHistoryStoreDuplicateDecision(t *testing.T) {
	store := newSQLiteHistory(t)
	runID, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)

	record := schema.DecisionRecord{PackageName: "rack", Version: "3.1.0", Reason: string(schema.ReasonTooNew)}
	require.NoError(t, store.RecordDecision(runID, record))
	assert.Error(t, store.RecordDecision(runID, record))
}

func TestHistoryStoreEndUnknownRun(t *testing.T) {
	store := newSQLiteHistory(t)
	assert.Error(t, store.EndRun(999, time.Now(), 0, 0))
}

func TestHistoryStoreReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	first, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	_, err = first.BeginRun(time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	runs, err := second.GetAllRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
