package iocache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/safeupdate/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportHistory(t *testing.T) {
	store := newSQLiteHistory(t)
	runID, err := store.BeginRun(time.Now(), map[string]any{"cooldown_days": 7})
	require.NoError(t, err)
	require.NoError(t, store.RecordDecision(runID, schema.DecisionRecord{PackageName: "rack", Version: "3.1.0", Allowed: true, Reason: "satisfies_minimum_age"}))
	require.NoError(t, store.EndRun(runID, time.Now(), 1, 0))

	out := filepath.Join(t.TempDir(), "export")
	require.NoError(t, ExportHistory(store, out))

	for _, suffix := range []string{".runs.parquet", ".decisions.parquet"} {
		info, err := os.Stat(out + suffix)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestExportHistoryErrors(t *testing.T) {
	assert.Error(t, ExportHistory(&MockHistoryStore{}, ""))
	assert.Error(t, ExportHistory(nil, "out"))

	empty := &MockHistoryStore{}
	empty.On("GetStatus").Return(schema.HistoryStatus{Backend: "sqlite"}, nil)
	assert.ErrorContains(t, ExportHistory(empty, "out"), "no history data")

	broken := &MockHistoryStore{}
	broken.On("GetStatus").Return(schema.HistoryStatus{}, errors.New("boom"))
	assert.ErrorContains(t, ExportHistory(broken, "out"), "boom")
}
