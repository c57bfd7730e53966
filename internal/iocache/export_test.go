package iocache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/vitals/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExecuteRunLogExport(t *testing.T) {
	ctx := context.Background()

	t.Run("requires output file", func(t *testing.T) {
		assert.ErrorContains(t, ExecuteRunLogExport(ctx, &MockDataStore{}, ""), "--output-file")
	})

	t.Run("empty run log", func(t *testing.T) {
		store := &MockDataStore{}
		store.On("GetStatus").Return(schema.StoreStatus{Backend: "sqlite", Connected: true}, nil)
		assert.ErrorContains(t, ExecuteRunLogExport(ctx, store, filepath.Join(t.TempDir(), "out")), "no runs")
	})

	t.Run("writes runs", func(t *testing.T) {
		now := time.Now().UTC()
		store := &MockDataStore{}
		store.On("GetStatus").Return(schema.StoreStatus{Backend: "sqlite", Connected: true, TotalRuns: 1}, nil)
		store.On("ListRuns", mock.Anything, "", 0).Return([]schema.RunRecord{
			{RunID: "r1", ClientID: "ana", StartedAt: now, FinishedAt: now, Status: schema.RunSucceeded},
		}, nil)

		out := filepath.Join(t.TempDir(), "export")
		require.NoError(t, ExecuteRunLogExport(ctx, store, out))
		assert.FileExists(t, out+".runs.parquet")
		store.AssertExpectations(t)
	})
}
