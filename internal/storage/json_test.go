package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptrun/internal/config"
	"ptrun/internal/domain"
	"ptrun/internal/runstate"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.New()
	cfg.ProjectPath = t.TempDir()
	return cfg
}

func record(status domain.RunStatus, code int, started time.Time) RunRecord {
	return RunRecord{
		ID:         uuid.New(),
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Transport:  config.TransportProcess,
		Snapshot: runstate.Snapshot{
			Results: []domain.TestCaseResult{
				{FullTestName: "F:I:T", FunctionName: "F", ImplName: "I", TestName: "T", Status: domain.TestStatusPassed},
			},
			RunStatus: status,
			ExitCode:  runstate.Code(code),
		},
		Log: "ok\n",
	}
}

func TestJSONStorage_SaveAndList(t *testing.T) {
	cfg := newTestConfig(t)
	s := NewJSONStorage(cfg)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	first := record(domain.RunStatusCompleted, 0, base)
	second := record(domain.RunStatusError, 1, base.Add(time.Minute))
	require.NoError(t, s.Save(first))
	require.NoError(t, s.Save(second))

	_, err := os.Stat(cfg.GetOutputPath())
	require.NoError(t, err)

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, first.Snapshot, runs[1].Snapshot)
	assert.True(t, first.StartedAt.Equal(runs[1].StartedAt))
	assert.Equal(t, 2*time.Second, runs[1].Duration())
	assert.Equal(t, 1, runs[1].Counts()[domain.TestStatusPassed])

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	limited, err := s.List(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestJSONStorage_HistoryLimit(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.HistoryLimit = 3
	s := NewJSONStorage(cfg)

	base := time.Now()
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		rec := record(domain.RunStatusCompleted, 0, base.Add(time.Duration(i)*time.Second))
		ids = append(ids, rec.ID)
		require.NoError(t, s.Save(rec))
	}

	runs, err := s.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[4], runs[0].ID)
	assert.Equal(t, ids[2], runs[2].ID)
}

func TestJSONStorage_Empty(t *testing.T) {
	s := NewJSONStorage(newTestConfig(t))

	runs, err := s.List(0)
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = s.Latest()
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestJSONStorage_Corrupt(t *testing.T) {
	cfg := newTestConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.GetOutputPath()), 0755))
	require.NoError(t, os.WriteFile(cfg.GetOutputPath(), []byte("{"), 0644))

	_, err := NewJSONStorage(cfg).List(0)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	cfg := newTestConfig(t)

	s, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &JSONStorage{}, s)

	cfg.StorageDriver = "sqlite"
	_, err = New(cfg)
	assert.ErrorIs(t, err, config.ErrUnknownStorage)
}
