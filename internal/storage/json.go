package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"ptrun/internal/config"
)

// JSONStorage stores the run history in a JSON file under the configured output path.
type JSONStorage struct {
	cfg *config.Config
	mu  sync.Mutex
}

type historyFile struct {
	Runs []RunRecord `json:"runs"`
}

// NewJSONStorage returns a Storage that reads/writes the config's output JSON path.
func NewJSONStorage(cfg *config.Config) *JSONStorage {
	return &JSONStorage{cfg: cfg}
}

// Save prepends record to the history, keeping at most HistoryLimit runs.
func (s *JSONStorage) Save(record RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.load()
	if err != nil {
		return err
	}
	history.Runs = append([]RunRecord{record}, history.Runs...)
	if limit := s.cfg.HistoryLimit; limit > 0 && len(history.Runs) > limit {
		history.Runs = history.Runs[:limit]
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	path := s.cfg.GetOutputPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// Latest reads the most recent run
func (s *JSONStorage) Latest() (*RunRecord, error) {
	runs, err := s.List(1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[0], nil
}

// List returns up to limit runs; limit <= 0 returns all of them.
func (s *JSONStorage) List(limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.load()
	if err != nil {
		return nil, err
	}
	runs := history.Runs
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *JSONStorage) Close() error { return nil }

// load treats a missing file as an empty history
func (s *JSONStorage) load() (historyFile, error) {
	var history historyFile

	data, err := os.ReadFile(s.cfg.GetOutputPath())
	if errors.Is(err, fs.ErrNotExist) {
		return history, nil
	}
	if err != nil {
		return history, fmt.Errorf("read history file: %w", err)
	}
	if err := json.Unmarshal(data, &history); err != nil {
		return history, fmt.Errorf("parse history: %w", err)
	}
	return history, nil
}
