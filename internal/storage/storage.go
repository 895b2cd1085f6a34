package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ptrun/internal/config"
	"ptrun/internal/domain"
	"ptrun/internal/runstate"
)

var ErrNoRuns = errors.New("no recorded test runs")

// RunRecord is one finished run as kept in the history
type RunRecord struct {
	ID         uuid.UUID         `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Transport  string            `json:"transport"`
	Snapshot   runstate.Snapshot `json:"snapshot"`
	Log        string            `json:"log,omitempty"`
}

// Duration is the wall time of the run
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Counts tallies the run's results per status
func (r RunRecord) Counts() map[domain.TestStatus]int {
	return domain.StatusCounts(r.Snapshot.Results)
}

// Storage persists the history of finished runs. List and Latest return
// the newest runs first.
type Storage interface {
	Save(record RunRecord) error
	Latest() (*RunRecord, error)
	List(limit int) ([]RunRecord, error)
	Close() error
}

// New opens the storage selected by cfg.StorageDriver
func New(cfg *config.Config) (Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageJSON:
		return NewJSONStorage(cfg), nil
	case config.StorageMySQL:
		return NewMySQLStorage(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownStorage, cfg.StorageDriver)
	}
}
