package storage

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/google/uuid"

	"ptrun/internal/domain"
	"ptrun/internal/runstate"
)

// Recorder saves every run that reaches COMPLETED or ERROR, together
// with its raw output stripped of ANSI escapes. Runs that are cleared
// before finishing are not saved.
type Recorder struct {
	storage   Storage
	transport string
	logger    *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	active  bool
	started time.Time
	log     strings.Builder
	last    *RunRecord
}

func NewRecorder(s Storage, transport string, logger *slog.Logger) *Recorder {
	return &Recorder{
		storage:   s,
		transport: transport,
		logger:    logger.With("component", "recorder"),
		now:       time.Now,
	}
}

func (r *Recorder) TestStdout(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		r.log.WriteString(stripansi.Strip(text))
	}
}

func (r *Recorder) TestResults(snap runstate.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch snap.RunStatus {
	case domain.RunStatusRunning:
		if !r.active {
			r.active = true
			r.started = r.now()
			r.log.Reset()
		}
	case domain.RunStatusNotStarted:
		r.active = false
		r.log.Reset()
	case domain.RunStatusCompleted, domain.RunStatusError:
		if !r.active {
			return
		}
		r.active = false
		record := RunRecord{
			ID:         uuid.New(),
			StartedAt:  r.started,
			FinishedAt: r.now(),
			Transport:  r.transport,
			Snapshot:   snap,
			Log:        r.log.String(),
		}
		r.log.Reset()
		if err := r.storage.Save(record); err != nil {
			r.logger.Error("failed to save test run", "error", err)
			return
		}
		r.last = &record
		r.logger.Debug("saved test run", "id", record.ID, "status", snap.RunStatus)
	}
}

// Last returns the most recent record saved by this recorder
func (r *Recorder) Last() (RunRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return RunRecord{}, false
	}
	return *r.last, true
}
