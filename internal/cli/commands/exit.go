package commands

import (
	"fmt"

	"ptrun/internal/domain"
	"ptrun/internal/runstate"
)

// ExitCodeInterrupted is returned when a run is cancelled before finishing
const ExitCodeInterrupted = 130

// ExitError carries the process exit status of a finished run
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("test run exited with status %d", e.Code)
}

// exitError maps a final snapshot to the process exit status: a run in
// ERROR keeps its exit code, a completed run with failed tests exits 1.
func exitError(snap runstate.Snapshot) error {
	switch snap.RunStatus {
	case domain.RunStatusCompleted:
		if domain.StatusCounts(snap.Results)[domain.TestStatusFailed] > 0 {
			return &ExitError{Code: 1}
		}
		return nil
	case domain.RunStatusError:
		if snap.ExitCode != nil && *snap.ExitCode != 0 {
			return &ExitError{Code: *snap.ExitCode}
		}
		return &ExitError{Code: 1}
	default:
		return &ExitError{Code: ExitCodeInterrupted}
	}
}
