package execution

import (
	"context"

	"ptrun/internal/domain"
	"ptrun/internal/runstate"
)

// Executor runs test selections one at a time
type Executor interface {
	RunTest(ctx context.Context, req domain.TestRunRequest) error
	CancelExistingTestRun(ctx context.Context) error
	Wait(ctx context.Context) (runstate.Snapshot, error)
	Snapshot() runstate.Snapshot
}

var _ Executor = (*Controller)(nil)
