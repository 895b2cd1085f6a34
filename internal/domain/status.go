package domain

import (
	"fmt"
	"strings"
)

// TestStatus is the per-test lifecycle state
type TestStatus string

const (
	TestStatusCompiling TestStatus = "compiling"
	TestStatusQueued    TestStatus = "queued"
	TestStatusRunning   TestStatus = "running"
	TestStatusPassed    TestStatus = "passed"
	TestStatusFailed    TestStatus = "failed"
)

// ParseTestStatus parses a status as sent by the runner (case-insensitive)
func ParseTestStatus(s string) (TestStatus, error) {
	switch st := TestStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case TestStatusCompiling, TestStatusQueued, TestStatusRunning, TestStatusPassed, TestStatusFailed:
		return st, nil
	default:
		return "", fmt.Errorf("unknown test status %q", s)
	}
}

// IsTerminal reports whether the test finished within the run
func (s TestStatus) IsTerminal() bool {
	return s == TestStatusPassed || s == TestStatusFailed
}

// RunStatus is the run-level lifecycle state
type RunStatus string

const (
	RunStatusNotStarted RunStatus = "NOT_STARTED"
	RunStatusRunning    RunStatus = "RUNNING"
	RunStatusCompleted  RunStatus = "COMPLETED"
	RunStatusError      RunStatus = "ERROR"
)

// IsTerminal reports whether the run reached COMPLETED or ERROR
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusError
}
