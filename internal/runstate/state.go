// Package runstate holds the authoritative record of a test run.
//
// State is mutated by the protocol dispatcher and the run controller and
// observed through a Listener, which receives a deep copy after every
// mutation. The listener is invoked outside the state lock, so it may call
// back into State.
package runstate

import (
	"sync"

	"ptrun/internal/domain"
)

// Snapshot is a point-in-time copy of the run, safe to hand to other goroutines
type Snapshot struct {
	Results   []domain.TestCaseResult `json:"results"`
	RunStatus domain.RunStatus        `json:"runStatus"`
	ExitCode  *int                    `json:"exitCode,omitempty"`
	TestURL   *string                 `json:"testUrl,omitempty"`
}

// Listener observes every mutation of a State
type Listener func(Snapshot)

// State is the run state machine
type State struct {
	mu       sync.Mutex
	results  []domain.TestCaseResult
	index    map[string]int
	status   domain.RunStatus
	exitCode *int
	testURL  *string
	listener Listener
}

// New creates an empty State in NOT_STARTED
func New() *State {
	return &State{
		index:  make(map[string]int),
		status: domain.RunStatusNotStarted,
	}
}

// SetListener registers the observer; nil removes it
func (s *State) SetListener(l Listener) {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()
}

// Initialize replaces all results with one compiling row per
// function x test x impl and moves the run to RUNNING.
func (s *State) Initialize(req domain.TestRunRequest) {
	s.mu.Lock()
	cases := req.Expand()
	s.results = make([]domain.TestCaseResult, 0, len(cases))
	s.index = make(map[string]int, len(cases))
	for _, tc := range cases {
		key := tc.FullTestName()
		s.index[key] = len(s.results)
		s.results = append(s.results, domain.TestCaseResult{
			FullTestName: key,
			FunctionName: tc.FunctionName,
			TestName:     tc.TestName,
			ImplName:     tc.ImplName,
			Status:       domain.TestStatusCompiling,
		})
	}
	s.status = domain.RunStatusRunning
	s.exitCode = nil
	s.testURL = nil
	s.notifyLocked()
}

// Clear empties the results and returns the run to NOT_STARTED
func (s *State) Clear() {
	s.mu.Lock()
	s.results = nil
	s.index = make(map[string]int)
	s.status = domain.RunStatusNotStarted
	s.exitCode = nil
	s.testURL = nil
	s.notifyLocked()
}

// SetExitCode finalizes the run from a transport signal.
// A nil code means the run was cancelled. Once ERROR, exit 0 does not
// bring the run back to COMPLETED.
func (s *State) SetExitCode(code *int) {
	s.mu.Lock()
	switch {
	case code == nil:
		s.status = domain.RunStatusNotStarted
		s.exitCode = nil
	case *code == 0 && s.status != domain.RunStatusError:
		s.status = domain.RunStatusCompleted
		s.exitCode = intPtr(*code)
	default:
		s.status = domain.RunStatusError
		s.exitCode = intPtr(*code)
	}
	s.notifyLocked()
}

// SetTestURL records the dashboard URL and queues every test still compiling
func (s *State) SetTestURL(url string) {
	s.mu.Lock()
	s.testURL = &url
	for i := range s.results {
		if s.results[i].Status == domain.TestStatusCompiling {
			s.results[i].Status = domain.TestStatusQueued
		}
	}
	s.notifyLocked()
}

// UpdateTestStatus sets the status of one test and, when errData is not
// nil, its output error. It reports false when no row has the key.
func (s *State) UpdateTestStatus(key string, status domain.TestStatus, errData *string) bool {
	return s.update(key, func(r *domain.TestCaseResult) {
		r.Status = status
		if errData != nil {
			r.Output.Error = strPtr(*errData)
		}
	})
}

// OutputUpdate carries the fields of a model invocation log; nil fields
// keep whatever the row already has.
type OutputUpdate struct {
	Error   *string
	Parsed  *string
	Raw     *string
	EventID string
	SpanID  string
}

// ApplyOutput merges a model invocation result into one test
func (s *State) ApplyOutput(key string, out OutputUpdate) bool {
	return s.update(key, func(r *domain.TestCaseResult) {
		if out.Error != nil {
			r.Output.Error = strPtr(*out.Error)
		}
		if out.Parsed != nil {
			r.Output.Parsed = strPtr(*out.Parsed)
		}
		if out.Raw != nil {
			r.Output.Raw = strPtr(*out.Raw)
		}
		if s.testURL != nil {
			r.URL = strPtr(dashboardLink(*s.testURL, out.EventID, out.SpanID))
		}
	})
}

// AppendPartial concatenates a streamed delta onto the test's partial raw
// output. A non-nil parsed value replaces the previous partial parse.
func (s *State) AppendPartial(key, delta string, parsed *string) bool {
	return s.update(key, func(r *domain.TestCaseResult) {
		raw := delta
		if r.PartialOutput.Raw != nil {
			raw = *r.PartialOutput.Raw + delta
		}
		r.PartialOutput.Raw = &raw
		if parsed != nil {
			r.PartialOutput.Parsed = strPtr(*parsed)
		}
	})
}

// RunStatus returns the current run status
func (s *State) RunStatus() domain.RunStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// TestURL returns the dashboard URL, if one was received
func (s *State) TestURL() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.testURL == nil {
		return "", false
	}
	return *s.testURL, true
}

// Has reports whether the run contains a row with the key
func (s *State) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[key]
	return ok
}

// Snapshot returns a deep copy of the current run
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *State) update(key string, mutate func(r *domain.TestCaseResult)) bool {
	s.mu.Lock()
	i, ok := s.index[key]
	if !ok {
		s.mu.Unlock()
		return false
	}
	mutate(&s.results[i])
	s.notifyLocked()
	return true
}

// notifyLocked releases the lock before calling the listener
func (s *State) notifyLocked() {
	l := s.listener
	if l == nil {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	l(snap)
}

func (s *State) snapshotLocked() Snapshot {
	snap := Snapshot{
		Results:   make([]domain.TestCaseResult, len(s.results)),
		RunStatus: s.status,
	}
	for i, r := range s.results {
		snap.Results[i] = copyResult(r)
	}
	if s.exitCode != nil {
		snap.ExitCode = intPtr(*s.exitCode)
	}
	if s.testURL != nil {
		snap.TestURL = strPtr(*s.testURL)
	}
	return snap
}

func copyResult(r domain.TestCaseResult) domain.TestCaseResult {
	c := r
	c.Output = domain.TestOutput{
		Error:  clone(r.Output.Error),
		Parsed: clone(r.Output.Parsed),
		Raw:    clone(r.Output.Raw),
	}
	c.PartialOutput = domain.PartialOutput{
		Raw:    clone(r.PartialOutput.Raw),
		Parsed: clone(r.PartialOutput.Parsed),
	}
	c.URL = clone(r.URL)
	return c
}

func clone(p *string) *string {
	if p == nil {
		return nil
	}
	return strPtr(*p)
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }
