package runstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptrun/internal/domain"
)

func exampleRequest() domain.TestRunRequest {
	return domain.TestRunRequest{Functions: []domain.FunctionTestSelection{
		{Name: "F", Tests: []domain.TestSelection{{Name: "T", Impls: []string{"I1", "I2"}}}},
	}}
}

func TestState_Initialize(t *testing.T) {
	s := New()
	var calls int
	s.SetListener(func(Snapshot) { calls++ })

	s.Initialize(exampleRequest())

	snap := s.Snapshot()
	require.Len(t, snap.Results, 2)
	assert.Equal(t, domain.RunStatusRunning, snap.RunStatus)
	for i, impl := range []string{"I1", "I2"} {
		r := snap.Results[i]
		assert.Equal(t, "F", r.FunctionName)
		assert.Equal(t, "T", r.TestName)
		assert.Equal(t, impl, r.ImplName)
		assert.Equal(t, domain.TestStatusCompiling, r.Status)
	}
	assert.Nil(t, snap.ExitCode)
	assert.Nil(t, snap.TestURL)
	assert.Equal(t, 1, calls)
}

func TestState_InitializeReplacesPreviousRun(t *testing.T) {
	s := New()
	s.Initialize(exampleRequest())
	s.SetTestURL("https://dash.example/run")
	s.SetExitCode(Code(3))

	s.Initialize(domain.TestRunRequest{Functions: []domain.FunctionTestSelection{
		{Name: "G", Tests: []domain.TestSelection{{Name: "T", Impls: []string{"I"}}}},
	}})

	snap := s.Snapshot()
	require.Len(t, snap.Results, 1)
	assert.Equal(t, "G:I:T", snap.Results[0].FullTestName)
	assert.Equal(t, domain.RunStatusRunning, snap.RunStatus)
	assert.Nil(t, snap.ExitCode)
	assert.Nil(t, snap.TestURL)
	assert.False(t, s.Has("F:I1:T"))
}

func TestState_SetExitCode(t *testing.T) {
	tests := []struct {
		name     string
		before   func(s *State)
		code     *int
		expected domain.RunStatus
	}{
		{name: "clean exit completes", code: Code(0), expected: domain.RunStatusCompleted},
		{name: "non-zero exit errors", code: Code(2), expected: domain.RunStatusError},
		{name: "negative exit errors", code: Code(-1), expected: domain.RunStatusError},
		{name: "nil resets", code: nil, expected: domain.RunStatusNotStarted},
		{
			name:     "clean exit after error stays error",
			before:   func(s *State) { s.SetExitCode(Code(1)) },
			code:     Code(0),
			expected: domain.RunStatusError,
		},
		{
			name:     "nil after error resets",
			before:   func(s *State) { s.SetExitCode(Code(1)) },
			code:     nil,
			expected: domain.RunStatusNotStarted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Initialize(exampleRequest())
			if tt.before != nil {
				tt.before(s)
			}
			s.SetExitCode(tt.code)
			assert.Equal(t, tt.expected, s.RunStatus())
		})
	}
}

func TestState_SetExitCodeIsIdempotent(t *testing.T) {
	s := New()
	s.Initialize(exampleRequest())
	s.SetExitCode(Code(0))
	first := s.Snapshot()
	s.SetExitCode(Code(0))
	assert.Equal(t, first, s.Snapshot())
}

func TestState_Clear(t *testing.T) {
	s := New()
	s.Initialize(exampleRequest())
	s.SetTestURL("https://dash.example")
	s.SetExitCode(Code(1))

	var last Snapshot
	s.SetListener(func(snap Snapshot) { last = snap })
	s.Clear()

	assert.Empty(t, last.Results)
	assert.Equal(t, domain.RunStatusNotStarted, last.RunStatus)
	assert.Nil(t, last.ExitCode)
	assert.Nil(t, last.TestURL)
}

func TestState_SetTestURLQueuesCompilingOnly(t *testing.T) {
	s := New()
	s.Initialize(exampleRequest())
	require.True(t, s.UpdateTestStatus("F:I1:T", domain.TestStatusRunning, nil))

	s.SetTestURL("https://dash.example/run/1")

	snap := s.Snapshot()
	assert.Equal(t, domain.TestStatusRunning, snap.Results[0].Status)
	assert.Equal(t, domain.TestStatusQueued, snap.Results[1].Status)
	require.NotNil(t, snap.TestURL)
	assert.Equal(t, "https://dash.example/run/1", *snap.TestURL)
}

func TestState_UpdateTestStatus(t *testing.T) {
	s := New()
	s.Initialize(exampleRequest())

	t.Run("only the addressed row changes", func(t *testing.T) {
		require.True(t, s.UpdateTestStatus("F:I1:T", domain.TestStatusRunning, nil))
		snap := s.Snapshot()
		assert.Equal(t, domain.TestStatusRunning, snap.Results[0].Status)
		assert.Equal(t, domain.TestStatusCompiling, snap.Results[1].Status)
	})

	t.Run("error data is recorded", func(t *testing.T) {
		errData := `{"message":"boom"}`
		require.True(t, s.UpdateTestStatus("F:I2:T", domain.TestStatusFailed, &errData))
		snap := s.Snapshot()
		require.NotNil(t, snap.Results[1].Output.Error)
		assert.Equal(t, errData, *snap.Results[1].Output.Error)
	})

	t.Run("unknown key is a no-op", func(t *testing.T) {
		var calls int
		s.SetListener(func(Snapshot) { calls++ })
		defer s.SetListener(nil)

		before := s.Snapshot()
		assert.False(t, s.UpdateTestStatus("F:nope:T", domain.TestStatusPassed, nil))
		assert.Equal(t, before, s.Snapshot())
		assert.Zero(t, calls)
	})
}

func TestState_ApplyOutput(t *testing.T) {
	s := New()
	s.Initialize(exampleRequest())

	parsed := `{"a":1}`
	raw := "raw text"
	require.True(t, s.ApplyOutput("F:I1:T", OutputUpdate{Parsed: &parsed, Raw: &raw, EventID: "e1", SpanID: "r1"}))

	snap := s.Snapshot()
	out := snap.Results[0].Output
	require.NotNil(t, out.Parsed)
	assert.Equal(t, parsed, *out.Parsed)
	require.NotNil(t, out.Raw)
	assert.Equal(t, raw, *out.Raw)
	assert.Nil(t, out.Error)
	assert.Nil(t, snap.Results[0].URL, "no dashboard URL known yet")

	s.SetTestURL("https://dash.example/run?project=p")
	errMsg := "model refused"
	require.True(t, s.ApplyOutput("F:I1:T", OutputUpdate{Error: &errMsg, EventID: "e2", SpanID: "r2"}))

	snap = s.Snapshot()
	out = snap.Results[0].Output
	require.NotNil(t, out.Error)
	assert.Equal(t, errMsg, *out.Error)
	assert.Equal(t, parsed, *out.Parsed, "nil fields keep the previous value")
	assert.Equal(t, raw, *out.Raw)
	require.NotNil(t, snap.Results[0].URL)
	assert.Equal(t, "https://dash.example/run?eid=e2&project=p&s_eid=r2", *snap.Results[0].URL)
}

func TestState_AppendPartial(t *testing.T) {
	s := New()
	s.Initialize(exampleRequest())

	first := "v1"
	second := "v2"
	require.True(t, s.AppendPartial("F:I1:T", "Hel", &first))
	require.True(t, s.AppendPartial("F:I1:T", "lo", nil))
	require.True(t, s.AppendPartial("F:I1:T", "!", &second))

	p := s.Snapshot().Results[0].PartialOutput
	require.NotNil(t, p.Raw)
	assert.Equal(t, "Hello!", *p.Raw)
	require.NotNil(t, p.Parsed)
	assert.Equal(t, "v2", *p.Parsed)

	assert.False(t, s.AppendPartial("missing", "x", nil))
}

func TestState_SnapshotIsDetached(t *testing.T) {
	s := New()
	s.Initialize(exampleRequest())
	require.True(t, s.AppendPartial("F:I1:T", "a", nil))

	snap := s.Snapshot()
	*snap.Results[0].PartialOutput.Raw = "mutated"
	snap.Results[1].Status = domain.TestStatusPassed

	fresh := s.Snapshot()
	assert.Equal(t, "a", *fresh.Results[0].PartialOutput.Raw)
	assert.Equal(t, domain.TestStatusCompiling, fresh.Results[1].Status)
}

func TestState_ListenerMayReadState(t *testing.T) {
	s := New()
	var seen domain.RunStatus
	s.SetListener(func(Snapshot) { seen = s.RunStatus() })
	s.Initialize(exampleRequest())
	assert.Equal(t, domain.RunStatusRunning, seen)
}
