package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptrun/internal/domain"
)

func TestBuildRequest(t *testing.T) {
	req, err := BuildRequest(
		[]string{"F:I1:T", "G:I:U", "F:I2:T", "F:I1:T", "F:I1:T2"},
		[]string{"H"},
	)
	require.NoError(t, err)

	want := domain.TestRunRequest{Functions: []domain.FunctionTestSelection{
		{Name: "F", Tests: []domain.TestSelection{
			{Name: "T", Impls: []string{"I1", "I2"}},
			{Name: "T2", Impls: []string{"I1"}},
		}},
		{Name: "G", Tests: []domain.TestSelection{{Name: "U", Impls: []string{"I"}}}},
		{Name: "H", RunAllAvailableTests: true},
	}}
	assert.Equal(t, want, req)
}

func TestBuildRequest_AllTestsOfFunction(t *testing.T) {
	req, err := BuildRequest([]string{"F:", "F:I:T"}, []string{"F"})
	require.NoError(t, err)

	require.Len(t, req.Functions, 1)
	assert.True(t, req.Functions[0].RunAllAvailableTests)
	assert.Len(t, req.Functions[0].Tests, 1)
}

func TestBuildRequest_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		tests     []string
		functions []string
	}{
		{"missing impl", []string{"F:T"}, nil},
		{"empty part", []string{"F::T"}, nil},
		{"too many parts", []string{"F:I:T:X"}, nil},
		{"only colon", []string{":"}, nil},
		{"empty function", nil, []string{" "}},
		{"function with colon", nil, []string{"F:I"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRequest(tt.tests, tt.functions)
			assert.Error(t, err)
		})
	}
}

func TestBuildRequest_Empty(t *testing.T) {
	req, err := BuildRequest(nil, nil)
	require.NoError(t, err)
	assert.True(t, req.IsEmpty())
}

func TestLoadRequestFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "request.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "functions": [
    {"name": "F", "tests": [{"name": "T", "impls": ["I1", "I2"]}]},
    {"name": "G", "runAllAvailableTests": true, "tests": []}
  ]
}`), 0644))

	req, err := LoadRequestFile(path)
	require.NoError(t, err)
	require.Len(t, req.Functions, 2)
	assert.Len(t, req.Expand(), 2)
	assert.True(t, req.Functions[1].RunAllAvailableTests)

	t.Run("empty request", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.json")
		require.NoError(t, os.WriteFile(empty, []byte(`{"functions": []}`), 0644))
		_, err := LoadRequestFile(empty)
		assert.ErrorIs(t, err, ErrEmptyRequest)
	})

	t.Run("invalid json", func(t *testing.T) {
		broken := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(broken, []byte(`{`), 0644))
		_, err := LoadRequestFile(broken)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRequestFile(filepath.Join(dir, "missing.json"))
		assert.Error(t, err)
	})
}
