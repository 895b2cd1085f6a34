package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"ptrun/internal/domain"
)

var ErrEmptyRequest = errors.New("no tests selected")

// BuildRequest turns "function:impl:test" triples and bare function names
// into a request. Repeated functions and tests are merged in first-seen
// order. "function:" selects every test of the function, like a bare name.
func BuildRequest(tests, functions []string) (domain.TestRunRequest, error) {
	var b requestBuilder

	for _, spec := range tests {
		parts := strings.Split(spec, ":")
		switch {
		case len(parts) == 2 && parts[0] != "" && parts[1] == "":
			b.function(parts[0]).RunAllAvailableTests = true
		case len(parts) == 3 && parts[0] != "" && parts[1] != "" && parts[2] != "":
			b.add(parts[0], parts[1], parts[2])
		default:
			return domain.TestRunRequest{}, fmt.Errorf("invalid test %q: expected function:impl:test", spec)
		}
	}

	for _, name := range functions {
		name = strings.TrimSpace(name)
		if name == "" || strings.Contains(name, ":") {
			return domain.TestRunRequest{}, fmt.Errorf("invalid function name %q", name)
		}
		b.function(name).RunAllAvailableTests = true
	}

	return b.req, nil
}

// LoadRequestFile reads a JSON encoded request
func LoadRequestFile(path string) (domain.TestRunRequest, error) {
	var req domain.TestRunRequest

	data, err := os.ReadFile(path)
	if err != nil {
		return req, fmt.Errorf("failed to read request file: %w", err)
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return req, fmt.Errorf("failed to parse request file %s: %w", path, err)
	}
	if req.IsEmpty() {
		return req, fmt.Errorf("%s: %w", path, ErrEmptyRequest)
	}
	return req, nil
}

type requestBuilder struct {
	req domain.TestRunRequest
}

func (b *requestBuilder) function(name string) *domain.FunctionTestSelection {
	for i := range b.req.Functions {
		if b.req.Functions[i].Name == name {
			return &b.req.Functions[i]
		}
	}
	b.req.Functions = append(b.req.Functions, domain.FunctionTestSelection{Name: name})
	return &b.req.Functions[len(b.req.Functions)-1]
}

func (b *requestBuilder) add(function, impl, test string) {
	fn := b.function(function)
	for i := range fn.Tests {
		if fn.Tests[i].Name == test {
			if !slices.Contains(fn.Tests[i].Impls, impl) {
				fn.Tests[i].Impls = append(fn.Tests[i].Impls, impl)
			}
			return
		}
	}
	fn.Tests = append(fn.Tests, domain.TestSelection{Name: test, Impls: []string{impl}})
}
