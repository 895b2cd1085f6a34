package domain

import "strings"

// TestSelection picks one test of a function and the impls to run it against
type TestSelection struct {
	Name  string   `json:"name"`
	Impls []string `json:"impls"`
}

// FunctionTestSelection selects tests of a single function
type FunctionTestSelection struct {
	Name                 string          `json:"name"`
	RunAllAvailableTests bool            `json:"runAllAvailableTests,omitempty"`
	Tests                []TestSelection `json:"tests"`
}

// TestRunRequest is the ordered selection submitted for one run
type TestRunRequest struct {
	Functions []FunctionTestSelection `json:"functions"`
}

// TestCase addresses a single function x impl x test triple
type TestCase struct {
	FunctionName string
	ImplName     string
	TestName     string
}

// FullTestName is the routing key of the test case within a run
func (tc TestCase) FullTestName() string {
	return FullTestName(tc.FunctionName, tc.ImplName, tc.TestName)
}

// FullTestName derives the composite key for (function, impl, test).
// It matches the triple form accepted by the runner's -i flag.
func FullTestName(function, impl, test string) string {
	return strings.Join([]string{function, impl, test}, ":")
}

// Expand flattens the request into one TestCase per function x test x impl,
// in request order. Duplicate triples are only kept once.
func (r TestRunRequest) Expand() []TestCase {
	var cases []TestCase
	seen := make(map[string]bool)
	for _, fn := range r.Functions {
		for _, test := range fn.Tests {
			for _, impl := range test.Impls {
				tc := TestCase{FunctionName: fn.Name, ImplName: impl, TestName: test.Name}
				key := tc.FullTestName()
				if seen[key] {
					continue
				}
				seen[key] = true
				cases = append(cases, tc)
			}
		}
	}
	return cases
}

// IsEmpty reports whether the request selects nothing at all
func (r TestRunRequest) IsEmpty() bool {
	for _, fn := range r.Functions {
		if fn.RunAllAvailableTests {
			return false
		}
		for _, test := range fn.Tests {
			if len(test.Impls) > 0 {
				return false
			}
		}
	}
	return true
}
