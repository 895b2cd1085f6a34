package transport

import (
	"strconv"

	"ptrun/internal/domain"
)

// BuildRunnerArgs renders the runner command line for a request:
//
//	test [-i function:impl:test]... run --playground-port <port>
//
// A function selected with RunAllAvailableTests is passed as "function:".
func BuildRunnerArgs(req domain.TestRunRequest, port int) []string {
	args := []string{"test"}
	seen := make(map[string]bool)
	add := func(filter string) {
		if seen[filter] {
			return
		}
		seen[filter] = true
		args = append(args, "-i", filter)
	}

	for _, fn := range req.Functions {
		if fn.RunAllAvailableTests {
			add(fn.Name + ":")
			continue
		}
		for _, test := range fn.Tests {
			for _, impl := range test.Impls {
				add(domain.FullTestName(fn.Name, impl, test.Name))
			}
		}
	}

	return append(args, "run", "--playground-port", strconv.Itoa(port))
}
