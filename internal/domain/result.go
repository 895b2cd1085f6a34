package domain

// TestOutput is the latest observed result of a test case
type TestOutput struct {
	Error  *string `json:"error,omitempty"`
	Parsed *string `json:"parsed,omitempty"`
	Raw    *string `json:"raw,omitempty"`
}

// PartialOutput buffers streamed output while a test is running
type PartialOutput struct {
	Raw    *string `json:"raw,omitempty"`
	Parsed *string `json:"parsed,omitempty"`
}

// TestCaseResult is one row of a run, keyed by FullTestName
type TestCaseResult struct {
	FullTestName  string        `json:"fullTestName"`
	FunctionName  string        `json:"functionName"`
	TestName      string        `json:"testName"`
	ImplName      string        `json:"implName"`
	Status        TestStatus    `json:"status"`
	Output        TestOutput    `json:"output"`
	PartialOutput PartialOutput `json:"partialOutput"`
	URL           *string       `json:"url,omitempty"`
}

// StatusCounts tallies results per status
func StatusCounts(results []TestCaseResult) map[TestStatus]int {
	counts := make(map[TestStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return counts
}
