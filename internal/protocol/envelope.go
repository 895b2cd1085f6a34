package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ptrun/internal/domain"
)

// Envelope names understood by the dispatcher
const (
	NameTestURL         = "test_url"
	NameUpdateTestCase  = "update_test_case"
	NameLog             = "log"
	NamePartialResponse = "partial_response"
)

// Envelope is one framed protocol message
type Envelope struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// TestURLData announces the dashboard URL of the run
type TestURLData struct {
	DashboardURL string `json:"dashboard_url"`
}

// UpdateTestCaseData moves one test to a new status
type UpdateTestCaseData struct {
	FullTestName string          `json:"full_test_name,omitempty"`
	FunctionName string          `json:"function_name,omitempty"`
	ImplName     string          `json:"impl_name,omitempty"`
	TestName     string          `json:"test_name,omitempty"`
	Status       string          `json:"status"`
	ErrorData    json.RawMessage `json:"error_data,omitempty"`
}

// Key returns the full test name the update is addressed to
func (d UpdateTestCaseData) Key() string {
	if d.FullTestName != "" {
		return d.FullTestName
	}
	return domain.FullTestName(d.FunctionName, d.ImplName, d.TestName)
}

// ErrorText returns the serialized error data, or nil when absent
func (d UpdateTestCaseData) ErrorText() *string {
	raw := bytes.TrimSpace(d.ErrorData)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var compact bytes.Buffer
	text := string(raw)
	if err := json.Compact(&compact, raw); err == nil {
		text = compact.String()
	}
	return &text
}

// ParsedValue is the partially parsed value of a streamed response
type ParsedValue struct {
	Value string `json:"value"`
}

// PartialResponseData is one streamed delta of the active test
type PartialResponseData struct {
	Delta  string       `json:"delta"`
	Parsed *ParsedValue `json:"parsed,omitempty"`
}

// Encode renders a named payload as envelope JSON, without the delimiter
func Encode(name string, data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal %s data: %w", name, err)
	}
	out, err := json.Marshal(Envelope{Name: name, Data: raw})
	if err != nil {
		return "", fmt.Errorf("marshal %s envelope: %w", name, err)
	}
	return string(out), nil
}
