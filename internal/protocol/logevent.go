package protocol

// EventTypeLLM marks a log event describing a model invocation
const EventTypeLLM = "func_llm"

// TestCaseTag is the context tag carrying the full test name
const TestCaseTag = "test_case"

// LogEvent is the runtime's log event. Its shape is owned by the runtime;
// the validate tags encode the part of that contract the dispatcher relies on.
type LogEvent struct {
	ProjectID     string       `json:"project_id,omitempty"`
	EventType     string       `json:"event_type" validate:"required,oneof=log func_llm func_prob func_code"`
	RootEventID   string       `json:"root_event_id" validate:"required"`
	EventID       string       `json:"event_id" validate:"required"`
	ParentEventID *string      `json:"parent_event_id,omitempty"`
	Context       LogContext   `json:"context"`
	IO            *LogIO       `json:"io,omitempty"`
	Error         *LogError    `json:"error,omitempty"`
	Metadata      *LLMMetadata `json:"metadata,omitempty"`
}

// LogContext describes where and when the event happened
type LogContext struct {
	Hostname  string            `json:"hostname,omitempty"`
	ProcessID string            `json:"process_id" validate:"required"`
	Stage     string            `json:"stage,omitempty"`
	LatencyMS int64             `json:"latency_ms" validate:"gte=0"`
	StartTime string            `json:"start_time" validate:"required"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// LogIO holds the serialized input and output of the invocation
type LogIO struct {
	Input  *IOValue `json:"input,omitempty"`
	Output *IOValue `json:"output,omitempty"`
}

type IOValue struct {
	Value string `json:"value"`
}

type LogError struct {
	Code      int     `json:"code"`
	Message   string  `json:"message" validate:"required"`
	Traceback *string `json:"traceback,omitempty"`
}

// LLMMetadata describes the model call itself
type LLMMetadata struct {
	ModelName string     `json:"model_name,omitempty"`
	Provider  string     `json:"provider,omitempty"`
	Output    *LLMOutput `json:"output,omitempty"`
}

type LLMOutput struct {
	RawText string `json:"raw_text"`
}

// TestKey returns the full test name tagged on the event
func (e LogEvent) TestKey() (string, bool) {
	key, ok := e.Context.Tags[TestCaseTag]
	return key, ok && key != ""
}
