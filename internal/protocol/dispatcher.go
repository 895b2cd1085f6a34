package protocol

import (
	"encoding/json"
	"log/slog"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"ptrun/internal/domain"
	"ptrun/internal/metrics"
	"ptrun/internal/runstate"
)

// Dispatcher decodes envelopes and applies them to the run state.
//
// Streamed partial responses carry no test key, so they are attributed to
// the active test: the one most recently moved to running. This only holds
// while the runtime streams a single test at a time; concurrent streaming
// tests would be misattributed. Create one Dispatcher per run.
type Dispatcher struct {
	state    *runstate.State
	logger   *slog.Logger
	validate *validator.Validate
	active   string
}

// NewDispatcher creates a Dispatcher writing to state
func NewDispatcher(state *runstate.State, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		state:    state,
		logger:   logger,
		validate: validator.New(),
	}
}

// ActiveTest returns the full test name partial responses are routed to
func (d *Dispatcher) ActiveTest() string {
	return d.active
}

// Dispatch handles one framed envelope. Malformed input is logged and
// dropped, it never fails the run.
func (d *Dispatcher) Dispatch(envelope string) {
	var env Envelope
	if err := json.Unmarshal([]byte(envelope), &env); err != nil {
		d.drop(metrics.DropInvalidJSON, "failed to parse envelope", "error", err, "envelope", truncate(envelope))
		return
	}
	metrics.RecordEnvelope(envelopeLabel(env.Name))

	switch env.Name {
	case NameTestURL:
		d.handleTestURL(env.Data)
	case NameUpdateTestCase:
		d.handleUpdateTestCase(env.Data)
	case NameLog:
		d.handleLog(env.Data)
	case NamePartialResponse:
		d.handlePartialResponse(env.Data)
	default:
		metrics.RecordEnvelopeDropped(metrics.DropUnknownName)
		d.logger.Debug("ignoring envelope", "name", env.Name)
	}
}

func (d *Dispatcher) handleTestURL(raw json.RawMessage) {
	var data TestURLData
	if err := json.Unmarshal(raw, &data); err != nil {
		d.drop(metrics.DropInvalidPayload, "invalid test_url payload", "error", err)
		return
	}
	d.state.SetTestURL(data.DashboardURL)
}

func (d *Dispatcher) handleUpdateTestCase(raw json.RawMessage) {
	var data UpdateTestCaseData
	if err := json.Unmarshal(raw, &data); err != nil {
		d.drop(metrics.DropInvalidPayload, "invalid update_test_case payload", "error", err)
		return
	}
	status, err := domain.ParseTestStatus(data.Status)
	if err != nil {
		d.drop(metrics.DropInvalidPayload, "invalid update_test_case status", "error", err)
		return
	}

	key := data.Key()
	if !d.state.UpdateTestStatus(key, status, data.ErrorText()) {
		metrics.RecordEnvelopeDropped(metrics.DropUnknownTest)
		return
	}
	if status == domain.TestStatusRunning {
		d.active = key
	}
}

func (d *Dispatcher) handleLog(raw json.RawMessage) {
	var event LogEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		d.drop(metrics.DropInvalidPayload, "invalid log payload", "error", err)
		return
	}
	if err := d.validate.Struct(event); err != nil {
		d.drop(metrics.DropInvalidPayload, "log event failed validation", "error", err)
		return
	}
	if event.EventType != EventTypeLLM {
		return
	}

	key, ok := event.TestKey()
	if !ok {
		metrics.RecordEnvelopeDropped(metrics.DropUnknownTest)
		return
	}

	update := runstate.OutputUpdate{
		EventID: event.EventID,
		SpanID:  event.RootEventID,
	}
	if event.Error != nil {
		msg := event.Error.Message
		update.Error = &msg
	}
	if event.IO != nil && event.IO.Output != nil {
		value := event.IO.Output.Value
		update.Parsed = &value
	}
	if event.Metadata != nil && event.Metadata.Output != nil {
		text := event.Metadata.Output.RawText
		update.Raw = &text
	}

	if !d.state.ApplyOutput(key, update) {
		metrics.RecordEnvelopeDropped(metrics.DropUnknownTest)
	}
}

func (d *Dispatcher) handlePartialResponse(raw json.RawMessage) {
	var data PartialResponseData
	if err := json.Unmarshal(raw, &data); err != nil {
		d.drop(metrics.DropInvalidPayload, "invalid partial_response payload", "error", err)
		return
	}
	if d.active == "" {
		metrics.RecordEnvelopeDropped(metrics.DropNoActiveTest)
		d.logger.Debug("partial response without an active test")
		return
	}

	var parsed *string
	if data.Parsed != nil {
		parsed = &data.Parsed.Value
	}
	if !d.state.AppendPartial(d.active, data.Delta, parsed) {
		metrics.RecordEnvelopeDropped(metrics.DropUnknownTest)
	}
}

func (d *Dispatcher) drop(reason, msg string, args ...any) {
	metrics.RecordEnvelopeDropped(reason)
	d.logger.Warn(msg, args...)
}

// envelopeLabel bounds the metric label to the known envelope names
func envelopeLabel(name string) string {
	switch name {
	case NameTestURL, NameUpdateTestCase, NameLog, NamePartialResponse:
		return name
	default:
		return metrics.EnvelopeOther
	}
}

// truncate shortens s for logging without splitting a rune
func truncate(s string) string {
	const maxLen = 256
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
