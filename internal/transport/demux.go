package transport

import "strings"

// Legacy line prefixes separating raw text from protocol data on a shared channel
const (
	StdoutPrefix   = "<STDOUT>:"
	ProtocolPrefix = "<PORT>:"
)

// SSE event names for structured framing
const (
	EventStdout   = "stdout"
	EventProtocol = "protocol"
)

// Demuxer splits a line-oriented event stream into raw text and protocol
// data. Records tagged with an SSE event name are routed by that name;
// untagged data lines fall back to the legacy prefixes, and anything else
// is raw text.
type Demuxer struct {
	sink  Sink
	event string
	data  []string
}

// NewDemuxer creates a Demuxer writing to sink
func NewDemuxer(sink Sink) *Demuxer {
	return &Demuxer{sink: sink}
}

// Line consumes one line without its terminator
func (d *Demuxer) Line(line string) {
	line = strings.TrimSuffix(line, "\r")
	switch {
	case line == "":
		d.Flush()
	case strings.HasPrefix(line, ":"):
		// comment / keep-alive
	case strings.HasPrefix(line, "event:"):
		d.event = fieldValue(line, "event:")
	case strings.HasPrefix(line, "data:"):
		d.data = append(d.data, fieldValue(line, "data:"))
	case strings.HasPrefix(line, "id:"), strings.HasPrefix(line, "retry:"):
	default:
		// not SSE framed at all
		d.Flush()
		d.prefixed(line)
	}
}

// Flush dispatches the pending record, if any
func (d *Demuxer) Flush() {
	event, data := d.event, d.data
	d.event, d.data = "", nil
	if len(data) == 0 {
		return
	}

	switch event {
	case EventProtocol:
		d.sink.ProtocolData([]byte(strings.Join(data, "\n")))
	case EventStdout:
		d.sink.RawText(strings.Join(data, "\n") + "\n")
	default:
		for _, line := range data {
			d.prefixed(line)
		}
	}
}

func (d *Demuxer) prefixed(line string) {
	switch {
	case strings.HasPrefix(line, ProtocolPrefix):
		d.sink.ProtocolData([]byte(strings.TrimPrefix(line, ProtocolPrefix)))
	case strings.HasPrefix(line, StdoutPrefix):
		d.sink.RawText(strings.TrimPrefix(line, StdoutPrefix) + "\n")
	default:
		d.sink.RawText(line + "\n")
	}
}

func fieldValue(line, field string) string {
	return strings.TrimPrefix(strings.TrimPrefix(line, field), " ")
}
