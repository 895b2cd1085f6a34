package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemuxer(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		raw      string
		protocol string
	}{
		{
			name:     "structured events",
			lines:    []string{"event: stdout", "data: compiling", "", "event: protocol", "data: {\"name\":\"log\"}<END_MSG>", ""},
			raw:      "compiling\n",
			protocol: `{"name":"log"}<END_MSG>`,
		},
		{
			name:     "legacy prefixes inside data",
			lines:    []string{"data: <STDOUT>:hello", "", "data: <PORT>:{}<END", "", "data: <PORT>:_MSG>", ""},
			raw:      "hello\n",
			protocol: "{}<END_MSG>",
		},
		{
			name:     "unframed prefixed lines",
			lines:    []string{"<STDOUT>:plain", "<PORT>:abc", "no prefix"},
			raw:      "plain\nno prefix\n",
			protocol: "abc",
		},
		{
			name:  "multi line stdout record",
			lines: []string{"event: stdout", "data: a", "data: b", ""},
			raw:   "a\nb\n",
		},
		{
			name:  "comments and ids are skipped",
			lines: []string{": keep-alive", "id: 7", "retry: 100", "data: x", ""},
			raw:   "x\n",
		},
		{
			name:  "carriage returns are trimmed",
			lines: []string{"event: stdout\r", "data: win\r", "\r"},
			raw:   "win\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newRecordingSink()
			d := NewDemuxer(sink)
			for _, l := range tt.lines {
				d.Line(l)
			}
			d.Flush()
			assert.Equal(t, tt.raw, sink.Raw())
			assert.Equal(t, tt.protocol, sink.Protocol())
		})
	}
}
