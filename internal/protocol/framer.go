package protocol

import "strings"

// DefaultDelimiter terminates every envelope on the protocol channel
const DefaultDelimiter = "<END_MSG>"

// Framer splits a fragmented text stream into delimiter-terminated envelopes.
// The trailing fragment of a chunk is buffered until a later chunk completes
// it; a stream that never sends the delimiter again keeps its tail buffered.
type Framer struct {
	delimiter string
	buf       strings.Builder
}

// NewFramer creates a Framer; an empty delimiter falls back to DefaultDelimiter
func NewFramer(delimiter string) *Framer {
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &Framer{delimiter: delimiter}
}

// Push consumes a chunk and returns the envelopes it completed, in order.
// Whitespace-only segments are dropped.
func (f *Framer) Push(chunk string) []string {
	if chunk == "" {
		return nil
	}
	f.buf.WriteString(chunk)
	data := f.buf.String()

	var envelopes []string
	for {
		i := strings.Index(data, f.delimiter)
		if i < 0 {
			break
		}
		if seg := strings.TrimSpace(data[:i]); seg != "" {
			envelopes = append(envelopes, seg)
		}
		data = data[i+len(f.delimiter):]
	}

	f.buf.Reset()
	f.buf.WriteString(data)
	return envelopes
}

// Pending returns the buffered, not yet delimited tail
func (f *Framer) Pending() string {
	return f.buf.String()
}
