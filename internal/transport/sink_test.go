package transport

import (
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu       sync.Mutex
	raw      strings.Builder
	protocol strings.Builder
	exits    chan int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{exits: make(chan int, 4)}
}

func (s *recordingSink) RawText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw.WriteString(text)
}

func (s *recordingSink) ProtocolData(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocol.Write(data)
}

func (s *recordingSink) Exit(code int) {
	s.exits <- code
}

func (s *recordingSink) Raw() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw.String()
}

func (s *recordingSink) Protocol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.protocol.String()
}

func (s *recordingSink) waitExit(t *testing.T) int {
	t.Helper()
	select {
	case code := <-s.exits:
		return code
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for exit")
		return 0
	}
}
