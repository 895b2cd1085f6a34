// Package transport starts test runs on the prompt runtime.
//
// A Transport delivers two independent signals to its Sink, raw log text
// and protocol bytes, followed by exactly one exit code. Delivery may happen
// from several goroutines; order is only kept within each signal.
package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"ptrun/internal/domain"
)

// FailureExitCode is reported when a run fails without an exit status of its own
const FailureExitCode = 1

var ErrUnknownHandle = errors.New("handle was not created by this transport")

// Sink receives the output of a run
type Sink interface {
	RawText(text string)
	ProtocolData(data []byte)
	Exit(code int)
}

// Handle tracks a started run
type Handle interface {
	// Closed reports whether the run released its process or stream
	Closed() bool
	// Done is closed together with Closed becoming true
	Done() <-chan struct{}
}

// Transport starts and cancels runs
type Transport interface {
	Name() string
	Start(ctx context.Context, req domain.TestRunRequest, sink Sink) (Handle, error)
	Cancel(h Handle) error
}

// handle is shared by both transports
type handle struct {
	done      chan struct{}
	closed    atomic.Bool
	cancelled atomic.Bool
	once      sync.Once
	stop      func() error
}

func newHandle(stop func() error) *handle {
	return &handle{done: make(chan struct{}), stop: stop}
}

func (h *handle) Closed() bool {
	return h.closed.Load()
}

func (h *handle) Done() <-chan struct{} {
	return h.done
}

func (h *handle) finish() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.done)
	})
}

func (h *handle) cancel() error {
	h.cancelled.Store(true)
	if h.Closed() {
		return nil
	}
	return h.stop()
}

func cancelHandle(h Handle) error {
	hh, ok := h.(*handle)
	if !ok {
		return ErrUnknownHandle
	}
	return hh.cancel()
}
