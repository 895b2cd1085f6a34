package execution

import (
	"context"

	"ptrun/internal/transport"
)

type eventKind int

const (
	eventRaw eventKind = iota
	eventProtocol
	eventExit
)

type event struct {
	kind eventKind
	text string
	data []byte
	code int
}

// run is the sink handed to the transport. It queues events for the
// single consumer goroutine, and drops them once the run is cancelled.
type run struct {
	ctx    context.Context
	cancel context.CancelFunc
	events chan event
	done   chan struct{}
	handle transport.Handle
}

func newRun(ctx context.Context, cancel context.CancelFunc) *run {
	return &run{
		ctx:    ctx,
		cancel: cancel,
		events: make(chan event, eventBufferSize),
		done:   make(chan struct{}),
	}
}

func (r *run) RawText(text string) {
	r.send(event{kind: eventRaw, text: text})
}

func (r *run) ProtocolData(data []byte) {
	r.send(event{kind: eventProtocol, data: data})
}

func (r *run) Exit(code int) {
	r.send(event{kind: eventExit, code: code})
}

func (r *run) send(ev event) {
	select {
	case r.events <- ev:
	case <-r.ctx.Done():
	}
}
