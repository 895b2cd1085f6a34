package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ptrun/internal/domain"
	"ptrun/internal/logging"
	"ptrun/internal/metrics"
	"ptrun/internal/protocol"
	"ptrun/internal/runstate"
	"ptrun/internal/transport"
)

const eventBufferSize = 256

var ErrNoRun = errors.New("no test run has been started")

// Notifier receives the two outputs of a run: full state snapshots after
// every mutation and raw runner text.
type Notifier interface {
	TestResults(snap runstate.Snapshot)
	TestStdout(text string)
}

type nopNotifier struct{}

func (nopNotifier) TestResults(runstate.Snapshot) {}
func (nopNotifier) TestStdout(string)             {}

// Notifiers forwards every notification to each notifier in order
type Notifiers []Notifier

func (ns Notifiers) TestResults(snap runstate.Snapshot) {
	for _, n := range ns {
		n.TestResults(snap)
	}
}

func (ns Notifiers) TestStdout(text string) {
	for _, n := range ns {
		n.TestStdout(text)
	}
}

// Controller owns at most one active run. Starting a run cancels the
// previous one first, so runs never overlap on the same state.
type Controller struct {
	state     *runstate.State
	transport transport.Transport
	notifier  Notifier
	logger    *slog.Logger

	delimiter     string
	cancelTimeout time.Duration
	pollInterval  time.Duration

	mu     sync.Mutex
	active *run
}

// Option configures a Controller
type Option func(*Controller)

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithDelimiter(d string) Option {
	return func(c *Controller) { c.delimiter = d }
}

// WithCancelTimeout bounds how long a cancel polls the run handle
func WithCancelTimeout(timeout, pollInterval time.Duration) Option {
	return func(c *Controller) {
		c.cancelTimeout = timeout
		c.pollInterval = pollInterval
	}
}

// NewController creates a Controller driving state through t
func NewController(state *runstate.State, t transport.Transport, opts ...Option) *Controller {
	c := &Controller{
		state:         state,
		transport:     t,
		notifier:      nopNotifier{},
		logger:        logging.Discard(),
		delimiter:     protocol.DefaultDelimiter,
		cancelTimeout: 5 * time.Second,
		pollInterval:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "controller", "transport", t.Name())
	state.SetListener(func(snap runstate.Snapshot) {
		c.notifier.TestResults(snap)
	})
	return c
}

// RunTest cancels any existing run, resets the state and starts req.
// A transport that fails to start leaves the run in ERROR and the error
// is returned.
func (c *Controller) RunTest(ctx context.Context, req domain.TestRunRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.cancelLocked(ctx); err != nil {
		return err
	}

	c.state.Initialize(req)
	metrics.RecordRunStarted(c.transport.Name())

	// the run outlives the request that started it
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := newRun(runCtx, cancel)
	c.active = r

	h, err := c.transport.Start(runCtx, req, r)
	if err != nil {
		cancel()
		close(r.done)
		c.logger.Error("failed to start test run", "error", err)
		c.notifier.TestStdout(err.Error() + "\n")
		c.finish(transport.FailureExitCode)
		return fmt.Errorf("start %s run: %w", c.transport.Name(), err)
	}
	r.handle = h

	go c.consume(r, protocol.NewFramer(c.delimiter), protocol.NewDispatcher(c.state, c.logger))
	return nil
}

// CancelExistingTestRun clears the state and stops the active run. It waits
// for the run to close for at most the cancel timeout and then returns
// anyway. Without an active run it only clears the state.
func (c *Controller) CancelExistingTestRun(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelLocked(ctx)
}

// Wait blocks until the current run stops consuming events, which happens
// once it reached a final status or was cancelled.
func (c *Controller) Wait(ctx context.Context) (runstate.Snapshot, error) {
	c.mu.Lock()
	r := c.active
	c.mu.Unlock()
	if r == nil {
		return c.state.Snapshot(), ErrNoRun
	}

	select {
	case <-r.done:
		return c.state.Snapshot(), nil
	case <-ctx.Done():
		return c.state.Snapshot(), ctx.Err()
	}
}

// Snapshot returns the current run state
func (c *Controller) Snapshot() runstate.Snapshot {
	return c.state.Snapshot()
}

func (c *Controller) cancelLocked(ctx context.Context) error {
	r := c.active
	c.active = nil
	if r != nil {
		// events still queued for the old run are dropped from here on
		r.cancel()
		select {
		case <-r.done:
		case <-time.After(c.cancelTimeout):
			c.logger.Warn("run consumer did not stop in time")
		}
	}

	c.state.Clear()
	c.state.SetExitCode(nil)

	if r == nil || r.handle == nil {
		return nil
	}

	start := time.Now()
	if err := c.transport.Cancel(r.handle); err != nil {
		c.logger.Warn("failed to cancel run", "error", err)
	}
	err := c.waitClosed(ctx, r.handle)
	metrics.RecordCancel(time.Since(start))
	return err
}

// waitClosed polls the handle until it reports closed or the cancel
// timeout elapses. Only the caller's context ending is an error.
func (c *Controller) waitClosed(ctx context.Context, h transport.Handle) error {
	deadline := time.NewTimer(c.cancelTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for !h.Closed() {
		select {
		case <-ticker.C:
		case <-deadline.C:
			c.logger.Warn("cancelled run did not close in time", "timeout", c.cancelTimeout)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// consume applies the events of one run in arrival order
func (c *Controller) consume(r *run, framer *protocol.Framer, dispatcher *protocol.Dispatcher) {
	defer close(r.done)
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("test run consumer panicked", "panic", p)
			// nothing reads the events anymore, so stop the producers
			r.cancel()
			if err := c.transport.Cancel(r.handle); err != nil {
				c.logger.Warn("failed to cancel run", "error", err)
			}
			c.finish(transport.FailureExitCode)
		}
	}()

	for {
		select {
		case <-r.ctx.Done():
			return
		case ev := <-r.events:
			switch ev.kind {
			case eventRaw:
				c.notifier.TestStdout(ev.text)
			case eventProtocol:
				for _, envelope := range framer.Push(string(ev.data)) {
					dispatcher.Dispatch(envelope)
				}
			case eventExit:
				if pending := framer.Pending(); pending != "" {
					c.logger.Debug("discarding unterminated protocol data", "bytes", len(pending))
				}
				c.finish(ev.code)
				return
			}
		}
	}
}

func (c *Controller) finish(code int) {
	c.state.SetExitCode(runstate.Code(code))
	status := c.state.RunStatus()
	metrics.RecordRunFinished(string(status))
	c.logger.Info("test run finished", "status", status, "exit_code", code)
}
