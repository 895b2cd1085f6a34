package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ptrun/internal/config"
	"ptrun/internal/domain"
)

const readBufferSize = 32 * 1024

// ProcessTransport runs tests by spawning the runner binary. The runner
// connects back to a local listener and pushes protocol data over it, while
// its stdout and stderr are forwarded as raw text.
type ProcessTransport struct {
	runnerPath string
	runnerArgs []string
	dir        string
	exitGrace  time.Duration
	logger     *slog.Logger
}

// NewProcessTransport creates a ProcessTransport from the config
func NewProcessTransport(cfg *config.Config, logger *slog.Logger) *ProcessTransport {
	return &ProcessTransport{
		runnerPath: cfg.RunnerPath,
		runnerArgs: cfg.RunnerArgs,
		dir:        cfg.GetRunnerDir(),
		exitGrace:  cfg.ExitGrace,
		logger:     logger.With("component", "process-transport"),
	}
}

func (t *ProcessTransport) Name() string {
	return config.TransportProcess
}

// Start opens the protocol listener and spawns the runner
func (t *ProcessTransport) Start(ctx context.Context, req domain.TestRunRequest, sink Sink) (Handle, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("open protocol listener: %w", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port

	args := append(append([]string{}, t.runnerArgs...), BuildRunnerArgs(req, port)...)
	cmd := exec.Command(t.runnerPath, args...)
	cmd.Dir = t.dir
	cmd.Env = os.Environ()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("pipe runner stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("pipe runner stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		ln.Close()
		return nil, fmt.Errorf("start runner %s: %w", t.runnerPath, err)
	}
	t.logger.Debug("runner started", "pid", cmd.Process.Pid, "port", port, "args", args)

	h := newHandle(func() error {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return fmt.Errorf("kill runner: %w", err)
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
			_ = h.cancel()
		case <-h.Done():
		}
	}()
	go t.supervise(h, cmd, ln, stdout, stderr, sink)

	return h, nil
}

// Cancel kills the runner. The exit that follows is reported as 0.
func (t *ProcessTransport) Cancel(h Handle) error {
	return cancelHandle(h)
}

// supervise pumps the runner output until it exits, then reports the exit
// code once every reader has drained. All protocol connections share one
// framer downstream, so they are read one at a time.
func (t *ProcessTransport) supervise(h *handle, cmd *exec.Cmd, ln net.Listener, stdout, stderr io.Reader, sink Sink) {
	conns := newConnSet()
	acceptDone := make(chan struct{})
	go func() {
		defer close(acceptDone)
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conns.add(conn, func() { pump(conn, func(b []byte) { sink.ProtocolData(b) }) })
		}
	}()

	var g errgroup.Group
	g.Go(func() error {
		pump(stdout, func(b []byte) { sink.RawText(string(b)) })
		return nil
	})
	g.Go(func() error {
		pump(stderr, func(b []byte) { sink.RawText(string(b)) })
		return nil
	})
	_ = g.Wait()

	waitErr := cmd.Wait()
	ln.Close()
	<-acceptDone
	if !conns.wait(t.exitGrace) {
		t.logger.Warn("protocol connections still open after runner exit, closing them")
	}

	code := exitCode(cmd.ProcessState, h.cancelled.Load())
	t.logger.Debug("runner exited", "code", code, "error", waitErr)
	sink.Exit(code)
	h.finish()
}

// exitCode derives the effective exit code. A runner killed by a signal
// reports 0 when we cancelled it and FailureExitCode otherwise.
func exitCode(state *os.ProcessState, cancelled bool) int {
	if state == nil {
		return FailureExitCode
	}
	if code := state.ExitCode(); code >= 0 {
		return code
	}
	if cancelled {
		return 0
	}
	return FailureExitCode
}

// pump forwards everything read from r, in order, until EOF or error
func pump(r io.Reader, emit func([]byte)) {
	buf := make([]byte, readBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			emit(chunk)
		}
		if err != nil {
			return
		}
	}
}

// connSet tracks protocol connections so they can be drained or closed.
// At most one connection is served at a time.
type connSet struct {
	mu      sync.Mutex
	conns   []net.Conn
	wg      sync.WaitGroup
	serving sync.Mutex
}

func newConnSet() *connSet {
	return &connSet{}
}

func (s *connSet) add(conn net.Conn, serve func()) {
	s.mu.Lock()
	s.conns = append(s.conns, conn)
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer conn.Close()
		s.serving.Lock()
		defer s.serving.Unlock()
		serve()
	}()
}

// wait blocks until every connection hit EOF, closing them after grace.
// It reports whether they drained on their own.
func (s *connSet) wait(grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(grace):
	}

	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	<-done
	return false
}
