package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"ptrun/internal/config"
	"ptrun/internal/domain"
)

const maxErrorBody = 64 * 1024

// FileSource provides the project files sent with every streamed run
type FileSource interface {
	Files() ([]domain.ProjectFile, error)
}

// StreamRequest is the body of a streamed run
type StreamRequest struct {
	Files       []domain.ProjectFile  `json:"files"`
	TestRequest domain.TestRunRequest `json:"testRequest"`
}

// StreamTransport runs tests through a server-streamed HTTP request
type StreamTransport struct {
	endpoint string
	client   *http.Client
	files    FileSource
	logger   *slog.Logger
}

// NewStreamTransport creates a StreamTransport posting to endpoint.
// A nil client uses http.DefaultClient.
func NewStreamTransport(endpoint string, files FileSource, client *http.Client, logger *slog.Logger) *StreamTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &StreamTransport{
		endpoint: endpoint,
		client:   client,
		files:    files,
		logger:   logger.With("component", "stream-transport"),
	}
}

func (t *StreamTransport) Name() string {
	return config.TransportStream
}

// Start builds the request and streams the response in the background.
// Only failures to assemble the request are returned; HTTP failures end
// the run through the sink.
func (t *StreamTransport) Start(ctx context.Context, req domain.TestRunRequest, sink Sink) (Handle, error) {
	files, err := t.files.Files()
	if err != nil {
		return nil, fmt.Errorf("collect project files: %w", err)
	}
	body, err := json.Marshal(StreamRequest{Files: files, TestRequest: req})
	if err != nil {
		return nil, fmt.Errorf("marshal stream request: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	h := newHandle(func() error {
		cancel()
		return nil
	})
	go func() {
		defer cancel()
		defer h.finish()
		sink.Exit(t.stream(httpReq, h, sink))
	}()
	return h, nil
}

// Cancel aborts the request. The exit that follows is reported as 0.
func (t *StreamTransport) Cancel(h Handle) error {
	return cancelHandle(h)
}

func (t *StreamTransport) stream(req *http.Request, h *handle, sink Sink) int {
	resp, err := t.client.Do(req)
	if err != nil {
		return t.fail(req.Context(), h, sink, fmt.Errorf("open stream: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if isFatalStatus(resp.StatusCode) {
			t.logger.Warn("stream rejected", "status", resp.StatusCode)
			sink.RawText(strings.TrimRight(string(msg), "\n") + "\n")
			return FailureExitCode
		}
		return t.fail(req.Context(), h, sink, fmt.Errorf("stream request failed: %s", resp.Status))
	}

	// lines are unbounded: a single log envelope can carry a whole prompt
	demux := NewDemuxer(sink)
	reader := bufio.NewReaderSize(resp.Body, readBufferSize)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			demux.Line(strings.TrimSuffix(line, "\n"))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			demux.Flush()
			return t.fail(req.Context(), h, sink, fmt.Errorf("read stream: %w", err))
		}
	}
	demux.Flush()
	return 0
}

// fail reports a transport-level error, unless the run was cancelled
func (t *StreamTransport) fail(ctx context.Context, h *handle, sink Sink, err error) int {
	if h.cancelled.Load() || ctx.Err() != nil {
		return 0
	}
	t.logger.Warn("stream failed", "error", err)
	sink.RawText(err.Error() + "\n")
	return FailureExitCode
}

// isFatalStatus reports the client errors the request can never recover from
func isFatalStatus(code int) bool {
	return code >= 400 && code < 500 && code != http.StatusTooManyRequests
}
