package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ptrun/internal/domain"
	"ptrun/internal/logging"
)

type staticFiles []domain.ProjectFile

func (f staticFiles) Files() ([]domain.ProjectFile, error) { return f, nil }

type failingFiles struct{}

func (failingFiles) Files() ([]domain.ProjectFile, error) { return nil, fmt.Errorf("disk on fire") }

var streamReq = domain.TestRunRequest{Functions: []domain.FunctionTestSelection{
	{Name: "F", Tests: []domain.TestSelection{{Name: "T", Impls: []string{"I"}}}},
}}

func newStream(url string, files FileSource) *StreamTransport {
	return NewStreamTransport(url, files, nil, logging.Discard())
}

func TestStreamTransport_Success(t *testing.T) {
	var got StreamRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: stdout\ndata: compiling project\n\n")
		fmt.Fprint(w, "event: protocol\ndata: {\"name\":\"test_url\",\"data\":{}}<END_MSG>\n\n")
		fmt.Fprint(w, "data: <STDOUT>:done\n\n")
	}))
	defer srv.Close()

	files := staticFiles{{Name: "main.prompt", Content: "function F {}"}}
	sink := newRecordingSink()
	h, err := newStream(srv.URL, files).Start(context.Background(), streamReq, sink)
	require.NoError(t, err)

	assert.Equal(t, 0, sink.waitExit(t))
	<-h.Done()
	assert.True(t, h.Closed())
	assert.Equal(t, "compiling project\ndone\n", sink.Raw())
	assert.Equal(t, `{"name":"test_url","data":{}}<END_MSG>`, sink.Protocol())
	assert.Equal(t, []domain.ProjectFile(files), got.Files)
	assert.Equal(t, streamReq, got.TestRequest)
}

func TestStreamTransport_ErrorStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantRaw string
	}{
		{name: "client error surfaces body", status: http.StatusBadRequest, body: "syntax error in main.prompt", wantRaw: "syntax error in main.prompt\n"},
		{name: "rate limited", status: http.StatusTooManyRequests, body: "slow down", wantRaw: "stream request failed: 429 Too Many Requests\n"},
		{name: "server error", status: http.StatusInternalServerError, body: "oops", wantRaw: "stream request failed: 500 Internal Server Error\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, tt.body, tt.status)
			}))
			defer srv.Close()

			sink := newRecordingSink()
			_, err := newStream(srv.URL, staticFiles{}).Start(context.Background(), streamReq, sink)
			require.NoError(t, err)

			assert.Equal(t, FailureExitCode, sink.waitExit(t))
			assert.Equal(t, tt.wantRaw, sink.Raw())
		})
	}
}

func TestStreamTransport_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	sink := newRecordingSink()
	_, err := newStream(url, staticFiles{}).Start(context.Background(), streamReq, sink)
	require.NoError(t, err)

	assert.Equal(t, FailureExitCode, sink.waitExit(t))
	assert.Contains(t, sink.Raw(), "open stream")
}

func TestStreamTransport_LongLines(t *testing.T) {
	payload := `{"name":"log","data":"` + strings.Repeat("x", 2<<20) + `"}<END_MSG>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintf(w, "event: protocol\ndata: %s\n\n", payload)
		fmt.Fprint(w, "event: stdout\ndata: after\n\n")
	}))
	defer srv.Close()

	sink := newRecordingSink()
	_, err := newStream(srv.URL, staticFiles{}).Start(context.Background(), streamReq, sink)
	require.NoError(t, err)

	assert.Equal(t, 0, sink.waitExit(t))
	assert.Equal(t, len(payload), len(sink.Protocol()))
	assert.Equal(t, "after\n", sink.Raw())
}

func TestStreamTransport_ConnectionLostMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, buf, err := w.(http.Hijacker).Hijack()
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		record := "data: <STDOUT>:halfway\n\n"
		fmt.Fprint(buf, "HTTP/1.1 200 OK\r\nContent-Type: text/event-stream\r\nTransfer-Encoding: chunked\r\n\r\n")
		fmt.Fprintf(buf, "%x\r\n%s\r\n", len(record), record)
		// announce a chunk that never arrives
		fmt.Fprint(buf, "ff\r\n")
		buf.Flush()
	}))
	defer srv.Close()

	sink := newRecordingSink()
	h, err := newStream(srv.URL, staticFiles{}).Start(context.Background(), streamReq, sink)
	require.NoError(t, err)

	assert.Equal(t, FailureExitCode, sink.waitExit(t))
	<-h.Done()
	assert.True(t, strings.HasPrefix(sink.Raw(), "halfway\n"), sink.Raw())
	assert.Contains(t, sink.Raw(), "read stream: ")
}

func TestStreamTransport_FileSourceError(t *testing.T) {
	_, err := newStream("http://127.0.0.1:1", failingFiles{}).Start(context.Background(), streamReq, newRecordingSink())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestStreamTransport_Cancel(t *testing.T) {
	started := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: <STDOUT>:working\n\n")
		w.(http.Flusher).Flush()
		close(started)
		<-r.Context().Done()
	}))
	defer srv.Close()

	tr := newStream(srv.URL, staticFiles{})
	sink := newRecordingSink()
	h, err := tr.Start(context.Background(), streamReq, sink)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("server never started streaming")
	}
	require.NoError(t, tr.Cancel(h))

	assert.Equal(t, 0, sink.waitExit(t))
	<-h.Done()
	assert.True(t, h.Closed())
	assert.NotContains(t, sink.Raw(), "read stream")
}

func TestCancel_ForeignHandle(t *testing.T) {
	type foreign struct{ Handle }
	assert.ErrorIs(t, newStream("http://x", staticFiles{}).Cancel(foreign{}), ErrUnknownHandle)
}
