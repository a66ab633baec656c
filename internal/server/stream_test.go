package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/hookguard/internal/events"
	"github.com/mattjoyce/hookguard/internal/signer"
)

type sseFrame struct {
	id    string
	event string
	data  string
}

// readFrame reads one SSE frame, skipping keep-alive comments.
func readFrame(t *testing.T, br *bufio.Reader) sseFrame {
	t.Helper()
	var f sseFrame
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if f.id != "" {
				return f
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "id: "):
			f.id = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "event: "):
			f.event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			f.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, ctx context.Context, url, token, lastID string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/events/stream", nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if lastID != "" {
		req.Header.Set("Last-Event-ID", lastID)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestEventStream_ReplaysThenFollows(t *testing.T) {
	s, _ := newTestServer(t, Config{EventsToken: "ops", Endpoints: []Endpoint{githubEndpoint(t)}})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	postTo := func(header http.Header) {
		body := []byte(`{"action":"opened"}`)
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/hooks/github", bytes.NewReader(body))
		require.NoError(t, err)
		for k, v := range header {
			req.Header[k] = v
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
	}

	postTo(signer.GitHub(githubSecret, []byte(`{"action":"opened"}`)))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := openStream(t, ctx, ts.URL, "ops", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	br := bufio.NewReader(resp.Body)

	first := readFrame(t, br)
	assert.Equal(t, "1", first.id)
	assert.Equal(t, string(events.KindAccepted), first.event)

	postTo(nil)

	second := readFrame(t, br)
	assert.Equal(t, "2", second.id)
	assert.Equal(t, string(events.KindRejected), second.event)

	var ev events.Event
	require.NoError(t, json.Unmarshal([]byte(second.data), &ev))
	assert.Equal(t, "missing-signature", ev.Reason)
	assert.Equal(t, "/hooks/github", ev.Path)
}

func TestEventStream_LastEventIDSkipsSeen(t *testing.T) {
	s, hub := newTestServer(t, Config{Endpoints: []Endpoint{githubEndpoint(t)}})
	hub.Publish(events.Event{Kind: events.KindAccepted, Path: "/a"})
	hub.Publish(events.Event{Kind: events.KindRejected, Path: "/b"})

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp := openStream(t, ctx, ts.URL, "", "1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f := readFrame(t, bufio.NewReader(resp.Body))
	assert.Equal(t, "2", f.id)
	assert.Contains(t, f.data, `"path":"/b"`)
}

func TestEventStream_RequiresToken(t *testing.T) {
	s, _ := newTestServer(t, Config{EventsToken: "ops", Endpoints: []Endpoint{githubEndpoint(t)}})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp := openStream(t, context.Background(), ts.URL, "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestParseLastEventID(t *testing.T) {
	tests := map[string]int64{"": 0, "7": 7, "-3": 0, "abc": 0}
	for in, want := range tests {
		assert.Equal(t, want, parseLastEventID(in), "input %q", in)
	}
}
