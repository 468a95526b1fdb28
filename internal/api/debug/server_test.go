package debug

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatfloflo/quahl/internal/domain/browser"
	"github.com/thatfloflo/quahl/internal/domain/downloads"
	"github.com/thatfloflo/quahl/internal/infrastructure/monitoring"
)

type fakeWindows struct {
	snaps []browser.Snapshot
}

func (f *fakeWindows) Snapshots(ctx context.Context) []browser.Snapshot {
	return f.snaps
}

type fakeDownloads struct {
	items []downloads.Download
}

func (f *fakeDownloads) All() []downloads.Download {
	return f.items
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{Metrics: monitoring.NewMetrics()},
		&fakeWindows{snaps: []browser.Snapshot{{UUID: "w-1", URL: "https://example.com", Active: true}}},
		&fakeDownloads{items: []downloads.Download{{Filename: "file.txt", Status: downloads.StatusFinished}}},
		[]string{"create_window", "exit"},
	)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(s.Tap().Close)
	return s, ts
}

func getJSON(t *testing.T, url string) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	body := getJSON(t, ts.URL+"/health")
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["windows"])
}

func TestWindowsAndDownloads(t *testing.T) {
	_, ts := newTestServer(t)

	body := getJSON(t, ts.URL+"/windows")
	windows := body["windows"].([]any)
	require.Len(t, windows, 1)
	assert.Equal(t, "w-1", windows[0].(map[string]any)["uuid"])

	body = getJSON(t, ts.URL+"/downloads")
	items := body["downloads"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "finished", items[0].(map[string]any)["status"])
}

func TestMethods(t *testing.T) {
	_, ts := newTestServer(t)
	body := getJSON(t, ts.URL+"/methods")
	assert.Equal(t, []any{"create_window", "exit"}, body["methods"])
}

func TestMetricsExposed(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventTapStreams(t *testing.T) {
	s, ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration happens inside the upgrade handler; give it a beat.
	require.Eventually(t, func() bool {
		s.Tap().mu.Lock()
		defer s.Tap().mu.Unlock()
		return len(s.Tap().clients) == 1
	}, time.Second, 10*time.Millisecond)

	s.Tap().Emit("window_created", map[string]any{"uuid": "w-2"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "window_created", decoded["event"])
	assert.Equal(t, "w-2", decoded["data"].(map[string]any)["uuid"])
}
