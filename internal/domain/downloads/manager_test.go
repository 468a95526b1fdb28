package downloads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) Emit(event string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func newTestManager(t *testing.T, sink *recordingSink) *Manager {
	t.Helper()
	dir := t.TempDir()
	cfg := ManagerConfig{
		Dir:         dir,
		HistoryFile: filepath.Join(dir, "history.json"),
	}
	// Assign only a non-nil *recordingSink: a typed nil stored in the
	// events.Sink interface would defeat the manager's nil check.
	if sink != nil {
		cfg.Sink = sink
	}
	return NewManager(cfg)
}

func TestInitiateRejectsBadURLs(t *testing.T) {
	m := newTestManager(t, nil)
	for _, bad := range []string{"", "not a url at all\x00", "ftp://example.com/file", "file:///etc/passwd"} {
		if m.Initiate(context.Background(), bad) {
			t.Errorf("Initiate(%q) should be rejected", bad)
		}
	}
	if got := m.List(); len(got) != 0 {
		t.Errorf("Rejected downloads must not be tracked, got %v", got)
	}
}

func TestDownloadFinishes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	sink := &recordingSink{}
	m := newTestManager(t, sink)

	if !m.Initiate(context.Background(), srv.URL+"/greeting.txt") {
		t.Fatal("Initiate should accept the request")
	}
	m.Wait()

	entries := m.List()
	if len(entries) != 1 {
		t.Fatalf("Expected one download, got %v", entries)
	}
	if entries[0].Filename != "greeting.txt" {
		t.Errorf("Unexpected filename %q", entries[0].Filename)
	}
	if entries[0].Status != "finished" {
		t.Errorf("Expected finished, got %q", entries[0].Status)
	}

	data, err := os.ReadFile(filepath.Join(m.dir, "greeting.txt"))
	if err != nil {
		t.Fatalf("Downloaded file missing: %v", err)
	}
	if string(data) != "hello world" {
		t.Errorf("Unexpected file contents %q", data)
	}

	var sawFinished bool
	for _, e := range sink.names() {
		if e == "download_finished" {
			sawFinished = true
		}
	}
	if !sawFinished {
		t.Errorf("Expected download_finished event, got %v", sink.names())
	}
}

func TestDownloadInterruptedOnHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	sink := &recordingSink{}
	m := newTestManager(t, sink)

	m.Initiate(context.Background(), srv.URL+"/missing.bin")
	m.Wait()

	entries := m.List()
	if len(entries) != 1 || entries[0].Status != "interrupted" {
		t.Fatalf("Expected interrupted download, got %v", entries)
	}

	var sawFailed bool
	for _, e := range sink.names() {
		if e == "download_interrupted" {
			sawFailed = true
		}
	}
	if !sawFailed {
		t.Errorf("Expected download_interrupted event, got %v", sink.names())
	}
}

func TestDuplicateFilenamesRenamed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	m := newTestManager(t, nil)
	ctx := context.Background()
	m.Initiate(ctx, srv.URL+"/report.pdf")
	m.Initiate(ctx, srv.URL+"/report.pdf")
	m.Initiate(ctx, srv.URL+"/report.pdf")
	m.Wait()

	want := map[string]bool{
		"report.pdf":     false,
		"report (1).pdf": false,
		"report (2).pdf": false,
	}
	for _, e := range m.List() {
		if _, ok := want[e.Filename]; !ok {
			t.Errorf("Unexpected filename %q", e.Filename)
			continue
		}
		want[e.Filename] = true
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("Missing expected filename %q", name)
		}
	}
}

func TestHistorySurvivesRestart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("persisted"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	history := filepath.Join(dir, "history.json")

	m := NewManager(ManagerConfig{Dir: dir, HistoryFile: history})
	m.Initiate(context.Background(), srv.URL+"/keep.txt")
	m.Wait()

	reloaded := NewManager(ManagerConfig{Dir: dir, HistoryFile: history})
	entries := reloaded.List()
	if len(entries) != 1 {
		t.Fatalf("Expected one historic download, got %v", entries)
	}
	if entries[0].Filename != "keep.txt" || entries[0].Status != "finished" {
		t.Errorf("Unexpected history entry %+v", entries[0])
	}
}

func TestFilenameFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("bare path"))
	}))
	defer srv.Close()

	m := newTestManager(t, nil)
	m.Initiate(context.Background(), srv.URL+"/")
	m.Wait()

	entries := m.List()
	if len(entries) != 1 {
		t.Fatalf("Expected one download, got %v", entries)
	}
	// The bare name comes from the fallback; the extension from content
	// detection.
	if entries[0].Filename != "download.txt" {
		t.Errorf("Expected download.txt, got %q", entries[0].Filename)
	}
}
