package downloads

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/thatfloflo/quahl/internal/domain/events"
	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
	"github.com/thatfloflo/quahl/internal/infrastructure/monitoring"
	"github.com/thatfloflo/quahl/internal/shared/id"
)

// Status is a download's lifecycle state.
type Status string

const (
	StatusRequested   Status = "requested"
	StatusInProgress  Status = "in_progress"
	StatusFinished    Status = "finished"
	StatusInterrupted Status = "interrupted"
)

// Download is one tracked download.
type Download struct {
	ID         id.DownloadID `json:"id"`
	URL        string        `json:"url"`
	Filename   string        `json:"filename"`
	Status     Status        `json:"status"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt *time.Time    `json:"finished_at,omitempty"`
}

// Entry is the wire-facing filename/status pair for get_downloads.
type Entry struct {
	Filename string
	Status   string
}

// ManagerConfig wires the manager's collaborators.
type ManagerConfig struct {
	Dir         string
	HistoryFile string
	Sink        events.Sink
	Logger      *logging.Logger
	Metrics     *monitoring.Metrics
	// FetchTimeout bounds one download; zero means no limit.
	FetchTimeout time.Duration
}

// Manager tracks downloads and performs the fetches.
type Manager struct {
	mu      sync.Mutex
	items   []*Download
	dir     string
	history string
	client  *resty.Client
	sink    events.Sink
	log     *logging.Logger
	metrics *monitoring.Metrics
	wg      sync.WaitGroup
}

// NewManager creates a download manager. The directory is created on
// demand; previously persisted history is loaded if present.
func NewManager(cfg ManagerConfig) *Manager {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}
	dir := cfg.Dir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "quahl-downloads")
	}
	history := cfg.HistoryFile
	if history == "" {
		history = filepath.Join(dir, "downloads.json")
	}
	client := resty.New().SetHeader("User-Agent", "Quahl/0.1")
	if cfg.FetchTimeout > 0 {
		client.SetTimeout(cfg.FetchTimeout)
	}
	m := &Manager{
		dir:     dir,
		history: history,
		client:  client,
		sink:    cfg.Sink,
		log:     log,
		metrics: cfg.Metrics,
	}
	m.loadHistory()
	return m
}

// Initiate accepts a download request. It reports acceptance, not
// completion: the fetch runs in the background. Unparseable or
// non-HTTP URLs are rejected with false.
func (m *Manager) Initiate(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		m.log.Warn("Rejected download request", zap.String("url", rawURL))
		return false
	}

	d := &Download{
		ID:        id.NewDownloadID(),
		URL:       rawURL,
		Filename:  filenameFromURL(u),
		Status:    StatusRequested,
		StartedAt: time.Now(),
	}

	m.mu.Lock()
	d.Filename = m.dedupeLocked(d.Filename)
	m.items = append(m.items, d)
	m.mu.Unlock()

	m.log.Info("Download requested",
		zap.String("id", d.ID.String()),
		zap.String("url", rawURL),
		zap.String("filename", d.Filename),
	)
	m.emit(events.DownloadRequested, map[string]any{
		"id":       d.ID.String(),
		"url":      d.URL,
		"filename": d.Filename,
	})

	m.wg.Add(1)
	go m.fetch(d)
	return true
}

// List returns filename/status pairs in request order.
func (m *Manager) List() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := make([]Entry, 0, len(m.items))
	for _, d := range m.items {
		entries = append(entries, Entry{Filename: d.Filename, Status: string(d.Status)})
	}
	return entries
}

// All returns full snapshots, for the debug surface.
func (m *Manager) All() []Download {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]Download, 0, len(m.items))
	for _, d := range m.items {
		all = append(all, *d)
	}
	return all
}

// Wait blocks until all in-flight fetches finish. Used by tests and by
// shutdown to avoid abandoning half-written files.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) fetch(d *Download) {
	defer m.wg.Done()

	m.setStatus(d, StatusInProgress, "")

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		m.fail(d, fmt.Errorf("create download dir: %w", err))
		return
	}

	target := filepath.Join(m.dir, d.Filename)
	resp, err := m.client.R().SetOutput(target).Get(d.URL)
	if err != nil {
		m.fail(d, err)
		return
	}
	if !resp.IsSuccess() {
		os.Remove(target)
		m.fail(d, fmt.Errorf("status %d", resp.StatusCode()))
		return
	}

	// A URL with no usable filename gets an extension from the bytes
	// actually received.
	if !strings.Contains(d.Filename, ".") {
		if mt, err := mimetype.DetectFile(target); err == nil && mt.Extension() != "" {
			renamed := d.Filename + mt.Extension()
			m.mu.Lock()
			renamed = m.dedupeLocked(renamed)
			m.mu.Unlock()
			if os.Rename(target, filepath.Join(m.dir, renamed)) == nil {
				m.mu.Lock()
				d.Filename = renamed
				m.mu.Unlock()
			}
		}
	}

	m.setStatus(d, StatusFinished, "")
	m.log.Info("Download finished",
		zap.String("id", d.ID.String()),
		zap.String("filename", d.Filename),
	)
	m.emit(events.DownloadFinished, map[string]any{
		"id":       d.ID.String(),
		"url":      d.URL,
		"filename": d.Filename,
	})
	m.persist()
}

func (m *Manager) fail(d *Download, err error) {
	m.setStatus(d, StatusInterrupted, err.Error())
	m.log.Warn("Download interrupted",
		zap.String("id", d.ID.String()),
		zap.String("url", d.URL),
		zap.Error(err),
	)
	m.emit(events.DownloadFailed, map[string]any{
		"id":     d.ID.String(),
		"url":    d.URL,
		"reason": err.Error(),
	})
	m.persist()
}

func (m *Manager) setStatus(d *Download, status Status, errMsg string) {
	m.mu.Lock()
	d.Status = status
	d.Error = errMsg
	if status == StatusFinished || status == StatusInterrupted {
		now := time.Now()
		d.FinishedAt = &now
		if m.metrics != nil {
			m.metrics.DownloadsTotal.WithLabelValues(string(status)).Inc()
		}
	}
	m.mu.Unlock()
}

// dedupeLocked appends " (n)" before the extension until the name
// clashes with neither tracked items nor files already on disk.
func (m *Manager) dedupeLocked(name string) string {
	taken := func(candidate string) bool {
		for _, d := range m.items {
			if d.Filename == candidate {
				return true
			}
		}
		_, err := os.Stat(filepath.Join(m.dir, candidate))
		return err == nil
	}

	if !taken(name) {
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, n, ext)
		if !taken(candidate) {
			return candidate
		}
	}
}

// persist writes the full history with sonic; histories can grow large
// and are only ever read back wholesale.
func (m *Manager) persist() {
	m.mu.Lock()
	data, err := sonic.MarshalIndent(m.items, "", "  ")
	m.mu.Unlock()
	if err != nil {
		m.log.Warn("Failed to encode download history", zap.Error(err))
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.history), 0o755); err != nil {
		return
	}
	if err := os.WriteFile(m.history, data, 0o644); err != nil {
		m.log.Warn("Failed to persist download history", zap.Error(err))
	}
}

func (m *Manager) loadHistory() {
	data, err := os.ReadFile(m.history)
	if err != nil {
		return
	}
	var items []*Download
	if err := sonic.Unmarshal(data, &items); err != nil {
		m.log.Warn("Ignoring corrupt download history", zap.Error(err))
		return
	}
	// In-flight statuses cannot survive a restart.
	for _, d := range items {
		if d.Status == StatusRequested || d.Status == StatusInProgress {
			d.Status = StatusInterrupted
			d.Error = "application restarted"
		}
	}
	m.items = items
}

func (m *Manager) emit(event string, data any) {
	if m.sink != nil {
		m.sink.Emit(event, data)
	}
}

func filenameFromURL(u *url.URL) string {
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "download"
	}
	return name
}
