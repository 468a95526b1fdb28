package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thatfloflo/quahl/internal/domain/events"
	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
	"github.com/thatfloflo/quahl/internal/infrastructure/monitoring"
)

// ErrNoWindow reports an operation against an unknown window UUID.
var ErrNoWindow = errors.New("no window with that uuid")

// ErrStopped reports a call after the manager shut down.
var ErrStopped = errors.New("browser manager stopped")

// ManagerConfig wires the manager's collaborators.
type ManagerConfig struct {
	Sink           events.Sink
	Prober         Prober
	Logger         *logging.Logger
	Metrics        *monitoring.Metrics
	ToolbarVisible bool
	ProbeTimeout   time.Duration
}

// Manager is the single-threaded owner of all window state.
type Manager struct {
	cmds    chan func()
	stopped chan struct{}

	windows map[string]*Window
	order   []string // creation order, oldest first
	focused string

	sink         events.Sink
	prober       Prober
	log          *logging.Logger
	metrics      *monitoring.Metrics
	toolbar      bool
	probeTimeout time.Duration
}

// NewManager creates a manager. Run must be called before any window
// operation is issued.
func NewManager(cfg ManagerConfig) *Manager {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}
	return &Manager{
		cmds:         make(chan func(), 16),
		stopped:      make(chan struct{}),
		windows:      make(map[string]*Window),
		sink:         cfg.Sink,
		prober:       cfg.Prober,
		log:          log,
		metrics:      cfg.Metrics,
		toolbar:      cfg.ToolbarVisible,
		probeTimeout: probeTimeout,
	}
}

// Run processes queued commands until ctx is cancelled. It is the only
// goroutine that ever touches window state.
func (m *Manager) Run(ctx context.Context) {
	defer close(m.stopped)
	for {
		select {
		case cmd := <-m.cmds:
			cmd()
		case <-ctx.Done():
			return
		}
	}
}

// do runs fn on the manager goroutine and blocks for completion. The
// caller's perspective is a scoped round-trip; the manager itself only
// ever executes one command at a time.
func (m *Manager) do(fn func()) error {
	done := make(chan struct{})
	select {
	case m.cmds <- func() { fn(); close(done) }:
	case <-m.stopped:
		return ErrStopped
	}
	select {
	case <-done:
		return nil
	case <-m.stopped:
		return ErrStopped
	}
}

// CreateWindow opens a window, optionally navigating to url, and
// focuses it. It returns the new window's UUID.
func (m *Manager) CreateWindow(ctx context.Context, url string) (string, error) {
	return m.createWindow(ctx, url, false)
}

// CreatePopup opens a popup window: no navigation toolbar, reported
// with is_popup set.
func (m *Manager) CreatePopup(ctx context.Context, url string) (string, error) {
	return m.createWindow(ctx, url, true)
}

func (m *Manager) createWindow(ctx context.Context, url string, popup bool) (string, error) {
	var created string
	err := m.do(func() {
		// UUIDv4 collisions are essentially impossible, but the
		// registry is keyed on them, so check anyway.
		id := uuid.NewString()
		for _, taken := m.windows[id]; taken; _, taken = m.windows[id] {
			id = uuid.NewString()
		}

		w := &Window{
			UUID:           id,
			URL:            url,
			IsPopup:        popup,
			ToolbarVisible: m.toolbar && !popup,
			CreatedAt:      time.Now(),
		}
		m.windows[id] = w
		m.order = append(m.order, id)
		m.focused = id
		m.updateGauge()
		created = id

		m.log.Info("Window created",
			zap.String("uuid", id),
			zap.String("url", url),
			zap.Bool("popup", popup),
		)
		m.emit(events.WindowCreated, map[string]any{"uuid": id, "url": url})
	})
	if err != nil {
		return "", err
	}
	if url != "" {
		go m.probe(created, url)
	}
	return created, nil
}

// CloseWindow closes one window. It reports false when the UUID is
// unknown; that is the documented soft failure, not an error.
func (m *Manager) CloseWindow(ctx context.Context, id string) bool {
	var found bool
	m.do(func() {
		found = m.removeWindow(id)
	})
	return found
}

// CloseAllWindows closes every window.
func (m *Manager) CloseAllWindows(ctx context.Context) bool {
	err := m.do(func() {
		for _, id := range append([]string(nil), m.order...) {
			m.removeWindow(id)
		}
	})
	return err == nil
}

// removeWindow runs on the manager goroutine.
func (m *Manager) removeWindow(id string) bool {
	if _, ok := m.windows[id]; !ok {
		return false
	}
	delete(m.windows, id)
	for i, other := range m.order {
		if other == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	if m.focused == id {
		// Focus falls back to the most recently created survivor.
		m.focused = ""
		if len(m.order) > 0 {
			m.focused = m.order[len(m.order)-1]
		}
	}
	m.updateGauge()
	m.log.Info("Window removed", zap.String("uuid", id))
	m.emit(events.WindowRemoved, map[string]any{"uuid": id})
	if len(m.windows) == 0 {
		m.emit(events.AllWindowsRemoved, nil)
	}
	return true
}

// Windows returns all window UUIDs in creation order.
func (m *Manager) Windows(ctx context.Context) []string {
	var ids []string
	m.do(func() {
		ids = append([]string(nil), m.order...)
	})
	return ids
}

// WindowInfo returns a snapshot of one window.
func (m *Manager) WindowInfo(ctx context.Context, id string) (Snapshot, bool) {
	var (
		snap Snapshot
		ok   bool
	)
	m.do(func() {
		var w *Window
		if w, ok = m.windows[id]; ok {
			snap = w.snapshot(m.focused == id)
		}
	})
	return snap, ok
}

// Snapshots returns all windows, for the debug surface.
func (m *Manager) Snapshots(ctx context.Context) []Snapshot {
	var snaps []Snapshot
	m.do(func() {
		snaps = make([]Snapshot, 0, len(m.order))
		for _, id := range m.order {
			snaps = append(snaps, m.windows[id].snapshot(m.focused == id))
		}
	})
	return snaps
}

// SetURL navigates a window. Unknown windows are a hard error here,
// unlike the boolean-returning operations.
func (m *Manager) SetURL(ctx context.Context, id, url string) error {
	var found bool
	if err := m.do(func() {
		w, ok := m.windows[id]
		if !ok {
			return
		}
		found = true
		w.URL = url
		w.Title = ""
		m.emit(events.URLChanged, map[string]any{"uuid": id, "url": url})
	}); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrNoWindow, id)
	}
	go m.probe(id, url)
	return nil
}

// SetIcon sets a window's icon URL. False when the window is unknown.
func (m *Manager) SetIcon(ctx context.Context, id, iconURL string) bool {
	var found bool
	m.do(func() {
		if w, ok := m.windows[id]; ok {
			found = true
			w.IconURL = iconURL
		}
	})
	return found
}

// SetToolbarVisible toggles a window's navigation toolbar. False when
// the window is unknown.
func (m *Manager) SetToolbarVisible(ctx context.Context, id string, visible bool) bool {
	var found bool
	m.do(func() {
		if w, ok := m.windows[id]; ok {
			found = true
			w.ToolbarVisible = visible
		}
	})
	return found
}

// probe resolves page metadata off the manager goroutine, then applies
// it. The window may be gone by the time the probe returns; that is
// not an error.
func (m *Manager) probe(id, url string) {
	if m.prober == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.probeTimeout)
	defer cancel()

	meta, err := m.prober.Probe(ctx, url)
	if err != nil {
		m.log.Debug("Page probe failed",
			zap.String("uuid", id),
			zap.String("url", url),
			zap.Error(err),
		)
		return
	}
	m.do(func() {
		w, ok := m.windows[id]
		if !ok || w.URL != url {
			// Stale probe: the window navigated away or closed.
			return
		}
		if meta.Title != "" {
			w.Title = meta.Title
		}
		if meta.IconURL != "" && w.IconURL == "" {
			w.IconURL = meta.IconURL
		}
		m.emit(events.NavigationFinished, map[string]any{
			"uuid":  id,
			"url":   url,
			"title": w.Title,
		})
	})
}

func (m *Manager) emit(event string, data any) {
	if m.sink != nil {
		m.sink.Emit(event, data)
	}
}

func (m *Manager) updateGauge() {
	if m.metrics != nil {
		m.metrics.WindowsActive.Set(float64(len(m.windows)))
	}
}
