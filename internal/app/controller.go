package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/thatfloflo/quahl/internal/domain/browser"
	"github.com/thatfloflo/quahl/internal/domain/downloads"
	"github.com/thatfloflo/quahl/internal/domain/events"
	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
	"github.com/thatfloflo/quahl/internal/ipc/rpc"
)

// ControllerConfig wires the controller's collaborators. CloseSocket and
// Quit are signals into the process shell; both must return quickly and
// tolerate being called more than once.
type ControllerConfig struct {
	Browser   *browser.Manager
	Downloads *downloads.Manager
	Logger    *logging.Logger
	Sink      events.Sink

	CloseSocket func()
	Quit        func()
}

// Controller adapts the browser and download domains to the control
// method surface. It owns no state of its own beyond the shutdown latch;
// every window query crosses into the single-threaded browser manager.
type Controller struct {
	browser   *browser.Manager
	downloads *downloads.Manager
	log       *logging.Logger
	sink      events.Sink

	closeSocket func()
	quit        func()
	quitOnce    sync.Once
}

// NewController creates the controller.
func NewController(cfg ControllerConfig) *Controller {
	log := cfg.Logger
	if log == nil {
		log = logging.NewNop()
	}
	return &Controller{
		browser:     cfg.Browser,
		downloads:   cfg.Downloads,
		log:         log,
		sink:        cfg.Sink,
		closeSocket: cfg.CloseSocket,
		quit:        cfg.Quit,
	}
}

var _ rpc.Facade = (*Controller)(nil)

func (c *Controller) CreateWindow(ctx context.Context, url string) (string, error) {
	return c.browser.CreateWindow(ctx, url)
}

func (c *Controller) CloseAllWindows(ctx context.Context) bool {
	return c.browser.CloseAllWindows(ctx)
}

func (c *Controller) CloseWindow(ctx context.Context, windowUUID string) bool {
	return c.browser.CloseWindow(ctx, windowUUID)
}

func (c *Controller) WindowInfo(ctx context.Context, windowUUID string) (*rpc.WindowInfo, bool) {
	snap, ok := c.browser.WindowInfo(ctx, windowUUID)
	if !ok {
		return nil, false
	}
	return &rpc.WindowInfo{
		UUID:           snap.UUID,
		URL:            snap.URL,
		Title:          snap.Title,
		IsPopup:        snap.IsPopup,
		ToolbarVisible: snap.ToolbarVisible,
		Active:         snap.Active,
	}, true
}

func (c *Controller) Windows(ctx context.Context) []string {
	return c.browser.Windows(ctx)
}

func (c *Controller) SetWindowURL(ctx context.Context, windowUUID, url string) error {
	return c.browser.SetURL(ctx, windowUUID, url)
}

func (c *Controller) SetWindowIcon(ctx context.Context, windowUUID, iconURL string) bool {
	return c.browser.SetIcon(ctx, windowUUID, iconURL)
}

func (c *Controller) SetWindowToolbarVisible(ctx context.Context, windowUUID string, visible bool) bool {
	return c.browser.SetToolbarVisible(ctx, windowUUID, visible)
}

func (c *Controller) InitiateDownload(ctx context.Context, url string) bool {
	return c.downloads.Initiate(ctx, url)
}

func (c *Controller) Downloads(ctx context.Context) []rpc.DownloadInfo {
	entries := c.downloads.List()
	infos := make([]rpc.DownloadInfo, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, rpc.DownloadInfo{Filename: e.Filename, Status: e.Status})
	}
	return infos
}

// CloseSocket signals the control socket to shut down. The signal is
// asynchronous so the in-flight response reaches the wire first; the
// rest of the application keeps running.
func (c *Controller) CloseSocket(ctx context.Context) {
	c.log.Info("Socket close requested")
	if c.closeSocket != nil {
		c.closeSocket()
	}
}

// Exit shuts the whole application down. The exiting push goes out
// before the quit signal so connected clients hear about it.
func (c *Controller) Exit(ctx context.Context) {
	c.quitOnce.Do(func() {
		c.log.Info("Exit requested")
		if c.sink != nil {
			c.sink.Emit(events.AppExiting, nil)
		}
		if c.quit != nil {
			c.quit()
		}
	})
}

// LifecycleSink returns a sink that exits the application once the last
// window closes, matching desktop semantics: no windows, no app.
func (c *Controller) LifecycleSink() events.Sink {
	return events.Func(func(event string, data any) {
		if event == events.AllWindowsRemoved {
			c.log.Info("Last window closed, shutting down")
			c.Exit(context.Background())
		}
	})
}

// Shutdown drains background work before the process exits.
func (c *Controller) Shutdown() {
	c.log.Debug("Draining downloads", zap.Int("tracked", len(c.downloads.List())))
	c.downloads.Wait()
}
