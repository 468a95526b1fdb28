package debug

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/thatfloflo/quahl/internal/api/middleware"
	"github.com/thatfloflo/quahl/internal/domain/browser"
	"github.com/thatfloflo/quahl/internal/domain/downloads"
	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
	"github.com/thatfloflo/quahl/internal/infrastructure/monitoring"
)

// WindowLister exposes window state for inspection.
type WindowLister interface {
	Snapshots(ctx context.Context) []browser.Snapshot
}

// DownloadLister exposes download state for inspection.
type DownloadLister interface {
	All() []downloads.Download
}

// Config holds the debug server settings.
type Config struct {
	Addr      string
	RateLimit middleware.RateLimitConfig
	Logger    *logging.Logger
	Metrics   *monitoring.Metrics
}

// Server is the optional read-only HTTP surface: health, Prometheus
// metrics, current windows and downloads, and a websocket event tap.
// It never mutates application state.
type Server struct {
	cfg       Config
	log       *logging.Logger
	windows   WindowLister
	downloads DownloadLister
	methods   []string
	tap       *EventTap
	engine    *gin.Engine
	http      *http.Server
}

// New builds the debug server. methods is the control method catalog,
// listed on /methods so tooling can discover the surface.
func New(cfg Config, windows WindowLister, dl DownloadLister, methods []string) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit = middleware.DefaultRateLimitConfig()
	}
	s := &Server{
		cfg:       cfg,
		log:       cfg.Logger,
		windows:   windows,
		downloads: dl,
		methods:   methods,
		tap:       NewEventTap(cfg.Logger),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.RateLimit(cfg.RateLimit))

	engine.GET("/health", s.handleHealth)
	engine.GET("/windows", s.handleWindows)
	engine.GET("/downloads", s.handleDownloads)
	engine.GET("/methods", s.handleMethods)
	engine.GET("/events", s.tap.Handle)
	if cfg.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	s.engine = engine
	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Tap returns the sink feeding the /events websocket stream.
func (s *Server) Tap() *EventTap {
	return s.tap
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		s.http.Shutdown(shutdownCtx)
		s.tap.Close()
	}()
	go func() {
		s.log.Info("Debug server listening", zap.String("addr", s.cfg.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("Debug server failed", zap.Error(err))
		}
	}()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"windows": len(s.windows.Snapshots(c.Request.Context())),
	})
}

func (s *Server) handleWindows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"windows": s.windows.Snapshots(c.Request.Context()),
	})
}

func (s *Server) handleDownloads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"downloads": s.downloads.All(),
	})
}

func (s *Server) handleMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"methods": s.methods,
	})
}
