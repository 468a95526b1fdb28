package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/thatfloflo/quahl/internal/api/debug"
	"github.com/thatfloflo/quahl/internal/api/middleware"
	"github.com/thatfloflo/quahl/internal/app"
	"github.com/thatfloflo/quahl/internal/domain/browser"
	"github.com/thatfloflo/quahl/internal/domain/downloads"
	"github.com/thatfloflo/quahl/internal/domain/events"
	"github.com/thatfloflo/quahl/internal/infrastructure/config"
	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
	"github.com/thatfloflo/quahl/internal/infrastructure/monitoring"
	"github.com/thatfloflo/quahl/internal/ipc/rpc"
	ipcserver "github.com/thatfloflo/quahl/internal/ipc/server"
)

func main() {
	socket := flag.Bool("socket", false, "Enable the TCP control socket")
	socketAddr := flag.String("socket-addr", "", "Control socket bind address (host:port, port 0 for auto)")
	url := flag.String("url", "", "URL for the initial window")
	configPath := flag.String("config", "", "Path to a YAML config file")
	debugAddr := flag.String("debug-addr", "", "Enable the debug HTTP surface on this address")
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *configPath != "" {
		if err := config.LoadFile(*configPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "quahl: %v\n", err)
			os.Exit(1)
		}
	}
	// Flags beat both the environment and the file.
	if *socket {
		cfg.Socket.Enabled = true
	}
	if *socketAddr != "" {
		cfg.Socket.Enabled = true
		cfg.Socket.Addr = *socketAddr
	}
	if *url != "" {
		cfg.Browser.HomeURL = *url
	}
	if *debugAddr != "" {
		cfg.Debug.Addr = *debugAddr
	}

	// Stdout is reserved for the socket announcement; all logs go to
	// stderr.
	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "quahl: logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("Fatal", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := monitoring.NewMetrics()
	mux := events.NewMux()

	bm := browser.NewManager(browser.ManagerConfig{
		Sink:           mux,
		Prober:         browser.NewHTTPProber(time.Duration(cfg.Browser.ProbeTimeoutMS)*time.Millisecond, log),
		Logger:         log,
		Metrics:        metrics,
		ToolbarVisible: cfg.Browser.ToolbarVisible,
		ProbeTimeout:   time.Duration(cfg.Browser.ProbeTimeoutMS) * time.Millisecond,
	})
	go bm.Run(ctx)

	dm := downloads.NewManager(downloads.ManagerConfig{
		Dir:         cfg.Downloads.Dir,
		HistoryFile: cfg.Downloads.HistoryFile,
		Sink:        mux,
		Logger:      log,
		Metrics:     metrics,
	})

	var srv *ipcserver.Server
	ctrl := app.NewController(app.ControllerConfig{
		Browser:   bm,
		Downloads: dm,
		Logger:    log,
		Sink:      mux,
		CloseSocket: func() {
			if srv != nil {
				// Async so the close_socket response is flushed first.
				go srv.Shutdown()
			}
		},
		Quit: stop,
	})

	reg := rpc.NewRegistry(log, metrics)
	if err := rpc.RegisterCatalog(reg, ctrl); err != nil {
		return fmt.Errorf("register methods: %w", err)
	}

	if cfg.Socket.Enabled {
		srv = ipcserver.New(ipcserver.Config{
			Addr:             cfg.Socket.Addr,
			MaxBufferedBytes: cfg.Socket.MaxBufferedBytes,
			WriteTimeout:     time.Duration(cfg.Socket.WriteTimeoutMS) * time.Millisecond,
			Logger:           log,
			Metrics:          metrics,
		}, reg)
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("control socket: %w", err)
		}
		mux.Add(srv)
	}

	if cfg.Debug.Addr != "" {
		rl := middleware.RateLimitConfig{
			RequestsPerSecond: cfg.Debug.RateLimitRPS,
			Burst:             cfg.Debug.RateLimitBurst,
		}
		if !cfg.Debug.RateLimitEnabled {
			rl = middleware.RateLimitConfig{RequestsPerSecond: 1 << 20, Burst: 1 << 20}
		}
		dbg := debug.New(debug.Config{
			Addr:      cfg.Debug.Addr,
			RateLimit: rl,
			Logger:    log,
			Metrics:   metrics,
		}, bm, dm, reg.Methods())
		dbg.Start(ctx)
		mux.Add(dbg.Tap())
	}

	// The last window closing quits the whole application.
	mux.Add(ctrl.LifecycleSink())

	if _, err := bm.CreateWindow(ctx, cfg.Browser.HomeURL); err != nil {
		return fmt.Errorf("initial window: %w", err)
	}

	<-ctx.Done()
	log.Info("Shutting down")
	if srv != nil {
		srv.Shutdown()
	}
	ctrl.Shutdown()
	return nil
}
