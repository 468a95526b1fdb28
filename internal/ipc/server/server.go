package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
	"github.com/thatfloflo/quahl/internal/infrastructure/monitoring"
	"github.com/thatfloflo/quahl/internal/ipc/framing"
	"github.com/thatfloflo/quahl/internal/ipc/jsonrpc"
	"github.com/thatfloflo/quahl/internal/ipc/rpc"
)

// Config holds the control socket settings.
type Config struct {
	// Addr is the TCP listen address; port 0 picks a free port.
	Addr string
	// MaxBufferedBytes caps a session's unterminated inbound buffer.
	MaxBufferedBytes int
	// WriteTimeout bounds each framed write, so one stalled client
	// cannot wedge a broadcast.
	WriteTimeout time.Duration
	// Announce receives the one-line startup announcement. Defaults to
	// os.Stdout; everything else the process prints goes to stderr.
	Announce io.Writer

	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Server owns the control socket: it accepts sessions, hands inbound
// requests to the method registry and fans pushes out to every live
// session. It implements events.Sink so the browser facade can publish
// straight into it.
type Server struct {
	cfg Config
	reg *rpc.Registry
	log *logging.Logger

	listener net.Listener

	mu       sync.Mutex
	sessions map[*session]struct{}

	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// New creates a server around a populated registry.
func New(cfg Config, reg *rpc.Registry) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Announce == nil {
		cfg.Announce = os.Stdout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Server{
		cfg:      cfg,
		reg:      reg,
		log:      cfg.Logger,
		sessions: make(map[*session]struct{}),
		closed:   make(chan struct{}),
	}
}

// Start binds the listener, announces the bound address and begins
// accepting sessions. The announcement is the only thing this process
// ever writes to the announce stream, and it is written exactly once.
func (s *Server) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %q: %w", s.cfg.Addr, err)
	}
	s.listener = l
	s.log.Info("Control socket listening", zap.String("addr", l.Addr().String()))

	announcement := fmt.Sprintf(`{"QuahlIPCSocket": "%s"}`, l.Addr().String())
	if _, err := s.cfg.Announce.Write(framing.AppendTerminator([]byte(announcement))); err != nil {
		l.Close()
		return fmt.Errorf("write announcement: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	s.wg.Add(1)
	go s.acceptLoop(ctx)
	return nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
			default:
				if !errors.Is(err, net.ErrClosed) {
					s.log.Error("Accept failed", zap.Error(err))
				}
			}
			return
		}

		sess := newSession(conn, s.reg, s.cfg.MaxBufferedBytes, s.cfg.WriteTimeout, s.log, s.cfg.Metrics)
		s.mu.Lock()
		s.sessions[sess] = struct{}{}
		s.mu.Unlock()
		if s.cfg.Metrics != nil {
			s.cfg.Metrics.SessionsTotal.Inc()
			s.cfg.Metrics.SessionsActive.Inc()
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sess.run(ctx)
			s.mu.Lock()
			delete(s.sessions, sess)
			s.mu.Unlock()
			if s.cfg.Metrics != nil {
				s.cfg.Metrics.SessionsActive.Dec()
			}
		}()
	}
}

// Emit broadcasts one facade event to every live session as a push
// message. The push is encoded once; per-session delivery runs on its
// own goroutine so a slow client never blocks the emitting domain.
func (s *Server) Emit(event string, data any) {
	enc, err := jsonrpc.NewPush(map[string]any{"event": event, "data": data}).Encode()
	if err != nil {
		s.log.Error("Failed to encode push", zap.String("event", event), zap.Error(err))
		return
	}
	framed := framing.AppendTerminator(enc)

	s.mu.Lock()
	targets := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		targets = append(targets, sess)
	}
	s.mu.Unlock()

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.PushesTotal.Inc()
	}
	for _, sess := range targets {
		go sess.writeFramed(framed)
	}
}

// Shutdown stops accepting, asks every session to close after its
// in-flight response, and waits for them to drain. Idempotent, safe to
// call from a method handler via an async signal.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.closed)
		s.log.Info("Control socket shutting down")
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Lock()
		for sess := range s.sessions {
			sess.requestClose()
		}
		s.mu.Unlock()
	})
	s.wg.Wait()
}
