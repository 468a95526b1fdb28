package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thatfloflo/quahl/internal/infrastructure/logging"
	"github.com/thatfloflo/quahl/internal/infrastructure/monitoring"
	"github.com/thatfloflo/quahl/internal/ipc/framing"
	"github.com/thatfloflo/quahl/internal/ipc/jsonrpc"
	"github.com/thatfloflo/quahl/internal/ipc/rpc"
	"github.com/thatfloflo/quahl/internal/shared/id"
)

// session serves one accepted connection. Requests on a session are
// handled strictly in arrival order; pushes interleave between framed
// messages under the write lock, never inside one.
type session struct {
	id      id.SessionID
	conn    net.Conn
	framer  *framing.Framer
	reg     *rpc.Registry
	log     *logging.Logger
	metrics *monitoring.Metrics

	writeMu      sync.Mutex
	writeTimeout time.Duration

	closing   chan struct{}
	closeOnce sync.Once
	done      chan struct{}
}

func newSession(conn net.Conn, reg *rpc.Registry, maxBuffered int, writeTimeout time.Duration, log *logging.Logger, metrics *monitoring.Metrics) *session {
	sid := id.NewSessionID()
	return &session{
		id:           sid,
		conn:         conn,
		framer:       framing.New(maxBuffered),
		reg:          reg,
		log:          log.With(zap.String("session", sid.String()), zap.String("remote", conn.RemoteAddr().String())),
		metrics:      metrics,
		writeTimeout: writeTimeout,
		closing:      make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// requestClose asks the session to stop after any in-flight request has
// written its response. An idle reader is kicked awake by expiring its
// read deadline.
func (s *session) requestClose() {
	s.closeOnce.Do(func() {
		close(s.closing)
		s.conn.SetReadDeadline(time.Now())
	})
}

func (s *session) closeRequested() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

// run reads, frames and dispatches until the peer disconnects or a close
// is requested. The close check sits after dispatch so the response to a
// close_socket or exit call always reaches the wire first.
func (s *session) run(ctx context.Context) {
	defer close(s.done)
	defer s.conn.Close()

	s.log.Info("Session opened")
	buf := make([]byte, 32<<10)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			if s.metrics != nil {
				s.metrics.FramedBytes.Add(float64(n))
			}
			if ferr := s.framer.Append(buf[:n]); ferr != nil {
				s.log.Warn("Closing session over framing limit", zap.Error(ferr))
				return
			}
			for {
				msg, ok := s.framer.Next()
				if !ok {
					break
				}
				if len(bytes.TrimSpace(msg)) == 0 {
					// Stray terminators are tolerated and ignored.
					continue
				}
				s.handle(ctx, msg)
			}
		}
		if s.closeRequested() {
			s.log.Info("Session closing on request")
			return
		}
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Info("Session closed", zap.Error(err))
			}
			return
		}
	}
}

// handle dispatches one framed message and writes whatever it produced.
// Notifications dispatch for their side effects but yield no bytes; a
// batch of nothing but notifications yields no bytes either.
func (s *session) handle(ctx context.Context, msg []byte) {
	entries, batch, parseErr := jsonrpc.Decode(msg)
	if parseErr != nil {
		s.writeOutbound(parseErr)
		return
	}

	encoded := make([][]byte, 0, len(entries))
	for _, e := range entries {
		var out *jsonrpc.Outbound
		switch {
		case e.Err != nil:
			out = e.Err
		case e.Request.Notification():
			s.reg.Dispatch(ctx, e.Request.Method, e.Request.Params)
			continue
		default:
			result, fault := s.reg.Dispatch(ctx, e.Request.Method, e.Request.Params)
			if fault != nil {
				out = jsonrpc.NewError(e.Request.ID, fault.Code, fault.Message)
			} else {
				out = jsonrpc.NewResponse(e.Request.ID, result)
			}
		}
		enc, err := out.Encode()
		if err != nil {
			s.log.Error("Failed to encode response", zap.Error(err))
			enc, _ = jsonrpc.NewError(e.Request.ID, jsonrpc.CodeInternalError, "Internal error").Encode()
		}
		encoded = append(encoded, enc)
	}

	if len(encoded) == 0 {
		return
	}
	if batch {
		s.write(jsonrpc.EncodeBatch(encoded))
		return
	}
	s.write(encoded[0])
}

func (s *session) writeOutbound(out *jsonrpc.Outbound) {
	enc, err := out.Encode()
	if err != nil {
		s.log.Error("Failed to encode response", zap.Error(err))
		return
	}
	s.write(enc)
}

// write frames and sends one payload. The write lock keeps concurrent
// pushes from interleaving bytes inside a response.
func (s *session) write(payload []byte) {
	s.writeFramed(framing.AppendTerminator(payload))
}

// writeFramed sends an already-terminated payload. Used directly by the
// broadcast path, which frames the push once for all sessions.
func (s *session) writeFramed(framed []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if _, err := s.conn.Write(framed); err != nil {
		s.log.Warn("Write failed", zap.Error(err))
	}
}
