// Package transport implements the chunk server's client-facing TCP layer:
// Session (one connection's framing, write pump, and model.Socket surface)
// and ClientAcceptor (the listener's accept loop and per-connection frame
// routing). See internal/dispatch for what happens to a frame once it's
// been parsed and resolved to a clientId here.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

const (
	scratchBufSize       = 4 * 1024
	maxFrameSize         = 8 * 1024
	maxAccumulatorSize   = 64 * 1024
	maxFramesPerRead     = 10
	defaultSendQueueSize = 256
	defaultWriteTimeout  = 10 * time.Second
	defaultReadTimeout   = 30 * time.Second

	// compactEveryNReads bounds how often the read loop checks whether the
	// accumulator's backing array has outgrown what it actually holds.
	compactEveryNReads = 32
)

// Session owns one client TCP connection: the dedicated writer goroutine
// that drains queued outgoing lines, and the model.Socket surface handlers
// use to reach it without ever holding a net.Conn directly. Frame extraction
// itself lives in extractFrames; the read loop that drives it lives in
// ClientAcceptor.handleConnection, which also owns this Session's lifetime.
type Session struct {
	conn   net.Conn
	remote string

	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	writeTimeout time.Duration
	log          *slog.Logger
}

// NewSession wraps conn in a Session. The write pump is not started here —
// the caller starts it with go session.writePump() once ready to receive
// writes, mirroring the accept loop's ordering in ClientAcceptor.
func NewSession(conn net.Conn, sendQueueSize int, writeTimeout time.Duration, log *slog.Logger) *Session {
	if sendQueueSize <= 0 {
		sendQueueSize = defaultSendQueueSize
	}
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Session{
		conn:         conn,
		remote:       conn.RemoteAddr().String(),
		sendCh:       make(chan []byte, sendQueueSize),
		closeCh:      make(chan struct{}),
		writeTimeout: writeTimeout,
		log:          log,
	}
}

// Send implements model.Socket. Non-blocking: a full send queue means the
// client isn't draining fast enough, so the session is disconnected rather
// than letting one slow client back-pressure the whole simulation loop.
func (s *Session) Send(line []byte) error {
	select {
	case s.sendCh <- line:
		return nil
	case <-s.closeCh:
		return errors.New("transport: session is closed")
	default:
		s.log.Warn("transport: send queue full, disconnecting slow client", "remote", s.remote)
		s.CloseAsync()
		return fmt.Errorf("transport: send queue full for %s", s.remote)
	}
}

// IsOpen implements model.Socket.
func (s *Session) IsOpen() bool { return !s.closed.Load() }

// CloseAsync marks the session closed and stops the write pump without
// touching the connection itself; safe to call more than once.
func (s *Session) CloseAsync() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
	})
}

// Close implements model.Socket: stops the write pump and closes conn.
func (s *Session) Close() error {
	s.CloseAsync()
	return s.conn.Close()
}

// Conn exposes the underlying connection for the read loop (SetReadDeadline,
// Read) and for tests.
func (s *Session) Conn() net.Conn { return s.conn }

// writePump is the only goroutine allowed to write to conn. On a single
// queued line it writes directly; when more than one line is already
// pending it drains them all into one net.Buffers.WriteTo call so a burst of
// responses costs one syscall instead of many.
func (s *Session) writePump() {
	defer s.drainSendCh()

	bufs := make(net.Buffers, 0, 64)
	for {
		select {
		case <-s.closeCh:
			return
		case line := <-s.sendCh:
			queued := len(s.sendCh)
			if queued == 0 {
				if err := s.writeLine(line); err != nil {
					s.log.Debug("transport: write failed", "remote", s.remote, "error", err)
					s.CloseAsync()
					return
				}
				continue
			}

			bufs = bufs[:0]
			bufs = append(bufs, line)
			for i := 0; i < queued; i++ {
				bufs = append(bufs, <-s.sendCh)
			}
			if s.writeTimeout > 0 {
				_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if _, err := bufs.WriteTo(s.conn); err != nil {
				s.log.Debug("transport: batched write failed", "remote", s.remote, "error", err)
				s.CloseAsync()
				return
			}
		}
	}
}

func (s *Session) writeLine(line []byte) error {
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	_, err := s.conn.Write(line)
	return err
}

// drainSendCh empties whatever is still queued when the write pump exits, so
// a slow producer blocked on a send select doesn't wedge against a channel
// nobody will ever read again.
func (s *Session) drainSendCh() {
	for {
		select {
		case <-s.sendCh:
		default:
			return
		}
	}
}
