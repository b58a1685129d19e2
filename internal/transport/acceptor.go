package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/protocol"
	"github.com/StoreStation/chunkserver/internal/registry"
)

// pingEventType is the only eventType that takes the header-only fast path.
const pingEventType = "pingClient"

// FrameContext is one fully-parsed, non-ping client frame, resolved against
// the ClientRegistry and ready for the dispatch layer to turn into a typed
// model.Event. ClientID is 0 until JOIN_CLIENT has registered this socket —
// the dispatcher, not the acceptor, decides what that means for a given
// eventType.
type FrameContext struct {
	Socket   model.Socket
	ClientID int64
	Envelope protocol.Envelope
}

// Dispatcher turns parsed frames into typed events and pushes them onto the
// ingress/ping queues. Implemented by internal/dispatch.EventDispatcher; kept
// as an interface here so transport never imports dispatch.
type Dispatcher interface {
	// DispatchBatch handles every non-ping frame extracted during a single
	// read cycle (at most maxFramesPerRead), so the batch size pushed
	// downstream is naturally capped the same way.
	DispatchBatch(frames []FrameContext)
	// DispatchPing handles one ping frame at a time — the ping queue is
	// drained one event per cycle, not batched, for minimum latency.
	DispatchPing(clientID int64, socket model.Socket, clientSendMs int64)
	// DispatchDisconnect is called exactly once per session that had a
	// resolved, non-zero clientId at the time it disconnected.
	DispatchDisconnect(clientID int64, socket model.Socket)
}

// AcceptorConfig bundles ClientAcceptor's listen address and per-connection
// tunables.
type AcceptorConfig struct {
	Host          string
	Port          int
	MaxClients    int
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	SendQueueSize int
}

// ClientAcceptor owns the listening socket game clients connect to. Each
// accepted connection gets its own Session plus a dedicated read goroutine
// that extracts frames and hands them to the Dispatcher.
type ClientAcceptor struct {
	cfg        AcceptorConfig
	clients    *registry.ClientRegistry
	dispatcher Dispatcher
	log        *slog.Logger

	mu       sync.Mutex
	listener net.Listener
}

// NewClientAcceptor builds a ClientAcceptor. log may be nil, in which case a
// discarding logger is used.
func NewClientAcceptor(cfg AcceptorConfig, clients *registry.ClientRegistry, dispatcher Dispatcher, log *slog.Logger) *ClientAcceptor {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ClientAcceptor{cfg: cfg, clients: clients, dispatcher: dispatcher, log: log}
}

// Run listens on cfg.Host:cfg.Port and serves connections until ctx is
// cancelled.
func (a *ClientAcceptor) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", a.cfg.Host, a.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: listen on %s: %w", addr, err)
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()
	return a.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is cancelled. Split out from
// Run so tests can drive it against a listener of their own (e.g. on port
// 0, or a net.Pipe-backed stand-in).
func (a *ClientAcceptor) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	a.log.Info("transport: client acceptor started", "address", ln.Addr())
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		default:
		}

		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				wg.Wait()
				return nil
			}
			a.log.Error("transport: accept failed", "error", err)
			continue
		}

		if a.cfg.MaxClients > 0 && a.clients.Count() >= a.cfg.MaxClients {
			a.log.Warn("transport: max clients reached, rejecting connection", "remote", conn.RemoteAddr())
			conn.Close()
			continue
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetKeepAlive(true)
			_ = tc.SetKeepAlivePeriod(30 * time.Second)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.handleConnection(ctx, conn)
		}()
	}
}

// Addr returns the address the acceptor is listening on, nil before Run has
// bound a listener.
func (a *ClientAcceptor) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

func (a *ClientAcceptor) handleConnection(ctx context.Context, conn net.Conn) {
	session := NewSession(conn, a.cfg.SendQueueSize, a.cfg.WriteTimeout, a.log)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			session.Close()
		case <-done:
		}
	}()

	go session.writePump()
	defer func() {
		session.Close()
		clientID := a.clients.UnregisterBySocket(session)
		if clientID != 0 {
			a.dispatcher.DispatchDisconnect(clientID, session)
		}
	}()

	readTimeout := a.cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}

	scratch := make([]byte, scratchBufSize)
	var acc []byte
	reads := 0
	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}
		n, err := conn.Read(scratch)
		if n > 0 {
			acc = append(acc, scratch[:n]...)
			frames, rest, breach := extractFrames(acc)
			acc = rest
			a.processFrames(session, frames)
			if breach {
				a.log.Warn("transport: frame/accumulator size limit breached, disconnecting", "remote", conn.RemoteAddr())
				return
			}
			reads++
			if reads%compactEveryNReads == 0 {
				acc = compactAccumulator(acc)
			}
		}
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				a.log.Debug("transport: read ended", "remote", conn.RemoteAddr(), "error", err)
			}
			return
		}
	}
}

// processFrames routes every frame extracted during one read cycle: pings
// take the header-only fast path individually, everything else is fully
// parsed and handed to the dispatcher as a single batch.
func (a *ClientAcceptor) processFrames(session *Session, frames [][]byte) {
	if len(frames) == 0 {
		return
	}

	var batch []FrameContext
	for _, frame := range frames {
		var peek struct {
			Header protocol.Header `json:"header"`
		}
		if err := json.Unmarshal(frame, &peek); err != nil {
			a.log.Debug("transport: malformed frame, skipping", "error", err)
			continue
		}

		if peek.Header.EventType == pingEventType {
			clientID := peek.Header.ClientID
			if clientID == 0 {
				clientID = a.clients.ClientIDBySocket(session)
			}
			if clientID == 0 {
				a.log.Debug("transport: dropping ping from unauthenticated client", "remote", session.remote)
				continue
			}
			a.dispatcher.DispatchPing(clientID, session, peek.Header.ClientSendMs)
			continue
		}

		env, err := protocol.ParseEnvelope(frame)
		if err != nil {
			a.log.Debug("transport: malformed frame, skipping", "error", err)
			continue
		}
		clientID := a.clients.ClientIDBySocket(session)
		batch = append(batch, FrameContext{Socket: session, ClientID: clientID, Envelope: env})
	}

	if len(batch) > 0 {
		a.dispatcher.DispatchBatch(batch)
	}
}
