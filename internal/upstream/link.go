// Package upstream implements the chunk server's single outbound connection
// to the authoritative game server: the chunkServerConnection handshake,
// reconnect-with-backoff, and translation of every setX/getX replication
// frame into a model.Event pushed onto the dispatch layer's shared ingress
// queue. Grounded on GameServerWorker's connect/processGameServerData pair,
// reworked from asio's callback style into one blocking goroutine per
// connection attempt.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/StoreStation/chunkserver/internal/config"
	"github.com/StoreStation/chunkserver/internal/model"
)

// Pusher is the dispatch-side sink for upstream events. Implemented by
// dispatch.EventDispatcher; kept as an interface so this package never
// imports dispatch's producer side, only its exported payload types.
type Pusher interface {
	PushUpstream(e model.Event)
}

const (
	dialTimeout       = 10 * time.Second
	readTimeout       = 60 * time.Second
	handshakeEventID  = 1
	reconnectMaxRetry = 5
	reconnectBaseWait = 5 * time.Second
)

// Link owns the chunk server's connection to the game server: it dials,
// sends the chunkServerConnection handshake, and feeds every complete line
// it reads into translate, pushing the resulting events onto dispatcher.
type Link struct {
	gameServer  config.GameServerConfig
	chunkServer config.ChunkServerConfig
	dispatcher  Pusher
	log         *slog.Logger
}

// New builds a Link. log may be nil, in which case a discarding logger is
// used.
func New(gameServer config.GameServerConfig, chunkServer config.ChunkServerConfig, dispatcher Pusher, log *slog.Logger) *Link {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Link{gameServer: gameServer, chunkServer: chunkServer, dispatcher: dispatcher, log: log}
}

// Run dials the game server and serves it until ctx is cancelled, transparently
// reconnecting on any connect or read failure. Each connection attempt gets
// its own bounded exponential backoff (5s, 10s, 20s, 40s, 80s, capped at
// reconnectMaxRetry attempts) mirroring GameServerWorker::connect's own
// RETRY_TIMEOUT * 2^n schedule; unlike the original, which calls exit(1)
// once that budget is exhausted, Run logs the exhaustion and starts a fresh
// backoff cycle rather than taking the whole process down — a dropped
// upstream link should degrade the chunk server, not crash it.
func (l *Link) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		conn, err := l.connectWithBackoff(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Error("upstream: exhausted reconnect attempts, will retry", "error", err)
			continue
		}

		l.log.Info("upstream: connected to game server", "address", conn.RemoteAddr())
		if err := l.serve(ctx, conn); err != nil && ctx.Err() == nil {
			l.log.Warn("upstream: connection lost, reconnecting", "error", err)
		}
		conn.Close()
	}
}

// connectWithBackoff dials the game server, retrying up to reconnectMaxRetry
// times with exponential backoff before giving up for this cycle.
func (l *Link) connectWithBackoff(ctx context.Context) (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", l.gameServer.Host, l.gameServer.Port)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = reconnectBaseWait
	policy.Multiplier = 2
	policy.MaxInterval = reconnectBaseWait * (1 << reconnectMaxRetry)
	policy.RandomizationFactor = 0
	bounded := backoff.WithMaxRetries(policy, reconnectMaxRetry)
	withCtx := backoff.WithContext(bounded, ctx)

	var conn net.Conn
	operation := func() error {
		dialer := net.Dialer{Timeout: dialTimeout}
		c, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		l.log.Warn("upstream: connect failed, retrying", "address", addr, "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(operation, withCtx, notify); err != nil {
		return nil, fmt.Errorf("upstream: connect to %s: %w", addr, err)
	}
	return conn, nil
}

// serve sends the handshake and reads frames from conn until it errors or
// ctx is cancelled.
func (l *Link) serve(ctx context.Context, conn net.Conn) error {
	if err := l.handshake(conn); err != nil {
		return fmt.Errorf("upstream: handshake: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	return l.readLoop(conn)
}

// handshake sends the chunkServerConnection frame the game server expects
// on every fresh connection, identifying this chunk server by its own
// listen address.
func (l *Link) handshake(conn net.Conn) error {
	payload := map[string]any{
		"header": map[string]any{
			"eventType": "chunkServerConnection",
			"id":        handshakeEventID,
			"ip":        l.chunkServer.Host,
			"port":      l.chunkServer.Port,
		},
	}
	line, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	if err := conn.SetWriteDeadline(time.Now().Add(dialTimeout)); err != nil {
		return err
	}
	_, err = conn.Write(line)
	return err
}

// readLoop accumulates bytes from conn, extracts complete newline-delimited
// frames, translates each into zero or more model.Events, and pushes them
// through l.dispatcher.
func (l *Link) readLoop(conn net.Conn) error {
	scratch := make([]byte, scratchBufSize)
	var acc []byte

	for {
		if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return err
		}
		n, err := conn.Read(scratch)
		if n > 0 {
			acc = append(acc, scratch[:n]...)
			frames, rest, breach := extractFrames(acc)
			acc = rest
			for _, frame := range frames {
				l.handleFrame(frame)
			}
			if breach {
				return errors.New("upstream: frame/accumulator size limit breached")
			}
		}
		if err != nil {
			return err
		}
	}
}

const scratchBufSize = 16 * 1024

func (l *Link) handleFrame(frame []byte) {
	events, err := translate(frame)
	if err != nil {
		l.log.Debug("upstream: dropping frame", "error", err)
		return
	}
	for _, e := range events {
		l.dispatcher.PushUpstream(e)
	}
}
