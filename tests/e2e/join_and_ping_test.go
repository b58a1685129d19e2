// Package e2e exercises the chunk server the way a real game client would:
// over a live TCP socket, through the real transport/dispatch/services
// wiring cmd/chunkserver assembles, with no fakes standing in for any
// layer except the worker pool's goroutine count (kept to one for
// deterministic ordering in these tests).
package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/services"
	"github.com/StoreStation/chunkserver/internal/transport"
)

// listenLoopback binds an ephemeral port and hands the listener to
// acceptor.Serve, returning the resolved address — avoids the race of
// picking a port number up front and reconnecting to it later.
func listenLoopback(t *testing.T, ctx context.Context, acceptor *transport.ClientAcceptor) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = acceptor.Serve(ctx, ln) }()
	return ln.Addr().String()
}

func newTestGameServices() *services.GameServices {
	svc := services.New(idgen.SystemClock{}, services.QueueSizes{}, nil)
	go func() {
		for {
			events, ok := svc.Ingress.PopBatch(16)
			if !ok {
				return
			}
			for _, e := range events {
				svc.Handler.HandleEvent(e)
			}
		}
	}()
	go func() {
		for {
			e, ok := svc.Ping.Pop()
			if !ok {
				return
			}
			svc.Handler.HandleEvent(e)
		}
	}()
	return svc
}

func writeLine(t *testing.T, conn net.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	data = append(data, '\n')
	_, err = conn.Write(data)
	require.NoError(t, err)
}

func readResponse(t *testing.T, reader *bufio.Reader) map[string]any {
	t.Helper()
	line, err := reader.ReadBytes('\n')
	require.NoError(t, err)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(line, &resp))
	return resp
}

func TestJoinThenPingRoundTripsOverRealSocket(t *testing.T) {
	svc := newTestGameServices()
	defer func() {
		svc.Ingress.Close()
		svc.Ping.Close()
	}()

	acceptor := transport.NewClientAcceptor(transport.AcceptorConfig{
		MaxClients: 10, ReadTimeout: 5 * time.Second, WriteTimeout: 2 * time.Second, SendQueueSize: 32,
	}, svc.Clients, svc.Dispatcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr := listenLoopback(t, ctx, acceptor)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	reader := bufio.NewReader(conn)

	writeLine(t, conn, map[string]any{
		"header": map[string]any{"eventType": "joinGameClient", "clientId": 42, "hash": "sekret", "requestId": "r1"},
		"body":   map[string]any{"id": 0},
	})

	// The join is answered on this socket too; read that reply before
	// pinging so the client is registered and the next line is the ping's.
	joinResp := readResponse(t, reader)
	require.Equal(t, "joinGameClient", joinResp["header"].(map[string]any)["eventType"])

	writeLine(t, conn, map[string]any{
		"header": map[string]any{"eventType": "pingClient", "clientId": 42, "hash": "sekret", "requestId": "r2", "clientSendMs": 123},
	})

	resp := readResponse(t, reader)
	header := resp["header"].(map[string]any)
	require.Equal(t, "pingClient", header["eventType"])
	require.Equal(t, "success", header["status"])
	require.Equal(t, "r2", header["requestIdEcho"])

	client, ok := svc.Clients.Get(42)
	require.True(t, ok)
	require.Equal(t, int64(42), client.ClientID())
}

func TestUnauthenticatedFrameNeverReachesHandler(t *testing.T) {
	svc := newTestGameServices()
	defer func() {
		svc.Ingress.Close()
		svc.Ping.Close()
	}()

	acceptor := transport.NewClientAcceptor(transport.AcceptorConfig{
		MaxClients: 10, ReadTimeout: 5 * time.Second, WriteTimeout: 2 * time.Second, SendQueueSize: 32,
	}, svc.Clients, svc.Dispatcher, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	addr := listenLoopback(t, ctx, acceptor)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	writeLine(t, conn, map[string]any{
		"header": map[string]any{"eventType": "joinGameClient", "clientId": 7, "hash": "right", "requestId": "r1"},
		"body":   map[string]any{"id": 0},
	})
	// Give the acceptor a moment to register the client before the
	// mismatched-hash frame arrives.
	time.Sleep(20 * time.Millisecond)

	writeLine(t, conn, map[string]any{
		"header": map[string]any{"eventType": "moveCharacter", "clientId": 7, "hash": "wrong", "requestId": "r2"},
		"body":   map[string]any{"id": 1, "posX": 1, "posY": 2, "posZ": 3, "rotZ": 0},
	})

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, svc.Ingress.Size())
}
