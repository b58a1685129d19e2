package transport

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/registry"
)

type fakeDispatcher struct {
	mu          sync.Mutex
	batches     [][]FrameContext
	pings       []int64
	disconnects []int64

	clients *registry.ClientRegistry
}

func (f *fakeDispatcher) DispatchBatch(frames []FrameContext) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, frames)
	for _, fr := range frames {
		if fr.Envelope.Header.EventType == "joinGameClient" && fr.ClientID == 0 {
			f.clients.Register(model.NewClient(100, fr.Envelope.Header.Hash, fr.Socket))
		}
	}
}

func (f *fakeDispatcher) DispatchPing(clientID int64, socket model.Socket, clientSendMs int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings = append(f.pings, clientID)
}

func (f *fakeDispatcher) DispatchDisconnect(clientID int64, socket model.Socket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects = append(f.disconnects, clientID)
}

func (f *fakeDispatcher) snapshot() (batches int, pings, disconnects []int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches), append([]int64(nil), f.pings...), append([]int64(nil), f.disconnects...)
}

func newTestAcceptor(t *testing.T) (*ClientAcceptor, *fakeDispatcher, *registry.ClientRegistry) {
	t.Helper()
	clients := registry.NewClientRegistry()
	dispatcher := &fakeDispatcher{clients: clients}
	cfg := AcceptorConfig{MaxClients: 10, ReadTimeout: 2 * time.Second, WriteTimeout: time.Second, SendQueueSize: 16}
	acceptor := NewClientAcceptor(cfg, clients, dispatcher, nil)
	return acceptor, dispatcher, clients
}

func TestHandleConnectionRoutesJoinFrameAndResolvesFollowUpClientID(t *testing.T) {
	acceptor, dispatcher, _ := newTestAcceptor(t)
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		acceptor.handleConnection(ctx, serverSide)
		close(done)
	}()

	_, err := clientSide.Write([]byte(`{"header":{"eventType":"joinGameClient","clientId":0,"hash":"H"}}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, _, _ := dispatcher.snapshot()
		return n >= 1
	}, time.Second, 10*time.Millisecond)

	_, err = clientSide.Write([]byte(`{"header":{"eventType":"moveCharacter","clientId":0,"hash":"H"}}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, _, _ := dispatcher.snapshot()
		return n >= 2
	}, time.Second, 10*time.Millisecond)

	dispatcher.mu.Lock()
	secondBatch := dispatcher.batches[1]
	dispatcher.mu.Unlock()
	require.Len(t, secondBatch, 1)
	assert.EqualValues(t, 100, secondBatch[0].ClientID)

	clientSide.Close()
	<-done
}

func TestHandleConnectionRoutesPingFastPath(t *testing.T) {
	acceptor, dispatcher, _ := newTestAcceptor(t)
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		acceptor.handleConnection(ctx, serverSide)
		close(done)
	}()

	_, err := clientSide.Write([]byte(`{"header":{"eventType":"pingClient","clientId":7,"hash":"H","clientSendMs":100}}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, pings, _ := dispatcher.snapshot()
		return len(pings) == 1
	}, time.Second, 10*time.Millisecond)

	_, pings, _ := dispatcher.snapshot()
	assert.Equal(t, []int64{7}, pings)

	clientSide.Close()
	<-done
}

func TestHandleConnectionDropsUnauthenticatedPingSilently(t *testing.T) {
	acceptor, dispatcher, _ := newTestAcceptor(t)
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		acceptor.handleConnection(ctx, serverSide)
		close(done)
	}()

	_, err := clientSide.Write([]byte(`{"header":{"eventType":"pingClient","clientId":0,"hash":"H"}}` + "\n"))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	_, pings, _ := dispatcher.snapshot()
	assert.Empty(t, pings)

	clientSide.Close()
	<-done
}

func TestHandleConnectionEmitsDisconnectOnlyWhenClientIDResolved(t *testing.T) {
	acceptor, dispatcher, _ := newTestAcceptor(t)
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		acceptor.handleConnection(ctx, serverSide)
		close(done)
	}()

	_, err := clientSide.Write([]byte(`{"header":{"eventType":"joinGameClient","clientId":0,"hash":"H"}}` + "\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, _, _ := dispatcher.snapshot()
		return n >= 1
	}, time.Second, 10*time.Millisecond)

	clientSide.Close()
	<-done

	_, _, disconnects := dispatcher.snapshot()
	assert.Equal(t, []int64{100}, disconnects)
}

func TestHandleConnectionBreachOnOversizeFrameDisconnects(t *testing.T) {
	acceptor, _, _ := newTestAcceptor(t)
	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		acceptor.handleConnection(ctx, serverSide)
		close(done)
	}()

	oversized := make([]byte, maxFrameSize+10)
	for i := range oversized {
		oversized[i] = 'a'
	}
	oversized = append(oversized, '\n')

	go clientSide.Write(oversized)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handleConnection did not disconnect on oversize frame")
	}
	clientSide.Close()
}
