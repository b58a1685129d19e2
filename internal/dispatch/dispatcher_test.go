package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoreStation/chunkserver/internal/eventqueue"
	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/protocol"
	"github.com/StoreStation/chunkserver/internal/registry"
	"github.com/StoreStation/chunkserver/internal/transport"
)

type fakeSocket struct {
	open bool
	sent [][]byte
}

func (s *fakeSocket) Send(line []byte) error {
	s.sent = append(s.sent, line)
	return nil
}
func (s *fakeSocket) IsOpen() bool { return s.open }
func (s *fakeSocket) Close() error { s.open = false; return nil }

type fixedClock struct{ nowMs int64 }

func (c fixedClock) NowMs() int64 { return c.nowMs }

func newTestDispatcher(t *testing.T) (*EventDispatcher, *registry.ClientRegistry) {
	t.Helper()
	clients := registry.NewClientRegistry()
	ingress := eventqueue.New("ingress", 16, nil)
	ping := eventqueue.New("ping", 16, nil)
	return NewEventDispatcher(ingress, ping, clients, fixedClock{nowMs: 1000}, nil), clients
}

func TestDispatchBatchRegistersJoinClientWithoutPriorAuth(t *testing.T) {
	d, clients := newTestDispatcher(t)
	socket := &fakeSocket{open: true}

	d.DispatchBatch([]transport.FrameContext{{
		Socket:   socket,
		ClientID: 0,
		Envelope: protocol.Envelope{
			Header: protocol.Header{EventType: "joinGameClient", ClientID: 7, Hash: "secret"},
			Body:   []byte(`{"id":123}`),
		},
	}})

	_, ok := clients.Get(7)
	assert.True(t, ok)

	e, ok := d.ingress.Pop()
	require.True(t, ok)
	assert.Equal(t, model.EventJoinClient, e.Kind)
	assert.Equal(t, int64(7), e.ClientID)
}

func TestDispatchBatchDropsFrameOnHashMismatch(t *testing.T) {
	d, clients := newTestDispatcher(t)
	socket := &fakeSocket{open: true}
	clients.Register(model.NewClient(7, "correct-hash", socket))

	d.DispatchBatch([]transport.FrameContext{{
		Socket:   socket,
		ClientID: 7,
		Envelope: protocol.Envelope{
			Header: protocol.Header{EventType: "moveCharacter", ClientID: 7, Hash: "wrong-hash"},
			Body:   []byte(`{"id":1,"posX":1,"posY":2,"posZ":3,"rotZ":0}`),
		},
	}})

	assert.Zero(t, d.ingress.Size())
}

func TestDispatchBatchDropsUnrecognizedEventType(t *testing.T) {
	d, clients := newTestDispatcher(t)
	socket := &fakeSocket{open: true}
	clients.Register(model.NewClient(7, "h", socket))

	d.DispatchBatch([]transport.FrameContext{{
		Socket:   socket,
		ClientID: 7,
		Envelope: protocol.Envelope{
			Header: protocol.Header{EventType: "notARealEvent", ClientID: 7, Hash: "h"},
		},
	}})

	assert.Zero(t, d.ingress.Size())
}

func TestDispatchBatchSkipsClosedSockets(t *testing.T) {
	d, clients := newTestDispatcher(t)
	socket := &fakeSocket{open: false}
	clients.Register(model.NewClient(7, "h", socket))

	d.DispatchBatch([]transport.FrameContext{{
		Socket:   socket,
		ClientID: 7,
		Envelope: protocol.Envelope{
			Header: protocol.Header{EventType: "moveCharacter", ClientID: 7, Hash: "h"},
			Body:   []byte(`{"id":1}`),
		},
	}})

	assert.Zero(t, d.ingress.Size())
}

func TestDispatchPingGoesToPingQueueNotIngress(t *testing.T) {
	d, _ := newTestDispatcher(t)
	socket := &fakeSocket{open: true}

	d.DispatchPing(7, socket, 500)

	assert.Zero(t, d.ingress.Size())
	e, ok := d.ping.Pop()
	require.True(t, ok)
	assert.Equal(t, model.EventPingClient, e.Kind)
	assert.Equal(t, int64(500), e.ClientSendMs)
}

func TestDispatchDisconnectBypassesOpenSocketCheck(t *testing.T) {
	d, _ := newTestDispatcher(t)
	socket := &fakeSocket{open: false}

	d.DispatchDisconnect(7, socket)

	e, ok := d.ingress.Pop()
	require.True(t, ok)
	assert.Equal(t, model.EventDisconnectClient, e.Kind)
}

func TestPushUpstreamStampsServerRecvMs(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.PushUpstream(model.Event{Kind: model.EventSetChunkData})

	e, ok := d.ingress.Pop()
	require.True(t, ok)
	assert.Equal(t, int64(1000), e.ServerRecvMs)
}

func TestAuthenticateRejectsUnknownClient(t *testing.T) {
	d, _ := newTestDispatcher(t)
	assert.False(t, d.authenticate(999, "anything"))
}
