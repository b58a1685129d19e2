// Package dispatch turns parsed client frames and upstream replication
// frames into typed model.Event values, queues them, and — on the consuming
// side — switches on their Kind to drive the simulation and produce
// responses. EventDispatcher owns the producer half (transport.Dispatcher);
// EventHandler owns the consumer half (the dispatch(event) switch).
package dispatch

import (
	"log/slog"

	"github.com/StoreStation/chunkserver/internal/eventqueue"
	"github.com/StoreStation/chunkserver/internal/idgen"
	"github.com/StoreStation/chunkserver/internal/model"
	"github.com/StoreStation/chunkserver/internal/protocol"
	"github.com/StoreStation/chunkserver/internal/registry"
	"github.com/StoreStation/chunkserver/internal/transport"
)

// EventDispatcher implements transport.Dispatcher. It never blocks: frames
// that fail validation (unknown eventType, hash mismatch, malformed body)
// are logged and dropped, frames from a closed socket are dropped without a
// log, and nothing is retried.
type EventDispatcher struct {
	ingress *eventqueue.Queue
	ping    *eventqueue.Queue
	clients *registry.ClientRegistry
	clock   idgen.Clock
	log     *slog.Logger
}

// NewEventDispatcher builds an EventDispatcher. ingress carries every
// non-ping client event plus upstream replication events; ping is drained
// separately, one event at a time by its own worker, for minimum latency.
func NewEventDispatcher(ingress, ping *eventqueue.Queue, clients *registry.ClientRegistry, clock idgen.Clock, log *slog.Logger) *EventDispatcher {
	if clock == nil {
		clock = idgen.SystemClock{}
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &EventDispatcher{ingress: ingress, ping: ping, clients: clients, clock: clock, log: log}
}

// DispatchBatch implements transport.Dispatcher.
func (d *EventDispatcher) DispatchBatch(frames []transport.FrameContext) {
	events := make([]model.Event, 0, len(frames))
	nowMs := d.clock.NowMs()
	for _, f := range frames {
		if !f.Socket.IsOpen() {
			continue
		}
		eventType := f.Envelope.Header.EventType
		kind, ok := kindForWireType(eventType)
		if !ok {
			d.log.Debug("dispatch: unrecognized eventType, dropping", "eventType", eventType)
			continue
		}

		clientID := f.ClientID
		if kind == model.EventJoinClient {
			// The acceptor hasn't registered this socket yet on the very
			// first joinGameClient frame — trust the header's own clientId
			// and register right here, where the socket is still in hand.
			clientID = f.Envelope.Header.ClientID
			d.clients.Register(model.NewClient(clientID, f.Envelope.Header.Hash, f.Socket))
		} else if !d.authenticate(clientID, f.Envelope.Header.Hash) {
			d.log.Warn("dispatch: hash mismatch, dropping", "eventType", eventType, "clientId", clientID)
			continue
		}

		payload, err := decodePayload(kind, f.Envelope)
		if err != nil {
			d.log.Debug("dispatch: malformed body, dropping", "eventType", eventType, "error", err)
			continue
		}

		events = append(events, model.Event{
			Kind:         kind,
			ClientID:     clientID,
			RequestID:    f.Envelope.Header.RequestID,
			ClientSendMs: f.Envelope.Header.ClientSendMs,
			ServerRecvMs: nowMs,
			Payload:      payload,
		})
	}
	if len(events) > 0 {
		d.ingress.PushBatch(events)
	}
}

// DispatchPing implements transport.Dispatcher.
func (d *EventDispatcher) DispatchPing(clientID int64, socket model.Socket, clientSendMs int64) {
	d.ping.Push(model.Event{
		Kind:         model.EventPingClient,
		ClientID:     clientID,
		ClientSendMs: clientSendMs,
		ServerRecvMs: d.clock.NowMs(),
	})
}

// DispatchDisconnect implements transport.Dispatcher. Always enqueued, even
// for an already-closed socket — DISCONNECT_CLIENT is the one event kind
// that bypasses the open-socket check, since its whole job is cleaning up
// after a socket that is, by definition, already gone.
func (d *EventDispatcher) DispatchDisconnect(clientID int64, socket model.Socket) {
	d.ingress.Push(model.Event{
		Kind:         model.EventDisconnectClient,
		ClientID:     clientID,
		ServerRecvMs: d.clock.NowMs(),
	})
}

// PushUpstream enqueues an already-constructed upstream replication event
// (internal/upstream has already decoded the body into one of this
// package's payload types; there is no wire framing left to validate here).
func (d *EventDispatcher) PushUpstream(e model.Event) {
	e.ServerRecvMs = d.clock.NowMs()
	d.ingress.Push(e)
}

// PushInternal enqueues a scheduler-originated event (SPAWN_MOBS_IN_ZONE,
// mob movement broadcasts) through the same queue client events use, so the
// ingress workers hand it to EventHandler like any other event.
func (d *EventDispatcher) PushInternal(e model.Event) {
	e.ServerRecvMs = d.clock.NowMs()
	d.ingress.Push(e)
}

func decodePayload(kind model.EventKind, env protocol.Envelope) (any, error) {
	switch kind {
	case model.EventJoinClient:
		var p JoinClientPayload
		err := env.DecodeBody(&p)
		return p, err
	case model.EventJoinCharacter:
		var p JoinCharacterPayload
		err := env.DecodeBody(&p)
		return p, err
	case model.EventMoveCharacter:
		var p MoveCharacterPayload
		err := env.DecodeBody(&p)
		return p, err
	case model.EventPlayerAttack:
		var p PlayerAttackPayload
		err := env.DecodeBody(&p)
		return p, err
	case model.EventInterruptAction:
		var p InterruptActionPayload
		err := env.DecodeBody(&p)
		return p, err
	case model.EventHarvestStartRequest:
		var p HarvestStartPayload
		err := env.DecodeBody(&p)
		return p, err
	case model.EventGetNearbyCorpses, model.EventGetNearbyItems:
		var p NearbyQueryPayload
		err := env.DecodeBody(&p)
		return p, err
	case model.EventCorpseLootPickup:
		var p CorpseLootPickupPayload
		err := env.DecodeBody(&p)
		return p, err
	case model.EventCorpseLootInspect:
		var p CorpseLootInspectPayload
		err := env.DecodeBody(&p)
		return p, err
	case model.EventItemPickup:
		var p ItemPickupPayload
		err := env.DecodeBody(&p)
		return p, err
	default:
		// DISCONNECT_CLIENT, PING_CLIENT, GET_CONNECTED_CLIENTS,
		// GET_PLAYER_INVENTORY, GET_SPAWN_ZONES, HARVEST_CANCELLED carry no
		// body worth decoding.
		return nil, nil
	}
}
