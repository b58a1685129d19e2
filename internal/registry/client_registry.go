// Package registry holds the chunk server's authoritative, in-memory state
// services. Every registry here is a read-heavy map guarded by a single
// sync.RWMutex; queries always return deep copies so a caller never holds a
// reference into a registry's internals past the lock.
package registry

import (
	"fmt"
	"sync"

	"github.com/StoreStation/chunkserver/internal/model"
)

// ClientRegistry holds every connected Client, keyed by clientId, with a
// reverse index by socket identity so the transport layer can resolve a
// clientId from the socket that produced a frame.
type ClientRegistry struct {
	mu       sync.RWMutex
	byID     map[int64]*model.Client
	bySocket map[model.Socket]int64
}

// NewClientRegistry creates an empty ClientRegistry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{
		byID:     make(map[int64]*model.Client),
		bySocket: make(map[model.Socket]int64),
	}
}

// Register inserts or updates a client. Idempotent by id: re-registering an
// existing clientId replaces it in place, keeping both indices consistent
// under the single write lock.
func (r *ClientRegistry) Register(c *model.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[c.ClientID()]; ok {
		delete(r.bySocket, existing.Socket())
	}
	r.byID[c.ClientID()] = c
	r.bySocket[c.Socket()] = c.ClientID()
}

// Unregister removes a client by id from both indices.
func (r *ClientRegistry) Unregister(clientID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.byID[clientID]; ok {
		delete(r.bySocket, c.Socket())
		delete(r.byID, clientID)
	}
}

// UnregisterBySocket removes whatever client is bound to socket, returning
// its clientId (0 if not found). Used by Session on disconnect, which knows
// its own socket but may not yet know its resolved clientId.
func (r *ClientRegistry) UnregisterBySocket(s model.Socket) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.bySocket[s]
	if !ok {
		return 0
	}
	delete(r.bySocket, s)
	delete(r.byID, id)
	return id
}

// Get returns a deep copy of the client for id, or (nil, false).
func (r *ClientRegistry) Get(clientID int64) (*model.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[clientID]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// ClientIDBySocket resolves a clientId from a socket identity, 0 if unknown.
func (r *ClientRegistry) ClientIDBySocket(s model.Socket) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bySocket[s]
}

// SetCharacterID updates the controlled character for a client in place.
// Returns an error if the client is not registered.
func (r *ClientRegistry) SetCharacterID(clientID, characterID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[clientID]
	if !ok {
		return fmt.Errorf("registry: client %d not found", clientID)
	}
	c.SetCharacterID(characterID)
	return nil
}

// All returns a deep copy of every connected client, in no particular order.
func (r *ClientRegistry) All() []*model.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Client, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c.Clone())
	}
	return out
}

// Count returns the number of connected clients.
func (r *ClientRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
