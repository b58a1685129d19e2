package model

import "sync/atomic"

// Socket is the minimal write/lifecycle surface a Client needs from its
// transport-layer peer. Payloads never carry a concrete socket — only a
// clientId — so handlers re-resolve the Socket through ClientRegistry by ID
// at the point of use rather than caching a reference across suspension
// points (see registry.ClientRegistry).
type Socket interface {
	// Send queues a framed line for async delivery. Non-blocking.
	Send(line []byte) error
	// IsOpen reports whether the underlying connection is still usable.
	IsOpen() bool
	// Close closes the underlying connection.
	Close() error
}

// Client is a transport-layer peer: one TCP connection identified by a
// process-lifetime-unique clientId.
type Client struct {
	clientID int64
	hash     string

	// characterID is the character currently controlled by this client,
	// 0 if the client has not yet joined a character.
	characterID atomic.Int64

	socket Socket
}

// NewClient creates a Client bound to the given socket. hash is the opaque
// session token supplied by the client and echoed back on every response.
func NewClient(clientID int64, hash string, socket Socket) *Client {
	return &Client{
		clientID: clientID,
		hash:     hash,
		socket:   socket,
	}
}

// ClientID returns the process-lifetime-unique client identifier.
func (c *Client) ClientID() int64 { return c.clientID }

// Hash returns the opaque session token.
func (c *Client) Hash() string { return c.hash }

// CharacterID returns the character currently controlled, 0 if none.
func (c *Client) CharacterID() int64 { return c.characterID.Load() }

// SetCharacterID sets the controlled character (0 clears it).
func (c *Client) SetCharacterID(id int64) { c.characterID.Store(id) }

// Socket returns the owning socket reference.
func (c *Client) Socket() Socket { return c.socket }

// Clone returns a deep copy safe to hand out from a registry read without
// holding the registry lock past the call (registries never return live
// pointers into their maps).
func (c *Client) Clone() *Client {
	clone := &Client{
		clientID: c.clientID,
		hash:     c.hash,
		socket:   c.socket,
	}
	clone.characterID.Store(c.characterID.Load())
	return clone
}
