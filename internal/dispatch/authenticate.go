package dispatch

// authenticate is the session-hash echo gate every mutating event passes
// through before it reaches the queue: the client must already be
// registered, and the hash it sends must match the one it registered with
// on joinGameClient. This is the whole of the session layer's auth surface
// — nothing beyond "does this socket still own the hash it claimed".
func (d *EventDispatcher) authenticate(clientID int64, hash string) bool {
	client, ok := d.clients.Get(clientID)
	if !ok {
		return false
	}
	return client.Hash() == hash
}
