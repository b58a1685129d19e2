package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionSendSinglePacket(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := NewSession(client, 16, time.Second, nil)
	go s.writePump()
	defer s.CloseAsync()

	require.NoError(t, s.Send([]byte("hello\n")))

	buf := make([]byte, 64)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := server.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(buf[:n]))
}

func TestSessionSendBatchesQueuedLines(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	s := NewSession(client, 16, time.Second, nil)

	s.sendCh <- []byte("a")
	s.sendCh <- []byte("b")
	s.sendCh <- []byte("c")

	go s.writePump()
	defer func() {
		s.CloseAsync()
		client.Close()
	}()

	var received []byte
	buf := make([]byte, 64)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	for len(received) < 3 {
		n, err := server.Read(buf)
		require.NoError(t, err)
		received = append(received, buf[:n]...)
	}
	assert.Equal(t, "abc", string(received))
}

func TestSessionSendQueueFullDisconnects(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := NewSession(client, 1, time.Second, nil)
	s.sendCh <- []byte("x")

	err := s.Send([]byte("y"))
	assert.Error(t, err)
	assert.False(t, s.IsOpen())
}

func TestSessionCloseAsyncIdempotent(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	s := NewSession(client, 4, time.Second, nil)
	s.CloseAsync()
	s.CloseAsync()
	s.CloseAsync()
	assert.False(t, s.IsOpen())
}

func TestSessionWritePumpExitsOnWriteError(t *testing.T) {
	server, client := net.Pipe()
	server.Close()

	s := NewSession(client, 4, time.Second, nil)
	done := make(chan struct{})
	go func() {
		s.writePump()
		close(done)
	}()

	s.sendCh <- []byte("x")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writePump did not exit after write error")
	}
	client.Close()
}

func TestSessionWritePumpDrainsOnClose(t *testing.T) {
	_, client := net.Pipe()
	defer client.Close()

	s := NewSession(client, 16, time.Second, nil)
	for range 5 {
		s.sendCh <- []byte("x")
	}
	s.CloseAsync()

	done := make(chan struct{})
	go func() {
		s.writePump()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writePump did not exit after close")
	}
	assert.Equal(t, 0, len(s.sendCh))
}
