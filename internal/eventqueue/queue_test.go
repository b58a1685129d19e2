package eventqueue_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StoreStation/chunkserver/internal/eventqueue"
	"github.com/StoreStation/chunkserver/internal/model"
)

func TestPushPopOrder(t *testing.T) {
	q := eventqueue.New("test", 10, nil)
	q.Push(model.Event{Kind: model.EventPingClient, ClientID: 1})
	q.Push(model.Event{Kind: model.EventPingClient, ClientID: 2})

	e1, ok := q.Pop()
	require.True(t, ok)
	assert.EqualValues(t, 1, e1.ClientID)

	e2, ok := q.Pop()
	require.True(t, ok)
	assert.EqualValues(t, 2, e2.ClientID)
}

func TestOverflowDropsOldest(t *testing.T) {
	q := eventqueue.New("test", 3, nil)
	for i := int64(1); i <= 5; i++ {
		q.Push(model.Event{Kind: model.EventPingClient, ClientID: i})
	}
	require.Equal(t, 3, q.Size())
	// never panics, stabilizes at capacity
	e, ok := q.Pop()
	require.True(t, ok)
	assert.EqualValues(t, 3, e.ClientID, "oldest two entries (1,2) should have been dropped")
	assert.EqualValues(t, 2, q.Dropped())
}

func TestPushBatchMakesRoomBeforeAppending(t *testing.T) {
	q := eventqueue.New("test", 5, nil)
	for i := int64(1); i <= 3; i++ {
		q.Push(model.Event{Kind: model.EventPingClient, ClientID: i})
	}
	batch := make([]model.Event, 0, 4)
	for i := int64(4); i <= 7; i++ {
		batch = append(batch, model.Event{Kind: model.EventPingClient, ClientID: i})
	}
	q.PushBatch(batch)

	assert.Equal(t, 5, q.Size())
	first, ok := q.Pop()
	require.True(t, ok)
	assert.EqualValues(t, 3, first.ClientID)
}

func TestPopBatchBlocksUntilAvailable(t *testing.T) {
	q := eventqueue.New("test", 10, nil)
	var wg sync.WaitGroup
	wg.Add(1)

	var got []model.Event
	go func() {
		defer wg.Done()
		events, ok := q.PopBatch(5)
		if ok {
			got = events
		}
	}()

	time.Sleep(20 * time.Millisecond)
	q.Push(model.Event{Kind: model.EventPingClient, ClientID: 99})
	wg.Wait()

	require.Len(t, got, 1)
	assert.EqualValues(t, 99, got[0].ClientID)
}

func TestCloseWakesBlockedPop(t *testing.T) {
	q := eventqueue.New("test", 10, nil)
	done := make(chan struct{})
	go func() {
		_, ok := q.Pop()
		assert.False(t, ok)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up after Close")
	}
}

func TestForceCleanupOnlyWhenEmpty(t *testing.T) {
	q := eventqueue.New("test", 10, nil)
	q.Push(model.Event{Kind: model.EventPingClient, ClientID: 1})
	q.ForceCleanup()
	assert.Equal(t, 1, q.Size())

	_, _ = q.Pop()
	q.ForceCleanup()
	assert.Equal(t, 0, q.Size())
}
