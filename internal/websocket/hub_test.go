package websocket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RoomLifecycle(t *testing.T) {
	hub := newTestHub(&testClock{now: t0})
	assert.Equal(t, 0, hub.RoomCount())
	assert.Empty(t, hub.Snapshot(1))

	a := NewClient("a", nil)
	b := NewClient("b", nil)

	roomA := hub.Join(1, a)
	roomB := hub.Join(1, b)
	require.Same(t, roomA, roomB)
	assert.Equal(t, "document_1", roomA.Name())
	assert.Equal(t, 2, roomA.MemberCount())
	assert.Equal(t, 1, hub.RoomCount())

	hub.Leave(roomA, "a")
	assert.Equal(t, 1, hub.RoomCount())

	hub.Leave(roomA, "b")
	assert.Equal(t, 0, hub.RoomCount())

	_, ok := hub.Room(1)
	assert.False(t, ok)

	// a fresh join creates a new room
	roomC := hub.Join(1, a)
	assert.NotSame(t, roomA, roomC)
}

func TestHub_ConcurrentJoinLeave(t *testing.T) {
	hub := newTestHub(&testClock{now: t0})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			client := NewClient(GenerateClientID(), nil)
			room := hub.Join(int64(i%5), client)
			room.Broadcast(map[string]string{"type": "ping"}, client.ID)
			hub.Leave(room, client.ID)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.RoomCount())
}

func TestHub_Shutdown(t *testing.T) {
	hub := newTestHub(&testClock{now: t0})

	a := NewClient("a", nil)
	b := NewClient("b", nil)
	hub.Join(1, a)
	hub.Join(2, b)

	hub.Shutdown("server restarting")

	for _, c := range []*Client{a, b} {
		assert.True(t, c.IsClosed())

		msgs := ofType(drain(c), TypeServerShutdown)
		require.Len(t, msgs, 1)
		assert.Equal(t, "server restarting", msgs[0]["reason"])
	}
}

func TestHub_WaitForSessionsAfterShutdown(t *testing.T) {
	hub := newTestHub(&testClock{now: t0})

	s := NewSession(hub, NewClient("a", nil), 1, identity(1), nil, SessionConfig{SweepInterval: time.Hour})
	require.NoError(t, s.Open(t.Context()))

	hub.Shutdown("server restarting")

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, hub.Wait(ctx), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- hub.Wait(t.Context()) }()

	s.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the last session closed")
	}

	late := NewSession(hub, NewClient("late", nil), 1, identity(2), nil, SessionConfig{SweepInterval: time.Hour})
	assert.ErrorIs(t, late.Open(t.Context()), ErrHubClosed)
	assert.Equal(t, StateClosed, late.State())
	assert.Equal(t, 0, hub.RoomCount())
}

func TestClient_SendBufferOverflowCloses(t *testing.T) {
	client := &Client{ID: "slow", send: make(chan []byte, 1)}

	require.NoError(t, client.Send([]byte(`{}`)))
	assert.ErrorIs(t, client.Send([]byte(`{}`)), ErrConnectionClosed)

	assert.Eventually(t, client.IsClosed, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, client.Send([]byte(`{}`)), ErrConnectionClosed)
}

func TestGenerateClientID(t *testing.T) {
	a := GenerateClientID()
	b := GenerateClientID()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
