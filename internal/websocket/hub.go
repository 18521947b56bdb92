package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"codeberg.org/docflow/server/internal/logger"
	"codeberg.org/docflow/server/internal/presence"
)

// indexes live rooms by document; rooms exist only while they have members.
// lock order is hub before room
type Hub struct {
	mu         sync.RWMutex
	rooms      map[int64]*Room
	staleAfter time.Duration
	clock      presence.Clock

	// open sessions, counted from attach until release
	closed   bool
	sessions int
	drained  chan struct{}
}

type HubOptions struct {
	StaleAfter time.Duration
	Clock      presence.Clock
}

// creates a new hub
func NewHub(opts HubOptions) *Hub {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Hub{
		rooms:      make(map[int64]*Room),
		staleAfter: opts.StaleAfter,
		clock:      opts.Clock,
	}
}

// adds client to the document's room, creating the room on first join
func (h *Hub) Join(documentID int64, client *Client) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.joinLocked(documentID, client)
}

// joins a session's client and counts the session as open until release.
// fails with ErrHubClosed once Shutdown has run
func (h *Hub) attach(documentID int64, client *Client) (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	h.sessions++
	return h.joinLocked(documentID, client), nil
}

// marks one attached session as fully closed
func (h *Hub) release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sessions--
	if h.sessions == 0 && h.drained != nil {
		close(h.drained)
		h.drained = nil
	}
}

// blocks until every attached session has closed or ctx is done
func (h *Hub) Wait(ctx context.Context) error {
	h.mu.Lock()
	if h.sessions == 0 {
		h.mu.Unlock()
		return nil
	}

	if h.drained == nil {
		h.drained = make(chan struct{})
	}
	drained := h.drained
	h.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) joinLocked(documentID int64, client *Client) *Room {
	room, ok := h.rooms[documentID]
	if !ok {
		room = newRoom(documentID, h.staleAfter, h.clock)
		h.rooms[documentID] = room

		logger.Debug("room created", "room", room.Name())
	}

	room.join(client)
	return room
}

// removes client from room and drops the room once it is empty
func (h *Hub) Leave(room *Room, clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if remaining := room.leave(clientID); remaining > 0 {
		return
	}

	if h.rooms[room.documentID] == room {
		delete(h.rooms, room.documentID)
		logger.Debug("room removed", "room", room.Name())
	}
}

// returns the live room for a document
func (h *Hub) Room(documentID int64) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[documentID]
	return room, ok
}

// returns the live cursors of a document, empty when nobody is connected
func (h *Hub) Snapshot(documentID int64) []presence.CursorState {
	room, ok := h.Room(documentID)
	if !ok {
		return []presence.CursorState{}
	}

	return room.ActiveCursors()
}

// returns the number of live rooms
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms)
}

// refuses new sessions, then notifies and disconnects every member of every room.
// sessions finish closing on their own connection goroutines; see Wait
func (h *Hub) Shutdown(reason string) {
	notice, err := json.Marshal(ServerShutdownMessage{Type: TypeServerShutdown, Reason: reason})
	if err != nil {
		return
	}

	h.mu.Lock()
	h.closed = true
	rooms := make([]*Room, 0, len(h.rooms))
	for _, room := range h.rooms {
		rooms = append(rooms, room)
	}
	h.mu.Unlock()

	for _, room := range rooms {
		room.closeMembers(notice)
	}

	logger.Info("closed all websocket connections", "rooms", len(rooms))
}
