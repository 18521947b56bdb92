package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"codeberg.org/docflow/server/internal/logger"
	"codeberg.org/docflow/server/internal/presence"
)

// one document's broadcast group and presence.
// every membership change, presence mutation and the broadcasts they trigger happen under mu
type Room struct {
	name       string
	documentID int64
	clock      presence.Clock

	mu       sync.Mutex
	members  map[string]*Client
	presence *presence.Store
}

func newRoom(documentID int64, staleAfter time.Duration, clock presence.Clock) *Room {
	return &Room{
		name:       RoomName(documentID),
		documentID: documentID,
		clock:      clock,
		members:    make(map[string]*Client),
		presence:   presence.NewStore(staleAfter),
	}
}

// returns the room's group name
func (r *Room) Name() string {
	return r.name
}

// returns the number of connected members
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.members)
}

func (r *Room) join(client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[client.ID] = client
}

// removes a member and returns how many remain
func (r *Room) leave(clientID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.members, clientID)
	return len(r.members)
}

// delivers msg to every member except excludeID; empty excludeID reaches everyone
func (r *Room) Broadcast(msg any, excludeID string) {
	frame, err := json.Marshal(msg)
	if err != nil {
		logger.ErrorErr(err, "failed to encode broadcast", "room", r.name)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.deliverLocked(frame, excludeID)
}

func (r *Room) deliverLocked(frame []byte, excludeID string) {
	for id, client := range r.members {
		if id == excludeID {
			continue
		}

		if err := client.Send(frame); err != nil {
			logger.Debug("dropped frame for closed member",
				"room", r.name,
				"client_id", id,
			)
		}
	}
}

func (r *Room) broadcastLocked(msg any, excludeID string) {
	frame, err := json.Marshal(msg)
	if err != nil {
		logger.ErrorErr(err, "failed to encode broadcast", "room", r.name)
		return
	}

	r.deliverLocked(frame, excludeID)
}

// stores a cursor for owner and announces it to everyone else.
// a cursor id held by another session is refused with presence.ErrCursorOwned
func (r *Room) ConnectCursor(owner string, msg *CursorConnect) (presence.CursorState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cursor, err := r.presence.Upsert(presence.CursorState{
		CursorID: msg.CursorID,
		UserID:   msg.UserID,
		Username: *msg.Username,
		Color:    msg.Color,
		LastSeen: r.clock(),
		Owner:    owner,
	})
	if err != nil {
		return cursor, err
	}

	r.broadcastLocked(CursorConnectedMessage{
		Type:     TypeCursorConnected,
		CursorID: cursor.CursorID,
		UserID:   cursor.UserID,
		Username: cursor.Username,
		Color:    cursor.Color,
	}, owner)

	return cursor, nil
}

// records a cursor move and relays it to everyone except owner.
// unknown cursors are still relayed, with identity taken from the frame;
// moves of a cursor another session holds are dropped
func (r *Room) UpdateCursor(owner string, msg *CursorUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := CursorPositionUpdateMessage{
		Type:     TypeCursorPositionUpdate,
		CursorID: msg.CursorID,
		Position: msg.Position,
		UserID:   msg.UserID,
	}

	if msg.Username != nil {
		out.Username = *msg.Username
	}

	cursor, ok, err := r.presence.Touch(msg.CursorID, owner, msg.Position, r.clock())
	if err != nil {
		return err
	}

	if ok {
		if !present(out.UserID) {
			out.UserID = cursor.UserID
		}

		if out.Username == "" {
			out.Username = cursor.Username
		}
	}

	if out.Username == "" {
		out.Username = presence.DefaultUsername
	}

	r.broadcastLocked(out, owner)

	return nil
}

// sends target one cursor_active per live cursor other than excludeCursorID
func (r *Room) SendActiveCursors(target *Client, excludeCursorID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sent := 0

	for _, cursor := range r.presence.Active(r.clock(), excludeCursorID) {
		err := target.SendJSON(CursorActiveMessage{
			Type:     TypeCursorActive,
			CursorID: cursor.CursorID,
			UserID:   cursor.UserID,
			Username: cursor.Username,
			Color:    cursor.Color,
			Position: cursor.Position,
		})
		if err != nil {
			break
		}

		sent++
	}

	return sent
}

// returns the live cursors in the room
func (r *Room) ActiveCursors() []presence.CursorState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.presence.Active(r.clock(), "")
}

// removes every cursor owner introduced and tells the other members
func (r *Room) EvictOwnedBy(owner string) []presence.CursorState {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.presence.RemoveOwnedBy(owner)
	for _, cursor := range removed {
		r.broadcastLocked(disconnectedMessage(cursor), owner)
	}

	return removed
}

// removes stale cursors and announces each one; safe to repeat
func (r *Room) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := r.presence.RemoveStale(now)
	for _, cursor := range removed {
		logger.Info("evicting stale cursor",
			"room", r.name,
			"cursor_id", cursor.CursorID,
			"last_seen", cursor.LastSeen,
		)

		r.broadcastLocked(disconnectedMessage(cursor), "")
	}

	return len(removed)
}

func (r *Room) closeMembers(notice []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, client := range r.members {
		client.Send(notice) //nolint:errcheck,gosec // best effort shutdown notice
		client.Close()
	}
}

func disconnectedMessage(cursor presence.CursorState) CursorDisconnectedMessage {
	return CursorDisconnectedMessage{
		Type:     TypeCursorDisconnected,
		CursorID: cursor.CursorID,
		UserID:   cursor.UserID,
		Username: cursor.Username,
	}
}
