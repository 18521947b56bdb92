package presence

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	// cursors not refreshed within this window are stale
	DefaultStaleAfter = 10 * time.Second

	// how often a reaper sweeps its room
	DefaultSweepInterval = 5 * time.Second

	DefaultColor    = "#FF5252"
	DefaultUsername = "User"
)

// a cursor id is bound to the session that introduced it
var ErrCursorOwned = errors.New("presence: cursor owned by another session")

// returns the current time; injected so tests can drive simulated timestamps
type Clock func() time.Time

// last known state of one live cursor in a room
type CursorState struct {
	CursorID  string          `json:"cursor_id"`
	UserID    json.RawMessage `json:"user_id,omitempty"` // passed through as sent by the editor
	Username  string          `json:"username"`
	Color     string          `json:"color"`
	Position  json.RawMessage `json:"position,omitempty"` // opaque, editor-defined
	LastSeen  time.Time       `json:"last_seen"`
	Connected bool            `json:"connected"`
	Owner     string          `json:"-"` // channel identity of the session that introduced it
}
