package websocket

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// message type constants for websocket communication
const (
	// is sent to a connecting editor once it has joined the room
	TypeConnectionEstablished = "connection_established"

	// carries the full document content; sent by editors and echoed to the room
	TypeDocumentUpdate = "document_update"

	// is sent by an editor to introduce its cursor
	TypeCursorConnect = "cursor_connect"

	// is sent by an editor when its cursor moves
	TypeCursorUpdate = "cursor_update"

	// is sent to the room when a cursor is introduced
	TypeCursorConnected = "cursor_connected"

	// is sent to the room when a cursor moves
	TypeCursorPositionUpdate = "cursor_position_update"

	// is sent to a new cursor's owner once per other live cursor
	TypeCursorActive = "cursor_active"

	// is sent to the room when a cursor leaves or goes stale
	TypeCursorDisconnected = "cursor_disconnected"

	// is sent by server before shutdown
	TypeServerShutdown = "server_shutdown"
)

// client connection constants
const (
	// time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512 KB

	// outbound frames buffered per connection before it is dropped
	sendBufferSize = 256
)

// session defaults
const (
	DefaultSyncDelay         = 500 * time.Millisecond
	DefaultMessagesPerSecond = 50
	DefaultMessageBurst      = 100
)

// errors
var (
	ErrConnectionClosed  = errors.New("connection closed")
	ErrSessionClosed     = errors.New("session not open")
	ErrMalformedFrame    = errors.New("malformed frame")
	ErrUnknownType       = errors.New("unknown message type")
	ErrMissingField      = errors.New("missing required field")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrHubClosed         = errors.New("hub shut down")
)

// represents one websocket connection's transport
type Client struct {
	// channel identity, unique per connection
	ID string

	// underlying websocket connection, nil for in-memory clients
	conn *websocket.Conn

	// buffered channel of outbound frames, one JSON message per frame
	send chan []byte

	// protects closed
	mu sync.RWMutex

	// whether the send channel has been closed
	closed bool
}
