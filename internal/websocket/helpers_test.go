package websocket

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"codeberg.org/docflow/server/internal/auth"
	"codeberg.org/docflow/server/internal/persistence"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPersister struct {
	mu    sync.Mutex
	edits []persistence.Edit
	err   error
}

func (p *recordingPersister) Submit(edit persistence.Edit) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}

	p.edits = append(p.edits, edit)
	return nil
}

func (p *recordingPersister) Edits() []persistence.Edit {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]persistence.Edit(nil), p.edits...)
}

var errQueueFull = errors.New("queue full")

func newTestHub(clock *testClock) *Hub {
	return NewHub(HubOptions{StaleAfter: 10 * time.Second, Clock: clock.Now})
}

func openSession(t *testing.T, hub *Hub, documentID int64, clientID string, userID int64, persister EditPersister, syncDelay time.Duration) *Session {
	t.Helper()

	client := NewClient(clientID, nil)
	session := NewSession(hub, client, documentID, auth.Identity{UserID: userID, Username: clientID}, persister, SessionConfig{
		SyncDelay:     syncDelay,
		SweepInterval: time.Hour,
	})

	require.NoError(t, session.Open(t.Context()))
	t.Cleanup(session.Close)

	return session
}

func openSessionWith(t *testing.T, hub *Hub, documentID int64, clientID string, cfg SessionConfig) *Session {
	t.Helper()

	session := NewSession(hub, NewClient(clientID, nil), documentID, identity(1), nil, cfg)
	require.NoError(t, session.Open(t.Context()))
	t.Cleanup(session.Close)

	return session
}

// returns every frame queued for the client without blocking
func drain(client *Client) []map[string]any {
	var out []map[string]any

	for {
		select {
		case frame, ok := <-client.send:
			if !ok {
				return out
			}

			var msg map[string]any
			if err := json.Unmarshal(frame, &msg); err == nil {
				out = append(out, msg)
			}
		default:
			return out
		}
	}
}

func ofType(msgs []map[string]any, typ string) []map[string]any {
	var out []map[string]any

	for _, msg := range msgs {
		if msg["type"] == typ {
			out = append(out, msg)
		}
	}

	return out
}

func frame(t *testing.T, msg map[string]any) []byte {
	t.Helper()

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func identity(userID int64) auth.Identity {
	return auth.Identity{UserID: userID}
}
