package websocket

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"codeberg.org/docflow/server/internal/auth"
	"codeberg.org/docflow/server/internal/logger"
	"codeberg.org/docflow/server/internal/persistence"
	"codeberg.org/docflow/server/internal/presence"
)

// lifecycle of a document session
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// accepts edits for durable storage without blocking the caller
type EditPersister interface {
	Submit(edit persistence.Edit) error
}

type SessionConfig struct {
	// wait before sending cursor_active snapshots to a new cursor
	SyncDelay time.Duration

	// reaper period
	SweepInterval time.Duration

	// cursor frame rate limit, zero disables it; edits are never limited
	MessagesPerSecond float64
	MessageBurst      int
}

// one editor connection bound to a document room. Single use
type Session struct {
	client     *Client
	hub        *Hub
	documentID int64
	identity   auth.Identity
	persister  EditPersister
	cfg        SessionConfig
	limiter    *rate.Limiter

	state  atomic.Int32
	room   *Room
	reaper *presence.Task
	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

// creates a new session in the connecting state
func NewSession(hub *Hub, client *Client, documentID int64, identity auth.Identity, persister EditPersister, cfg SessionConfig) *Session {
	s := &Session{
		client:     client,
		hub:        hub,
		documentID: documentID,
		identity:   identity,
		persister:  persister,
		cfg:        cfg,
	}

	if cfg.MessagesPerSecond > 0 {
		burst := cfg.MessageBurst
		if burst <= 0 {
			burst = int(cfg.MessagesPerSecond)
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), burst)
	}

	return s
}

// returns the session's channel identity
func (s *Session) ID() string {
	return s.client.ID
}

// returns the broadcast group the session belongs to
func (s *Session) RoomName() string {
	return RoomName(s.documentID)
}

// returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

// joins the room, acknowledges the connection and starts the reaper
func (s *Session) Open(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		return ErrSessionClosed
	}

	room, err := s.hub.attach(s.documentID, s.client)
	if err != nil {
		s.state.Store(int32(StateClosed))
		return err
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.room = room

	err = s.client.SendJSON(ConnectionEstablishedMessage{
		Type:       TypeConnectionEstablished,
		Message:    "connected to document " + strconv.FormatInt(s.documentID, 10),
		DocumentID: strconv.FormatInt(s.documentID, 10),
	})
	if err != nil {
		logger.Warn("failed to acknowledge connection", "client_id", s.ID(), "error", err)
	}

	s.reaper = presence.NewReaper(s.cfg.SweepInterval, s.room, s.hub.clock).Start(s.ctx)

	logger.Info("document session opened",
		"document_id", s.documentID,
		"client_id", s.ID(),
		"user_id", s.identity.UserID,
	)

	return nil
}

// processes one inbound frame. Bad frames are logged and dropped
func (s *Session) HandleFrame(data []byte) error {
	if s.State() != StateOpen {
		return ErrSessionClosed
	}

	msg, err := DecodeInbound(data)
	if err != nil {
		logger.Warn("dropping invalid frame",
			"document_id", s.documentID,
			"client_id", s.ID(),
			"error", err,
		)
		return err
	}

	if _, edit := msg.(*DocumentUpdate); !edit && s.limiter != nil && !s.limiter.Allow() {
		logger.Warn("dropping cursor frame over rate limit",
			"document_id", s.documentID,
			"client_id", s.ID(),
			"type", msg.MessageType(),
		)
		return ErrRateLimitExceeded
	}

	switch m := msg.(type) {
	case *DocumentUpdate:
		s.handleDocumentUpdate(m)
	case *CursorConnect:
		err = s.handleCursorConnect(m)
	case *CursorUpdate:
		err = s.room.UpdateCursor(s.ID(), m)
	}

	if err != nil {
		logger.Warn("dropping cursor frame",
			"document_id", s.documentID,
			"client_id", s.ID(),
			"type", msg.MessageType(),
			"error", err,
		)
	}

	return err
}

// persistence is queued first, then the edit is echoed to the whole room regardless of outcome
func (s *Session) handleDocumentUpdate(msg *DocumentUpdate) {
	username := s.identity.Username
	if username == "" {
		username = *msg.Username
	}

	if s.persister != nil {
		err := s.persister.Submit(persistence.Edit{
			DocumentID: s.documentID,
			UserID:     s.identity.UserID,
			Username:   username,
			Content:    msg.Content,
		})
		if err != nil {
			logger.ErrorErr(err, "failed to queue document update",
				"document_id", s.documentID,
				"client_id", s.ID(),
				"user_id", s.identity.UserID,
			)
		}
	}

	s.room.Broadcast(DocumentUpdateMessage{
		Type:     TypeDocumentUpdate,
		UserID:   msg.UserID,
		Username: *msg.Username,
		Content:  msg.Content,
		SenderID: msg.SenderID,
	}, "")
}

func (s *Session) handleCursorConnect(msg *CursorConnect) error {
	cursor, err := s.room.ConnectCursor(s.ID(), msg)
	if err != nil {
		return err
	}

	logger.Debug("cursor connected",
		"document_id", s.documentID,
		"client_id", s.ID(),
		"cursor_id", cursor.CursorID,
	)

	if s.cfg.SyncDelay <= 0 {
		s.room.SendActiveCursors(s.client, cursor.CursorID)
		return nil
	}

	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()

		timer := time.NewTimer(s.cfg.SyncDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
			s.room.SendActiveCursors(s.client, cursor.CursorID)
		}
	}()

	return nil
}

// evicts the session's cursors, leaves the room, then stops background work
func (s *Session) Close() {
	if s.state.CompareAndSwap(int32(StateConnecting), int32(StateClosed)) {
		s.client.Close()
		return
	}

	if !s.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return
	}

	evicted := s.room.EvictOwnedBy(s.ID())
	s.hub.Leave(s.room, s.ID())

	s.reaper.Stop()
	s.cancel()
	s.tasks.Wait()

	s.client.Close()
	s.state.Store(int32(StateClosed))
	s.hub.release()

	logger.Info("document session closed",
		"document_id", s.documentID,
		"client_id", s.ID(),
		"user_id", s.identity.UserID,
		"evicted_cursors", len(evicted),
	)
}

// reports whether err is a dropped-frame error rather than a transport failure
func IsFrameError(err error) bool {
	return errors.Is(err, ErrMalformedFrame) ||
		errors.Is(err, ErrUnknownType) ||
		errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, presence.ErrCursorOwned)
}
