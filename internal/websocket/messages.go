package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// a decoded client frame: one of DocumentUpdate, CursorConnect or CursorUpdate
type Inbound interface {
	MessageType() string
	validate() error
}

// full document content from an editor
type DocumentUpdate struct {
	Content  json.RawMessage `json:"content"`
	SenderID json.RawMessage `json:"sender_id"`
	UserID   json.RawMessage `json:"user_id"`
	Username *string         `json:"username"`
}

// introduces an editor's cursor
type CursorConnect struct {
	CursorID string          `json:"cursor_id"`
	UserID   json.RawMessage `json:"user_id"`
	Username *string         `json:"username"`
	Color    string          `json:"color,omitempty"`
}

// moves an editor's cursor
type CursorUpdate struct {
	CursorID string          `json:"cursor_id"`
	Position json.RawMessage `json:"position"`
	UserID   json.RawMessage `json:"user_id,omitempty"`
	Username *string         `json:"username,omitempty"`
}

func (DocumentUpdate) MessageType() string { return TypeDocumentUpdate }
func (CursorConnect) MessageType() string  { return TypeCursorConnect }
func (CursorUpdate) MessageType() string   { return TypeCursorUpdate }

func (m DocumentUpdate) validate() error {
	switch {
	case !present(m.Content):
		return missing("content")
	case !present(m.SenderID):
		return missing("sender_id")
	case !present(m.UserID):
		return missing("user_id")
	case m.Username == nil:
		return missing("username")
	}

	return nil
}

func (m CursorConnect) validate() error {
	switch {
	case m.CursorID == "":
		return missing("cursor_id")
	case !present(m.UserID):
		return missing("user_id")
	case m.Username == nil:
		return missing("username")
	}

	return nil
}

func (m CursorUpdate) validate() error {
	switch {
	case m.CursorID == "":
		return missing("cursor_id")
	case !present(m.Position):
		return missing("position")
	}

	return nil
}

// decodes a client frame into its typed message
func DecodeInbound(data []byte) (Inbound, error) {
	var envelope struct {
		Type string `json:"type"`
	}

	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	var msg Inbound

	switch envelope.Type {
	case TypeDocumentUpdate:
		msg = &DocumentUpdate{}
	case TypeCursorConnect:
		msg = &CursorConnect{}
	case TypeCursorUpdate:
		msg = &CursorUpdate{}
	case "":
		return nil, missing("type")
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if err := msg.validate(); err != nil {
		return nil, err
	}

	return msg, nil
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

// is sent once the session has joined its room
type ConnectionEstablishedMessage struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	DocumentID string `json:"document_id"`
}

// echoes an edit to every member of the room
type DocumentUpdateMessage struct {
	Type     string          `json:"type"`
	UserID   json.RawMessage `json:"user_id"`
	Username string          `json:"username"`
	Content  json.RawMessage `json:"content"`
	SenderID json.RawMessage `json:"sender_id"`
}

type CursorConnectedMessage struct {
	Type     string          `json:"type"`
	CursorID string          `json:"cursor_id"`
	UserID   json.RawMessage `json:"user_id"`
	Username string          `json:"username"`
	Color    string          `json:"color"`
}

type CursorPositionUpdateMessage struct {
	Type     string          `json:"type"`
	CursorID string          `json:"cursor_id"`
	Position json.RawMessage `json:"position"`
	UserID   json.RawMessage `json:"user_id"`
	Username string          `json:"username"`
}

type CursorActiveMessage struct {
	Type     string          `json:"type"`
	CursorID string          `json:"cursor_id"`
	UserID   json.RawMessage `json:"user_id"`
	Username string          `json:"username"`
	Color    string          `json:"color"`
	Position json.RawMessage `json:"position"`
}

type CursorDisconnectedMessage struct {
	Type     string          `json:"type"`
	CursorID string          `json:"cursor_id"`
	UserID   json.RawMessage `json:"user_id"`
	Username string          `json:"username"`
}

type ServerShutdownMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// returns the broadcast group name of a document
func RoomName(documentID int64) string {
	return fmt.Sprintf("document_%d", documentID)
}
