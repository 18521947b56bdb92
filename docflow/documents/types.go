package documents

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// history action types (must match DB check constraint)
const (
	ActionCreate      = "create"
	ActionEdit        = "edit"
	ActionTitleChange = "title_change"
)

var (
	ErrNotFound = errors.New("documents: document not found")
)

// repository interface for document persistence
type Repository interface {
	// document operations
	CreateDocument(ctx context.Context, doc *Document) (*Document, error)
	GetDocument(ctx context.Context, documentID int64) (*Document, error)
	SaveContent(ctx context.Context, documentID int64, content json.RawMessage) error

	// history operations
	AppendHistory(ctx context.Context, record *HistoryRecord) (*HistoryRecord, error)
	LastHistoryAt(ctx context.Context, documentID, userID int64, actionType string) (time.Time, bool, error)
	ListHistory(ctx context.Context, documentID int64, limit int) ([]*HistoryRecord, error)

	// access operations
	GrantAccess(ctx context.Context, documentID, userID int64, includeChildren bool) error
	UserHasAccess(ctx context.Context, userID, documentID int64) (bool, error)
}

// represents a document node in the tree
type Document struct {
	ID        int64           `json:"id"`
	OwnerID   int64           `json:"owner_id"`
	ParentID  *int64          `json:"parent_id,omitempty"`
	Content   json.RawMessage `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// represents one recorded change to a document
type HistoryRecord struct {
	ID         int64           `json:"id"`
	DocumentID int64           `json:"document_id"`
	UserID     int64           `json:"user_id"`
	ActionType string          `json:"action_type"`
	Changes    json.RawMessage `json:"changes"`
	CreatedAt  time.Time       `json:"created_at"`
}

// payload stored in HistoryRecord.Changes
type Changes struct {
	Content  json.RawMessage `json:"content"`
	UserID   int64           `json:"user_id"`
	Username string          `json:"username"`
	Action   string          `json:"action"`
}

// returns true for a known history action type
func IsValidAction(actionType string) bool {
	switch actionType {
	case ActionCreate, ActionEdit, ActionTitleChange:
		return true
	default:
		return false
	}
}

func emptyContent(content json.RawMessage) json.RawMessage {
	if len(content) == 0 {
		return json.RawMessage(`{}`)
	}

	return content
}
