package documents

import (
	"context"

	"codeberg.org/docflow/server/docflow/documents"
	"codeberg.org/docflow/server/internal/presence"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// the store operations the document endpoints read from
type Reader interface {
	GetDocument(ctx context.Context, documentID int64) (*documents.Document, error)
	ListHistory(ctx context.Context, documentID int64, limit int) ([]*documents.HistoryRecord, error)
	UserHasAccess(ctx context.Context, userID, documentID int64) (bool, error)
}

// live cursor state by document
type PresenceSource interface {
	Snapshot(documentID int64) []presence.CursorState
}

type PresenceResponse struct {
	DocumentID string                 `json:"document_id"`
	Room       string                 `json:"room"`
	Cursors    []presence.CursorState `json:"cursors"`
}

type HistoryResponse struct {
	DocumentID string                     `json:"document_id"`
	History    []*documents.HistoryRecord `json:"history"`
	Limit      int                        `json:"limit"`
}
