package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codeberg.org/docflow/server/docflow/documents"
)

// edits by the same user inside this window share one history record
const DefaultEditWindow = 300 * time.Second

var ErrInvalidContent = errors.New("persistence: content must be a JSON object")

// subset of the document repository the policy needs
type Store interface {
	GetDocument(ctx context.Context, documentID int64) (*documents.Document, error)
	SaveContent(ctx context.Context, documentID int64, content json.RawMessage) error
	AppendHistory(ctx context.Context, record *documents.HistoryRecord) (*documents.HistoryRecord, error)
}

// decides whether an edit history record may be written now
type Throttle interface {
	// reports whether a record for key may be written at now
	Allow(ctx context.Context, key Key, now time.Time) (bool, error)
	// notes that a record for key was written at now
	Record(ctx context.Context, key Key, now time.Time) error
}

// identifies one rate-limited history stream
type Key struct {
	DocumentID int64
	UserID     int64
	Action     string
}

func (k Key) String() string {
	return fmt.Sprintf("%d:%d:%s", k.DocumentID, k.UserID, k.Action)
}

// one incoming edit, attributed to the authenticated user
type Edit struct {
	DocumentID int64
	UserID     int64
	Username   string
	Content    json.RawMessage
}

// outcome of applying an edit
type Result struct {
	Action          string
	HistoryRecorded bool
}
