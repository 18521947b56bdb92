package websocket

import (
	"context"
	"net/http"
	"time"

	"codeberg.org/docflow/server/internal/auth"
	ws "codeberg.org/docflow/server/internal/websocket"
)

// close reasons sent to rejected connections
const (
	reasonInvalidDocument = "invalid document id"
	reasonUnauthenticated = "authentication required"
	reasonForbidden       = "access denied"
	reasonUnavailable     = "document store unavailable"
)

const defaultAccessTimeout = 5 * time.Second

// resolves request credentials into an identity
type IdentityResolver interface {
	Resolve(r *http.Request) (*auth.Identity, error)
}

// answers whether a user may open a document
type AccessChecker interface {
	UserHasAccess(ctx context.Context, userID, documentID int64) (bool, error)
}

// everything the gateway needs to turn a request into a session
type Dependencies struct {
	Hub         *ws.Hub
	Resolver    IdentityResolver
	Access      AccessChecker
	Persister   ws.EditPersister
	Session     ws.SessionConfig
	CheckOrigin func(r *http.Request) bool

	// bound on the access check, zero uses the default
	AccessTimeout time.Duration
}
