package auth

import (
	"net/http"
	"strings"
)

// turns request credentials into an identity.
// checks the Authorization header, then the token query parameter, then the session cookie
type Resolver struct {
	tokens   *TokenManager
	sessions *SessionStore
}

// creates a new resolver; sessions may be nil to disable cookie login
func NewResolver(tokens *TokenManager, sessions *SessionStore) *Resolver {
	return &Resolver{tokens: tokens, sessions: sessions}
}

// resolves the request's identity or returns ErrUnauthenticated
func (r *Resolver) Resolve(req *http.Request) (*Identity, error) {
	if token, ok := bearerToken(req); ok {
		return r.fromToken(token)
	}

	if token := req.URL.Query().Get("token"); token != "" {
		return r.fromToken(token)
	}

	if r.sessions != nil {
		return r.sessions.Identity(req)
	}

	return nil, ErrUnauthenticated
}

func (r *Resolver) fromToken(token string) (*Identity, error) {
	claims, err := r.tokens.Validate(token)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	return &Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

func bearerToken(req *http.Request) (string, bool) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}

	return parts[1], true
}
