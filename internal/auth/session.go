package auth

import (
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionKeyUserID   = "user_id"
	sessionKeyUsername = "username"

	sessionMaxAge = 14 * 24 * 60 * 60 // two weeks
)

// cookie-backed login sessions
type SessionStore struct {
	store *sessions.CookieStore
	name  string
}

// creates a new session store using the given secret and cookie name
func NewSessionStore(secret, cookieName string, secure bool) (*SessionStore, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionStore{store: store, name: cookieName}, nil
}

// returns the cookie name carrying the session
func (s *SessionStore) CookieName() string {
	return s.name
}

// reads the identity stored in the request's session cookie
func (s *SessionStore) Identity(r *http.Request) (*Identity, error) {
	if _, err := r.Cookie(s.name); err != nil {
		return nil, ErrUnauthenticated
	}

	session, err := s.store.Get(r, s.name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	userID, ok := session.Values[sessionKeyUserID].(int64)
	if !ok || userID <= 0 {
		return nil, ErrUnauthenticated
	}

	username, _ := session.Values[sessionKeyUsername].(string)

	return &Identity{UserID: userID, Username: username}, nil
}

// writes the identity into the session cookie
func (s *SessionStore) Save(w http.ResponseWriter, r *http.Request, identity *Identity) error {
	session, err := s.store.Get(r, s.name)
	if err != nil && session == nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	session.Values[sessionKeyUserID] = identity.UserID
	session.Values[sessionKeyUsername] = identity.Username

	return session.Save(r, w)
}

// expires the session cookie
func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	session, err := s.store.Get(r, s.name)
	if err != nil && session == nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	session.Options.MaxAge = -1
	return session.Save(r, w)
}
