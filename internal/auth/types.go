package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// gin context keys set by Middleware
const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

var (
	ErrUnauthenticated = errors.New("auth: unauthenticated")
	ErrInvalidToken    = errors.New("auth: invalid token")
)

// represents JWT claims
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// the authenticated user behind a request
type Identity struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}
