package websocket

import (
	"net/http"
	"slices"

	"github.com/google/uuid"

	"codeberg.org/docflow/server/internal/logger"
)

// builds an upgrader origin check. Outside production every origin is accepted;
// in production the Origin header must be listed
func NewOriginChecker(allowedOrigins []string, production bool) func(*http.Request) bool {
	return func(r *http.Request) bool {
		if !production {
			return true
		}

		origin := r.Header.Get("Origin")
		if origin == "" {
			logger.Warn("websocket connection with no origin header")
			return false
		}

		if slices.Contains(allowedOrigins, origin) {
			return true
		}

		logger.Warn("websocket origin rejected - not in allowed origins",
			"origin", origin,
			"allowed_origins", allowedOrigins,
		)

		return false
	}
}

// returns a new channel identity
func GenerateClientID() string {
	return uuid.NewString()
}
