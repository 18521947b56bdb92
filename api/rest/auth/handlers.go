package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/docflow/server/internal/auth"
	"codeberg.org/docflow/server/internal/errors"
	"codeberg.org/docflow/server/internal/logger"
)

// CreateSessionHandler godoc
// @Summary Start cookie session
// @Description Exchanges a bearer token for a session cookie usable by browser websocket clients
// @Tags auth
// @Produce json
// @Success 200 {object} IdentityResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/session [post]
// @Security BearerAuth
func CreateSessionHandler(sessions *auth.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := auth.GetIdentity(c)
		if !ok {
			errors.Unauthorized(c, "")
			return
		}

		if err := sessions.Save(c.Writer, c.Request, identity); err != nil {
			errors.InternalError(c, "failed to save session", err)
			return
		}

		c.JSON(http.StatusOK, IdentityResponse{
			UserID:   identity.UserID,
			Username: identity.Username,
		})
	}
}

// GetCurrentUserHandler godoc
// @Summary Get current user
// @Description Returns the identity resolved from the request credentials
// @Tags auth
// @Produce json
// @Success 200 {object} IdentityResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/me [get]
// @Security BearerAuth
func GetCurrentUserHandler(c *gin.Context) {
	identity, ok := auth.GetIdentity(c)
	if !ok {
		errors.Unauthorized(c, "")
		return
	}

	c.JSON(http.StatusOK, IdentityResponse{
		UserID:   identity.UserID,
		Username: identity.Username,
	})
}

// LogoutHandler godoc
// @Summary Logout
// @Description Clears the session cookie
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/v1/auth/session [delete]
func LogoutHandler(sessions *auth.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := sessions.Clear(c.Writer, c.Request); err != nil {
			logger.ErrorErr(err, "failed to clear session cookie")
		}

		c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
	}
}
