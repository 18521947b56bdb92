package auth

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/docflow/server/internal/errors"
)

// resolves the identity and adds user info to context, rejecting anonymous requests
func Middleware(resolver *Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := resolver.Resolve(c.Request)
		if err != nil {
			errors.Unauthorized(c, "")
			return
		}

		c.Set(ContextUserID, identity.UserID)
		c.Set(ContextUsername, identity.Username)

		c.Next()
	}
}

// extracts the identity from context after Middleware
func GetIdentity(c *gin.Context) (*Identity, bool) {
	userID, ok := c.Get(ContextUserID)
	if !ok {
		return nil, false
	}

	id, ok := userID.(int64)
	if !ok {
		return nil, false
	}

	return &Identity{UserID: id, Username: c.GetString(ContextUsername)}, true
}
