package auth

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/docflow/server/internal/auth"
)

// registers all authentication routes
func RegisterRoutes(router *gin.RouterGroup, resolver *auth.Resolver, sessions *auth.SessionStore) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/session", auth.Middleware(resolver), CreateSessionHandler(sessions))
		authGroup.DELETE("/session", LogoutHandler(sessions))
		authGroup.GET("/me", auth.Middleware(resolver), GetCurrentUserHandler)
	}
}
