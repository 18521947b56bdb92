package documents

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/docflow/server/internal/auth"
)

func RegisterRoutes(router *gin.RouterGroup, reader Reader, source PresenceSource, resolver *auth.Resolver) {
	docs := router.Group("/documents")
	docs.Use(auth.Middleware(resolver))
	{
		docs.GET("/:id", GetDocumentHandler(reader))
		docs.GET("/:id/history", ListHistoryHandler(reader))
		docs.GET("/:id/presence", PresenceHandler(reader, source))
	}
}
