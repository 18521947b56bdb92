package websocket

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router gin.IRoutes, deps Dependencies) {
	handler := WebSocketHandler(deps)

	router.GET("/documents/:document_id/", handler)
	router.GET("/ws/documents/:document_id", handler)
}
