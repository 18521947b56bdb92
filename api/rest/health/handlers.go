package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

// Handler godoc
// @Summary Health check
// @Description Returns server health and the number of open document rooms
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Router /health [get]
func Handler(rooms RoomCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, Response{
			Status:  "healthy",
			Service: "docflow",
			Version: Version,
			Rooms:   rooms.RoomCount(),
		})
	}
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{Message: "pong"})
}
