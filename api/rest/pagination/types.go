package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// reads the limit query parameter, applying the default when absent or
// unparsable and clamping to max
func Limit(c *gin.Context, defaultLimit, maxLimit int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return limit
}
