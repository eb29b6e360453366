// README: Base handler utilities (JSON helpers, request binding).
package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Error string `json:"error"`
}

// messageRequest is the body shared by the routing and itinerary endpoints.
type messageRequest struct {
	Message string `json:"message"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// bindMessage decodes {"message": "..."}. A missing or empty message is not an error here;
// the routing endpoints answer it with a structured reply.
func bindMessage(c *gin.Context) (string, bool) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", false
	}
	return strings.TrimSpace(req.Message), true
}
