// README: Itinerary handler (prompted generation on the configured backend).
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"navsmart/internal/modules/itinerary"
)

type ItineraryHandler struct {
	generator *itinerary.Generator
}

func NewItineraryHandler(gen *itinerary.Generator) *ItineraryHandler {
	return &ItineraryHandler{generator: gen}
}

// Get handles POST /location/get-itinerary. Backend and parse failures are answered with 200
// and an error payload.
func (h *ItineraryHandler) Get(c *gin.Context) {
	message, ok := bindMessage(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if message == "" {
		writeError(c, http.StatusBadRequest, "missing message")
		return
	}

	res, err := h.generator.Generate(c.Request.Context(), message)
	if err != nil {
		writeJSON(c, http.StatusOK, itinerary.FailureFor(h.generator.Provider(), err))
		return
	}
	writeJSON(c, http.StatusOK, res)
}
