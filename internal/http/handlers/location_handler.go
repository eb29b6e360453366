// README: Location handlers (text and audio routing, detailed stop points).
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"navsmart/internal/modules/speech"
	"navsmart/internal/service"
)

// MaxAudioBytes bounds uploaded clips (the hosted speech model rejects larger files).
const MaxAudioBytes = 25 << 20

type LocationHandler struct {
	planner *service.RoutePlanner
}

func NewLocationHandler(planner *service.RoutePlanner) *LocationHandler {
	return &LocationHandler{planner: planner}
}

// GetRoute handles POST /location/get-route with either {"message": ...} or a multipart
// "file" audio upload.
func (h *LocationHandler) GetRoute(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.getRouteFromAudio(c)
		return
	}

	message, ok := bindMessage(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	writeJSON(c, http.StatusOK, h.planner.PlanRoute(c.Request.Context(), message))
}

func (h *LocationHandler) getRouteFromAudio(c *gin.Context) {
	if !h.planner.AudioEnabled() {
		writeError(c, http.StatusServiceUnavailable, service.ErrAudioDisabled.Error())
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxAudioBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, http.StatusRequestEntityTooLarge, "audio file too large")
			return
		}
		writeError(c, http.StatusBadRequest, "missing audio file")
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable audio file")
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable audio file")
		return
	}

	res, err := h.planner.PlanRouteFromAudio(c.Request.Context(), audio)
	if err != nil {
		switch {
		case errors.Is(err, speech.ErrDecode):
			writeError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, speech.ErrInference):
			slog.ErrorContext(c.Request.Context(), "transcription failed", "error", err)
			writeError(c, http.StatusBadGateway, "speech recognition failed")
		default:
			slog.ErrorContext(c.Request.Context(), "audio routing failed", "error", err)
			writeError(c, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(c, http.StatusOK, res)
}

// GetDetailsRoute handles POST /location/get-details-route.
func (h *LocationHandler) GetDetailsRoute(c *gin.Context) {
	message, ok := bindMessage(c)
	if !ok {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	writeJSON(c, http.StatusOK, h.planner.DetailedRoute(c.Request.Context(), message))
}
