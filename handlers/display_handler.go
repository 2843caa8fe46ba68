package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"karaoke-live/internal/status"
	"karaoke-live/models"
	"karaoke-live/services"
)

// DisplayHandler serves the unauthenticated venue display endpoint. Screens
// poll it once on load, then follow the display-{venueId} PubNub channel.
type DisplayHandler struct {
	queue   *services.QueueService
	bridges *services.BridgeManager
}

func NewDisplayHandler(queue *services.QueueService, bridges *services.BridgeManager) *DisplayHandler {
	return &DisplayHandler{queue: queue, bridges: bridges}
}

func (h *DisplayHandler) Display(e *core.RequestEvent) error {
	venueID := e.Request.PathValue("venueId")
	if venueID == "" {
		return apis.NewBadRequestError("venueId is required", nil)
	}

	view, err := h.queue.VenueView(e.Request.Context(), venueID, "")
	if err != nil {
		return apiError(err)
	}

	var nowPlaying *models.NowPlaying
	vocalsRemoved := false
	if h.bridges != nil {
		if session, err := h.bridges.Status(venueID); err == nil {
			nowPlaying = session.NowPlaying
			vocalsRemoved = session.VocalsRemoved
		} else if err != status.ErrDeckNotConnected {
			return apiError(err)
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"queue":          view,
		"now_playing":    nowPlaying,
		"vocals_removed": vocalsRemoved,
	})
}
