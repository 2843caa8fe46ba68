package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"karaoke-live/internal/status"
	"karaoke-live/models"
	"karaoke-live/services"
)

// QueueHandler serves the singer-facing queue endpoints.
type QueueHandler struct {
	queue *services.QueueService
	timer *services.ConfirmTimer
}

func NewQueueHandler(queue *services.QueueService, timer *services.ConfirmTimer) *QueueHandler {
	return &QueueHandler{queue: queue, timer: timer}
}

type submitRequest struct {
	VenueID    string `json:"venue_id"`
	SingerName string `json:"singer_name"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Override   bool   `json:"override"`
}

type entryRequest struct {
	EntryID string `json:"entry_id"`
}

// Submit files a new song request. A duplicate title answers 409 with the
// conflicting entry; resubmitting with override true inserts anyway.
func (h *QueueHandler) Submit(e *core.RequestEvent) error {
	req := submitRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if req.VenueID == "" {
		return apis.NewBadRequestError("venue_id is required", nil)
	}

	singerName := req.SingerName
	if singerName == "" {
		singerName = e.Auth.GetString("name")
	}

	entry, err := h.queue.Submit(e.Request.Context(), services.SubmitRequest{
		VenueID:    req.VenueID,
		UserID:     e.Auth.Id,
		SingerName: singerName,
		Title:      req.Title,
		Artist:     req.Artist,
		Override:   req.Override,
	})
	if err != nil {
		var dup *status.DuplicateSongError
		if errors.As(err, &dup) {
			return e.JSON(http.StatusConflict, map[string]any{
				"duplicate": true,
				"entry_id":  dup.EntryID,
				"title":     dup.Title,
				"singer":    dup.Singer,
				"message":   "This song is already queued. Submit again with override to queue it anyway.",
			})
		}
		return apiError(err)
	}

	return e.JSON(http.StatusCreated, entry)
}

// Confirm acknowledges the singer's head-of-line slot.
func (h *QueueHandler) Confirm(e *core.RequestEvent) error {
	req := entryRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	entry, err := h.queue.Confirm(e.Request.Context(), req.EntryID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, entry)
}

// Cancel withdraws the singer's own request.
func (h *QueueHandler) Cancel(e *core.RequestEvent) error {
	req := entryRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	entry, err := h.queue.Cancel(e.Request.Context(), req.EntryID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, entry)
}

// Complete is the singer's own end-of-song report.
func (h *QueueHandler) Complete(e *core.RequestEvent) error {
	req := entryRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}

	entry, err := h.queue.SelfComplete(e.Request.Context(), req.EntryID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, entry)
}

// View returns the venue queue projected for the requesting singer.
func (h *QueueHandler) View(e *core.RequestEvent) error {
	venueID := e.Request.URL.Query().Get("venue_id")
	if venueID == "" {
		return apis.NewBadRequestError("venue_id is required", nil)
	}

	view, err := h.queue.VenueView(e.Request.Context(), venueID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, view)
}

type mineEntry struct {
	models.ViewerEntry
	CountdownSeconds *float64 `json:"countdown_seconds,omitempty"`
}

// Mine lists the singer's own live entries with ahead counts and, for the
// head-of-line entry, the remaining confirmation countdown.
func (h *QueueHandler) Mine(e *core.RequestEvent) error {
	venueID := e.Request.URL.Query().Get("venue_id")
	if venueID == "" {
		return apis.NewBadRequestError("venue_id is required", nil)
	}

	view, err := h.queue.VenueView(e.Request.Context(), venueID, e.Auth.Id)
	if err != nil {
		return apiError(err)
	}

	mine := make([]mineEntry, 0, len(view.Mine))
	for _, ve := range view.Mine {
		item := mineEntry{ViewerEntry: ve}
		if h.timer != nil {
			if rem := h.timer.Remaining(ve.Entry.ID); rem >= 0 {
				item.CountdownSeconds = &rem
			}
		}
		mine = append(mine, item)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"venue_id": venueID,
		"entries":  mine,
	})
}
