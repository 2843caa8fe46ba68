package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"karaoke-live/internal/status"
	"karaoke-live/models"
	"karaoke-live/services"
)

// OperatorHandler serves the KJ console endpoints. Every action checks the
// venue record's operator relation against the authenticated user.
type OperatorHandler struct {
	app     core.App
	queue   *services.QueueService
	bridges *services.BridgeManager
}

func NewOperatorHandler(app core.App, queue *services.QueueService, bridges *services.BridgeManager) *OperatorHandler {
	return &OperatorHandler{app: app, queue: queue, bridges: bridges}
}

func (h *OperatorHandler) requireOperator(e *core.RequestEvent, venueID string) error {
	_, err := h.venue(e, venueID)
	return err
}

// venue loads the venue record and authorizes the caller as its operator.
func (h *OperatorHandler) venue(e *core.RequestEvent, venueID string) (*models.Venue, error) {
	if venueID == "" {
		return nil, apis.NewBadRequestError("venue_id is required", nil)
	}

	record, err := h.app.FindRecordById("venues", venueID)
	if err != nil {
		return nil, apis.NewNotFoundError("Venue not found", err)
	}

	venue := &models.Venue{
		ID:         record.Id,
		Name:       record.GetString("name"),
		OperatorID: record.GetString("operator"),
		Status:     record.GetString("status"),
	}
	if venue.OperatorID != e.Auth.Id {
		return nil, apis.NewForbiddenError("Operator access required", nil)
	}
	return venue, nil
}

// entryVenue loads the entry and authorizes the operator for its venue.
func (h *OperatorHandler) entryVenue(e *core.RequestEvent, entryID string) (*models.QueueEntry, error) {
	entry, err := h.queue.Store.GetEntry(e.Request.Context(), entryID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := h.requireOperator(e, entry.VenueID); err != nil {
		return nil, err
	}
	return entry, nil
}

// Advance moves the confirmed entry on stage.
func (h *OperatorHandler) Advance(e *core.RequestEvent) error {
	req := entryRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if _, err := h.entryVenue(e, req.EntryID); err != nil {
		return err
	}

	entry, err := h.queue.Advance(e.Request.Context(), req.EntryID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, entry)
}

// Complete marks the performing entry done.
func (h *OperatorHandler) Complete(e *core.RequestEvent) error {
	req := entryRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if _, err := h.entryVenue(e, req.EntryID); err != nil {
		return err
	}

	entry, err := h.queue.Complete(e.Request.Context(), req.EntryID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, entry)
}

// Skip drops an entry wherever it is in the queue.
func (h *OperatorHandler) Skip(e *core.RequestEvent) error {
	req := entryRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if _, err := h.entryVenue(e, req.EntryID); err != nil {
		return err
	}

	entry, err := h.queue.OperatorSkip(e.Request.Context(), req.EntryID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, entry)
}

type venueRequest struct {
	VenueID string `json:"venue_id"`
}

// Pause closes the venue's queue to new submissions.
func (h *OperatorHandler) Pause(e *core.RequestEvent) error {
	req := venueRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if err := h.requireOperator(e, req.VenueID); err != nil {
		return err
	}

	if err := h.queue.PauseQueue(e.Request.Context(), req.VenueID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"venue_id": req.VenueID, "paused": true})
}

// Resume reopens the venue's queue.
func (h *OperatorHandler) Resume(e *core.RequestEvent) error {
	req := venueRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if err := h.requireOperator(e, req.VenueID); err != nil {
		return err
	}

	if err := h.queue.ResumeQueue(e.Request.Context(), req.VenueID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"venue_id": req.VenueID, "paused": false})
}

// Dashboard bundles everything the KJ console shows in one call: venue,
// full queue view, paused flag and the deck session if one exists.
func (h *OperatorHandler) Dashboard(e *core.RequestEvent) error {
	venueID := e.Request.URL.Query().Get("venue_id")
	venue, err := h.venue(e, venueID)
	if err != nil {
		return err
	}

	view, err := h.queue.VenueView(e.Request.Context(), venueID, "")
	if err != nil {
		return apiError(err)
	}

	paused, err := h.queue.IsPaused(e.Request.Context(), venueID)
	if err != nil {
		return apiError(err)
	}
	venue.QueuePaused = paused

	var deckSession *models.DeckSession
	if h.bridges != nil {
		if session, err := h.bridges.Status(venueID); err == nil {
			deckSession = session
		} else if err != status.ErrDeckNotConnected {
			return apiError(err)
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"venue":  venue,
		"queue":  view,
		"paused": paused,
		"deck":   deckSession,
	})
}
