package handlers

import (
	"fmt"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"karaoke-live/config"
	"karaoke-live/internal/services/deck"
	"karaoke-live/internal/services/deck/openkj"
	"karaoke-live/internal/services/deck/virtualdj"
	"karaoke-live/services"
)

// DeckHandler serves the deck controller endpoints. All of them are
// operator actions, authorized the same way as the console endpoints.
type DeckHandler struct {
	bridges *services.BridgeManager
	cfg     *config.Config
	auth    interface {
		requireOperator(e *core.RequestEvent, venueID string) error
	}
}

func NewDeckHandler(bridges *services.BridgeManager, operators *OperatorHandler, cfg *config.Config) *DeckHandler {
	return &DeckHandler{bridges: bridges, cfg: cfg, auth: operators}
}

type connectRequest struct {
	VenueID        string `json:"venue_id"`
	Provider       string `json:"provider"`
	Host           string `json:"host"`
	APIKey         string `json:"api_key"`
	Password       string `json:"password"`
	AutoAdvance    bool   `json:"auto_advance"`
	AutoMuteVocals bool   `json:"auto_mute_vocals"`
}

// Connect probes the operator's deck software and starts the bridge.
func (h *DeckHandler) Connect(e *core.RequestEvent) error {
	req := connectRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if err := h.auth.requireOperator(e, req.VenueID); err != nil {
		return err
	}
	if req.Host == "" {
		return apis.NewBadRequestError("host is required", nil)
	}

	var providerConfig interface{}
	switch deck.Provider(req.Provider) {
	case deck.ProviderOpenKJ:
		providerConfig = &openkj.Config{
			BaseURL: req.Host,
			APIKey:  req.APIKey,
			Timeout: h.cfg.DeckRequestTimeout,
		}
	case deck.ProviderVirtualDJ:
		providerConfig = &virtualdj.Config{
			BaseURL:  req.Host,
			Password: req.Password,
			Timeout:  h.cfg.DeckRequestTimeout,
		}
	default:
		return apis.NewBadRequestError(fmt.Sprintf("Unsupported deck provider: %s", req.Provider), nil)
	}

	session, err := h.bridges.Connect(e.Request.Context(), services.ConnectRequest{
		VenueID:        req.VenueID,
		Provider:       deck.Provider(req.Provider),
		Config:         providerConfig,
		AutoAdvance:    req.AutoAdvance,
		AutoMuteVocals: req.AutoMuteVocals,
	})
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, session)
}

// Disconnect tears the venue's bridge down.
func (h *DeckHandler) Disconnect(e *core.RequestEvent) error {
	req := venueRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if err := h.auth.requireOperator(e, req.VenueID); err != nil {
		return err
	}

	if err := h.bridges.Disconnect(e.Request.Context(), req.VenueID); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"venue_id": req.VenueID, "connected": false})
}

// Skip is the manual skip button: it completes the performing entry
// without waiting for end-of-track detection.
func (h *DeckHandler) Skip(e *core.RequestEvent) error {
	req := venueRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if err := h.auth.requireOperator(e, req.VenueID); err != nil {
		return err
	}

	bridge, err := h.bridges.Bridge(req.VenueID)
	if err != nil {
		return apiError(err)
	}
	if err := bridge.SkipCurrent(e.Request.Context()); err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"venue_id": req.VenueID, "skipped": true})
}

// Vocals toggles the multiplex vocal channel.
func (h *DeckHandler) Vocals(e *core.RequestEvent) error {
	req := venueRequest{}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request body", err)
	}
	if err := h.auth.requireOperator(e, req.VenueID); err != nil {
		return err
	}

	bridge, err := h.bridges.Bridge(req.VenueID)
	if err != nil {
		return apiError(err)
	}
	removed, err := bridge.ToggleVocals(e.Request.Context())
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, map[string]any{"venue_id": req.VenueID, "vocals_removed": removed})
}

// Status reports the venue's deck session.
func (h *DeckHandler) Status(e *core.RequestEvent) error {
	venueID := e.Request.URL.Query().Get("venue_id")
	if err := h.auth.requireOperator(e, venueID); err != nil {
		return err
	}

	session, err := h.bridges.Status(venueID)
	if err != nil {
		return apiError(err)
	}
	return e.JSON(http.StatusOK, session)
}
