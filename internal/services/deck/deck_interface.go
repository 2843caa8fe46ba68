package deck

import (
	"context"

	"karaoke-live/models"
)

// Provider represents the supported deck controller softwares
type Provider string

const (
	ProviderOpenKJ    Provider = "openkj"
	ProviderVirtualDJ Provider = "virtualdj"
)

// ConnectionResult is the outcome of probing a deck controller
type ConnectionResult struct {
	Connected bool   `json:"connected"`
	Version   string `json:"version,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Controller defines the common interface for all deck controller providers
type Controller interface {
	// GetProvider returns the deck provider type
	GetProvider() Provider

	// TestConnection probes the deck controller's control endpoint
	TestConnection(ctx context.Context) (*ConnectionResult, error)

	// GetNowPlaying reports the loaded track. A nil track with a nil error
	// means the deck is reachable but nothing is loaded; an error means the
	// deck could not be reached.
	GetNowPlaying(ctx context.Context) (*models.NowPlaying, error)

	// SearchAndLoad finds the track in the deck's library and loads it
	SearchAndLoad(ctx context.Context, title, artist string) error

	// MuteVocals silences the vocal track on multiplex recordings
	MuteVocals(ctx context.Context) error

	// UnmuteVocals restores the vocal track
	UnmuteVocals(ctx context.Context) error

	// Close gracefully closes any connections
	Close(ctx context.Context) error
}

// ControllerFactory creates deck controller instances based on provider type
type ControllerFactory interface {
	CreateController(ctx context.Context, provider Provider, config interface{}) (Controller, error)
	GetSupportedProviders() []Provider
}
