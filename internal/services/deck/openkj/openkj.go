package openkj

import (
	"context"
	"fmt"
	"strings"
	"time"

	"karaoke-live/models"
)

type Config struct {
	BaseURL string        `json:"baseUrl" mapstructure:"base_url"`
	APIKey  string        `json:"apiKey" mapstructure:"api_key"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// OpenKJ is the domain-level wrapper around the raw command client.
type OpenKJ struct {
	client *Client
}

// New returns a new OpenKJ instance. It does not probe the deck; call
// TestConnection for that, connecting is an explicit operator action.
func New(_ context.Context, cfg *Config) *OpenKJ {
	return &OpenKJ{
		client: newClient(&ClientConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		}),
	}
}

func (o *OpenKJ) TestConnection(ctx context.Context) (string, error) {
	return o.client.connectionTest(ctx)
}

// NowPlaying reads the player state. A stopped player with no track title
// means nothing is loaded, reported as a nil track.
func (o *OpenKJ) NowPlaying(ctx context.Context) (*models.NowPlaying, error) {
	state, err := o.client.playerState(ctx)
	if err != nil {
		return nil, err
	}
	if state.Title == "" && state.State == "stopped" {
		return nil, nil
	}
	return &models.NowPlaying{
		Title:     state.Title,
		Artist:    state.Artist,
		Position:  state.Position,
		Length:    state.Duration,
		IsPlaying: state.State == "playing",
	}, nil
}

// SearchAndLoad finds the best library match for the request and loads it.
func (o *OpenKJ) SearchAndLoad(ctx context.Context, title, artist string) error {
	query := strings.TrimSpace(fmt.Sprintf("%s %s", artist, title))
	songID, err := o.client.search(ctx, query)
	if err != nil {
		return fmt.Errorf("SearchAndLoad: %w", err)
	}
	if err := o.client.loadSong(ctx, songID); err != nil {
		return fmt.Errorf("SearchAndLoad: %w", err)
	}
	return nil
}

func (o *OpenKJ) SetVocalsMuted(ctx context.Context, muted bool) error {
	return o.client.setMultiplex(ctx, muted)
}
