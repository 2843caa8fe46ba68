package virtualdj

import (
	"context"
	"fmt"
	"strings"
	"time"

	"karaoke-live/models"
)

type Config struct {
	BaseURL  string        `json:"baseUrl" mapstructure:"base_url"`
	Password string        `json:"password" mapstructure:"password"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// VirtualDJ drives the network control interface of a VirtualDJ instance
// running in karaoke mode. All state lives on the deck; this wrapper only
// translates between script queries and domain types.
type VirtualDJ struct {
	client *Client
}

func New(_ context.Context, cfg *Config) *VirtualDJ {
	return &VirtualDJ{
		client: newClient(&ClientConfig{
			BaseURL:  cfg.BaseURL,
			Password: cfg.Password,
			Timeout:  cfg.Timeout,
		}),
	}
}

func (v *VirtualDJ) TestConnection(ctx context.Context) (string, error) {
	version, err := v.client.query(ctx, "get_version")
	if err != nil {
		return "", fmt.Errorf("TestConnection: %w", err)
	}
	return version, nil
}

// NowPlaying assembles the loaded track from individual script queries. An
// empty title means no track is loaded on the active deck.
func (v *VirtualDJ) NowPlaying(ctx context.Context) (*models.NowPlaying, error) {
	title, err := v.client.query(ctx, "deck active get_title")
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, nil
	}

	artist, err := v.client.query(ctx, "deck active get_artist")
	if err != nil {
		return nil, err
	}
	position, err := v.client.queryFloat(ctx, "deck active get_time elapsed absolute")
	if err != nil {
		return nil, err
	}
	length, err := v.client.queryFloat(ctx, "deck active get_totaltime")
	if err != nil {
		return nil, err
	}
	playing, err := v.client.query(ctx, "deck active play ? true : false")
	if err != nil {
		return nil, err
	}

	return &models.NowPlaying{
		Title:     title,
		Artist:    artist,
		Position:  position,
		Length:    length,
		IsPlaying: playing == "true",
	}, nil
}

// SearchAndLoad searches the deck's karaoke folder and loads the first hit.
func (v *VirtualDJ) SearchAndLoad(ctx context.Context, title, artist string) error {
	query := strings.TrimSpace(fmt.Sprintf("%s %s", artist, title))

	if err := v.client.execute(ctx, fmt.Sprintf("browser_window songs & search %q", query)); err != nil {
		return fmt.Errorf("SearchAndLoad: search: %w", err)
	}
	if err := v.client.execute(ctx, "browsed_song 1 & load"); err != nil {
		return fmt.Errorf("SearchAndLoad: load: %w", err)
	}
	return nil
}

func (v *VirtualDJ) SetVocalsMuted(ctx context.Context, muted bool) error {
	// VirtualDJ models vocal removal as an audio effect toggle.
	state := "off"
	if muted {
		state = "on"
	}
	return v.client.execute(ctx, fmt.Sprintf("deck active effect_active 'vocal remover' %s", state))
}
