package deck

import (
	"context"
	"fmt"

	"karaoke-live/internal/services/deck/openkj"
	"karaoke-live/models"
	"karaoke-live/utils"
)

// OpenKJAdapter wraps the OpenKJ implementation to conform to Controller.
// All calls run through a circuit breaker so a powered-off laptop fails
// fast instead of stalling every poll on the full HTTP timeout.
type OpenKJAdapter struct {
	client  *openkj.OpenKJ
	breaker *utils.CircuitBreaker
}

func NewOpenKJAdapter(ctx context.Context, config *openkj.Config) (*OpenKJAdapter, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("openkj adapter: base url is required")
	}
	return &OpenKJAdapter{
		client:  openkj.New(ctx, config),
		breaker: utils.NewCircuitBreaker("openkj"),
	}, nil
}

func (a *OpenKJAdapter) GetProvider() Provider {
	return ProviderOpenKJ
}

func (a *OpenKJAdapter) TestConnection(ctx context.Context) (*ConnectionResult, error) {
	version, err := a.client.TestConnection(ctx)
	if err != nil {
		return &ConnectionResult{Connected: false, Message: err.Error()}, nil
	}
	return &ConnectionResult{Connected: true, Version: version}, nil
}

func (a *OpenKJAdapter) GetNowPlaying(ctx context.Context) (*models.NowPlaying, error) {
	var np *models.NowPlaying
	err := a.breaker.Execute(ctx, func() error {
		var innerErr error
		np, innerErr = a.client.NowPlaying(ctx)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return np, nil
}

func (a *OpenKJAdapter) SearchAndLoad(ctx context.Context, title, artist string) error {
	return a.breaker.Execute(ctx, func() error {
		return a.client.SearchAndLoad(ctx, title, artist)
	})
}

func (a *OpenKJAdapter) MuteVocals(ctx context.Context) error {
	return a.breaker.Execute(ctx, func() error {
		return a.client.SetVocalsMuted(ctx, true)
	})
}

func (a *OpenKJAdapter) UnmuteVocals(ctx context.Context) error {
	return a.breaker.Execute(ctx, func() error {
		return a.client.SetVocalsMuted(ctx, false)
	})
}

func (a *OpenKJAdapter) Close(ctx context.Context) error {
	// OpenKJ's API is stateless HTTP, nothing to tear down.
	return nil
}
