package deck

import (
	"context"
	"fmt"

	"karaoke-live/internal/services/deck/virtualdj"
	"karaoke-live/models"
	"karaoke-live/utils"
)

// VirtualDJAdapter wraps the VirtualDJ implementation to conform to
// Controller, behind the same circuit breaker as OpenKJ.
type VirtualDJAdapter struct {
	client  *virtualdj.VirtualDJ
	breaker *utils.CircuitBreaker
}

func NewVirtualDJAdapter(ctx context.Context, config *virtualdj.Config) (*VirtualDJAdapter, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("virtualdj adapter: base url is required")
	}
	return &VirtualDJAdapter{
		client:  virtualdj.New(ctx, config),
		breaker: utils.NewCircuitBreaker("virtualdj"),
	}, nil
}

func (a *VirtualDJAdapter) GetProvider() Provider {
	return ProviderVirtualDJ
}

func (a *VirtualDJAdapter) TestConnection(ctx context.Context) (*ConnectionResult, error) {
	version, err := a.client.TestConnection(ctx)
	if err != nil {
		return &ConnectionResult{Connected: false, Message: err.Error()}, nil
	}
	return &ConnectionResult{Connected: true, Version: version}, nil
}

func (a *VirtualDJAdapter) GetNowPlaying(ctx context.Context) (*models.NowPlaying, error) {
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

func (a *VirtualDJAdapter) SearchAndLoad(ctx context.Context, title, artist string) error {
	return a.breaker.Execute(ctx, func() error {
		return a.client.SearchAndLoad(ctx, title, artist)
	})
}

func (a *VirtualDJAdapter) MuteVocals(ctx context.Context) error {
	return a.breaker.Execute(ctx, func() error {
		return a.client.SetVocalsMuted(ctx, true)
	})
}

func (a *VirtualDJAdapter) UnmuteVocals(ctx context.Context) error {
	return a.breaker.Execute(ctx, func() error {
		return a.client.SetVocalsMuted(ctx, false)
	})
}

func (a *VirtualDJAdapter) Close(ctx context.Context) error {
	return nil
}
