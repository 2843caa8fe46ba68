package deck

import (
	"context"
	"fmt"

	"karaoke-live/internal/services/deck/openkj"
	"karaoke-live/internal/services/deck/virtualdj"
)

// Factory implements ControllerFactory
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// CreateController creates a deck controller based on provider type and
// configuration
func (f *Factory) CreateController(ctx context.Context, provider Provider, config interface{}) (Controller, error) {
	switch provider {
	case ProviderOpenKJ:
		cfg, ok := config.(*openkj.Config)
		if !ok {
			return nil, fmt.Errorf("invalid OpenKJ config type, expected *openkj.Config")
		}
		return NewOpenKJAdapter(ctx, cfg)

	case ProviderVirtualDJ:
		cfg, ok := config.(*virtualdj.Config)
		if !ok {
			return nil, fmt.Errorf("invalid VirtualDJ config type, expected *virtualdj.Config")
		}
		return NewVirtualDJAdapter(ctx, cfg)

	default:
		return nil, fmt.Errorf("unsupported deck provider: %s", provider)
	}
}

// GetSupportedProviders returns list of supported deck providers
func (f *Factory) GetSupportedProviders() []Provider {
	return []Provider{
		ProviderOpenKJ,
		ProviderVirtualDJ,
	}
}
