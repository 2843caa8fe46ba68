package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"karaoke-live/config"
	"karaoke-live/internal/services/deck"
	"karaoke-live/internal/status"
	"karaoke-live/models"
	"karaoke-live/monitoring"
)

// BridgeManager owns the per-venue deck bridges. Connect and disconnect are
// explicit operator actions; nothing here survives a restart.
type BridgeManager struct {
	store       Store
	queue       bridgeQueue
	feed        *ChangeFeed
	broadcaster Broadcaster
	monitor     *monitoring.Monitor
	factory     deck.ControllerFactory

	pollInterval time.Duration

	mu      sync.Mutex
	bridges map[string]*DeckBridge
}

func NewBridgeManager(store Store, queue bridgeQueue, feed *ChangeFeed, broadcaster Broadcaster, monitor *monitoring.Monitor, factory deck.ControllerFactory, cfg *config.Config) *BridgeManager {
	return &BridgeManager{
		store:        store,
		queue:        queue,
		feed:         feed,
		broadcaster:  broadcaster,
		monitor:      monitor,
		factory:      factory,
		pollInterval: cfg.DeckPollInterval,
		bridges:      make(map[string]*DeckBridge),
	}
}

// ConnectRequest carries the operator's connect parameters.
type ConnectRequest struct {
	VenueID        string
	Provider       deck.Provider
	Config         interface{}
	AutoAdvance    bool
	AutoMuteVocals bool
}

// Connect probes the deck and starts the poll loop. An existing bridge for
// the venue is torn down first; reconnecting always starts from a clean
// session.
func (m *BridgeManager) Connect(ctx context.Context, req ConnectRequest) (*models.DeckSession, error) {
	controller, err := m.factory.CreateController(ctx, req.Provider, req.Config)
	if err != nil {
		return nil, fmt.Errorf("Connect: create controller: %w", err)
	}

	res, err := controller.TestConnection(ctx)
	if err != nil {
		return nil, fmt.Errorf("Connect: test connection: %w", err)
	}
	if !res.Connected {
		return nil, fmt.Errorf("%w: %s", status.ErrDeckDisconnected, res.Message)
	}

	if err := m.Disconnect(ctx, req.VenueID); err != nil && err != status.ErrDeckNotConnected {
		log.Printf("Connect: replace bridge for venue %s: %v", req.VenueID, err)
	}

	bridge := &DeckBridge{
		venueID:      req.VenueID,
		controller:   controller,
		store:        m.store,
		queue:        m.queue,
		feed:         m.feed,
		broadcaster:  m.broadcaster,
		monitor:      m.monitor,
		pollInterval: m.pollInterval,
		session: models.DeckSession{
			VenueID:        req.VenueID,
			Provider:       string(req.Provider),
			Connected:      true,
			Version:        res.Version,
			AutoAdvance:    req.AutoAdvance,
			AutoMuteVocals: req.AutoMuteVocals,
			ConnectedAt:    time.Now().UTC(),
		},
		stopChan: make(chan struct{}),
	}
	bridge.start()

	m.mu.Lock()
	m.bridges[req.VenueID] = bridge
	m.mu.Unlock()

	session := bridge.Session()
	return &session, nil
}

// Disconnect stops the venue's bridge and drops its session.
func (m *BridgeManager) Disconnect(ctx context.Context, venueID string) error {
	m.mu.Lock()
	bridge, ok := m.bridges[venueID]
	if ok {
		delete(m.bridges, venueID)
	}
	m.mu.Unlock()

	if !ok {
		return status.ErrDeckNotConnected
	}

	bridge.stop()
	if err := bridge.controller.Close(ctx); err != nil {
		log.Printf("Disconnect: close controller for venue %s: %v", venueID, err)
	}
	return nil
}

// Bridge returns the venue's bridge for manual deck actions.
func (m *BridgeManager) Bridge(venueID string) (*DeckBridge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bridge, ok := m.bridges[venueID]
	if !ok {
		return nil, status.ErrDeckNotConnected
	}
	return bridge, nil
}

// Status reports the venue's deck session. A bridge that lost its deck
// stays registered with Connected false until the operator reconnects or
// disconnects, so the error remains visible.
func (m *BridgeManager) Status(venueID string) (*models.DeckSession, error) {
	bridge, err := m.Bridge(venueID)
	if err != nil {
		return nil, err
	}
	session := bridge.Session()
	return &session, nil
}

// Shutdown stops every bridge.
func (m *BridgeManager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	bridges := make([]*DeckBridge, 0, len(m.bridges))
	for _, b := range m.bridges {
		bridges = append(bridges, b)
	}
	m.bridges = make(map[string]*DeckBridge)
	m.mu.Unlock()

	for _, b := range bridges {
		b.stop()
		if err := b.controller.Close(ctx); err != nil {
			log.Printf("Shutdown: close controller for venue %s: %v", b.venueID, err)
		}
	}
}
