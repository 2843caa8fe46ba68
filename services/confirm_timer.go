package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"karaoke-live/config"
	"karaoke-live/models"
	"karaoke-live/monitoring"
)

type expiredSkipper interface {
	SkipExpired(ctx context.Context, entryID string) error
}

// ConfirmTimer is the server-owned confirmation countdown: one scanner for
// all venues instead of a timer per browser session. A waiting entry whose
// ahead count reaches zero gets a deadline; if the singer neither confirms
// nor cancels before it passes, the entry is auto-skipped. The skip is a
// compare-and-swap from waiting, so a duplicate firing (or an operator
// racing the timer) collapses into a no-op.
type ConfirmTimer struct {
	store   Store
	queue   expiredSkipper
	monitor *monitoring.Monitor

	timeout  time.Duration
	interval time.Duration

	// listVenues and now are swappable for tests.
	listVenues func(ctx context.Context) ([]string, error)
	now        func() time.Time

	mu      sync.Mutex
	tracked map[string]headTracking

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// headTracking pins down when an entry first reached the head of its
// venue's line. The moment is recorded once and never reset by re-scans;
// only the entry leaving the head set clears it.
type headTracking struct {
	venueID      string
	becameNextAt time.Time
}

func NewConfirmTimer(store Store, queue expiredSkipper, redisClient *redis.Client, monitor *monitoring.Monitor, cfg *config.Config) *ConfirmTimer {
	return &ConfirmTimer{
		store:    store,
		queue:    queue,
		monitor:  monitor,
		timeout:  cfg.ConfirmationTimeout,
		interval: cfg.QueueScanInterval,
		listVenues: func(ctx context.Context) ([]string, error) {
			return redisClient.SMembers(ctx, activeVenuesKey).Result()
		},
		now:      time.Now,
		tracked:  make(map[string]headTracking),
		stopChan: make(chan struct{}),
	}
}

func (c *ConfirmTimer) Start() {
	c.wg.Add(1)
	go c.run()
}

func (c *ConfirmTimer) run() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log.Println("Confirmation timer started")

	for {
		select {
		case <-ticker.C:
			c.Tick(context.Background())
		case <-c.stopChan:
			log.Println("Confirmation timer stopping")
			return
		}
	}
}

// Tick runs one scan across all venues with live queues.
func (c *ConfirmTimer) Tick(ctx context.Context) {
	venues, err := c.listVenues(ctx)
	if err != nil {
		log.Printf("confirm timer: list venues: %v", err)
		return
	}

	for _, venueID := range venues {
		c.scanVenue(ctx, venueID)
	}
}

func (c *ConfirmTimer) scanVenue(ctx context.Context, venueID string) {
	entries, err := c.store.ListActive(ctx, venueID)
	if err != nil {
		log.Printf("confirm timer: list active for venue %s: %v", venueID, err)
		return
	}

	atHead := make(map[string]struct{})
	for _, e := range entries {
		if e.Status == models.StatusWaiting && AheadCount(entries, e) == 0 {
			atHead[e.ID] = struct{}{}
		}
	}

	now := c.now()
	var expired []string

	c.mu.Lock()
	for id, t := range c.tracked {
		if t.venueID != venueID {
			continue
		}
		if _, ok := atHead[id]; !ok {
			// Confirmed, cancelled or otherwise moved on.
			delete(c.tracked, id)
		}
	}
	for id := range atHead {
		if _, ok := c.tracked[id]; !ok {
			c.tracked[id] = headTracking{venueID: venueID, becameNextAt: now}
		}
	}
	for id, t := range c.tracked {
		if t.venueID != venueID {
			continue
		}
		if now.Sub(t.becameNextAt) >= c.timeout {
			expired = append(expired, id)
			delete(c.tracked, id)
		}
	}
	c.mu.Unlock()

	for _, id := range expired {
		if err := c.queue.SkipExpired(ctx, id); err != nil {
			log.Printf("confirm timer: skip entry %s: %v", id, err)
			continue
		}
		log.Printf("confirm timer: entry %s skipped after %s without confirmation", id, c.timeout)
		if c.monitor != nil {
			c.monitor.TrackConfirmationTimeout(venueID)
		}
	}
}

// Remaining reports the seconds left on an entry's countdown, or -1 when no
// countdown is running for it.
func (c *ConfirmTimer) Remaining(entryID string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tracked[entryID]
	if !ok {
		return -1
	}
	left := c.timeout - c.now().Sub(t.becameNextAt)
	if left < 0 {
		return 0
	}
	return left.Seconds()
}

// Shutdown stops the scanner and waits for it to drain.
func (c *ConfirmTimer) Shutdown() {
	close(c.stopChan)

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Println("Timeout waiting for confirmation timer to stop")
	}
}
