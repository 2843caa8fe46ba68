package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karaoke-live/models"
)

type recordingSkipper struct {
	mu      sync.Mutex
	skipped []string
}

func (r *recordingSkipper) SkipExpired(ctx context.Context, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, entryID)
	return nil
}

func (r *recordingSkipper) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.skipped...)
}

func setupConfirmTimer(store Store, skipper expiredSkipper, venues []string) (*ConfirmTimer, *time.Time) {
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)
	clock := &now

	timer := &ConfirmTimer{
		store:    store,
		queue:    skipper,
		timeout:  300 * time.Second,
		interval: time.Second,
		listVenues: func(ctx context.Context) ([]string, error) {
			return venues, nil
		},
		now:      func() time.Time { return *clock },
		tracked:  make(map[string]headTracking),
		stopChan: make(chan struct{}),
	}
	return timer, clock
}

func TestConfirmTimer_SkipsAfterTimeout(t *testing.T) {
	store := newFakeStore()
	store.seed(models.QueueEntry{ID: "e1", VenueID: "v1", UserID: "u1", Title: "Africa", Status: models.StatusWaiting, Position: 1})

	skipper := &recordingSkipper{}
	timer, clock := setupConfirmTimer(store, skipper, []string{"v1"})
	ctx := context.Background()

	// First scan starts the countdown, nothing expires.
	timer.Tick(ctx)
	assert.Empty(t, skipper.calls())
	assert.InDelta(t, 300, timer.Remaining("e1"), 0.01)

	// Just short of the deadline: still counting.
	*clock = clock.Add(299 * time.Second)
	timer.Tick(ctx)
	assert.Empty(t, skipper.calls())

	// Deadline reached: one skip, then the tracking is gone.
	*clock = clock.Add(time.Second)
	timer.Tick(ctx)
	require.Equal(t, []string{"e1"}, skipper.calls())
	assert.Equal(t, float64(-1), timer.Remaining("e1"))
}

func TestConfirmTimer_FiresOnlyOnce(t *testing.T) {
	store := newFakeStore()
	store.seed(models.QueueEntry{ID: "e1", VenueID: "v1", UserID: "u1", Title: "Africa", Status: models.StatusWaiting, Position: 1})

	skipper := &recordingSkipper{}
	timer, clock := setupConfirmTimer(store, skipper, []string{"v1"})
	ctx := context.Background()

	timer.Tick(ctx)
	*clock = clock.Add(301 * time.Second)
	timer.Tick(ctx)
	require.Len(t, skipper.calls(), 1)

	// The entry is still at the head (the fake skipper does not mutate the
	// store), so the next scan re-tracks it with a fresh deadline instead
	// of firing again.
	timer.Tick(ctx)
	assert.Len(t, skipper.calls(), 1)
	assert.InDelta(t, 300, timer.Remaining("e1"), 0.01)
}

func TestConfirmTimer_ConfirmStopsCountdown(t *testing.T) {
	store := newFakeStore()
	store.seed(models.QueueEntry{ID: "e1", VenueID: "v1", UserID: "u1", Title: "Africa", Status: models.StatusWaiting, Position: 1})

	skipper := &recordingSkipper{}
	timer, clock := setupConfirmTimer(store, skipper, []string{"v1"})
	ctx := context.Background()

	timer.Tick(ctx)
	require.GreaterOrEqual(t, timer.Remaining("e1"), float64(0))

	// The singer confirms: the entry leaves the waiting head set.
	_, err := store.Transition(ctx, "e1", models.StatusWaiting, models.StatusUpNext)
	require.NoError(t, err)

	*clock = clock.Add(301 * time.Second)
	timer.Tick(ctx)
	assert.Empty(t, skipper.calls())
	assert.Equal(t, float64(-1), timer.Remaining("e1"))
}

func TestConfirmTimer_CountdownNotResetByRescan(t *testing.T) {
	store := newFakeStore()
	store.seed(models.QueueEntry{ID: "e1", VenueID: "v1", UserID: "u1", Title: "Africa", Status: models.StatusWaiting, Position: 1})

	skipper := &recordingSkipper{}
	timer, clock := setupConfirmTimer(store, skipper, []string{"v1"})
	ctx := context.Background()

	timer.Tick(ctx)
	*clock = clock.Add(100 * time.Second)
	timer.Tick(ctx)

	// Re-scans must not push the deadline out.
	assert.InDelta(t, 200, timer.Remaining("e1"), 0.01)
}

func TestConfirmTimer_OnlyHeadEntriesTracked(t *testing.T) {
	store := newFakeStore()
	store.seed(models.QueueEntry{ID: "e1", VenueID: "v1", UserID: "u1", Title: "Africa", Status: models.StatusWaiting, Position: 1})
	store.seed(models.QueueEntry{ID: "e2", VenueID: "v1", UserID: "u2", Title: "Creep", Status: models.StatusWaiting, Position: 2})

	skipper := &recordingSkipper{}
	timer, clock := setupConfirmTimer(store, skipper, []string{"v1"})
	ctx := context.Background()

	timer.Tick(ctx)
	assert.GreaterOrEqual(t, timer.Remaining("e1"), float64(0))
	assert.Equal(t, float64(-1), timer.Remaining("e2"))

	*clock = clock.Add(301 * time.Second)
	timer.Tick(ctx)
	assert.Equal(t, []string{"e1"}, skipper.calls())
}

func TestConfirmTimer_VenuesIsolated(t *testing.T) {
	store := newFakeStore()
	store.seed(models.QueueEntry{ID: "e1", VenueID: "v1", UserID: "u1", Title: "Africa", Status: models.StatusWaiting, Position: 1})
	store.seed(models.QueueEntry{ID: "e2", VenueID: "v2", UserID: "u2", Title: "Creep", Status: models.StatusWaiting, Position: 1})

	skipper := &recordingSkipper{}
	timer, clock := setupConfirmTimer(store, skipper, []string{"v1", "v2"})
	ctx := context.Background()

	timer.Tick(ctx)
	*clock = clock.Add(301 * time.Second)
	timer.Tick(ctx)

	assert.ElementsMatch(t, []string{"e1", "e2"}, skipper.calls())
}
