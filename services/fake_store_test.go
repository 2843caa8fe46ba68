package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"karaoke-live/internal/status"
	"karaoke-live/models"
)

// fakeStore mirrors the Redis store's semantics in memory: per-venue
// position sequence, compare-and-swap transitions, single up_next and
// now_singing holder, completed_at stamped once.
type fakeStore struct {
	mu      sync.Mutex
	seq     map[string]int
	entries map[string]*models.QueueEntry
	nextID  int
	now     func() time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		seq:     make(map[string]int),
		entries: make(map[string]*models.QueueEntry),
		now:     func() time.Time { return time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC) },
	}
}

var _ Store = (*fakeStore)(nil)

func (f *fakeStore) Submit(ctx context.Context, venueID, userID, singerName, title, artist string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq[venueID]++
	f.nextID++

	entry := &models.QueueEntry{
		ID:          fmt.Sprintf("entry-%d", f.nextID),
		VenueID:     venueID,
		UserID:      userID,
		SingerName:  singerName,
		Title:       title,
		Artist:      artist,
		Status:      models.StatusWaiting,
		Position:    f.seq[venueID],
		RequestedAt: f.now(),
	}
	f.entries[entry.ID] = entry

	copied := *entry
	return &copied, nil
}

func (f *fakeStore) Transition(ctx context.Context, entryID, expectedFrom, to string) (*models.QueueEntry, error) {
	if !models.CanTransition(expectedFrom, to) {
		return nil, fmt.Errorf("Transition: illegal transition %s -> %s", expectedFrom, to)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.entries[entryID]
	if !ok {
		return nil, status.ErrEntryNotFound
	}
	if entry.Status != expectedFrom {
		return nil, status.ErrTransitionConflict
	}

	if to == models.StatusUpNext || to == models.StatusNowSinging {
		for _, other := range f.entries {
			if other.VenueID == entry.VenueID && other.ID != entry.ID && other.Status == to {
				return nil, status.ErrTransitionConflict
			}
		}
	}

	entry.Status = to
	if models.IsTerminalStatus(to) && entry.CompletedAt.IsZero() {
		entry.CompletedAt = f.now()
	}

	copied := *entry
	return &copied, nil
}

func (f *fakeStore) ListActive(ctx context.Context, venueID string) ([]models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	active := make([]models.QueueEntry, 0)
	for _, entry := range f.entries {
		if entry.VenueID == venueID && !entry.IsTerminal() {
			active = append(active, *entry)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].Position < active[j].Position
	})
	return active, nil
}

func (f *fakeStore) GetEntry(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.entries[entryID]
	if !ok {
		return nil, status.ErrEntryNotFound
	}
	copied := *entry
	return &copied, nil
}

// seed places an entry directly, bypassing submit.
func (f *fakeStore) seed(entry models.QueueEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := entry
	f.entries[entry.ID] = &copied
	if entry.Position > f.seq[entry.VenueID] {
		f.seq[entry.VenueID] = entry.Position
	}
}
