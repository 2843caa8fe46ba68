package services

import (
	"sort"
	"strings"

	"karaoke-live/models"
)

// Projector derives per-viewer queue views from the raw entry set. Every
// function here is a pure function of its arguments, safe to recompute on
// every change feed signal.

// NowSinging returns the venue's currently performing entry, if any.
func NowSinging(entries []models.QueueEntry) *models.QueueEntry {
	return findByStatus(entries, models.StatusNowSinging)
}

// UpNext returns the confirmed next entry, if any.
func UpNext(entries []models.QueueEntry) *models.QueueEntry {
	return findByStatus(entries, models.StatusUpNext)
}

// Waiting returns the waiting entries ordered by position ascending.
func Waiting(entries []models.QueueEntry) []models.QueueEntry {
	waiting := make([]models.QueueEntry, 0, len(entries))
	for _, e := range entries {
		if e.Status == models.StatusWaiting {
			waiting = append(waiting, e)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		return waiting[i].Position < waiting[j].Position
	})
	return waiting
}

// AheadCount counts the entries queued before the given entry that still
// have to perform: smaller position, status not now_singing or terminal.
func AheadCount(entries []models.QueueEntry, entry models.QueueEntry) int {
	count := 0
	for _, e := range entries {
		if e.Position >= entry.Position {
			continue
		}
		switch e.Status {
		case models.StatusNowSinging, models.StatusCompleted, models.StatusSkipped:
			continue
		}
		count++
	}
	return count
}

// ViewerEntries returns the viewer's own non-terminal entries with their
// ahead counts, ordered by position ascending.
func ViewerEntries(entries []models.QueueEntry, userID string) []models.ViewerEntry {
	mine := make([]models.ViewerEntry, 0)
	for _, e := range entries {
		if e.UserID != userID || e.IsTerminal() {
			continue
		}
		mine = append(mine, models.ViewerEntry{
			Entry:      e,
			AheadCount: AheadCount(entries, e),
		})
	}
	sort.Slice(mine, func(i, j int) bool {
		return mine[i].Entry.Position < mine[j].Entry.Position
	})
	return mine
}

// FindActiveDuplicate returns the first active entry whose title matches
// case-insensitively, or nil.
func FindActiveDuplicate(entries []models.QueueEntry, title string) *models.QueueEntry {
	for i := range entries {
		if entries[i].IsActive() && strings.EqualFold(entries[i].Title, title) {
			return &entries[i]
		}
	}
	return nil
}

// ProjectView assembles the venue view for one viewer. An empty viewerID
// produces the anonymous (display) view.
func ProjectView(venueID string, entries []models.QueueEntry, viewerID string) *models.QueueView {
	view := &models.QueueView{
		VenueID:    venueID,
		NowSinging: NowSinging(entries),
		UpNext:     UpNext(entries),
		Waiting:    Waiting(entries),
	}
	if viewerID != "" {
		view.Mine = ViewerEntries(entries, viewerID)
	}
	return view
}

func findByStatus(entries []models.QueueEntry, status string) *models.QueueEntry {
	for i := range entries {
		if entries[i].Status == status {
			e := entries[i]
			return &e
		}
	}
	return nil
}
