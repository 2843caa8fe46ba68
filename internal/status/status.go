package status

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTitle rejects submissions without a song title.
	ErrEmptyTitle = errors.New("queue: song title must not be empty")

	// ErrQueuePaused rejects submissions while the venue's queue is paused.
	ErrQueuePaused = errors.New("queue: queue is paused for this venue")

	// ErrTransitionConflict means a conditional status update found the
	// entry in a different status than expected. Automated callers (timer,
	// bridge) treat it as success: some other actor already moved the entry.
	ErrTransitionConflict = errors.New("queue: transition precondition failed")

	// ErrEntryNotFound means the entry id resolves to nothing.
	ErrEntryNotFound = errors.New("queue: entry not found")

	// ErrNotAtHead rejects a confirm for an entry that still has active
	// entries ahead of it.
	ErrNotAtHead = errors.New("queue: entry is not at the head of the line")

	// ErrRateLimited rejects a submission that exceeded the per-user rate.
	ErrRateLimited = errors.New("queue: too many submissions, slow down")

	// ErrNotOwner rejects singer actions on somebody else's entry.
	ErrNotOwner = errors.New("queue: entry belongs to another singer")

	// ErrDeckDisconnected means the deck controller bridge lost its
	// control-plane connection. Reconnecting is a manual operator action.
	ErrDeckDisconnected = errors.New("deck: controller disconnected")

	// ErrDeckNotConnected means no bridge exists for the venue.
	ErrDeckNotConnected = errors.New("deck: no controller connected for venue")
)

// DuplicateSongError is a warning, not a hard failure: an active entry with
// the same title already exists and the singer must explicitly override.
type DuplicateSongError struct {
	EntryID string
	Title   string
	Singer  string
}

func (e *DuplicateSongError) Error() string {
	return fmt.Sprintf("queue: %q is already in the queue (entry %s)", e.Title, e.EntryID)
}

// IsDuplicate reports whether err is a duplicate song warning.
func IsDuplicate(err error) bool {
	var d *DuplicateSongError
	return errors.As(err, &d)
}
