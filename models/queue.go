package models

import (
	"time"
)

// Queue entry statuses. An entry only ever moves forward:
// waiting -> up_next -> now_singing -> completed, with skipped reachable
// from waiting and up_next (cancel or confirmation timeout).
const (
	StatusWaiting    = "waiting"
	StatusUpNext     = "up_next"
	StatusNowSinging = "now_singing"
	StatusCompleted  = "completed"
	StatusSkipped    = "skipped"
)

type QueueEntry struct {
	ID          string    `json:"id"`
	VenueID     string    `json:"venue_id"`
	UserID      string    `json:"user_id"`
	SingerName  string    `json:"singer_name"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Status      string    `json:"status"`
	Position    int       `json:"position"`
	RequestedAt time.Time `json:"requested_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// IsTerminal reports whether the entry reached a final status.
func (e *QueueEntry) IsTerminal() bool {
	return IsTerminalStatus(e.Status)
}

// IsActive reports whether the entry still occupies the queue.
func (e *QueueEntry) IsActive() bool {
	return !e.IsTerminal()
}

func IsTerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusSkipped
}

// validTransitions is the queue state machine. Keys are "from" statuses,
// values the statuses reachable from them.
var validTransitions = map[string][]string{
	StatusWaiting:    {StatusUpNext, StatusSkipped},
	StatusUpNext:     {StatusNowSinging, StatusSkipped},
	StatusNowSinging: {StatusCompleted},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to string) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// QueueEventType identifies a change feed event.
type QueueEventType string

const (
	EventEntryInserted QueueEventType = "entry_inserted"
	EventStatusChanged QueueEventType = "status_changed"
)

// QueueEvent is the typed change feed payload published for every queue
// mutation. Consumers holding a projected view re-read the active set on
// receipt; the From/To fields let cheap consumers filter without a re-read.
type QueueEvent struct {
	Type    QueueEventType `json:"type"`
	VenueID string         `json:"venue_id"`
	EntryID string         `json:"entry_id"`
	From    string         `json:"from,omitempty"`
	To      string         `json:"to,omitempty"`
	Origin  string         `json:"origin,omitempty"`
	At      time.Time      `json:"at"`
}

// QueueView is the projected state of one venue's queue.
type QueueView struct {
	VenueID    string        `json:"venue_id"`
	NowSinging *QueueEntry   `json:"now_singing"`
	UpNext     *QueueEntry   `json:"up_next"`
	Waiting    []QueueEntry  `json:"waiting"`
	Mine       []ViewerEntry `json:"mine,omitempty"`
}

// ViewerEntry is one of the requesting viewer's own entries together with
// its ahead count.
type ViewerEntry struct {
	Entry      QueueEntry `json:"entry"`
	AheadCount int        `json:"ahead_count"`
}
