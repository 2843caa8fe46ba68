package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"karaoke-live/internal/status"
	"karaoke-live/models"
	"karaoke-live/monitoring"
)

// SubmitLimiter caps how fast one singer can file requests.
type SubmitLimiter interface {
	AllowSubmission(ctx context.Context, userID string) (bool, error)
}

// QueueService orchestrates the song queue: validation, duplicate checks,
// the status transitions each actor is allowed to trigger, change feed
// publication and history archiving. The store does the atomic work; this
// layer decides who may ask for it.
type QueueService struct {
	Store   Store
	Redis   *redis.Client
	feed    *ChangeFeed
	archive Archiver
	limiter SubmitLimiter
	monitor *monitoring.Monitor
}

func NewQueueService(store Store, redisClient *redis.Client, feed *ChangeFeed, archive Archiver, limiter SubmitLimiter, monitor *monitoring.Monitor) *QueueService {
	return &QueueService{
		Store:   store,
		Redis:   redisClient,
		feed:    feed,
		archive: archive,
		limiter: limiter,
		monitor: monitor,
	}
}

type SubmitRequest struct {
	VenueID    string
	UserID     string
	SingerName string
	Title      string
	Artist     string
	Override   bool
}

// Submit validates and inserts a new song request. A matching active title
// returns a DuplicateSongError unless Override is set; the check-then-insert
// pair is deliberately not atomic, two singers racing the same title both
// get in and both perform.
func (s *QueueService) Submit(ctx context.Context, req SubmitRequest) (*models.QueueEntry, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, status.ErrEmptyTitle
	}

	if s.Redis != nil {
		paused, err := s.Redis.Exists(ctx, pausedKey(req.VenueID)).Result()
		if err != nil {
			log.Printf("Submit: paused check for venue %s: %v", req.VenueID, err)
		} else if paused > 0 {
			return nil, status.ErrQueuePaused
		}
	}

	if s.limiter != nil {
		allowed, err := s.limiter.AllowSubmission(ctx, req.UserID)
		if err != nil {
			log.Printf("Submit: rate limit check for user %s: %v", req.UserID, err)
		} else if !allowed {
			return nil, status.ErrRateLimited
		}
	}

	if !req.Override {
		entries, err := s.Store.ListActive(ctx, req.VenueID)
		if err != nil {
			return nil, err
		}
		if dup := FindActiveDuplicate(entries, title); dup != nil {
			return nil, &status.DuplicateSongError{
				EntryID: dup.ID,
				Title:   dup.Title,
				Singer:  dup.SingerName,
			}
		}
	}

	entry, err := s.Store.Submit(ctx, req.VenueID, req.UserID, req.SingerName, title, strings.TrimSpace(req.Artist))
	if err != nil {
		s.track("submit", req.VenueID, "error")
		return nil, err
	}

	s.publish(ctx, models.QueueEvent{
		Type:    models.EventEntryInserted,
		VenueID: entry.VenueID,
		EntryID: entry.ID,
		To:      entry.Status,
	})
	s.track("submit", req.VenueID, "success")

	return entry, nil
}

// Confirm moves the singer's own head-of-line entry from waiting to up_next.
func (s *QueueService) Confirm(ctx context.Context, entryID, userID string) (*models.QueueEntry, error) {
	entry, err := s.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, status.ErrNotOwner
	}

	entries, err := s.Store.ListActive(ctx, entry.VenueID)
	if err != nil {
		return nil, err
	}
	if AheadCount(entries, *entry) > 0 {
		return nil, status.ErrNotAtHead
	}

	return s.transition(ctx, entryID, models.StatusWaiting, models.StatusUpNext, "singer")
}

// Cancel terminalizes the singer's own entry. Cancelling an entry that is
// already terminal succeeds: the desired end state is reached.
func (s *QueueService) Cancel(ctx context.Context, entryID, userID string) (*models.QueueEntry, error) {
	entry, err := s.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, status.ErrNotOwner
	}
	if entry.IsTerminal() {
		return entry, nil
	}
	if entry.Status == models.StatusNowSinging {
		return nil, status.ErrTransitionConflict
	}

	updated, err := s.transition(ctx, entryID, entry.Status, models.StatusSkipped, "singer")
	if errors.Is(err, status.ErrTransitionConflict) {
		// Lost a race; if some other actor already terminalized the entry
		// the cancel is effectively done.
		current, getErr := s.Store.GetEntry(ctx, entryID)
		if getErr == nil && current.IsTerminal() {
			return current, nil
		}
		return nil, err
	}
	return updated, err
}

// SelfComplete lets the performing singer report their own song as done.
func (s *QueueService) SelfComplete(ctx context.Context, entryID, userID string) (*models.QueueEntry, error) {
	entry, err := s.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.UserID != userID {
		return nil, status.ErrNotOwner
	}
	return s.transition(ctx, entryID, models.StatusNowSinging, models.StatusCompleted, "singer")
}

// Advance moves the confirmed entry on stage (operator or bridge).
func (s *QueueService) Advance(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	entry, err := s.transition(ctx, entryID, models.StatusUpNext, models.StatusNowSinging, "operator")
	if err != nil {
		return nil, err
	}
	if s.monitor != nil && !entry.RequestedAt.IsZero() {
		s.monitor.ObserveWaitTime(entry.VenueID, time.Since(entry.RequestedAt))
	}
	return entry, nil
}

// Complete marks the performing entry done (operator action).
func (s *QueueService) Complete(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	return s.transition(ctx, entryID, models.StatusNowSinging, models.StatusCompleted, "operator")
}

// OperatorSkip drops an entry at any point in its life. The performing
// entry counts as completed (the manual skip path of the bridge); queued
// entries become skipped. Skipping a terminal entry is a no-op.
func (s *QueueService) OperatorSkip(ctx context.Context, entryID string) (*models.QueueEntry, error) {
	entry, err := s.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	switch entry.Status {
	case models.StatusCompleted, models.StatusSkipped:
		return entry, nil
	case models.StatusNowSinging:
		return s.transition(ctx, entryID, models.StatusNowSinging, models.StatusCompleted, "operator")
	default:
		return s.transition(ctx, entryID, entry.Status, models.StatusSkipped, "operator")
	}
}

// SkipExpired is the confirmation timer's transition. Conflicts are
// swallowed: if the entry already moved on, the timeout is moot.
func (s *QueueService) SkipExpired(ctx context.Context, entryID string) error {
	_, err := s.transition(ctx, entryID, models.StatusWaiting, models.StatusSkipped, "timer")
	if errors.Is(err, status.ErrTransitionConflict) || errors.Is(err, status.ErrEntryNotFound) {
		return nil
	}
	return err
}

// CompleteFromBridge is the deck bridge's end-of-track transition.
// Conflicts are swallowed the same way.
func (s *QueueService) CompleteFromBridge(ctx context.Context, entryID string) error {
	_, err := s.transition(ctx, entryID, models.StatusNowSinging, models.StatusCompleted, "bridge")
	if errors.Is(err, status.ErrTransitionConflict) || errors.Is(err, status.ErrEntryNotFound) {
		return nil
	}
	return err
}

// VenueView builds the projected queue for one viewer. An empty viewerID
// returns the anonymous display view.
func (s *QueueService) VenueView(ctx context.Context, venueID, viewerID string) (*models.QueueView, error) {
	entries, err := s.Store.ListActive(ctx, venueID)
	if err != nil {
		return nil, err
	}
	return ProjectView(venueID, entries, viewerID), nil
}

// IsPaused reports whether the venue's queue is closed to submissions.
func (s *QueueService) IsPaused(ctx context.Context, venueID string) (bool, error) {
	n, err := s.Redis.Exists(ctx, pausedKey(venueID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PauseQueue stops accepting submissions for the venue.
func (s *QueueService) PauseQueue(ctx context.Context, venueID string) error {
	return s.Redis.Set(ctx, pausedKey(venueID), "1", 0).Err()
}

// ResumeQueue reopens submissions for the venue.
func (s *QueueService) ResumeQueue(ctx context.Context, venueID string) error {
	return s.Redis.Del(ctx, pausedKey(venueID)).Err()
}

// transition runs the conditional status update and fans out the side
// effects shared by every trigger: feed event, metrics, history archive.
func (s *QueueService) transition(ctx context.Context, entryID, from, to, trigger string) (*models.QueueEntry, error) {
	entry, err := s.Store.Transition(ctx, entryID, from, to)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, models.QueueEvent{
		Type:    models.EventStatusChanged,
		VenueID: entry.VenueID,
		EntryID: entry.ID,
		From:    from,
		To:      to,
	})
	if s.monitor != nil {
		s.monitor.TrackTransition(from, to, trigger)
	}

	if entry.IsTerminal() && s.archive != nil {
		if err := s.archive.Archive(ctx, entry); err != nil {
			log.Printf("transition: archive entry %s: %v", entry.ID, err)
		}
	}

	return entry, nil
}

func (s *QueueService) publish(ctx context.Context, ev models.QueueEvent) {
	if s.feed != nil {
		s.feed.Publish(ctx, ev)
	}
}

func (s *QueueService) track(op, venueID, result string) {
	if s.monitor != nil {
		s.monitor.TrackQueueOperation(op, venueID, result)
	}
}
