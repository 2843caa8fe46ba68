package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"karaoke-live/internal/services/deck"
	"karaoke-live/internal/status"
	"karaoke-live/models"
	"karaoke-live/monitoring"
)

// bridgeQueue is the slice of the queue service a bridge is allowed to
// drive. It only ever completes the performing entry.
type bridgeQueue interface {
	CompleteFromBridge(ctx context.Context, entryID string) error
}

// DeckBridge couples one venue's queue to the deck controller software on
// the operator's machine. It polls the deck, loads the performing singer's
// track, completes entries when the track plays out and mirrors the deck
// state to the venue display channel. All session state is ephemeral and
// lost on disconnect.
type DeckBridge struct {
	venueID    string
	controller deck.Controller

	store       Store
	queue       bridgeQueue
	feed        *ChangeFeed
	broadcaster Broadcaster
	monitor     *monitoring.Monitor

	pollInterval time.Duration

	mu            sync.Mutex
	session       models.DeckSession
	loadedEntryID string
	loadAttemptID string
	loadAttempts  int

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func (b *DeckBridge) start() {
	b.wg.Add(1)
	go b.run()
}

func (b *DeckBridge) run() {
	defer b.wg.Done()

	var events <-chan models.QueueEvent
	if b.feed != nil {
		ch, cancel := b.feed.Subscribe(b.venueID)
		defer cancel()
		events = ch
	}

	ticker := time.NewTicker(b.pollInterval)
	defer ticker.Stop()

	log.Printf("deck bridge for venue %s started", b.venueID)

	for {
		select {
		case <-ticker.C:
			if !b.pollOnce(context.Background()) {
				return
			}
		case _, ok := <-events:
			// A queue change means the performing entry may have moved;
			// re-poll immediately instead of waiting out the tick.
			if !ok {
				events = nil
				continue
			}
			if !b.pollOnce(context.Background()) {
				return
			}
		case <-b.stopChan:
			log.Printf("deck bridge for venue %s stopping", b.venueID)
			return
		}
	}
}

// pollOnce runs one bridge cycle. It returns false when the deck went
// unreachable and the loop must stop; reconnecting is a manual operator
// action from there.
func (b *DeckBridge) pollOnce(ctx context.Context) bool {
	np, err := b.controller.GetNowPlaying(ctx)
	if err != nil {
		return b.handleUnreachable(ctx, err)
	}
	b.trackPoll(pollResult(np))

	entries, err := b.store.ListActive(ctx, b.venueID)
	if err != nil {
		log.Printf("deck bridge: list active for venue %s: %v", b.venueID, err)
		return true
	}
	singing := NowSinging(entries)

	b.mu.Lock()
	b.session.NowPlaying = np
	b.session.LastError = ""
	autoAdvance := b.session.AutoAdvance
	autoMute := b.session.AutoMuteVocals
	loaded := b.loadedEntryID
	b.mu.Unlock()

	if singing != nil && autoAdvance {
		if loaded != singing.ID {
			// Freshly advanced entry: load it. Finish detection must not
			// run this tick, the now-playing snapshot still describes the
			// previous track.
			b.loadEntry(ctx, singing, autoMute)
		} else if np.Finished() {
			b.finishEntry(ctx, singing.ID)
		}
	}

	b.broadcast(ctx, np, singing)
	return true
}

// maxLoadAttempts caps search retries per entry. A track absent from the
// deck's library stays unloaded for the operator to handle manually instead
// of hitting the deck every tick.
const maxLoadAttempts = 3

// loadEntry pushes the performing singer's track onto the deck. The loaded
// marker only moves on success so a failed search retries next tick, up to
// the attempt cap.
func (b *DeckBridge) loadEntry(ctx context.Context, singing *models.QueueEntry, autoMute bool) {
	b.mu.Lock()
	if b.loadAttemptID != singing.ID {
		b.loadAttemptID = singing.ID
		b.loadAttempts = 0
	}
	if b.loadAttempts >= maxLoadAttempts {
		b.mu.Unlock()
		return
	}
	b.loadAttempts++
	b.mu.Unlock()

	if err := b.controller.SearchAndLoad(ctx, singing.Title, singing.Artist); err != nil {
		log.Printf("deck bridge: load %q for venue %s: %v", singing.Title, b.venueID, err)
		b.setLastError(fmt.Sprintf("load %q: %v", singing.Title, err))
		return
	}

	b.mu.Lock()
	b.loadedEntryID = singing.ID
	b.mu.Unlock()

	if autoMute {
		if err := b.controller.MuteVocals(ctx); err != nil {
			log.Printf("deck bridge: mute vocals for venue %s: %v", b.venueID, err)
			return
		}
		b.mu.Lock()
		b.session.VocalsRemoved = true
		b.mu.Unlock()
	}
}

// finishEntry completes the played-out entry and resets per-track state.
// The completion is a conditional transition, so racing an operator's
// manual complete is harmless.
func (b *DeckBridge) finishEntry(ctx context.Context, entryID string) {
	if err := b.queue.CompleteFromBridge(ctx, entryID); err != nil {
		log.Printf("deck bridge: complete entry %s: %v", entryID, err)
		return
	}

	b.clearTrackState(ctx)
}

func (b *DeckBridge) clearTrackState(ctx context.Context) {
	b.mu.Lock()
	wasMuted := b.session.VocalsRemoved
	b.session.VocalsRemoved = false
	b.loadedEntryID = ""
	b.mu.Unlock()

	if wasMuted {
		if err := b.controller.UnmuteVocals(ctx); err != nil {
			log.Printf("deck bridge: unmute vocals for venue %s: %v", b.venueID, err)
		}
	}
}

func (b *DeckBridge) handleUnreachable(ctx context.Context, pollErr error) bool {
	b.trackPoll("unreachable")

	res, err := b.controller.TestConnection(ctx)
	if err == nil && res.Connected {
		// Transient failure, the deck answered the probe. Keep going.
		return true
	}

	b.mu.Lock()
	b.session.Connected = false
	b.session.NowPlaying = nil
	b.session.LastError = pollErr.Error()
	b.mu.Unlock()

	log.Printf("deck bridge: venue %s deck unreachable, stopping: %v", b.venueID, pollErr)
	return false
}

func (b *DeckBridge) broadcast(ctx context.Context, np *models.NowPlaying, singing *models.QueueEntry) {
	if b.broadcaster == nil {
		return
	}

	payload := models.DisplayPayload{NowPlaying: np}
	if singing != nil {
		payload.Singer = singing.SingerName
	}
	b.mu.Lock()
	payload.VocalsRemoved = b.session.VocalsRemoved
	b.mu.Unlock()

	b.broadcaster.BroadcastDisplay(ctx, b.venueID, payload)
}

// SkipCurrent is the operator's manual skip: it completes the performing
// entry without waiting for end-of-track detection.
func (b *DeckBridge) SkipCurrent(ctx context.Context) error {
	if !b.Connected() {
		return status.ErrDeckDisconnected
	}

	entries, err := b.store.ListActive(ctx, b.venueID)
	if err != nil {
		return err
	}
	singing := NowSinging(entries)
	if singing == nil {
		return status.ErrEntryNotFound
	}

	if err := b.queue.CompleteFromBridge(ctx, singing.ID); err != nil {
		return err
	}
	b.clearTrackState(ctx)
	return nil
}

// ToggleVocals flips the multiplex vocal channel and returns the new
// removed state.
func (b *DeckBridge) ToggleVocals(ctx context.Context) (bool, error) {
	if !b.Connected() {
		return false, status.ErrDeckDisconnected
	}

	b.mu.Lock()
	muted := b.session.VocalsRemoved
	b.mu.Unlock()

	if muted {
		if err := b.controller.UnmuteVocals(ctx); err != nil {
			return muted, err
		}
	} else {
		if err := b.controller.MuteVocals(ctx); err != nil {
			return muted, err
		}
	}

	b.mu.Lock()
	b.session.VocalsRemoved = !muted
	now := b.session.VocalsRemoved
	b.mu.Unlock()
	return now, nil
}

// Session returns a snapshot of the bridge's ephemeral state.
func (b *DeckBridge) Session() models.DeckSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

func (b *DeckBridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.Connected
}

func (b *DeckBridge) setLastError(msg string) {
	b.mu.Lock()
	b.session.LastError = msg
	b.mu.Unlock()
}

func (b *DeckBridge) trackPoll(result string) {
	if b.monitor != nil {
		b.monitor.TrackDeckPoll(b.venueID, result)
	}
}

func (b *DeckBridge) stop() {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()
}

func pollResult(np *models.NowPlaying) string {
	if np == nil {
		return "empty"
	}
	return "ok"
}
