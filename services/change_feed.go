package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	pubnub "github.com/pubnub/go/v7"

	"karaoke-live/models"
	"karaoke-live/utils"
)

// ChangeFeed is the per-venue typed event stream. Every queue mutation is
// published to local subscribers (projector loops, deck bridges) and to the
// venue's PubNub channel, where client apps and sibling server instances
// pick it up. The feed also listens on PubNub so events published by another
// instance reach this instance's local subscribers; its own events are
// recognized by origin id and dropped.
type ChangeFeed struct {
	pn     *pubnub.PubNub
	origin string

	mu     sync.RWMutex
	subs   map[string]map[int]chan models.QueueEvent
	nextID int

	listener *pubnub.Listener
}

func NewChangeFeed(pn *pubnub.PubNub) *ChangeFeed {
	origin, _ := utils.GenerateCode(6)
	return &ChangeFeed{
		pn:     pn,
		origin: origin,
		subs:   make(map[string]map[int]chan models.QueueEvent),
	}
}

func venueChannel(venueID string) string {
	return fmt.Sprintf("venue-%s", venueID)
}

// Publish dispatches the event to local subscribers and mirrors it to the
// venue's PubNub channel. Fire and forget: a slow local subscriber drops the
// event and re-reads on the next one, and PubNub errors are ignored.
func (f *ChangeFeed) Publish(ctx context.Context, ev models.QueueEvent) {
	ev.Origin = f.origin
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	f.dispatch(ev)

	if f.pn == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("change feed: marshal event: %v", err)
		return
	}
	f.pn.Publish().
		Channel(venueChannel(ev.VenueID)).
		Message(string(data)).
		Execute()
}

// Subscribe registers a local subscriber for one venue. The returned cancel
// function must be called on teardown; it closes the channel.
func (f *ChangeFeed) Subscribe(venueID string) (<-chan models.QueueEvent, func()) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++

	ch := make(chan models.QueueEvent, 16)
	first := len(f.subs[venueID]) == 0
	if f.subs[venueID] == nil {
		f.subs[venueID] = make(map[int]chan models.QueueEvent)
	}
	f.subs[venueID][id] = ch
	f.mu.Unlock()

	if first && f.pn != nil {
		f.pn.Subscribe().Channels([]string{venueChannel(venueID)}).Execute()
	}

	cancel := func() {
		f.mu.Lock()
		if sub, ok := f.subs[venueID][id]; ok {
			delete(f.subs[venueID], id)
			close(sub)
		}
		last := len(f.subs[venueID]) == 0
		if last {
			delete(f.subs, venueID)
		}
		f.mu.Unlock()

		if last && f.pn != nil {
			f.pn.Unsubscribe().Channels([]string{venueChannel(venueID)}).Execute()
		}
	}
	return ch, cancel
}

// StartRemoteListener wires the PubNub listener that re-delivers events
// published by other server instances. No-op without a PubNub client.
func (f *ChangeFeed) StartRemoteListener(ctx context.Context) {
	if f.pn == nil {
		return
	}

	f.listener = pubnub.NewListener()
	f.pn.AddListener(f.listener)

	go f.processSubscription(ctx)
}

func (f *ChangeFeed) processSubscription(ctx context.Context) {
	for {
		select {
		case st := <-f.listener.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				log.Println("change feed: connected to pubnub")

			case pubnub.PNReconnectedCategory:
				log.Println("change feed: reconnected to pubnub")

			case pubnub.PNDisconnectedCategory:
				log.Println("change feed: disconnected from pubnub")

			default:
				log.Printf("change feed: pubnub status category %v", st.Category)
			}

		case message := <-f.listener.Message:
			raw, ok := message.Message.(string)
			if !ok {
				continue
			}

			var ev models.QueueEvent
			dec := json.NewDecoder(strings.NewReader(raw))
			if err := dec.Decode(&ev); err != nil {
				log.Printf("change feed: decode remote event: %v", err)
				continue
			}

			// Our own publishes come back on the subscription; skip them.
			if ev.Origin == f.origin {
				continue
			}
			f.dispatch(ev)

		case <-ctx.Done():
			log.Println("change feed: listener stopped")
			return
		}
	}
}

func (f *ChangeFeed) dispatch(ev models.QueueEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, ch := range f.subs[ev.VenueID] {
		select {
		case ch <- ev:
		default:
			// Subscriber is behind; it re-reads on the next event anyway.
		}
	}
}
