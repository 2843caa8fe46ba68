package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	pubnub "github.com/pubnub/go/v7"

	"karaoke-live/models"
)

// Broadcaster pushes the display payload for a venue. The bridge publishes
// on every poll tick, changed or not, so displays converge on the truth
// within one poll interval even after dropping messages.
type Broadcaster interface {
	BroadcastDisplay(ctx context.Context, venueID string, payload models.DisplayPayload)
}

type PubNubBroadcaster struct {
	pn *pubnub.PubNub
}

func NewPubNubBroadcaster(pn *pubnub.PubNub) *PubNubBroadcaster {
	return &PubNubBroadcaster{pn: pn}
}

var _ Broadcaster = (*PubNubBroadcaster)(nil)

func displayChannel(venueID string) string {
	return fmt.Sprintf("display-%s", venueID)
}

// BroadcastDisplay is fire and forget: the next tick re-publishes anyway.
func (b *PubNubBroadcaster) BroadcastDisplay(ctx context.Context, venueID string, payload models.DisplayPayload) {
	if b.pn == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("broadcast: marshal display payload: %v", err)
		return
	}

	b.pn.Publish().
		Channel(displayChannel(venueID)).
		Message(string(data)).
		Execute()
}
