package services

import (
	"context"
	"fmt"

	"github.com/pocketbase/pocketbase/core"

	"karaoke-live/models"
)

// Archiver persists terminalized queue entries as durable history. The live
// queue lives in Redis; once an entry completes or is skipped it is copied
// into the performances collection so it survives queue cleanup and feeds
// the venue's performance history pages.
type Archiver interface {
	Archive(ctx context.Context, entry *models.QueueEntry) error
}

type PerformanceArchive struct {
	app core.App
}

func NewPerformanceArchive(app core.App) *PerformanceArchive {
	return &PerformanceArchive{app: app}
}

var _ Archiver = (*PerformanceArchive)(nil)

func (a *PerformanceArchive) Archive(ctx context.Context, entry *models.QueueEntry) error {
	collection, err := a.app.FindCollectionByNameOrId("performances")
	if err != nil {
		return fmt.Errorf("Archive: find collection: %w", err)
	}

	record := core.NewRecord(collection)
	record.Set("entry_id", entry.ID)
	record.Set("venue", entry.VenueID)
	record.Set("singer", entry.UserID)
	record.Set("singer_name", entry.SingerName)
	record.Set("title", entry.Title)
	record.Set("artist", entry.Artist)
	record.Set("status", entry.Status)
	record.Set("position", entry.Position)
	record.Set("requested_at", entry.RequestedAt)
	record.Set("completed_at", entry.CompletedAt)

	if err := a.app.Save(record); err != nil {
		return fmt.Errorf("Archive: save record: %w", err)
	}
	return nil
}
