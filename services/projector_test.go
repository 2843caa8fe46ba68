package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karaoke-live/models"
)

func sampleEntries() []models.QueueEntry {
	return []models.QueueEntry{
		{ID: "e1", VenueID: "v1", UserID: "u1", Title: "Africa", Status: models.StatusNowSinging, Position: 1},
		{ID: "e2", VenueID: "v1", UserID: "u2", Title: "Dancing Queen", Status: models.StatusUpNext, Position: 2},
		{ID: "e4", VenueID: "v1", UserID: "u1", Title: "Creep", Status: models.StatusWaiting, Position: 4},
		{ID: "e3", VenueID: "v1", UserID: "u3", Title: "Wonderwall", Status: models.StatusWaiting, Position: 3},
	}
}

func TestProjector_NowSingingAndUpNext(t *testing.T) {
	entries := sampleEntries()

	singing := NowSinging(entries)
	require.NotNil(t, singing)
	assert.Equal(t, "e1", singing.ID)

	next := UpNext(entries)
	require.NotNil(t, next)
	assert.Equal(t, "e2", next.ID)

	assert.Nil(t, NowSinging(nil))
	assert.Nil(t, UpNext(nil))
}

func TestProjector_WaitingOrderedByPosition(t *testing.T) {
	waiting := Waiting(sampleEntries())

	require.Len(t, waiting, 2)
	assert.Equal(t, "e3", waiting[0].ID)
	assert.Equal(t, "e4", waiting[1].ID)
}

func TestProjector_AheadCount(t *testing.T) {
	entries := sampleEntries()

	// e3 has up_next e2 ahead; the performing e1 does not count.
	e3 := entries[3]
	assert.Equal(t, 1, AheadCount(entries, e3))

	// e4 has e2 and e3 ahead.
	e4 := entries[2]
	assert.Equal(t, 2, AheadCount(entries, e4))

	// The up_next entry itself has nothing ahead.
	e2 := entries[1]
	assert.Equal(t, 0, AheadCount(entries, e2))
}

func TestProjector_AheadCountIgnoresTerminal(t *testing.T) {
	entries := []models.QueueEntry{
		{ID: "e1", Status: models.StatusSkipped, Position: 1},
		{ID: "e2", Status: models.StatusCompleted, Position: 2},
		{ID: "e3", Status: models.StatusWaiting, Position: 3},
	}

	assert.Equal(t, 0, AheadCount(entries, entries[2]))
}

func TestProjector_ViewerEntries(t *testing.T) {
	entries := sampleEntries()

	mine := ViewerEntries(entries, "u1")
	require.Len(t, mine, 2)
	assert.Equal(t, "e1", mine[0].Entry.ID)
	assert.Equal(t, "e4", mine[1].Entry.ID)
	assert.Equal(t, 2, mine[1].AheadCount)

	assert.Empty(t, ViewerEntries(entries, "nobody"))
}

func TestProjector_FindActiveDuplicate(t *testing.T) {
	entries := sampleEntries()

	dup := FindActiveDuplicate(entries, "wonderwall")
	require.NotNil(t, dup)
	assert.Equal(t, "e3", dup.ID)

	assert.Nil(t, FindActiveDuplicate(entries, "Bohemian Rhapsody"))

	// Terminal entries never count as duplicates.
	terminal := []models.QueueEntry{
		{ID: "e9", Title: "Wonderwall", Status: models.StatusCompleted, Position: 1},
	}
	assert.Nil(t, FindActiveDuplicate(terminal, "Wonderwall"))
}

func TestProjector_ProjectView(t *testing.T) {
	view := ProjectView("v1", sampleEntries(), "u1")

	assert.Equal(t, "v1", view.VenueID)
	require.NotNil(t, view.NowSinging)
	require.NotNil(t, view.UpNext)
	assert.Len(t, view.Waiting, 2)
	assert.Len(t, view.Mine, 2)

	anonymous := ProjectView("v1", sampleEntries(), "")
	assert.Empty(t, anonymous.Mine)
}
