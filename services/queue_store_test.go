package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karaoke-live/internal/status"
	"karaoke-live/models"
)

func setupTestStore() (*QueueStore, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()

	store := &QueueStore{
		Redis: db,
		now:   func() time.Time { return time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC) },
		newID: func() (string, error) { return "ENTRY123", nil },
	}
	return store, mock
}

func TestQueueStore_Submit(t *testing.T) {
	store, mock := setupTestStore()
	defer mock.ClearExpect()

	mock.ExpectEval(submitScript, []string{
		"queue:seq:v1",
		"entry:ENTRY123",
		"queue:active:v1",
		"active_venues",
	}, "ENTRY123", "v1", "u1", "Alex", "Africa", "Toto",
		"2025-06-01T20:00:00Z").SetVal(int64(7))

	entry, err := store.Submit(context.Background(), "v1", "u1", "Alex", "Africa", "Toto")
	require.NoError(t, err)

	assert.Equal(t, "ENTRY123", entry.ID)
	assert.Equal(t, models.StatusWaiting, entry.Status)
	assert.Equal(t, 7, entry.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueStore_Transition_OK(t *testing.T) {
	store, mock := setupTestStore()
	defer mock.ClearExpect()

	mock.ExpectEval(transitionScript, []string{"entry:e1"},
		"waiting", "up_next", "").SetVal([]interface{}{"ok", "waiting"})
	mock.ExpectHGetAll("entry:e1").SetVal(map[string]string{
		"id":           "e1",
		"venue":        "v1",
		"user":         "u1",
		"singer_name":  "Alex",
		"title":        "Africa",
		"artist":       "Toto",
		"status":       "up_next",
		"position":     "7",
		"requested_at": "2025-06-01T19:55:00Z",
		"completed_at": "",
	})

	entry, err := store.Transition(context.Background(), "e1", models.StatusWaiting, models.StatusUpNext)
	require.NoError(t, err)

	assert.Equal(t, models.StatusUpNext, entry.Status)
	assert.Equal(t, 7, entry.Position)
	assert.True(t, entry.CompletedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueStore_Transition_TerminalStampsCompletedAt(t *testing.T) {
	store, mock := setupTestStore()
	defer mock.ClearExpect()

	mock.ExpectEval(transitionScript, []string{"entry:e1"},
		"waiting", "skipped", "2025-06-01T20:00:00Z").SetVal([]interface{}{"ok", "waiting"})
	mock.ExpectHGetAll("entry:e1").SetVal(map[string]string{
		"id":           "e1",
		"venue":        "v1",
		"user":         "u1",
		"singer_name":  "Alex",
		"title":        "Africa",
		"artist":       "",
		"status":       "skipped",
		"position":     "7",
		"requested_at": "2025-06-01T19:55:00Z",
		"completed_at": "2025-06-01T20:00:00Z",
	})

	entry, err := store.Transition(context.Background(), "e1", models.StatusWaiting, models.StatusSkipped)
	require.NoError(t, err)

	assert.Equal(t, models.StatusSkipped, entry.Status)
	assert.Equal(t, time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC), entry.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueStore_Transition_Conflict(t *testing.T) {
	store, mock := setupTestStore()
	defer mock.ClearExpect()

	mock.ExpectEval(transitionScript, []string{"entry:e1"},
		"waiting", "up_next", "").SetVal([]interface{}{"conflict", "skipped"})

	_, err := store.Transition(context.Background(), "e1", models.StatusWaiting, models.StatusUpNext)
	assert.ErrorIs(t, err, status.ErrTransitionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueStore_Transition_Occupied(t *testing.T) {
	store, mock := setupTestStore()
	defer mock.ClearExpect()

	mock.ExpectEval(transitionScript, []string{"entry:e1"},
		"up_next", "now_singing", "").SetVal([]interface{}{"occupied", "other-entry"})

	_, err := store.Transition(context.Background(), "e1", models.StatusUpNext, models.StatusNowSinging)
	assert.ErrorIs(t, err, status.ErrTransitionConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueStore_Transition_Missing(t *testing.T) {
	store, mock := setupTestStore()
	defer mock.ClearExpect()

	mock.ExpectEval(transitionScript, []string{"entry:gone"},
		"waiting", "skipped", "2025-06-01T20:00:00Z").SetVal([]interface{}{"missing", ""})

	_, err := store.Transition(context.Background(), "gone", models.StatusWaiting, models.StatusSkipped)
	assert.ErrorIs(t, err, status.ErrEntryNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueStore_Transition_IllegalEdgeRejectedLocally(t *testing.T) {
	store, mock := setupTestStore()
	defer mock.ClearExpect()

	// No Redis expectation: the state machine rejects the edge before any
	// network call.
	_, err := store.Transition(context.Background(), "e1", models.StatusCompleted, models.StatusWaiting)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueStore_GetEntry_NotFound(t *testing.T) {
	store, mock := setupTestStore()
	defer mock.ClearExpect()

	mock.ExpectHGetAll("entry:gone").SetVal(map[string]string{})

	_, err := store.GetEntry(context.Background(), "gone")
	assert.ErrorIs(t, err, status.ErrEntryNotFound)
}

func TestQueueStore_ListActive_SkipsTerminal(t *testing.T) {
	store, mock := setupTestStore()
	defer mock.ClearExpect()

	mock.ExpectZRange("queue:active:v1", 0, -1).SetVal([]string{"e1", "e2"})
	mock.ExpectHGetAll("entry:e1").SetVal(map[string]string{
		"id": "e1", "venue": "v1", "user": "u1", "singer_name": "Alex",
		"title": "Africa", "artist": "", "status": "waiting",
		"position": "1", "requested_at": "", "completed_at": "",
	})
	// e2 terminalized between the ZRANGE and the read.
	mock.ExpectHGetAll("entry:e2").SetVal(map[string]string{
		"id": "e2", "venue": "v1", "user": "u2", "singer_name": "Sam",
		"title": "Creep", "artist": "", "status": "skipped",
		"position": "2", "requested_at": "", "completed_at": "2025-06-01T20:00:00Z",
	})

	entries, err := store.ListActive(context.Background(), "v1")
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, "e1", entries[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
