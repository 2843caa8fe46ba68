package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/apis"

	"karaoke-live/internal/status"
)

// apiError maps domain errors onto API responses. Conflicts from direct
// user actions come back as 409 so clients can refresh and retry.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrEntryNotFound):
		return apis.NewNotFoundError("Entry not found", err)

	case errors.Is(err, status.ErrNotOwner):
		return apis.NewForbiddenError("You can only manage your own requests", err)

	case errors.Is(err, status.ErrEmptyTitle):
		return apis.NewBadRequestError("Song title must not be empty", err)

	case errors.Is(err, status.ErrQueuePaused):
		return apis.NewBadRequestError("The queue is paused, try again later", err)

	case errors.Is(err, status.ErrNotAtHead):
		return apis.NewApiError(http.StatusConflict, "You are not at the head of the line yet", err)

	case errors.Is(err, status.ErrTransitionConflict):
		return apis.NewApiError(http.StatusConflict, "The entry changed under you, refresh and retry", err)

	case errors.Is(err, status.ErrRateLimited):
		return apis.NewApiError(http.StatusTooManyRequests, "Too many submissions, slow down", err)

	case errors.Is(err, status.ErrDeckNotConnected):
		return apis.NewNotFoundError("No deck controller connected for this venue", err)

	case errors.Is(err, status.ErrDeckDisconnected):
		return apis.NewApiError(http.StatusConflict, "Deck controller is unreachable", err)

	default:
		return apis.NewApiError(http.StatusInternalServerError, "Something went wrong", err)
	}
}
