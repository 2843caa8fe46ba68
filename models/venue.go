package models

// Venue mirrors the fields of the venues collection the queue core cares
// about. Full venue CRUD (profiles, listings, promotions) stays in the
// PocketBase collections and admin UI.
type Venue struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	OperatorID  string `json:"operator_id"`
	Status      string `json:"status"`
	QueuePaused bool   `json:"queue_paused"`
}

const (
	VenueStatusActive   = "active"
	VenueStatusInactive = "inactive"
)
