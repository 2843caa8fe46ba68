package models

import "time"

// NowPlaying is the deck controller's report of the loaded track. Position
// and Length are seconds. A track counts as finished once Position >= Length
// with a positive Length.
type NowPlaying struct {
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Position  float64 `json:"position"`
	Length    float64 `json:"length"`
	IsPlaying bool    `json:"is_playing"`
}

// Finished reports whether the deck played the track to the end.
func (np *NowPlaying) Finished() bool {
	return np != nil && np.Length > 0 && np.Position >= np.Length
}

// DeckSession is the ephemeral per-venue bridge state. It is rebuilt from
// scratch on every connect and never persisted.
type DeckSession struct {
	VenueID        string      `json:"venue_id"`
	Provider       string      `json:"provider"`
	Connected      bool        `json:"connected"`
	Version        string      `json:"version,omitempty"`
	NowPlaying     *NowPlaying `json:"now_playing"`
	VocalsRemoved  bool        `json:"vocals_removed"`
	AutoAdvance    bool        `json:"auto_advance"`
	AutoMuteVocals bool        `json:"auto_mute_vocals"`
	LastError      string      `json:"last_error,omitempty"`
	ConnectedAt    time.Time   `json:"connected_at,omitempty"`
}

// DisplayPayload is broadcast to the venue display channel on every bridge
// poll tick, changed or not.
type DisplayPayload struct {
	NowPlaying    *NowPlaying `json:"now_playing"`
	Singer        string      `json:"singer,omitempty"`
	VocalsRemoved bool        `json:"vocals_removed"`
}
