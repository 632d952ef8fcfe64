package domain

import "encoding/json"

// Event is one row of the append-only behavioral log. Payload carries
// the full client event verbatim; the other columns are extracted for
// indexed aggregation.
type Event struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Type      string          `json:"type"`
	TrackID   string          `json:"track_id,omitempty"`
	TS        int64           `json:"ts"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Well-known event types. Unknown types are stored as sent.
const (
	EventLike       = "like"
	EventNope       = "nope"
	EventSkip       = "skip"
	EventDislike    = "dislike"
	EventImpression = "impression"
	EventStart      = "start"
)

// StoredTrack is the persisted track metadata row keyed by track_id.
type StoredTrack struct {
	TrackID    string `json:"track_id"`
	Title      string `json:"title,omitempty"`
	Artist     string `json:"artist,omitempty"`
	Album      string `json:"album,omitempty"`
	ArtURL     string `json:"art_url,omitempty"`
	StoreURL   string `json:"store_url,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// TrackSignals is the per-track aggregate the recommender scores:
// the user's own counts over the lookback window plus global popularity.
type TrackSignals struct {
	TrackID      string
	Likes        int64
	Nopes        int64
	Skips        int64
	MsPlayed     int64
	LastTS       int64
	GlobalEvents int64
	GlobalLikes  int64
}

type RecTrack struct {
	TrackID string  `json:"track_id"`
	Score   float64 `json:"score"`
}

// TrackPerf is one row of the 7-day performance rollup joined with
// track metadata.
type TrackPerf struct {
	TrackID      string  `json:"track_id"`
	Title        string  `json:"title,omitempty"`
	Artist       string  `json:"artist,omitempty"`
	Album        string  `json:"album,omitempty"`
	ArtURL       string  `json:"art_url,omitempty"`
	Impressions  int64   `json:"impressions"`
	Starts       int64   `json:"starts"`
	Likes        int64   `json:"likes"`
	Nopes        int64   `json:"nopes"`
	MsPlayed     int64   `json:"ms_played"`
	StartRate    float64 `json:"start_rate"`
	LikeRate     float64 `json:"like_rate"`
	NopeRate     float64 `json:"nope_rate"`
	AvgPlayRatio float64 `json:"avg_play_ratio"`
	Score        float64 `json:"score"`
}

// BackfillReport summarizes one metadata backfill pass.
type BackfillReport struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Missed  int `json:"missed"`
}
