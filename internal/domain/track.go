package domain

import "strings"

// Track is an ephemeral search candidate, normalized across providers.
// It lives for the duration of one request and is never persisted as-is.
type Track struct {
	Title       string            `json:"title"`
	Artist      string            `json:"artist"`
	Album       string            `json:"album"`
	AlbumArtURL string            `json:"albumArtUrl,omitempty"`
	PreviewURL  string            `json:"previewUrl,omitempty"`
	StoreURL    string            `json:"storeUrl,omitempty"`
	Source      string            `json:"source"`
	SourceID    string            `json:"sourceId,omitempty"`
	IDs         map[string]string `json:"ids,omitempty"`
	Links       map[string]string `json:"links,omitempty"`
	ISRC        string            `json:"isrc,omitempty"`
	Score       float64           `json:"score,omitempty"`
}

// Playable reports whether the track carries an in-app audio preview.
func (t Track) Playable() bool {
	return strings.TrimSpace(t.PreviewURL) != ""
}

// LikeKey is the identifier under which like/dislike signals are stored
// for this track: the preview URL when present, otherwise a lowercase
// artist|title|album composite.
func (t Track) LikeKey() string {
	if t.PreviewURL != "" {
		return t.PreviewURL
	}
	return strings.ToLower(t.Artist + "|" + t.Title + "|" + t.Album)
}

// RankingProfile carries per-user ranking signals sent with a search request.
type RankingProfile struct {
	RecentArtists  []string           `json:"recentArtists,omitempty"`
	RecentAlbums   []string           `json:"recentAlbums,omitempty"`
	Likes          map[string]int     `json:"likes,omitempty"`
	ArtistAffinity map[string]float64 `json:"artistAffinity,omitempty"`
}

// Weights are the tunable multipliers applied by the scorer. All are
// request-overridable; zero values are replaced with the defaults.
type Weights struct {
	ArtistPenalty  float64 `json:"artistPenalty"`
	AlbumPenalty   float64 `json:"albumPenalty"`
	LikeBoost      float64 `json:"likeBoost"`
	DislikePenalty float64 `json:"dislikePenalty"`
}

func DefaultWeights() Weights {
	return Weights{
		ArtistPenalty:  0.5,
		AlbumPenalty:   0.35,
		LikeBoost:      1.2,
		DislikePenalty: 0.4,
	}
}

// NormalizeWeights fills zero fields with defaults and clamps penalties
// into [0, 1] so a hostile override cannot produce negative scores.
func NormalizeWeights(w Weights) Weights {
	defaults := DefaultWeights()
	clamp01 := func(value, fallback float64) float64 {
		if value <= 0 {
			return fallback
		}
		if value > 1 {
			return 1
		}
		return value
	}
	w.ArtistPenalty = clamp01(w.ArtistPenalty, defaults.ArtistPenalty)
	w.AlbumPenalty = clamp01(w.AlbumPenalty, defaults.AlbumPenalty)
	if w.LikeBoost <= 0 {
		w.LikeBoost = defaults.LikeBoost
	}
	if w.LikeBoost > 5 {
		w.LikeBoost = 5
	}
	w.DislikePenalty = clamp01(w.DislikePenalty, defaults.DislikePenalty)
	return w
}

const (
	// AffinityFloor and AffinityCeil bound the multiplicative effect of
	// a single artist-affinity entry on a candidate's score.
	AffinityFloor = -0.4
	AffinityCeil  = 0.6
)

const DefaultMarket = "US"

// itunesCountries is the set of storefronts the iTunes Search API
// accepts from us; anything else falls back to US.
var itunesCountries = map[string]struct{}{
	"US": {}, "GB": {}, "DE": {}, "FR": {}, "CA": {}, "AU": {},
	"MX": {}, "BR": {}, "ES": {}, "IT": {}, "SE": {}, "NL": {},
}

func NormalizeMarket(raw string) string {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return DefaultMarket
	}
	return value
}

// ITunesCountry maps a market code onto an allow-listed iTunes storefront.
func ITunesCountry(market string) string {
	value := NormalizeMarket(market)
	if _, ok := itunesCountries[value]; ok {
		return value
	}
	return DefaultMarket
}
