package domain

import "strings"

// SourcePref selects which provider tier a ranked search consults first.
type SourcePref string

const (
	SourcePrefITunes  SourcePref = "itunes"
	SourcePrefSpotify SourcePref = "spotify"
	SourcePrefAuto    SourcePref = "auto"
)

func NormalizeSourcePref(raw string) SourcePref {
	switch SourcePref(strings.ToLower(strings.TrimSpace(raw))) {
	case SourcePrefSpotify:
		return SourcePrefSpotify
	case SourcePrefITunes:
		return SourcePrefITunes
	default:
		return SourcePrefAuto
	}
}

// SearchRequest is the normalized input to a ranked or federated search.
type SearchRequest struct {
	Query        string
	Limit        int
	Market       string
	Source       SourcePref
	PlayableOnly bool
	Profile      RankingProfile
	Weights      Weights
	NoCache      bool
}

// ProviderQuery is what the aggregator hands each adapter. Limit is the
// over-fetched candidate budget, not the client-facing result count.
type ProviderQuery struct {
	Query   string
	Limit   int
	Market  string
	GenreID string
}

type ProviderInfo struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Kind        string `json:"kind"`
	Enabled     bool   `json:"enabled"`
	RequiresKey bool   `json:"requiresKey,omitempty"`
}

type ProviderStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

type ProviderDiagnostics struct {
	Name                string `json:"name"`
	Label               string `json:"label"`
	Kind                string `json:"kind"`
	Enabled             bool   `json:"enabled"`
	ConsecutiveFailures int    `json:"consecutiveFailures"`
	BlockedUntilMS      int64  `json:"blockedUntilMs,omitempty"`
	LastError           string `json:"lastError,omitempty"`
	LastLatencyMS       int64  `json:"lastLatencyMs,omitempty"`
	LastTimeout         bool   `json:"lastTimeout,omitempty"`
	TotalRequests       int64  `json:"totalRequests,omitempty"`
	TotalFailures       int64  `json:"totalFailures,omitempty"`
}

// SearchResponse is the wire shape returned by the search endpoints.
// Source names the adapter that produced the top-ranked item.
type SearchResponse struct {
	OK        bool             `json:"ok"`
	Query     string           `json:"query"`
	Source    string           `json:"source,omitempty"`
	Items     []Track          `json:"items"`
	Providers []ProviderStatus `json:"providers,omitempty"`
	ElapsedMS int64            `json:"elapsedMs"`
}

// PreviewQuery identifies a track for preview-URL resolution. At least
// one of Title, Artist or ISRC must be set.
type PreviewQuery struct {
	Title  string
	Artist string
	Album  string
	ISRC   string
}

type PreviewResult struct {
	URL    string `json:"url"`
	Source string `json:"source"`
	Format string `json:"format"`
}

// Genre is one node of the flattened iTunes music genre tree.
type Genre struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Path  []string `json:"path"`
	Label string   `json:"label"`
}
