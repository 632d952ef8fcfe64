// Package itunes adapts the iTunes Search, Lookup and RSS Top Songs
// APIs. No credentials are required.
package itunes

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tuneflip/searchservice/internal/domain"
	"tuneflip/searchservice/internal/providers/common"
)

const (
	defaultSearchEndpoint = "https://itunes.apple.com/search"
	defaultLookupEndpoint = "https://itunes.apple.com/lookup"
	defaultRSSBase        = "https://itunes.apple.com"
	defaultUserAgent      = "tuneflip-search/1.0"
)

type Config struct {
	SearchEndpoint string
	LookupEndpoint string
	RSSBase        string
	GenresEndpoint string
	UserAgent      string
	Client         *http.Client
}

type Provider struct {
	client         *http.Client
	searchEndpoint string
	lookupEndpoint string
	rssBase        string
	genresEndpoint string
	userAgent      string
}

type searchResponse struct {
	ResultCount int          `json:"resultCount"`
	Results     []resultItem `json:"results"`
}

type resultItem struct {
	TrackID           int64  `json:"trackId"`
	CollectionID      int64  `json:"collectionId"`
	TrackName         string `json:"trackName"`
	ArtistName        string `json:"artistName"`
	CollectionName    string `json:"collectionName"`
	ArtworkURL100     string `json:"artworkUrl100"`
	ArtworkURL60      string `json:"artworkUrl60"`
	PreviewURL        string `json:"previewUrl"`
	TrackViewURL      string `json:"trackViewUrl"`
	CollectionViewURL string `json:"collectionViewUrl"`
}

func NewProvider(cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	p := &Provider{
		client:         client,
		searchEndpoint: strings.TrimSpace(cfg.SearchEndpoint),
		lookupEndpoint: strings.TrimSpace(cfg.LookupEndpoint),
		rssBase:        strings.TrimRight(strings.TrimSpace(cfg.RSSBase), "/"),
		genresEndpoint: strings.TrimSpace(cfg.GenresEndpoint),
		userAgent:      strings.TrimSpace(cfg.UserAgent),
	}
	if p.searchEndpoint == "" {
		p.searchEndpoint = defaultSearchEndpoint
	}
	if p.lookupEndpoint == "" {
		p.lookupEndpoint = defaultLookupEndpoint
	}
	if p.rssBase == "" {
		p.rssBase = defaultRSSBase
	}
	if p.genresEndpoint == "" {
		p.genresEndpoint = defaultGenresEndpoint
	}
	if p.userAgent == "" {
		p.userAgent = defaultUserAgent
	}
	return p
}

func (p *Provider) Name() string { return "itunes" }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    p.Name(),
		Label:   "iTunes Search",
		Kind:    "catalog",
		Enabled: true,
	}
}

// Search queries the Search API. When the query is empty but a genre is
// set, it falls back to the RSS Top Songs chart for that genre.
func (p *Provider) Search(ctx context.Context, query domain.ProviderQuery) ([]domain.Track, error) {
	term := strings.TrimSpace(query.Query)
	if term == "" && query.GenreID != "" {
		return p.topSongs(ctx, query)
	}

	params := url.Values{}
	params.Set("media", "music")
	params.Set("entity", "song")
	params.Set("country", domain.ITunesCountry(query.Market))
	params.Set("limit", strconv.Itoa(clampLimit(query.Limit, 200)))
	if term != "" {
		params.Set("term", term)
	}
	if query.GenreID != "" {
		params.Set("genreId", query.GenreID)
	}

	var payload searchResponse
	if err := common.FetchJSON(ctx, p.client, p.searchEndpoint+"?"+params.Encode(), p.userAgent, &payload); err != nil {
		return nil, err
	}

	tracks := make([]domain.Track, 0, len(payload.Results))
	for _, item := range payload.Results {
		tracks = append(tracks, p.toTrack(item))
	}
	return tracks, nil
}

// Lookup fetches track metadata by iTunes track id. Used by the
// backfill task to repair sparse rows in the tracks table.
func (p *Provider) Lookup(ctx context.Context, trackID string) (domain.Track, bool, error) {
	id := strings.TrimSpace(trackID)
	if id == "" {
		return domain.Track{}, false, nil
	}
	params := url.Values{}
	params.Set("id", id)
	params.Set("entity", "song")

	var payload searchResponse
	if err := common.FetchJSON(ctx, p.client, p.lookupEndpoint+"?"+params.Encode(), p.userAgent, &payload); err != nil {
		return domain.Track{}, false, err
	}
	for _, item := range payload.Results {
		if item.TrackName == "" {
			continue
		}
		return p.toTrack(item), true, nil
	}
	return domain.Track{}, false, nil
}

// FindPreview is the last hop in the preview fallback chain.
func (p *Provider) FindPreview(ctx context.Context, query domain.PreviewQuery) (domain.PreviewResult, error) {
	term := strings.TrimSpace(query.Artist + " " + query.Title)
	if term == "" {
		return domain.PreviewResult{}, nil
	}
	tracks, err := p.Search(ctx, domain.ProviderQuery{Query: term, Limit: 5})
	if err != nil {
		return domain.PreviewResult{}, err
	}
	for _, track := range tracks {
		if track.PreviewURL != "" {
			return domain.PreviewResult{
				URL:    track.PreviewURL,
				Source: p.Name(),
				Format: "m4a",
			}, nil
		}
	}
	return domain.PreviewResult{}, nil
}

func (p *Provider) toTrack(item resultItem) domain.Track {
	art := item.ArtworkURL100
	if art == "" {
		art = item.ArtworkURL60
	}
	storeURL := item.TrackViewURL
	if storeURL == "" {
		storeURL = item.CollectionViewURL
	}
	sourceID := ""
	if item.TrackID > 0 {
		sourceID = strconv.FormatInt(item.TrackID, 10)
	}
	track := domain.Track{
		Title:       item.TrackName,
		Artist:      item.ArtistName,
		Album:       item.CollectionName,
		AlbumArtURL: common.UpscaleArtwork(art),
		PreviewURL:  item.PreviewURL,
		StoreURL:    storeURL,
		Source:      p.Name(),
		SourceID:    sourceID,
	}
	if sourceID != "" {
		track.IDs = map[string]string{"itunes": sourceID}
	}
	if storeURL != "" {
		track.Links = map[string]string{"itunes": storeURL}
	}
	return track
}

func clampLimit(limit, max int) int {
	if limit <= 0 {
		return 20
	}
	if limit > max {
		return max
	}
	return limit
}
