// Package deezer adapts the Deezer public search API. No credentials
// are needed, which also makes it the first stop for preview
// resolution.
package deezer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"tuneflip/searchservice/internal/domain"
	"tuneflip/searchservice/internal/providers/common"
)

const (
	defaultEndpoint  = "https://api.deezer.com/search"
	defaultUserAgent = "tuneflip-search/1.0"
)

type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

type Provider struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

func NewProvider(cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Provider{client: client, endpoint: endpoint, userAgent: userAgent}
}

func (p *Provider) Name() string { return "deezer" }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    p.Name(),
		Label:   "Deezer",
		Kind:    "catalog",
		Enabled: true,
	}
}

type searchResponse struct {
	Data []trackItem `json:"data"`
}

type trackItem struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Preview string `json:"preview"`
	Artist  struct {
		Name string `json:"name"`
	} `json:"artist"`
	Album struct {
		Title    string `json:"title"`
		CoverBig string `json:"cover_big"`
		Cover    string `json:"cover"`
	} `json:"album"`
}

func (p *Provider) Search(ctx context.Context, query domain.ProviderQuery) ([]domain.Track, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return p.search(ctx, strings.TrimSpace(query.Query), limit)
}

func (p *Provider) search(ctx context.Context, term string, limit int) ([]domain.Track, error) {
	params := url.Values{}
	params.Set("q", term)
	params.Set("limit", strconv.Itoa(limit))

	var payload searchResponse
	if err := common.FetchJSON(ctx, p.client, p.endpoint+"?"+params.Encode(), p.userAgent, &payload); err != nil {
		return nil, fmt.Errorf("deezer search: %w", err)
	}

	tracks := make([]domain.Track, 0, len(payload.Data))
	for _, item := range payload.Data {
		tracks = append(tracks, p.toTrack(item))
	}
	return tracks, nil
}

// FindPreview looks up a 30s preview URL for an exact artist/title
// pair. A quoted field query is tried first; Deezer is strict about
// punctuation inside quotes, so a plain term search backs it up.
func (p *Provider) FindPreview(ctx context.Context, query domain.PreviewQuery) (domain.PreviewResult, error) {
	quoted := fmt.Sprintf(`track:"%s" artist:"%s"`, query.Title, query.Artist)
	tracks, err := p.search(ctx, quoted, 5)
	if err == nil {
		if res, ok := firstPreview(tracks); ok {
			return res, nil
		}
	}

	plain := strings.TrimSpace(query.Artist + " " + query.Title)
	tracks, err = p.search(ctx, plain, 5)
	if err != nil {
		return domain.PreviewResult{}, err
	}
	if res, ok := firstPreview(tracks); ok {
		return res, nil
	}
	return domain.PreviewResult{}, nil
}

func firstPreview(tracks []domain.Track) (domain.PreviewResult, bool) {
	for _, track := range tracks {
		if track.PreviewURL != "" {
			return domain.PreviewResult{
				URL:    track.PreviewURL,
				Source: track.Source,
				Format: "mp3",
			}, true
		}
	}
	return domain.PreviewResult{}, false
}

func (p *Provider) toTrack(item trackItem) domain.Track {
	art := item.Album.CoverBig
	if art == "" {
		art = item.Album.Cover
	}
	id := strconv.FormatInt(item.ID, 10)

	track := domain.Track{
		Title:       item.Title,
		Artist:      item.Artist.Name,
		Album:       item.Album.Title,
		AlbumArtURL: art,
		PreviewURL:  item.Preview,
		StoreURL:    item.Link,
		Source:      p.Name(),
		SourceID:    id,
	}
	if item.ID != 0 {
		track.IDs = map[string]string{"deezer": id}
	}
	if item.Link != "" {
		track.Links = map[string]string{"deezer": item.Link}
	}
	return track
}
