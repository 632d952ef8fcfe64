// Package napster adapts the Napster v2.2 catalog search.
package napster

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
	defaultEndpoint  = "https://api.napster.com/v2.2/search/verbose"
	defaultUserAgent = "tuneflip-search/1.0"
)

type Config struct {
	APIKey    string
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

type Provider struct {
	client    *http.Client
	endpoint  string
	userAgent string
	apiKey    string
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
	return &Provider{
		client:    client,
		endpoint:  endpoint,
		userAgent: userAgent,
		apiKey:    strings.TrimSpace(cfg.APIKey),
	}
}

func (p *Provider) Name() string { return "napster" }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:        p.Name(),
		Label:       "Napster",
		Kind:        "catalog",
		Enabled:     p.Enabled(),
		RequiresKey: true,
	}
}

func (p *Provider) Enabled() bool { return p.apiKey != "" }

// The verbose search nests tracks under search.data, but some API
// deployments return them at the top level. Both shapes are read.
type searchResponse struct {
	Search struct {
		Data struct {
			Tracks []trackItem `json:"tracks"`
		} `json:"data"`
	} `json:"search"`
	Tracks []trackItem `json:"tracks"`
}

type trackItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ArtistName string `json:"artistName"`
	AlbumName  string `json:"albumName"`
	AlbumID    string `json:"albumId"`
	PreviewURL string `json:"previewURL"`
	Href       string `json:"href"`
	ISRC       string `json:"isrc"`
}

func (p *Provider) Search(ctx context.Context, query domain.ProviderQuery) ([]domain.Track, error) {
	if p.apiKey == "" {
		return nil, nil
	}
	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("apikey", p.apiKey)
	params.Set("query", strings.TrimSpace(query.Query))
	params.Set("type", "track")
	params.Set("per_type_limit", strconv.Itoa(limit))

	var payload searchResponse
	if err := common.FetchJSON(ctx, p.client, p.endpoint+"?"+params.Encode(), p.userAgent, &payload); err != nil {
		return nil, fmt.Errorf("napster search: %w", err)
	}

	items := payload.Search.Data.Tracks
	if len(items) == 0 {
		items = payload.Tracks
	}
	tracks := make([]domain.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, p.toTrack(item))
	}
	return tracks, nil
}

// FindPreview is the second hop in the preview fallback chain.
func (p *Provider) FindPreview(ctx context.Context, query domain.PreviewQuery) (domain.PreviewResult, error) {
	if p.apiKey == "" {
		return domain.PreviewResult{}, nil
	}
	term := strings.TrimSpace(query.Artist + " " + query.Title)
	tracks, err := p.Search(ctx, domain.ProviderQuery{Query: term, Limit: 5})
	if err != nil {
		return domain.PreviewResult{}, err
	}
	for _, track := range tracks {
		if track.PreviewURL != "" {
			return domain.PreviewResult{
				URL:    track.PreviewURL,
				Source: p.Name(),
				Format: "mp3",
			}, nil
		}
	}
	return domain.PreviewResult{}, nil
}

func (p *Provider) toTrack(item trackItem) domain.Track {
	art := ""
	if item.AlbumID != "" {
		art = fmt.Sprintf("https://api.napster.com/imageserver/v2/albums/%s/images/500x500.jpg", item.AlbumID)
	}

	track := domain.Track{
		Title:       item.Name,
		Artist:      item.ArtistName,
		Album:       item.AlbumName,
		AlbumArtURL: art,
		PreviewURL:  item.PreviewURL,
		StoreURL:    item.Href,
		Source:      p.Name(),
		SourceID:    item.ID,
		ISRC:        item.ISRC,
	}
	if item.ID != "" {
		track.IDs = map[string]string{"napster": item.ID}
	}
	if item.Href != "" {
		track.Links = map[string]string{"napster": item.Href}
	}
	return track
}
