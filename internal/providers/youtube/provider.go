// Package youtube adapts the YouTube Data API v3 video search. Results
// carry a watch link instead of a playable preview, so they surface in
// federated search but never in ranked playback.
package youtube

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
	defaultEndpoint  = "https://www.googleapis.com/youtube/v3/search"
	defaultUserAgent = "tuneflip-search/1.0"

	watchBase = "https://www.youtube.com/watch?v="
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

func (p *Provider) Name() string { return "youtube" }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:        p.Name(),
		Label:       "YouTube",
		Kind:        "video",
		Enabled:     p.Enabled(),
		RequiresKey: true,
	}
}

func (p *Provider) Enabled() bool { return p.apiKey != "" }

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				High struct {
					URL string `json:"url"`
				} `json:"high"`
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
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
	params.Set("key", p.apiKey)
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("videoCategoryId", "10") // Music
	params.Set("q", strings.TrimSpace(query.Query))
	params.Set("maxResults", strconv.Itoa(limit))

	var payload searchResponse
	if err := common.FetchJSON(ctx, p.client, p.endpoint+"?"+params.Encode(), p.userAgent, &payload); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	tracks := make([]domain.Track, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.ID.VideoID == "" {
			continue
		}
		art := item.Snippet.Thumbnails.High.URL
		if art == "" {
			art = item.Snippet.Thumbnails.Default.URL
		}
		link := watchBase + item.ID.VideoID
		tracks = append(tracks, domain.Track{
			Title:       item.Snippet.Title,
			Artist:      item.Snippet.ChannelTitle,
			AlbumArtURL: art,
			StoreURL:    link,
			Source:      p.Name(),
			SourceID:    item.ID.VideoID,
			IDs:         map[string]string{"youtube": item.ID.VideoID},
			Links:       map[string]string{"youtube": link},
		})
	}
	return tracks, nil
}
