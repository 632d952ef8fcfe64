// Package spotify adapts the Spotify Web API track search using the
// client-credentials grant.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"tuneflip/searchservice/internal/domain"
)

const (
	defaultEndpoint  = "https://api.spotify.com/v1/search"
	defaultTokenURL  = "https://accounts.spotify.com/api/token"
	defaultUserAgent = "tuneflip-search/1.0"

	// tokenExpiryLeeway forces a refresh when the cached token is
	// within this window of expiring, so an expired token is never
	// presented upstream.
	tokenExpiryLeeway = 30 * time.Second

	maxBodyBytes = 4 << 20
)

type Config struct {
	ClientID     string
	ClientSecret string
	Endpoint     string
	TokenURL     string
	UserAgent    string
	Client       *http.Client
	// TokenClient is used for the token grant itself; falls back to
	// Client when nil. Tests inject a fake token server through it.
	TokenClient *http.Client
	// Tokens overrides the derived token source. Test hook.
	Tokens oauth2.TokenSource
}

type Provider struct {
	client    *http.Client
	endpoint  string
	userAgent string
	tokens    oauth2.TokenSource
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

	tokens := cfg.Tokens
	if tokens == nil && cfg.ClientID != "" && cfg.ClientSecret != "" {
		tokenURL := strings.TrimSpace(cfg.TokenURL)
		if tokenURL == "" {
			tokenURL = defaultTokenURL
		}
		grant := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     tokenURL,
		}
		tokenClient := cfg.TokenClient
		if tokenClient == nil {
			tokenClient = client
		}
		grantCtx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient)
		// ReuseTokenSourceWithExpiry serializes refreshes behind its
		// own lock and treats the token as expired 30s early.
		tokens = oauth2.ReuseTokenSourceWithExpiry(nil, grant.TokenSource(grantCtx), tokenExpiryLeeway)
	}

	return &Provider{
		client:    client,
		endpoint:  endpoint,
		userAgent: userAgent,
		tokens:    tokens,
	}
}

func (p *Provider) Name() string { return "spotify" }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:        p.Name(),
		Label:       "Spotify",
		Kind:        "catalog",
		Enabled:     p.Enabled(),
		RequiresKey: true,
	}
}

// Enabled reports whether credentials were configured.
func (p *Provider) Enabled() bool { return p.tokens != nil }

type searchResponse struct {
	Tracks struct {
		Items []trackItem `json:"items"`
	} `json:"tracks"`
}

type trackItem struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name   string `json:"name"`
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	} `json:"album"`
	PreviewURL   string `json:"preview_url"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
	ExternalIDs struct {
		ISRC string `json:"isrc"`
	} `json:"external_ids"`
}

func (p *Provider) Search(ctx context.Context, query domain.ProviderQuery) ([]domain.Track, error) {
	if p.tokens == nil {
		return nil, nil
	}
	token, err := p.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("spotify token: %w", err)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("q", strings.TrimSpace(query.Query))
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("include_external", "audio")
	params.Set("market", domain.NormalizeMarket(query.Market))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	token.SetAuthHeader(req)
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("spotify HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("spotify decode: %w", err)
	}

	tracks := make([]domain.Track, 0, len(payload.Tracks.Items))
	for _, item := range payload.Tracks.Items {
		tracks = append(tracks, p.toTrack(item))
	}
	return tracks, nil
}

func (p *Provider) toTrack(item trackItem) domain.Track {
	artists := make([]string, 0, len(item.Artists))
	for _, artist := range item.Artists {
		if artist.Name != "" {
			artists = append(artists, artist.Name)
		}
	}
	art := ""
	if len(item.Album.Images) > 0 {
		art = item.Album.Images[0].URL
	}

	track := domain.Track{
		Title:       item.Name,
		Artist:      strings.Join(artists, ", "),
		Album:       item.Album.Name,
		AlbumArtURL: art,
		PreviewURL:  item.PreviewURL,
		StoreURL:    item.ExternalURLs.Spotify,
		Source:      p.Name(),
		SourceID:    item.ID,
		ISRC:        item.ExternalIDs.ISRC,
	}
	if item.ID != "" {
		track.IDs = map[string]string{"spotify": item.ID}
	}
	if item.ExternalURLs.Spotify != "" {
		track.Links = map[string]string{"spotify": item.ExternalURLs.Spotify}
	}
	return track
}
