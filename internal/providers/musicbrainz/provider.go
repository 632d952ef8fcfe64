// Package musicbrainz adapts MusicBrainz recording search. The public
// API allows one request per second per client, enforced here with a
// local limiter so a burst of searches queues instead of getting the
// whole service IP-banned.
package musicbrainz

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"tuneflip/searchservice/internal/domain"
	"tuneflip/searchservice/internal/providers/common"
)

const (
	defaultEndpoint = "https://musicbrainz.org/ws/2/recording"

	// MusicBrainz requires a descriptive User-Agent with contact info.
	defaultUserAgent = "tuneflip-search/1.0 (https://tuneflip.app)"
)

type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
	// Limiter overrides the default 1 rps limiter. Tests pass
	// rate.NewLimiter(rate.Inf, 1).
	Limiter *rate.Limiter
}

type Provider struct {
	client    *http.Client
	endpoint  string
	userAgent string
	limiter   *rate.Limiter
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
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Limit(1), 1)
	}
	return &Provider{client: client, endpoint: endpoint, userAgent: userAgent, limiter: limiter}
}

func (p *Provider) Name() string { return "musicbrainz" }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    p.Name(),
		Label:   "MusicBrainz",
		Kind:    "metadata",
		Enabled: true,
	}
}

type searchResponse struct {
	Recordings []recording `json:"recordings"`
}

type recording struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ArtistCredit []struct {
		Name   string `json:"name"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
	} `json:"artist-credit"`
	Releases []struct {
		Title string `json:"title"`
	} `json:"releases"`
	ISRCs []string `json:"isrcs"`
}

func (p *Provider) Search(ctx context.Context, query domain.ProviderQuery) ([]domain.Track, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	params := url.Values{}
	params.Set("query", strings.TrimSpace(query.Query))
	params.Set("fmt", "json")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("inc", "isrcs")

	var payload searchResponse
	if err := common.FetchJSON(ctx, p.client, p.endpoint+"?"+params.Encode(), p.userAgent, &payload); err != nil {
		return nil, fmt.Errorf("musicbrainz search: %w", err)
	}

	tracks := make([]domain.Track, 0, len(payload.Recordings))
	for _, rec := range payload.Recordings {
		tracks = append(tracks, p.toTrack(rec))
	}
	return tracks, nil
}

func (p *Provider) toTrack(rec recording) domain.Track {
	artists := make([]string, 0, len(rec.ArtistCredit))
	for _, credit := range rec.ArtistCredit {
		name := credit.Name
		if name == "" {
			name = credit.Artist.Name
		}
		if name != "" {
			artists = append(artists, name)
		}
	}
	album := ""
	if len(rec.Releases) > 0 {
		album = rec.Releases[0].Title
	}
	isrc := ""
	if len(rec.ISRCs) > 0 {
		isrc = rec.ISRCs[0]
	}
	track := domain.Track{
		Title:    rec.Title,
		Artist:   strings.Join(artists, ", "),
		Album:    album,
		Source:   p.Name(),
		SourceID: rec.ID,
		ISRC:     isrc,
	}
	if rec.ID != "" {
		link := "https://musicbrainz.org/recording/" + rec.ID
		track.StoreURL = link
		track.IDs = map[string]string{"musicbrainz": rec.ID}
		track.Links = map[string]string{"musicbrainz": link}
	}
	return track
}
