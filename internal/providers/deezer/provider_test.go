package deezer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tuneflip/searchservice/internal/domain"
)

const searchFixture = `{
	"data": [
		{
			"id": 3135556,
			"title": "Harder, Better, Faster, Stronger",
			"link": "https://www.deezer.com/track/3135556",
			"preview": "https://cdns-preview.dzcdn.net/stream/a.mp3",
			"artist": {"name": "Daft Punk"},
			"album": {"title": "Discovery", "cover_big": "https://api.deezer.com/album/cover_big.jpg", "cover": "https://api.deezer.com/album/cover.jpg"}
		},
		{
			"id": 7,
			"title": "Silent Track",
			"artist": {"name": "Nobody"},
			"album": {"title": "B-Sides", "cover": "https://api.deezer.com/album/small.jpg"}
		}
	]
}`

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "daft punk" {
			t.Errorf("unexpected query %q", got)
		}
		if got := r.URL.Query().Get("limit"); got != "25" {
			t.Errorf("unexpected limit %q", got)
		}
		w.Write([]byte(searchFixture))
	}))
	defer server.Close()

	provider := NewProvider(Config{Endpoint: server.URL, Client: server.Client()})
	tracks, err := provider.Search(context.Background(), domain.ProviderQuery{Query: "daft punk", Limit: 25})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	first := tracks[0]
	if first.Title != "Harder, Better, Faster, Stronger" || first.Artist != "Daft Punk" {
		t.Fatalf("unexpected track: %#v", first)
	}
	if first.AlbumArtURL != "https://api.deezer.com/album/cover_big.jpg" {
		t.Fatalf("cover_big not preferred: %q", first.AlbumArtURL)
	}
	if first.Source != "deezer" || first.IDs["deezer"] != "3135556" {
		t.Fatalf("source fields wrong: %#v", first)
	}
	if tracks[1].AlbumArtURL != "https://api.deezer.com/album/small.jpg" {
		t.Fatalf("cover fallback missing: %#v", tracks[1])
	}
}

func TestSearchClampsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit not clamped: %q", got)
		}
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	provider := NewProvider(Config{Endpoint: server.URL, Client: server.Client()})
	if _, err := provider.Search(context.Background(), domain.ProviderQuery{Query: "x", Limit: 500}); err != nil {
		t.Fatalf("search error: %v", err)
	}
}

func TestFindPreviewUsesQuotedQueryFirst(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		w.Write([]byte(searchFixture))
	}))
	defer server.Close()

	provider := NewProvider(Config{Endpoint: server.URL, Client: server.Client()})
	result, err := provider.FindPreview(context.Background(), domain.PreviewQuery{
		Title: "Harder, Better, Faster, Stronger", Artist: "Daft Punk",
	})
	if err != nil {
		t.Fatalf("preview error: %v", err)
	}
	if len(queries) != 1 {
		t.Fatalf("expected one request when quoted query hits, got %d", len(queries))
	}
	if !strings.Contains(queries[0], `track:"Harder, Better, Faster, Stronger"`) {
		t.Fatalf("quoted query not used: %q", queries[0])
	}
	if result.URL != "https://cdns-preview.dzcdn.net/stream/a.mp3" || result.Format != "mp3" {
		t.Fatalf("unexpected preview result: %#v", result)
	}
}

func TestFindPreviewFallsBackToPlainQuery(t *testing.T) {
	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		queries = append(queries, q)
		if strings.Contains(q, `track:"`) {
			w.Write([]byte(`{"data":[]}`))
			return
		}
		w.Write([]byte(searchFixture))
	}))
	defer server.Close()

	provider := NewProvider(Config{Endpoint: server.URL, Client: server.Client()})
	result, err := provider.FindPreview(context.Background(), domain.PreviewQuery{
		Title: "Harder", Artist: "Daft Punk",
	})
	if err != nil {
		t.Fatalf("preview error: %v", err)
	}
	if len(queries) != 2 {
		t.Fatalf("expected quoted then plain query, got %v", queries)
	}
	if queries[1] != "Daft Punk Harder" {
		t.Fatalf("unexpected plain query %q", queries[1])
	}
	if result.URL == "" {
		t.Fatalf("expected preview from fallback query")
	}
}

func TestFindPreviewNoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	provider := NewProvider(Config{Endpoint: server.URL, Client: server.Client()})
	result, err := provider.FindPreview(context.Background(), domain.PreviewQuery{Title: "x", Artist: "y"})
	if err != nil {
		t.Fatalf("preview error: %v", err)
	}
	if result.URL != "" {
		t.Fatalf("expected empty result, got %#v", result)
	}
}
