package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tuneflip/searchservice/internal/domain"
)

const searchFixture = `{
	"items": [
		{
			"id": {"videoId": "dQw4w9WgXcQ"},
			"snippet": {
				"title": "Never Gonna Give You Up",
				"channelTitle": "Rick Astley",
				"thumbnails": {
					"high": {"url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg"},
					"default": {"url": "https://i.ytimg.com/vi/dQw4w9WgXcQ/default.jpg"}
				}
			}
		},
		{
			"id": {},
			"snippet": {"title": "Channel Result, No Video"}
		}
	]
}`

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "yt-key" || q.Get("type") != "video" || q.Get("videoCategoryId") != "10" {
			t.Errorf("unexpected params: %v", q)
		}
		w.Write([]byte(searchFixture))
	}))
	defer server.Close()

	provider := NewProvider(Config{APIKey: "yt-key", Endpoint: server.URL, Client: server.Client()})
	tracks, err := provider.Search(context.Background(), domain.ProviderQuery{Query: "rick astley", Limit: 5})
	if err != nil {
		t.Fatalf("search error: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected id-less item skipped, got %d tracks", len(tracks))
	}

	track := tracks[0]
	if track.Title != "Never Gonna Give You Up" || track.Artist != "Rick Astley" {
		t.Fatalf("unexpected track: %#v", track)
	}
	if track.StoreURL != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Fatalf("watch link wrong: %q", track.StoreURL)
	}
	if track.AlbumArtURL != "https://i.ytimg.com/vi/dQw4w9WgXcQ/hqdefault.jpg" {
		t.Fatalf("high thumbnail not preferred: %q", track.AlbumArtURL)
	}
	if track.PreviewURL != "" {
		t.Fatalf("youtube results must not carry preview urls: %#v", track)
	}
}

func TestDisabledWithoutKey(t *testing.T) {
	provider := NewProvider(Config{})
	if provider.Enabled() {
		t.Fatalf("provider should be disabled without an api key")
	}
	tracks, err := provider.Search(context.Background(), domain.ProviderQuery{Query: "x"})
	if err != nil || tracks != nil {
		t.Fatalf("disabled search should be a silent no-op, got %v / %v", tracks, err)
	}
}
