package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tuneflip/searchservice/internal/domain"
	"tuneflip/searchservice/internal/providers/common"
)

// RSS Top Songs payloads label most fields and wrap single-element
// collections in bare objects, so the subset we read is modeled with
// tolerant types.

type rssFeed struct {
	Feed struct {
		Entry rssEntries `json:"entry"`
	} `json:"feed"`
}

type rssEntries []rssEntry

// UnmarshalJSON accepts either a single entry object or an array of
// entries; single-song charts come back unwrapped.
func (e *rssEntries) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var one rssEntry
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*e = rssEntries{one}
		return nil
	}
	var many []rssEntry
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*e = rssEntries(many)
	return nil
}

type rssEntry struct {
	Name struct {
		Label string `json:"label"`
	} `json:"im:name"`
	Artist struct {
		Label string `json:"label"`
	} `json:"im:artist"`
	Collection struct {
		Name struct {
			Label string `json:"label"`
		} `json:"name"`
	} `json:"im:collection"`
	Images []struct {
		Label string `json:"label"`
	} `json:"im:image"`
	Links rssLinks `json:"link"`
	ID    struct {
		Label      string `json:"label"`
		Attributes struct {
			IMID string `json:"im:id"`
		} `json:"attributes"`
	} `json:"id"`
}

type rssLink struct {
	Attributes struct {
		Type string `json:"type"`
		Href string `json:"href"`
	} `json:"attributes"`
}

type rssLinks []rssLink

func (l *rssLinks) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var one rssLink
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = rssLinks{one}
		return nil
	}
	var many []rssLink
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = rssLinks(many)
	return nil
}

func (p *Provider) topSongs(ctx context.Context, query domain.ProviderQuery) ([]domain.Track, error) {
	limit := clampLimit(query.Limit, 100)
	if limit < 20 {
		limit = 20
	}
	country := strings.ToLower(domain.ITunesCountry(query.Market))
	feedURL := fmt.Sprintf("%s/%s/rss/topsongs/limit=%d/genre=%s/json",
		p.rssBase, country, limit, strings.TrimSpace(query.GenreID))

	var payload rssFeed
	if err := common.FetchJSON(ctx, p.client, feedURL, p.userAgent, &payload); err != nil {
		return nil, err
	}

	tracks := make([]domain.Track, 0, len(payload.Feed.Entry))
	for _, entry := range payload.Feed.Entry {
		track := entryToTrack(entry)
		if track.Title == "" {
			continue
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

func entryToTrack(entry rssEntry) domain.Track {
	art := ""
	if len(entry.Images) > 0 {
		art = entry.Images[len(entry.Images)-1].Label
	}

	previewURL := ""
	storeURL := entry.ID.Label
	for _, link := range entry.Links {
		if strings.Contains(link.Attributes.Type, "audio") {
			previewURL = link.Attributes.Href
			break
		}
	}
	if storeURL == "" && len(entry.Links) > 0 {
		storeURL = entry.Links[0].Attributes.Href
	}

	sourceID := entry.ID.Attributes.IMID
	track := domain.Track{
		Title:       entry.Name.Label,
		Artist:      entry.Artist.Label,
		Album:       entry.Collection.Name.Label,
		AlbumArtURL: common.UpscaleArtwork(art),
		PreviewURL:  previewURL,
		StoreURL:    storeURL,
		Source:      "itunes-rss",
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
