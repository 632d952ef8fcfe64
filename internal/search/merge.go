package search

import (
	"strings"

	"tuneflip/searchservice/internal/domain"
)

// MergeTracks collapses candidates that describe the same recording.
// The first-seen record is canonical; later duplicates only contribute
// fields the canonical record is missing (artwork, preview, store URL,
// ISRC) and union their per-source IDs and links. Output preserves
// first-seen order.
//
// Identity is the ISRC when both sides carry one, the normalized
// (title, artist) text key otherwise. A merged record that gains an
// ISRC from a duplicate becomes findable under it for the rest of the
// pass.
func MergeTracks(lists ...[]domain.Track) []domain.Track {
	merged := make([]domain.Track, 0)
	byText := make(map[string]int)
	byISRC := make(map[string]int)

	for _, list := range lists {
		for _, track := range list {
			textKey := mergeKey(track.Title, track.Artist)
			if textKey == "|" {
				continue
			}
			isrc := strings.ToUpper(strings.TrimSpace(track.ISRC))

			index := -1
			if isrc != "" {
				if i, ok := byISRC[isrc]; ok {
					index = i
				}
			}
			if index < 0 {
				if i, ok := byText[textKey]; ok {
					index = i
				}
			}

			if index < 0 {
				track.ISRC = isrc
				merged = append(merged, track)
				index = len(merged) - 1
				byText[textKey] = index
				if isrc != "" {
					byISRC[isrc] = index
				}
				continue
			}

			mergeInto(&merged[index], track)
			if merged[index].ISRC != "" {
				byISRC[merged[index].ISRC] = index
			}
			if _, ok := byText[textKey]; !ok {
				byText[textKey] = index
			}
		}
	}
	return merged
}

// mergeInto fills empty optional fields of dst from src and unions the
// IDs and Links maps. Existing dst values always win.
func mergeInto(dst *domain.Track, src domain.Track) {
	if dst.AlbumArtURL == "" {
		dst.AlbumArtURL = src.AlbumArtURL
	}
	if dst.PreviewURL == "" {
		dst.PreviewURL = src.PreviewURL
	}
	if dst.StoreURL == "" {
		dst.StoreURL = src.StoreURL
	}
	if dst.Album == "" {
		dst.Album = src.Album
	}
	if dst.ISRC == "" {
		dst.ISRC = strings.ToUpper(strings.TrimSpace(src.ISRC))
	}
	if len(src.IDs) > 0 {
		if dst.IDs == nil {
			dst.IDs = make(map[string]string, len(src.IDs))
		}
		for source, id := range src.IDs {
			if _, exists := dst.IDs[source]; !exists {
				dst.IDs[source] = id
			}
		}
	}
	if len(src.Links) > 0 {
		if dst.Links == nil {
			dst.Links = make(map[string]string, len(src.Links))
		}
		for source, link := range src.Links {
			if _, exists := dst.Links[source]; !exists {
				dst.Links[source] = link
			}
		}
	}
}
