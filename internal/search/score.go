package search

import (
	"sort"
	"strings"

	"tuneflip/searchservice/internal/domain"
)

// ScoreTracks applies the per-user ranking heuristics and returns the
// items sorted by descending score. Ties keep their incoming order, so
// with an empty profile the merge order passes through untouched.
//
// Scoring is multiplicative from a base of 1.0: a recent-artist or
// recent-album hit attenuates, an explicit like or dislike signal
// boosts or attenuates, and artist affinity shifts the result within
// its clamp bounds. Scores stay positive for normalized weights.
func ScoreTracks(items []domain.Track, profile domain.RankingProfile, weights domain.Weights) []domain.Track {
	weights = domain.NormalizeWeights(weights)

	recentArtists := lowerSet(profile.RecentArtists)
	recentAlbums := lowerSet(profile.RecentAlbums)

	scored := make([]domain.Track, len(items))
	copy(scored, items)

	for i := range scored {
		score := 1.0

		if _, ok := recentArtists[strings.ToLower(strings.TrimSpace(scored[i].Artist))]; ok {
			score *= 1 - weights.ArtistPenalty
		}
		if album := strings.ToLower(strings.TrimSpace(scored[i].Album)); album != "" {
			if _, ok := recentAlbums[album]; ok {
				score *= 1 - weights.AlbumPenalty
			}
		}

		if len(profile.Likes) > 0 {
			switch profile.Likes[scored[i].LikeKey()] {
			case 1:
				score *= weights.LikeBoost
			case -1:
				score *= weights.DislikePenalty
			}
		}

		if len(profile.ArtistAffinity) > 0 {
			affinity, ok := profile.ArtistAffinity[strings.ToLower(strings.TrimSpace(scored[i].Artist))]
			if !ok {
				affinity, ok = profile.ArtistAffinity[scored[i].Artist]
			}
			if ok {
				score *= 1 + clampAffinity(affinity)
			}
		}

		scored[i].Score = score
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func clampAffinity(value float64) float64 {
	if value < domain.AffinityFloor {
		return domain.AffinityFloor
	}
	if value > domain.AffinityCeil {
		return domain.AffinityCeil
	}
	return value
}

func lowerSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(values))
	for _, value := range values {
		key := strings.ToLower(strings.TrimSpace(value))
		if key != "" {
			out[key] = struct{}{}
		}
	}
	return out
}
