package search

import (
	"math"
	"testing"

	"tuneflip/searchservice/internal/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreTracksRecentArtistAndAlbumPenalties(t *testing.T) {
	items := []domain.Track{
		{Title: "Fresh", Artist: "New Artist"},
		{Title: "Heard It", Artist: "Known Artist", Album: "Known Album"},
	}
	profile := domain.RankingProfile{
		RecentArtists: []string{"known artist"},
		RecentAlbums:  []string{"Known Album"},
	}

	scored := ScoreTracks(items, profile, domain.Weights{})
	if scored[0].Title != "Fresh" {
		t.Fatalf("unpenalized track should rank first, got %q", scored[0].Title)
	}
	if !almostEqual(scored[0].Score, 1.0) {
		t.Fatalf("expected base score 1.0, got %f", scored[0].Score)
	}
	// 1.0 * (1-0.5) * (1-0.35)
	if !almostEqual(scored[1].Score, 0.325) {
		t.Fatalf("expected stacked penalties 0.325, got %f", scored[1].Score)
	}
}

func TestScoreTracksLikeAndDislikeSignals(t *testing.T) {
	liked := domain.Track{Title: "Liked", Artist: "A", PreviewURL: "https://audio/liked.m4a"}
	disliked := domain.Track{Title: "Disliked", Artist: "B", PreviewURL: "https://audio/disliked.m4a"}
	profile := domain.RankingProfile{
		Likes: map[string]int{
			liked.LikeKey():    1,
			disliked.LikeKey(): -1,
		},
	}

	scored := ScoreTracks([]domain.Track{disliked, liked}, profile, domain.Weights{})
	if scored[0].Title != "Liked" {
		t.Fatalf("liked track should rank first, got %q", scored[0].Title)
	}
	if !almostEqual(scored[0].Score, 1.2) {
		t.Fatalf("expected like boost 1.2, got %f", scored[0].Score)
	}
	if !almostEqual(scored[1].Score, 0.4) {
		t.Fatalf("expected dislike penalty 0.4, got %f", scored[1].Score)
	}
}

func TestScoreTracksLikeKeyFallsBackToComposite(t *testing.T) {
	track := domain.Track{Title: "No Preview", Artist: "Artist", Album: "Album"}
	profile := domain.RankingProfile{
		Likes: map[string]int{"artist|no preview|album": 1},
	}

	scored := ScoreTracks([]domain.Track{track}, profile, domain.Weights{})
	if !almostEqual(scored[0].Score, 1.2) {
		t.Fatalf("composite like key not honored, score %f", scored[0].Score)
	}
}

func TestScoreTracksAffinityClamped(t *testing.T) {
	items := []domain.Track{
		{Title: "Loved", Artist: "Favorite"},
		{Title: "Avoided", Artist: "Tiresome"},
	}
	profile := domain.RankingProfile{
		ArtistAffinity: map[string]float64{
			"favorite": 5.0,
			"tiresome": -3.0,
		},
	}

	scored := ScoreTracks(items, profile, domain.Weights{})
	if !almostEqual(scored[0].Score, 1.6) {
		t.Fatalf("positive affinity should clamp to +0.6, score %f", scored[0].Score)
	}
	if !almostEqual(scored[1].Score, 0.6) {
		t.Fatalf("negative affinity should clamp to -0.4, score %f", scored[1].Score)
	}
}

func TestScoreTracksTiesKeepIncomingOrder(t *testing.T) {
	items := []domain.Track{
		{Title: "First", Artist: "A"},
		{Title: "Second", Artist: "B"},
		{Title: "Third", Artist: "C"},
	}

	scored := ScoreTracks(items, domain.RankingProfile{}, domain.Weights{})
	for i, title := range []string{"First", "Second", "Third"} {
		if scored[i].Title != title {
			t.Fatalf("tie order changed at %d: got %q", i, scored[i].Title)
		}
	}
}

func TestScoreTracksCustomWeights(t *testing.T) {
	items := []domain.Track{{Title: "Repeat", Artist: "Known"}}
	profile := domain.RankingProfile{RecentArtists: []string{"known"}}

	scored := ScoreTracks(items, profile, domain.Weights{ArtistPenalty: 0.9})
	if !almostEqual(scored[0].Score, 0.1) {
		t.Fatalf("custom artist penalty not applied, score %f", scored[0].Score)
	}
}
