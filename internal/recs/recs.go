// Package recs scores a user's behavioral signals into a ranked
// track-id list. Stateless; all inputs come from the event store.
package recs

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"log/slog"

	"tuneflip/searchservice/internal/domain"
)

const (
	likeWeight  = 3.0
	skipWeight  = -2.5
	nopeWeight  = -4.0
	dwellWeight = 0.001 // per ms played

	// recencyPenalty demotes tracks the user touched within the last
	// recencyWindow so the feed keeps rotating.
	recencyPenalty = -1.0
	recencyWindow  = 12 * time.Hour

	signalLookback = 30 * 24 * time.Hour

	DefaultLimit = 25
	MaxLimit     = 100
)

// SignalSource is the slice of the store the recommender reads.
type SignalSource interface {
	UserSignals(ctx context.Context, userID string, since time.Time) ([]domain.TrackSignals, error)
	GlobalTop(ctx context.Context, since time.Time, limit int) ([]domain.TrackSignals, error)
}

type Recommender struct {
	store SignalSource
}

func NewRecommender(store SignalSource) *Recommender {
	return &Recommender{store: store}
}

// Score computes one track's rank value: weighted own signals, dwell
// time, a recency demotion, and logarithmic global popularity priors
// so well-liked tracks win ties without drowning personal signal.
func Score(row domain.TrackSignals, now time.Time) float64 {
	score := likeWeight*float64(row.Likes) +
		skipWeight*float64(row.Skips) +
		nopeWeight*float64(row.Nopes) +
		dwellWeight*float64(row.MsPlayed)

	if row.LastTS > 0 && now.Sub(time.UnixMilli(row.LastTS)) < recencyWindow {
		score += recencyPenalty
	}

	score += math.Log10(1 + float64(row.GlobalEvents))
	score += 0.5 * math.Log10(1+float64(row.GlobalLikes))
	return score
}

// Recommend ranks the user's tracks by score and pads the tail with
// globally popular tracks the user has not touched, in popularity
// order, until the limit is filled.
func (r *Recommender) Recommend(ctx context.Context, userID string, limit int) ([]domain.RecTrack, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = "anon"
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	now := time.Now()
	since := now.Add(-signalLookback)

	signals, err := r.store.UserSignals(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.RecTrack, 0, len(signals))
	seen := make(map[string]struct{}, len(signals))
	for _, row := range signals {
		seen[row.TrackID] = struct{}{}
		ranked = append(ranked, domain.RecTrack{
			TrackID: row.TrackID,
			Score:   Score(row, now),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	if len(ranked) < limit {
		top, err := r.store.GlobalTop(ctx, since, limit*2)
		if err != nil {
			// Backfill is best-effort; personal ranking stands.
			slog.Warn("recs global backfill failed",
				slog.String("userId", userID),
				slog.String("error", err.Error()),
			)
			return ranked, nil
		}
		for _, row := range top {
			if len(ranked) >= limit {
				break
			}
			if _, exists := seen[row.TrackID]; exists {
				continue
			}
			seen[row.TrackID] = struct{}{}
			ranked = append(ranked, domain.RecTrack{
				TrackID: row.TrackID,
				Score:   math.Log10(1+float64(row.GlobalEvents)) + 0.5*math.Log10(1+float64(row.GlobalLikes)),
			})
		}
	}
	return ranked, nil
}
