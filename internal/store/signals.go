package store

import (
	"context"
	"fmt"
	"time"

	"tuneflip/searchservice/internal/domain"
)

// UserSignals aggregates one user's per-track counts since the cutoff,
// joined with global popularity over the same window. Skip and dislike
// events count together as skips. Cutoffs are epoch milliseconds
// computed here so the SQL stays parameterized.
func (s *Store) UserSignals(ctx context.Context, userID string, since time.Time) ([]domain.TrackSignals, error) {
	cutoff := since.UnixMilli()

	rows, err := s.db.QueryContext(ctx, `
		WITH user_agg AS (
			SELECT
				track_id,
				SUM(CASE WHEN type = 'like' THEN 1 ELSE 0 END) AS likes,
				SUM(CASE WHEN type = 'nope' THEN 1 ELSE 0 END) AS nopes,
				SUM(CASE WHEN type IN ('skip', 'dislike') THEN 1 ELSE 0 END) AS skips,
				COALESCE(SUM(CAST(json_extract(payload, '$.ms_played_chunk') AS INTEGER)), 0) AS ms_played,
				MAX(ts) AS last_ts
			FROM events
			WHERE user_id = ? AND ts >= ? AND track_id IS NOT NULL AND track_id <> ''
			GROUP BY track_id
		),
		global_agg AS (
			SELECT
				track_id,
				COUNT(*) AS global_events,
				SUM(CASE WHEN type = 'like' THEN 1 ELSE 0 END) AS global_likes
			FROM events
			WHERE ts >= ? AND track_id IS NOT NULL AND track_id <> ''
			GROUP BY track_id
		)
		SELECT
			u.track_id, u.likes, u.nopes, u.skips, u.ms_played, u.last_ts,
			COALESCE(g.global_events, 0), COALESCE(g.global_likes, 0)
		FROM user_agg u
		LEFT JOIN global_agg g ON g.track_id = u.track_id`,
		userID, cutoff, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query user signals: %w", err)
	}
	defer rows.Close()

	var signals []domain.TrackSignals
	for rows.Next() {
		var row domain.TrackSignals
		if err := rows.Scan(&row.TrackID, &row.Likes, &row.Nopes, &row.Skips,
			&row.MsPlayed, &row.LastTS, &row.GlobalEvents, &row.GlobalLikes); err != nil {
			return nil, fmt.Errorf("scan user signals: %w", err)
		}
		signals = append(signals, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user signals: %w", err)
	}
	return signals, nil
}

// GlobalTop lists the most-interacted tracks since the cutoff, event
// count descending with like count as tiebreak. Feeds the recs
// backfill for users with thin histories.
func (s *Store) GlobalTop(ctx context.Context, since time.Time, limit int) ([]domain.TrackSignals, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			track_id,
			COUNT(*) AS global_events,
			SUM(CASE WHEN type = 'like' THEN 1 ELSE 0 END) AS global_likes
		FROM events
		WHERE ts >= ? AND track_id IS NOT NULL AND track_id <> ''
		GROUP BY track_id
		ORDER BY global_events DESC, global_likes DESC
		LIMIT ?`, since.UnixMilli(), limit)
	if err != nil {
		return nil, fmt.Errorf("query global top: %w", err)
	}
	defer rows.Close()

	var top []domain.TrackSignals
	for rows.Next() {
		var row domain.TrackSignals
		if err := rows.Scan(&row.TrackID, &row.GlobalEvents, &row.GlobalLikes); err != nil {
			return nil, fmt.Errorf("scan global top: %w", err)
		}
		top = append(top, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate global top: %w", err)
	}
	return top, nil
}
