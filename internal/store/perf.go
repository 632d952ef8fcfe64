package store

import (
	"context"
	"database/sql"
	"fmt"

	"tuneflip/searchservice/internal/domain"
)

// TrackPerf reads the 7-day performance rollup joined with track
// metadata, best score first.
func (s *Store) TrackPerf(ctx context.Context, limit int) ([]domain.TrackPerf, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			v.track_id,
			COALESCE(t.title, ''),
			COALESCE(t.artist, ''),
			COALESCE(t.album, ''),
			COALESCE(t.art_url, ''),
			v.impressions,
			v.starts,
			v.likes,
			v.nopes,
			v.ms_played,
			v.start_rate,
			v.like_rate,
			v.nope_rate,
			v.avg_play_ratio,
			v.score
		FROM v_track_perf_7d v
		LEFT JOIN tracks t ON t.track_id = v.track_id
		ORDER BY v.score DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query track perf: %w", err)
	}
	defer rows.Close()

	var items []domain.TrackPerf
	for rows.Next() {
		var row domain.TrackPerf
		if err := rows.Scan(&row.TrackID, &row.Title, &row.Artist, &row.Album, &row.ArtURL,
			&row.Impressions, &row.Starts, &row.Likes, &row.Nopes, &row.MsPlayed,
			&row.StartRate, &row.LikeRate, &row.NopeRate, &row.AvgPlayRatio, &row.Score); err != nil {
			return nil, fmt.Errorf("scan track perf: %w", err)
		}
		items = append(items, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate track perf: %w", err)
	}
	return items, nil
}

// MissingTracks lists track ids seen in events whose metadata row is
// absent or sparse. Input to the backfill task.
func (s *Store) MissingTracks(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT e.track_id
		FROM events e
		LEFT JOIN tracks t ON t.track_id = e.track_id
		WHERE e.track_id IS NOT NULL AND e.track_id <> ''
		  AND (t.track_id IS NULL
			OR COALESCE(t.title, '') = ''
			OR COALESCE(t.art_url, '') = ''
			OR COALESCE(t.preview_url, '') = '')
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query missing tracks: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan missing track: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate missing tracks: %w", err)
	}
	return ids, nil
}

// GetTrack fetches one metadata row; ok is false when absent.
func (s *Store) GetTrack(ctx context.Context, trackID string) (domain.StoredTrack, bool, error) {
	var track domain.StoredTrack
	err := s.db.QueryRowContext(ctx, `
		SELECT track_id, COALESCE(title, ''), COALESCE(artist, ''), COALESCE(album, ''),
			COALESCE(art_url, ''), COALESCE(store_url, ''), COALESCE(preview_url, '')
		FROM tracks WHERE track_id = ?`, trackID).
		Scan(&track.TrackID, &track.Title, &track.Artist, &track.Album,
			&track.ArtURL, &track.StoreURL, &track.PreviewURL)
	if err == sql.ErrNoRows {
		return domain.StoredTrack{}, false, nil
	}
	if err != nil {
		return domain.StoredTrack{}, false, fmt.Errorf("get track %s: %w", trackID, err)
	}
	return track, true, nil
}
