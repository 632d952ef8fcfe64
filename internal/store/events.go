package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tuneflip/searchservice/internal/domain"
)

// InsertEvents appends a batch of events in one transaction. Any row
// failure rolls back the whole batch. Events with no ID get a uuid;
// duplicates are expected and stored as-is.
func (s *Store) InsertEvents(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO events
		(id, user_id, session_id, type, track_id, ts, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		id := strings.TrimSpace(event.ID)
		if id == "" {
			id = uuid.NewString()
		}
		userID := strings.TrimSpace(event.UserID)
		if userID == "" {
			userID = "anon"
		}
		ts := event.TS
		if ts <= 0 {
			ts = time.Now().UnixMilli()
		}
		payload := ""
		if len(event.Payload) > 0 {
			payload = string(event.Payload)
		}
		if _, err := stmt.ExecContext(ctx, id, userID, event.SessionID, event.Type, event.TrackID, ts, payload); err != nil {
			return fmt.Errorf("insert event %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// UpsertTrack inserts or refreshes a track metadata row. On conflict,
// incoming empty fields never clobber stored values.
func (s *Store) UpsertTrack(ctx context.Context, track domain.StoredTrack) error {
	trackID := strings.TrimSpace(track.TrackID)
	if trackID == "" {
		return fmt.Errorf("track_id is required")
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO tracks
		(track_id, title, artist, album, art_url, store_url, preview_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(track_id) DO UPDATE SET
			title       = COALESCE(NULLIF(excluded.title, ''), tracks.title),
			artist      = COALESCE(NULLIF(excluded.artist, ''), tracks.artist),
			album       = COALESCE(NULLIF(excluded.album, ''), tracks.album),
			art_url     = COALESCE(NULLIF(excluded.art_url, ''), tracks.art_url),
			store_url   = COALESCE(NULLIF(excluded.store_url, ''), tracks.store_url),
			preview_url = COALESCE(NULLIF(excluded.preview_url, ''), tracks.preview_url),
			updated_at  = excluded.updated_at`,
		trackID, track.Title, track.Artist, track.Album,
		track.ArtURL, track.StoreURL, track.PreviewURL, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert track %s: %w", trackID, err)
	}
	return nil
}
