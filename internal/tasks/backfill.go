// Package tasks holds maintenance jobs triggered over HTTP.
package tasks

import (
	"context"
	"time"

	"log/slog"

	"tuneflip/searchservice/internal/domain"
)

// TrackLookup resolves track metadata by store id. The iTunes adapter
// satisfies this.
type TrackLookup interface {
	Lookup(ctx context.Context, trackID string) (domain.Track, bool, error)
}

// TrackStore is the slice of the store the backfill writes.
type TrackStore interface {
	MissingTracks(ctx context.Context, limit int) ([]string, error)
	UpsertTrack(ctx context.Context, track domain.StoredTrack) error
}

type Backfill struct {
	store  TrackStore
	lookup TrackLookup
}

func NewBackfill(store TrackStore, lookup TrackLookup) *Backfill {
	return &Backfill{store: store, lookup: lookup}
}

// Run repairs up to limit sparse tracks rows via catalog lookup. Rows
// the catalog does not know stay as they are and count as missed.
func (b *Backfill) Run(ctx context.Context, limit int) (domain.BackfillReport, error) {
	ids, err := b.store.MissingTracks(ctx, limit)
	if err != nil {
		return domain.BackfillReport{}, err
	}

	report := domain.BackfillReport{Scanned: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		track, found, err := b.lookup.Lookup(ctx, id)
		if err != nil {
			slog.Warn("backfill lookup failed",
				slog.String("trackId", id),
				slog.String("error", err.Error()),
			)
			report.Missed++
			continue
		}
		if !found {
			report.Missed++
			continue
		}

		stored := domain.StoredTrack{
			TrackID:    id,
			Title:      track.Title,
			Artist:     track.Artist,
			Album:      track.Album,
			ArtURL:     track.AlbumArtURL,
			StoreURL:   track.StoreURL,
			PreviewURL: track.PreviewURL,
		}
		if err := b.store.UpsertTrack(ctx, stored); err != nil {
			slog.Warn("backfill upsert failed",
				slog.String("trackId", id),
				slog.String("error", err.Error()),
			)
			report.Missed++
			continue
		}
		report.Updated++

		// Be polite to the catalog API between lookups.
		select {
		case <-ctx.Done():
			return report, ctx.Err()
		case <-time.After(150 * time.Millisecond):
		}
	}
	return report, nil
}
