package search

import (
	"context"
	"errors"
	"strings"

	"log/slog"

	"tuneflip/searchservice/internal/domain"
)

var ErrPreviewNotFound = errors.New("no preview found")

// ResolvePreview walks the preview chain (deezer, then napster, then
// itunes by default) until a provider yields a playable URL. Provider
// errors are logged and skipped; only an empty chain result is an
// error to the caller.
func (s *Service) ResolvePreview(ctx context.Context, query domain.PreviewQuery) (domain.PreviewResult, error) {
	if strings.TrimSpace(query.Title) == "" && strings.TrimSpace(query.Artist) == "" && strings.TrimSpace(query.ISRC) == "" {
		return domain.PreviewResult{}, ErrInvalidQuery
	}

	for _, name := range s.previewChain {
		provider, ok := s.provider(name)
		if !ok || !providerEnabled(provider) {
			continue
		}
		finder, ok := provider.(PreviewFinder)
		if !ok {
			continue
		}

		result, err := finder.FindPreview(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return domain.PreviewResult{}, ctx.Err()
			}
			slog.Warn("preview lookup failed",
				slog.String("provider", name),
				slog.String("title", query.Title),
				slog.String("artist", query.Artist),
				slog.String("error", err.Error()),
			)
			continue
		}
		if result.URL != "" {
			return result, nil
		}
	}
	return domain.PreviewResult{}, ErrPreviewNotFound
}
