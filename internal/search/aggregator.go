package search

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	"golang.org/x/sync/semaphore"

	"tuneflip/searchservice/internal/domain"
)

// maxConcurrentProviders bounds simultaneous provider queries so a
// burst of requests cannot open unbounded upstream connections.
const maxConcurrentProviders = 6

const (
	defaultRankedLimit    = 25
	maxRankedLimit        = 50
	defaultFederatedLimit = 20
	maxFederatedLimit     = 100
	maxFetchLimit         = 200
)

type preparedSearch struct {
	query         string
	limit         int
	fetchLimit    int
	market        string
	source        domain.SourcePref
	playableOnly  bool
	profile       domain.RankingProfile
	weights       domain.Weights
	providerNames []string
}

// Ranked runs the tiered playback search: the preferred provider tier
// first, the next tier only when the first yields nothing, then merge,
// score and truncate.
func (s *Service) Ranked(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error) {
	prepared, err := s.prepareRanked(request)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	tiers := s.rankedTiers(prepared.source)
	if len(tiers) == 0 {
		return domain.SearchResponse{}, ErrNoProviders
	}

	cacheKey := buildCacheKey("ranked", prepared)
	if !s.cacheDisabled && !request.NoCache {
		if cached, ok := s.cacheLookup(ctx, cacheKey, time.Now()); ok {
			return cached, nil
		}
	}

	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	startedAt := time.Now()
	statuses := make([]domain.ProviderStatus, 0, 2)
	var merged []domain.Track

	for _, tier := range tiers {
		lists, tierStatuses := s.fanOut(runCtx, tier, domain.ProviderQuery{
			Query:  prepared.query,
			Limit:  prepared.fetchLimit,
			Market: prepared.market,
		})
		statuses = append(statuses, tierStatuses...)
		merged = MergeTracks(lists...)
		if len(merged) > 0 {
			break
		}
	}

	items := merged
	if prepared.playableOnly {
		items = filterPlayable(items)
	}
	items = dedupeByPreview(items)
	items = ScoreTracks(items, prepared.profile, prepared.weights)
	if len(items) > prepared.limit {
		items = items[:prepared.limit]
	}

	source := ""
	if len(items) > 0 {
		source = items[0].Source
	}

	response := domain.SearchResponse{
		OK:        true,
		Query:     prepared.query,
		Source:    source,
		Items:     items,
		Providers: statuses,
		ElapsedMS: time.Since(startedAt).Milliseconds(),
	}

	slog.Info("ranked search completed",
		slog.String("query", prepared.query),
		slog.String("source", source),
		slog.Int("results", len(items)),
		slog.Int64("elapsedMs", response.ElapsedMS),
	)

	if !s.cacheDisabled && !request.NoCache {
		s.cacheStore(ctx, cacheKey, response, time.Now())
	}
	return response, nil
}

// Federated queries every selected provider at once and merges without
// scoring, so the caller sees each recording once with its per-source
// IDs and links unioned.
func (s *Service) Federated(ctx context.Context, request domain.SearchRequest, providerNames []string) (domain.SearchResponse, error) {
	query := strings.TrimSpace(request.Query)
	if query == "" {
		return domain.SearchResponse{}, ErrInvalidQuery
	}
	limit := request.Limit
	if limit <= 0 {
		limit = defaultFederatedLimit
	}
	if limit > maxFederatedLimit {
		limit = maxFederatedLimit
	}

	selected, err := s.resolveProviders(providerNames)
	if err != nil {
		return domain.SearchResponse{}, err
	}

	prepared := preparedSearch{
		query:         query,
		limit:         limit,
		fetchLimit:    s.fetchLimit(limit),
		market:        domain.NormalizeMarket(request.Market),
		playableOnly:  request.PlayableOnly,
		providerNames: namesOf(selected),
	}

	cacheKey := buildCacheKey("federated", prepared)
	if !s.cacheDisabled && !request.NoCache {
		if cached, ok := s.cacheLookup(ctx, cacheKey, time.Now()); ok {
			return cached, nil
		}
	}

	runCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	startedAt := time.Now()
	lists, statuses := s.fanOut(runCtx, selected, domain.ProviderQuery{
		Query:  prepared.query,
		Limit:  prepared.fetchLimit,
		Market: prepared.market,
	})

	items := MergeTracks(lists...)
	if prepared.playableOnly {
		items = filterPlayable(items)
	}
	if len(items) > prepared.limit {
		items = items[:prepared.limit]
	}

	response := domain.SearchResponse{
		OK:        true,
		Query:     prepared.query,
		Items:     items,
		Providers: statuses,
		ElapsedMS: time.Since(startedAt).Milliseconds(),
	}

	failed := 0
	for _, status := range statuses {
		if !status.OK {
			failed++
		}
	}
	slog.Info("federated search completed",
		slog.String("query", prepared.query),
		slog.Int("results", len(items)),
		slog.Int("providers", len(statuses)),
		slog.Int("failed", failed),
		slog.Int64("elapsedMs", response.ElapsedMS),
	)

	if !s.cacheDisabled && !request.NoCache {
		s.cacheStore(ctx, cacheKey, response, time.Now())
	}
	return response, nil
}

// fanOut queries the given providers concurrently and returns their
// result lists positionally, so callers can merge in a deterministic
// provider order regardless of completion order. One status per
// provider; a failure never propagates past its own slot.
func (s *Service) fanOut(ctx context.Context, providers []Provider, query domain.ProviderQuery) ([][]domain.Track, []domain.ProviderStatus) {
	lists := make([][]domain.Track, len(providers))
	statuses := make([]domain.ProviderStatus, len(providers))

	sem := semaphore.NewWeighted(maxConcurrentProviders)
	var wg sync.WaitGroup
	for i, provider := range providers {
		wg.Add(1)
		go func(index int, current Provider) {
			defer wg.Done()

			name := strings.ToLower(strings.TrimSpace(current.Name()))
			if err := sem.Acquire(ctx, 1); err != nil {
				statuses[index] = domain.ProviderStatus{
					Name:  name,
					OK:    false,
					Error: "context cancelled",
				}
				return
			}
			defer sem.Release(1)

			now := time.Now()
			if blocked, until, lastErr := s.isProviderBlocked(name, now); blocked {
				statuses[index] = domain.ProviderStatus{
					Name:  name,
					OK:    false,
					Error: fmt.Sprintf("provider temporarily unhealthy until %s: %s", until.UTC().Format(time.RFC3339), lastErr),
				}
				return
			}

			startedAt := time.Now()
			items, searchErr := current.Search(ctx, query)
			elapsed := time.Since(startedAt)
			s.recordProviderResult(name, query.Query, searchErr, elapsed, time.Now())

			status := domain.ProviderStatus{
				Name:  name,
				OK:    searchErr == nil,
				Count: len(items),
			}
			if searchErr != nil {
				status.Error = searchErr.Error()
				slog.Warn("provider search failed",
					slog.String("provider", name),
					slog.String("query", query.Query),
					slog.Int64("elapsedMs", elapsed.Milliseconds()),
					slog.String("error", searchErr.Error()),
				)
			}
			statuses[index] = status
			lists[index] = items
		}(i, provider)
	}
	wg.Wait()

	return lists, statuses
}

func (s *Service) prepareRanked(request domain.SearchRequest) (preparedSearch, error) {
	query := strings.TrimSpace(request.Query)
	if query == "" {
		return preparedSearch{}, ErrInvalidQuery
	}

	limit := request.Limit
	if limit <= 0 {
		limit = defaultRankedLimit
	}
	if limit > maxRankedLimit {
		limit = maxRankedLimit
	}

	return preparedSearch{
		query:        query,
		limit:        limit,
		fetchLimit:   s.fetchLimit(limit),
		market:       domain.NormalizeMarket(request.Market),
		source:       request.Source,
		playableOnly: request.PlayableOnly,
		profile:      request.Profile,
		weights:      domain.NormalizeWeights(request.Weights),
	}, nil
}

// fetchLimit over-fetches so dedupe and playable filtering still leave
// enough candidates to fill the client limit.
func (s *Service) fetchLimit(limit int) int {
	fetch := limit * s.overfetch
	if limit >= 20 && fetch < s.minFetch {
		fetch = s.minFetch
	}
	if fetch > maxFetchLimit {
		fetch = maxFetchLimit
	}
	return fetch
}

// rankedTiers resolves the provider preference order for a ranked
// search. Unregistered or disabled providers drop out of their tier.
func (s *Service) rankedTiers(pref domain.SourcePref) [][]Provider {
	var names [][]string
	switch pref {
	case domain.SourcePrefSpotify:
		names = [][]string{{"spotify"}, {"itunes"}}
	default:
		names = [][]string{{"itunes"}, {"spotify"}}
	}

	tiers := make([][]Provider, 0, len(names))
	for _, tierNames := range names {
		tier := make([]Provider, 0, len(tierNames))
		for _, name := range tierNames {
			provider, ok := s.provider(name)
			if !ok || !providerEnabled(provider) {
				continue
			}
			tier = append(tier, provider)
		}
		if len(tier) > 0 {
			tiers = append(tiers, tier)
		}
	}
	return tiers
}

func filterPlayable(items []domain.Track) []domain.Track {
	out := make([]domain.Track, 0, len(items))
	for _, item := range items {
		if item.Playable() {
			out = append(out, item)
		}
	}
	return out
}

// dedupeByPreview drops later tracks sharing a preview URL, so the
// client never queues the same audio twice under different titles.
func dedupeByPreview(items []domain.Track) []domain.Track {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.Track, 0, len(items))
	for _, item := range items {
		url := strings.TrimSpace(item.PreviewURL)
		if url != "" {
			if _, exists := seen[url]; exists {
				continue
			}
			seen[url] = struct{}{}
		}
		out = append(out, item)
	}
	return out
}

func namesOf(providers []Provider) []string {
	names := make([]string, 0, len(providers))
	for _, provider := range providers {
		names = append(names, strings.ToLower(strings.TrimSpace(provider.Name())))
	}
	return names
}
