package search

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"tuneflip/searchservice/internal/domain"
	"tuneflip/searchservice/internal/metrics"
)

const (
	defaultCacheTTL        = 5 * time.Minute
	defaultCacheMaxEntries = 400
)

type cachedResponse struct {
	response  domain.SearchResponse
	updatedAt time.Time
	expiresAt time.Time
}

func (s *Service) cacheLookup(ctx context.Context, key string, now time.Time) (domain.SearchResponse, bool) {
	if s.redisCache != nil {
		resp, found, err := s.redisCache.Get(ctx, key)
		if err == nil && found {
			metrics.CacheHitsTotal.Inc()
			return resp, true
		}
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entry, ok := s.cache[key]
	if !ok {
		metrics.CacheMissesTotal.Inc()
		return domain.SearchResponse{}, false
	}
	if now.After(entry.expiresAt) {
		delete(s.cache, key)
		metrics.CacheMissesTotal.Inc()
		return domain.SearchResponse{}, false
	}
	metrics.CacheHitsTotal.Inc()
	return cloneSearchResponse(entry.response), true
}

func (s *Service) cacheStore(ctx context.Context, key string, response domain.SearchResponse, now time.Time) {
	ttl := s.cacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	if s.redisCache != nil {
		_ = s.redisCache.Set(ctx, key, response, ttl)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache[key] = &cachedResponse{
		response:  cloneSearchResponse(response),
		updatedAt: now,
		expiresAt: now.Add(ttl),
	}
	s.trimCacheLocked(now)
}

func (s *Service) trimCacheLocked(now time.Time) {
	for key, entry := range s.cache {
		if now.After(entry.expiresAt) {
			delete(s.cache, key)
		}
	}
	if len(s.cache) <= defaultCacheMaxEntries {
		return
	}

	type pair struct {
		key   string
		entry *cachedResponse
	}
	items := make([]pair, 0, len(s.cache))
	for key, entry := range s.cache {
		items = append(items, pair{key: key, entry: entry})
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].entry.updatedAt.Before(items[j].entry.updatedAt)
	})
	for i := 0; i < len(items)-defaultCacheMaxEntries; i++ {
		delete(s.cache, items[i].key)
	}
}

// cloneSearchResponse deep-copies the parts a caller could mutate, so
// cached entries stay stable across requests.
func cloneSearchResponse(response domain.SearchResponse) domain.SearchResponse {
	cloned := response
	if response.Items != nil {
		cloned.Items = make([]domain.Track, len(response.Items))
		for i, item := range response.Items {
			copied := item
			if item.IDs != nil {
				copied.IDs = make(map[string]string, len(item.IDs))
				for k, v := range item.IDs {
					copied.IDs[k] = v
				}
			}
			if item.Links != nil {
				copied.Links = make(map[string]string, len(item.Links))
				for k, v := range item.Links {
					copied.Links[k] = v
				}
			}
			cloned.Items[i] = copied
		}
	}
	if response.Providers != nil {
		cloned.Providers = append([]domain.ProviderStatus(nil), response.Providers...)
	}
	return cloned
}

func buildCacheKey(kind string, prepared preparedSearch) string {
	return strings.Join([]string{
		kind,
		"q=" + strings.ToLower(prepared.query),
		"l=" + strconv.Itoa(prepared.limit),
		"m=" + prepared.market,
		"src=" + string(prepared.source),
		"play=" + strconv.FormatBool(prepared.playableOnly),
		"profile=" + profileKey(prepared.profile),
		"w=" + weightsKey(prepared.weights),
		"p=" + strings.Join(prepared.providerNames, ","),
	}, "|")
}

// profileKey fingerprints the per-user ranking signals. Like and
// affinity maps fold down to sorted key=value runs so equal profiles
// always produce the same key.
func profileKey(profile domain.RankingProfile) string {
	parts := []string{
		"ra=" + strings.ToLower(strings.Join(profile.RecentArtists, ",")),
		"rb=" + strings.ToLower(strings.Join(profile.RecentAlbums, ",")),
	}
	if len(profile.Likes) > 0 {
		keys := make([]string, 0, len(profile.Likes))
		for key := range profile.Likes {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		likes := make([]string, 0, len(keys))
		for _, key := range keys {
			likes = append(likes, key+"="+strconv.Itoa(profile.Likes[key]))
		}
		parts = append(parts, "lk="+strings.Join(likes, ","))
	}
	if len(profile.ArtistAffinity) > 0 {
		keys := make([]string, 0, len(profile.ArtistAffinity))
		for key := range profile.ArtistAffinity {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		affinity := make([]string, 0, len(keys))
		for _, key := range keys {
			affinity = append(affinity, key+"="+strconv.FormatFloat(profile.ArtistAffinity[key], 'f', 3, 64))
		}
		parts = append(parts, "af="+strings.Join(affinity, ","))
	}
	return strings.Join(parts, ";")
}

func weightsKey(weights domain.Weights) string {
	format := func(value float64) string {
		return strconv.FormatFloat(value, 'f', 3, 64)
	}
	return strings.Join([]string{
		format(weights.ArtistPenalty),
		format(weights.AlbumPenalty),
		format(weights.LikeBoost),
		format(weights.DislikePenalty),
	}, ",")
}
