package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tuneflip/searchservice/internal/domain"
)

var (
	ErrInvalidQuery    = errors.New("query is required")
	ErrNoProviders     = errors.New("no search providers configured")
	ErrUnknownProvider = errors.New("unknown provider")
)

type Provider interface {
	Name() string
	Info() domain.ProviderInfo
	Search(ctx context.Context, query domain.ProviderQuery) ([]domain.Track, error)
}

// PreviewFinder is an optional interface for providers that can resolve
// a standalone 30s preview URL. The preview chain walks these.
type PreviewFinder interface {
	FindPreview(ctx context.Context, query domain.PreviewQuery) (domain.PreviewResult, error)
}

// Toggleable is an optional interface for providers that are inert
// without credentials. Disabled providers are skipped by the fan-out.
type Toggleable interface {
	Enabled() bool
}

type Service struct {
	providers     map[string]Provider
	order         []string
	previewChain  []string
	timeout       time.Duration
	overfetch     int
	minFetch      int
	cacheDisabled bool
	cacheTTL      time.Duration
	cacheMu       sync.Mutex
	cache         map[string]*cachedResponse
	redisCache    *RedisCacheBackend
	healthMu      sync.Mutex
	health        map[string]*providerHealth
}

type ServiceOption func(*Service)

func WithRedisCache(backend *RedisCacheBackend) ServiceOption {
	return func(s *Service) {
		s.redisCache = backend
	}
}

func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithCacheDisabled(disabled bool) ServiceOption {
	return func(s *Service) {
		s.cacheDisabled = disabled
	}
}

// WithOverfetch tunes how many candidates each provider is asked for
// relative to the client limit. minFetch applies once the client asks
// for 20 or more.
func WithOverfetch(factor, minFetch int) ServiceOption {
	return func(s *Service) {
		if factor > 0 {
			s.overfetch = factor
		}
		if minFetch > 0 {
			s.minFetch = minFetch
		}
	}
}

// WithPreviewChain sets the provider order walked by ResolvePreview.
func WithPreviewChain(names ...string) ServiceOption {
	return func(s *Service) {
		if len(names) > 0 {
			s.previewChain = names
		}
	}
}

func NewService(providers []Provider, timeout time.Duration, opts ...ServiceOption) *Service {
	registry := make(map[string]Provider, len(providers))
	order := make([]string, 0, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(provider.Name()))
		if name == "" {
			continue
		}
		if _, exists := registry[name]; exists {
			continue
		}
		registry[name] = provider
		order = append(order, name)
	}

	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	svc := &Service{
		providers:    registry,
		order:        order,
		previewChain: []string{"deezer", "napster", "itunes"},
		timeout:      timeout,
		overfetch:    3,
		minFetch:     60,
		cacheTTL:     defaultCacheTTL,
		cache:        make(map[string]*cachedResponse),
		health:       make(map[string]*providerHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *Service) provider(name string) (Provider, bool) {
	p, ok := s.providers[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

func providerEnabled(p Provider) bool {
	if t, ok := p.(Toggleable); ok {
		return t.Enabled()
	}
	return true
}

// Providers lists registered adapters for the diagnostics endpoint,
// sorted by name.
func (s *Service) Providers() []domain.ProviderInfo {
	if len(s.providers) == 0 {
		return nil
	}
	items := make([]domain.ProviderInfo, 0, len(s.providers))
	for name, provider := range s.providers {
		info := provider.Info()
		if info.Name == "" {
			info.Name = name
		}
		info.Name = strings.ToLower(strings.TrimSpace(info.Name))
		if info.Label == "" {
			info.Label = info.Name
		}
		items = append(items, info)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

// resolveProviders maps requested names to adapters, preserving
// registration order when no names are given. Disabled adapters are
// skipped silently on the default path but rejected when named
// explicitly.
func (s *Service) resolveProviders(providerNames []string) ([]Provider, error) {
	if len(s.providers) == 0 {
		return nil, ErrNoProviders
	}

	if len(providerNames) == 0 {
		all := make([]Provider, 0, len(s.order))
		for _, name := range s.order {
			provider := s.providers[name]
			if !providerEnabled(provider) {
				continue
			}
			all = append(all, provider)
		}
		if len(all) == 0 {
			return nil, ErrNoProviders
		}
		return all, nil
	}

	selected := make([]Provider, 0, len(providerNames))
	seen := make(map[string]struct{}, len(providerNames))
	for _, rawName := range providerNames {
		name := strings.ToLower(strings.TrimSpace(rawName))
		if name == "" {
			continue
		}
		provider, ok := s.providers[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
		}
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		selected = append(selected, provider)
	}
	if len(selected) == 0 {
		return nil, ErrNoProviders
	}
	return selected, nil
}
