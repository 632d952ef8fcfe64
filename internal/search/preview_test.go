package search

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"tuneflip/searchservice/internal/domain"
)

type previewProvider struct {
	name   string
	result domain.PreviewResult
	err    error
	hits   atomic.Int32
}

func (p *previewProvider) Name() string { return p.name }

func (p *previewProvider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{Name: p.name, Label: p.name, Kind: "test", Enabled: true}
}

func (p *previewProvider) Search(ctx context.Context, query domain.ProviderQuery) ([]domain.Track, error) {
	return nil, nil
}

func (p *previewProvider) FindPreview(ctx context.Context, query domain.PreviewQuery) (domain.PreviewResult, error) {
	p.hits.Add(1)
	return p.result, p.err
}

func TestResolvePreviewWalksChainInOrder(t *testing.T) {
	deezer := &previewProvider{name: "deezer"}
	napster := &previewProvider{name: "napster", result: domain.PreviewResult{
		URL: "https://listen.napster/p.mp3", Source: "napster", Format: "mp3",
	}}
	itunes := &previewProvider{name: "itunes", result: domain.PreviewResult{
		URL: "https://audio.itunes/p.m4a", Source: "itunes", Format: "m4a",
	}}
	service := NewService([]Provider{itunes, deezer, napster}, time.Second)

	result, err := service.ResolvePreview(context.Background(), domain.PreviewQuery{
		Title: "Hello", Artist: "Adele",
	})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if result.Source != "napster" {
		t.Fatalf("expected first non-empty hop to win, got %q", result.Source)
	}
	if deezer.hits.Load() != 1 {
		t.Fatalf("deezer should be consulted first")
	}
	if itunes.hits.Load() != 0 {
		t.Fatalf("itunes should not be reached once napster answered")
	}
}

func TestResolvePreviewSkipsFailingProvider(t *testing.T) {
	deezer := &previewProvider{name: "deezer", err: errors.New("upstream 503")}
	itunes := &previewProvider{name: "itunes", result: domain.PreviewResult{
		URL: "https://audio.itunes/p.m4a", Source: "itunes", Format: "m4a",
	}}
	service := NewService([]Provider{itunes, deezer}, time.Second)

	result, err := service.ResolvePreview(context.Background(), domain.PreviewQuery{
		Title: "Hello", Artist: "Adele",
	})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if result.Source != "itunes" {
		t.Fatalf("expected fallback past failing hop, got %q", result.Source)
	}
}

func TestResolvePreviewNotFound(t *testing.T) {
	service := NewService([]Provider{
		&previewProvider{name: "deezer"},
		&previewProvider{name: "itunes"},
	}, time.Second)

	_, err := service.ResolvePreview(context.Background(), domain.PreviewQuery{Title: "Obscure"})
	if !errors.Is(err, ErrPreviewNotFound) {
		t.Fatalf("expected ErrPreviewNotFound, got %v", err)
	}
}

func TestResolvePreviewRequiresIdentity(t *testing.T) {
	service := NewService([]Provider{&previewProvider{name: "deezer"}}, time.Second)

	_, err := service.ResolvePreview(context.Background(), domain.PreviewQuery{Album: "Only Album"})
	if !errors.Is(err, ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestResolvePreviewCustomChain(t *testing.T) {
	itunes := &previewProvider{name: "itunes", result: domain.PreviewResult{
		URL: "https://audio.itunes/p.m4a", Source: "itunes", Format: "m4a",
	}}
	deezer := &previewProvider{name: "deezer", result: domain.PreviewResult{
		URL: "https://cdn.deezer/p.mp3", Source: "deezer", Format: "mp3",
	}}
	service := NewService([]Provider{itunes, deezer}, time.Second, WithPreviewChain("itunes", "deezer"))

	result, err := service.ResolvePreview(context.Background(), domain.PreviewQuery{ISRC: "GBBKS1500214"})
	if err != nil {
		t.Fatalf("resolve error: %v", err)
	}
	if result.Source != "itunes" {
		t.Fatalf("custom chain order ignored, got %q", result.Source)
	}
}
