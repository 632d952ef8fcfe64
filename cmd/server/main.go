package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "tuneflip/searchservice/internal/api/http"
	"tuneflip/searchservice/internal/app"
	"tuneflip/searchservice/internal/metrics"
	"tuneflip/searchservice/internal/providers/deezer"
	"tuneflip/searchservice/internal/providers/itunes"
	"tuneflip/searchservice/internal/providers/musicbrainz"
	"tuneflip/searchservice/internal/providers/napster"
	"tuneflip/searchservice/internal/providers/spotify"
	"tuneflip/searchservice/internal/providers/youtube"
	"tuneflip/searchservice/internal/recs"
	"tuneflip/searchservice/internal/search"
	"tuneflip/searchservice/internal/store"
	"tuneflip/searchservice/internal/tasks"
	"tuneflip/searchservice/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "tuneflip-search")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "tuneflip-search"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.String("itunesEndpoint", cfg.ITunesEndpoint),
		slog.Bool("hasSpotifyCreds", cfg.SpotifyClientID != "" && cfg.SpotifySecret != ""),
		slog.Bool("hasNapsterKey", cfg.NapsterAPIKey != ""),
		slog.Bool("hasYouTubeKey", cfg.YouTubeAPIKey != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasIngestKey", cfg.IngestKey != ""),
		slog.String("databasePath", cfg.DatabasePath),
		slog.Duration("cacheTTL", cfg.CacheTTL),
	)

	newClient := func() *http.Client {
		return &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	itunesProvider := itunes.NewProvider(itunes.Config{
		SearchEndpoint: cfg.ITunesEndpoint,
		UserAgent:      cfg.UserAgent,
		Client:         newClient(),
	})
	searchService := search.NewService([]search.Provider{
		itunesProvider,
		spotify.NewProvider(spotify.Config{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifySecret,
			UserAgent:    cfg.UserAgent,
			Client:       newClient(),
		}),
		deezer.NewProvider(deezer.Config{
			UserAgent: cfg.UserAgent,
			Client:    newClient(),
		}),
		napster.NewProvider(napster.Config{
			APIKey:    cfg.NapsterAPIKey,
			UserAgent: cfg.UserAgent,
			Client:    newClient(),
		}),
		youtube.NewProvider(youtube.Config{
			APIKey:    cfg.YouTubeAPIKey,
			UserAgent: cfg.UserAgent,
			Client:    newClient(),
		}),
		musicbrainz.NewProvider(musicbrainz.Config{
			UserAgent: cfg.UserAgent,
			Client:    newClient(),
		}),
	}, cfg.RequestTimeout, buildServiceOptions(cfg, logger)...)

	eventStore, err := store.Open(cfg.DatabasePath)
	if err != nil {
		logger.Error("store open failed",
			slog.String("path", cfg.DatabasePath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer eventStore.Close()

	recommender := recs.NewRecommender(eventStore)
	backfill := tasks.NewBackfill(eventStore, itunesProvider)

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithStore(eventStore),
		apihttp.WithRecommender(recommender),
		apihttp.WithGenreCatalog(itunesProvider),
		apihttp.WithBackfill(backfill),
		apihttp.WithIngestKey(cfg.IngestKey),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("tuneflip search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("tuneflip search service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildServiceOptions(cfg app.Config, logger *slog.Logger) []search.ServiceOption {
	opts := []search.ServiceOption{
		search.WithOverfetch(cfg.OverfetchFactor, cfg.MinFetch),
	}

	if cfg.CacheDisabled {
		opts = append(opts, search.WithCacheDisabled(true))
		return opts
	}

	if cfg.CacheTTL > 0 {
		opts = append(opts, search.WithCacheTTL(cfg.CacheTTL))
	}

	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL != "" {
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
			return opts
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
			return opts
		}
		logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
		opts = append(opts, search.WithRedisCache(search.NewRedisCacheBackend(redisClient)))
	}

	return opts
}
