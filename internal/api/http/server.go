package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tuneflip/searchservice/internal/domain"
	"tuneflip/searchservice/internal/metrics"
	"tuneflip/searchservice/internal/providers/common"
	"tuneflip/searchservice/internal/search"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type SearchService interface {
	Ranked(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
	Federated(ctx context.Context, request domain.SearchRequest, providers []string) (domain.SearchResponse, error)
	ResolvePreview(ctx context.Context, query domain.PreviewQuery) (domain.PreviewResult, error)
	Providers() []domain.ProviderInfo
	ProviderDiagnostics() []domain.ProviderDiagnostics
}

type EventStore interface {
	InsertEvents(ctx context.Context, events []domain.Event) error
	UpsertTrack(ctx context.Context, track domain.StoredTrack) error
	TrackPerf(ctx context.Context, limit int) ([]domain.TrackPerf, error)
}

type Recommender interface {
	Recommend(ctx context.Context, userID string, limit int) ([]domain.RecTrack, error)
}

type GenreCatalog interface {
	Genres(ctx context.Context) ([]domain.Genre, error)
}

type BackfillRunner interface {
	Run(ctx context.Context, limit int) (domain.BackfillReport, error)
}

type Server struct {
	search    SearchService
	store     EventStore
	recs      Recommender
	genres    GenreCatalog
	backfill  BackfillRunner
	ingestKey string
	logger    *slog.Logger
}

const (
	maxQueryLength   = 500
	maxPerfLimit     = 200
	maxEventsPerCall = 100
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithStore(store EventStore) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

func WithRecommender(recs Recommender) ServerOption {
	return func(s *Server) {
		s.recs = recs
	}
}

func WithGenreCatalog(genres GenreCatalog) ServerOption {
	return func(s *Server) {
		s.genres = genres
	}
}

func WithBackfill(backfill BackfillRunner) ServerOption {
	return func(s *Server) {
		s.backfill = backfill
	}
}

func WithIngestKey(key string) ServerOption {
	return func(s *Server) {
		s.ingestKey = strings.TrimSpace(key)
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search: searchService,
		logger: slog.Default(),
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search/ranked", s.handleRanked)
	mux.HandleFunc("/search/federated", s.handleFederated)
	mux.HandleFunc("/search/preview", s.handlePreview)
	mux.HandleFunc("/search/genres", s.handleGenres)
	mux.HandleFunc("/search/providers", s.handleProviders)
	mux.HandleFunc("/search/providers/health", s.handleProvidersHealth)
	mux.HandleFunc("/events", s.handleEvents)
	mux.HandleFunc("/recs", s.handleRecs)
	mux.HandleFunc("/tracks/perf", s.handleTrackPerf)
	mux.HandleFunc("/tracks/perf/public", s.handleTrackPerfPublic)
	mux.HandleFunc("/tracks/backfill", s.handleBackfill)
	traced := otelhttp.NewHandler(loggingMiddleware(s.logger, mux), "tuneflip-search",
		otelhttp.WithFilter(func(r *http.Request) bool {
			p := r.URL.Path
			return p != "/metrics" && p != "/health"
		}),
	)
	return recoveryMiddleware(s.logger, rateLimitMiddleware(50, 100, metricsMiddleware(traced)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

type rankedRequestBody struct {
	Query    string                `json:"q"`
	Limit    int                   `json:"limit"`
	Market   string                `json:"market"`
	Source   string                `json:"source"`
	Playable *bool                 `json:"playable"`
	NoCache  bool                  `json:"nocache"`
	Profile  domain.RankingProfile `json:"profile"`
	Weights  domain.Weights        `json:"weights"`
}

func (s *Server) handleRanked(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/ranked" {
		http.NotFound(w, r)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "search service is not configured")
		return
	}

	var request domain.SearchRequest
	switch r.Method {
	case http.MethodGet:
		parsed, err := parseRankedQuery(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		request = parsed
	case http.MethodPost:
		var body rankedRequestBody
		if err := decodeJSONBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		playable := true
		if body.Playable != nil {
			playable = *body.Playable
		}
		request = domain.SearchRequest{
			Query:        body.Query,
			Limit:        body.Limit,
			Market:       body.Market,
			Source:       domain.NormalizeSourcePref(body.Source),
			PlayableOnly: playable,
			Profile:      body.Profile,
			Weights:      body.Weights,
			NoCache:      body.NoCache,
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if len(request.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "query too long (max 500 characters)")
		return
	}

	response, err := s.search.Ranked(r.Context(), request)
	if err != nil {
		s.writeSearchError(w, r, request.Query, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleFederated(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/federated" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "search service is not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "query too long (max 500 characters)")
		return
	}
	limit, err := parsePositiveInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	providers := parseCSV(r.URL.Query().Get("providers"))

	request := domain.SearchRequest{
		Query:        query,
		Limit:        limit,
		Market:       r.URL.Query().Get("market"),
		PlayableOnly: parseOptionalBool(r.URL.Query().Get("playable")),
		NoCache:      parseOptionalBool(r.URL.Query().Get("nocache")),
	}

	response, err := s.search.Federated(r.Context(), request, providers)
	if err != nil {
		s.writeSearchError(w, r, query, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) writeSearchError(w http.ResponseWriter, _ *http.Request, query string, err error) {
	s.logger.Warn("search request failed",
		slog.String("query", truncate(query, 80)),
		slog.String("error", err.Error()),
	)
	switch {
	case errors.Is(err, search.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, search.ErrUnknownProvider):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, search.ErrNoProviders):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "search failed")
	}
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/preview" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "search service is not configured")
		return
	}

	q := r.URL.Query()
	query := domain.PreviewQuery{
		Title:  strings.TrimSpace(q.Get("title")),
		Artist: strings.TrimSpace(q.Get("artist")),
		Album:  strings.TrimSpace(q.Get("album")),
		ISRC:   strings.TrimSpace(q.Get("isrc")),
	}

	result, err := s.search.ResolvePreview(r.Context(), query)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrInvalidQuery):
			writeError(w, http.StatusBadRequest, "title, artist or isrc is required")
		case errors.Is(err, search.ErrPreviewNotFound):
			writeError(w, http.StatusNotFound, "preview not found")
		default:
			writeError(w, http.StatusInternalServerError, "preview lookup failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"url":    result.URL,
		"source": result.Source,
		"format": result.Format,
	})
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/genres" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.genres == nil {
		writeError(w, http.StatusNotImplemented, "genre catalog is not configured")
		return
	}

	genres, err := s.genres.Genres(r.Context())
	if err != nil {
		s.logger.Warn("genre catalog fetch failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "genre catalog unavailable")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"genres": genres,
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/providers" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.search.Providers(),
	})
}

func (s *Server) handleProvidersHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/search/providers/health" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.search.ProviderDiagnostics(),
	})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/events" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.ingestAuthorized(r) {
		w.Header().Set("Cache-Control", "no-store")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if s.store == nil {
		writeError(w, http.StatusInternalServerError, "event store is not configured")
		return
	}

	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rawEvents, err := splitEvents(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(rawEvents) == 0 {
		writeError(w, http.StatusBadRequest, "no events in body")
		return
	}
	if len(rawEvents) > maxEventsPerCall {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many events (max %d)", maxEventsPerCall))
		return
	}

	events := make([]domain.Event, 0, len(rawEvents))
	tracks := make([]domain.StoredTrack, 0, len(rawEvents))
	for _, rawEvent := range rawEvents {
		event, track, parseErr := parseIngestEvent(rawEvent)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, parseErr.Error())
			return
		}
		events = append(events, event)
		if track.TrackID != "" {
			tracks = append(tracks, track)
		}
	}

	for _, track := range tracks {
		if err := s.store.UpsertTrack(r.Context(), track); err != nil {
			s.logger.Error("track upsert failed",
				slog.String("trackId", track.TrackID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "event ingest failed")
			return
		}
	}
	if err := s.store.InsertEvents(r.Context(), events); err != nil {
		s.logger.Error("event insert failed",
			slog.Int("events", len(events)),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "event ingest failed")
		return
	}

	for _, event := range events {
		metrics.EventsIngestedTotal.WithLabelValues(event.Type).Inc()
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"inserted": len(events),
	})
}

func (s *Server) handleRecs(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/recs" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.recs == nil {
		writeError(w, http.StatusNotImplemented, "recommender is not configured")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	limit, err := parsePositiveInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	tracks, err := s.recs.Recommend(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("recommendation failed",
			slog.String("userId", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "recommendation failed")
		return
	}
	if userID == "" {
		userID = "anon"
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"count":   len(tracks),
		"tracks":  tracks,
	})
}

func (s *Server) handleTrackPerf(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/tracks/perf" {
		http.NotFound(w, r)
		return
	}
	if !s.ingestAuthorized(r) {
		w.Header().Set("Cache-Control", "no-store")
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s.serveTrackPerf(w, r)
}

func (s *Server) handleTrackPerfPublic(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/tracks/perf/public" {
		http.NotFound(w, r)
		return
	}
	s.serveTrackPerf(w, r)
}

func (s *Server) serveTrackPerf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		writeError(w, http.StatusInternalServerError, "event store is not configured")
		return
	}
	limit, err := parsePositiveInt(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxPerfLimit {
		limit = maxPerfLimit
	}

	rows, err := s.store.TrackPerf(r.Context(), limit)
	if err != nil {
		s.logger.Error("track perf query failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "track perf query failed")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"items": rows,
	})
}

func (s *Server) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/tracks/backfill" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.ingestAuthorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if s.backfill == nil {
		writeError(w, http.StatusNotImplemented, "backfill is not configured")
		return
	}

	limit, err := parsePositiveInt(r, "limit", 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if limit > maxPerfLimit {
		limit = maxPerfLimit
	}

	report, err := s.backfill.Run(r.Context(), limit)
	if err != nil {
		s.logger.Error("metadata backfill failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "backfill failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"scanned": report.Scanned,
		"updated": report.Updated,
		"missed":  report.Missed,
	})
}

// ingestAuthorized checks the write-side key. An empty configured key
// leaves the write endpoints open, matching local-dev behavior.
func (s *Server) ingestAuthorized(r *http.Request) bool {
	if s.ingestKey == "" {
		return true
	}
	if r.Header.Get("Authorization") == "Bearer "+s.ingestKey {
		return true
	}
	return r.Header.Get("X-Ingest-Key") == s.ingestKey
}

func parseRankedQuery(r *http.Request) (domain.SearchRequest, error) {
	q := r.URL.Query()
	limit, err := parsePositiveInt(r, "limit", 0)
	if err != nil {
		return domain.SearchRequest{}, errors.New("invalid limit")
	}

	weights := domain.Weights{}
	weights.ArtistPenalty, err = parseOptionalFloat(r, "artistPenalty", 0)
	if err != nil {
		return domain.SearchRequest{}, errors.New("invalid artistPenalty")
	}
	weights.AlbumPenalty, err = parseOptionalFloat(r, "albumPenalty", 0)
	if err != nil {
		return domain.SearchRequest{}, errors.New("invalid albumPenalty")
	}
	weights.LikeBoost, err = parseOptionalFloat(r, "likeBoost", 0)
	if err != nil {
		return domain.SearchRequest{}, errors.New("invalid likeBoost")
	}
	weights.DislikePenalty, err = parseOptionalFloat(r, "dislikePenalty", 0)
	if err != nil {
		return domain.SearchRequest{}, errors.New("invalid dislikePenalty")
	}

	playable := true
	if raw := strings.TrimSpace(q.Get("playable")); raw != "" {
		playable = parseOptionalBool(raw)
	}

	return domain.SearchRequest{
		Query:        strings.TrimSpace(q.Get("q")),
		Limit:        limit,
		Market:       q.Get("market"),
		Source:       domain.NormalizeSourcePref(q.Get("source")),
		PlayableOnly: playable,
		NoCache:      parseOptionalBool(q.Get("nocache")),
		Weights:      weights,
	}, nil
}

// parseIngestEvent extracts the indexed event columns and any track
// metadata carried alongside, accepting the field aliases historical
// clients send. The raw body is preserved verbatim as the payload.
func parseIngestEvent(raw json.RawMessage) (domain.Event, domain.StoredTrack, error) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.Event{}, domain.StoredTrack{}, fmt.Errorf("invalid event json: %w", err)
	}

	eventType := strings.TrimSpace(stringField(fields, "type"))
	if eventType == "" {
		eventType = "unknown"
	}

	meta := fields
	if nested, ok := fields["track"].(map[string]any); ok {
		meta = nested
	}

	track := domain.StoredTrack{
		TrackID:    firstString(meta, "track_id", "trackId", "id"),
		Title:      firstString(meta, "title", "trackName", "name"),
		Artist:     firstString(meta, "artist", "artistName"),
		Album:      firstString(meta, "album", "collectionName"),
		ArtURL:     common.UpscaleArtwork(firstString(meta, "art_url", "artUrl", "artworkUrl600", "artworkUrl100")),
		StoreURL:   firstString(meta, "store_url", "trackViewUrl", "url"),
		PreviewURL: firstString(meta, "preview_url", "previewUrl"),
	}

	// The event row id is always generated at insert time; a client
	// "id" field is a track-id alias, so replayed batches append
	// fresh rows instead of colliding on the primary key.
	event := domain.Event{
		UserID:    firstString(fields, "user_id", "userId"),
		SessionID: firstString(fields, "session_id", "sessionId"),
		Type:      eventType,
		TrackID:   track.TrackID,
		TS:        int64Field(fields, "ts"),
		Payload:   raw,
	}
	return event, track, nil
}

// splitEvents accepts either a single event object or a batch envelope
// {"events": [...]}.
func splitEvents(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, errors.New("empty body")
	}
	var envelope struct {
		Events []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("invalid json body: %w", err)
	}
	if len(envelope.Events) > 0 {
		return envelope.Events, nil
	}
	if trimmed[0] != '{' {
		return nil, errors.New("expected a json object")
	}
	return []json.RawMessage{json.RawMessage(trimmed)}, nil
}

func stringField(fields map[string]any, key string) string {
	value, _ := fields[key].(string)
	return value
}

func firstString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		switch value := fields[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		case float64:
			if value != 0 {
				return strconv.FormatFloat(value, 'f', -1, 64)
			}
		}
	}
	return ""
}

func int64Field(fields map[string]any, key string) int64 {
	value, _ := fields[key].(float64)
	return int64(value)
}

func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errors.New("empty body")
	}
	defer r.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	return payload, nil
}

func parseCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		value := strings.ToLower(strings.TrimSpace(part))
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func parseOptionalFloat(r *http.Request, key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"ok":    false,
		"error": message,
	})
}
