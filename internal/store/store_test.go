package store

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"tuneflip/searchservice/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	s := openTestStore(t)

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("query schema_migrations: %v", err)
	}
	if count != len(migrations) {
		t.Fatalf("applied migrations = %d, want %d", count, len(migrations))
	}

	for _, table := range []string{"events", "tracks"} {
		var name string
		err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}
	var view string
	err := s.DB().QueryRow("SELECT name FROM sqlite_master WHERE type = 'view' AND name = 'v_track_perf_7d'").Scan(&view)
	if err != nil {
		t.Fatalf("view v_track_perf_7d missing: %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/events.db"

	s, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("query schema_migrations: %v", err)
	}
	if count != len(migrations) {
		t.Fatalf("applied migrations = %d, want %d", count, len(migrations))
	}
}

func TestInsertEventsFillsDefaults(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.InsertEvents(ctx, []domain.Event{
		{Type: "like", TrackID: "t1"},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	var id, userID string
	var ts int64
	err = s.DB().QueryRow("SELECT id, user_id, ts FROM events").Scan(&id, &userID, &ts)
	if err != nil {
		t.Fatalf("query event: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated event id")
	}
	if userID != "anon" {
		t.Fatalf("user_id = %q, want anon", userID)
	}
	if ts <= 0 {
		t.Fatalf("ts = %d, want current time", ts)
	}
}

func TestInsertEventsRollsBackBatchOnFailure(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Duplicate primary key inside one batch fails the second row and
	// must discard the first too.
	err := s.InsertEvents(ctx, []domain.Event{
		{ID: "dup", Type: "like", TrackID: "t1", TS: 1},
		{ID: "dup", Type: "nope", TrackID: "t2", TS: 2},
	})
	if err == nil {
		t.Fatal("expected insert error")
	}

	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 0 {
		t.Fatalf("events after rollback = %d, want 0", count)
	}
}

func TestInsertEventsAppendsReplayedBatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	batch := []domain.Event{
		{UserID: "u1", Type: "like", TrackID: "t1", TS: 100},
		{UserID: "u1", Type: "skip", TrackID: "t2", TS: 200},
	}
	for i := 0; i < 2; i++ {
		if err := s.InsertEvents(ctx, batch); err != nil {
			t.Fatalf("replay %d: insert: %v", i, err)
		}
	}

	// Replaying the same batch appends; the log never dedupes.
	var count int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM events").Scan(&count); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 4 {
		t.Fatalf("events = %d, want 4 after replay", count)
	}
	var distinct int
	if err := s.DB().QueryRow("SELECT COUNT(DISTINCT id) FROM events").Scan(&distinct); err != nil {
		t.Fatalf("count distinct ids: %v", err)
	}
	if distinct != 4 {
		t.Fatalf("distinct ids = %d, want 4", distinct)
	}
}

func TestInsertEventsKeepsPayloadVerbatim(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	raw := json.RawMessage(`{"type":"progress","ms_played_chunk":1500,"extra":"kept"}`)
	err := s.InsertEvents(ctx, []domain.Event{
		{ID: "e1", Type: "progress", TrackID: "t1", TS: 10, Payload: raw},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	var payload string
	if err := s.DB().QueryRow("SELECT payload FROM events WHERE id = 'e1'").Scan(&payload); err != nil {
		t.Fatalf("query payload: %v", err)
	}
	if payload != string(raw) {
		t.Fatalf("payload = %q, want %q", payload, string(raw))
	}
}

func TestUpsertTrackDoesNotClobberWithEmptyFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.UpsertTrack(ctx, domain.StoredTrack{
		TrackID:    "t1",
		Title:      "Hello",
		Artist:     "Adele",
		ArtURL:     "https://img/600x600bb.jpg",
		PreviewURL: "https://audio/p.m4a",
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Second write carries only album; everything else stays.
	err = s.UpsertTrack(ctx, domain.StoredTrack{TrackID: "t1", Album: "25"})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	track, ok, err := s.GetTrack(ctx, "t1")
	if err != nil {
		t.Fatalf("get track: %v", err)
	}
	if !ok {
		t.Fatal("track not found")
	}
	if track.Title != "Hello" || track.Artist != "Adele" {
		t.Fatalf("metadata clobbered: %+v", track)
	}
	if track.Album != "25" {
		t.Fatalf("album = %q, want 25", track.Album)
	}
	if track.ArtURL != "https://img/600x600bb.jpg" || track.PreviewURL != "https://audio/p.m4a" {
		t.Fatalf("urls clobbered: %+v", track)
	}
}

func TestUpsertTrackOverwritesWithNonEmptyFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.UpsertTrack(ctx, domain.StoredTrack{TrackID: "t1", Title: "Old"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := s.UpsertTrack(ctx, domain.StoredTrack{TrackID: "t1", Title: "New"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	track, _, err := s.GetTrack(ctx, "t1")
	if err != nil {
		t.Fatalf("get track: %v", err)
	}
	if track.Title != "New" {
		t.Fatalf("title = %q, want New", track.Title)
	}
}

func TestUpsertTrackRequiresID(t *testing.T) {
	s := openTestStore(t)

	err := s.UpsertTrack(context.Background(), domain.StoredTrack{Title: "No ID"})
	if err == nil {
		t.Fatal("expected error for missing track_id")
	}
	if !strings.Contains(err.Error(), "track_id") {
		t.Fatalf("error = %v, want track_id mention", err)
	}
}

func TestUserSignalsAggregatesPerTrack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	events := []domain.Event{
		{ID: "e1", UserID: "u1", Type: "like", TrackID: "t1", TS: now - 1000},
		{ID: "e2", UserID: "u1", Type: "like", TrackID: "t1", TS: now - 900},
		{ID: "e3", UserID: "u1", Type: "nope", TrackID: "t1", TS: now - 800},
		{ID: "e4", UserID: "u1", Type: "skip", TrackID: "t1", TS: now - 700},
		{ID: "e5", UserID: "u1", Type: "dislike", TrackID: "t1", TS: now - 600},
		{ID: "e6", UserID: "u1", Type: "progress", TrackID: "t1", TS: now - 500,
			Payload: json.RawMessage(`{"ms_played_chunk":1500}`)},
		{ID: "e7", UserID: "u1", Type: "progress", TrackID: "t1", TS: now - 400,
			Payload: json.RawMessage(`{"ms_played_chunk":2500}`)},
		// Another user's like only counts globally.
		{ID: "e8", UserID: "u2", Type: "like", TrackID: "t1", TS: now - 300},
		// No track id, ignored everywhere.
		{ID: "e9", UserID: "u1", Type: "like", TS: now - 200},
	}
	if err := s.InsertEvents(ctx, events); err != nil {
		t.Fatalf("insert: %v", err)
	}

	signals, err := s.UserSignals(ctx, "u1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("user signals: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("signal rows = %d, want 1", len(signals))
	}

	row := signals[0]
	if row.TrackID != "t1" {
		t.Fatalf("track_id = %q, want t1", row.TrackID)
	}
	if row.Likes != 2 {
		t.Fatalf("likes = %d, want 2", row.Likes)
	}
	if row.Nopes != 1 {
		t.Fatalf("nopes = %d, want 1", row.Nopes)
	}
	if row.Skips != 2 {
		t.Fatalf("skips = %d, want 2 (skip + dislike)", row.Skips)
	}
	if row.MsPlayed != 4000 {
		t.Fatalf("ms_played = %d, want 4000", row.MsPlayed)
	}
	if row.LastTS != now-400 {
		t.Fatalf("last_ts = %d, want %d", row.LastTS, now-400)
	}
	if row.GlobalEvents != 8 {
		t.Fatalf("global_events = %d, want 8", row.GlobalEvents)
	}
	if row.GlobalLikes != 3 {
		t.Fatalf("global_likes = %d, want 3", row.GlobalLikes)
	}
}

func TestUserSignalsRespectsCutoff(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	events := []domain.Event{
		{ID: "old", UserID: "u1", Type: "like", TrackID: "t1", TS: now - 48*3600*1000},
		{ID: "new", UserID: "u1", Type: "like", TrackID: "t2", TS: now - 1000},
	}
	if err := s.InsertEvents(ctx, events); err != nil {
		t.Fatalf("insert: %v", err)
	}

	signals, err := s.UserSignals(ctx, "u1", time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("user signals: %v", err)
	}
	if len(signals) != 1 || signals[0].TrackID != "t2" {
		t.Fatalf("signals = %+v, want only t2", signals)
	}
}

func TestGlobalTopOrdersByActivity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	events := []domain.Event{
		{ID: "e1", UserID: "u1", Type: "like", TrackID: "busy", TS: now - 100},
		{ID: "e2", UserID: "u2", Type: "start", TrackID: "busy", TS: now - 90},
		{ID: "e3", UserID: "u3", Type: "like", TrackID: "busy", TS: now - 80},
		{ID: "e4", UserID: "u1", Type: "start", TrackID: "quiet", TS: now - 70},
		// Same event count as quiet but more likes wins the tiebreak.
		{ID: "e5", UserID: "u1", Type: "like", TrackID: "liked", TS: now - 60},
	}
	if err := s.InsertEvents(ctx, events); err != nil {
		t.Fatalf("insert: %v", err)
	}

	top, err := s.GlobalTop(ctx, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("global top: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("rows = %d, want 3", len(top))
	}
	if top[0].TrackID != "busy" || top[0].GlobalEvents != 3 {
		t.Fatalf("top row = %+v, want busy with 3 events", top[0])
	}
	if top[1].TrackID != "liked" {
		t.Fatalf("second row = %q, want liked (like tiebreak)", top[1].TrackID)
	}
}

func TestGlobalTopHonorsLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	events := []domain.Event{
		{ID: "e1", Type: "like", TrackID: "a", TS: now},
		{ID: "e2", Type: "like", TrackID: "b", TS: now},
		{ID: "e3", Type: "like", TrackID: "c", TS: now},
	}
	if err := s.InsertEvents(ctx, events); err != nil {
		t.Fatalf("insert: %v", err)
	}

	top, err := s.GlobalTop(ctx, time.Now().Add(-time.Hour), 2)
	if err != nil {
		t.Fatalf("global top: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("rows = %d, want 2", len(top))
	}
}

func TestTrackPerfRollsUpSevenDays(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	events := []domain.Event{
		{ID: "e1", Type: "impression", TrackID: "t1", TS: now - 1000},
		{ID: "e2", Type: "impression", TrackID: "t1", TS: now - 900},
		{ID: "e3", Type: "start", TrackID: "t1", TS: now - 800},
		{ID: "e4", Type: "like", TrackID: "t1", TS: now - 700},
		{ID: "e5", Type: "progress", TrackID: "t1", TS: now - 600,
			Payload: json.RawMessage(`{"ms_played_chunk":3000,"play_ratio":0.5}`)},
		// Outside the 7-day window, must not count.
		{ID: "e6", Type: "impression", TrackID: "t1", TS: now - 8*86400*1000},
	}
	if err := s.InsertEvents(ctx, events); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.UpsertTrack(ctx, domain.StoredTrack{TrackID: "t1", Title: "Hello", Artist: "Adele"}); err != nil {
		t.Fatalf("upsert track: %v", err)
	}

	items, err := s.TrackPerf(ctx, 10)
	if err != nil {
		t.Fatalf("track perf: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("rows = %d, want 1", len(items))
	}

	row := items[0]
	if row.Title != "Hello" || row.Artist != "Adele" {
		t.Fatalf("metadata join missing: %+v", row)
	}
	if row.Impressions != 2 || row.Starts != 1 || row.Likes != 1 || row.Nopes != 0 {
		t.Fatalf("counts = %+v", row)
	}
	if row.MsPlayed != 3000 {
		t.Fatalf("ms_played = %d, want 3000", row.MsPlayed)
	}
	if row.StartRate != 0.5 || row.LikeRate != 0.5 {
		t.Fatalf("rates = %f/%f, want 0.5/0.5", row.StartRate, row.LikeRate)
	}
	if row.AvgPlayRatio != 0.5 {
		t.Fatalf("avg_play_ratio = %f, want 0.5", row.AvgPlayRatio)
	}
	if row.Score <= 0 {
		t.Fatalf("score = %f, want positive", row.Score)
	}
}

func TestTrackPerfWithoutMetadataRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	events := []domain.Event{
		{ID: "e1", Type: "impression", TrackID: "orphan", TS: time.Now().UnixMilli()},
	}
	if err := s.InsertEvents(ctx, events); err != nil {
		t.Fatalf("insert: %v", err)
	}

	items, err := s.TrackPerf(ctx, 10)
	if err != nil {
		t.Fatalf("track perf: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("rows = %d, want 1", len(items))
	}
	if items[0].TrackID != "orphan" || items[0].Title != "" {
		t.Fatalf("row = %+v, want orphan with empty metadata", items[0])
	}
}

func TestMissingTracksFindsSparseRows(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UnixMilli()

	events := []domain.Event{
		{ID: "e1", Type: "like", TrackID: "absent", TS: now},
		{ID: "e2", Type: "like", TrackID: "sparse", TS: now},
		{ID: "e3", Type: "like", TrackID: "complete", TS: now},
	}
	if err := s.InsertEvents(ctx, events); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.UpsertTrack(ctx, domain.StoredTrack{TrackID: "sparse", Title: "Only Title"}); err != nil {
		t.Fatalf("upsert sparse: %v", err)
	}
	if err := s.UpsertTrack(ctx, domain.StoredTrack{
		TrackID: "complete", Title: "T", Artist: "A",
		ArtURL: "https://img", PreviewURL: "https://audio",
	}); err != nil {
		t.Fatalf("upsert complete: %v", err)
	}

	ids, err := s.MissingTracks(ctx, 10)
	if err != nil {
		t.Fatalf("missing tracks: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want absent and sparse", ids)
	}
	found := map[string]bool{}
	for _, id := range ids {
		found[id] = true
	}
	if !found["absent"] || !found["sparse"] {
		t.Fatalf("ids = %v, want absent and sparse", ids)
	}
}

func TestGetTrackNotFound(t *testing.T) {
	s := openTestStore(t)

	_, ok, err := s.GetTrack(context.Background(), "nope")
	if err != nil {
		t.Fatalf("get track: %v", err)
	}
	if ok {
		t.Fatal("expected ok=false for absent track")
	}
}
