package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr        string
	RequestTimeout  time.Duration
	LogLevel        string
	LogFormat       string
	UserAgent       string
	DefaultMarket   string
	ITunesEndpoint  string
	SpotifyClientID string
	SpotifySecret   string
	NapsterAPIKey   string
	YouTubeAPIKey   string
	RedisURL        string
	CacheTTL        time.Duration
	CacheDisabled   bool
	OverfetchFactor int
	MinFetch        int
	DatabasePath    string
	IngestKey       string
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		RequestTimeout:  time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 8)) * time.Second,
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:       getEnv("SEARCH_USER_AGENT", "tuneflip-search/1.0"),
		DefaultMarket:   strings.ToUpper(getEnv("DEFAULT_MARKET", "US")),
		ITunesEndpoint:  getEnv("SEARCH_PROVIDER_ITUNES_ENDPOINT", "https://itunes.apple.com/search"),
		SpotifyClientID: strings.TrimSpace(os.Getenv("SPOTIFY_CLIENT_ID")),
		SpotifySecret:   strings.TrimSpace(os.Getenv("SPOTIFY_CLIENT_SECRET")),
		NapsterAPIKey:   strings.TrimSpace(os.Getenv("NAPSTER_API_KEY")),
		YouTubeAPIKey:   strings.TrimSpace(os.Getenv("YOUTUBE_API_KEY")),
		RedisURL:        getEnv("REDIS_URL", ""),
		CacheTTL:        time.Duration(getEnvInt("SEARCH_CACHE_TTL_SECONDS", 300)) * time.Second,
		CacheDisabled:   getEnvBool("SEARCH_CACHE_DISABLED", false),
		OverfetchFactor: getEnvInt("SEARCH_OVERFETCH_FACTOR", 3),
		MinFetch:        getEnvInt("SEARCH_MIN_FETCH", 60),
		DatabasePath:    getEnv("DATABASE_PATH", "tuneflip.db"),
		IngestKey:       strings.TrimSpace(os.Getenv("INGEST_KEY")),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
