package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Codeforces API
	CodeforcesAPIURL string
	FetchCount       int

	// Match
	AnnounceDelay  time.Duration
	PollInterval   time.Duration
	MatchRetention time.Duration

	// Room
	RoomTTL           time.Duration
	RoomSweepInterval time.Duration

	// CORS
	CORSAllowedOrigins []string
}

func Load() (*Config, error) {
	// .env 파일 로드 (있는 경우)
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "3000"),
		Env:               getEnv("ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		CodeforcesAPIURL:  getEnv("CF_API_URL", "https://codeforces.com/api"),
		FetchCount:        10,
		AnnounceDelay:     parseDuration(getEnv("ANNOUNCE_DELAY", "1s"), time.Second),
		PollInterval:      parseDuration(getEnv("POLL_INTERVAL", "5s"), 5*time.Second),
		MatchRetention:    parseDuration(getEnv("MATCH_RETENTION", "60s"), 60*time.Second),
		RoomTTL:           parseDuration(getEnv("ROOM_TTL", "5m"), 5*time.Minute),
		RoomSweepInterval: parseDuration(getEnv("ROOM_SWEEP_INTERVAL", "1m"), time.Minute),
		CORSAllowedOrigins: []string{
			"http://localhost:3000",
			"http://localhost:5173",
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}
