package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath string
	ServerPort   int

	// StaleClaimAfter is how long an in_progress match may go without a
	// committed update before another actor can reclaim it.
	StaleClaimAfter time.Duration
	// CompletionCueWindow is how long spectators show a just-completed cue.
	CompletionCueWindow time.Duration

	SessionLifetime time.Duration
	FeedBuffer      int64

	// AllowedOrigins is the CORS allow list for browser clients.
	AllowedOrigins []string
}

// Load reads the configuration from environment variables. A .env file in
// the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:   getEnv("DATABASE_PATH", "qwizzeria.db"),
		AllowedOrigins: listEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	var err error
	if cfg.ServerPort, err = intEnv("SERVER_PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}

	if cfg.StaleClaimAfter, err = durationEnv("STALE_CLAIM_AFTER", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CompletionCueWindow, err = durationEnv("COMPLETION_CUE_WINDOW", 4*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionLifetime, err = durationEnv("SESSION_LIFETIME", 24*time.Hour); err != nil {
		return nil, err
	}

	buffer, err := intEnv("FEED_BUFFER", 64)
	if err != nil {
		return nil, err
	}
	if buffer < 0 {
		return nil, fmt.Errorf("FEED_BUFFER cannot be negative, got %d", buffer)
	}
	cfg.FeedBuffer = int64(buffer)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}
