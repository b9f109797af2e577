// Package config validates and loads the server's environment-derived
// configuration, failing fast with an aggregated error the way a deployed
// service should.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated runtime configuration.
type Config struct {
	Port     string
	GoEnv    string
	LogLevel string

	MaxPlayers int

	DefaultTurnTimer        time.Duration
	DisconnectedTurnTimeout time.Duration
	ReconnectTimeout        time.Duration
	PerRevealDuration       time.Duration
	RoomReapInterval        time.Duration

	DefaultCheeseCount int
	MaxCheeseCount     int

	AllowedOrigins []string

	RateLimitAPIRooms string
	RateLimitWsIP     string
}

const (
	minPlayers            = 3
	defaultMaxPlayers     = 8
	maxPlayersHardCeiling = 60
)

// Load validates all environment variables and returns a Config, or an
// aggregated error describing every problem found.
func Load() (*Config, error) {
	cfg := &Config{}
	var problems []string

	cfg.Port = getEnvOrDefault("PORT", "8080")
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got %q)", cfg.Port))
	}

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.MaxPlayers = getEnvIntOrDefault("MAX_PLAYERS", defaultMaxPlayers)
	if cfg.MaxPlayers < minPlayers || cfg.MaxPlayers > maxPlayersHardCeiling {
		problems = append(problems, fmt.Sprintf("MAX_PLAYERS must be between %d and %d (got %d)", minPlayers, maxPlayersHardCeiling, cfg.MaxPlayers))
	}

	cfg.DefaultTurnTimer = time.Duration(getEnvIntOrDefault("DEFAULT_TURN_TIMER_SECONDS", 30)) * time.Second
	cfg.DisconnectedTurnTimeout = time.Duration(getEnvIntOrDefault("DISCONNECTED_TURN_TIMEOUT_SECONDS", 5)) * time.Second
	cfg.ReconnectTimeout = time.Duration(getEnvIntOrDefault("RECONNECT_TIMEOUT_SECONDS", 60)) * time.Second
	cfg.PerRevealDuration = time.Duration(getEnvIntOrDefault("PER_REVEAL_DURATION_MS", 900)) * time.Millisecond
	cfg.RoomReapInterval = time.Duration(getEnvIntOrDefault("ROOM_REAP_INTERVAL_SECONDS", 30)) * time.Second

	cfg.DefaultCheeseCount = getEnvIntOrDefault("DEFAULT_CHEESE_COUNT", 2)
	cfg.MaxCheeseCount = getEnvIntOrDefault("MAX_CHEESE_COUNT", 3)
	if cfg.DefaultCheeseCount > cfg.MaxCheeseCount {
		problems = append(problems, fmt.Sprintf("DEFAULT_CHEESE_COUNT (%d) cannot exceed MAX_CHEESE_COUNT (%d)", cfg.DefaultCheeseCount, cfg.MaxCheeseCount))
	}

	origins := getEnvOrDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	cfg.AllowedOrigins = strings.Split(origins, ",")

	cfg.RateLimitAPIRooms = getEnvOrDefault("RATE_LIMIT_API_ROOMS", "20-M")
	cfg.RateLimitWsIP = getEnvOrDefault("RATE_LIMIT_WS_IP", "60-M")

	if len(problems) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
