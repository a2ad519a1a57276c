package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string

	// Platform connection
	PlatformURL   string
	PlatformToken string

	// Grouping and display
	OutsideRosterLabel   string
	PriorityQueuePattern string
	PauseReason          string

	// Supervision dial prefixes
	ListenPrefix  string
	WhisperPrefix string
	BargePrefix   string

	// Statistics refresh
	StatsWindow   time.Duration
	StatsInterval time.Duration

	// Reconciliation
	ReloadDebounce time.Duration

	// Dashboard WebSocket timing
	WSReadTimeout  time.Duration
	WSWriteTimeout time.Duration
	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigins:       strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		PlatformURL:          os.Getenv("PLATFORM_URL"),
		PlatformToken:        os.Getenv("PLATFORM_TOKEN"),
		OutsideRosterLabel:   getEnv("OUTSIDE_ROSTER_LABEL", "Outside call center"),
		PriorityQueuePattern: os.Getenv("PRIORITY_QUEUE_PATTERN"),
		PauseReason:          getEnv("PAUSE_REASON", "Paused by supervisor"),
		ListenPrefix:         getEnv("LISTEN_PREFIX", "*34"),
		WhisperPrefix:        getEnv("WHISPER_PREFIX", "*35"),
		BargePrefix:          getEnv("BARGE_PREFIX", "*36"),
	}

	if config.PlatformURL == "" {
		return nil, fmt.Errorf("PLATFORM_URL is required")
	}
	if config.PlatformToken == "" {
		return nil, fmt.Errorf("PLATFORM_TOKEN is required")
	}

	var err error
	if config.StatsWindow, err = getDuration("STATS_WINDOW_MINUTES", 480, time.Minute); err != nil {
		return nil, err
	}
	if config.StatsInterval, err = getDuration("STATS_INTERVAL_SECONDS", 60, time.Second); err != nil {
		return nil, err
	}
	if config.ReloadDebounce, err = getDuration("RELOAD_DEBOUNCE_SECONDS", 2, time.Second); err != nil {
		return nil, err
	}
	if config.WSReadTimeout, err = getDuration("WS_READ_TIMEOUT", 60, time.Second); err != nil {
		return nil, err
	}
	if config.WSWriteTimeout, err = getDuration("WS_WRITE_TIMEOUT", 10, time.Second); err != nil {
		return nil, err
	}

	// Calculate WebSocket constants
	config.PongWait = config.WSReadTimeout
	config.PingPeriod = (config.PongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = config.WSWriteTimeout
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses an integer environment variable into a duration with the
// given unit.
func getDuration(key string, defaultValue int, unit time.Duration) (time.Duration, error) {
	raw := getEnv(key, strconv.Itoa(defaultValue))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return time.Duration(n) * unit, nil
}
