package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the venter server and CLI.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Media      MediaConfig
	Classifier ClassifierConfig
}

type ServerConfig struct {
	Port               int
	Env                string
	RateLimitPerMinute int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL     string
	LockTTL time.Duration
}

type MediaConfig struct {
	Root string
}

type ClassifierConfig struct {
	Provider   string
	BaseURL    string
	Timeout    time.Duration
	ScratchDir string
	TopK       int
}

var validProviders = map[string]bool{
	"routed":  true,
	"keyword": true,
	"remote":  true,
	"mock":    true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               envInt("VENTER_PORT", 8080),
			Env:                envString("VENTER_ENV", "development"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:     os.Getenv("REDIS_URL"),
			LockTTL: envDuration("LOCK_TTL", 10*time.Minute),
		},
		Media: MediaConfig{
			Root: envString("MEDIA_ROOT", "media"),
		},
		Classifier: ClassifierConfig{
			Provider:   envString("CLASSIFIER_PROVIDER", "routed"),
			BaseURL:    os.Getenv("CLASSIFIER_BASE_URL"),
			Timeout:    envDurationSecs("CLASSIFIER_TIMEOUT_SECS", 300*time.Second),
			ScratchDir: os.Getenv("CLASSIFIER_SCRATCH_DIR"),
			TopK:       envInt("CLASSIFIER_TOP_K", 3),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Media.Root == "" {
		return fmt.Errorf("MEDIA_ROOT must not be empty")
	}

	if !validProviders[c.Classifier.Provider] {
		return fmt.Errorf("CLASSIFIER_PROVIDER must be one of routed, keyword, remote, mock; got %q", c.Classifier.Provider)
	}
	if c.Classifier.Provider == "remote" && c.Classifier.BaseURL == "" {
		return fmt.Errorf("CLASSIFIER_BASE_URL is required when CLASSIFIER_PROVIDER is remote")
	}
	if c.Classifier.BaseURL != "" &&
		!strings.HasPrefix(c.Classifier.BaseURL, "http://") && !strings.HasPrefix(c.Classifier.BaseURL, "https://") {
		return fmt.Errorf("CLASSIFIER_BASE_URL must start with http:// or https://, got %q", c.Classifier.BaseURL)
	}

	if c.Classifier.TopK < 1 {
		return fmt.Errorf("CLASSIFIER_TOP_K must be at least 1, got %d", c.Classifier.TopK)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
