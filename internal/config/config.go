// Package config handles application configuration from environment variables
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "text" or "json"

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Scoring policy
	VerifyThreshold int           // score at which step-up verification is required
	BlockThreshold  int           // score at which the transaction is blocked
	AssessTimeout   time.Duration // deadline for the signal collection phase

	// PlatformReputation maps agent platform names (lowercase) to base
	// reputation scores. Loaded from defaults, optionally overridden by the
	// PLATFORM_REPUTATION env var (JSON object, e.g. {"newbot": 70}).
	// Operators can add platforms without a rebuild.
	PlatformReputation map[string]int

	// Reputation snapshots
	SnapshotInterval time.Duration

	// Security
	AdminSecret    string // shared secret for administrative endpoints
	RateLimitRPM   int
	AllowedOrigins []string

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint; tracing disabled if empty
}

// Defaults
const (
	DefaultPort             = "8080"
	DefaultEnv              = "development"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultVerifyThreshold  = 50
	DefaultBlockThreshold   = 80
	DefaultAssessTimeout    = 2 * time.Second
	DefaultSnapshotInterval = time.Hour
	DefaultRateLimit        = 120
)

// DefaultPlatformReputation is the shipped base-reputation table for known
// agent platforms. Unrecognized platforms score 30 (see reputation package).
var DefaultPlatformReputation = map[string]int{
	"chatgpt":   95,
	"retell":    90,
	"vapi":      88,
	"bland":     85,
	"voiceflow": 85,
	"voice":     80,
}

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:          getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		VerifyThreshold:    getEnvInt("VERIFY_THRESHOLD", DefaultVerifyThreshold),
		BlockThreshold:     getEnvInt("BLOCK_THRESHOLD", DefaultBlockThreshold),
		AssessTimeout:      getEnvDuration("ASSESS_TIMEOUT", DefaultAssessTimeout),
		SnapshotInterval:   getEnvDuration("SNAPSHOT_INTERVAL", DefaultSnapshotInterval),
		AdminSecret:        os.Getenv("ADMIN_SECRET"),
		RateLimitRPM:       getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		OTLPEndpoint:       os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		PlatformReputation: loadPlatformReputation(),
	}

	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = splitCSV(origins)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadPlatformReputation merges PLATFORM_REPUTATION overrides over the
// shipped defaults. Malformed JSON falls back to defaults.
func loadPlatformReputation() map[string]int {
	table := make(map[string]int, len(DefaultPlatformReputation))
	for k, v := range DefaultPlatformReputation {
		table[k] = v
	}

	raw := os.Getenv("PLATFORM_REPUTATION")
	if raw == "" {
		return table
	}

	var overrides map[string]int
	if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
		return table
	}
	for k, v := range overrides {
		table[k] = v
	}
	return table
}

// Validate checks that all required configuration is present and coherent
func (c *Config) Validate() error {
	if c.VerifyThreshold < 0 || c.VerifyThreshold > 100 {
		return fmt.Errorf("VERIFY_THRESHOLD must be in [0,100], got %d", c.VerifyThreshold)
	}
	if c.BlockThreshold < 0 || c.BlockThreshold > 100 {
		return fmt.Errorf("BLOCK_THRESHOLD must be in [0,100], got %d", c.BlockThreshold)
	}
	if c.VerifyThreshold >= c.BlockThreshold {
		return fmt.Errorf("VERIFY_THRESHOLD (%d) must be below BLOCK_THRESHOLD (%d)",
			c.VerifyThreshold, c.BlockThreshold)
	}
	for platform, score := range c.PlatformReputation {
		if score < 0 || score > 100 {
			return fmt.Errorf("platform reputation for %q must be in [0,100], got %d", platform, score)
		}
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
