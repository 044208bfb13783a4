package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Provider ProviderConfig
	Auth     AuthConfig
	Log      LogConfig
	Emulator EmulatorConfig
	Client   ClientConfig
}

// ServerConfig controls the mediation HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 3000
	Mode string // "debug", "release", "test"; default: "release"
}

// ProviderConfig controls the outbound Cloudflare Browser Rendering client.
type ProviderConfig struct {
	// BaseURL is the API root; the account-scoped markdown path is appended.
	BaseURL string // default: "https://api.cloudflare.com/client/v4"

	// Timeout bounds a single provider call, including page rendering.
	Timeout time.Duration // default: 90s

	UserAgent string
}

// AuthConfig controls optional access keys for the mediator itself.
// These are unrelated to the Cloudflare token carried in each request body.
type AuthConfig struct {
	Enabled bool // default: false
	APIKeys []string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// EmulatorConfig controls the local provider emulator mounted under /emulator.
type EmulatorConfig struct {
	Enabled bool // default: false

	// Token is the bearer token the emulator accepts. Empty accepts any non-empty token.
	Token string

	// FetchTimeout bounds the emulator's page download.
	FetchTimeout time.Duration // default: 15s
}

// ClientConfig controls the CLI and MCP clients.
type ClientConfig struct {
	// ServerURL is the mediator's base URL.
	ServerURL string // default: "http://127.0.0.1:3000"

	// CredentialsBackend selects where credentials are remembered: "file", "sqlite" or "memory".
	CredentialsBackend string // default: "file"

	// CredentialsPath overrides the backend's storage location.
	CredentialsPath string

	Timeout time.Duration // default: 120s
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment take precedence.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config: failed to load .env", "error", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: envOr("CFMD_HOST", "0.0.0.0"),
			Port: envIntOr("CFMD_PORT", 3000),
			Mode: envOr("CFMD_MODE", "release"),
		},
		Provider: ProviderConfig{
			BaseURL:   envOr("CFMD_PROVIDER_BASE_URL", "https://api.cloudflare.com/client/v4"),
			Timeout:   envDurationOr("CFMD_PROVIDER_TIMEOUT", 90*time.Second),
			UserAgent: envOr("CFMD_PROVIDER_USER_AGENT", "cfmarkdown/0.1"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("CFMD_AUTH_ENABLED", false),
			APIKeys: envSliceOr("CFMD_API_KEYS", nil),
		},
		Log: LogConfig{
			Level:  envOr("CFMD_LOG_LEVEL", "info"),
			Format: envOr("CFMD_LOG_FORMAT", "json"),
		},
		Emulator: EmulatorConfig{
			Enabled:      envBoolOr("CFMD_EMULATOR", false),
			Token:        os.Getenv("CFMD_EMULATOR_TOKEN"),
			FetchTimeout: envDurationOr("CFMD_EMULATOR_FETCH_TIMEOUT", 15*time.Second),
		},
		Client: ClientConfig{
			ServerURL:          envOr("CFMD_SERVER_URL", "http://127.0.0.1:3000"),
			CredentialsBackend: envOr("CFMD_CREDENTIALS_BACKEND", "file"),
			CredentialsPath:    envOr("CFMD_CREDENTIALS_PATH", ""),
			Timeout:            envDurationOr("CFMD_CLIENT_TIMEOUT", 120*time.Second),
		},
	}
}

// DefaultCredentialsPath returns the per-user location for the given backend,
// rooted at os.UserConfigDir.
func DefaultCredentialsPath(backend string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	name := "credentials.yaml"
	if backend == "sqlite" {
		name = "credentials.db"
	}
	return filepath.Join(dir, "cfmarkdown", name)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
