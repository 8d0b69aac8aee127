package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Config struct {
	TMDB    TMDBConfig
	OMDB    OMDBConfig
	HTTP    HTTPConfig
	Collect CollectConfig
	Storage StorageConfig
	Log     LogConfig
}

type TMDBConfig struct {
	BaseURL  string
	Token    string
	Language string
}

type OMDBConfig struct {
	BaseURL string
	APIKey  string
}

type HTTPConfig struct {
	Timeout time.Duration
	// RateLimit caps requests per second; 0 means unlimited.
	RateLimit float64
}

type CollectConfig struct {
	CheckpointEvery int
	Delay           time.Duration
	MaxAttempts     int
	BackoffBase     time.Duration
	RetryFailed     bool
}

// Storage backends.
const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

type StorageConfig struct {
	Backend string
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		TMDB: TMDBConfig{
			BaseURL:  "https://api.themoviedb.org/3",
			Language: "en-US",
		},
		OMDB: OMDBConfig{
			BaseURL: "http://www.omdbapi.com/",
		},
		HTTP: HTTPConfig{
			Timeout: 20 * time.Second,
		},
		Collect: CollectConfig{
			CheckpointEvery: 500,
			Delay:           350 * time.Millisecond,
			MaxAttempts:     3,
			BackoffBase:     time.Second,
		},
		Storage: StorageConfig{
			Backend: BackendCSV,
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ErrMissingCredential is returned by RequireTMDB and RequireOMDB.
var ErrMissingCredential = errors.New("missing credential")

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.cinema.app) and secrets
// fall back to macOS Keychain (service: cinema).
// Elsewhere the backend is a JSON file at $XDG_CONFIG_HOME/cinema/config.json
// and secrets fall back to $XDG_DATA_HOME/cinema/secrets.json.
//
// Environment variables (CINEMA_*) override backend values on all platforms.
// Credentials are not required here; see RequireTMDB and RequireOMDB.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, kc)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applySecrets fills secret keys still empty after env overrides from the
// secret store.
func applySecrets(cfg *Config, kc keychain) {
	for _, s := range specs {
		if !s.secret || s.extract(*cfg).(string) != "" {
			continue
		}
		if v, err := kc.Get(keychainService, s.account); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}

// Validate checks values that would otherwise fail deep inside a run.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendCSV, BackendSQLite:
	default:
		return fmt.Errorf("invalid storage.backend %q: want %s or %s", c.Storage.Backend, BackendCSV, BackendSQLite)
	}
	if c.Collect.MaxAttempts < 1 {
		return fmt.Errorf("invalid collect.max_attempts %d: must be at least 1", c.Collect.MaxAttempts)
	}
	if c.Collect.CheckpointEvery < 0 {
		return fmt.Errorf("invalid collect.checkpoint_every %d: must not be negative", c.Collect.CheckpointEvery)
	}
	if c.Collect.Delay < 0 || c.Collect.BackoffBase < 0 || c.HTTP.Timeout < 0 {
		return errors.New("durations must not be negative")
	}
	if c.HTTP.RateLimit < 0 {
		return fmt.Errorf("invalid http.rate_limit %v: must not be negative", c.HTTP.RateLimit)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", s, err)
	}
	return l, nil
}

// RequireTMDB returns an error naming where to put the TMDB token if it is
// not configured.
func (c Config) RequireTMDB() error {
	if c.TMDB.Token != "" {
		return nil
	}
	return fmt.Errorf("%w: TMDB read access token. Set it via environment variable CINEMA_TMDB_TOKEN%s",
		ErrMissingCredential, secretHint("tmdb_token"))
}

// RequireOMDB returns an error naming where to put the OMDb key if it is
// not configured.
func (c Config) RequireOMDB() error {
	if c.OMDB.APIKey != "" {
		return nil
	}
	return fmt.Errorf("%w: OMDb API key. Set it via environment variable CINEMA_OMDB_API_KEY%s",
		ErrMissingCredential, secretHint("omdb_api_key"))
}

const keychainService = "cinema"

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
