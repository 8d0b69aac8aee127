package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
	kFloat
	kDuration
)

func (t keyType) String() string {
	switch t {
	case kInt:
		return "integer"
	case kBool:
		return "bool"
	case kFloat:
		return "float"
	case kDuration:
		return "duration"
	default:
		return "string"
	}
}

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	account string // secret store account, secrets only
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "tmdb.base_url", typ: kString, env: "CINEMA_TMDB_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.TMDB.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.TMDB.BaseURL },
	},
	{
		key: "tmdb.token", typ: kString, env: "CINEMA_TMDB_TOKEN",
		secret: true, account: "tmdb_token",
		apply:   func(cfg *Config, v any) { cfg.TMDB.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.TMDB.Token },
	},
	{
		key: "tmdb.language", typ: kString, env: "CINEMA_TMDB_LANGUAGE",
		apply:   func(cfg *Config, v any) { cfg.TMDB.Language = v.(string) },
		extract: func(cfg Config) any { return cfg.TMDB.Language },
	},
	{
		key: "omdb.base_url", typ: kString, env: "CINEMA_OMDB_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OMDB.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OMDB.BaseURL },
	},
	{
		key: "omdb.api_key", typ: kString, env: "CINEMA_OMDB_API_KEY",
		secret: true, account: "omdb_api_key",
		apply:   func(cfg *Config, v any) { cfg.OMDB.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OMDB.APIKey },
	},
	{
		key: "http.timeout", typ: kDuration, env: "CINEMA_HTTP_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.HTTP.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.HTTP.Timeout },
	},
	{
		key: "http.rate_limit", typ: kFloat, env: "CINEMA_HTTP_RATE_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.HTTP.RateLimit = v.(float64) },
		extract: func(cfg Config) any { return cfg.HTTP.RateLimit },
	},
	{
		key: "collect.checkpoint_every", typ: kInt, env: "CINEMA_CHECKPOINT_EVERY",
		apply:   func(cfg *Config, v any) { cfg.Collect.CheckpointEvery = v.(int) },
		extract: func(cfg Config) any { return cfg.Collect.CheckpointEvery },
	},
	{
		key: "collect.delay", typ: kDuration, env: "CINEMA_COLLECT_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Collect.Delay = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Collect.Delay },
	},
	{
		key: "collect.max_attempts", typ: kInt, env: "CINEMA_COLLECT_MAX_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.Collect.MaxAttempts = v.(int) },
		extract: func(cfg Config) any { return cfg.Collect.MaxAttempts },
	},
	{
		key: "collect.backoff_base", typ: kDuration, env: "CINEMA_COLLECT_BACKOFF_BASE",
		apply:   func(cfg *Config, v any) { cfg.Collect.BackoffBase = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Collect.BackoffBase },
	},
	{
		key: "collect.retry_failed", typ: kBool, env: "CINEMA_COLLECT_RETRY_FAILED",
		apply:   func(cfg *Config, v any) { cfg.Collect.RetryFailed = v.(bool) },
		extract: func(cfg Config) any { return cfg.Collect.RetryFailed },
	},
	{
		key: "storage.backend", typ: kString, env: "CINEMA_STORAGE_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Storage.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.Backend },
	},
	{
		key: "storage.data_dir", typ: kString, env: "CINEMA_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "CINEMA_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// parseValue converts raw text to the value type of a spec.
func parseValue(typ keyType, raw string) (any, error) {
	switch typ {
	case kInt:
		return strconv.Atoi(raw)
	case kBool:
		return strconv.ParseBool(raw)
	case kFloat:
		return strconv.ParseFloat(raw, 64)
	case kDuration:
		return time.ParseDuration(raw)
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || (raw == "" && s.typ != kString) {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from config key %s=%q: %v. Using default value.\n", s.typ, s.key, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		v, err := parseValue(s.typ, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse %s from env var %s=%q: %v. Using default value.\n", s.typ, s.env, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
