// Package config loads chartboard settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Flush modes for the JSON store.
const (
	FlushImmediate = "immediate"
	FlushBatched   = "batched"
)

// Config holds server configuration.
type Config struct {
	Addr           string
	Store          string
	JSONPath       string
	Flush          string
	FlushInterval  time.Duration
	SQLiteDSN      string
	RedisURL       string
	CacheTTL       time.Duration
	Columns        int
	PreviewTimeout time.Duration
	DataBaseURL    string
	DataAPIKey     string
	Catalog        string
	Debug          bool
}

// Default returns the configuration used when no variables are set.
func Default() Config {
	return Config{
		Addr:           ":8080",
		Store:          StoreMemory,
		JSONPath:       "data/db.json",
		Flush:          FlushImmediate,
		FlushInterval:  5 * time.Second,
		SQLiteDSN:      "data/chartboard.db",
		CacheTTL:       time.Minute,
		Columns:        12,
		PreviewTimeout: 5 * time.Second,
	}
}

// Load reads .env.local and .env when present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// MustLoad loads configuration or exits the process on failure.
func MustLoad() Config {
	c, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	return c
}

// FromLookup builds a Config from an environment lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	env := envReader{lookup: lookup}

	c.Addr = env.string("CHARTBOARD_ADDR", c.Addr)
	c.Store = strings.ToLower(env.string("CHARTBOARD_STORE", c.Store))
	c.JSONPath = env.string("CHARTBOARD_JSON_PATH", c.JSONPath)
	c.Flush = strings.ToLower(env.string("CHARTBOARD_FLUSH", c.Flush))
	c.FlushInterval = env.duration("CHARTBOARD_FLUSH_INTERVAL", c.FlushInterval)
	c.SQLiteDSN = env.string("CHARTBOARD_SQLITE_DSN", c.SQLiteDSN)
	c.RedisURL = env.string("CHARTBOARD_REDIS_URL", c.RedisURL)
	c.CacheTTL = env.duration("CHARTBOARD_CACHE_TTL", c.CacheTTL)
	c.Columns = env.int("CHARTBOARD_COLUMNS", c.Columns)
	c.PreviewTimeout = env.duration("CHARTBOARD_PREVIEW_TIMEOUT", c.PreviewTimeout)
	c.DataBaseURL = env.string("CHARTBOARD_DATA_BASE_URL", c.DataBaseURL)
	c.DataAPIKey = env.string("CHARTBOARD_DATA_API_KEY", c.DataAPIKey)
	c.Catalog = env.string("CHARTBOARD_CATALOG", c.Catalog)
	c.Debug = env.bool("DEBUG", c.Debug)

	if env.err != nil {
		return Config{}, env.err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks enumerations and ranges.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("config: invalid CHARTBOARD_STORE %q (memory|json|sqlite)", c.Store)
	}
	switch c.Flush {
	case FlushImmediate, FlushBatched:
	default:
		return fmt.Errorf("config: invalid CHARTBOARD_FLUSH %q (immediate|batched)", c.Flush)
	}
	if c.Store == StoreJSON && c.JSONPath == "" {
		return fmt.Errorf("config: CHARTBOARD_JSON_PATH is required for the json store")
	}
	if c.Store == StoreSQLite && c.SQLiteDSN == "" {
		return fmt.Errorf("config: CHARTBOARD_SQLITE_DSN is required for the sqlite store")
	}
	if c.Columns < 1 {
		return fmt.Errorf("config: CHARTBOARD_COLUMNS must be at least 1")
	}
	if c.FlushInterval <= 0 || c.PreviewTimeout <= 0 || c.CacheTTL <= 0 {
		return fmt.Errorf("config: durations must be positive")
	}
	return nil
}

type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *envReader) raw(key string) (string, bool) {
	value, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (e *envReader) string(key, fallback string) string {
	if value, ok := e.raw(key); ok {
		return value
	}
	return fallback
}

func (e *envReader) duration(key string, fallback time.Duration) time.Duration {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.fail(fmt.Errorf("config: invalid %s: %w", key, err))
		return fallback
	}
	return d
}

func (e *envReader) int(key string, fallback int) int {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.fail(fmt.Errorf("config: invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func (e *envReader) bool(key string, fallback bool) bool {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		e.fail(fmt.Errorf("config: invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func (e *envReader) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}
