// Package config loads dashboard settings from the environment.
package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config carries everything the dashboard processes need to start.
type Config struct {
	Debug      bool
	ListenAddr string

	// Task store. BackendURL selects the REST repository; the storage
	// connection string selects Azure Tables. Exactly one must be set.
	BackendURL              string
	StorageConnectionString string
	TasksTable              string
	Board                   string

	IntakeQueue string

	RedisConnectionString string
	DedupTTL              time.Duration

	HealthInterval time.Duration

	CronBinary string

	NotesDir        string
	SearchIndexPath string
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:      ":8080",
		Board:           "default",
		DedupTTL:        24 * time.Hour,
		HealthInterval:  30 * time.Second,
		CronBinary:      "dashctl",
		NotesDir:        os.Getenv("NOTES_DIR"),
		SearchIndexPath: os.Getenv("SEARCH_INDEX_PATH"),
	}

	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil {
		cfg.Debug = dbg
	}
	if v, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		cfg.ListenAddr = ":" + v
	} else if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	cfg.BackendURL = os.Getenv("BACKEND_URL")
	cfg.StorageConnectionString = os.Getenv("STORAGE_CONNECTION_STRING")
	cfg.TasksTable = os.Getenv("TASKS_TABLE")
	cfg.IntakeQueue = os.Getenv("INTAKE_QUEUE")
	if v := os.Getenv("BOARD"); v != "" {
		cfg.Board = v
	}
	if cfg.BackendURL == "" && cfg.StorageConnectionString == "" {
		return nil, errors.New("missing task store config: set BACKEND_URL or STORAGE_CONNECTION_STRING")
	}
	if cfg.StorageConnectionString != "" && cfg.TasksTable == "" {
		return nil, errors.New("missing TASKS_TABLE")
	}

	cfg.RedisConnectionString = os.Getenv("REDIS_CONNECTION_STRING")
	if v := os.Getenv("DEDUPER_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid DEDUPER_TTL: %q", v)
		}
		cfg.DedupTTL = d
	}
	if v := os.Getenv("HEALTH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid HEALTH_INTERVAL: %q", v)
		}
		cfg.HealthInterval = d
	}
	if v := os.Getenv("CRON_BINARY"); v != "" {
		cfg.CronBinary = v
	}
	return cfg, nil
}

// RedisOptions parses the redis connection string. URLs are handled by the
// driver; anything else is treated as the comma-separated host,key=value
// form some hosted caches emit.
func (c *Config) RedisOptions() (*redis.Options, error) {
	if c.RedisConnectionString == "" {
		return nil, errors.New("missing REDIS_CONNECTION_STRING")
	}
	opts, err := redis.ParseURL(c.RedisConnectionString)
	if err == nil {
		return opts, nil
	}
	parts := strings.Split(c.RedisConnectionString, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}
