package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://localhost:9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr %q", cfg.ListenAddr)
	}
	if cfg.Board != "default" {
		t.Fatalf("unexpected board %q", cfg.Board)
	}
	if cfg.DedupTTL != 24*time.Hour {
		t.Fatalf("unexpected dedup TTL %v", cfg.DedupTTL)
	}
}

func TestLoadRequiresStore(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("STORAGE_CONNECTION_STRING", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when no store is configured")
	}
}

func TestLoadTableStoreNeedsTable(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("TASKS_TABLE", "")
	t.Setenv("STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when TASKS_TABLE is missing")
	}
	t.Setenv("TASKS_TABLE", "tasks")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TasksTable != "tasks" {
		t.Fatalf("unexpected table %q", cfg.TasksTable)
	}
}

func TestLoadRejectsBadDurations(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://localhost:9000")
	t.Setenv("DEDUPER_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for bad DEDUPER_TTL")
	}
	t.Setenv("DEDUPER_TTL", "1h")
	t.Setenv("HEALTH_INTERVAL", "-5s")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative HEALTH_INTERVAL")
	}
}

func TestRedisOptionsURL(t *testing.T) {
	cfg := &Config{RedisConnectionString: "redis://:secret@localhost:6379/0"}
	opts, err := cfg.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions: %v", err)
	}
	if opts.Addr != "localhost:6379" || opts.Password != "secret" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestRedisOptionsHostedForm(t *testing.T) {
	cfg := &Config{RedisConnectionString: "cache.example.net:6380,password=abc,ssl=True"}
	opts, err := cfg.RedisOptions()
	if err != nil {
		t.Fatalf("RedisOptions: %v", err)
	}
	if opts.Addr != "cache.example.net:6380" || opts.Password != "abc" || opts.TLSConfig == nil {
		t.Fatalf("unexpected options %+v", opts)
	}
}
