package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"feedthread/pkg/log"
)

var keys = []string{
	"PORT", "SELECTORS_PATH", "SINK", "SINK_PATH", "LOG_LEVEL", "LOG_FILE",
	"CACHE_TTL_MINUTES", "RATE_LIMIT", "RATE_WINDOW", "CHROME_PATH",
	"REMOTE_ALLOCATOR_URL", "COOKIES_PATH", "WATCH_URL", "WATCH_INTERVAL",
	"DEBOUNCE_MS", "WATCH_SCROLL",
}

// clearEnv empties every setting for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()

	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "3000" || cfg.Sink != "discard" || cfg.SelectorsPath != "config/selectors.yaml" {
		t.Errorf("defaults: got %+v", cfg)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.Debounce != 500*time.Millisecond || cfg.WatchInterval != 2*time.Second {
		t.Errorf("durations: got ttl=%v debounce=%v interval=%v", cfg.CacheTTL, cfg.Debounce, cfg.WatchInterval)
	}
	if cfg.LogLevel != log.Info || !cfg.Scroll {
		t.Errorf("level/scroll: got %v %v", cfg.LogLevel, cfg.Scroll)
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	// Arrange
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("SINK", "sqlite")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CACHE_TTL_MINUTES", "15")
	t.Setenv("WATCH_INTERVAL", "750ms")
	t.Setenv("WATCH_SCROLL", "false")

	// Act
	cfg, err := Load()

	// Assert
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.Sink != "sqlite" || cfg.LogLevel != log.Debug {
		t.Errorf("got %+v", cfg)
	}
	if cfg.CacheTTL != 15*time.Minute || cfg.WatchInterval != 750*time.Millisecond || cfg.Scroll {
		t.Errorf("got ttl=%v interval=%v scroll=%v", cfg.CacheTTL, cfg.WatchInterval, cfg.Scroll)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CACHE_TTL_MINUTES", "soon")
	t.Setenv("DEBOUNCE_MS", "-3")
	t.Setenv("RATE_WINDOW", "forever")
	t.Setenv("LOG_LEVEL", "chatty")

	cfg, err := Load()

	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.Debounce != 500*time.Millisecond || cfg.RateWindow != time.Minute {
		t.Errorf("got ttl=%v debounce=%v window=%v", cfg.CacheTTL, cfg.Debounce, cfg.RateWindow)
	}
	if cfg.LogLevel != log.Info {
		t.Errorf("LogLevel: got %v", cfg.LogLevel)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	// Arrange
	clearEnv(t)
	os.Unsetenv("SINK_PATH")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SINK_PATH=/tmp/feed.jsonl\nPORT=9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7000")

	// Act
	cfg, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))

	// Assert
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SinkPath != "/tmp/feed.jsonl" {
		t.Errorf("SinkPath: got %q", cfg.SinkPath)
	}
	if cfg.Port != "7000" {
		t.Errorf("environment should win over the file, got %q", cfg.Port)
	}
}

func TestLogger_FileKeepsDebugEntries(t *testing.T) {
	// Arrange
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "feedthread.log")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_LEVEL", "warn")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Act
	logger, err := cfg.Logger()
	if err != nil {
		t.Fatalf("Logger: %v", err)
	}
	logger.Trace("dropped")
	logger.Debug("kept")
	logger.Close()

	// Assert
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := string(data); !strings.Contains(got, `"msg":"kept"`) || strings.Contains(got, "dropped") {
		t.Errorf("log file: got %s", got)
	}
}
