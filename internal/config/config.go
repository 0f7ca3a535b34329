// Package config reads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"feedthread/pkg/log"

	"github.com/joho/godotenv"
)

// Config holds every setting of the server and the watcher.
type Config struct {
	Port          string
	SelectorsPath string

	Sink     string
	SinkPath string

	LogLevel log.Level
	LogFile  string

	CacheTTL   time.Duration
	RateLimit  int
	RateWindow time.Duration

	ChromePath         string
	RemoteAllocatorURL string
	CookiesPath        string

	WatchURL      string
	WatchInterval time.Duration
	Debounce      time.Duration
	Scroll        bool
}

// Load reads envFiles (missing files are skipped) and then the process
// environment. Variables already set in the environment win over the files.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}

	return Config{
		Port:          getString("PORT", "3000"),
		SelectorsPath: getString("SELECTORS_PATH", "config/selectors.yaml"),

		Sink:     getString("SINK", "discard"),
		SinkPath: getString("SINK_PATH", "feedthread.db"),

		LogLevel: log.ParseLevelOr(os.Getenv("LOG_LEVEL"), log.Info),
		LogFile:  os.Getenv("LOG_FILE"),

		CacheTTL:   time.Duration(getInt("CACHE_TTL_MINUTES", 5)) * time.Minute,
		RateLimit:  getInt("RATE_LIMIT", 10),
		RateWindow: getDuration("RATE_WINDOW", time.Minute),

		ChromePath:         os.Getenv("CHROME_PATH"),
		RemoteAllocatorURL: os.Getenv("REMOTE_ALLOCATOR_URL"),
		CookiesPath:        os.Getenv("COOKIES_PATH"),

		WatchURL:      getString("WATCH_URL", "https://x.com/home"),
		WatchInterval: getDuration("WATCH_INTERVAL", 2*time.Second),
		Debounce:      time.Duration(getInt("DEBOUNCE_MS", 500)) * time.Millisecond,
		Scroll:        getBool("WATCH_SCROLL", true),
	}, nil
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.GlobalWarn("invalid integer setting, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.GlobalWarn("invalid duration setting, using default", "key", key, "value", v, "default", def.String())
		return def
	}
	return d
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.GlobalWarn("invalid boolean setting, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}
