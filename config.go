package hockeydecoded

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// SiteConfig holds all configuration for the site.
type SiteConfig struct {
	Name        string // Site name (default "Hockey Decoded")
	URL         string `validate:"required,url"` // Canonical URL (default "http://localhost:8000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for JSON-LD (default DefaultAuthor)

	Addr           string // Listen address (default ":8000")
	DatabaseDriver string `validate:"oneof=sqlite postgres"`
	DatabaseURL    string `validate:"required"` // SQLite path or postgres DSN (default "data/hockey.db")

	SessionSecret string `validate:"required,min=16"`
	CookieSecure  bool   // Set true for HTTPS

	RedisURL     string // Optional; enables the live-score snapshot cache
	StaticDir    string // Static assets and rendered charts (default "static")
	PostCacheTTL time.Duration
	LivePollSpec string // cron spec for the live-game poller (default "@every 30s")

	APIRate  float64 // Per-IP requests per second on /dashboard/api (default 5)
	APIBurst int     // Per-IP burst (default 10)

	LogLevel string
	LogFile  string
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Hockey Decoded"
	}
	if c.URL == "" {
		c.URL = "http://localhost:8000"
	}
	if c.Author == "" {
		c.Author = DefaultAuthor
	}
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.DatabaseDriver == "" {
		c.DatabaseDriver = DriverSQLite
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = "data/hockey.db"
	}
	if c.StaticDir == "" {
		c.StaticDir = "static"
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.LivePollSpec == "" {
		c.LivePollSpec = "@every 30s"
	}
	if c.APIRate == 0 {
		c.APIRate = 5
	}
	if c.APIBurst == 0 {
		c.APIBurst = 10
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate applies defaults and checks the configuration.
func (c *SiteConfig) Validate() error {
	c.setDefaults()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// LoadConfig reads configuration from the environment after loading any of
// the given dotenv files that exist (".env" when none are given).
func LoadConfig(files ...string) (SiteConfig, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return SiteConfig{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	ttl, err := envDuration("POST_CACHE_TTL")
	if err != nil {
		return SiteConfig{}, err
	}
	apiRate, err := envFloat("API_RATE")
	if err != nil {
		return SiteConfig{}, err
	}
	apiBurst, err := envInt("API_BURST")
	if err != nil {
		return SiteConfig{}, err
	}

	cfg := SiteConfig{
		Name:           EnvOr("SITE_NAME", ""),
		URL:            strings.TrimRight(EnvOr("SITE_URL", ""), "/"),
		Description:    EnvOr("SITE_DESCRIPTION", "Deep-dives into the history and data of the NHL."),
		Author:         EnvOr("SITE_AUTHOR", ""),
		Addr:           EnvOr("ADDR", ""),
		DatabaseDriver: EnvOr("DATABASE_DRIVER", ""),
		DatabaseURL:    EnvOr("DATABASE_URL", ""),
		SessionSecret:  EnvOr("SESSION_SECRET", ""),
		CookieSecure:   EnvOr("COOKIE_SECURE", "false") == "true",
		RedisURL:       EnvOr("REDIS_URL", ""),
		StaticDir:      EnvOr("STATIC_DIR", ""),
		PostCacheTTL:   ttl,
		LivePollSpec:   EnvOr("LIVE_POLL_SPEC", ""),
		APIRate:        apiRate,
		APIBurst:       apiBurst,
		LogLevel:       EnvOr("LOG_LEVEL", ""),
		LogFile:        EnvOr("LOG_FILE", ""),
	}
	if err := cfg.Validate(); err != nil {
		return SiteConfig{}, err
	}
	return cfg, nil
}

func envDuration(key string) (time.Duration, error) {
	v := EnvOr(key, "")
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func envFloat(key string) (float64, error) {
	v := EnvOr(key, "")
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return f, nil
}

func envInt(key string) (int, error) {
	v := EnvOr(key, "")
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return n, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir overrides the directory served under /static.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.Config.StaticDir = dir
	}
}

// WithStore uses an already opened store instead of opening one from config.
func WithStore(s *Store) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}

// WithLiveScores makes the live-scores endpoint read snapshots from cache
// before falling back to the store.
func WithLiveScores(cache LiveScoreCache) Option {
	return func(a *App) {
		a.liveScores = cache
	}
}

// WithLiveStream mounts h at /dashboard/ws/live-scores.
func WithLiveStream(h http.Handler) Option {
	return func(a *App) {
		a.liveStream = h
	}
}
