// Package hockeydecoded is the web backend of the Hockey Decoded site: the
// deep-dive blog, the live-game dashboard and their JSON endpoints.
//
// Page markup is supplied through ViewFuncs so the handlers stay free of
// presentation; the views package provides the site's own set.
package hockeydecoded

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/dwiwad/hockeydecoded/logging"
)

// ViewFuncs holds the templ components the handlers render.
type ViewFuncs struct {
	Home          func(posts []BlogPost, meta PageMeta) templ.Component
	About         func(meta PageMeta) templ.Component
	DeepDives     func(posts []BlogPost, meta PageMeta) templ.Component
	Post          func(post BlogPost, related []BlogPost, meta PageMeta) templ.Component
	Dashboard     func(meta PageMeta) templ.Component
	LiveGames     func(games []Game, team string, meta PageMeta) templ.Component
	PlayerHeatmap func(meta PageMeta) templ.Component
	NotFound      func() templ.Component
	ServerError   func() templ.Component
}

// LiveScoreCache serves the most recent live-score snapshot. ok is false
// when no snapshot is available.
type LiveScoreCache interface {
	LiveScores(ctx context.Context) (scores []LiveScore, ok bool, err error)
}

// App wires together the store, cache, handlers, middleware, and views.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  *Store
	Cache  *PostCache
	Views  ViewFuncs
	Log    *logrus.Logger

	apiLimiter   *IPRateLimiter
	liveScores   LiveScoreCache
	liveStream   http.Handler
	customRoutes []func(*App)
	ownsStore    bool
}

// New creates an App with the given configuration and views.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config: cfg,
		Echo:   echo.New(),
		Views:  views,
	}
	a.Echo.HideBanner = true
	a.Echo.JSONSerializer = jsonSerializer{}

	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	}
	return a
}

// Setup opens the store if needed and installs middleware and routes.
func (a *App) Setup() error {
	if err := a.Config.Validate(); err != nil {
		return err
	}

	if a.Store == nil {
		store, err := NewStore(a.Config.DatabaseDriver, a.Config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("hockeydecoded: init store: %w", err)
		}
		a.Store = store
		a.ownsStore = true
	}

	a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
	a.apiLimiter = NewIPRateLimiter(rate.Limit(a.Config.APIRate), a.Config.APIBurst, 10*time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets the app up and serves HTTP until Shutdown is called.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Log.WithFields(logrus.Fields{
		"addr":   a.Config.Addr,
		"driver": a.Config.DatabaseDriver,
	}).Info("starting server")
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/static", a.Config.StaticDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/health", a.handleHealth)

	e.GET("/", a.handleHome)
	page(e, "/about/", a.handleAbout)
	page(e, "/deep-dives/", a.handleDeepDives)
	page(e, "/deep-dives/:slug/", a.handlePost)

	dash := e.Group("/dashboard")
	page(dash, "/", a.handleDashboard)
	page(dash, "/live-games/", a.handleLiveGames)
	page(dash, "/player-heatmap/", a.handlePlayerHeatmap)

	api := dash.Group("/api", a.apiLimiter.Middleware)
	api.GET("/live-scores", a.handleLiveScores)

	if a.liveStream != nil {
		dash.GET("/ws/live-scores", echo.WrapHandler(a.liveStream))
	}
}

type router interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

// page serves h at path with and without its trailing slash.
func page(r router, path string, h echo.HandlerFunc) {
	r.GET(path, h)
	r.GET(strings.TrimSuffix(path, "/"), h)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.apiLimiter != nil {
		a.apiLimiter.Close()
	}
	if a.Store != nil && a.ownsStore {
		return a.Store.Close()
	}
	return nil
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
