package hockeydecoded

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/dwiwad/hockeydecoded/logging"
)

const (
	homePostLimit  = 3
	liveGamesLimit = 10
)

// legacySlugs maps the first-generation static post URLs to their slugs.
var legacySlugs = map[string]string{
	"historical_player_analysis_072025": "historical-player-demographics-2025",
	"player_movement_072025":            "player-career-tenure-2025",
}

func (a *App) meta(title, description, path, ogType string) PageMeta {
	if description == "" {
		description = a.Config.Description
	}
	if title == "" {
		title = a.Config.Name
	} else {
		title = title + " | " + a.Config.Name
	}
	return PageMeta{Title: title, Description: description, URL: BuildURL(a.Config.URL, path), OGType: ogType}
}

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), CategoryDeepDive)
	if err != nil {
		return err
	}
	if len(posts) > homePostLimit {
		posts = posts[:homePostLimit]
	}
	return Render(c, a.Views.Home(posts, a.meta("", "", "", "website")))
}

func (a *App) handleAbout(c echo.Context) error {
	return Render(c, a.Views.About(a.meta("About", "", "about", "website")))
}

func (a *App) handleDeepDives(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), CategoryDeepDive)
	if err != nil {
		return err
	}
	return Render(c, a.Views.DeepDives(posts, a.meta("Deep Dives", "", "deep-dives", "website")))
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	if target, ok := legacySlugs[slug]; ok {
		return c.Redirect(http.StatusMovedPermanently, "/deep-dives/"+target+"/")
	}
	ctx := c.Request().Context()
	post, err := a.Cache.GetPost(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		}
		return err
	}
	posts, err := a.Cache.ListPosts(ctx, post.Category)
	if err != nil {
		return err
	}
	meta := a.meta(post.Title, post.Summary, "deep-dives/"+post.Slug, "article")
	return Render(c, a.Views.Post(post, RelatedPosts(post, posts, 3), meta))
}

func (a *App) handleDashboard(c echo.Context) error {
	return Render(c, a.Views.Dashboard(a.meta("Dashboard", "", "dashboard", "website")))
}

func (a *App) handleLiveGames(c echo.Context) error {
	team := teamPreference(c)
	limit := liveGamesLimit
	if team != "" {
		limit = 0
	}
	games, err := a.Store.ListGamesByStatus(c.Request().Context(), []GameStatus{StatusLive, StatusScheduled}, limit)
	if err != nil {
		return err
	}
	if team != "" {
		games = filterGamesByTeam(games, team, liveGamesLimit)
	}
	return Render(c, a.Views.LiveGames(games, team, a.meta("Live Games", "", "dashboard/live-games", "website")))
}

func filterGamesByTeam(games []Game, team string, limit int) []Game {
	out := []Game{}
	for _, g := range games {
		if g.HomeTeam == team || g.AwayTeam == team {
			out = append(out, g)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}

func (a *App) handlePlayerHeatmap(c echo.Context) error {
	return Render(c, a.Views.PlayerHeatmap(a.meta("Player Heatmap", "", "dashboard/player-heatmap", "website")))
}

type liveScoresResponse struct {
	Games []LiveScore `json:"games"`
}

func (a *App) handleLiveScores(c echo.Context) error {
	ctx := c.Request().Context()
	if a.liveScores != nil {
		scores, ok, err := a.liveScores.LiveScores(ctx)
		if err != nil {
			a.Log.WithError(err).Warn("live score cache unavailable, falling back to store")
		} else if ok {
			return c.JSON(http.StatusOK, liveScoresResponse{Games: scores})
		}
	}
	games, err := a.Store.ListGamesByStatus(ctx, []GameStatus{StatusLive}, 0)
	if err != nil {
		return err
	}
	scores := make([]LiveScore, 0, len(games))
	for _, g := range games {
		scores = append(scores, g.Score())
	}
	return c.JSON(http.StatusOK, liveScoresResponse{Games: scores})
}

func (a *App) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := a.Store.Ping(ctx); err != nil {
		a.Log.WithError(err).Error("health check: database unreachable")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), CategoryDeepDive)
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Cache.ListPosts(c.Request().Context(), CategoryDeepDive)
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	body := "User-agent: *\nAllow: /\nDisallow: /dashboard/api/\nSitemap: " + strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n"
	return c.String(http.StatusOK, body)
}

func isJSONPath(path string) bool {
	return strings.HasPrefix(path, "/dashboard/api/") || path == "/health"
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}

	if isJSONPath(c.Request().URL.Path) {
		msg := http.StatusText(code)
		if code >= 500 {
			traceID := logging.ErrorWithTraceID(a.Log, a.errorFields(c, err), "server error")
			_ = c.JSON(code, map[string]string{"error": msg, "trace_id": traceID})
			return
		}
		_ = c.JSON(code, map[string]string{"error": msg})
		return
	}

	if code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound())
		return
	}
	if code >= 500 {
		logging.ErrorWithTraceID(a.Log, a.errorFields(c, err), "server error")
		_ = RenderStatus(c, code, a.Views.ServerError())
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

func (a *App) errorFields(c echo.Context, err error) logrus.Fields {
	return logrus.Fields{
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		"method":     c.Request().Method,
		"uri":        c.Request().RequestURI,
		"error":      err.Error(),
	}
}
