// Package nhlapi is a small read-only client for the public NHL web and
// stats APIs.
package nhlapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"
)

const (
	DefaultWebBaseURL   = "https://api-web.nhle.com/v1"
	DefaultStatsBaseURL = "https://api.nhle.com/stats/rest/en"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// APIError is returned for any non-2xx response.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("nhlapi: %s returned status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client issues paced GET requests against the NHL APIs.
type Client struct {
	httpClient *http.Client
	webBase    string
	statsBase  string
	limiter    *rate.Limiter
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURLs overrides the web and stats API roots (used by tests).
func WithBaseURLs(web, stats string) Option {
	return func(c *Client) {
		c.webBase = strings.TrimRight(web, "/")
		c.statsBase = strings.TrimRight(stats, "/")
	}
}

// WithRateLimit paces outbound requests to rps per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client. By default it allows two requests per second.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		webBase:    DefaultWebBaseURL,
		statsBase:  DefaultStatsBaseURL,
		limiter:    rate.NewLimiter(rate.Limit(2), 1),
		userAgent:  "hockeydecoded/1.0 (+https://hockeydecoded.com)",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Teams returns every active and defunct franchise known to the stats API.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var out teamList
	if err := c.get(ctx, c.statsBase+"/team", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// RosterSeasons lists the seasons (e.g. 20232024) a team has rosters for.
func (c *Client) RosterSeasons(ctx context.Context, team string) ([]int, error) {
	var seasons []int
	if err := c.get(ctx, fmt.Sprintf("%s/roster-season/%s", c.webBase, team), &seasons); err != nil {
		return nil, err
	}
	return seasons, nil
}

// Roster fetches a team's roster for one season.
func (c *Client) Roster(ctx context.Context, team string, season int) (Roster, error) {
	var r Roster
	err := c.get(ctx, fmt.Sprintf("%s/roster/%s/%d", c.webBase, team, season), &r)
	return r, err
}

// ScoresNow returns today's scoreboard.
func (c *Client) ScoresNow(ctx context.Context) (Scoreboard, error) {
	var sb Scoreboard
	err := c.get(ctx, c.webBase+"/score/now", &sb)
	return sb, err
}

func (c *Client) get(ctx context.Context, url string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("nhlapi: wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("nhlapi: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nhlapi: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, URL: url, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("nhlapi: decode %s: %w", url, err)
	}
	return nil
}
