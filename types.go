package hockeydecoded

import (
	"database/sql"
	"time"
)

// BlogPost is a deep-dive article. Content is stored as rendered HTML.
type BlogPost struct {
	ID            int64        `db:"id"`
	Title         string       `db:"title" validate:"required"`
	Slug          string       `db:"slug" validate:"required"`
	Summary       string       `db:"summary"`
	Content       string       `db:"content" validate:"required"`
	Author        string       `db:"author"`
	Published     bool         `db:"published"`
	Category      string       `db:"category"`
	FeaturedImage string       `db:"featured_image"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     sql.NullTime `db:"updated_at"`
}

const (
	DefaultAuthor    = "Dylan Wiwad"
	CategoryDeepDive = "deep-dive"
)

func (p *BlogPost) applyDefaults() {
	if p.Slug == "" {
		p.Slug = Slugify(p.Title)
	}
	if p.Author == "" {
		p.Author = DefaultAuthor
	}
	if p.Category == "" {
		p.Category = CategoryDeepDive
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
}

// Link is the site-relative URL of the post.
func (p BlogPost) Link() string {
	return "/deep-dives/" + p.Slug
}

// Date is the publication date formatted as YYYY-MM-DD.
func (p BlogPost) Date() string {
	return p.CreatedAt.Format("2006-01-02")
}

// Player is an NHL player record keyed by the league's player id.
type Player struct {
	ID           int64         `db:"id"`
	NHLID        int64         `db:"nhl_id" validate:"required"`
	FirstName    string        `db:"first_name"`
	LastName     string        `db:"last_name"`
	Position     string        `db:"position" validate:"omitempty,oneof=C L R D G"`
	HeightCM     sql.NullInt64 `db:"height_cm"`
	WeightLbs    sql.NullInt64 `db:"weight_lbs"`
	BirthDate    string        `db:"birth_date"`
	BirthCity    string        `db:"birth_city"`
	BirthCountry string        `db:"birth_country"`
}

// GameStatus is the lifecycle state of a game.
type GameStatus string

const (
	StatusScheduled GameStatus = "scheduled"
	StatusLive      GameStatus = "live"
	StatusFinal     GameStatus = "final"
)

// Game is a single game snapshot keyed by the external game id.
type Game struct {
	ID        int64      `db:"id"`
	GameID    string     `db:"game_id" validate:"required"`
	Date      time.Time  `db:"date"`
	HomeTeam  string     `db:"home_team"`
	AwayTeam  string     `db:"away_team"`
	HomeScore int        `db:"home_score"`
	AwayScore int        `db:"away_score"`
	Status    GameStatus `db:"status" validate:"oneof=scheduled live final"`
}

// LiveScore is the JSON shape served by the live-scores endpoint.
type LiveScore struct {
	GameID    string     `json:"game_id"`
	HomeTeam  string     `json:"home_team"`
	AwayTeam  string     `json:"away_team"`
	HomeScore int        `json:"home_score"`
	AwayScore int        `json:"away_score"`
	Status    GameStatus `json:"status"`
}

// Score converts a game to its live-score representation.
func (g Game) Score() LiveScore {
	return LiveScore{
		GameID:    g.GameID,
		HomeTeam:  g.HomeTeam,
		AwayTeam:  g.AwayTeam,
		HomeScore: g.HomeScore,
		AwayScore: g.AwayScore,
		Status:    g.Status,
	}
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
}
