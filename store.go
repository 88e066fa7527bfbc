package hockeydecoded

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

var validate = validator.New()

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store wraps the relational database holding posts, players and games.
type Store struct {
	db     *sqlx.DB
	driver string
}

// NewStore opens the database for driver ("sqlite" or "postgres"), ensures the
// data directory exists for file-backed SQLite, and runs schema migrations.
func NewStore(driver, dsn string) (*Store, error) {
	switch driver {
	case "", DriverSQLite:
		return newSQLiteStore(dsn)
	case DriverPostgres:
		return newPostgresStore(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
}

func newSQLiteStore(path string) (*Store, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sqlx.Open(DriverSQLite, path)
	if err != nil {
		return nil, err
	}
	// WAL lets the poller write while page handlers read.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db, driver: DriverSQLite}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newPostgresStore(dsn string) (*Store, error) {
	db, err := sqlx.Connect(DriverPostgres, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	s := &Store{db: db, driver: DriverPostgres}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) ensureSchema() error {
	schema := sqliteSchema
	if s.driver == DriverPostgres {
		schema = postgresSchema
	}
	_, err := s.db.Exec(schema)
	return err
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS blog_posts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT 'Dylan Wiwad',
    published BOOLEAN NOT NULL DEFAULT 0,
    category TEXT NOT NULL DEFAULT 'deep-dive',
    featured_image TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL,
    updated_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_blog_posts_category ON blog_posts (category, published, created_at);

CREATE TABLE IF NOT EXISTS nhl_players (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    nhl_id INTEGER NOT NULL UNIQUE,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    position TEXT NOT NULL DEFAULT '',
    height_cm INTEGER,
    weight_lbs INTEGER,
    birth_date TEXT NOT NULL DEFAULT '',
    birth_city TEXT NOT NULL DEFAULT '',
    birth_country TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS game_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    game_id TEXT NOT NULL UNIQUE,
    date DATETIME NOT NULL,
    home_team TEXT NOT NULL,
    away_team TEXT NOT NULL,
    home_score INTEGER NOT NULL DEFAULT 0,
    away_score INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'scheduled'
);
CREATE INDEX IF NOT EXISTS idx_game_data_status ON game_data (status, date);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS blog_posts (
    id BIGSERIAL PRIMARY KEY,
    title TEXT NOT NULL,
    slug TEXT NOT NULL UNIQUE,
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT 'Dylan Wiwad',
    published BOOLEAN NOT NULL DEFAULT FALSE,
    category TEXT NOT NULL DEFAULT 'deep-dive',
    featured_image TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_blog_posts_category ON blog_posts (category, published, created_at);

CREATE TABLE IF NOT EXISTS nhl_players (
    id BIGSERIAL PRIMARY KEY,
    nhl_id BIGINT NOT NULL UNIQUE,
    first_name TEXT NOT NULL DEFAULT '',
    last_name TEXT NOT NULL DEFAULT '',
    position TEXT NOT NULL DEFAULT '',
    height_cm INTEGER,
    weight_lbs INTEGER,
    birth_date TEXT NOT NULL DEFAULT '',
    birth_city TEXT NOT NULL DEFAULT '',
    birth_country TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS game_data (
    id BIGSERIAL PRIMARY KEY,
    game_id TEXT NOT NULL UNIQUE,
    date TIMESTAMPTZ NOT NULL,
    home_team TEXT NOT NULL,
    away_team TEXT NOT NULL,
    home_score INTEGER NOT NULL DEFAULT 0,
    away_score INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'scheduled'
);
CREATE INDEX IF NOT EXISTS idx_game_data_status ON game_data (status, date);
`

const postColumns = `id, title, slug, summary, content, author, published, category, featured_image, created_at, updated_at`

// ListPosts returns published posts newest first. An empty category lists all
// categories.
func (s *Store) ListPosts(ctx context.Context, category string) ([]BlogPost, error) {
	query := `SELECT ` + postColumns + ` FROM blog_posts WHERE published = ?`
	args := []interface{}{true}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY created_at DESC`

	posts := []BlogPost{}
	if err := s.db.SelectContext(ctx, &posts, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("store: list posts: %w", err)
	}
	return posts, nil
}

// ListAllPosts returns every post, drafts included, newest first.
func (s *Store) ListAllPosts(ctx context.Context) ([]BlogPost, error) {
	posts := []BlogPost{}
	query := `SELECT ` + postColumns + ` FROM blog_posts ORDER BY created_at DESC`
	if err := s.db.SelectContext(ctx, &posts, query); err != nil {
		return nil, fmt.Errorf("store: list all posts: %w", err)
	}
	return posts, nil
}

// GetPost returns a single published post by slug.
func (s *Store) GetPost(ctx context.Context, slug string) (BlogPost, error) {
	return s.getPost(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE slug = ? AND published = ?`, slug, true)
}

// GetPostAny returns a post by slug regardless of published status.
func (s *Store) GetPostAny(ctx context.Context, slug string) (BlogPost, error) {
	return s.getPost(ctx, `SELECT `+postColumns+` FROM blog_posts WHERE slug = ?`, slug)
}

func (s *Store) getPost(ctx context.Context, query string, args ...interface{}) (BlogPost, error) {
	var p BlogPost
	err := s.db.GetContext(ctx, &p, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return BlogPost{}, ErrNotFound
	}
	if err != nil {
		return BlogPost{}, fmt.Errorf("store: get post: %w", err)
	}
	return p, nil
}

// CountPosts returns the number of posts, drafts included.
func (s *Store) CountPosts(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM blog_posts`); err != nil {
		return 0, fmt.Errorf("store: count posts: %w", err)
	}
	return n, nil
}

const queryUpsertPost = `
INSERT INTO blog_posts (title, slug, summary, content, author, published, category, featured_image, created_at)
VALUES (:title, :slug, :summary, :content, :author, :published, :category, :featured_image, :created_at)
ON CONFLICT (slug) DO UPDATE SET
    title = excluded.title,
    summary = excluded.summary,
    content = excluded.content,
    author = excluded.author,
    published = excluded.published,
    category = excluded.category,
    featured_image = excluded.featured_image,
    updated_at = :updated_at`

// SavePost inserts a post or, when the slug exists, updates it and stamps
// updated_at. Missing author and category take their defaults.
func (s *Store) SavePost(ctx context.Context, p BlogPost) error {
	p.applyDefaults()
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("store: invalid post: %w", err)
	}
	argsKV := map[string]interface{}{
		"title":          p.Title,
		"slug":           p.Slug,
		"summary":        p.Summary,
		"content":        p.Content,
		"author":         p.Author,
		"published":      p.Published,
		"category":       p.Category,
		"featured_image": p.FeaturedImage,
		"created_at":     p.CreatedAt.UTC(),
		"updated_at":     time.Now().UTC(),
	}
	return s.namedExec(ctx, queryUpsertPost, argsKV)
}

const queryUpsertPlayer = `
INSERT INTO nhl_players (nhl_id, first_name, last_name, position, height_cm, weight_lbs, birth_date, birth_city, birth_country)
VALUES (:nhl_id, :first_name, :last_name, :position, :height_cm, :weight_lbs, :birth_date, :birth_city, :birth_country)
ON CONFLICT (nhl_id) DO UPDATE SET
    first_name = excluded.first_name,
    last_name = excluded.last_name,
    position = excluded.position,
    height_cm = excluded.height_cm,
    weight_lbs = excluded.weight_lbs,
    birth_date = excluded.birth_date,
    birth_city = excluded.birth_city,
    birth_country = excluded.birth_country`

// UpsertPlayer inserts or refreshes a player keyed by nhl_id.
func (s *Store) UpsertPlayer(ctx context.Context, p Player) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("store: invalid player: %w", err)
	}
	return s.namedExec(ctx, queryUpsertPlayer, p)
}

// GetPlayer returns a player by the league's player id.
func (s *Store) GetPlayer(ctx context.Context, nhlID int64) (Player, error) {
	var p Player
	query := s.db.Rebind(`SELECT id, nhl_id, first_name, last_name, position, height_cm, weight_lbs, birth_date, birth_city, birth_country FROM nhl_players WHERE nhl_id = ?`)
	err := s.db.GetContext(ctx, &p, query, nhlID)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, ErrNotFound
	}
	if err != nil {
		return Player{}, fmt.Errorf("store: get player: %w", err)
	}
	return p, nil
}

// CountPlayers returns the number of stored players.
func (s *Store) CountPlayers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM nhl_players`); err != nil {
		return 0, fmt.Errorf("store: count players: %w", err)
	}
	return n, nil
}

const queryUpsertGame = `
INSERT INTO game_data (game_id, date, home_team, away_team, home_score, away_score, status)
VALUES (:game_id, :date, :home_team, :away_team, :home_score, :away_score, :status)
ON CONFLICT (game_id) DO UPDATE SET
    date = excluded.date,
    home_team = excluded.home_team,
    away_team = excluded.away_team,
    home_score = excluded.home_score,
    away_score = excluded.away_score,
    status = excluded.status`

// UpsertGame inserts or refreshes a game keyed by game_id.
func (s *Store) UpsertGame(ctx context.Context, g Game) error {
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("store: invalid game: %w", err)
	}
	g.Date = g.Date.UTC()
	return s.namedExec(ctx, queryUpsertGame, g)
}

const gameColumns = `id, game_id, date, home_team, away_team, home_score, away_score, status`

// GetGame returns a game by its external id.
func (s *Store) GetGame(ctx context.Context, gameID string) (Game, error) {
	var g Game
	query := s.db.Rebind(`SELECT ` + gameColumns + ` FROM game_data WHERE game_id = ?`)
	err := s.db.GetContext(ctx, &g, query, gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return Game{}, ErrNotFound
	}
	if err != nil {
		return Game{}, fmt.Errorf("store: get game: %w", err)
	}
	return g, nil
}

// ListGamesByStatus returns games whose status is one of statuses, newest
// first. A limit of zero or less returns every match.
func (s *Store) ListGamesByStatus(ctx context.Context, statuses []GameStatus, limit int) ([]Game, error) {
	games := []Game{}
	if len(statuses) == 0 {
		return games, nil
	}
	query := `SELECT ` + gameColumns + ` FROM game_data WHERE status IN (?) ORDER BY date DESC`
	args := []interface{}{statuses}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: build games query: %w", err)
	}
	if err := s.db.SelectContext(ctx, &games, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("store: list games: %w", err)
	}
	return games, nil
}

func (s *Store) namedExec(ctx context.Context, namedQuery string, arg interface{}) error {
	query, args, err := sqlx.Named(namedQuery, arg)
	if err != nil {
		return fmt.Errorf("store: bind query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("store: exec: %w", err)
	}
	return nil
}
