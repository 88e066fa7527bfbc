package livegames

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/dwiwad/hockeydecoded"
	"github.com/dwiwad/hockeydecoded/nhlapi"
)

func intp(v int) *int { return &v }

func TestStatusFor(t *testing.T) {
	tests := []struct {
		state string
		want  hockeydecoded.GameStatus
		ok    bool
	}{
		{"FUT", hockeydecoded.StatusScheduled, true},
		{"PRE", hockeydecoded.StatusScheduled, true},
		{"LIVE", hockeydecoded.StatusLive, true},
		{"CRIT", hockeydecoded.StatusLive, true},
		{"FINAL", hockeydecoded.StatusFinal, true},
		{"OFF", hockeydecoded.StatusFinal, true},
		{"PPD", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := StatusFor(tt.state)
		if got != tt.want || ok != tt.ok {
			t.Errorf("StatusFor(%q) = %q, %v; want %q, %v", tt.state, got, ok, tt.want, tt.ok)
		}
	}
}

func TestGameFromAPI(t *testing.T) {
	start := time.Date(2025, 10, 7, 23, 0, 0, 0, time.UTC)
	g, ok := GameFromAPI(nhlapi.ScoreGame{
		ID:           2025020001,
		StartTimeUTC: start.In(time.FixedZone("EDT", -4*3600)),
		GameState:    "LIVE",
		HomeTeam:     nhlapi.ScoreTeam{Abbrev: "EDM", Score: intp(2)},
		AwayTeam:     nhlapi.ScoreTeam{Abbrev: "CGY"},
	})
	if !ok {
		t.Fatal("LIVE game should map")
	}
	want := hockeydecoded.Game{
		GameID:    "2025020001",
		Date:      start,
		HomeTeam:  "EDM",
		AwayTeam:  "CGY",
		HomeScore: 2,
		AwayScore: 0,
		Status:    hockeydecoded.StatusLive,
	}
	if g != want {
		t.Errorf("game = %+v, want %+v", g, want)
	}
	if _, ok := GameFromAPI(nhlapi.ScoreGame{ID: 1, GameState: "PPD"}); ok {
		t.Error("postponed game should be skipped")
	}
}

// fakeRedis implements the two commands the cache uses.
type fakeRedis struct {
	redis.Cmdable
	mu   sync.Mutex
	data map[string]string
	ttl  time.Duration
	err  error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStatusResult("", f.err)
	}
	if f.data == nil {
		f.data = make(map[string]string)
	}
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	fr := &fakeRedis{}
	c := NewRedisCache(fr, 0)

	if _, ok, err := c.LiveScores(ctx); ok || err != nil {
		t.Fatalf("empty cache = %v, %v; want miss", ok, err)
	}

	if err := c.Store(ctx, nil); err != nil {
		t.Fatalf("Store(nil) failed: %v", err)
	}
	if fr.data[LiveScoresKey] != "[]" || fr.ttl != DefaultTTL {
		t.Errorf("stored %q with ttl %v", fr.data[LiveScoresKey], fr.ttl)
	}
	scores, ok, err := c.LiveScores(ctx)
	if err != nil || !ok || len(scores) != 0 {
		t.Fatalf("empty snapshot = %v, %v, %v", scores, ok, err)
	}

	in := []hockeydecoded.LiveScore{{GameID: "1", HomeTeam: "EDM", AwayTeam: "CGY", HomeScore: 3, AwayScore: 1, Status: hockeydecoded.StatusLive}}
	if err := c.Store(ctx, in); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	scores, ok, err = c.LiveScores(ctx)
	if err != nil || !ok || len(scores) != 1 || scores[0] != in[0] {
		t.Errorf("snapshot = %+v, %v, %v", scores, ok, err)
	}

	fr.err = errors.New("connection refused")
	if _, _, err := c.LiveScores(ctx); err == nil {
		t.Error("expected read error")
	}
	if err := c.Store(ctx, in); err == nil {
		t.Error("expected write error")
	}
}

func TestRedisCacheCorruptSnapshot(t *testing.T) {
	fr := &fakeRedis{data: map[string]string{LiveScoresKey: "not json"}}
	if _, _, err := NewRedisCache(fr, time.Minute).LiveScores(context.Background()); err == nil {
		t.Error("expected decode error")
	}
}

type fakeSource struct {
	board nhlapi.Scoreboard
	err   error
}

func (f fakeSource) ScoresNow(context.Context) (nhlapi.Scoreboard, error) {
	return f.board, f.err
}

type recordingCache struct{ got []hockeydecoded.LiveScore }

func (r *recordingCache) Store(_ context.Context, scores []hockeydecoded.LiveScore) error {
	r.got = scores
	return nil
}

type recordingHub struct{ calls [][]hockeydecoded.LiveScore }

func (r *recordingHub) Broadcast(scores []hockeydecoded.LiveScore) {
	r.calls = append(r.calls, scores)
}

func testBoard() nhlapi.Scoreboard {
	at := time.Date(2025, 10, 7, 23, 0, 0, 0, time.UTC)
	return nhlapi.Scoreboard{Games: []nhlapi.ScoreGame{
		{ID: 1, StartTimeUTC: at, GameState: "LIVE", HomeTeam: nhlapi.ScoreTeam{Abbrev: "EDM", Score: intp(2)}, AwayTeam: nhlapi.ScoreTeam{Abbrev: "CGY", Score: intp(1)}},
		{ID: 2, StartTimeUTC: at, GameState: "FUT", HomeTeam: nhlapi.ScoreTeam{Abbrev: "VAN"}, AwayTeam: nhlapi.ScoreTeam{Abbrev: "SEA"}},
		{ID: 3, StartTimeUTC: at, GameState: "OFF", HomeTeam: nhlapi.ScoreTeam{Abbrev: "TOR", Score: intp(4)}, AwayTeam: nhlapi.ScoreTeam{Abbrev: "MTL", Score: intp(5)}},
		{ID: 4, StartTimeUTC: at, GameState: "PPD", HomeTeam: nhlapi.ScoreTeam{Abbrev: "NYR"}, AwayTeam: nhlapi.ScoreTeam{Abbrev: "NJD"}},
	}}
}

func TestPollOnce(t *testing.T) {
	store, err := hockeydecoded.NewStore(hockeydecoded.DriverSQLite, filepath.Join(t.TempDir(), "games.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	logger, _ := test.NewNullLogger()
	cache := &recordingCache{}
	hub := &recordingHub{}
	p := NewPoller(fakeSource{board: testBoard()}, store, logger, WithCache(cache), WithBroadcaster(hub))

	ctx := context.Background()
	res, err := p.PollOnce(ctx)
	if err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	if res.Seen != 4 || res.Saved != 3 || res.Skipped != 1 || res.Failed != 0 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Live) != 1 || res.Live[0].GameID != "1" || res.Live[0].HomeScore != 2 {
		t.Errorf("live = %+v", res.Live)
	}
	if len(cache.got) != 1 || len(hub.calls) != 1 || len(hub.calls[0]) != 1 {
		t.Errorf("cache = %+v, broadcasts = %+v", cache.got, hub.calls)
	}

	final, err := store.GetGame(ctx, "3")
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if final.Status != hockeydecoded.StatusFinal || final.AwayScore != 5 {
		t.Errorf("final game = %+v", final)
	}
	if _, err := store.GetGame(ctx, "4"); !errors.Is(err, hockeydecoded.ErrNotFound) {
		t.Errorf("postponed game err = %v, want ErrNotFound", err)
	}

	// A second poll with the game finished refreshes the same row.
	board := testBoard()
	board.Games[0].GameState = "FINAL"
	board.Games[0].HomeTeam.Score = intp(3)
	p.source = fakeSource{board: board}
	res, err = p.PollOnce(ctx)
	if err != nil {
		t.Fatalf("second PollOnce failed: %v", err)
	}
	if len(res.Live) != 0 || len(hub.calls[1]) != 0 {
		t.Errorf("live after final = %+v", res.Live)
	}
	g, err := store.GetGame(ctx, "1")
	if err != nil || g.Status != hockeydecoded.StatusFinal || g.HomeScore != 3 {
		t.Errorf("refreshed game = %+v, %v", g, err)
	}
}

type failingWriter struct{ fail string }

func (f failingWriter) UpsertGame(_ context.Context, g hockeydecoded.Game) error {
	if g.GameID == f.fail {
		return errors.New("disk full")
	}
	return nil
}

func (f failingWriter) ListGamesByStatus(context.Context, []hockeydecoded.GameStatus, int) ([]hockeydecoded.Game, error) {
	return nil, errors.New("disk full")
}

func TestPollOnceClosesGamesOffTheBoard(t *testing.T) {
	store, err := hockeydecoded.NewStore(hockeydecoded.DriverSQLite, filepath.Join(t.TempDir(), "games.db"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	stale := hockeydecoded.Game{
		GameID:    "9",
		Date:      time.Date(2025, 10, 6, 23, 0, 0, 0, time.UTC),
		HomeTeam:  "BOS",
		AwayTeam:  "FLA",
		HomeScore: 3,
		AwayScore: 2,
		Status:    hockeydecoded.StatusLive,
	}
	if err := store.UpsertGame(ctx, stale); err != nil {
		t.Fatalf("UpsertGame failed: %v", err)
	}

	logger, _ := test.NewNullLogger()
	hub := &recordingHub{}
	p := NewPoller(fakeSource{board: testBoard()}, store, logger, WithBroadcaster(hub))
	res, err := p.PollOnce(ctx)
	if err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	if res.Closed != 1 || res.Saved != 3 {
		t.Errorf("result = %+v", res)
	}
	if len(res.Live) != 1 || res.Live[0].GameID != "1" {
		t.Errorf("live = %+v", res.Live)
	}

	g, err := store.GetGame(ctx, "9")
	if err != nil {
		t.Fatalf("GetGame failed: %v", err)
	}
	if g.Status != hockeydecoded.StatusFinal || g.HomeScore != 3 || g.AwayScore != 2 {
		t.Errorf("closed game = %+v", g)
	}

	// Game 1 is still on the board, so a repeat poll closes nothing.
	res, err = p.PollOnce(ctx)
	if err != nil {
		t.Fatalf("second PollOnce failed: %v", err)
	}
	if res.Closed != 0 {
		t.Errorf("second poll closed %d games", res.Closed)
	}
	if g, err := store.GetGame(ctx, "1"); err != nil || g.Status != hockeydecoded.StatusLive {
		t.Errorf("game on board = %+v, %v", g, err)
	}
}

func TestPollOnceContinuesPastFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := NewPoller(fakeSource{board: testBoard()}, failingWriter{fail: "2"}, logger)
	res, err := p.PollOnce(context.Background())
	if err != nil {
		t.Fatalf("PollOnce failed: %v", err)
	}
	if res.Saved != 2 || res.Failed != 1 || res.Closed != 0 {
		t.Errorf("result = %+v", res)
	}
	var sawError, sawListWarning bool
	for _, e := range hook.AllEntries() {
		switch e.Message {
		case "failed to save game":
			sawError = true
		case "failed to list stored live games":
			sawListWarning = true
		}
	}
	if !sawError || !sawListWarning {
		t.Errorf("save failure logged = %v, list failure logged = %v", sawError, sawListWarning)
	}
}

func TestPollOnceSourceError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := NewPoller(fakeSource{err: errors.New("503")}, failingWriter{}, logger)
	if _, err := p.PollOnce(context.Background()); err == nil {
		t.Error("expected fetch error")
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := NewPoller(fakeSource{}, failingWriter{}, logger)
	if err := p.Run(context.Background(), "every now and then"); err == nil {
		t.Error("expected schedule error")
	}
}

func TestRunStopsWithContext(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := &recordingHub{}
	p := NewPoller(fakeSource{board: testBoard()}, failingWriter{}, logger, WithBroadcaster(hub))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Run(ctx, "@every 1h"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// The context is already done, so the first tick is a no-op.
	if len(hub.calls) != 0 {
		t.Errorf("broadcasts = %d, want 0", len(hub.calls))
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) snapshot {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var s snapshot
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return s
}

func TestHubBroadcast(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	first := dial(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	live := []hockeydecoded.LiveScore{{GameID: "1", HomeTeam: "EDM", AwayTeam: "CGY", HomeScore: 2, AwayScore: 1, Status: hockeydecoded.StatusLive}}
	hub.Broadcast(live)
	got := readSnapshot(t, first)
	if len(got.Games) != 1 || got.Games[0] != live[0] {
		t.Errorf("snapshot = %+v", got)
	}

	// Late joiners receive the most recent snapshot straight away.
	second := dial(t, srv)
	got = readSnapshot(t, second)
	if len(got.Games) != 1 || got.Games[0].GameID != "1" {
		t.Errorf("late snapshot = %+v", got)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.Broadcast(nil)
	if got := readSnapshot(t, first); got.Games == nil || len(got.Games) != 0 {
		t.Errorf("empty snapshot = %+v", got)
	}

	second.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
}

func TestHubShutdown(t *testing.T) {
	logger, _ := test.NewNullLogger()
	hub := NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })
	cancel()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to close after shutdown")
	}
}
