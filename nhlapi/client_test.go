package nhlapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const rosterJSON = `{
  "forwards": [{
    "id": 8478402,
    "headshot": "https://assets.nhle.com/mugs/nhl/20242025/EDM/8478402.png",
    "firstName": {"default": "Connor"},
    "lastName": {"default": "McDavid"},
    "sweaterNumber": 97,
    "positionCode": "C",
    "shootsCatches": "L",
    "heightInInches": 73,
    "weightInPounds": 194,
    "birthDate": "1997-01-13",
    "birthCity": {"default": "Richmond Hill"},
    "birthCountry": "CAN",
    "birthStateProvince": {"default": "Ontario"}
  }],
  "defensemen": [{
    "id": 8477498,
    "firstName": {"default": "Darnell"},
    "lastName": {"default": "Nurse"},
    "positionCode": "D",
    "birthDate": "1995-02-04",
    "birthCity": {"default": "Hamilton"},
    "birthCountry": "CAN"
  }],
  "goalies": [{
    "id": 8479973,
    "firstName": {"default": "Stuart"},
    "lastName": {"default": "Skinner"},
    "positionCode": "G",
    "birthCity": {"default": "Edmonton"},
    "birthCountry": "CAN"
  }]
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/web/roster/EDM/20242025", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rosterJSON))
	})
	mux.HandleFunc("/web/roster-season/EDM", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[19791980, 19801981, 20242025]`))
	})
	mux.HandleFunc("/stats/team", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"id":22,"franchiseId":25,"fullName":"Edmonton Oilers","triCode":"EDM"},{"id":99,"fullName":"Montreal Wanderers","triCode":"MWN"}],"total":2}`))
	})
	mux.HandleFunc("/web/score/now", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"currentDate":"2025-10-07","games":[{"id":2025020001,"season":20252026,"gameType":2,"gameDate":"2025-10-07","startTimeUTC":"2025-10-07T23:00:00Z","gameState":"LIVE","awayTeam":{"id":20,"abbrev":"CGY","score":1},"homeTeam":{"id":22,"abbrev":"EDM","score":2}},{"id":2025020002,"startTimeUTC":"2025-10-08T02:00:00Z","gameState":"FUT","awayTeam":{"abbrev":"SEA"},"homeTeam":{"abbrev":"VAN"}}]}`))
	})
	mux.HandleFunc("/web/roster/XXX/20242025", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	return New(WithBaseURLs(srv.URL+"/web", srv.URL+"/stats"), WithRateLimit(0, 0), WithTimeout(2*time.Second))
}

func TestRoster(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv)

	r, err := c.Roster(context.Background(), "EDM", 20242025)
	if err != nil {
		t.Fatalf("Roster failed: %v", err)
	}
	players := r.Players()
	if len(players) != 3 {
		t.Fatalf("players = %d, want 3", len(players))
	}
	if players[0].LastName.Default != "McDavid" || players[1].PositionCode != "D" || players[2].PositionCode != "G" {
		t.Errorf("players out of order: %+v", players)
	}
	if players[0].BirthStateProvince == nil || players[0].BirthStateProvince.Default != "Ontario" {
		t.Errorf("birth province = %+v", players[0].BirthStateProvince)
	}
	if players[1].BirthStateProvince != nil {
		t.Errorf("missing province should decode as nil")
	}
	if players[2].HeightInInches != nil {
		t.Errorf("missing height should decode as nil")
	}
	if *players[0].SweaterNumber != 97 {
		t.Errorf("sweater = %d", *players[0].SweaterNumber)
	}
}

func TestRosterNon2xx(t *testing.T) {
	srv := newTestServer(t)
	c := newTestClient(srv)

	_, err := c.Roster(context.Background(), "XXX", 20242025)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", apiErr.StatusCode)
	}
}

func TestTeams(t *testing.T) {
	srv := newTestServer(t)
	teams, err := newTestClient(srv).Teams(context.Background())
	if err != nil {
		t.Fatalf("Teams failed: %v", err)
	}
	if len(teams) != 2 || teams[0].TriCode != "EDM" || teams[1].FranchiseID != nil {
		t.Errorf("teams = %+v", teams)
	}
}

func TestRosterSeasons(t *testing.T) {
	srv := newTestServer(t)
	seasons, err := newTestClient(srv).RosterSeasons(context.Background(), "EDM")
	if err != nil {
		t.Fatalf("RosterSeasons failed: %v", err)
	}
	if len(seasons) != 3 || seasons[0] != 19791980 {
		t.Errorf("seasons = %v", seasons)
	}
}

func TestScoresNow(t *testing.T) {
	srv := newTestServer(t)
	sb, err := newTestClient(srv).ScoresNow(context.Background())
	if err != nil {
		t.Fatalf("ScoresNow failed: %v", err)
	}
	if len(sb.Games) != 2 {
		t.Fatalf("games = %d, want 2", len(sb.Games))
	}
	g := sb.Games[0]
	if g.GameState != "LIVE" || g.HomeTeam.Abbrev != "EDM" || *g.HomeTeam.Score != 2 {
		t.Errorf("game = %+v", g)
	}
	if !g.StartTimeUTC.Equal(time.Date(2025, 10, 7, 23, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", g.StartTimeUTC)
	}
	if sb.Games[1].HomeTeam.Score != nil {
		t.Errorf("future game should have no score")
	}
}

func TestRateLimiterHonoursContext(t *testing.T) {
	srv := newTestServer(t)
	c := New(WithBaseURLs(srv.URL+"/web", srv.URL+"/stats"), WithRateLimit(0.001, 1))

	if _, err := c.RosterSeasons(context.Background(), "EDM"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.RosterSeasons(ctx, "EDM"); err == nil {
		t.Fatal("expected rate limiter wait to fail with short deadline")
	}
}
