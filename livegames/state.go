// Package livegames keeps the dashboard's game table current: it polls the
// NHL scoreboard, writes games to the store, caches the live snapshot in
// Redis and pushes it to connected websocket clients.
package livegames

import (
	"strconv"

	"github.com/dwiwad/hockeydecoded"
	"github.com/dwiwad/hockeydecoded/nhlapi"
)

// StatusFor maps an NHL game state to a stored status. ok is false for
// states the dashboard does not track, such as postponed games.
func StatusFor(gameState string) (status hockeydecoded.GameStatus, ok bool) {
	switch gameState {
	case "FUT", "PRE":
		return hockeydecoded.StatusScheduled, true
	case "LIVE", "CRIT":
		return hockeydecoded.StatusLive, true
	case "FINAL", "OFF":
		return hockeydecoded.StatusFinal, true
	}
	return "", false
}

// GameFromAPI converts a scoreboard entry into a stored game.
func GameFromAPI(g nhlapi.ScoreGame) (hockeydecoded.Game, bool) {
	status, ok := StatusFor(g.GameState)
	if !ok {
		return hockeydecoded.Game{}, false
	}
	return hockeydecoded.Game{
		GameID:    strconv.FormatInt(g.ID, 10),
		Date:      g.StartTimeUTC.UTC(),
		HomeTeam:  g.HomeTeam.Abbrev,
		AwayTeam:  g.AwayTeam.Abbrev,
		HomeScore: score(g.HomeTeam.Score),
		AwayScore: score(g.AwayTeam.Score),
		Status:    status,
	}, true
}

func score(s *int) int {
	if s == nil {
		return 0
	}
	return *s
}
