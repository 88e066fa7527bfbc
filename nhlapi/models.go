package nhlapi

import "time"

// LocalizedString is the NHL API's {"default": "...", "fr": "..."} shape.
type LocalizedString struct {
	Default string `json:"default"`
}

// Team is one entry of the stats API team list.
type Team struct {
	ID          int    `json:"id"`
	FranchiseID *int   `json:"franchiseId"`
	FullName    string `json:"fullName"`
	TriCode     string `json:"triCode"`
}

type teamList struct {
	Data  []Team `json:"data"`
	Total int    `json:"total"`
}

// RosterPlayer is a player entry inside a roster document.
type RosterPlayer struct {
	ID                 int              `json:"id"`
	Headshot           string           `json:"headshot"`
	FirstName          LocalizedString  `json:"firstName"`
	LastName           LocalizedString  `json:"lastName"`
	SweaterNumber      *int             `json:"sweaterNumber"`
	PositionCode       string           `json:"positionCode"`
	ShootsCatches      string           `json:"shootsCatches"`
	HeightInInches     *int             `json:"heightInInches"`
	WeightInPounds     *int             `json:"weightInPounds"`
	BirthDate          string           `json:"birthDate"`
	BirthCity          LocalizedString  `json:"birthCity"`
	BirthStateProvince *LocalizedString `json:"birthStateProvince"`
	BirthCountry       string           `json:"birthCountry"`
}

// Roster is a team's roster for one season.
type Roster struct {
	Forwards   []RosterPlayer `json:"forwards"`
	Defensemen []RosterPlayer `json:"defensemen"`
	Goalies    []RosterPlayer `json:"goalies"`
}

// Players returns forwards, defensemen and goalies in that order.
func (r Roster) Players() []RosterPlayer {
	out := make([]RosterPlayer, 0, len(r.Forwards)+len(r.Defensemen)+len(r.Goalies))
	out = append(out, r.Forwards...)
	out = append(out, r.Defensemen...)
	return append(out, r.Goalies...)
}

// ScoreTeam is one side of a game in the score feed.
type ScoreTeam struct {
	ID     int             `json:"id"`
	Name   LocalizedString `json:"name"`
	Abbrev string          `json:"abbrev"`
	Score  *int            `json:"score"`
}

// ScoreGame is a single game in the score feed.
type ScoreGame struct {
	ID           int64     `json:"id"`
	Season       int       `json:"season"`
	GameType     int       `json:"gameType"`
	GameDate     string    `json:"gameDate"`
	StartTimeUTC time.Time `json:"startTimeUTC"`
	GameState    string    `json:"gameState"`
	AwayTeam     ScoreTeam `json:"awayTeam"`
	HomeTeam     ScoreTeam `json:"homeTeam"`
}

// Scoreboard is the response of the score endpoint.
type Scoreboard struct {
	CurrentDate string      `json:"currentDate"`
	Games       []ScoreGame `json:"games"`
}
