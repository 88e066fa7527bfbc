// Package roster turns NHL roster documents into flat per-player rows and
// moves them between the API, CSV files and the store.
package roster

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dwiwad/hockeydecoded"
	"github.com/dwiwad/hockeydecoded/nhlapi"
)

var validate = validator.New()

// Row is one player on one team's roster for one season.
type Row struct {
	Team          string `validate:"required"`
	Season        int    `validate:"required,gte=19171918"`
	ID            int    `validate:"required"`
	FirstName     string
	LastName      string
	Position      string `validate:"omitempty,oneof=C L R D G"`
	Sweater       *int
	Shoots        string
	BirthDate     string `validate:"omitempty,datetime=2006-01-02"`
	BirthCity     string
	BirthProvince string
	BirthCountry  string
	HeightIn      *int
	WeightLb      *int
	Headshot      string
}

// Validate checks the row's required fields and formats.
func (r Row) Validate() error {
	return validate.Struct(r)
}

// Flatten converts a roster into rows: forwards, then defensemen, then
// goalies, with localized names taken from their default value.
func Flatten(team string, season int, r nhlapi.Roster) []Row {
	players := r.Players()
	rows := make([]Row, 0, len(players))
	for _, p := range players {
		row := Row{
			Team:         team,
			Season:       season,
			ID:           p.ID,
			FirstName:    p.FirstName.Default,
			LastName:     p.LastName.Default,
			Position:     p.PositionCode,
			Sweater:      p.SweaterNumber,
			Shoots:       p.ShootsCatches,
			BirthDate:    p.BirthDate,
			BirthCity:    p.BirthCity.Default,
			BirthCountry: p.BirthCountry,
			HeightIn:     p.HeightInInches,
			WeightLb:     p.WeightInPounds,
			Headshot:     p.Headshot,
		}
		if p.BirthStateProvince != nil {
			row.BirthProvince = p.BirthStateProvince.Default
		}
		rows = append(rows, row)
	}
	return rows
}

// Player converts the row to a stored player record. Height is converted
// from inches to whole centimetres.
func (r Row) Player() hockeydecoded.Player {
	p := hockeydecoded.Player{
		NHLID:        int64(r.ID),
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Position:     r.Position,
		BirthDate:    r.BirthDate,
		BirthCity:    r.BirthCity,
		BirthCountry: r.BirthCountry,
	}
	if r.HeightIn != nil {
		p.HeightCM.Int64 = int64(math.Round(float64(*r.HeightIn) * 2.54))
		p.HeightCM.Valid = true
	}
	if r.WeightLb != nil {
		p.WeightLbs.Int64 = int64(*r.WeightLb)
		p.WeightLbs.Valid = true
	}
	return p
}

// SeasonRange returns season ids for every season starting in the years
// from..to inclusive, e.g. 1917..1918 -> [19171918 19181919].
func SeasonRange(from, to int) []int {
	if to < from {
		return nil
	}
	seasons := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		seasons = append(seasons, SeasonID(y))
	}
	return seasons
}

// SeasonID builds the eight-digit season id for a start year.
func SeasonID(startYear int) int {
	return startYear*10000 + startYear + 1
}

// ParseSeasons parses a comma-separated list of season ids or start years.
func ParseSeasons(s string) ([]int, error) {
	var seasons []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("roster: invalid season %q: %w", part, err)
		}
		switch len(part) {
		case 4:
			seasons = append(seasons, SeasonID(n))
		case 8:
			if n%10000 != n/10000+1 {
				return nil, fmt.Errorf("roster: invalid season %q: years are not consecutive", part)
			}
			seasons = append(seasons, n)
		default:
			return nil, fmt.Errorf("roster: invalid season %q: want YYYY or YYYYYYYY", part)
		}
	}
	return seasons, nil
}

// ParseTeams parses a comma-separated list of team tri-codes.
func ParseTeams(s string) []string {
	var teams []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.ToUpper(strings.TrimSpace(part)); t != "" {
			teams = append(teams, t)
		}
	}
	return teams
}
