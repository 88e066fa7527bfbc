package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/dwiwad/hockeydecoded/roster"
)

// Career summarises one player's roster history. Seasons counts roster
// rows, so a player on two rosters in one season counts twice.
type Career struct {
	ID               int
	Position         string
	DebutYear        int
	LastYear         int
	Seasons          int
	Teams            int
	DebutTeamSeasons int
	MaxTeamSeasons   int

	// Positioned repeats the counts over rows with a known position group.
	Positioned Tenure
}

// Tenure counts roster rows per team.
type Tenure struct {
	Seasons          int
	Teams            int
	DebutTeamSeasons int
}

// SeasonsPerTeam is the average number of roster seasons per team.
func (t Tenure) SeasonsPerTeam() float64 {
	return float64(t.Seasons) / float64(t.Teams)
}

// RetainedByDebutTeam reports whether at least half the seasons were spent
// with the debut team.
func (t Tenure) RetainedByDebutTeam() bool {
	return float64(t.DebutTeamSeasons)/float64(t.Seasons) >= 0.5
}

// SeasonsPerTeam is the average number of roster seasons per team.
func (c Career) SeasonsPerTeam() float64 {
	return float64(c.Seasons) / float64(c.Teams)
}

// RetainedByDebutTeam reports whether at least half the career was spent
// with the debut team.
func (c Career) RetainedByDebutTeam() bool {
	return float64(c.DebutTeamSeasons)/float64(c.Seasons) >= 0.5
}

// PrimaryTeamShare is the fraction of the career spent with the most-played
// team.
func (c Career) PrimaryTeamShare() float64 {
	return float64(c.MaxTeamSeasons) / float64(c.Seasons)
}

// Careers builds one Career per player, leaving out players still active in
// the latest season year present in rows. The result is ordered by ID.
func Careers(rows []roster.Row) []Career {
	byPlayer := make(map[int][]roster.Row)
	latest := 0
	for _, r := range rows {
		byPlayer[r.ID] = append(byPlayer[r.ID], r)
		if y := StartYear(r.Season); y > latest {
			latest = y
		}
	}

	careers := make([]Career, 0, len(byPlayer))
	for id, rs := range byPlayer {
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Season < rs[j].Season })
		c := Career{
			ID:        id,
			DebutYear: StartYear(rs[0].Season),
			LastYear:  StartYear(rs[len(rs)-1].Season),
			Seasons:   len(rs),
		}
		if c.LastYear >= latest {
			continue
		}
		debutTeam := rs[0].Team
		perTeam := make(map[string]int)
		for _, r := range rs {
			perTeam[r.Team]++
			if c.Position == "" {
				c.Position = PositionGroup(r.Position)
			}
		}
		c.Teams = len(perTeam)
		c.DebutTeamSeasons = perTeam[debutTeam]
		for _, n := range perTeam {
			if n > c.MaxTeamSeasons {
				c.MaxTeamSeasons = n
			}
		}
		c.Positioned = positionedTenure(rs)
		careers = append(careers, c)
	}
	sort.Slice(careers, func(i, j int) bool { return careers[i].ID < careers[j].ID })
	return careers
}

// positionedTenure counts rs, already in season order, after dropping rows
// whose position has no group.
func positionedTenure(rs []roster.Row) Tenure {
	var t Tenure
	debutTeam := ""
	teams := make(map[string]bool)
	for _, r := range rs {
		if PositionGroup(r.Position) == "" {
			continue
		}
		if t.Seasons == 0 {
			debutTeam = r.Team
		}
		t.Seasons++
		teams[r.Team] = true
		if r.Team == debutTeam {
			t.DebutTeamSeasons++
		}
	}
	t.Teams = len(teams)
	return t
}

// DebutStat is a mean over the careers that began in one year.
type DebutStat struct {
	Year  int
	N     int
	Value float64
}

// Label is the debut year's season label.
func (d DebutStat) Label() string { return DebutLabel(d.Year) }

func byDebut(careers []Career, value func(Career) float64) []DebutStat {
	values := make(map[int][]float64)
	for _, c := range careers {
		values[c.DebutYear] = append(values[c.DebutYear], value(c))
	}
	out := make([]DebutStat, 0, len(values))
	for y, vs := range values {
		out = append(out, DebutStat{Year: y, N: len(vs), Value: stat.Mean(vs, nil)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

func byDebutPosition(careers []Career, value func(Career) float64) map[string][]DebutStat {
	groups := make(map[string][]Career)
	for _, c := range careers {
		if c.Position == "" {
			continue
		}
		groups[c.Position] = append(groups[c.Position], c)
	}
	out := make(map[string][]DebutStat, len(groups))
	for g, cs := range groups {
		out[g] = byDebut(cs, value)
	}
	return out
}

func careerLength(c Career) float64 { return float64(c.Seasons) }

// CareerLengthByDebut is the mean career length per debut year.
func CareerLengthByDebut(careers []Career) []DebutStat {
	return byDebut(careers, careerLength)
}

// CareerLengthByDebutPosition is CareerLengthByDebut split by position group.
func CareerLengthByDebutPosition(careers []Career) map[string][]DebutStat {
	return byDebutPosition(careers, careerLength)
}

// PrimaryTeamShareByDebut is the mean share of a career spent with the
// most-played team, per debut year.
func PrimaryTeamShareByDebut(careers []Career) []DebutStat {
	return byDebut(careers, Career.PrimaryTeamShare)
}

// PrimaryTeamShareByDebutPosition is PrimaryTeamShareByDebut split by
// position group.
func PrimaryTeamShareByDebutPosition(careers []Career) map[string][]DebutStat {
	return byDebutPosition(careers, Career.PrimaryTeamShare)
}

// Movement holds the team-movement means for one debut year.
type Movement struct {
	Year           int
	N              int
	Teams          float64
	SeasonsPerTeam float64
	Retained       float64
}

// Label is the debut year's season label.
func (m Movement) Label() string { return DebutLabel(m.Year) }

// MovementByDebutPosition computes, per position group and debut year, the
// mean number of teams, mean seasons per team and the share of players
// retained by their debut team. Only rows with a known position group are
// counted.
func MovementByDebutPosition(careers []Career) map[string][]Movement {
	teams := byDebutPosition(careers, func(c Career) float64 { return float64(c.Positioned.Teams) })
	perTeam := byDebutPosition(careers, func(c Career) float64 { return c.Positioned.SeasonsPerTeam() })
	retained := byDebutPosition(careers, func(c Career) float64 {
		if c.Positioned.RetainedByDebutTeam() {
			return 1
		}
		return 0
	})

	out := make(map[string][]Movement, len(teams))
	for g, ts := range teams {
		ms := make([]Movement, len(ts))
		for i, t := range ts {
			ms[i] = Movement{
				Year:           t.Year,
				N:              t.N,
				Teams:          t.Value,
				SeasonsPerTeam: perTeam[g][i].Value,
				Retained:       retained[g][i].Value,
			}
		}
		out[g] = ms
	}
	return out
}
