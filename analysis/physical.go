package analysis

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/dwiwad/hockeydecoded/roster"
)

// Metric extracts one numeric value from a row. ok is false when the row
// does not carry the value.
type Metric func(r roster.Row) (v float64, ok bool)

// HeightCM is the player's height in centimetres.
func HeightCM(r roster.Row) (float64, bool) {
	if r.HeightIn == nil {
		return 0, false
	}
	return float64(*r.HeightIn) * 2.54, true
}

// WeightLb is the player's weight in pounds.
func WeightLb(r roster.Row) (float64, bool) {
	if r.WeightLb == nil {
		return 0, false
	}
	return float64(*r.WeightLb), true
}

// AgeYears is the player's age on January 1 of the season's first year,
// in days divided by 365.25.
func AgeYears(r roster.Row) (float64, bool) {
	if r.BirthDate == "" {
		return 0, false
	}
	born, err := time.Parse(time.DateOnly, r.BirthDate)
	if err != nil {
		return 0, false
	}
	ref := time.Date(StartYear(r.Season), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := int(ref.Sub(born).Hours() / 24)
	return float64(days) / 365.25, true
}

// Observation is one player's value in one season.
type Observation struct {
	Season int
	Value  float64
}

// Observations returns every row's value for m, skipping rows without one.
func Observations(rows []roster.Row, m Metric) []Observation {
	obs := make([]Observation, 0, len(rows))
	for _, r := range rows {
		if v, ok := m(r); ok {
			obs = append(obs, Observation{Season: r.Season, Value: v})
		}
	}
	return obs
}

// SeasonStat summarises a metric for one season.
type SeasonStat struct {
	Season int
	N      int
	Mean   float64
	Std    float64
}

// Label is the season's display label.
func (s SeasonStat) Label() string { return SeasonLabel(s.Season) }

// SeasonStats computes the per-season mean and sample standard deviation of
// m. Seasons with a single observation report a deviation of zero.
func SeasonStats(rows []roster.Row, m Metric) []SeasonStat {
	values := make(map[int][]float64)
	for _, o := range Observations(rows, m) {
		values[o.Season] = append(values[o.Season], o.Value)
	}
	return summarise(values)
}

func summarise(values map[int][]float64) []SeasonStat {
	out := make([]SeasonStat, 0, len(values))
	for season, vs := range values {
		st := SeasonStat{Season: season, N: len(vs)}
		if len(vs) > 1 {
			st.Mean, st.Std = stat.MeanStdDev(vs, nil)
		} else {
			st.Mean = vs[0]
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Season < out[j].Season })
	return out
}

// HeightBySeason is SeasonStats over HeightCM.
func HeightBySeason(rows []roster.Row) []SeasonStat { return SeasonStats(rows, HeightCM) }

// WeightBySeason is SeasonStats over WeightLb.
func WeightBySeason(rows []roster.Row) []SeasonStat { return SeasonStats(rows, WeightLb) }

// AgeBySeason is SeasonStats over AgeYears.
func AgeBySeason(rows []roster.Row) []SeasonStat { return SeasonStats(rows, AgeYears) }

// SeasonStatsByPosition splits SeasonStats by position group. Rows with an
// unknown position are dropped.
func SeasonStatsByPosition(rows []roster.Row, m Metric) map[string][]SeasonStat {
	values := make(map[string]map[int][]float64)
	for _, r := range rows {
		g := PositionGroup(r.Position)
		if g == "" {
			continue
		}
		v, ok := m(r)
		if !ok {
			continue
		}
		if values[g] == nil {
			values[g] = make(map[int][]float64)
		}
		values[g][r.Season] = append(values[g][r.Season], v)
	}
	out := make(map[string][]SeasonStat, len(values))
	for g, vs := range values {
		out[g] = summarise(vs)
	}
	return out
}
