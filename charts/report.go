package charts

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"

	"github.com/dwiwad/hockeydecoded/analysis"
	"github.com/dwiwad/hockeydecoded/roster"
)

// Palettes.
var (
	PositionColors = map[string]color.Color{
		analysis.Forward: mustHex("#264653"),
		analysis.Defense: mustHex("#2A9D8F"),
		analysis.Goalie:  mustHex("#E76F2B"),
	}
	CountryColors = map[string]color.Color{
		analysis.Canada:        mustHex("#D1495B"),
		analysis.USA:           mustHex("#2E4057"),
		analysis.Scandinavia:   mustHex("#008080"),
		analysis.CentralEurope: mustHex("#E0A458"),
		analysis.FormerUSSR:    mustHex("#6C757D"),
		analysis.WesternEurope: mustHex("#F4A261"),
		analysis.OtherEurope:   mustHex("#8D99AE"),
		analysis.Other:         mustHex("#C8C8C8"),
	}
	AverageDotColor = mustHex("#041E42")
	CareerDotColor  = mustHex("#3B4B64")
	CareerLineColor = mustHex("#E76F2B")
)

// Tick spacing for season and debut-year axes.
const (
	seasonTickStep = 15
	debutTickStep  = 10
	topCountries   = 5
)

// ErrNoRows is returned when a report is asked to run on an empty roster.
var ErrNoRows = errors.New("charts: no roster rows")

type dataset struct {
	rows    []roster.Row
	seasons []int
	index   map[int]int
	ticks   []plot.Tick
	careers []analysis.Career
}

func newDataset(rows []roster.Row) *dataset {
	seasons := analysis.Seasons(rows)
	labels := make([]string, len(seasons))
	for i, s := range seasons {
		labels[i] = analysis.SeasonLabel(s)
	}
	return &dataset{
		rows:    rows,
		seasons: seasons,
		index:   analysis.SeasonIndex(seasons),
		ticks:   TicksEvery(labels, seasonTickStep),
		careers: analysis.Careers(rows),
	}
}

type chart struct {
	name  string
	build func(d *dataset) (*plot.Plot, Figure, error)
}

// Charts lists every file Report writes, in order.
func Charts() []string {
	names := make([]string, len(reportCharts))
	for i, c := range reportCharts {
		names[i] = c.name
	}
	return names
}

var reportCharts = []chart{
	{"nhl_player_nationalities_trend.png", nationalityRaw},
	{"nhl_player_nationalities_trend_clean.png", nationalityClean},
	{"nhl_player_height_trend_raw.png", heightRaw},
	{"nhl_player_height_trend_clean.png", heightClean},
	{"nhl_player_height_spread.png", heightSpread},
	{"nhl_player_weight_trend.png", weightRaw},
	{"nhl_player_weight_trend_clean.png", weightClean},
	{"nhl_player_weight_spread.png", weightSpread},
	{"nhl_player_age_trend.png", ageRaw},
	{"nhl_player_age_trend_clean.png", ageClean},
	{"nhl_age_by_position.png", ageByPosition},
	{"nhl_height_by_position.png", heightByPosition},
	{"nhl_weight_by_position.png", weightByPosition},
	{"nhl_career_length_by_first_year.png", careerLength},
	{"nhl_career_length_by_first_year_position.png", careerLengthByPosition},
	{"nhl_avg_teams_by_position.png", avgTeamsByPosition},
	{"nhl_avg_duration_per_team_by_position.png", seasonsPerTeamByPosition},
	{"nhl_debut_team_retention_by_position.png", retentionByPosition},
	{"nhl_primary_team_tenure_trend.png", primaryTenure},
	{"nhl_primary_team_tenure_by_position.png", primaryTenureByPosition},
}

// Report renders the full chart set for rows into the renderer's directory.
func Report(rows []roster.Row, r Renderer, log logrus.FieldLogger) ([]Output, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	d := newDataset(rows)
	log.WithFields(logrus.Fields{
		"rows":    len(rows),
		"seasons": len(d.seasons),
		"careers": len(d.careers),
	}).Info("rendering charts")

	outputs := make([]Output, 0, len(reportCharts))
	for _, c := range reportCharts {
		p, fig, err := c.build(d)
		if err != nil {
			return outputs, fmt.Errorf("charts: build %s: %w", c.name, err)
		}
		out, err := r.Save(p, fig, c.name)
		if err != nil {
			return outputs, err
		}
		log.WithField("file", out.Path).Debug("chart saved")
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (d *dataset) seasonPoints(stats []analysis.SeasonStat) []analysis.Point {
	pts := make([]analysis.Point, len(stats))
	for i, s := range stats {
		pts[i] = analysis.Point{X: float64(d.index[s.Season]), Y: s.Mean}
	}
	return pts
}

func (d *dataset) observations(m analysis.Metric) []analysis.Point {
	obs := analysis.Observations(d.rows, m)
	pts := make([]analysis.Point, len(obs))
	for i, o := range obs {
		pts[i] = analysis.Point{X: float64(d.index[o.Season]), Y: o.Value}
	}
	return pts
}

func (d *dataset) countrySeries() []Series {
	shares := analysis.CountryShares(d.rows)
	top := analysis.TopGroups(shares, topCountries)
	byGroup := make(map[string][]analysis.Point, len(top))
	for _, s := range shares {
		byGroup[s.Group] = append(byGroup[s.Group], analysis.Point{X: float64(d.index[s.Season]), Y: s.Share})
	}
	series := make([]Series, 0, len(top))
	for _, g := range top {
		series = append(series, Series{Name: g, Color: CountryColors[g], Points: byGroup[g]})
	}
	return series
}

const nationalityTitle = "Canada still leads, but the U.S. is catching up in the NHL"

const nationalitySubtitle = "Over the past 50 years, American players have surged to near parity with Canadians,\n" +
	"while international representation grows modestly."

func nationalityRaw(d *dataset) (*plot.Plot, Figure, error) {
	f := Figure{
		Title:    nationalityTitle,
		Subtitle: nationalitySubtitle,
		Caption:  "Data: Raw yearly proportions",
		YLabel:   "Share of NHL Players",
		XTicks:   d.ticks,
		Percent:  true,
		Legend:   true,
	}
	p, err := TrendLines(f, d.countrySeries())
	return p, f, err
}

func nationalityClean(d *dataset) (*plot.Plot, Figure, error) {
	f := Figure{
		Title:    nationalityTitle,
		Subtitle: nationalitySubtitle,
		Caption:  "Data: Share of total NHL players per season by country group (LOESS-smoothed)",
		YLabel:   "Share of NHL Players",
		XTicks:   d.ticks,
		Percent:  true,
		Legend:   true,
	}
	series := d.countrySeries()
	for i := range series {
		series[i].DotColor = WithAlpha(series[i].Color, 0.2)
	}
	p, err := SmoothedScatter(f, series)
	return p, f, err
}

type physical struct {
	metric analysis.Metric
	label  string
	noun   string
	jitter float64
	lo, hi float64
	step   float64
}

var (
	heightSpec = physical{analysis.HeightCM, "Height (cm)", "height", 0.8, 170, 190, 5}
	weightSpec = physical{analysis.WeightLb, "Weight (lb)", "weight", 0.8, 160, 220, 10}
	ageSpec    = physical{analysis.AgeYears, "Age (years)", "age", 0.3, 22, 30, 1}
)

func (d *dataset) raw(spec physical, title, subtitle string) (*plot.Plot, Figure, error) {
	f := Figure{
		Title:    title,
		Subtitle: subtitle,
		Caption:  fmt.Sprintf("Data: Individual player %s by season (jittered) with yearly average", spec.noun),
		YLabel:   spec.label,
		XTicks:   d.ticks,
	}
	stats := analysis.SeasonStats(d.rows, spec.metric)
	p, err := ScatterMean(f, d.observations(spec.metric), d.seasonPoints(stats), 0.5, spec.jitter)
	return p, f, err
}

func (d *dataset) clean(spec physical, title, subtitle string) (*plot.Plot, Figure, error) {
	f := Figure{
		Title:    title,
		Subtitle: subtitle,
		Caption:  fmt.Sprintf("Data: Yearly average %s with LOESS-smoothed trend", spec.noun),
		YLabel:   spec.label,
		XTicks:   d.ticks,
		YMin:     spec.lo,
		YMax:     spec.hi,
		YStep:    spec.step,
	}
	stats := analysis.SeasonStats(d.rows, spec.metric)
	p, err := SmoothedScatter(f, []Series{{
		Color:    MeanColor,
		DotColor: AverageDotColor,
		Points:   d.seasonPoints(stats),
	}})
	return p, f, err
}

func (d *dataset) spread(spec physical, title string) (*plot.Plot, Figure, error) {
	f := Figure{
		Title:    title,
		Subtitle: fmt.Sprintf("Yearly mean %s with a band one standard deviation either side.", spec.noun),
		Caption:  fmt.Sprintf("Data: Yearly mean %s +/- 1 SD", spec.noun),
		YLabel:   spec.label,
		XTicks:   d.ticks,
	}
	stats := analysis.SeasonStats(d.rows, spec.metric)
	x := make([]float64, len(stats))
	mean := make([]float64, len(stats))
	std := make([]float64, len(stats))
	for i, s := range stats {
		x[i], mean[i], std[i] = float64(d.index[s.Season]), s.Mean, s.Std
	}
	p, err := Band(f, x, mean, std, ScatterColor)
	return p, f, err
}

// firstLast returns the first and last yearly means of a metric.
func (d *dataset) firstLast(m analysis.Metric) (first, last float64, years int) {
	stats := analysis.SeasonStats(d.rows, m)
	if len(stats) == 0 {
		return 0, 0, 0
	}
	a, b := stats[0], stats[len(stats)-1]
	return a.Mean, b.Mean, analysis.StartYear(b.Season) - analysis.StartYear(a.Season)
}

func (d *dataset) heightSubtitle() string {
	first, last, years := d.firstLast(analysis.HeightCM)
	if first == 0 {
		return ""
	}
	return fmt.Sprintf("Over the past %d years, NHL players have steadily gotten taller,\ngrowing from %.1fcm to %.1fcm (%+.2f%%).",
		years, first, last, (last-first)/first*100)
}

func (d *dataset) weightSubtitle() string {
	first, last, _ := d.firstLast(analysis.WeightLb)
	if first == 0 {
		return ""
	}
	return fmt.Sprintf("Players now weigh ~%.0f%% more than they did a century ago.\nFrom ~%.0f lb to ~%.0f lb on average.",
		(last-first)/first*100, math.Round(first), math.Round(last))
}

func heightRaw(d *dataset) (*plot.Plot, Figure, error) {
	return d.raw(heightSpec, "NHL player heights have risen over time, but plateaued", d.heightSubtitle())
}

func heightClean(d *dataset) (*plot.Plot, Figure, error) {
	return d.clean(heightSpec, "NHL player heights have risen over time, but plateaued", d.heightSubtitle())
}

func heightSpread(d *dataset) (*plot.Plot, Figure, error) {
	return d.spread(heightSpec, "NHL rosters have always mixed big and small players")
}

func weightRaw(d *dataset) (*plot.Plot, Figure, error) {
	return d.raw(weightSpec, "NHL Player weights rose for a long time, but have begun to decline", d.weightSubtitle())
}

func weightClean(d *dataset) (*plot.Plot, Figure, error) {
	return d.clean(weightSpec, "NHL player weights have increased steadily", d.weightSubtitle())
}

func weightSpread(d *dataset) (*plot.Plot, Figure, error) {
	return d.spread(weightSpec, "The spread of NHL player weights")
}

func ageRaw(d *dataset) (*plot.Plot, Figure, error) {
	return d.raw(ageSpec, "NHL Player Age Has Remained Remarkably Stable",
		"Despite changes in training, nutrition, and playing style,\nthe average NHL player age has hovered near 26 for decades.")
}

func ageClean(d *dataset) (*plot.Plot, Figure, error) {
	return d.clean(ageSpec, "The average NHL player age has remained steady",
		"Despite changes in size and pace, the average player age has\nstayed between 24 and 28 years since the 1920s.")
}

func (d *dataset) byPosition(spec physical, title, subtitle string, lo, hi, step float64) (*plot.Plot, Figure, error) {
	f := Figure{
		Title:    title,
		Subtitle: subtitle,
		Caption:  fmt.Sprintf("Data: Yearly average %s with LOESS-smoothed trend", spec.noun),
		YLabel:   spec.label,
		XTicks:   d.ticks,
		YMin:     lo,
		YMax:     hi,
		YStep:    step,
		Legend:   true,
	}
	stats := analysis.SeasonStatsByPosition(d.rows, spec.metric)
	series := make([]Series, 0, len(analysis.Positions))
	for _, g := range analysis.Positions {
		series = append(series, Series{Name: g, Color: PositionColors[g], Points: d.seasonPoints(stats[g])})
	}
	p, err := SmoothedScatter(f, series)
	return p, f, err
}

func ageByPosition(d *dataset) (*plot.Plot, Figure, error) {
	return d.byPosition(ageSpec, "The average NHL player age by position",
		"Forwards, defense, and goalies all follow a similar age curve over time.", 22, 30, 1)
}

func heightByPosition(d *dataset) (*plot.Plot, Figure, error) {
	return d.byPosition(heightSpec, "The average NHL player height by position",
		"Goalies are slightly taller on average, but the trend is upward for all roles.", 170, 200, 5)
}

func weightByPosition(d *dataset) (*plot.Plot, Figure, error) {
	return d.byPosition(weightSpec, "The average NHL player weight by position",
		"Weights peaked around 2010 and have trended down since, especially for forwards.", 150, 220, 10)
}

func debutPoints(stats []analysis.DebutStat) ([]analysis.Point, []string) {
	pts := make([]analysis.Point, len(stats))
	labels := make([]string, len(stats))
	for i, s := range stats {
		pts[i] = analysis.Point{X: float64(i), Y: s.Value}
		labels[i] = s.Label()
	}
	return pts, labels
}

// positionSeries turns per-position debut stats into series indexed by
// their position within each group. Ticks follow the forwards.
func positionSeries(stats map[string][]analysis.DebutStat) ([]Series, []plot.Tick) {
	series := make([]Series, 0, len(analysis.Positions))
	var ticks []plot.Tick
	for _, g := range analysis.Positions {
		pts, labels := debutPoints(stats[g])
		if g == analysis.Forward {
			ticks = TicksEvery(labels, debutTickStep)
		}
		series = append(series, Series{Name: g, Color: PositionColors[g], Points: pts})
	}
	return series, ticks
}

func careerLength(d *dataset) (*plot.Plot, Figure, error) {
	pts, labels := debutPoints(analysis.CareerLengthByDebut(d.careers))
	f := Figure{
		Title: "The average NHL career length has subtly declined",
		Subtitle: "While some players have long tenures, most careers are short. The average career\n" +
			"length has dipped slightly over time, especially for players debuting after 2000.",
		Caption: "Data: Career length by debut season with LOESS-smoothed trend",
		YLabel:  "Seasons",
		XTicks:  TicksEvery(labels, debutTickStep),
		YMin:    0,
		YMax:    25,
		YStep:   5,
	}
	p, err := SmoothedScatter(f, []Series{{Color: CareerLineColor, DotColor: CareerDotColor, Points: pts}})
	return p, f, err
}

func careerLengthByPosition(d *dataset) (*plot.Plot, Figure, error) {
	series, ticks := positionSeries(analysis.CareerLengthByDebutPosition(d.careers))
	f := Figure{
		Title: "NHL career length varies slightly by position group",
		Subtitle: "Goalies tend to have slightly longer careers, while forwards and defensemen show\n" +
			"a similar but declining trend over time.",
		Caption: "Data: Career length by debut season, excluding active players; LOESS-smoothed trend",
		YLabel:  "Seasons",
		XTicks:  ticks,
		YMin:    0,
		YMax:    25,
		YStep:   5,
		Legend:  true,
	}
	p, err := SmoothedScatter(f, series)
	return p, f, err
}

func (d *dataset) movementLines(f Figure, value func(analysis.Movement) float64) (*plot.Plot, Figure, error) {
	moves := analysis.MovementByDebutPosition(d.careers)
	stats := make(map[string][]analysis.DebutStat, len(moves))
	for g, ms := range moves {
		for _, m := range ms {
			stats[g] = append(stats[g], analysis.DebutStat{Year: m.Year, N: m.N, Value: value(m)})
		}
	}
	series, ticks := positionSeries(stats)
	for i := range series {
		if len(series[i].Points) == 0 {
			continue
		}
		smooth, err := SmoothSeries(series[i])
		if err != nil {
			return nil, f, err
		}
		series[i] = smooth
	}
	f.XTicks = ticks
	f.Legend = true
	p, err := TrendLines(f, series)
	return p, f, err
}

func avgTeamsByPosition(d *dataset) (*plot.Plot, Figure, error) {
	return d.movementLines(Figure{
		Title:    "NHL players now suit up for more teams over a career",
		Subtitle: "Average number of franchises per player by debut season.",
		Caption:  "Data: Average teams per career by debut season and position group (LOESS-smoothed)",
		YLabel:   "Teams",
		YMin:     1,
		YMax:     6,
		YStep:    1,
	}, func(m analysis.Movement) float64 { return m.Teams })
}

func seasonsPerTeamByPosition(d *dataset) (*plot.Plot, Figure, error) {
	return d.movementLines(Figure{
		Title:    "Stints with a single team are getting shorter",
		Subtitle: "Average seasons spent with each team by debut season.",
		Caption:  "Data: Career length divided by teams played for, by debut season and position group (LOESS-smoothed)",
		YLabel:   "Seasons per team",
		YMin:     1,
		YMax:     10,
		YStep:    1,
	}, func(m analysis.Movement) float64 { return m.SeasonsPerTeam })
}

func retentionByPosition(d *dataset) (*plot.Plot, Figure, error) {
	return d.movementLines(Figure{
		Title:    "Fewer players spend most of their career with their first team",
		Subtitle: "Share of players who played at least half their seasons for their debut team.",
		Caption:  "Data: Debut-team retention by debut season and position group (LOESS-smoothed)",
		YLabel:   "Retained by debut team",
		Percent:  true,
	}, func(m analysis.Movement) float64 { return m.Retained })
}

func primaryTenure(d *dataset) (*plot.Plot, Figure, error) {
	pts, labels := debutPoints(analysis.PrimaryTeamShareByDebut(d.careers))
	f := Figure{
		Title: "NHL players spend less of their career on a single team than they used to",
		Subtitle: "Earlier eras saw players spending most of their careers on a single team.\n" +
			"In modern hockey, movement is the norm.",
		Caption: "Data: Proportion of career played on most-played team by debut season (LOESS-smoothed)",
		YLabel:  "Share of career on primary team",
		XTicks:  TicksEvery(labels, debutTickStep),
		Percent: true,
	}
	p, err := SmoothedScatter(f, []Series{{Color: CareerLineColor, DotColor: CareerDotColor, Points: pts}})
	return p, f, err
}

func primaryTenureByPosition(d *dataset) (*plot.Plot, Figure, error) {
	series, ticks := positionSeries(analysis.PrimaryTeamShareByDebutPosition(d.careers))
	f := Figure{
		Title: "Goalies tend to stay with one team longer than skaters",
		Subtitle: "Across eras, goalies have shown more franchise loyalty or stability than forwards and defensemen.\n" +
			"In modern years, all roles show more movement.",
		Caption: "Data: Proportion of career spent on most-played team by debut year and position group (LOESS-smoothed)",
		YLabel:  "Share of career on primary team",
		XTicks:  ticks,
		Percent: true,
		Legend:  true,
	}
	p, err := SmoothedScatter(f, series)
	return p, f, err
}
