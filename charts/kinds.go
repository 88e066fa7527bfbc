package charts

import (
	"fmt"
	"image/color"
	"math"
	"math/rand"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/dwiwad/hockeydecoded/analysis"
)

// JitterSeed fixes the jitter so reruns produce identical images.
const JitterSeed = 42

// LineWidth is the width of every mean and trend line.
var LineWidth = vg.Points(3.5)

// Series is one named, coloured set of points.
type Series struct {
	Name   string
	Color  color.Color
	Points []analysis.Point

	// DotColor overrides Color for the scatter layer of SmoothedScatter.
	DotColor color.Color
	// DotSize is the marker area in points squared; zero means 50.
	DotSize float64
}

// dotRadius converts a marker area in points squared to a glyph radius.
func dotRadius(area float64) vg.Length {
	return vg.Points(math.Sqrt(area / math.Pi))
}

func xys(pts []analysis.Point) plotter.XYs {
	out := make(plotter.XYs, len(pts))
	for i, p := range pts {
		out[i].X, out[i].Y = p.X, p.Y
	}
	return out
}

func newLine(pts []analysis.Point, c color.Color) (*plotter.Line, error) {
	l, err := plotter.NewLine(xys(pts))
	if err != nil {
		return nil, err
	}
	l.LineStyle.Color = c
	l.LineStyle.Width = LineWidth
	return l, nil
}

func newScatter(pts []analysis.Point, c color.Color, area float64) (*plotter.Scatter, error) {
	s, err := plotter.NewScatter(xys(pts))
	if err != nil {
		return nil, err
	}
	s.GlyphStyle.Color = c
	s.GlyphStyle.Radius = dotRadius(area)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	return s, nil
}

// TicksEvery labels every step-th x position, starting at zero.
func TicksEvery(labels []string, step int) []plot.Tick {
	if step <= 0 {
		step = 1
	}
	var ticks []plot.Tick
	for i := 0; i < len(labels); i += step {
		ticks = append(ticks, plot.Tick{Value: float64(i), Label: labels[i]})
	}
	return ticks
}

// SmoothSeries replaces a series' points with their LOESS fit.
func SmoothSeries(s Series) (Series, error) {
	x := make([]float64, len(s.Points))
	y := make([]float64, len(s.Points))
	for i, p := range s.Points {
		x[i], y[i] = p.X, p.Y
	}
	fit, err := analysis.Lowess(x, y, analysis.DefaultFrac, analysis.DefaultIter)
	if err != nil {
		return Series{}, fmt.Errorf("charts: smooth %s: %w", s.Name, err)
	}
	s.Points = fit
	return s, nil
}

// TrendLines draws one line per series.
func TrendLines(f Figure, series []Series) (*plot.Plot, error) {
	p := f.newPlot()
	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		l, err := newLine(s.Points, s.Color)
		if err != nil {
			return nil, fmt.Errorf("charts: line %s: %w", s.Name, err)
		}
		p.Add(l)
		if f.Legend && s.Name != "" {
			p.Legend.Add(s.Name, l)
		}
	}
	f.finish(p)
	return p, nil
}

// SmoothedScatter draws each series as dots with its LOESS line on top.
func SmoothedScatter(f Figure, series []Series) (*plot.Plot, error) {
	p := f.newPlot()
	for _, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		dot := s.DotColor
		if dot == nil {
			dot = s.Color
		}
		area := s.DotSize
		if area == 0 {
			area = 50
		}
		sc, err := newScatter(s.Points, dot, area)
		if err != nil {
			return nil, fmt.Errorf("charts: scatter %s: %w", s.Name, err)
		}
		smooth, err := SmoothSeries(s)
		if err != nil {
			return nil, err
		}
		l, err := newLine(smooth.Points, s.Color)
		if err != nil {
			return nil, fmt.Errorf("charts: line %s: %w", s.Name, err)
		}
		p.Add(sc, l)
		if f.Legend && s.Name != "" {
			p.Legend.Add(s.Name, l)
		}
	}
	f.finish(p)
	return p, nil
}

// Scatter styling for ScatterMean.
var (
	ScatterColor = mustHex("#3B4B64")
	MeanColor    = mustHex("#D17A22")
)

// ScatterMean draws every observation as a faint jittered dot with the
// per-x mean as a line. Jitter is uniform in [-jx, jx] and [-jy, jy].
func ScatterMean(f Figure, obs, means []analysis.Point, jx, jy float64) (*plot.Plot, error) {
	rng := rand.New(rand.NewSource(JitterSeed))
	jittered := make([]analysis.Point, len(obs))
	for i, o := range obs {
		jittered[i] = analysis.Point{
			X: o.X + (rng.Float64()*2-1)*jx,
			Y: o.Y + (rng.Float64()*2-1)*jy,
		}
	}

	p := f.newPlot()
	if len(jittered) > 0 {
		sc, err := newScatter(jittered, WithAlpha(ScatterColor, 0.05), 12)
		if err != nil {
			return nil, fmt.Errorf("charts: scatter: %w", err)
		}
		p.Add(sc)
	}
	if len(means) > 0 {
		l, err := newLine(means, MeanColor)
		if err != nil {
			return nil, fmt.Errorf("charts: mean line: %w", err)
		}
		p.Add(l)
	}
	f.finish(p)
	return p, nil
}

// Band draws mean +/- one standard deviation as a shaded band under the
// mean line. x, mean and std must have equal length.
func Band(f Figure, x, mean, std []float64, c color.Color) (*plot.Plot, error) {
	if len(x) != len(mean) || len(x) != len(std) {
		return nil, fmt.Errorf("charts: band lengths differ: %d, %d, %d", len(x), len(mean), len(std))
	}
	p := f.newPlot()
	if len(x) == 0 {
		f.finish(p)
		return p, nil
	}

	ring := make(plotter.XYs, 0, 2*len(x))
	for i := range x {
		ring = append(ring, plotter.XY{X: x[i], Y: mean[i] + std[i]})
	}
	for i := len(x) - 1; i >= 0; i-- {
		ring = append(ring, plotter.XY{X: x[i], Y: mean[i] - std[i]})
	}
	poly, err := plotter.NewPolygon(ring)
	if err != nil {
		return nil, fmt.Errorf("charts: band: %w", err)
	}
	poly.Color = WithAlpha(c, 0.2)
	poly.LineStyle.Width = 0

	pts := make([]analysis.Point, len(x))
	for i := range x {
		pts[i] = analysis.Point{X: x[i], Y: mean[i]}
	}
	l, err := newLine(pts, c)
	if err != nil {
		return nil, fmt.Errorf("charts: band mean: %w", err)
	}
	p.Add(poly, l)
	f.finish(p)
	return p, nil
}
