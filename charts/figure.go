// Package charts renders the deep-dive figures: a plot body from
// gonum.org/v1/plot framed by a title, a subtitle and a caption, written as
// a transparent PNG plus a blog-card thumbnail.
package charts

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	xfont "golang.org/x/image/font"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Figure dimensions.
const (
	Width      = 12 * vg.Inch
	Height     = 7 * vg.Inch
	DefaultDPI = 150
)

// Figure describes the frame and axes shared by every chart kind.
type Figure struct {
	Title    string
	Subtitle string
	Caption  string
	YLabel   string

	// XTicks label the x axis. Empty leaves gonum's default ticks.
	XTicks []plot.Tick

	// YMin and YMax fix the y range when they differ. YStep adds a
	// labelled tick every step across that range.
	YMin, YMax float64
	YStep      float64

	// Percent fixes y to [0, 1] with ticks labelled 0% to 100%.
	Percent bool

	Legend bool
}

var ink = mustHex("#222222")

func mustHex(s string) color.NRGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseHex parses an "#RRGGBB" colour.
func ParseHex(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("charts: bad colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("charts: bad colour %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// WithAlpha returns c at the given opacity in [0, 1].
func WithAlpha(c color.Color, alpha float64) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(alpha*255 + 0.5)
	return n
}

// newPlot returns a plot with a transparent background and the figure's
// axis labels applied.
func (f Figure) newPlot() *plot.Plot {
	p := plot.New()
	p.BackgroundColor = color.Transparent
	p.Y.Label.Text = f.YLabel
	p.Y.Label.TextStyle.Font.Size = vg.Points(18)
	p.X.Tick.Label.Font.Size = vg.Points(14)
	p.Y.Tick.Label.Font.Size = vg.Points(14)
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(14)
	return p
}

// finish fixes the axes once every plotter has been added, since Add widens
// the ranges to fit the data.
func (f Figure) finish(p *plot.Plot) {
	if len(f.XTicks) > 0 {
		p.X.Tick.Marker = plot.ConstantTicks(f.XTicks)
	}
	switch {
	case f.Percent:
		p.Y.Min, p.Y.Max = 0, 1
		var ticks []plot.Tick
		for v := 0.0; v <= 1.0001; v += 0.25 {
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf("%d%%", int(v*100+0.5))})
		}
		p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	case f.YMax > f.YMin:
		p.Y.Min, p.Y.Max = f.YMin, f.YMax
		if f.YStep > 0 {
			var ticks []plot.Tick
			for v := f.YMin; v <= f.YMax+f.YStep/1e6; v += f.YStep {
				ticks = append(ticks, plot.Tick{Value: v, Label: strconv.FormatFloat(v, 'f', -1, 64)})
			}
			p.Y.Tick.Marker = plot.ConstantTicks(ticks)
		}
	}
}

// Renderer writes figures into Dir.
type Renderer struct {
	Dir string
	DPI int

	// ThumbWidth caps the thumbnail width; zero uses MaxThumbWidth.
	ThumbWidth int
}

// Output names the files written for one figure.
type Output struct {
	Path  string
	Thumb string
}

func (r Renderer) dpi() int {
	if r.DPI > 0 {
		return r.DPI
	}
	return DefaultDPI
}

// Draw renders the framed figure onto a new transparent canvas.
func (r Renderer) Draw(p *plot.Plot, f Figure) *vgimg.Canvas {
	c := vgimg.NewWith(
		vgimg.UseWH(Width, Height),
		vgimg.UseDPI(r.dpi()),
		vgimg.UseBackgroundColor(color.Transparent),
	)
	dc := draw.New(c)
	pad := vg.Points(18)
	left := dc.Min.X + pad
	y := dc.Max.Y - pad

	if f.Title != "" {
		sty := textStyle(p, 20, xfont.StyleNormal, xfont.WeightBold)
		sty.YAlign = text.YTop
		dc.FillText(sty, vg.Point{X: left, Y: y}, f.Title)
		y -= sty.Height(f.Title) + vg.Points(8)
	}
	if f.Subtitle != "" {
		sty := textStyle(p, 14, xfont.StyleNormal, xfont.WeightNormal)
		sty.YAlign = text.YTop
		dc.FillText(sty, vg.Point{X: left, Y: y}, f.Subtitle)
		y -= sty.Height(f.Subtitle)
	}

	bottom := pad / 2
	if f.Caption != "" {
		sty := textStyle(p, 10, xfont.StyleItalic, xfont.WeightNormal)
		sty.XAlign = text.XRight
		sty.YAlign = text.YBottom
		dc.FillText(sty, vg.Point{X: dc.Max.X - pad, Y: dc.Min.Y + pad/2}, f.Caption)
		bottom += sty.Height(f.Caption) + pad/2
	}

	p.Draw(draw.Crop(dc, pad/2, -pad, bottom, y-pad/2-dc.Max.Y))
	return c
}

func textStyle(p *plot.Plot, size float64, style xfont.Style, weight xfont.Weight) text.Style {
	fnt := font.From(plot.DefaultFont, vg.Points(size))
	fnt.Style = style
	fnt.Weight = weight
	return text.Style{
		Color:   ink,
		Font:    fnt,
		XAlign:  text.XLeft,
		Handler: p.TextHandler,
	}
}

// Save renders the figure to Dir/name and writes its thumbnail beside it.
func (r Renderer) Save(p *plot.Plot, f Figure, name string) (Output, error) {
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return Output{}, fmt.Errorf("charts: create output dir: %w", err)
	}
	c := r.Draw(p, f)

	out := Output{
		Path:  filepath.Join(r.Dir, name),
		Thumb: filepath.Join(r.Dir, ThumbName(name)),
	}
	file, err := os.Create(out.Path)
	if err != nil {
		return Output{}, fmt.Errorf("charts: create %s: %w", name, err)
	}
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(file); err != nil {
		file.Close()
		return Output{}, fmt.Errorf("charts: encode %s: %w", name, err)
	}
	if err := file.Close(); err != nil {
		return Output{}, fmt.Errorf("charts: close %s: %w", name, err)
	}

	if err := WriteThumbnail(out.Thumb, c.Image(), r.ThumbWidth); err != nil {
		return Output{}, err
	}
	return out, nil
}
