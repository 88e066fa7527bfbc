package charts

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/dwiwad/hockeydecoded/analysis"
	"github.com/dwiwad/hockeydecoded/roster"
)

func decodePNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#3B4B64")
	if err != nil {
		t.Fatalf("ParseHex failed: %v", err)
	}
	if c != (color.NRGBA{R: 0x3B, G: 0x4B, B: 0x64, A: 0xff}) {
		t.Errorf("colour = %+v", c)
	}
	for _, bad := range []string{"", "#fff", "#GGGGGG", "3B4B6"} {
		if _, err := ParseHex(bad); err == nil {
			t.Errorf("ParseHex(%q) should fail", bad)
		}
	}
	if a := WithAlpha(c, 0.2).A; a != 51 {
		t.Errorf("alpha = %d, want 51", a)
	}
}

func TestTicksEvery(t *testing.T) {
	labels := []string{"a", "b", "c", "d", "e", "f", "g"}
	ticks := TicksEvery(labels, 3)
	if len(ticks) != 3 {
		t.Fatalf("ticks = %+v", ticks)
	}
	if ticks[1].Value != 3 || ticks[1].Label != "d" || ticks[2].Label != "g" {
		t.Errorf("ticks = %+v", ticks)
	}
}

func TestThumbnail(t *testing.T) {
	wide := image.NewNRGBA(image.Rect(0, 0, 1600, 900))
	thumb := Thumbnail(wide, 0)
	if b := thumb.Bounds(); b.Dx() != MaxThumbWidth || b.Dy() != 450 {
		t.Errorf("thumb = %v, want 800x450", b)
	}
	narrow := image.NewNRGBA(image.Rect(0, 0, 300, 200))
	if Thumbnail(narrow, 0) != image.Image(narrow) {
		t.Error("narrow image should be returned unchanged")
	}
	if got := ThumbName("nhl_player_age_trend.png"); got != "nhl_player_age_trend_thumb.png" {
		t.Errorf("ThumbName = %q", got)
	}
}

func TestRendererSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := Renderer{Dir: dir, DPI: 40, ThumbWidth: 200}
	f := Figure{
		Title:    "Title",
		Subtitle: "Line one\nLine two",
		Caption:  "Data: test",
		YMin:     0,
		YMax:     10,
		YStep:    5,
		Legend:   true,
	}
	p, err := TrendLines(f, []Series{
		{Name: "a", Color: PositionColors[analysis.Forward], Points: []analysis.Point{{X: 0, Y: 1}, {X: 1, Y: 4}, {X: 2, Y: 9}}},
		{Name: "empty", Color: PositionColors[analysis.Goalie]},
	})
	if err != nil {
		t.Fatalf("TrendLines failed: %v", err)
	}
	out, err := r.Save(p, f, "trend.png")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if out.Path != filepath.Join(dir, "trend.png") || out.Thumb != filepath.Join(dir, "trend_thumb.png") {
		t.Errorf("output = %+v", out)
	}

	img := decodePNG(t, out.Path)
	if b := img.Bounds(); b.Dx() != 480 || b.Dy() != 280 {
		t.Errorf("chart size = %v, want 480x280", b)
	}
	if _, _, _, a := img.At(img.Bounds().Max.X-1, 0).RGBA(); a != 0 {
		t.Errorf("background alpha = %d, want transparent", a)
	}
	if b := decodePNG(t, out.Thumb).Bounds(); b.Dx() != 200 {
		t.Errorf("thumb width = %d, want 200", b.Dx())
	}
}

func TestScatterMeanIsDeterministic(t *testing.T) {
	obs := []analysis.Point{{X: 0, Y: 180}, {X: 0, Y: 182}, {X: 1, Y: 183}, {X: 1, Y: 185}, {X: 2, Y: 186}}
	means := []analysis.Point{{X: 0, Y: 181}, {X: 1, Y: 184}, {X: 2, Y: 186}}
	render := func() []byte {
		p, err := ScatterMean(Figure{}, obs, means, 0.5, 0.8)
		if err != nil {
			t.Fatalf("ScatterMean failed: %v", err)
		}
		var buf bytes.Buffer
		c := Renderer{DPI: 20}.Draw(p, Figure{})
		if err := png.Encode(&buf, c.Image()); err != nil {
			t.Fatalf("encode: %v", err)
		}
		return buf.Bytes()
	}
	if !bytes.Equal(render(), render()) {
		t.Error("jittered scatter should render identically across runs")
	}
}

func TestBand(t *testing.T) {
	if _, err := Band(Figure{}, []float64{0, 1}, []float64{1}, []float64{1, 1}, ScatterColor); err == nil {
		t.Error("expected length mismatch error")
	}
	if _, err := Band(Figure{}, []float64{0, 1, 2}, []float64{180, 181, 183}, []float64{5, 4, 6}, ScatterColor); err != nil {
		t.Errorf("Band failed: %v", err)
	}
	if _, err := Band(Figure{}, nil, nil, nil, ScatterColor); err != nil {
		t.Errorf("empty Band failed: %v", err)
	}
}

func intp(v int) *int { return &v }

func syntheticRoster() []roster.Row {
	countries := []string{"CAN", "CAN", "USA", "SWE", "RUS", "CZE"}
	positions := []string{"C", "D", "G", "L", "R", "D"}
	teams := []string{"EDM", "TOR", "MTL"}
	var rows []roster.Row
	for year := 1990; year <= 2004; year++ {
		season := year*10000 + year + 1
		for p := 0; p < 6; p++ {
			// Players join in waves and play five seasons each.
			id := (year-1990)/5*10 + p + 1
			rows = append(rows, roster.Row{
				Team:         teams[(year+p)%len(teams)],
				Season:       season,
				ID:           id,
				Position:     positions[p],
				BirthDate:    "1970-06-15",
				BirthCountry: countries[p],
				HeightIn:     intp(70 + p),
				WeightLb:     intp(180 + 2*p + year%3),
			})
		}
	}
	return rows
}

func TestReport(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := Renderer{Dir: t.TempDir(), DPI: 20}

	outs, err := Report(syntheticRoster(), r, logger)
	if err != nil {
		t.Fatalf("Report failed: %v", err)
	}
	names := Charts()
	if len(outs) != len(names) {
		t.Fatalf("outputs = %d, want %d", len(outs), len(names))
	}
	for i, out := range outs {
		if filepath.Base(out.Path) != names[i] {
			t.Errorf("output %d = %s, want %s", i, out.Path, names[i])
		}
		for _, path := range []string{out.Path, out.Thumb} {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("missing %s: %v", path, err)
			}
		}
	}
	if hook.LastEntry() == nil {
		t.Error("expected report to log")
	}
}

func TestReportEmpty(t *testing.T) {
	logger, _ := test.NewNullLogger()
	if _, err := Report(nil, Renderer{Dir: t.TempDir()}, logger); !errors.Is(err, ErrNoRows) {
		t.Errorf("err = %v, want ErrNoRows", err)
	}
}

type fakeUploader struct {
	keys []string
	fail bool
}

func (f *fakeUploader) UploadWithContext(ctx aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.fail {
		return nil, errors.New("access denied")
	}
	f.keys = append(f.keys, aws.StringValue(in.Key))
	if aws.StringValue(in.ContentType) != "image/png" {
		return nil, errors.New("wrong content type")
	}
	return &s3manager.UploadOutput{Location: "https://bucket.s3.amazonaws.com/" + aws.StringValue(in.Key)}, nil
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "chart.png")
	if err := os.WriteFile(file, []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	up := &fakeUploader{}
	logger, _ := test.NewNullLogger()
	p := NewPublisherWithUploader("bucket", "images/deep-dives", up, logger)

	locs, err := p.Publish(context.Background(), []string{file})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if len(up.keys) != 1 || up.keys[0] != "images/deep-dives/chart.png" {
		t.Errorf("keys = %v", up.keys)
	}
	if len(locs) != 1 || locs[0] != "https://bucket.s3.amazonaws.com/images/deep-dives/chart.png" {
		t.Errorf("locations = %v", locs)
	}

	if _, err := p.Publish(context.Background(), []string{filepath.Join(dir, "missing.png")}); err == nil {
		t.Error("expected error for missing file")
	}
	up.fail = true
	if _, err := p.Publish(context.Background(), []string{file}); err == nil {
		t.Error("expected upload error")
	}
}

func TestNewPublisherRequiresBucket(t *testing.T) {
	if _, err := NewPublisher("", "", "us-east-1", logrus.New()); err == nil {
		t.Error("expected error for empty bucket")
	}
}
