package render

import (
	"bytes"
	"image"
	"image/png"
	"math"
	"testing"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/miradorstack/posture-dashboard/internal/models"
)

type pngSurface struct {
	width, height int
	resized       [][2]int
	image         image.Image
}

func (s *pngSurface) LayoutSize() (int, int) { return s.width, s.height }

func (s *pngSurface) Resize(w, h int) (chart.Renderer, error) {
	s.resized = append(s.resized, [2]int{w, h})
	return chart.PNG(w, h)
}

func (s *pngSurface) Commit(r chart.Renderer) error {
	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return err
	}
	img, err := png.Decode(&buf)
	if err != nil {
		return err
	}
	s.image = img
	return nil
}

func (s *pngSurface) countInk() int {
	bounds := s.image.Bounds()
	ink := 0
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			r, g, b, _ := s.image.At(x, y).RGBA()
			if r < 0xf000 || g < 0xf000 || b < 0xf000 {
				ink++
			}
		}
	}
	return ink
}

const tolerance = 1e-9

func TestSeriesLayoutScalesProportionally(t *testing.T) {
	h := 240
	points := SeriesLayout(300, h, []float64{2, 4, 10})
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	baseline := float64(h) - 10
	top := float64(h) - 10 - float64(h-28)
	if math.Abs(points[2].Y-top) > tolerance {
		t.Fatalf("max value should reach the top margin: got %v want %v", points[2].Y, top)
	}
	full := baseline - points[2].Y
	if got := (baseline - points[0].Y) / full; math.Abs(got-0.2) > tolerance {
		t.Fatalf("value 2 should be 20%% of max height, got %v", got)
	}
	if got := (baseline - points[1].Y) / full; math.Abs(got-0.4) > tolerance {
		t.Fatalf("value 4 should be 40%% of max height, got %v", got)
	}
	if points[0].X != 0 || points[1].X != 150 || points[2].X != 300 {
		t.Fatalf("expected uniform x spacing, got %+v", points)
	}
}

func TestSeriesLayoutDegenerate(t *testing.T) {
	if points := SeriesLayout(300, 240, nil); points != nil {
		t.Fatalf("expected no points for empty series")
	}
	single := SeriesLayout(300, 240, []float64{1})
	if len(single) != 1 || single[0].X != 0 {
		t.Fatalf("unexpected single point layout %+v", single)
	}
	// ceiling of 10 keeps a small series low on the chart
	if want := 240 - 10 - 0.1*(240-28); math.Abs(single[0].Y-want) > tolerance {
		t.Fatalf("expected y %v, got %v", want, single[0].Y)
	}
}

func TestBarLayoutScalesProportionally(t *testing.T) {
	bars := BarLayout(320, 200, []float64{2, 4, 10})
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	if math.Abs(bars[2].Height-170) > tolerance {
		t.Fatalf("max bar should use full height, got %v", bars[2].Height)
	}
	if math.Abs(bars[0].Height/bars[2].Height-0.2) > tolerance || math.Abs(bars[1].Height/bars[2].Height-0.4) > tolerance {
		t.Fatalf("bars not proportional: %+v", bars)
	}
	for i, b := range bars {
		if math.Abs(b.Y+b.Height-180) > tolerance {
			t.Fatalf("bar %d should sit on the baseline, got %+v", i, b)
		}
	}
	if bars[1].X-bars[0].X != bars[0].Width+barGap {
		t.Fatalf("expected fixed gap between bars")
	}
}

func TestBarLayoutMinimumWidth(t *testing.T) {
	values := make([]float64, 50)
	for _, b := range BarLayout(100, 100, values) {
		if b.Width != barMinWidth {
			t.Fatalf("expected minimum width, got %v", b.Width)
		}
		if b.Height != 0 {
			t.Fatalf("zero values should produce zero height bars")
		}
	}
}

func TestDrawSeriesEmptyClearsSurface(t *testing.T) {
	s := &pngSurface{width: 120, height: 80}
	if err := DrawSeries(s, nil); err != nil {
		t.Fatalf("draw empty series: %v", err)
	}
	if s.image == nil {
		t.Fatalf("expected surface to be committed")
	}
	if ink := s.countInk(); ink != 0 {
		t.Fatalf("expected blank surface, found %d drawn pixels", ink)
	}
}

func TestDrawSeriesReadsLayoutEveryCall(t *testing.T) {
	s := &pngSurface{width: 120, height: 80}
	points := []models.Sample{{Label: "a", Value: 1}, {Label: "b", Value: 8}, {Label: "c", Value: 3}}
	if err := DrawSeries(s, points); err != nil {
		t.Fatalf("first draw: %v", err)
	}
	if s.countInk() == 0 {
		t.Fatalf("expected a plotted line")
	}
	s.width, s.height = 200, 100
	if err := DrawSeries(s, points); err != nil {
		t.Fatalf("second draw: %v", err)
	}
	if len(s.resized) != 2 || s.resized[1] != [2]int{200, 100} {
		t.Fatalf("expected resize to new layout, got %v", s.resized)
	}
	if b := s.image.Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Fatalf("expected 200x100 image, got %v", b)
	}
}

func TestDrawCategories(t *testing.T) {
	s := &pngSurface{width: 200, height: 120}
	if err := DrawCategories(s, []string{"ISO", "SOC2"}, []float64{80, 40}); err != nil {
		t.Fatalf("draw categories: %v", err)
	}
	if s.countInk() == 0 {
		t.Fatalf("expected bars to be drawn")
	}
	if err := DrawCategories(&pngSurface{width: 0, height: 10}, nil, nil); err == nil {
		t.Fatalf("expected error for zero-sized surface")
	}
}
