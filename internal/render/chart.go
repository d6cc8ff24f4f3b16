// Package render paints datasets onto drawing surfaces and tabular targets.
// Renderers keep no state between calls.
package render

import (
	"fmt"
	"math"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/miradorstack/posture-dashboard/internal/models"
)

// Surface is a resizable drawing region.
type Surface interface {
	// LayoutSize reports the current layout box in pixels.
	LayoutSize() (width, height int)
	// Resize replaces the backing store with a blank one of the given size.
	Resize(width, height int) (chart.Renderer, error)
	// Commit publishes a finished drawing.
	Commit(r chart.Renderer) error
}

// Point is a plotted series vertex in surface pixels.
type Point struct {
	X, Y float64
}

// Bar is a plotted category bar in surface pixels; Y is the top edge.
type Bar struct {
	X, Y, Width, Height float64
}

const (
	seriesCeiling = 10.0
	barCeiling    = 1.0
	barMinWidth   = 10.0
	barGap        = 8.0
)

var (
	backgroundColor = chart.ColorWhite
	lineColor       = drawing.Color{R: 0x2f, G: 0x6f, B: 0xeb, A: 0xff}
	barColor        = drawing.Color{R: 0x3a, G: 0x9d, B: 0x7c, A: 0xff}
	labelColor      = drawing.Color{R: 0x44, G: 0x44, B: 0x44, A: 0xff}
)

// SeriesLayout places values at evenly spaced x positions. The auto-scale
// maximum never drops below 10 so near-zero series stay flat.
func SeriesLayout(width, height int, values []float64) []Point {
	if len(values) == 0 {
		return nil
	}
	w, h := float64(width), float64(height)
	stepX := w / math.Max(float64(len(values)-1), 1)
	maxY := seriesCeiling
	for _, v := range values {
		maxY = math.Max(maxY, v)
	}
	points := make([]Point, len(values))
	for i, v := range values {
		points[i] = Point{
			X: float64(i) * stepX,
			Y: h - 10 - (v/maxY)*(h-28),
		}
	}
	return points
}

// BarLayout sizes one bar per value with a fixed gap and minimum width.
func BarLayout(width, height int, values []float64) []Bar {
	if len(values) == 0 {
		return nil
	}
	w, h := float64(width), float64(height)
	bw := math.Max(barMinWidth, (w-20)/math.Max(float64(len(values)), 1)-barGap)
	maxV := barCeiling
	for _, v := range values {
		maxV = math.Max(maxV, v)
	}
	bars := make([]Bar, len(values))
	for i, v := range values {
		barH := (v / maxV) * (h - 30)
		bars[i] = Bar{
			X:      10 + float64(i)*(bw+barGap),
			Y:      h - 20 - barH,
			Width:  bw,
			Height: barH,
		}
	}
	return bars
}

// DrawSeries clears s at its current layout size and strokes a polyline
// through points.
func DrawSeries(s Surface, points []models.Sample) error {
	r, w, h, err := prepare(s)
	if err != nil {
		return err
	}
	layout := SeriesLayout(w, h, models.Values(points))
	if len(layout) > 0 {
		r.SetStrokeColor(lineColor)
		r.SetStrokeWidth(2)
		for i, p := range layout {
			x, y := px(p.X), px(p.Y)
			if i == 0 {
				r.MoveTo(x, y)
				continue
			}
			r.LineTo(x, y)
		}
		r.Stroke()
	}
	return s.Commit(r)
}

// DrawCategories clears s at its current layout size and fills one bar per
// value, with labels beneath.
func DrawCategories(s Surface, labels []string, values []float64) error {
	r, w, h, err := prepare(s)
	if err != nil {
		return err
	}
	bars := BarLayout(w, h, values)
	for _, b := range bars {
		if b.Height <= 0 {
			continue
		}
		r.SetFillColor(barColor)
		r.SetStrokeColor(barColor)
		r.SetStrokeWidth(0)
		fillRect(r, px(b.X), px(b.Y), px(b.X+b.Width), px(b.Y+b.Height))
	}

	if font := labelFont(); font != nil && len(bars) > 0 {
		r.SetFont(font)
		r.SetFontSize(9)
		r.SetFontColor(labelColor)
		for i, b := range bars {
			if i >= len(labels) {
				break
			}
			r.Text(labels[i], px(b.X), h-6)
		}
	}
	return s.Commit(r)
}

func prepare(s Surface) (chart.Renderer, int, int, error) {
	if s == nil {
		return nil, 0, 0, fmt.Errorf("render: nil surface")
	}
	w, h := s.LayoutSize()
	if w <= 0 || h <= 0 {
		return nil, 0, 0, fmt.Errorf("render: invalid layout size %dx%d", w, h)
	}
	r, err := s.Resize(w, h)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("render: resize surface: %w", err)
	}
	r.SetFillColor(backgroundColor)
	r.SetStrokeColor(backgroundColor)
	r.SetStrokeWidth(0)
	fillRect(r, 0, 0, w, h)
	return r, w, h, nil
}

func fillRect(r chart.Renderer, x0, y0, x1, y1 int) {
	r.MoveTo(x0, y0)
	r.LineTo(x1, y0)
	r.LineTo(x1, y1)
	r.LineTo(x0, y1)
	r.Close()
	r.Fill()
}

func labelFont() *truetype.Font {
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil
	}
	return font
}

func px(v float64) int {
	return int(math.Round(v))
}
