package view

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/wcharczuk/go-chart/v2"
)

// ChartSurface is a PNG drawing surface sized by the browser's layout box.
type ChartSurface struct {
	mu      sync.RWMutex
	width   int
	height  int
	image   []byte
	version uint64
}

func newChartSurface(width, height int) *ChartSurface {
	return &ChartSurface{width: width, height: height}
}

// LayoutSize reports the last layout size published by the browser.
func (s *ChartSurface) LayoutSize() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height
}

// SetLayoutSize records a new layout box. Non-positive sizes are ignored.
func (s *ChartSurface) SetLayoutSize(width, height int) bool {
	if width <= 0 || height <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := s.width != width || s.height != height
	s.width, s.height = width, height
	return changed
}

// Resize returns a fresh PNG renderer of the given size.
func (s *ChartSurface) Resize(width, height int) (chart.Renderer, error) {
	return chart.PNG(width, height)
}

// Commit encodes r and replaces the published image.
func (s *ChartSurface) Commit(r chart.Renderer) error {
	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = buf.Bytes()
	s.version++
	return nil
}

// PNG returns the published image and its version; nil before the first draw.
func (s *ChartSurface) PNG() ([]byte, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image, s.version
}
