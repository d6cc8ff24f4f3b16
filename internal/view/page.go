// Package view holds the server-side state of the dashboard page: metric
// fields, chart surfaces, tables, the status indicator and notifications.
package view

import (
	"sync"
	"time"

	"github.com/miradorstack/posture-dashboard/internal/models"
	"github.com/miradorstack/posture-dashboard/internal/render"
)

// Options configures a Page.
type Options struct {
	NotifyDuration time.Duration
	ChartWidth     int
	ChartHeight    int
	Now            func() time.Time
}

// Page is the single dashboard instance rendered to browsers. Region maps are
// fixed at construction; each region guards its own content.
type Page struct {
	notifyFor time.Duration
	now       func() time.Time

	charts map[string]*ChartSurface
	tables map[string]*Table

	mu           sync.RWMutex
	metrics      map[string]string
	legends      map[string]string
	availability map[string]bool
	status       models.SourceStatus
	modeLabel    string
	notice       string
	noticeUntil  time.Time
}

// NewPage creates a page with every region from models.
func NewPage(opts Options) *Page {
	if opts.NotifyDuration <= 0 {
		opts.NotifyDuration = 4 * time.Second
	}
	if opts.ChartWidth <= 0 {
		opts.ChartWidth = 640
	}
	if opts.ChartHeight <= 0 {
		opts.ChartHeight = 240
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p := &Page{
		notifyFor:    opts.NotifyDuration,
		now:          opts.Now,
		charts:       make(map[string]*ChartSurface, len(models.ChartRegions)),
		tables:       make(map[string]*Table, len(models.TableRegions)),
		metrics:      make(map[string]string, len(models.MetricRegions)),
		legends:      make(map[string]string),
		availability: make(map[string]bool, len(models.Datasets)),
		status:       models.SourceStatusNormal,
	}
	for _, r := range models.ChartRegions {
		p.charts[r.Name] = newChartSurface(opts.ChartWidth, opts.ChartHeight)
	}
	for _, r := range models.TableRegions {
		p.tables[r.Name] = &Table{}
	}
	return p
}

// SetMetric sets the display text of a KPI field.
func (p *Page) SetMetric(name, value string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics[name] = value
}

// Metric returns the display text of a KPI field.
func (p *Page) Metric(name string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metrics[name]
}

// ChartSurface returns the named drawing surface, or nil for unknown names.
func (p *Page) ChartSurface(name string) render.Surface {
	if s, ok := p.charts[name]; ok {
		return s
	}
	return nil
}

// Chart returns the concrete surface for name.
func (p *Page) Chart(name string) (*ChartSurface, bool) {
	s, ok := p.charts[name]
	return s, ok
}

// TableTarget returns the named table, or nil for unknown names.
func (p *Page) TableTarget(name string) render.Target {
	if t, ok := p.tables[name]; ok {
		return t
	}
	return nil
}

// Table returns the concrete table for name.
func (p *Page) Table(name string) (*Table, bool) {
	t, ok := p.tables[name]
	return t, ok
}

// SetLegend sets the caption under a chart.
func (p *Page) SetLegend(name, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.legends[name] = text
}

// Legend returns the caption under a chart.
func (p *Page) Legend(name string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.legends[name]
}

// SetAvailability records whether the last cycle produced dataset.
func (p *Page) SetAvailability(dataset string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.availability[dataset] = ok
}

// Available reports the last recorded availability; unknown datasets count as available.
func (p *Page) Available(dataset string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ok, seen := p.availability[dataset]
	return !seen || ok
}

// SetSourceStatus updates the source status indicator.
func (p *Page) SetSourceStatus(status models.SourceStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = status
}

// SourceStatus returns the source status indicator.
func (p *Page) SourceStatus() models.SourceStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// SetModeLabel sets the text of the mode toggle control.
func (p *Page) SetModeLabel(label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modeLabel = label
}

// ModeLabel returns the text of the mode toggle control.
func (p *Page) ModeLabel() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.modeLabel
}

// Notify shows msg, replacing any notification still on screen.
func (p *Page) Notify(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notice = msg
	p.noticeUntil = p.now().Add(p.notifyFor)
}

// Notification returns the current notification and how long it remains
// visible. It is empty once dismissed.
func (p *Page) Notification() (string, time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	remaining := p.noticeUntil.Sub(p.now())
	if p.notice == "" || remaining <= 0 {
		return "", 0
	}
	return p.notice, remaining
}
