// Package dashboard runs render cycles: it acquires every dataset, derives
// its view model and paints it onto the page's regions.
package dashboard

import (
	"sync"

	"github.com/miradorstack/posture-dashboard/internal/models"
	"github.com/miradorstack/posture-dashboard/internal/render"
)

// ViewPorts is the set of page capabilities the orchestrator writes to.
type ViewPorts interface {
	SetMetric(name, value string)
	ChartSurface(name string) render.Surface
	TableTarget(name string) render.Target
	SetLegend(name, text string)
	SetAvailability(dataset string, ok bool)
	SetSourceStatus(status models.SourceStatus)
	Notify(msg string)
	SetModeLabel(label string)
}

// HealthReporter receives per-dataset availability after each acquisition.
type HealthReporter interface {
	SetDatasetHealth(dataset string, available bool)
}

// AppContext carries the active mode, the notification sink, the source
// status indicator and the last rendered chart series.
type AppContext struct {
	mu     sync.RWMutex
	mode   models.Mode
	notify func(msg string)
	status func(models.SourceStatus)
	state  *RenderState
}

// NewAppContext builds a context starting in mode.
func NewAppContext(mode models.Mode, notify func(string), status func(models.SourceStatus)) *AppContext {
	if notify == nil {
		notify = func(string) {}
	}
	if status == nil {
		status = func(models.SourceStatus) {}
	}
	return &AppContext{mode: mode, notify: notify, status: status, state: &RenderState{}}
}

// Mode returns the active mode.
func (a *AppContext) Mode() models.Mode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mode
}

func (a *AppContext) setMode(mode models.Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = mode
}

// Notify shows a transient message.
func (a *AppContext) Notify(msg string) { a.notify(msg) }

// MarkFallback flips the source status indicator to fallback.
func (a *AppContext) MarkFallback() { a.status(models.SourceStatusFallback) }

// ResetStatus flips the source status indicator back to normal.
func (a *AppContext) ResetStatus() { a.status(models.SourceStatusNormal) }

// LastRendered returns the retained chart series.
func (a *AppContext) LastRendered() *RenderState { return a.state }

// Categories is a labelled bar chart series.
type Categories struct {
	Labels []string
	Values []float64
}

// RenderState keeps the last successfully acquired series of each chart so
// layout changes can redraw without refetching. Entries are replaced whole.
type RenderState struct {
	mu         sync.RWMutex
	incidents  []models.Sample
	compliance *Categories
	patch      *Categories
}

// RenderSnapshot is a copy of RenderState.
type RenderSnapshot struct {
	Incidents  []models.Sample
	Compliance *Categories
	Patch      *Categories
}

func (s *RenderState) setIncidents(points []models.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.incidents = points
}

func (s *RenderState) setCategories(chart string, c Categories) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch chart {
	case models.ChartCompliance:
		s.compliance = &c
	case models.ChartPatch:
		s.patch = &c
	}
}

// Snapshot copies the retained series.
func (s *RenderState) Snapshot() RenderSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RenderSnapshot{Incidents: s.incidents, Compliance: s.compliance, Patch: s.patch}
}
