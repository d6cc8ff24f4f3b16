package view

import (
	"time"

	"github.com/miradorstack/posture-dashboard/internal/models"
)

// Snapshot is a copy of the page state, taken region by region.
type Snapshot struct {
	ModeLabel    string       `json:"modeLabel"`
	SourceStatus string       `json:"sourceStatus"`
	Notification string       `json:"notification,omitempty"`
	DismissInMS  int64        `json:"dismissInMs,omitempty"`
	Metrics      []MetricView `json:"metrics"`
	Charts       []ChartView  `json:"charts"`
	Tables       []TableView  `json:"tables"`
	Unavailable  []string     `json:"unavailable,omitempty"`
}

// MetricView is one KPI field.
type MetricView struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Value     string `json:"value"`
	Available bool   `json:"available"`
}

// ChartView describes a chart surface; the image is served separately.
type ChartView struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	Legend    string `json:"legend,omitempty"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Version   uint64 `json:"version"`
	Available bool   `json:"available"`
}

// TableView is one sortable table.
type TableView struct {
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Available bool       `json:"available"`
}

// Snapshot copies the page state in display order.
func (p *Page) Snapshot() Snapshot {
	notice, remaining := p.Notification()
	snap := Snapshot{
		ModeLabel:    p.ModeLabel(),
		SourceStatus: string(p.SourceStatus()),
		Notification: notice,
		DismissInMS:  remaining.Milliseconds(),
	}

	for _, r := range models.MetricRegions {
		snap.Metrics = append(snap.Metrics, MetricView{
			Name:      r.Name,
			Title:     r.Title,
			Value:     p.Metric(r.Name),
			Available: p.Available(r.Dataset),
		})
	}
	for _, r := range models.ChartRegions {
		surface := p.charts[r.Name]
		w, h := surface.LayoutSize()
		_, version := surface.PNG()
		snap.Charts = append(snap.Charts, ChartView{
			Name:      r.Name,
			Title:     r.Title,
			Legend:    p.Legend(r.Name),
			Width:     w,
			Height:    h,
			Version:   version,
			Available: p.Available(r.Dataset),
		})
	}
	for _, r := range models.TableRegions {
		table := p.tables[r.Name]
		snap.Tables = append(snap.Tables, TableView{
			Name:      r.Name,
			Title:     r.Title,
			Columns:   table.Columns(),
			Rows:      table.Rows(),
			Available: p.Available(r.Dataset),
		})
	}
	for _, d := range models.Datasets {
		if !p.Available(d.Name) {
			snap.Unavailable = append(snap.Unavailable, d.Name)
		}
	}
	return snap
}

// NotifyDuration reports how long notifications stay visible.
func (p *Page) NotifyDuration() time.Duration {
	return p.notifyFor
}
