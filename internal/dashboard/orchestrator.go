package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/miradorstack/posture-dashboard/internal/acquire"
	"github.com/miradorstack/posture-dashboard/internal/metrics"
	"github.com/miradorstack/posture-dashboard/internal/models"
	"github.com/miradorstack/posture-dashboard/internal/prefs"
	"github.com/miradorstack/posture-dashboard/internal/render"
	"github.com/miradorstack/posture-dashboard/internal/utils"
)

// Acquirer resolves one dataset to JSON, reporting false when unavailable.
type Acquirer interface {
	Acquire(ctx context.Context, app acquire.App, d models.DatasetDescriptor) (json.RawMessage, bool)
}

// Options configures an Orchestrator.
type Options struct {
	Logger         *slog.Logger
	Acquirer       Acquirer
	Ports          ViewPorts
	Prefs          prefs.Store
	Mode           models.Mode
	Location       *time.Location
	RedrawInterval time.Duration
	Health         HealthReporter
	Datasets       []models.DatasetDescriptor
}

// Orchestrator drives render cycles over the dataset catalogue.
type Orchestrator struct {
	logger    *slog.Logger
	acquirer  Acquirer
	ports     ViewPorts
	prefs     prefs.Store
	loc       *time.Location
	health    HealthReporter
	datasets  []models.DatasetDescriptor
	app       *AppContext
	limiter   *rate.Limiter
	now       func() time.Time
	latencies *utils.LatencyTracker

	// applyMu orders cycle id changes against region writes.
	applyMu sync.Mutex
	cycle   uint64
}

// New constructs an Orchestrator. Acquirer and Ports are required.
func New(opts Options) (*Orchestrator, error) {
	if opts.Acquirer == nil {
		return nil, errors.New("dashboard: acquirer is required")
	}
	if opts.Ports == nil {
		return nil, errors.New("dashboard: view ports are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.RedrawInterval <= 0 {
		opts.RedrawInterval = 200 * time.Millisecond
	}
	if opts.Datasets == nil {
		opts.Datasets = models.Datasets
	}
	if _, err := models.ParseMode(string(opts.Mode)); err != nil {
		opts.Mode = models.ModeLive
	}

	ports := opts.Ports
	o := &Orchestrator{
		logger:    opts.Logger,
		acquirer:  opts.Acquirer,
		ports:     ports,
		prefs:     opts.Prefs,
		loc:       opts.Location,
		health:    opts.Health,
		datasets:  opts.Datasets,
		app:       NewAppContext(opts.Mode, ports.Notify, ports.SetSourceStatus),
		limiter:   rate.NewLimiter(rate.Every(opts.RedrawInterval), 1),
		now:       time.Now,
		latencies: utils.NewLatencyTracker(256),
	}
	ports.SetModeLabel(opts.Mode.Label())
	return o, nil
}

// App exposes the application context.
func (o *Orchestrator) App() *AppContext { return o.app }

// Mode returns the active mode.
func (o *Orchestrator) Mode() models.Mode { return o.app.Mode() }

// SetMode persists mode, relabels the toggle and runs a new cycle.
func (o *Orchestrator) SetMode(ctx context.Context, mode models.Mode) error {
	if _, err := models.ParseMode(string(mode)); err != nil {
		return err
	}
	o.app.setMode(mode)
	o.ports.SetModeLabel(mode.Label())
	if o.prefs != nil {
		if err := o.prefs.Save(ctx, mode); err != nil {
			o.logger.Warn("persist mode failed", slog.String("mode", string(mode)), slog.Any("error", err))
		}
	}
	o.logger.Info("mode changed", slog.String("mode", string(mode)))
	o.Refresh(ctx)
	return nil
}

// ToggleMode switches between live and demo and returns the new mode.
func (o *Orchestrator) ToggleMode(ctx context.Context) (models.Mode, error) {
	next := o.app.Mode().Toggle()
	return next, o.SetMode(ctx, next)
}

// Refresh runs one render cycle and returns when every dataset task has
// finished. Results from a cycle superseded meanwhile are discarded.
func (o *Orchestrator) Refresh(ctx context.Context) {
	start := time.Now()

	o.applyMu.Lock()
	o.cycle++
	c := &cycle{id: o.cycle, mode: o.app.Mode(), o: o}
	o.app.ResetStatus()
	o.applyMu.Unlock()

	var g errgroup.Group
	for _, d := range o.datasets {
		g.Go(func() error {
			o.runDataset(ctx, c, d)
			return nil
		})
	}
	_ = g.Wait()

	duration := time.Since(start)
	metrics.ObserveCycle(duration)
	o.latencies.Observe(duration)
	if count := o.latencies.Count(); count >= 20 && count%20 == 0 {
		o.logger.Info("render cycle latency", slog.Duration("p95", o.latencies.Percentile(95)), slog.Int("samples", count))
	}
	o.logger.Debug("render cycle complete", slog.Uint64("cycle", c.id), slog.String("mode", string(c.mode)), slog.Duration("duration", duration))
}

func (o *Orchestrator) runDataset(ctx context.Context, c *cycle, d models.DatasetDescriptor) {
	payload, ok := o.acquirer.Acquire(ctx, c, d)

	var apply func() error
	if ok {
		var err error
		apply, err = o.derive(d.Name, payload)
		if err != nil {
			o.logger.Warn("dataset payload rejected", slog.String("dataset", d.Name), slog.Any("error", utils.NewAppError("derive."+d.Name, "unexpected payload shape", err)))
			ok = false
		}
	}

	o.applyMu.Lock()
	defer o.applyMu.Unlock()
	if c.id != o.cycle {
		metrics.ObserveStaleResult()
		o.logger.Debug("discarding stale result", slog.String("dataset", d.Name), slog.Uint64("cycle", c.id), slog.Uint64("current", o.cycle))
		return
	}
	if ok {
		if err := apply(); err != nil {
			o.logger.Error("render dataset failed", slog.String("dataset", d.Name), slog.Any("error", err))
			ok = false
		}
	}
	o.ports.SetAvailability(d.Name, ok)
	if o.health != nil {
		o.health.SetDatasetHealth(d.Name, ok)
	}
}

// derive parses payload into its view model and returns the write that
// applies it to the page.
func (o *Orchestrator) derive(dataset string, payload json.RawMessage) (func() error, error) {
	state := o.app.LastRendered()
	switch dataset {
	case models.DatasetKPIs:
		fields, err := KPIView(payload, o.loc)
		if err != nil {
			return nil, err
		}
		return func() error {
			for _, r := range models.MetricRegions {
				if v, ok := fields[r.Name]; ok {
					o.ports.SetMetric(r.Name, v)
				}
			}
			return nil
		}, nil

	case models.DatasetIncidents:
		points, legend, err := IncidentView(payload)
		if err != nil {
			return nil, err
		}
		return func() error {
			state.setIncidents(points)
			o.ports.SetLegend(models.ChartIncidents, legend)
			return render.DrawSeries(o.ports.ChartSurface(models.ChartIncidents), points)
		}, nil

	case models.DatasetCompliance:
		cats, err := ComplianceView(payload)
		if err != nil {
			return nil, err
		}
		return o.categoriesWrite(models.ChartCompliance, cats), nil

	case models.DatasetPatchCoverage:
		cats, err := PatchView(payload)
		if err != nil {
			return nil, err
		}
		return o.categoriesWrite(models.ChartPatch, cats), nil

	case models.DatasetVulnsTop:
		return o.tableWrite(models.TableVulns, payload, vulnFields, vulnLimit)
	case models.DatasetThirdParty:
		return o.tableWrite(models.TableThirdParty, payload, thirdPartyFields, 0)
	case models.DatasetAlertsTop:
		return o.tableWrite(models.TableAlerts, payload, alertFields, 0)
	case models.DatasetRiskRegister:
		return o.tableWrite(models.TableRisks, payload, riskFields, riskLimit)

	case models.DatasetControls:
		rows, err := ControlsView(payload)
		if err != nil {
			return nil, err
		}
		return o.rowsWrite(models.TableControls, rows), nil

	default:
		return nil, fmt.Errorf("no view for dataset %q", dataset)
	}
}

func (o *Orchestrator) categoriesWrite(chart string, cats Categories) func() error {
	return func() error {
		o.app.LastRendered().setCategories(chart, cats)
		return render.DrawCategories(o.ports.ChartSurface(chart), cats.Labels, cats.Values)
	}
}

func (o *Orchestrator) tableWrite(table string, payload json.RawMessage, fields models.FieldMap, limit int) (func() error, error) {
	rows, err := TableView(payload, fields, limit)
	if err != nil {
		return nil, err
	}
	return o.rowsWrite(table, rows), nil
}

func (o *Orchestrator) rowsWrite(table string, rows []models.RowRecord) func() error {
	return func() error {
		target := o.ports.TableTarget(table)
		if target == nil {
			return fmt.Errorf("no table target %q", table)
		}
		render.RenderRows(target, rows)
		render.EnableSort(target)
		return nil
	}
}

// RequestRedraw repaints the charts from RenderState without refetching.
// Requests arriving within the redraw interval of the last executed one are
// dropped. It reports whether the redraw ran.
func (o *Orchestrator) RequestRedraw() bool {
	return o.requestRedrawAt(o.now())
}

func (o *Orchestrator) requestRedrawAt(now time.Time) bool {
	if !o.limiter.AllowN(now, 1) {
		metrics.ObserveRedraw(metrics.RedrawDropped)
		return false
	}
	metrics.ObserveRedraw(metrics.RedrawExecuted)
	o.redraw()
	return true
}

func (o *Orchestrator) redraw() {
	o.applyMu.Lock()
	defer o.applyMu.Unlock()

	snap := o.app.LastRendered().Snapshot()
	if snap.Incidents != nil {
		if err := render.DrawSeries(o.ports.ChartSurface(models.ChartIncidents), snap.Incidents); err != nil {
			o.logger.Warn("redraw failed", slog.String("chart", models.ChartIncidents), slog.Any("error", err))
		}
	}
	for chart, cats := range map[string]*Categories{models.ChartCompliance: snap.Compliance, models.ChartPatch: snap.Patch} {
		if cats == nil {
			continue
		}
		if err := render.DrawCategories(o.ports.ChartSurface(chart), cats.Labels, cats.Values); err != nil {
			o.logger.Warn("redraw failed", slog.String("chart", chart), slog.Any("error", err))
		}
	}
}

// cycle is the acquisition view of one render cycle. Its mode is fixed at
// cycle start and its side effects are suppressed once superseded.
type cycle struct {
	id   uint64
	mode models.Mode
	o    *Orchestrator
}

func (c *cycle) Mode() models.Mode { return c.mode }

func (c *cycle) Notify(msg string) {
	if c.current() {
		c.o.app.Notify(msg)
	}
}

func (c *cycle) MarkFallback() {
	if c.current() {
		c.o.app.MarkFallback()
	}
}

func (c *cycle) current() bool {
	c.o.applyMu.Lock()
	defer c.o.applyMu.Unlock()
	return c.id == c.o.cycle
}
