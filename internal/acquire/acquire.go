// Package acquire resolves datasets to JSON using a preferred source and an
// alternate one, falling back when the preferred source fails.
package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/miradorstack/posture-dashboard/internal/metrics"
	"github.com/miradorstack/posture-dashboard/internal/models"
	"github.com/miradorstack/posture-dashboard/internal/repo"
	"github.com/miradorstack/posture-dashboard/internal/utils"
)

// Source produces the JSON payload of one dataset.
type Source interface {
	Name() string
	Fetch(ctx context.Context, d models.DatasetDescriptor) (json.RawMessage, error)
}

// App is the slice of application context an acquisition needs.
type App interface {
	Mode() models.Mode
	Notify(msg string)
	MarkFallback()
}

// Acquirer orders the remote and fallback sources by mode.
type Acquirer struct {
	logger   *slog.Logger
	remote   Source
	fallback Source
}

// New constructs an Acquirer over the two configured sources.
func New(logger *slog.Logger, remote, fallback Source) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{logger: logger, remote: remote, fallback: fallback}
}

// Order returns (primary, secondary) for mode.
func (a *Acquirer) Order(mode models.Mode) (Source, Source) {
	if mode == models.ModeDemo {
		return a.fallback, a.remote
	}
	return a.remote, a.fallback
}

// Acquire makes at most one attempt per source. It reports false when neither
// source produced a payload; the failure kind is logged, never returned.
func (a *Acquirer) Acquire(ctx context.Context, app App, d models.DatasetDescriptor) (json.RawMessage, bool) {
	primary, secondary := a.Order(app.Mode())

	if payload, ok := a.attempt(ctx, primary, d); ok {
		return payload, true
	}

	app.Notify(fmt.Sprintf("%s unavailable for %s, trying %s", sourceLabel(primary), d.Name, sourceLabel(secondary)))
	app.MarkFallback()
	metrics.ObserveFallback(d.Name)

	if payload, ok := a.attempt(ctx, secondary, d); ok {
		return payload, true
	}

	metrics.ObserveUnavailable(d.Name)
	a.logger.Warn("dataset unavailable from both sources", slog.String("dataset", d.Name))
	return nil, false
}

func (a *Acquirer) attempt(ctx context.Context, src Source, d models.DatasetDescriptor) (json.RawMessage, bool) {
	if src == nil {
		return nil, false
	}
	payload, err := src.Fetch(ctx, d)
	if err != nil {
		kind := repo.KindOf(err)
		metrics.ObserveSourceAttempt(d.Name, src.Name(), string(kind))
		wrapped := utils.NewAppError("acquire."+d.Name, "source attempt failed", err)
		a.logger.Debug("source attempt failed",
			slog.String("dataset", d.Name),
			slog.String("source", src.Name()),
			slog.String("kind", string(kind)),
			slog.Any("error", wrapped),
		)
		return nil, false
	}
	metrics.ObserveSourceAttempt(d.Name, src.Name(), metrics.OutcomeSuccess)
	return payload, true
}

func sourceLabel(src Source) string {
	if src == nil {
		return "unconfigured source"
	}
	switch src.Name() {
	case "remote":
		return "Live API"
	case "fallback":
		return "Demo data"
	default:
		return src.Name()
	}
}
