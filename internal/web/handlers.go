// Package web serves the dashboard page and accepts toggle, sort, layout and
// refresh actions from the browser.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"

	"github.com/miradorstack/posture-dashboard/internal/models"
	"github.com/miradorstack/posture-dashboard/internal/view"
)

// maxLayoutBytes bounds the body of a layout report.
const maxLayoutBytes = 64 << 10

// Dashboard is the orchestrator surface the handlers drive.
type Dashboard interface {
	ToggleMode(ctx context.Context) (models.Mode, error)
	Refresh(ctx context.Context)
	RequestRedraw() bool
}

// Handler serves the dashboard page.
type Handler struct {
	logger       *slog.Logger
	dash         Dashboard
	page         *view.Page
	tmpl         *template.Template
	redrawWindow time.Duration
	csrf         bool
}

// NewHandler parses the page templates and returns a Handler.
func NewHandler(logger *slog.Logger, dash Dashboard, page *view.Page, redrawWindow time.Duration) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Handler{logger: logger, dash: dash, page: page, tmpl: tmpl, redrawWindow: redrawWindow}, nil
}

type pageData struct {
	View      view.Snapshot
	CSRFField template.HTML
	CSRFToken string
	RedrawMS  int64
}

// Index renders the full page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	data := pageData{View: h.page.Snapshot(), RedrawMS: h.redrawWindow.Milliseconds()}
	if h.csrf {
		data.CSRFField = csrf.TemplateField(r)
		data.CSRFToken = csrf.Token(r)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.tmpl.ExecuteTemplate(w, "dashboard", data); err != nil {
		h.logger.Error("render page failed", slog.Any("error", err))
	}
}

// View returns the page snapshot as JSON.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.page.Snapshot())
}

// Chart serves the latest PNG of a chart surface.
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(chi.URLParam(r, "name"), ".png")
	surface, ok := h.page.Chart(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	img, _ := surface.PNG()
	if img == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img); err != nil {
		h.logger.Warn("write chart failed", slog.String("chart", name), slog.Any("error", err))
	}
}

// ToggleMode flips the source mode and runs a new cycle.
func (h *Handler) ToggleMode(w http.ResponseWriter, r *http.Request) {
	mode, err := h.dash.ToggleMode(context.WithoutCancel(r.Context()))
	if err != nil {
		h.logger.Error("toggle mode failed", slog.Any("error", err))
		http.Error(w, "toggle mode failed", http.StatusInternalServerError)
		return
	}
	h.respond(w, r, map[string]string{"mode": string(mode), "label": mode.Label()})
}

// Refresh runs a new cycle in the current mode.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.dash.Refresh(context.WithoutCancel(r.Context()))
	h.respond(w, r, map[string]string{"status": "refreshed"})
}

// Sort dispatches a header click to a table.
func (h *Handler) Sort(w http.ResponseWriter, r *http.Request) {
	table, ok := h.page.Table(chi.URLParam(r, "name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	column, err := strconv.Atoi(chi.URLParam(r, "column"))
	if err != nil {
		http.Error(w, "column must be an integer", http.StatusBadRequest)
		return
	}
	if !table.ClickHeader(column) {
		http.Error(w, "column not sortable", http.StatusBadRequest)
		return
	}
	h.respond(w, r, map[string]any{"rows": table.Rows()})
}

type layoutRequest struct {
	Charts map[string]struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"charts"`
}

// Layout records chart layout sizes reported by the browser and requests a
// throttled redraw.
func (h *Handler) Layout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLayoutBytes))
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "invalid layout body", http.StatusBadRequest)
		return
	}
	for name, size := range req.Charts {
		if surface, ok := h.page.Chart(name); ok {
			surface.SetLayoutSize(size.Width, size.Height)
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"redrawn": h.dash.RequestRedraw()})
}

// Health reports liveness plus the datasets left stale by the last cycle.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.page.Snapshot()
	status := "ok"
	if len(snap.Unavailable) > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"mode":         snap.ModeLabel,
		"sourceStatus": snap.SourceStatus,
		"unavailable":  snap.Unavailable,
	})
}

// Live always reports ok while the process serves requests.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respond redirects form posts back to the page and answers fetch calls with JSON.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, body any) {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSON(w, http.StatusOK, body)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
