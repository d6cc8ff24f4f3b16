package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/miradorstack/posture-dashboard/internal/models"
	"github.com/miradorstack/posture-dashboard/internal/render"
	"github.com/miradorstack/posture-dashboard/internal/view"
)

type fakeDashboard struct {
	mu        sync.Mutex
	mode      models.Mode
	refreshes int
	redraws   int
}

func (f *fakeDashboard) ToggleMode(context.Context) (models.Mode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mode = f.mode.Toggle()
	return f.mode, nil
}

func (f *fakeDashboard) Refresh(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func (f *fakeDashboard) RequestRedraw() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redraws++
	return f.redraws == 1
}

func (f *fakeDashboard) snapshot() (models.Mode, int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode, f.refreshes, f.redraws
}

func newTestServer(t *testing.T, opts RouterOptions) (*httptest.Server, *fakeDashboard, *view.Page) {
	t.Helper()
	page := view.NewPage(view.Options{})
	page.SetModeLabel(models.ModeLive.Label())
	dash := &fakeDashboard{mode: models.ModeLive}
	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), dash, page, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	srv := httptest.NewServer(Routes(h, opts))
	t.Cleanup(srv.Close)
	return srv, dash, page
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
}

func TestIndexEscapesCellText(t *testing.T) {
	srv, _, page := newTestServer(t, RouterOptions{})
	table, _ := page.Table(models.TableRisks)
	render.RenderRows(table, []models.RowRecord{{{Column: "Title", Value: "<script>alert(1)</script>"}}})

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	if !strings.Contains(html, "Live API") {
		t.Fatalf("expected mode label in page")
	}
	if strings.Contains(html, "<script>alert(1)</script>") {
		t.Fatalf("cell text must be escaped")
	}
	if !strings.Contains(html, "&lt;script&gt;alert(1)&lt;/script&gt;") {
		t.Fatalf("expected escaped cell text")
	}
}

func TestToggleModeRedirects(t *testing.T) {
	srv, dash, _ := newTestServer(t, RouterOptions{})
	resp, err := noRedirect().Post(srv.URL+"/mode", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("post mode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("expected redirect to page, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if mode, _, _ := dash.snapshot(); mode != models.ModeDemo {
		t.Fatalf("expected demo mode after toggle")
	}
}

func TestSortReturnsRows(t *testing.T) {
	srv, _, page := newTestServer(t, RouterOptions{})
	table, _ := page.Table(models.TableVulns)
	render.RenderRows(table, []models.RowRecord{
		{{Column: "CVE", Value: "a"}, {Column: "CVSS", Value: "10.0"}},
		{{Column: "CVE", Value: "b"}, {Column: "CVSS", Value: "7.2"}},
	})
	render.EnableSort(table)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/tables/vulns/sort/1", nil)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("sort: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Rows [][]string `json:"rows"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Rows) != 2 || body.Rows[0][1] != "7.2" {
		t.Fatalf("expected ascending CVSS, got %v", body.Rows)
	}

	for path, want := range map[string]int{
		"/tables/unknown/sort/0": http.StatusNotFound,
		"/tables/vulns/sort/x":   http.StatusBadRequest,
		"/tables/vulns/sort/9":   http.StatusBadRequest,
	} {
		resp, err := http.Post(srv.URL+path, "text/plain", nil)
		if err != nil {
			t.Fatalf("post %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d, got %d", path, want, resp.StatusCode)
		}
	}
}

func TestLayoutUpdatesSurfacesAndRequestsRedraw(t *testing.T) {
	srv, dash, page := newTestServer(t, RouterOptions{})
	body := `{"charts":{"incidents":{"width":900,"height":320},"unknown":{"width":1,"height":1}}}`

	for i, want := range []bool{true, false} {
		resp, err := http.Post(srv.URL+"/layout", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		var out map[string]bool
		json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted || out["redrawn"] != want {
			t.Fatalf("request %d: expected redrawn=%v, got %d %v", i, want, resp.StatusCode, out)
		}
	}
	surface, _ := page.Chart(models.ChartIncidents)
	if w, h := surface.LayoutSize(); w != 900 || h != 320 {
		t.Fatalf("expected layout 900x320, got %dx%d", w, h)
	}
	if _, refreshes, redraws := dash.snapshot(); redraws != 2 || refreshes != 0 {
		t.Fatalf("layout must only request redraws")
	}

	resp, err := http.Post(srv.URL+"/layout", "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestChartImage(t *testing.T) {
	srv, _, page := newTestServer(t, RouterOptions{})

	resp, _ := http.Get(srv.URL + "/charts/incidents.png")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 before first draw, got %d", resp.StatusCode)
	}

	surface, _ := page.Chart(models.ChartIncidents)
	if err := render.DrawSeries(surface, []models.Sample{{Value: 1}, {Value: 4}}); err != nil {
		t.Fatalf("draw: %v", err)
	}
	resp, err := http.Get(srv.URL + "/charts/incidents.png")
	if err != nil {
		t.Fatalf("get chart: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("expected png, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, _ = http.Get(srv.URL + "/charts/missing.png")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown chart, got %d", resp.StatusCode)
	}
}

type brokenWriter struct {
	header http.Header
}

func (b *brokenWriter) Header() http.Header { return b.header }
func (b *brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }
func (b *brokenWriter) WriteHeader(int) {}

func TestChartLogsWriteFailure(t *testing.T) {
	var logs bytes.Buffer
	page := view.NewPage(view.Options{})
	h, err := NewHandler(slog.New(slog.NewTextHandler(&logs, nil)), &fakeDashboard{}, page, time.Second)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	surface, _ := page.Chart(models.ChartPatch)
	if err := render.DrawCategories(surface, []string{"Jan"}, []float64{90}); err != nil {
		t.Fatalf("draw: %v", err)
	}

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("name", models.ChartPatch+".png")
	req := httptest.NewRequest(http.MethodGet, "/charts/"+models.ChartPatch+".png", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	h.Chart(&brokenWriter{header: make(http.Header)}, req)
	if !strings.Contains(logs.String(), "write chart failed") || !strings.Contains(logs.String(), "connection reset") {
		t.Fatalf("expected write failure to be logged, got %q", logs.String())
	}
}

func TestHealthReportsUnavailableDatasets(t *testing.T) {
	srv, _, page := newTestServer(t, RouterOptions{})
	page.SetAvailability(models.DatasetAlertsTop, false)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	defer resp.Body.Close()
	var body struct {
		Status      string   `json:"status"`
		Unavailable []string `json:"unavailable"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "degraded" || len(body.Unavailable) != 1 || body.Unavailable[0] != models.DatasetAlertsTop {
		t.Fatalf("unexpected health body %+v", body)
	}
}

func TestCSRFProtectsPosts(t *testing.T) {
	srv, dash, _ := newTestServer(t, RouterOptions{CSRFKey: strings.Repeat("k", 32)})

	resp, err := noRedirect().Post(srv.URL+"/mode", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatalf("post mode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without token, got %d", resp.StatusCode)
	}
	if mode, _, _ := dash.snapshot(); mode != models.ModeLive {
		t.Fatalf("mode must not change without a valid token")
	}

	resp, err = http.Get(srv.URL + "/livez")
	if err != nil {
		t.Fatalf("livez: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("probes must bypass CSRF, got %d", resp.StatusCode)
	}
}
