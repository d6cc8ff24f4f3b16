package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type incidentDay struct {
	Date      string `json:"date"`
	Incidents int    `json:"incidents"`
	Critical  int    `json:"critical"`
}

type vulnerability struct {
	AssetID     string  `json:"asset_id"`
	CVE         string  `json:"cve"`
	CVSS        float64 `json:"cvss"`
	Exploitable bool    `json:"exploitable"`
	AgeDays     int     `json:"age_days"`
	Owner       string  `json:"owner"`
	Status      string  `json:"status"`
	Risk        string  `json:"risk"`
}

type complianceScore struct {
	Framework string  `json:"framework"`
	Control   string  `json:"control"`
	Score     float64 `json:"score"`
}

type patchMonth struct {
	Month    string  `json:"month"`
	Coverage float64 `json:"coverage"`
}

type vendor struct {
	Vendor       string  `json:"vendor"`
	Tier         int     `json:"tier"`
	RiskScore    float64 `json:"risk_score"`
	IssuesOpen   int     `json:"issues_open"`
	SLABreaches  int     `json:"sla_breaches"`
	LastAssessed string  `json:"last_assessed"`
}

type alertRule struct {
	Rule        string `json:"rule"`
	Last24h     int    `json:"last_24h"`
	Last7d      int    `json:"last_7d"`
	Criticality string `json:"criticality"`
}

type riskEntry struct {
	RiskID     string `json:"risk_id"`
	Title      string `json:"title"`
	Owner      string `json:"owner"`
	Likelihood int    `json:"likelihood"`
	Impact     int    `json:"impact"`
	Score      int    `json:"score"`
	Status     string `json:"status"`
	TargetDate string `json:"target_date"`
}

// datasets maps request paths to fallback file names and generators.
var datasets = []struct {
	path string
	file string
	gen  func(now time.Time) any
}{
	{"/kpis", "kpis", kpis},
	{"/incidents", "incidents", incidents},
	{"/vulns/top", "vulns_top", vulns},
	{"/compliance", "compliance", compliance},
	{"/patch/coverage", "patch_coverage", patchCoverage},
	{"/thirdparty", "thirdparty", thirdParty},
	{"/alerts/top", "alerts_top", alerts},
	{"/risk/register", "risk_register", risks},
	{"/controls", "controls", controls},
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	fail := flag.String("fail", "", "comma separated paths answered with 503")
	dump := flag.String("dump", "", "write every dataset as <file>.json into this directory and exit")
	flag.Parse()

	if *dump != "" {
		if err := writeFixtures(*dump, time.Now().UTC()); err != nil {
			log.Fatalf("dump fixtures: %v", err)
		}
		return
	}

	failing := map[string]bool{}
	for _, p := range strings.Split(*fail, ",") {
		if p = strings.TrimSpace(p); p != "" {
			failing[p] = true
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})
	for _, d := range datasets {
		d := d
		mux.HandleFunc(d.path, func(w http.ResponseWriter, r *http.Request) {
			if !enforceGet(w, r) {
				return
			}
			if failing[d.path] {
				http.Error(w, `{"error":"simulated outage"}`, http.StatusServiceUnavailable)
				return
			}
			payload := d.gen(time.Now().UTC())
			if d.path == "/vulns/top" {
				payload = limit(payload.([]vulnerability), r.URL.Query().Get("limit"))
			}
			writeJSON(w, payload)
		})
	}

	logger := log.New(log.Writer(), "posture-api-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    *addr,
		Handler: logRequests(logger, mux),
	}

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func kpis(now time.Time) any {
	return map[string]any{
		"overall_risk":               0.32,
		"open_findings":              124,
		"critical_open":              7,
		"patch_sla_compliance":       0.91,
		"mean_time_to_detect_hours":  4.8,
		"mean_time_to_respond_hours": 7.2,
		"last_updated":               now.Format(time.RFC3339),
	}
}

func incidents(now time.Time) any {
	rng := rand.New(rand.NewSource(42))
	today := now.Truncate(24 * time.Hour)
	out := make([]incidentDay, 0, 30)
	for i := 29; i >= 0; i-- {
		n := rng.Intn(10)
		out = append(out, incidentDay{
			Date:      today.AddDate(0, 0, -i).Format(time.DateOnly),
			Incidents: n,
			Critical:  rng.Intn(n + 1) / 3,
		})
	}
	return out
}

func vulns(time.Time) any {
	owners := []string{"platform", "payments", "identity", "data"}
	statuses := []string{"open", "triage", "in progress"}
	out := make([]vulnerability, 0, 20)
	for i := 0; i < 20; i++ {
		cvss := 10.0 - float64(i%8)*0.7
		risk := "medium"
		if cvss >= 9 {
			risk = "critical"
		} else if cvss >= 7 {
			risk = "high"
		}
		out = append(out, vulnerability{
			AssetID:     fmt.Sprintf("srv-%03d", 100+i),
			CVE:         fmt.Sprintf("CVE-2024-%04d", 2100+i*7),
			CVSS:        cvss,
			Exploitable: i%3 == 0,
			AgeDays:     5 + i*4,
			Owner:       owners[i%len(owners)],
			Status:      statuses[i%len(statuses)],
			Risk:        risk,
		})
	}
	return out
}

func compliance(time.Time) any {
	return []complianceScore{
		{"ISO 27001", "A.5", 0.82}, {"ISO 27001", "A.8", 0.74},
		{"SOC 2", "CC6", 0.88}, {"SOC 2", "CC7", 0.79},
		{"NIST CSF", "Protect", 0.62}, {"NIST CSF", "Detect", 0.55},
		{"PCI DSS", "Req 6", 0.91},
	}
}

func patchCoverage(now time.Time) any {
	out := make([]patchMonth, 0, 9)
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 8; i >= 0; i-- {
		out = append(out, patchMonth{
			Month:    first.AddDate(0, -i, 0).Format("2006-01"),
			Coverage: 0.78 + float64(8-i)*0.02,
		})
	}
	return out
}

func thirdParty(now time.Time) any {
	return []vendor{
		{"Acme Payroll", 1, 72.5, 4, 1, now.AddDate(0, -2, 0).Format(time.DateOnly)},
		{"CloudMail", 2, 41.0, 1, 0, now.AddDate(0, -5, 0).Format(time.DateOnly)},
		{"Ledgerly", 1, 88.2, 7, 3, now.AddDate(0, -1, 0).Format(time.DateOnly)},
		{"PrintCo", 3, 12.4, 0, 0, now.AddDate(-1, 0, 0).Format(time.DateOnly)},
	}
}

func alerts(time.Time) any {
	return []alertRule{
		{"Impossible travel", 14, 61, "high"},
		{"Privilege escalation", 3, 19, "critical"},
		{"Malware beacon", 9, 40, "high"},
		{"Brute force", 120, 702, "medium"},
		{"Data exfil volume", 1, 4, "critical"},
	}
}

func risks(now time.Time) any {
	titles := []string{
		"Legacy VPN concentrator", "Unencrypted backups", "Shadow SaaS usage", "Weak vendor MFA",
		"Flat network segment", "Stale admin accounts", "Unpatched OT devices", "Missing DLP on email",
		"Single region DR", "Secrets in CI logs", "Unsupported OS", "No SBOM coverage",
	}
	out := make([]riskEntry, 0, len(titles))
	for i, title := range titles {
		likelihood, impact := 1+i%5, 5-i%4
		out = append(out, riskEntry{
			RiskID:     fmt.Sprintf("R-%03d", i+1),
			Title:      title,
			Owner:      []string{"CISO", "IT Ops", "Eng", "GRC"}[i%4],
			Likelihood: likelihood,
			Impact:     impact,
			Score:      likelihood * impact,
			Status:     []string{"open", "mitigating", "accepted"}[i%3],
			TargetDate: now.AddDate(0, i+1, 0).Format(time.DateOnly),
		})
	}
	return out
}

func controls(time.Time) any {
	return map[string]map[string]float64{
		"CIS Controls v8.1": {"Implemented": 12, "In Progress": 4, "Not Started": 2},
		"NIST CSF 2.0":      {"Identify": 0.7, "Protect": 0.62, "Detect": 0.55, "Respond": 0.6, "Recover": 0.58},
	}
}

func limit(items []vulnerability, raw string) []vulnerability {
	var n int
	if _, err := fmt.Sscanf(raw, "%d", &n); err != nil || n <= 0 || n >= len(items) {
		return items
	}
	return items[:n]
}

func writeFixtures(dir string, now time.Time) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, d := range datasets {
		data, err := json.MarshalIndent(d.gen(now), "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, d.file+".json"), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func enforceGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
