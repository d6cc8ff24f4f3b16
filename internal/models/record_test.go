package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func decodeRow(t *testing.T, raw string) map[string]any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var row map[string]any
	if err := dec.Decode(&row); err != nil {
		t.Fatalf("decode row: %v", err)
	}
	return row
}

func TestFieldMapAcceptsEitherCasing(t *testing.T) {
	fields := FieldMap{
		{Column: "CVE", Keys: []string{"cve", "CVE"}},
		{Column: "CVSS", Keys: []string{"cvss", "CVSS"}},
		{Column: "Risk", Keys: []string{"risk", "Risk"}, Default: ""},
	}

	lower := fields.Normalize(decodeRow(t, `{"cve":"CVE-2024-0001","cvss":10.0}`))
	upper := fields.Normalize(decodeRow(t, `{"CVE":"CVE-2024-0001","CVSS":10.0}`))

	for _, rec := range []RowRecord{lower, upper} {
		if got := rec[0].Text(); got != "CVE-2024-0001" {
			t.Fatalf("unexpected CVE: %q", got)
		}
		if got := rec[1].Text(); got != "10.0" {
			t.Fatalf("expected literal CVSS 10.0, got %q", got)
		}
		if got := rec[2].Text(); got != "" {
			t.Fatalf("expected default risk, got %q", got)
		}
	}
	if cols := strings.Join(lower.Columns(), ","); cols != "CVE,CVSS,Risk" {
		t.Fatalf("unexpected column order: %s", cols)
	}
}

func TestFieldMapSkipsEmptyValues(t *testing.T) {
	fields := FieldMap{{Column: "Owner", Keys: []string{"owner", "Owner"}}}
	rec := fields.Normalize(map[string]any{"owner": "", "Owner": "secops"})
	if got := rec[0].Text(); got != "secops" {
		t.Fatalf("expected fallback key to win, got %q", got)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(" Demo "); err != nil || m != ModeDemo {
		t.Fatalf("expected demo, got %q (%v)", m, err)
	}
	if _, err := ParseMode("offline"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if ModeLive.Toggle() != ModeDemo || ModeDemo.Toggle() != ModeLive {
		t.Fatalf("toggle must alternate modes")
	}
}

func TestNumber(t *testing.T) {
	cases := map[string]struct {
		in   any
		want float64
	}{
		"json":    {json.Number("7.5"), 7.5},
		"string":  {" 3 ", 3},
		"garbage": {"n/a", 0},
		"nil":     {nil, 0},
	}
	for name, tc := range cases {
		if got := Number(tc.in); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", name, tc.want, got)
		}
	}
}
