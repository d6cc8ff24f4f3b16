package render

import (
	"reflect"
	"testing"

	"github.com/miradorstack/posture-dashboard/internal/models"
)

type memTarget struct {
	columns []string
	rows    [][]string
	click   func(int)
}

func (m *memTarget) SetTable(columns []string, rows [][]string) {
	m.columns, m.rows, m.click = columns, rows, nil
}
func (m *memTarget) Rows() [][]string { return m.rows }
func (m *memTarget) ReorderRows(fn func([][]string) [][]string) { m.rows = fn(m.rows) }
func (m *memTarget) OnHeaderClick(fn func(int)) { m.click = fn }

func column(rows [][]string, i int) []string {
	out := make([]string, len(rows))
	for n, r := range rows {
		out[n] = r[i]
	}
	return out
}

func TestRenderRowsReplacesContent(t *testing.T) {
	target := &memTarget{rows: [][]string{{"stale"}}}
	RenderRows(target, []models.RowRecord{
		{{Column: "Vendor", Value: "Acme"}, {Column: "Risk", Value: "<b>high</b>"}},
	})
	if !reflect.DeepEqual(target.columns, []string{"Vendor", "Risk"}) {
		t.Fatalf("unexpected columns %v", target.columns)
	}
	if len(target.rows) != 1 || target.rows[0][1] != "<b>high</b>" {
		t.Fatalf("expected raw text cells, got %v", target.rows)
	}

	RenderRows(target, nil)
	if len(target.rows) != 0 {
		t.Fatalf("expected empty table, got %v", target.rows)
	}
}

func TestSortNumericColumnToggles(t *testing.T) {
	target := &memTarget{}
	RenderRows(target, []models.RowRecord{
		{{Column: "CVE", Value: "a"}, {Column: "CVSS", Value: "9.8"}},
		{{Column: "CVE", Value: "b"}, {Column: "CVSS", Value: "7.2"}},
		{{Column: "CVE", Value: "c"}, {Column: "CVSS", Value: "10.0"}},
	})
	EnableSort(target)

	target.click(1)
	if got := column(target.rows, 1); !reflect.DeepEqual(got, []string{"7.2", "9.8", "10.0"}) {
		t.Fatalf("expected numeric ascending, got %v", got)
	}
	target.click(1)
	if got := column(target.rows, 1); !reflect.DeepEqual(got, []string{"10.0", "9.8", "7.2"}) {
		t.Fatalf("expected descending on second click, got %v", got)
	}
	target.click(1)
	if got := column(target.rows, 1); !reflect.DeepEqual(got, []string{"7.2", "9.8", "10.0"}) {
		t.Fatalf("expected ascending on third click, got %v", got)
	}

	// other columns keep their own direction
	target.click(0)
	if got := column(target.rows, 0); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("expected first click on CVE to sort ascending, got %v", got)
	}
}

func TestSortIsStable(t *testing.T) {
	rows := [][]string{{"x", "1"}, {"y", "2"}, {"z", "1"}}
	sorted := SortRows(rows, 1, true)
	if got := column(sorted, 0); !reflect.DeepEqual(got, []string{"x", "z", "y"}) {
		t.Fatalf("expected ties in original order, got %v", got)
	}
	if rows[1][0] != "y" {
		t.Fatalf("input rows must not be reordered")
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"10.0", "7.2", 1},
		{"$1,200", "$900", 1},
		{"-3", "2", -1},
		{"high", "low", -1},
		{"n/a", "5", 1},
		{"4%", "4", 0},
	}
	for _, tc := range cases {
		if got := Compare(tc.a, tc.b); got != tc.want {
			t.Fatalf("Compare(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
