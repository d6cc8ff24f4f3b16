package render

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/miradorstack/posture-dashboard/internal/models"
)

// Target is a tabular view with clickable column headers. Cell text is plain
// text; escaping is the display layer's job.
type Target interface {
	SetTable(columns []string, rows [][]string)
	Rows() [][]string
	// ReorderRows replaces the current rows with fn(rows) as one step, so a
	// concurrent SetTable is either fully before or fully after it.
	ReorderRows(fn func(rows [][]string) [][]string)
	OnHeaderClick(fn func(column int))
}

// RenderRows replaces every row of t, one row per record and one cell per
// field in insertion order.
func RenderRows(t Target, records []models.RowRecord) {
	var columns []string
	if len(records) > 0 {
		columns = records[0].Columns()
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(rec))
		for j, cell := range rec {
			row[j] = cell.Text()
		}
		rows[i] = row
	}
	t.SetTable(columns, rows)
}

// EnableSort installs a header-click handler on t. Each column keeps its own
// direction: the first click sorts ascending and later clicks alternate.
func EnableSort(t Target) {
	var mu sync.Mutex
	ascending := make(map[int]bool)

	t.OnHeaderClick(func(column int) {
		mu.Lock()
		asc := !ascending[column]
		ascending[column] = asc
		mu.Unlock()

		t.ReorderRows(func(rows [][]string) [][]string {
			return SortRows(rows, column, asc)
		})
	})
}

// SortRows returns a stably sorted copy of rows ordered by column.
func SortRows(rows [][]string, column int, ascending bool) [][]string {
	sorted := make([][]string, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		c := Compare(cellAt(sorted[i], column), cellAt(sorted[j], column))
		if ascending {
			return c < 0
		}
		return c > 0
	})
	return sorted
}

// Compare orders two cell texts numerically when both reduce to numbers after
// dropping everything but digits, '.', and '-', and lexicographically otherwise.
func Compare(a, b string) int {
	na, errA := strconv.ParseFloat(numericPart(a), 64)
	nb, errB := strconv.ParseFloat(numericPart(b), 64)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

func numericPart(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
}

func cellAt(row []string, column int) string {
	if column < 0 || column >= len(row) {
		return ""
	}
	return row[column]
}
