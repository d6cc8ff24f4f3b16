package view

import "sync"

// Table is an in-memory tabular view with a single header-click handler.
type Table struct {
	mu      sync.RWMutex
	columns []string
	rows    [][]string
	onClick func(column int)
}

// SetTable replaces columns and rows and detaches the click handler.
func (t *Table) SetTable(columns []string, rows [][]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.columns = append([]string(nil), columns...)
	t.rows = rows
	t.onClick = nil
}

// Rows returns the rendered rows in display order.
func (t *Table) Rows() [][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.rows
}

// ReorderRows replaces the rendered rows with fn applied to them, keeping the
// columns. fn runs under the table lock and must not call back into t.
func (t *Table) ReorderRows(fn func(rows [][]string) [][]string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = fn(t.rows)
}

// Columns returns the header row.
func (t *Table) Columns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.columns
}

// OnHeaderClick installs fn as the header click handler.
func (t *Table) OnHeaderClick(fn func(column int)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onClick = fn
}

// ClickHeader dispatches a header click. It reports false when the column is
// out of range or no handler is installed.
func (t *Table) ClickHeader(column int) bool {
	t.mu.RLock()
	fn := t.onClick
	n := len(t.columns)
	t.mu.RUnlock()

	if fn == nil || column < 0 || column >= n {
		return false
	}
	fn(column)
	return true
}
