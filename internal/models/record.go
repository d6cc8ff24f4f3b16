package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Cell is one named value of a RowRecord.
type Cell struct {
	Column string
	Value  any
}

// Text renders the cell value as plain display text.
func (c Cell) Text() string {
	return DisplayText(c.Value)
}

// RowRecord is an ordered mapping of column name to display value.
type RowRecord []Cell

// Columns lists the record's column names in insertion order.
func (r RowRecord) Columns() []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.Column
	}
	return out
}

// Get returns the value stored under column.
func (r RowRecord) Get(column string) (any, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

// FieldSpec maps one canonical column to the source keys it accepts, in priority order.
type FieldSpec struct {
	Column  string
	Keys    []string
	Default any
}

// FieldMap is the canonical column layout of one tabular dataset.
type FieldMap []FieldSpec

// Normalize resolves raw into a canonical RowRecord. The first key holding a
// non-empty value wins; columns with no match take the field default.
func (m FieldMap) Normalize(raw map[string]any) RowRecord {
	record := make(RowRecord, 0, len(m))
	for _, field := range m {
		value := field.Default
		for _, key := range field.Keys {
			if v, ok := raw[key]; ok && !isEmpty(v) {
				value = v
				break
			}
		}
		record = append(record, Cell{Column: field.Column, Value: value})
	}
	return record
}

// NormalizeAll applies Normalize to every raw row.
func (m FieldMap) NormalizeAll(raw []map[string]any) []RowRecord {
	out := make([]RowRecord, 0, len(raw))
	for _, row := range raw {
		out = append(out, m.Normalize(row))
	}
	return out
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}

// DisplayText formats decoded JSON values without reinterpreting them.
// json.Number keeps its literal so "10.0" is not shortened to "10".
func DisplayText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Number coerces a decoded JSON value to float64. Strings are parsed; anything
// unparseable counts as zero.
func Number(v any) float64 {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0
		}
		return f
	case float64:
		return t
	case int:
		return float64(t)
	case bool:
		if t {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
