// SPDX-License-Identifier: Apache-2.0

package result

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

// Table is tabular record data: named columns, one index label per row.
type Table struct {
	Columns []string `json:"columns"`
	Index   []any    `json:"index"`
	Rows    [][]any  `json:"data"`
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Row returns the i-th row.
func (t *Table) Row(i int) ([]any, bool) {
	if i < 0 || i >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[i], true
}

// RowByLabel returns the first row whose index label matches label.
// Labels are compared by their printed form so 3, 3.0 and "3" all match.
func (t *Table) RowByLabel(label any) ([]any, bool) {
	want := labelString(label)
	for i, l := range t.Index {
		if labelString(l) == want {
			return t.Rows[i], true
		}
	}
	return nil, false
}

// Column returns the cells of the named column.
func (t *Table) Column(name string) ([]any, bool) {
	j := slices.Index(t.Columns, name)
	if j < 0 {
		return nil, false
	}
	out := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out, true
}

// Float64s returns the named column as floats for numerical work.
func (t *Table) Float64s(name string) ([]float64, error) {
	cells, ok := t.Column(name)
	if !ok {
		return nil, fmt.Errorf("no column %q", name)
	}
	out := make([]float64, len(cells))
	for i, c := range cells {
		f, err := toFloat(c)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = f
	}
	return out, nil
}

func labelString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return t.String()
	default:
		if f, err := toFloat(v); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return fmt.Sprint(v)
	}
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case uint64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		switch t {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("not a number: %q", t)
	case nil:
		return math.NaN(), nil
	default:
		return 0, fmt.Errorf("not a number: %T", v)
	}
}
