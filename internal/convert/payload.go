// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"fmt"
	"reflect"
)

// Table is one data table of a raw analysis payload. Rows are addressable by
// position or by row label.
type Table struct {
	Name      string   `json:"name" yaml:"name"`
	Columns   []string `json:"columns" yaml:"columns"`
	RowLabels []any    `json:"row_labels,omitempty" yaml:"row_labels,omitempty"`
	Rows      [][]any  `json:"rows" yaml:"rows"`
}

// Row returns the i-th row.
func (t *Table) Row(i int) ([]any, bool) {
	if i < 0 || i >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[i], true
}

// RowByLabel returns the row carrying label.
func (t *Table) RowByLabel(label any) ([]any, bool) {
	want := fmt.Sprint(label)
	for i, l := range t.RowLabels {
		if i < len(t.Rows) && fmt.Sprint(l) == want {
			return t.Rows[i], true
		}
	}
	return nil, false
}

// Payload is the untyped output of one analysis run as read from the host.
type Payload struct {
	// Analysis is the analysis kind name, current or legacy.
	Analysis string `json:"analysis" yaml:"analysis"`
	// Source identifies where the payload came from, for error context.
	Source   string         `json:"source,omitempty" yaml:"source,omitempty"`
	Header   []string       `json:"header" yaml:"header"`
	Settings map[string]any `json:"settings" yaml:"settings"`
	// Fields holds structured results that are not tables.
	Fields   map[string]any `json:"fields,omitempty" yaml:"fields,omitempty"`
	Tables   []Table        `json:"tables" yaml:"tables"`
	Messages []string       `json:"messages" yaml:"messages"`
}

// SourceName returns the payload source, falling back to the analysis name.
func (p *Payload) SourceName() string {
	if p.Source != "" {
		return p.Source
	}
	return p.Analysis
}

// Document returns the generic document reshape expressions are evaluated
// over:
//
//	header    list of header lines
//	settings  settings echo
//	fields    structured results
//	tables    list of tables: name, columns, index, rows, records
//	table     the first table, or null
//	messages  list of messages
//
// Each table record maps column names to the row's cells.
func (p *Payload) Document() map[string]any {
	tables := make([]any, len(p.Tables))
	for i := range p.Tables {
		tables[i] = tableDocument(&p.Tables[i])
	}
	var first any
	if len(tables) > 0 {
		first = tables[0]
	}
	return map[string]any{
		"header":   stringList(p.Header),
		"settings": generic(p.Settings, map[string]any{}),
		"fields":   generic(p.Fields, map[string]any{}),
		"tables":   tables,
		"table":    first,
		"messages": stringList(p.Messages),
	}
}

func tableDocument(t *Table) map[string]any {
	cols := make([]any, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c
	}
	index := make([]any, len(t.Rows))
	for i := range t.Rows {
		if i < len(t.RowLabels) {
			index[i] = t.RowLabels[i]
		} else {
			index[i] = i
		}
	}
	rows := make([]any, len(t.Rows))
	records := make([]any, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]any, len(r))
		rec := make(map[string]any, len(t.Columns))
		for j, cell := range r {
			row[j] = generic(cell, nil)
			if j < len(t.Columns) {
				rec[t.Columns[j]] = row[j]
			}
		}
		rows[i] = row
		records[i] = rec
	}
	return map[string]any{
		"name":    t.Name,
		"columns": cols,
		"index":   index,
		"rows":    rows,
		"records": records,
	}
}

func stringList(s []string) []any {
	out := make([]any, len(s))
	for i, e := range s {
		out[i] = e
	}
	return out
}

// generic copies v into plain maps and lists. A nil map or slice yields def.
func generic(v any, def any) any {
	switch t := v.(type) {
	case nil:
		return def
	case map[string]any:
		if t == nil {
			return def
		}
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = generic(e, nil)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = generic(e, nil)
		}
		return out
	case string, bool, int, int64, uint64, float64:
		return v
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return def
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = generic(rv.Index(i).Interface(), nil)
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = generic(iter.Value().Interface(), nil)
		}
		return out
	}
	return v
}
