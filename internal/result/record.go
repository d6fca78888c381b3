// SPDX-License-Identifier: Apache-2.0

// Package result defines the validated result record produced for every
// analysis run, its analysis-kind schemas, and its interchange text codec.
package result

// Shape selects how the data of an analysis kind is laid out.
type Shape string

const (
	ShapeTabular    Shape = "tabular"
	ShapeStructured Shape = "structured"
)

// Metadata identifies the schemas a record was validated against.
type Metadata struct {
	Analysis string           `json:"analysis"`
	Version  int              `json:"version"`
	Data     DataMetadata     `json:"data"`
	Settings SettingsMetadata `json:"settings"`
}

// DataMetadata describes the data block of a record.
type DataMetadata struct {
	Shape  Shape  `json:"shape"`
	Schema string `json:"schema"`
	Module string `json:"module"`
}

// SettingsMetadata describes the settings block of a record.
type SettingsMetadata struct {
	Schema string `json:"schema"`
	Module string `json:"module"`
}

// Record is the validated outcome of one analysis run.
type Record struct {
	// Data is a *Table for tabular kinds and a map[string]any for structured kinds.
	Data     any
	Settings map[string]any
	Header   string
	Messages []string
	Metadata Metadata
}

// Table returns the record data as a table.
func (r *Record) Table() (*Table, bool) {
	t, ok := r.Data.(*Table)
	return t, ok
}

// Fields returns the record data as a structured mapping.
func (r *Record) Fields() (map[string]any, bool) {
	m, ok := r.Data.(map[string]any)
	return m, ok
}

// Quantity returns the interchange representation of a value carrying a unit.
func Quantity(value any, unit string) map[string]any {
	return map[string]any{"value": value, "unit": unit}
}

// QuantityOf reports whether v is a unit-tagged value and returns its parts.
func QuantityOf(v any) (value any, unit string, ok bool) {
	m, isMap := v.(map[string]any)
	if !isMap || len(m) != 2 {
		return nil, "", false
	}
	value, hasValue := m["value"]
	unit, hasUnit := m["unit"].(string)
	if !hasValue || !hasUnit {
		return nil, "", false
	}
	return value, unit, true
}
