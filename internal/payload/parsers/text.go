// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/zosgo/zosgo/internal/convert"
	"github.com/zosgo/zosgo/internal/payload"
)

// TextParser parses sectioned text exports:
//
//	# FftMtf
//	Polychromatic Diffraction MTF
//	## Settings
//	SampleSize: 2
//	## Table: Mtf
//	Spatial frequency	Field 1 Tangential
//	0	1
//
// The title names the analysis kind and the lines before the first section
// are header lines. Sections are Settings, Fields, Messages and any number of
// "Table: <name>" sections holding tab-separated rows.
type TextParser struct{}

// NewTextParser creates a new TextParser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

func (p *TextParser) Name() string {
	return "text"
}

// CanHandle returns true for the "text" format hint, or content that starts
// with a single-'#' title line.
func (p *TextParser) CanHandle(source payload.Source) bool {
	switch strings.ToLower(source.Format) {
	case "text", "txt":
		return true
	case "":
	default:
		return false
	}
	content := strings.TrimSpace(string(source.Content))
	return strings.HasPrefix(content, "# ")
}

func (p *TextParser) Parse(_ context.Context, source payload.Source) (*convert.Payload, error) {
	lines := strings.Split(strings.ReplaceAll(string(source.Content), "\r\n", "\n"), "\n")

	pl := &convert.Payload{}
	var (
		section string
		table   *tableBuilder
	)
	flush := func() error {
		if table == nil {
			return nil
		}
		t, err := table.build()
		if err != nil {
			return err
		}
		pl.Tables = append(pl.Tables, t)
		table = nil
		return nil
	}

	for i, line := range lines {
		lineNo := i + 1
		switch {
		case strings.HasPrefix(line, "## "):
			if err := flush(); err != nil {
				return nil, err
			}
			section = strings.TrimSpace(strings.TrimPrefix(line, "## "))
			if name, ok := strings.CutPrefix(section, "Table:"); ok {
				table = &tableBuilder{name: strings.TrimSpace(name)}
				section = "Table"
				continue
			}
			switch section {
			case "Settings", "Fields", "Messages":
			default:
				return nil, fmt.Errorf("line %d: unknown section %q", lineNo, section)
			}
			continue
		case strings.HasPrefix(line, "# ") && pl.Analysis == "" && section == "":
			pl.Analysis = strings.TrimSpace(strings.TrimPrefix(line, "# "))
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}
		switch section {
		case "":
			if pl.Analysis == "" {
				return nil, fmt.Errorf("line %d: text before the title", lineNo)
			}
			pl.Header = append(pl.Header, strings.TrimRight(line, " \t"))
		case "Settings", "Fields":
			key, value, ok := strings.Cut(line, ":")
			if !ok {
				return nil, fmt.Errorf("line %d: expected Key: value in %s", lineNo, section)
			}
			target := &pl.Settings
			if section == "Fields" {
				target = &pl.Fields
			}
			if *target == nil {
				*target = make(map[string]any)
			}
			if err := setPath(*target, strings.TrimSpace(key), scalar(value)); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		case "Messages":
			pl.Messages = append(pl.Messages, strings.TrimSpace(line))
		case "Table":
			if err := table.add(line); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return pl, nil
}

// scalar decodes a setting value as a YAML scalar. Anything that is not a
// scalar is kept as text.
func scalar(raw string) any {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	switch v.(type) {
	case map[string]any, []any, nil:
		return raw
	}
	return v
}

// setPath assigns value under a dotted key, creating nested maps.
func setPath(m map[string]any, key string, value any) error {
	parts := strings.Split(key, ".")
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part]
		if !ok {
			child := make(map[string]any)
			m[part] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return fmt.Errorf("setting %q: %s already holds a value", key, part)
		}
		m = child
	}
	m[parts[len(parts)-1]] = value
	return nil
}

type tableBuilder struct {
	name    string
	columns []string
	labeled bool
	labels  []any
	rows    [][]any
}

func (b *tableBuilder) add(line string) error {
	cells := strings.Split(strings.TrimRight(line, "\r"), "\t")
	if b.columns == nil {
		if cells[0] == "" && len(cells) > 1 {
			b.labeled = true
			cells = cells[1:]
		}
		b.columns = make([]string, len(cells))
		for i, c := range cells {
			b.columns[i] = strings.TrimSpace(c)
		}
		return nil
	}

	if b.labeled {
		b.labels = append(b.labels, cell(cells[0]))
		cells = cells[1:]
	}
	if len(cells) != len(b.columns) {
		return fmt.Errorf("table %s: row has %d cells for %d columns", b.name, len(cells), len(b.columns))
	}
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = cell(c)
	}
	b.rows = append(b.rows, row)
	return nil
}

func (b *tableBuilder) build() (convert.Table, error) {
	if b.columns == nil {
		return convert.Table{}, fmt.Errorf("table %s: no column line", b.name)
	}
	return convert.Table{Name: b.name, Columns: b.columns, RowLabels: b.labels, Rows: b.rows}, nil
}

// cell parses a table cell as an integer or float, keeping other text.
func cell(raw string) any {
	s := strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	// Non-finite cells take the record's spelling.
	switch strings.ToLower(s) {
	case "nan":
		return "NaN"
	case "inf", "+inf", "infinity", "+infinity":
		return "Infinity"
	case "-inf", "-infinity":
		return "-Infinity"
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
