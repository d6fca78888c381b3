// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/zosgo/zosgo/internal/result"
)

var (
	borderColor = lipgloss.Color("#666666")
	infoColor   = lipgloss.Color("#4682B4")
	mutedColor  = lipgloss.Color("#888888")

	titleStyle   = lipgloss.NewStyle().Foreground(infoColor).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	indexStyle   = cellStyle.Foreground(mutedColor)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF8800"))
)

func newShowCmd(a *app) *cobra.Command {
	var maxRows int
	cmd := &cobra.Command{
		Use:   "show [record-file]",
		Short: "Print a record in human-readable form",
		Long: `Show validates record text and prints its header, settings and data.
Tabular data is drawn as a table, structured data as YAML.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			rec, err := result.DefaultCatalog().DecodeContext(cmd.Context(), text)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), rec, maxRows)
		},
	}
	cmd.Flags().IntVarP(&maxRows, "rows", "n", 20, "Maximum table rows to print (0 prints all)")
	return cmd
}

func render(w io.Writer, rec *result.Record, maxRows int) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(rec.Metadata.Analysis))
	b.WriteString(mutedStyle.Render(fmt.Sprintf(" v%d  %s", rec.Metadata.Version, rec.Metadata.Data.Schema)))
	b.WriteString("\n")
	if rec.Header != "" {
		b.WriteString(mutedStyle.Render(rec.Header))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	settings, err := yaml.MarshalWithOptions(plain(rec.Settings), yaml.Indent(2))
	if err != nil {
		return fmt.Errorf("render settings: %w", err)
	}
	b.WriteString(titleStyle.Render("settings"))
	b.WriteString("\n")
	b.Write(settings)
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("data"))
	b.WriteString("\n")
	if t, ok := rec.Table(); ok {
		b.WriteString(renderTable(t, maxRows))
		b.WriteString("\n")
	} else if fields, ok := rec.Fields(); ok {
		data, err := yaml.MarshalWithOptions(plain(fields), yaml.Indent(2))
		if err != nil {
			return fmt.Errorf("render data: %w", err)
		}
		b.Write(data)
	}

	for _, m := range rec.Messages {
		b.WriteString(warningStyle.Render(m))
		b.WriteString("\n")
	}
	_, err = io.WriteString(w, b.String())
	return err
}

// renderTable draws the index as the first column.
func renderTable(t *result.Table, maxRows int) string {
	n := t.Len()
	if maxRows > 0 && n > maxRows {
		n = maxRows
	}
	rows := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, 0, len(t.Columns)+1)
		row = append(row, formatCell(t.Index[i]))
		for _, c := range t.Rows[i] {
			row = append(row, formatCell(c))
		}
		rows[i] = row
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(append([]string{""}, t.Columns...)...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return indexStyle
			default:
				return cellStyle
			}
		})

	out := tbl.String()
	if n < t.Len() {
		out += "\n" + mutedStyle.Render(fmt.Sprintf("%d of %d rows", n, t.Len()))
	}
	return out
}

// plain replaces json.Number values so YAML prints them as numbers.
func plain(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	default:
		return v
	}
}

func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case map[string]any:
		if value, unit, ok := result.QuantityOf(c); ok {
			return fmt.Sprintf("%v %s", value, unit)
		}
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, c[k])
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprint(v)
	}
}
