// SPDX-License-Identifier: Apache-2.0

// Package analysis reads the output of a host analysis through interop
// handles and turns it into a validated result record.
package analysis

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zosgo/zosgo/internal/convert"
	"github.com/zosgo/zosgo/internal/interop"
	"github.com/zosgo/zosgo/internal/result"
)

var tracer = otel.Tracer("github.com/zosgo/zosgo/internal/analysis")

// Host capability names of the analysis object model.
const (
	AnalysisInterface = "ZOSAPI.Analysis.IA_"
	SettingsInterface = "ZOSAPI.Analysis.Settings.IAS_"
	ResultsInterface  = "ZOSAPI.Analysis.Data.IAR_"
	HeaderInterface   = "ZOSAPI.Analysis.Data.IAR_HeaderData"
	MetaDataInterface = "ZOSAPI.Analysis.Data.IAR_MetaData"
	SeriesInterface   = "ZOSAPI.Analysis.Data.IAR_DataSeries"
	GridInterface     = "ZOSAPI.Analysis.Data.IAR_DataGrid"
	MessageInterface  = "ZOSAPI.Analysis.IMessage"
)

// Capabilities declares the members of the analysis interfaces the reader
// uses. Hosts add their concrete settings types next to these.
var Capabilities = []interop.Capability{
	{
		Name:       AnalysisInterface,
		Interface:  true,
		Properties: []string{"AnalysisType"},
		Methods:    []string{"GetSettings", "GetResults"},
	},
	{Name: SettingsInterface, Interface: true},
	{
		Name:       ResultsInterface,
		Interface:  true,
		Properties: []string{"HeaderData", "MetaData", "Messages", "NumberOfDataSeries", "NumberOfDataGrids"},
		Methods:    []string{"GetDataSeries", "GetDataGrid"},
	},
	{Name: HeaderInterface, Interface: true, Properties: []string{"Lines"}},
	{Name: MetaDataInterface, Interface: true, Properties: []string{"FeatureDescription", "LensFile"}},
	{
		Name:       SeriesInterface,
		Interface:  true,
		Properties: []string{"Description", "XLabel", "SeriesLabels", "XData", "YData"},
	},
	{
		Name:       GridInterface,
		Interface:  true,
		Properties: []string{"Description", "ColumnLabels", "RowLabels", "Values"},
	},
	{Name: MessageInterface, Interface: true, Properties: []string{"Text"}},
}

// maxDepth bounds how deep nested sub-settings are followed.
const maxDepth = 8

// ReadPayload reads the settings and results of an analysis handle. The
// settings object is declared by the host under its generic interface and
// read through the concrete view the session's resolver widens it to.
func ReadPayload(h *interop.Handle) (*convert.Payload, error) {
	kind, err := h.Get("AnalysisType")
	if err != nil {
		return nil, err
	}
	p := &convert.Payload{Analysis: fmt.Sprint(kind)}

	settings, err := h.CallHandle("GetSettings")
	if err != nil {
		return nil, err
	}
	if p.Settings, err = readSettings(settings, 0); err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	results, err := h.CallHandle("GetResults")
	if err != nil {
		return nil, err
	}
	if err := readResults(results, p); err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	return p, nil
}

// Run reads an analysis and converts its payload into a record.
func Run(ctx context.Context, h *interop.Handle, conv *convert.Converter) (*result.Record, []convert.Warning, error) {
	ctx, span := tracer.Start(ctx, "analysis.Run")
	defer span.End()

	p, err := ReadPayload(h)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, nil, err
	}
	span.SetAttributes(attribute.String("analysis", p.Analysis))
	return conv.Record(ctx, p)
}

func readSettings(h *interop.Handle, depth int) (map[string]any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("settings nested deeper than %d levels at %s", maxDepth, h.Capability().Name)
	}
	out := make(map[string]any)
	for _, name := range h.Properties() {
		v, err := h.Get(name)
		if err != nil {
			return nil, err
		}
		if out[name], err = settingValue(v, depth); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return out, nil
}

func settingValue(v any, depth int) (any, error) {
	switch t := v.(type) {
	case *interop.Handle:
		return readSettings(t, depth+1)
	case []*interop.Handle:
		out := make([]any, len(t))
		for i, e := range t {
			m, err := readSettings(e, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = m
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			var err error
			if out[i], err = settingValue(e, depth); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return v, nil
	}
}

func readResults(h *interop.Handle, p *convert.Payload) error {
	header, err := optionalHandle(h, "HeaderData")
	if err != nil {
		return err
	}
	if header != nil {
		lines, err := header.Get("Lines")
		if err != nil {
			return err
		}
		p.Header = stringsOf(lines)
	}

	meta, err := optionalHandle(h, "MetaData")
	if err != nil {
		return err
	}
	if meta != nil && has(meta, "LensFile") {
		lens, err := meta.Get("LensFile")
		if err != nil {
			return err
		}
		if lens != nil {
			p.Source = fmt.Sprint(lens)
		}
	}

	if has(h, "Messages") {
		raw, err := h.Get("Messages")
		if err != nil {
			return err
		}
		if p.Messages, err = messages(raw); err != nil {
			return err
		}
	}

	series, err := count(h, "NumberOfDataSeries")
	if err != nil {
		return err
	}
	for i := 0; i < series; i++ {
		s, err := h.CallHandle("GetDataSeries", i)
		if err != nil {
			return err
		}
		t, err := seriesTable(s)
		if err != nil {
			return fmt.Errorf("data series %d: %w", i, err)
		}
		p.Tables = append(p.Tables, t)
	}

	grids, err := count(h, "NumberOfDataGrids")
	if err != nil {
		return err
	}
	for i := 0; i < grids; i++ {
		g, err := h.CallHandle("GetDataGrid", i)
		if err != nil {
			return err
		}
		t, err := gridTable(g)
		if err != nil {
			return fmt.Errorf("data grid %d: %w", i, err)
		}
		p.Tables = append(p.Tables, t)
	}
	return nil
}

// optionalHandle reads an object property that the host may leave null.
func optionalHandle(h *interop.Handle, name string) (*interop.Handle, error) {
	if !has(h, name) {
		return nil, nil
	}
	v, err := h.Get(name)
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *interop.Handle:
		return t, nil
	default:
		return nil, fmt.Errorf("%s holds %T, not an object", name, v)
	}
}

// seriesTable lays out a data series as one row per x value: the x value
// followed by the y value of each series.
func seriesTable(h *interop.Handle) (convert.Table, error) {
	props, err := getAll(h, "Description", "XLabel", "SeriesLabels", "XData", "YData")
	if err != nil {
		return convert.Table{}, err
	}
	xs := listOf(props["XData"])
	ys := listOf(props["YData"])
	if len(ys) != len(xs) {
		return convert.Table{}, fmt.Errorf("%d x values but %d y rows", len(xs), len(ys))
	}

	t := convert.Table{
		Name:    fmt.Sprint(props["Description"]),
		Columns: append([]string{fmt.Sprint(props["XLabel"])}, stringsOf(props["SeriesLabels"])...),
		Rows:    make([][]any, len(xs)),
	}
	for i, x := range xs {
		t.Rows[i] = append([]any{x}, listOf(ys[i])...)
	}
	return t, nil
}

func gridTable(h *interop.Handle) (convert.Table, error) {
	props, err := getAll(h, "Description", "ColumnLabels", "RowLabels", "Values")
	if err != nil {
		return convert.Table{}, err
	}
	t := convert.Table{
		Name:      fmt.Sprint(props["Description"]),
		Columns:   stringsOf(props["ColumnLabels"]),
		RowLabels: listOf(props["RowLabels"]),
	}
	for _, r := range listOf(props["Values"]) {
		t.Rows = append(t.Rows, listOf(r))
	}
	if len(t.RowLabels) > 0 && len(t.RowLabels) != len(t.Rows) {
		return convert.Table{}, fmt.Errorf("%d row labels for %d rows", len(t.RowLabels), len(t.Rows))
	}
	return t, nil
}

func messages(raw any) ([]string, error) {
	var out []string
	for _, m := range listOf(raw) {
		switch t := m.(type) {
		case *interop.Handle:
			text, err := t.Get("Text")
			if err != nil {
				return nil, err
			}
			out = append(out, fmt.Sprint(text))
		case nil:
		default:
			out = append(out, fmt.Sprint(t))
		}
	}
	return out, nil
}

// getAll reads the named properties the view exposes; missing ones are nil.
func getAll(h *interop.Handle, names ...string) (map[string]any, error) {
	out := make(map[string]any, len(names))
	for _, n := range names {
		if !has(h, n) {
			continue
		}
		v, err := h.Get(n)
		if err != nil {
			return nil, err
		}
		out[n] = v
	}
	return out, nil
}

func has(h *interop.Handle, name string) bool {
	return h.Capability().HasProperty(name)
}

func count(h *interop.Handle, name string) (int, error) {
	if !has(h, name) {
		return 0, nil
	}
	v, err := h.Get(name)
	if err != nil || v == nil {
		return 0, err
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return int(rv.Int()), nil
	case rv.CanUint():
		return int(rv.Uint()), nil
	case rv.CanFloat() && rv.Float() == float64(int(rv.Float())):
		return int(rv.Float()), nil
	}
	return 0, fmt.Errorf("%s is %T, not a count", name, v)
}

// listOf returns the elements of any slice or array value.
func listOf(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func stringsOf(v any) []string {
	list := listOf(v)
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = fmt.Sprint(e)
	}
	return out
}
