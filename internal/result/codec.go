// SPDX-License-Identifier: Apache-2.0

package result

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zosgo/zosgo/internal/errors"
)

var tracer = otel.Tracer("github.com/zosgo/zosgo/internal/result")

// envelope fixes the top-level field order of the interchange text.
type envelope struct {
	Data     any            `json:"data"`
	Settings map[string]any `json:"settings"`
	Header   string         `json:"header"`
	Messages []string       `json:"messages"`
	Metadata Metadata       `json:"metadata"`
}

// Encode writes the record as interchange text: two-space indented JSON with
// a fixed top-level order and sorted mapping keys. Non-finite numbers are
// written as "NaN", "Infinity" and "-Infinity".
func (r *Record) Encode() ([]byte, error) {
	env := envelope{
		Data:     canonical(r.Data),
		Header:   r.Header,
		Messages: r.Messages,
		Metadata: r.Metadata,
	}
	if env.Messages == nil {
		env.Messages = []string{}
	}
	if s, ok := canonical(r.Settings).(map[string]any); ok {
		env.Settings = s
	}
	if env.Settings == nil {
		env.Settings = map[string]any{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("encode %s record: %w", r.Metadata.Analysis, err)
	}
	return buf.Bytes(), nil
}

// Decode parses interchange text into a validated record.
func (c *Catalog) Decode(text []byte) (*Record, error) {
	return c.DecodeContext(context.Background(), text)
}

// DecodeContext is Decode with a span recorded on ctx.
func (c *Catalog) DecodeContext(ctx context.Context, text []byte) (*Record, error) {
	_, span := tracer.Start(ctx, "result.Decode")
	defer span.End()

	m, err := decodeObject(text)
	if err == nil {
		var rec *Record
		rec, err = c.Build(m)
		if err == nil {
			span.SetAttributes(attribute.String("analysis", rec.Metadata.Analysis))
			return rec, nil
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

func decodeObject(text []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, syntaxError(text, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.NewSchemaValidation("", fmt.Sprintf("trailing content at offset %d", dec.InputOffset()))
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.NewSchemaValidation("", fmt.Sprintf("expected a mapping at the top level, got %s", typeName(v)))
	}
	return m, nil
}

func syntaxError(text []byte, err error) error {
	var se *json.SyntaxError
	if stderrors.As(err, &se) {
		line, col := position(text, se.Offset)
		return errors.NewSchemaValidation("", fmt.Sprintf("malformed text at line %d, column %d: %v", line, col, se)).
			WithDetail("offset", se.Offset)
	}
	if err == io.EOF {
		return errors.NewSchemaValidation("", "empty text")
	}
	return errors.NewSchemaValidation("", fmt.Sprintf("malformed text: %v", err))
}

func position(text []byte, offset int64) (line, col int) {
	line, col = 1, 1
	for i := int64(0); i < offset && i < int64(len(text)); i++ {
		if text[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// normalize converts arbitrary JSON-compatible input into the generic form
// produced by decoding interchange text.
func normalize(input map[string]any) (map[string]any, error) {
	b, err := json.Marshal(canonical(input))
	if err != nil {
		return nil, err
	}
	m, err := decodeObject(b)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// canonical returns v with non-finite floats replaced by their string names.
// Maps and slices are copied; other values are returned as is.
func canonical(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return canonicalFloat(t)
	case float32:
		return canonicalFloat(float64(t))
	case json.Number, string, bool, int, int64, int32:
		return v
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = canonical(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = canonical(e)
		}
		return out
	case *Table:
		if t == nil {
			return nil
		}
		rows := make([]any, len(t.Rows))
		for i, r := range t.Rows {
			rows[i] = canonical(r)
		}
		cols := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			cols[i] = c
		}
		index := canonical(t.Index)
		if index == nil {
			index = []any{}
		}
		return map[string]any{"columns": cols, "index": index, "data": rows}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return canonicalFloat(rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = canonical(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = canonical(iter.Value().Interface())
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		return canonical(rv.Elem().Interface())
	}
	return v
}

func canonicalFloat(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return f
}
