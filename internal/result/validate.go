// SPDX-License-Identifier: Apache-2.0

package result

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/zosgo/zosgo/internal/errors"
)

var topLevelFields = []string{"data", "settings", "header", "messages", "metadata"}

// Build validates structured input against its analysis kind and returns
// the record. Input values may be any JSON-compatible Go values; they are
// normalized to the form produced by Decode.
func (c *Catalog) Build(input map[string]any) (*Record, error) {
	m, err := normalize(input)
	if err != nil {
		return nil, errors.NewSchemaValidation("", err.Error())
	}

	for _, f := range []string{"data", "settings", "metadata"} {
		if _, ok := m[f]; !ok {
			return nil, errors.NewSchemaValidation(f, "required field missing")
		}
	}
	for _, f := range sortedKeys(m) {
		if !contains(topLevelFields, f) {
			return nil, errors.NewSchemaValidation(f, "unknown field")
		}
	}

	md, err := parseMetadata(m["metadata"])
	if err != nil {
		return nil, err
	}
	k, ok := c.kind(md.Analysis)
	if !ok {
		return nil, errors.NewSchemaValidation("metadata.analysis", fmt.Sprintf("unknown analysis kind %q", md.Analysis))
	}
	if err := checkMetadata(md, k.spec); err != nil {
		return nil, err
	}

	rec := &Record{Metadata: md, Messages: []string{}}

	if h, ok := m["header"]; ok && h != nil {
		s, isString := h.(string)
		if !isString {
			return nil, errors.NewSchemaValidation("header", fmt.Sprintf("expected string, got %s", typeName(h)))
		}
		rec.Header = s
	}
	if msgs, ok := m["messages"]; ok && msgs != nil {
		list, isList := msgs.([]any)
		if !isList {
			return nil, errors.NewSchemaValidation("messages", fmt.Sprintf("expected list, got %s", typeName(msgs)))
		}
		for i, e := range list {
			s, isString := e.(string)
			if !isString {
				return nil, errors.NewSchemaValidation(fmt.Sprintf("messages[%d]", i), fmt.Sprintf("expected string, got %s", typeName(e)))
			}
			rec.Messages = append(rec.Messages, s)
		}
	}

	settings, ok := m["settings"].(map[string]any)
	if !ok {
		return nil, errors.NewSchemaValidation("settings", fmt.Sprintf("expected mapping, got %s", typeName(m["settings"])))
	}
	if err := c.validate(k.settings, "settings", settings); err != nil {
		return nil, err
	}
	rec.Settings = settings

	switch k.spec.Shape {
	case ShapeTabular:
		t, err := parseTable(m["data"])
		if err != nil {
			return nil, err
		}
		if err := c.validate(k.data, "data", m["data"]); err != nil {
			return nil, err
		}
		rec.Data = t
	case ShapeStructured:
		fields, ok := m["data"].(map[string]any)
		if !ok {
			return nil, errors.NewSchemaValidation("data", fmt.Sprintf("expected structured mapping, got %s", typeName(m["data"])))
		}
		if _, looksTabular := fields["columns"]; looksTabular {
			return nil, errors.NewSchemaValidation("data", "tabular data given for a structured analysis kind")
		}
		if err := c.validate(k.data, "data", fields); err != nil {
			return nil, err
		}
		rec.Data = fields
	}

	return rec, nil
}

func parseMetadata(v any) (Metadata, error) {
	var md Metadata
	if _, ok := v.(map[string]any); !ok {
		return md, errors.NewSchemaValidation("metadata", fmt.Sprintf("expected mapping, got %s", typeName(v)))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return md, errors.NewSchemaValidation("metadata", err.Error())
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&md); err != nil {
		return md, errors.NewSchemaValidation("metadata", err.Error())
	}
	if md.Analysis == "" {
		return md, errors.NewSchemaValidation("metadata.analysis", "required field missing")
	}
	return md, nil
}

func checkMetadata(md Metadata, spec KindSpec) error {
	want := spec.Metadata()
	checks := []struct {
		path      string
		got, want any
	}{
		{"metadata.version", md.Version, want.Version},
		{"metadata.data.shape", md.Data.Shape, want.Data.Shape},
		{"metadata.data.schema", md.Data.Schema, want.Data.Schema},
		{"metadata.data.module", md.Data.Module, want.Data.Module},
		{"metadata.settings.schema", md.Settings.Schema, want.Settings.Schema},
		{"metadata.settings.module", md.Settings.Module, want.Settings.Module},
	}
	for _, c := range checks {
		if c.got != c.want {
			return errors.NewSchemaValidation(c.path, fmt.Sprintf("expected %v for analysis %s, got %v", c.want, spec.Name, c.got))
		}
	}
	return nil
}

func parseTable(v any) (*Table, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, errors.NewSchemaValidation("data", fmt.Sprintf("expected table, got %s", typeName(v)))
	}
	for _, f := range []string{"columns", "index", "data"} {
		if _, ok := m[f]; !ok {
			return nil, errors.NewSchemaValidation("data."+f, "required field missing")
		}
	}
	for _, f := range sortedKeys(m) {
		if f != "columns" && f != "index" && f != "data" {
			return nil, errors.NewSchemaValidation("data."+f, "unknown field")
		}
	}

	t := &Table{}
	cols, ok := m["columns"].([]any)
	if !ok {
		return nil, errors.NewSchemaValidation("data.columns", "expected list")
	}
	for i, c := range cols {
		s, ok := c.(string)
		if !ok {
			return nil, errors.NewSchemaValidation(fmt.Sprintf("data.columns[%d]", i), "expected string")
		}
		t.Columns = append(t.Columns, s)
	}
	if t.Columns == nil {
		t.Columns = []string{}
	}

	index, ok := m["index"].([]any)
	if !ok {
		return nil, errors.NewSchemaValidation("data.index", "expected list")
	}
	t.Index = index

	rows, ok := m["data"].([]any)
	if !ok {
		return nil, errors.NewSchemaValidation("data.data", "expected list of rows")
	}
	if len(rows) != len(index) {
		return nil, errors.NewSchemaValidation("data.index", fmt.Sprintf("%d labels for %d rows", len(index), len(rows)))
	}
	t.Rows = make([][]any, len(rows))
	for i, r := range rows {
		row, ok := r.([]any)
		if !ok {
			return nil, errors.NewSchemaValidation(fmt.Sprintf("data.data[%d]", i), "expected row list")
		}
		if len(row) != len(t.Columns) {
			return nil, errors.NewSchemaValidation(fmt.Sprintf("data.data[%d]", i), fmt.Sprintf("%d cells for %d columns", len(row), len(t.Columns)))
		}
		t.Rows[i] = row
	}
	return t, nil
}

// validate unifies v with schema. The caller's path prefix is prepended to
// the path CUE reports.
func (c *Catalog) validate(schema cue.Value, prefix string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.NewSchemaValidation(prefix, err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	val := c.ctx.CompileBytes(b, cue.Filename(prefix+".json"))
	if err := val.Err(); err != nil {
		return errors.NewSchemaValidation(prefix, err.Error())
	}
	u := schema.Unify(val)
	if err := u.Validate(cue.Concrete(true)); err != nil {
		return cueError(prefix, err)
	}
	return nil
}

func cueError(prefix string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return errors.NewSchemaValidation(prefix, err.Error())
	}
	first := errs[0]
	segments := []string{prefix}
	for _, p := range first.Path() {
		if strings.HasPrefix(p, "#") {
			continue
		}
		segments = append(segments, p)
	}
	format, args := first.Msg()
	return errors.NewSchemaValidation(strings.Join(segments, "."), fmt.Sprintf(format, args...))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case json.Number:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "mapping"
	default:
		return fmt.Sprintf("%T", v)
	}
}
