// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/zosgo/zosgo/internal/convert/naming"
)

type literalNode struct {
	value any
}

func (n literalNode) eval(scope) (any, error) {
	return n.value, nil
}

type listNode struct {
	items []node
}

func (n listNode) eval(s scope) (any, error) {
	out := make([]any, 0, len(n.items))
	for i, item := range n.items {
		v, err := item.eval(s)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		if IsOmitted(v) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// object
// ---------------------------------------------------------------------------

type field struct {
	name  string
	value node
}

type objectNode struct {
	fields []field
}

func parseObject(v any, at string) (node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		if m, ok = asStringMap(v); !ok {
			return nil, errAt(at, "expected mapping of fields, got %T", v)
		}
	}
	n := objectNode{}
	for _, k := range keys(m) {
		fn, err := parse(m[k], join(at, k))
		if err != nil {
			return nil, err
		}
		n.fields = append(n.fields, field{name: k, value: fn})
	}
	return n, nil
}

func (n objectNode) eval(s scope) (any, error) {
	out := make(map[string]any, len(n.fields))
	for _, f := range n.fields {
		v, err := f.value.eval(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		if IsOmitted(v) {
			continue
		}
		out[f.name] = v
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// when
// ---------------------------------------------------------------------------

var celEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Variable("doc", cel.DynType),
		cel.Variable("it", cel.DynType),
	)
	if err != nil {
		panic(fmt.Sprintf("expr: cel environment: %v", err))
	}
	celEnv = env
}

type whenNode struct {
	source string
	prg    cel.Program
	then   node
	orElse node
}

func parseWhen(m map[string]any, at string) (node, error) {
	src, ok := m["when"].(string)
	if !ok {
		return nil, errAt(at, "expected predicate string, got %T", m["when"])
	}
	ast, iss := celEnv.Compile(src)
	if iss != nil && iss.Err() != nil {
		return nil, errAt(at, "compile %q: %v", src, iss.Err())
	}
	if t := ast.OutputType(); !t.IsExactType(cel.BoolType) && !t.IsExactType(cel.DynType) {
		return nil, errAt(at, "predicate %q has type %v, not bool", src, t)
	}
	prg, err := celEnv.Program(ast)
	if err != nil {
		return nil, errAt(at, "program %q: %v", src, err)
	}

	n := whenNode{source: src, prg: prg, then: pathNode{current: true}}
	if v, ok := m["then"]; ok {
		if n.then, err = parse(v, join(at, "then")); err != nil {
			return nil, err
		}
	}
	if v, ok := m["else"]; ok {
		if n.orElse, err = parse(v, join(at, "else")); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n whenNode) eval(s scope) (any, error) {
	out, _, err := n.prg.Eval(map[string]any{"doc": s.doc, "it": s.it})
	if err != nil {
		return nil, fmt.Errorf("when %q: %w", n.source, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return nil, fmt.Errorf("when %q: got %v, not bool", n.source, out.Value())
	}
	if b {
		return n.then.eval(s)
	}
	if n.orElse == nil {
		return Omit, nil
	}
	return n.orElse.eval(s)
}

// ---------------------------------------------------------------------------
// quantity
// ---------------------------------------------------------------------------

type quantityNode struct {
	value node
	unit  node
}

func parseQuantity(m map[string]any, at string) (node, error) {
	value, err := parse(m["quantity"], at)
	if err != nil {
		return nil, err
	}
	n := quantityNode{value: value}
	switch u := m["unit"].(type) {
	case string:
		n.unit = literalNode{value: u}
	case nil:
		return nil, errAt(at, "unit is required")
	default:
		if n.unit, err = parse(u, join(at, "unit")); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n quantityNode) eval(s scope) (any, error) {
	v, err := n.value.eval(s)
	if err != nil || IsOmitted(v) {
		return v, err
	}
	u, err := n.unit.eval(s)
	if err != nil {
		return nil, err
	}
	unit, ok := u.(string)
	if !ok {
		return nil, fmt.Errorf("unit: got %T, not a string", u)
	}
	return map[string]any{"value": v, "unit": unit}, nil
}

// ---------------------------------------------------------------------------
// group_by
// ---------------------------------------------------------------------------

type groupByNode struct {
	key   string
	from  node
	value node
}

func parseGroupBy(m map[string]any, at string) (node, error) {
	key, ok := m["group_by"].(string)
	if !ok || key == "" {
		return nil, errAt(at, "expected key column name")
	}
	n := groupByNode{key: key, from: pathNode{rooted: true, segments: []string{"table", "records"}}, value: pathNode{current: true}}
	var err error
	if v, ok := m["from"]; ok {
		if n.from, err = parse(v, join(at, "from")); err != nil {
			return nil, err
		}
	}
	if v, ok := m["value"]; ok {
		if n.value, err = parse(v, join(at, "value")); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n groupByNode) eval(s scope) (any, error) {
	src, err := n.from.eval(s)
	if err != nil || IsOmitted(src) {
		return src, err
	}
	rows, ok := toList(src)
	if !ok {
		return nil, fmt.Errorf("group_by %s: got %T, not a list", n.key, src)
	}
	out := make(map[string]any, len(rows))
	for i, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("group_by %s: row %d is %T, not a mapping", n.key, i, r)
		}
		k, ok := row[n.key]
		if !ok {
			return nil, fmt.Errorf("group_by %s: row %d has no such key", n.key, i)
		}
		label := keyString(k)
		if _, dup := out[label]; dup {
			return nil, fmt.Errorf("group_by %s: duplicate key %q", n.key, label)
		}
		v, err := n.value.eval(s.with(row))
		if err != nil {
			return nil, fmt.Errorf("group_by %s: row %d: %w", n.key, i, err)
		}
		if IsOmitted(v) {
			continue
		}
		out[label] = v
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// extract
// ---------------------------------------------------------------------------

type extractNode struct {
	pattern  *regexp.Regexp
	from     node
	number   bool
	optional bool
	unit     string
}

func parseExtract(m map[string]any, at string) (node, error) {
	src, ok := m["extract"].(string)
	if !ok {
		return nil, errAt(at, "expected pattern string, got %T", m["extract"])
	}
	re, err := regexp.Compile(src)
	if err != nil {
		return nil, errAt(at, "pattern: %v", err)
	}
	if re.SubexpIndex("value") < 0 {
		return nil, errAt(at, "pattern %q has no (?P<value>...) group", src)
	}

	n := extractNode{pattern: re, from: pathNode{rooted: true, segments: []string{"header"}}}
	if v, ok := m["from"]; ok {
		if n.from, err = parse(v, join(at, "from")); err != nil {
			return nil, err
		}
	}
	text, err := boolOption(m, "text", at, false)
	if err != nil {
		return nil, err
	}
	n.number = !text
	if n.optional, err = boolOption(m, "optional", at, false); err != nil {
		return nil, err
	}
	if n.unit, _, err = stringOption(m, "unit", at); err != nil {
		return nil, err
	}
	return n, nil
}

func (n extractNode) eval(s scope) (any, error) {
	src, err := n.from.eval(s)
	if err != nil {
		return nil, err
	}
	var lines []string
	switch t := src.(type) {
	case string:
		lines = strings.Split(t, "\n")
	default:
		list, ok := toList(src)
		if !ok && !IsOmitted(src) {
			return nil, fmt.Errorf("extract: got %T, not text", src)
		}
		for _, e := range list {
			if str, ok := e.(string); ok {
				lines = append(lines, str)
			}
		}
	}

	for _, line := range lines {
		match := n.pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		var value any = strings.TrimSpace(match[n.pattern.SubexpIndex("value")])
		if n.number {
			if value, err = toNumber(value); err != nil {
				return nil, fmt.Errorf("extract %q: %w", n.pattern, err)
			}
		}
		unit := n.unit
		if i := n.pattern.SubexpIndex("unit"); i >= 0 && match[i] != "" {
			unit = strings.TrimSpace(match[i])
		}
		if unit != "" {
			return map[string]any{"value": value, "unit": unit}, nil
		}
		return value, nil
	}
	if n.optional {
		return Omit, nil
	}
	return nil, fmt.Errorf("extract %q: no match", n.pattern)
}

// ---------------------------------------------------------------------------
// merge
// ---------------------------------------------------------------------------

type mergeNode struct {
	parts []node
}

func parseMerge(v any, at string) (node, error) {
	list, ok := v.([]any)
	if !ok {
		return nil, errAt(at, "expected list of expressions, got %T", v)
	}
	n := mergeNode{}
	for i, e := range list {
		p, err := parse(e, fmt.Sprintf("%s[%d]", at, i))
		if err != nil {
			return nil, err
		}
		n.parts = append(n.parts, p)
	}
	return n, nil
}

func (n mergeNode) eval(s scope) (any, error) {
	out := map[string]any{}
	for i, p := range n.parts {
		v, err := p.eval(s)
		if err != nil {
			return nil, fmt.Errorf("merge[%d]: %w", i, err)
		}
		if IsOmitted(v) || v == nil {
			continue
		}
		m, ok := v.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("merge[%d]: got %T, not a mapping", i, v)
		}
		DeepMerge(out, m)
	}
	return out, nil
}

// DeepMerge merges src into dst. Nested mappings are merged; any other
// value in src replaces the one in dst.
func DeepMerge(dst, src map[string]any) {
	for k, v := range src {
		sm, srcIsMap := v.(map[string]any)
		dm, dstIsMap := dst[k].(map[string]any)
		if srcIsMap && dstIsMap {
			DeepMerge(dm, sm)
			continue
		}
		if srcIsMap {
			cp := make(map[string]any, len(sm))
			DeepMerge(cp, sm)
			dst[k] = cp
			continue
		}
		dst[k] = v
	}
}

// ---------------------------------------------------------------------------
// each
// ---------------------------------------------------------------------------

type eachNode struct {
	from  node
	value node
}

func parseEach(m map[string]any, at string) (node, error) {
	from, err := parse(m["each"], at)
	if err != nil {
		return nil, err
	}
	v, ok := m["value"]
	if !ok {
		return nil, errAt(at, "value is required")
	}
	value, err := parse(v, join(at, "value"))
	if err != nil {
		return nil, err
	}
	return eachNode{from: from, value: value}, nil
}

func (n eachNode) eval(s scope) (any, error) {
	src, err := n.from.eval(s)
	if err != nil || IsOmitted(src) {
		return src, err
	}
	list, ok := toList(src)
	if !ok {
		return nil, fmt.Errorf("each: got %T, not a list", src)
	}
	out := make([]any, 0, len(list))
	for i, e := range list {
		v, err := n.value.eval(s.with(e))
		if err != nil {
			return nil, fmt.Errorf("each[%d]: %w", i, err)
		}
		if IsOmitted(v) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// table
// ---------------------------------------------------------------------------

type tableNode struct {
	from      node
	rename    map[string]string
	snake     bool
	positions bool
}

func parseTable(m map[string]any, at string) (node, error) {
	from, err := parse(m["table"], at)
	if err != nil {
		return nil, err
	}
	n := tableNode{from: from, rename: map[string]string{}}
	if v, ok := m["columns"]; ok {
		cols, ok := v.(map[string]any)
		if !ok {
			return nil, errAt(join(at, "columns"), "expected mapping of renames, got %T", v)
		}
		for raw, to := range cols {
			s, ok := to.(string)
			if !ok {
				return nil, errAt(join(at, "columns."+raw), "expected string, got %T", to)
			}
			n.rename[raw] = s
		}
	}
	if n.snake, err = boolOption(m, "snake", at, false); err != nil {
		return nil, err
	}
	index, _, err := stringOption(m, "index", at)
	if err != nil {
		return nil, err
	}
	switch index {
	case "", "labels":
	case "positions":
		n.positions = true
	default:
		return nil, errAt(join(at, "index"), "expected labels or positions, got %q", index)
	}
	return n, nil
}

func (n tableNode) eval(s scope) (any, error) {
	src, err := n.from.eval(s)
	if err != nil || IsOmitted(src) {
		return src, err
	}
	t, ok := src.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("table: got %T, not a table", src)
	}
	rawCols, _ := toList(t["columns"])
	rows, ok := toList(t["rows"])
	if !ok {
		return nil, fmt.Errorf("table: no rows")
	}

	cols := make([]any, len(rawCols))
	for i, c := range rawCols {
		name := fmt.Sprint(c)
		switch to, renamed := n.rename[name]; {
		case renamed:
			name = to
		case n.snake:
			name = naming.ConvertKey(name)
		}
		cols[i] = name
	}

	index, _ := toList(t["index"])
	if n.positions || len(index) != len(rows) {
		index = make([]any, len(rows))
		for i := range rows {
			index[i] = i
		}
	}

	data := make([]any, len(rows))
	for i, r := range rows {
		row, ok := toList(r)
		if !ok {
			return nil, fmt.Errorf("table: row %d is %T, not a list", i, r)
		}
		data[i] = row
	}
	return map[string]any{"columns": cols, "index": index, "data": data}, nil
}

// ---------------------------------------------------------------------------
// number, snake_keys
// ---------------------------------------------------------------------------

type numberNode struct {
	value node
}

func (n numberNode) eval(s scope) (any, error) {
	v, err := n.value.eval(s)
	if err != nil || IsOmitted(v) {
		return v, err
	}
	return numberDeep(v)
}

// numberDeep coerces a value, or every element of nested lists.
func numberDeep(v any) (any, error) {
	list, ok := v.([]any)
	if !ok {
		return toNumber(v)
	}
	out := make([]any, len(list))
	for i, e := range list {
		var err error
		if out[i], err = numberDeep(e); err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return out, nil
}

type snakeNode struct {
	value node
}

func (n snakeNode) eval(s scope) (any, error) {
	v, err := n.value.eval(s)
	if err != nil || IsOmitted(v) {
		return v, err
	}
	return naming.ConvertKeys(v), nil
}
