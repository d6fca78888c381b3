// SPDX-License-Identifier: Apache-2.0

// Package expr implements the reshape expressions of mapping rules: a small
// tree of nodes declared in YAML and evaluated over a payload document.
//
// A string is a path ("settings.SampleSize", "$.header"), a number, bool or
// null is a literal, a list evaluates each element, and a mapping selects an
// operator by its key:
//
//	path        explicit path, with an optional default
//	literal     constant value, strings included
//	object      mapping of output keys to expressions
//	when        CEL predicate over doc and it, with then and else
//	quantity    unit-tagged value, with unit
//	group_by    rows keyed by a column into a nested mapping
//	extract     regular expression with value and unit groups, text keeps a string
//	merge       deep merge of partial objects
//	each        list map with value
//	table       payload table as tabular record data
//	number      numeric coercion
//	snake_keys  recursive key conversion
package expr

import (
	"fmt"
	"sort"
	"strings"
)

type omitted struct{}

// Omit is produced by expressions whose value is absent. Objects drop fields
// holding it and lists drop such elements.
var Omit any = omitted{}

// IsOmitted reports whether v is Omit.
func IsOmitted(v any) bool {
	_, ok := v.(omitted)
	return ok
}

// scope is the evaluation context: the whole document and the current item.
type scope struct {
	doc any
	it  any
}

func (s scope) with(it any) scope {
	return scope{doc: s.doc, it: it}
}

type node interface {
	eval(s scope) (any, error)
}

// Expr is a parsed reshape expression.
type Expr struct {
	root node
}

// Parse builds an expression from a decoded YAML value.
func Parse(v any) (*Expr, error) {
	n, err := parse(v, "")
	if err != nil {
		return nil, err
	}
	return &Expr{root: n}, nil
}

// MustParse is Parse for expressions known to be valid.
func MustParse(v any) *Expr {
	e, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return e
}

// Eval evaluates the expression with doc as both root and current item.
// An absent result is returned as Omit.
func (e *Expr) Eval(doc any) (any, error) {
	return e.root.eval(scope{doc: doc, it: doc})
}

type parseError struct {
	at  string
	msg string
}

func (e *parseError) Error() string {
	if e.at == "" {
		return e.msg
	}
	return e.at + ": " + e.msg
}

func errAt(at, format string, args ...any) error {
	return &parseError{at: at, msg: fmt.Sprintf(format, args...)}
}

func join(at, key string) string {
	if at == "" {
		return key
	}
	return at + "." + key
}

// operators maps each operator key to the option keys it accepts.
var operators = map[string][]string{
	"path":       {"default"},
	"literal":    nil,
	"object":     nil,
	"when":       {"then", "else"},
	"quantity":   {"unit"},
	"group_by":   {"from", "value"},
	"extract":    {"from", "text", "optional", "unit"},
	"merge":      nil,
	"each":       {"value"},
	"table":      {"columns", "snake", "index"},
	"number":     nil,
	"snake_keys": nil,
}

func parse(v any, at string) (node, error) {
	switch t := v.(type) {
	case string:
		p, err := parsePath(t)
		if err != nil {
			return nil, errAt(at, "%v", err)
		}
		return p, nil
	case nil, bool, int, int64, uint64, float64:
		return literalNode{value: v}, nil
	case []any:
		items := make([]node, len(t))
		for i, e := range t {
			n, err := parse(e, fmt.Sprintf("%s[%d]", at, i))
			if err != nil {
				return nil, err
			}
			items[i] = n
		}
		return listNode{items: items}, nil
	case map[string]any:
		return parseOperator(t, at)
	default:
		if m, ok := asStringMap(v); ok {
			return parseOperator(m, at)
		}
		return nil, errAt(at, "unsupported expression of type %T", v)
	}
}

func parseOperator(m map[string]any, at string) (node, error) {
	var op string
	for k := range m {
		if _, ok := operators[k]; !ok {
			continue
		}
		if op != "" {
			ops := []string{op, k}
			sort.Strings(ops)
			return nil, errAt(at, "more than one operator: %s", strings.Join(ops, ", "))
		}
		op = k
	}
	if op == "" {
		return nil, errAt(at, "no operator among keys %s", strings.Join(keys(m), ", "))
	}
	for k := range m {
		if k != op && !contains(operators[op], k) {
			return nil, errAt(at, "%s does not accept option %q", op, k)
		}
	}
	at = join(at, op)

	switch op {
	case "path":
		return parsePathOp(m, at)
	case "literal":
		return literalNode{value: m["literal"]}, nil
	case "object":
		return parseObject(m["object"], at)
	case "when":
		return parseWhen(m, at)
	case "quantity":
		return parseQuantity(m, at)
	case "group_by":
		return parseGroupBy(m, at)
	case "extract":
		return parseExtract(m, at)
	case "merge":
		return parseMerge(m["merge"], at)
	case "each":
		return parseEach(m, at)
	case "table":
		return parseTable(m, at)
	case "number":
		inner, err := parse(m["number"], at)
		if err != nil {
			return nil, err
		}
		return numberNode{value: inner}, nil
	default: // snake_keys
		inner, err := parse(m["snake_keys"], at)
		if err != nil {
			return nil, err
		}
		return snakeNode{value: inner}, nil
	}
}

func asStringMap(v any) (map[string]any, bool) {
	m, ok := v.(map[any]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(m))
	for k, e := range m {
		s, ok := k.(string)
		if !ok {
			return nil, false
		}
		out[s] = e
	}
	return out, true
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

func stringOption(m map[string]any, key, at string) (string, bool, error) {
	v, ok := m[key]
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", false, errAt(join(at, key), "expected string, got %T", v)
	}
	return s, true, nil
}

func boolOption(m map[string]any, key, at string, def bool) (bool, error) {
	v, ok := m[key]
	if !ok {
		return def, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, errAt(join(at, key), "expected bool, got %T", v)
	}
	return b, nil
}
