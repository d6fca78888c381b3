// SPDX-License-Identifier: Apache-2.0

package expr

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// pathNode reads a value by dotted path. Rooted paths ("$", "$.header")
// start at the document, "@" is the current item, and any other path is
// relative to the current item. A missing value evaluates to the default,
// or to Omit when there is none.
type pathNode struct {
	rooted   bool
	current  bool
	segments []string
	def      any
	hasDef   bool
}

func parsePath(p string) (pathNode, error) {
	p = strings.TrimSpace(p)
	var n pathNode
	switch {
	case p == "":
		return n, fmt.Errorf("empty path")
	case p == "$":
		n.rooted = true
		return n, nil
	case p == "@":
		n.current = true
		return n, nil
	case strings.HasPrefix(p, "$."):
		n.rooted = true
		p = p[2:]
	case strings.HasPrefix(p, "@."):
		n.current = true
		p = p[2:]
	}
	for _, seg := range strings.Split(p, ".") {
		if seg == "" {
			return n, fmt.Errorf("path %q has an empty segment", p)
		}
		n.segments = append(n.segments, seg)
	}
	return n, nil
}

func parsePathOp(m map[string]any, at string) (node, error) {
	s, ok := m["path"].(string)
	if !ok {
		return nil, errAt(at, "expected path string, got %T", m["path"])
	}
	n, err := parsePath(s)
	if err != nil {
		return nil, errAt(at, "%v", err)
	}
	n.def, n.hasDef = m["default"]
	return n, nil
}

func (n pathNode) eval(s scope) (any, error) {
	cur := s.it
	if n.rooted {
		cur = s.doc
	}
	for _, seg := range n.segments {
		next, ok := step(cur, seg)
		if !ok {
			if n.hasDef {
				return n.def, nil
			}
			return Omit, nil
		}
		cur = next
	}
	return cur, nil
}

// step descends one path segment. Lists are indexed by position, or by the
// "name" field of their mapping elements.
func step(cur any, seg string) (any, bool) {
	if m, ok := cur.(map[string]any); ok {
		v, ok := m[seg]
		return v, ok
	}
	list, ok := toList(cur)
	if !ok {
		return nil, false
	}
	if i, err := strconv.Atoi(seg); err == nil {
		if i < 0 {
			i += len(list)
		}
		if i < 0 || i >= len(list) {
			return nil, false
		}
		return list[i], true
	}
	for _, e := range list {
		if m, ok := e.(map[string]any); ok && m["name"] == seg {
			return m, true
		}
	}
	return nil, false
}

func toList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case nil, string, map[string]any:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// keyString renders a group key. Integral floats print without a fraction so
// a term number read as 4.0 groups under "4".
func keyString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) && !math.IsInf(t, 0) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'g', -1, 64)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// toNumber coerces text and numeric values to int64 or float64.
func toNumber(v any) (any, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint64:
		if t > math.MaxInt64 {
			return float64(t), nil
		}
		return int64(t), nil
	case float32:
		return float64(t), nil
	case float64:
		return t, nil
	case json.Number:
		return toNumber(t.String())
	case string:
		s := strings.TrimSpace(t)
		switch strings.ToLower(s) {
		case "nan":
			return math.NaN(), nil
		case "inf", "+inf", "infinity":
			return math.Inf(1), nil
		case "-inf", "-infinity":
			return math.Inf(-1), nil
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", t)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("not a number: %T", v)
	}
}
