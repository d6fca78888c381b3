// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
)

// SymbolTable maps host constant types to their integer codes and names,
// for example SampleSizes: {1: S_32x32, 2: S_64x64}.
type SymbolTable map[string]map[int64]string

// Lookup returns the name of a constant.
func (t SymbolTable) Lookup(constant string, code int64) (string, bool) {
	name, ok := t[constant][code]
	return name, ok
}

// Types returns the constant type names, sorted.
func (t SymbolTable) Types() []string {
	out := make([]string, 0, len(t))
	for k := range t {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Merge adds the entries of other, replacing existing codes.
func (t SymbolTable) Merge(other SymbolTable) {
	for typ, codes := range other {
		if t[typ] == nil {
			t[typ] = make(map[int64]string, len(codes))
		}
		for code, name := range codes {
			t[typ][code] = name
		}
	}
}

// ParseSymbols parses a YAML symbol table of constant types to code-name
// mappings.
func ParseSymbols(src []byte) (SymbolTable, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("parse symbol table: %w", err)
	}
	out := make(SymbolTable, len(raw))
	for typ, v := range raw {
		codes, err := codeMap(v)
		if err != nil {
			return nil, fmt.Errorf("symbol table %s: %w", typ, err)
		}
		out[typ] = make(map[int64]string, len(codes))
		for k, v := range codes {
			code, err := strconv.ParseInt(strings.TrimSpace(k), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("symbol table %s: code %q is not an integer", typ, k)
			}
			name, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("symbol table %s: name for %d is %T, not a string", typ, code, v)
			}
			out[typ][code] = name
		}
	}
	return out, nil
}

func codeMap(v any) (map[string]any, error) {
	switch t := v.(type) {
	case map[string]any:
		return t, nil
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = e
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a mapping of codes, got %T", v)
	}
}

// LoadSymbols reads a YAML symbol table file.
func LoadSymbols(path string) (SymbolTable, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbol table: %w", err)
	}
	return ParseSymbols(src)
}

// constantCode reports whether v holds an integer code, either as a number
// or as its decimal text.
func constantCode(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return int64(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			return 0, false
		}
		return int64(t), true
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}
