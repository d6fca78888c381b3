// SPDX-License-Identifier: Apache-2.0

// Package naming converts host member names into record keys.
package naming

import (
	"regexp"
	"strings"
)

var (
	parenthetical = regexp.MustCompile(`\(.*?\)`)
	separators    = regexp.MustCompile(`[-\s]+`)
	acronymWord   = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	lowerUpper    = regexp.MustCompile(`([a-z\d])([A-Z])`)
	acronymDigit  = regexp.MustCompile(`([A-Z]{2})(\d)`)
	repeated      = regexp.MustCompile(`_+`)
)

// ConvertKey converts a CamelCase or decorated host name into lower_snake
// form. "MaximumNumberOfTerms" becomes "maximum_number_of_terms" and
// "X-Phase" becomes "x_phase". Applying it to its own output is a no-op.
//
// Acronyms split poorly ("OPDMode" becomes "opd_mode" but "RMSvsField"
// becomes "rm_svs_field"); mapping rules override such keys explicitly.
func ConvertKey(key string) string {
	s := parenthetical.ReplaceAllString(key, "")
	s = separators.ReplaceAllString(s, "_")
	s = acronymWord.ReplaceAllString(s, "${1}_${2}")
	s = lowerUpper.ReplaceAllString(s, "${1}_${2}")
	s = acronymDigit.ReplaceAllString(s, "${1}_${2}")
	s = strings.ToLower(s)
	s = repeated.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// ConvertKeys returns a copy of v with every mapping key converted,
// recursing into nested mappings and lists.
func ConvertKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[ConvertKey(k)] = ConvertKeys(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = ConvertKeys(e)
		}
		return out
	default:
		return v
	}
}
