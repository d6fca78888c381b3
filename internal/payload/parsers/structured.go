// SPDX-License-Identifier: Apache-2.0

package parsers

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/zosgo/zosgo/internal/convert"
	"github.com/zosgo/zosgo/internal/payload"
)

// StructuredParser parses JSON or YAML documents holding the payload fields
// analysis, source, header, settings, fields, tables and messages.
type StructuredParser struct{}

func NewStructuredParser() *StructuredParser {
	return &StructuredParser{}
}

func (p *StructuredParser) Name() string {
	return "structured"
}

func (p *StructuredParser) CanHandle(source payload.Source) bool {
	switch strings.ToLower(source.Format) {
	case "yaml", "yml", "json":
		return true
	case "":
	default:
		return false
	}
	content := strings.TrimSpace(string(source.Content))
	// JSON object
	if strings.HasPrefix(content, "{") {
		return true
	}
	// Plain YAML: key: value at the start
	if len(content) > 0 && strings.Contains(strings.SplitN(content, "\n", 2)[0], ":") {
		// Avoid stealing text exports, whose title starts with '#'
		return !strings.HasPrefix(content, "#")
	}
	return false
}

func (p *StructuredParser) Parse(_ context.Context, source payload.Source) (*convert.Payload, error) {
	var pl convert.Payload
	if err := yaml.Unmarshal(source.Content, &pl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML/JSON: %w", err)
	}
	for i, t := range pl.Tables {
		for j, r := range t.Rows {
			if len(r) != len(t.Columns) && len(t.Columns) > 0 {
				return nil, fmt.Errorf("table %d (%s) row %d has %d cells for %d columns", i, t.Name, j, len(r), len(t.Columns))
			}
		}
	}
	return &pl, nil
}
