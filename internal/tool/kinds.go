// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MetadataListAnalysisKinds describes the list_analysis_kinds tool.
var MetadataListAnalysisKinds = &mcp.Tool{
	Name: "list_analysis_kinds",
	Description: "List the analysis kinds records can be built for, with their schema names, " +
		"data shape and whether a mapping rule converts raw payloads of that kind.",
	InputSchema: map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	},
}

// InputListAnalysisKinds is the input for the ListAnalysisKinds tool.
type InputListAnalysisKinds struct{}

// AnalysisKind describes one kind.
type AnalysisKind struct {
	Name           string `json:"name"`
	LegacyName     string `json:"legacy_name,omitempty"`
	Version        int    `json:"version"`
	Shape          string `json:"shape"`
	DataSchema     string `json:"data_schema"`
	SettingsSchema string `json:"settings_schema"`
	Module         string `json:"module"`
	HasRule        bool   `json:"has_rule"`
}

// OutputListAnalysisKinds is the output for the ListAnalysisKinds tool.
type OutputListAnalysisKinds struct {
	Kinds []AnalysisKind `json:"kinds"`
}

// Kinds describes every catalog kind, sorted by name.
func (t *Tools) Kinds() []AnalysisKind {
	specs := t.conv.Catalog().Kinds()
	out := make([]AnalysisKind, 0, len(specs))
	for _, k := range specs {
		ak := AnalysisKind{
			Name:           k.Name,
			Version:        k.Version,
			Shape:          string(k.Shape),
			DataSchema:     k.DataSchema,
			SettingsSchema: k.SettingsSchema,
			Module:         k.Module,
		}
		if r, ok := t.conv.Rules().Lookup(k.Name); ok {
			ak.HasRule = true
			ak.LegacyName = r.LegacyName()
		}
		out = append(out, ak)
	}
	return out
}

// ListAnalysisKinds lists the catalog kinds.
func (t *Tools) ListAnalysisKinds(_ context.Context, _ *mcp.CallToolRequest, _ InputListAnalysisKinds) (*mcp.CallToolResult, OutputListAnalysisKinds, error) {
	return nil, OutputListAnalysisKinds{Kinds: t.Kinds()}, nil
}
