// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zosgo/zosgo/internal/payload"
)

// MetadataConvertAnalysisResult describes the convert_analysis_result tool.
var MetadataConvertAnalysisResult = &mcp.Tool{
	Name: "convert_analysis_result",
	Description: "Convert a raw optical analysis payload into a validated result record. " +
		"The payload is either a JSON/YAML document with analysis, header, settings, fields, " +
		"tables and messages, or a sectioned text export. The record is returned as " +
		"interchange text (JSON) whose metadata names the analysis kind and its schemas. " +
		"Settings codes are only resolved to constant names when the server enables it.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"content"},
		"properties": map[string]interface{}{
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Raw payload content",
			},
			"format": map[string]interface{}{
				"type":        "string",
				"description": "Format hint. One of: json, yaml, text. If omitted, auto-detection is used.",
				"enum":        []string{"json", "yaml", "text"},
			},
			"source_id": map[string]interface{}{
				"type":        "string",
				"description": "Optional identifier for the payload (file path, lens file) used in error context.",
			},
			"archive": map[string]interface{}{
				"type":        "boolean",
				"description": "Store the record in the result archive and return its id.",
			},
		},
	},
}

// InputConvertAnalysisResult is the input for the ConvertAnalysisResult tool.
type InputConvertAnalysisResult struct {
	Content  string `json:"content"`
	Format   string `json:"format"`
	SourceID string `json:"source_id"`
	Archive  bool   `json:"archive"`
}

// OutputConvertAnalysisResult is the output for the ConvertAnalysisResult tool.
type OutputConvertAnalysisResult struct {
	// Analysis is the current kind name of the converted analysis.
	Analysis string `json:"analysis"`
	// Text is the record's interchange text.
	Text string `json:"text"`
	// ParserUsed is the name of the payload parser that was selected.
	ParserUsed string `json:"parser_used"`
	// Warnings lists settings whose constant lookup failed.
	Warnings  []string `json:"warnings,omitempty"`
	ArchiveID string   `json:"archive_id,omitempty"`
}

// ConvertAnalysisResult parses a raw payload and converts it into a record.
func (t *Tools) ConvertAnalysisResult(ctx context.Context, _ *mcp.CallToolRequest, input InputConvertAnalysisResult) (*mcp.CallToolResult, OutputConvertAnalysisResult, error) {
	if input.Content == "" {
		return nil, OutputConvertAnalysisResult{}, fmt.Errorf("content is required")
	}
	if input.Archive && t.archive == nil {
		return nil, OutputConvertAnalysisResult{}, fmt.Errorf("archive is not enabled on this server")
	}

	sourceID := input.SourceID
	if sourceID == "" {
		sourceID = "unknown"
	}

	res, err := t.pipeline.RunWithMeta(ctx, payload.Source{
		Content: []byte(input.Content),
		Format:  input.Format,
		ID:      sourceID,
	})
	if err != nil {
		return nil, OutputConvertAnalysisResult{}, err
	}

	rec, warnings, err := t.conv.Record(ctx, res.Payload)
	if err != nil {
		return nil, OutputConvertAnalysisResult{}, err
	}
	text, err := rec.Encode()
	if err != nil {
		return nil, OutputConvertAnalysisResult{}, err
	}

	out := OutputConvertAnalysisResult{
		Analysis:   rec.Metadata.Analysis,
		Text:       string(text),
		ParserUsed: res.ParserUsed,
	}
	for _, w := range warnings {
		out.Warnings = append(out.Warnings, w.String())
	}
	if input.Archive {
		e, err := t.archive.Put(ctx, rec, res.Payload.Source)
		if err != nil {
			return nil, OutputConvertAnalysisResult{}, err
		}
		out.ArchiveID = e.ID
		t.logger.InfoContext(ctx, "record archived", "id", e.ID, "analysis", e.Analysis)
	}
	return nil, out, nil
}
