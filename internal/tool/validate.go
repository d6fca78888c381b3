// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zosgo/zosgo/internal/errors"
)

// MetadataValidateResultText describes the validate_result_text tool.
var MetadataValidateResultText = &mcp.Tool{
	Name: "validate_result_text",
	Description: "Validate result record interchange text against the schema of the analysis kind " +
		"named in its metadata. Returns whether the record is valid and, if not, the error and " +
		"the path of the offending field.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"text"},
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Record interchange text (JSON)",
			},
		},
	},
}

// InputValidateResultText is the input for the ValidateResultText tool.
type InputValidateResultText struct {
	Text string `json:"text"`
}

// OutputValidateResultText is the output for the ValidateResultText tool.
type OutputValidateResultText struct {
	Valid    bool   `json:"valid"`
	Analysis string `json:"analysis,omitempty"`
	Version  int    `json:"version,omitempty"`
	// Error and Path describe why an invalid record was rejected.
	Error string `json:"error,omitempty"`
	Path  string `json:"path,omitempty"`
}

// ValidateResultText decodes and validates record text. A record that fails
// validation is a successful call with Valid false.
func (t *Tools) ValidateResultText(ctx context.Context, _ *mcp.CallToolRequest, input InputValidateResultText) (*mcp.CallToolResult, OutputValidateResultText, error) {
	if input.Text == "" {
		return nil, OutputValidateResultText{}, fmt.Errorf("text is required")
	}

	rec, err := t.conv.Catalog().DecodeContext(ctx, []byte(input.Text))
	if err != nil {
		e, ok := errors.As(err)
		if !ok || e.Code != errors.ErrSchemaValidation {
			return nil, OutputValidateResultText{}, err
		}
		out := OutputValidateResultText{Error: e.Error()}
		if path, ok := e.Details["path"].(string); ok {
			out.Path = path
		}
		return nil, out, nil
	}
	return nil, OutputValidateResultText{
		Valid:    true,
		Analysis: rec.Metadata.Analysis,
		Version:  rec.Metadata.Version,
	}, nil
}
