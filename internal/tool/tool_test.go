// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zosgo/zosgo/internal/convert"
	"github.com/zosgo/zosgo/internal/convert/rules"
	"github.com/zosgo/zosgo/internal/result"
	"github.com/zosgo/zosgo/internal/store"
)

const mtfExport = "# FftMtf\n" +
	"Polychromatic Diffraction MTF\n" +
	"Warning: ray aiming is off.\n" +
	"\n" +
	"## Settings\n" +
	"SampleSize: 2\n" +
	"MaximumFrequency: 0.0\n" +
	"Field: All\n" +
	"Wavelength: All\n" +
	"MtfType: 0\n" +
	"Surface: Image\n" +
	"ShowDiffractionLimit: false\n" +
	"UsePolarization: false\n" +
	"\n" +
	"## Table: Mtf\n" +
	"Spatial frequency (cycles/mm)\tField 1 Tangential\tField 1 Sagittal\n" +
	"0\t1.0\t1.0\n" +
	"10\t0.9121\t0.9087\n"

const wavefrontJSON = `{
  "analysis": "WavefrontMap",
  "header": [
    "Wavefront Function",
    "0.5876 µm at 0.0000 (deg).",
    "Peak to valley = 0.4104 waves, RMS = 0.0926 waves."
  ],
  "settings": {
    "SampleSize": 1, "Field": 1, "Wavelength": 1, "Surface": "Image",
    "Rotation": 0, "Scale": 1.0, "ReferenceToPrimary": false,
    "UseExitPupil": true, "RemoveTilt": false
  },
  "tables": [{"name": "Wavefront", "columns": [], "rows": [[0.1, 0.0], [0.2, -0.2]]}],
  "messages": []
}`

func newTools(t *testing.T, opts ...Option) *Tools {
	t.Helper()
	set, err := rules.Load()
	require.NoError(t, err)
	symbols, err := rules.Symbols()
	require.NoError(t, err)
	conv := convert.New(set, result.DefaultCatalog(), append(rules.Options(), convert.WithConstants(symbols))...)
	return New(conv, opts...)
}

// ---------------------------------------------------------------------------
// convert_analysis_result
// ---------------------------------------------------------------------------

func TestConvertAnalysisResult(t *testing.T) {
	ctx := context.Background()
	req := &mcp.CallToolRequest{}
	tools := newTools(t)

	tests := []struct {
		name           string
		input          InputConvertAnalysisResult
		wantErr        bool
		errContains    string
		validateOutput func(t *testing.T, output OutputConvertAnalysisResult)
	}{
		{
			name:        "empty content returns error",
			input:       InputConvertAnalysisResult{Content: ""},
			wantErr:     true,
			errContains: "content is required",
		},
		{
			name: "text export converts to fft_mtf record",
			input: InputConvertAnalysisResult{
				Content:  mtfExport,
				Format:   "text",
				SourceID: "doublet_mtf.txt",
			},
			validateOutput: func(t *testing.T, output OutputConvertAnalysisResult) {
				assert.Equal(t, "fft_mtf", output.Analysis)
				assert.Equal(t, "text", output.ParserUsed)
				assert.Empty(t, output.Warnings)
				assert.Empty(t, output.ArchiveID)

				rec, err := result.DefaultCatalog().Decode([]byte(output.Text))
				require.NoError(t, err)
				assert.Equal(t, "64x64", rec.Settings["sampling"])
				assert.Equal(t, []string{"Warning: ray aiming is off."}, rec.Messages)
			},
		},
		{
			name: "json payload converts to wavefront_map record",
			input: InputConvertAnalysisResult{
				Content:  wavefrontJSON,
				SourceID: "wavefront.json",
			},
			validateOutput: func(t *testing.T, output OutputConvertAnalysisResult) {
				assert.Equal(t, "wavefront_map", output.Analysis)
				assert.Equal(t, "structured", output.ParserUsed)

				var doc map[string]any
				require.NoError(t, json.Unmarshal([]byte(output.Text), &doc))
				md := doc["metadata"].(map[string]any)
				assert.Equal(t, "wavefront_map", md["analysis"])
				assert.Equal(t, "structured", md["data"].(map[string]any)["shape"])
			},
		},
		{
			name: "payload without a rule returns error",
			input: InputConvertAnalysisResult{
				Content: `{"analysis": "SpotDiagram", "header": [], "settings": {}, "tables": [], "messages": []}`,
				Format:  "json",
			},
			wantErr:     true,
			errContains: "SpotDiagram",
		},
		{
			name: "archive without a store returns error",
			input: InputConvertAnalysisResult{
				Content: mtfExport,
				Archive: true,
			},
			wantErr:     true,
			errContains: "archive is not enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, output, err := tools.ConvertAnalysisResult(ctx, req, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			if tt.validateOutput != nil {
				tt.validateOutput(t, output)
			}
		})
	}
}

func TestConvertAnalysisResult_Archive(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "archive.db"), result.DefaultCatalog())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	tools := newTools(t, WithArchive(s))
	_, output, err := tools.ConvertAnalysisResult(ctx, &mcp.CallToolRequest{}, InputConvertAnalysisResult{
		Content:  mtfExport,
		SourceID: "doublet_mtf.txt",
		Archive:  true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, output.ArchiveID)

	entry, rec, err := s.Get(ctx, output.ArchiveID)
	require.NoError(t, err)
	assert.Equal(t, "fft_mtf", entry.Analysis)
	assert.Equal(t, "doublet_mtf.txt", entry.Source)

	text, err := rec.Encode()
	require.NoError(t, err)
	assert.Equal(t, output.Text, string(text))
}

// ---------------------------------------------------------------------------
// validate_result_text
// ---------------------------------------------------------------------------

func TestValidateResultText(t *testing.T) {
	ctx := context.Background()
	req := &mcp.CallToolRequest{}
	tools := newTools(t)

	_, converted, err := tools.ConvertAnalysisResult(ctx, req, InputConvertAnalysisResult{Content: mtfExport})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(converted.Text), &doc))
	doc["settings"].(map[string]any)["type"] = "Sideways"
	badSettings, err := json.Marshal(doc)
	require.NoError(t, err)

	tests := []struct {
		name           string
		input          InputValidateResultText
		wantErr        bool
		errContains    string
		validateOutput func(t *testing.T, output OutputValidateResultText)
	}{
		{
			name:        "empty text returns error",
			input:       InputValidateResultText{},
			wantErr:     true,
			errContains: "text is required",
		},
		{
			name:  "converted record is valid",
			input: InputValidateResultText{Text: converted.Text},
			validateOutput: func(t *testing.T, output OutputValidateResultText) {
				assert.True(t, output.Valid)
				assert.Equal(t, "fft_mtf", output.Analysis)
				assert.Equal(t, 1, output.Version)
				assert.Empty(t, output.Error)
			},
		},
		{
			name:  "bad settings value reports its path",
			input: InputValidateResultText{Text: string(badSettings)},
			validateOutput: func(t *testing.T, output OutputValidateResultText) {
				assert.False(t, output.Valid)
				assert.Equal(t, "settings.type", output.Path)
				assert.NotEmpty(t, output.Error)
			},
		},
		{
			name:  "malformed text is invalid",
			input: InputValidateResultText{Text: `{"data": [`},
			validateOutput: func(t *testing.T, output OutputValidateResultText) {
				assert.False(t, output.Valid)
				assert.Equal(t, ".", output.Path)
				assert.Contains(t, output.Error, "malformed text")
			},
		},
		{
			name:  "unknown kind is invalid",
			input: InputValidateResultText{Text: `{"data": {}, "settings": {}, "metadata": {"analysis": "spot_diagram", "version": 1, "data": {"shape": "structured", "schema": "x", "module": "m"}, "settings": {"schema": "y", "module": "m"}}}`},
			validateOutput: func(t *testing.T, output OutputValidateResultText) {
				assert.False(t, output.Valid)
				assert.Equal(t, "metadata.analysis", output.Path)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, output, err := tools.ValidateResultText(ctx, req, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			if tt.validateOutput != nil {
				tt.validateOutput(t, output)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// list_analysis_kinds
// ---------------------------------------------------------------------------

func TestListAnalysisKinds(t *testing.T) {
	tools := newTools(t)

	_, output, err := tools.ListAnalysisKinds(context.Background(), &mcp.CallToolRequest{}, InputListAnalysisKinds{})
	require.NoError(t, err)

	names := make([]string, len(output.Kinds))
	for i, k := range output.Kinds {
		names[i] = k.Name
		assert.True(t, k.HasRule, "%s should have a built-in rule", k.Name)
		assert.NotEmpty(t, k.DataSchema)
		assert.NotEmpty(t, k.SettingsSchema)
	}
	assert.Equal(t, []string{
		"fft_mtf",
		"field_curvature_and_distortion",
		"wavefront_map",
		"zernike_standard_coefficients",
	}, names)

	assert.Equal(t, "FftMtf", output.Kinds[0].LegacyName)
	assert.Equal(t, "tabular", output.Kinds[0].Shape)
}

func TestNewServer(t *testing.T) {
	server := newTools(t).NewServer("test")
	require.NotNil(t, server)
}
