// SPDX-License-Identifier: Apache-2.0

package analysis_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zosgo/zosgo/internal/analysis"
	"github.com/zosgo/zosgo/internal/convert"
	"github.com/zosgo/zosgo/internal/convert/rules"
	"github.com/zosgo/zosgo/internal/errors"
	"github.com/zosgo/zosgo/internal/interop"
	"github.com/zosgo/zosgo/internal/result"
)

const (
	fftSettings  = "ZOSAPI.Analysis.Settings.Mtf.IAS_FftMtf"
	surfaceType  = "ZOSAPI.Analysis.Settings.IAS_Surface"
	surfaceIface = "ZOSAPI.Analysis.Settings.IAS_SurfaceBase"
)

func hostTypes() interop.MapTypes {
	return interop.MapTypes{}.Add(analysis.Capabilities...).Add(
		interop.Capability{
			Name: fftSettings,
			Properties: []string{
				"SampleSize", "MaximumFrequency", "Field", "Wavelength", "MtfType",
				"Surface", "ShowDiffractionLimit", "UsePolarization",
			},
		},
		interop.Capability{Name: surfaceIface, Interface: true},
		interop.Capability{Name: surfaceType, Properties: []string{"SurfaceNumber", "UseImage"}},
	)
}

func newSession(t *testing.T) *interop.Session {
	t.Helper()
	reg := interop.DefaultRegistry()
	reg.Register(surfaceIface)
	s := interop.NewSession(interop.NewResolver(hostTypes(), reg))
	t.Cleanup(s.Close)
	return s
}

func settingsObject(surface any) *interop.MapObject {
	return interop.NewMapObject(fftSettings, map[string]any{
		"SampleSize":           2,
		"MaximumFrequency":     0.0,
		"Field":                "All",
		"Wavelength":           "All",
		"MtfType":              0,
		"Surface":              surface,
		"ShowDiffractionLimit": false,
		"UsePolarization":      false,
	})
}

func resultsObject() *interop.MapObject {
	header := interop.NewMapObject("HeaderData", map[string]any{
		"Lines": []string{"Polychromatic Diffraction MTF", "Data for 0.4861 to 0.6563 µm."},
	})
	meta := interop.NewMapObject("MetaData", map[string]any{
		"FeatureDescription": "FFT MTF",
		"LensFile":           `C:\lenses\doublet.zmx`,
	})
	message := interop.NewMapObject("Message", map[string]any{"Text": "Ray aiming is off."})
	series := interop.NewMapObject("DataSeries", map[string]any{
		"Description":  "Mtf",
		"XLabel":       "Spatial frequency (cycles/mm)",
		"SeriesLabels": []string{"Field 1 Tangential", "Field 1 Sagittal"},
		"XData":        []float64{0, 10, 20},
		"YData":        [][]float64{{1, 1}, {0.91, 0.9}, {0.73, 0.72}},
	})

	return interop.NewMapObject("Results", map[string]any{
		"HeaderData":         interop.Ref{Object: header, Declared: analysis.HeaderInterface},
		"MetaData":           interop.Ref{Object: meta, Declared: analysis.MetaDataInterface},
		"Messages":           []any{interop.Ref{Object: message, Declared: analysis.MessageInterface}, "Plain note."},
		"NumberOfDataSeries": 1,
		"NumberOfDataGrids":  int64(0),
	}).WithMethod("GetDataSeries", func(args ...any) (any, error) {
		return interop.Ref{Object: series, Declared: analysis.SeriesInterface}, nil
	})
}

func analysisObject(settings, results *interop.MapObject) *interop.MapObject {
	return interop.NewMapObject("Analysis", map[string]any{"AnalysisType": "FftMtf"}).
		WithMethod("GetSettings", func(...any) (any, error) {
			return interop.Ref{Object: settings, Declared: analysis.SettingsInterface}, nil
		}).
		WithMethod("GetResults", func(...any) (any, error) {
			return interop.Ref{Object: results, Declared: analysis.ResultsInterface}, nil
		})
}

// ---------------------------------------------------------------------------
// ReadPayload
// ---------------------------------------------------------------------------

func TestReadPayload(t *testing.T) {
	s := newSession(t)
	h, err := s.Attach(analysisObject(settingsObject("Image"), resultsObject()), analysis.AnalysisInterface)
	require.NoError(t, err)

	p, err := analysis.ReadPayload(h)
	require.NoError(t, err)

	assert.Equal(t, "FftMtf", p.Analysis)
	assert.Equal(t, `C:\lenses\doublet.zmx`, p.Source)
	assert.Equal(t, []string{"Polychromatic Diffraction MTF", "Data for 0.4861 to 0.6563 µm."}, p.Header)
	assert.Equal(t, []string{"Ray aiming is off.", "Plain note."}, p.Messages)

	// Settings are read through the widened concrete view.
	assert.Len(t, p.Settings, 8)
	assert.Equal(t, 2, p.Settings["SampleSize"])

	require.Len(t, p.Tables, 1)
	table := p.Tables[0]
	assert.Equal(t, "Mtf", table.Name)
	assert.Equal(t, []string{"Spatial frequency (cycles/mm)", "Field 1 Tangential", "Field 1 Sagittal"}, table.Columns)
	assert.Equal(t, []any{10.0, 0.91, 0.9}, table.Rows[1])
}

func TestReadPayload_SubSettings(t *testing.T) {
	s := newSession(t)
	surface := interop.NewMapObject(surfaceType, map[string]any{"SurfaceNumber": 7, "UseImage": false})
	settings := settingsObject(interop.Ref{Object: surface, Declared: surfaceIface})

	h, err := s.Attach(analysisObject(settings, resultsObject()), analysis.AnalysisInterface)
	require.NoError(t, err)

	p, err := analysis.ReadPayload(h)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"SurfaceNumber": 7, "UseImage": false}, p.Settings["Surface"])
}

func TestReadPayload_Grid(t *testing.T) {
	grid := interop.NewMapObject("DataGrid", map[string]any{
		"Description":  "Coefficients",
		"ColumnLabels": []string{"Term", "Value", "Formula"},
		"RowLabels":    []any{"Z1", "Z2"},
		"Values":       [][]any{{1, 0.5, "1"}, {2, 0.1, "4^(1/2) (p) COS (A)"}},
	})
	results := interop.NewMapObject("Results", map[string]any{
		"HeaderData":         nil,
		"MetaData":           nil,
		"Messages":           nil,
		"NumberOfDataSeries": nil,
		"NumberOfDataGrids":  1,
	}).
		WithMethod("GetDataGrid", func(...any) (any, error) {
			return interop.Ref{Object: grid, Declared: analysis.GridInterface}, nil
		})

	s := newSession(t)
	h, err := s.Attach(analysisObject(settingsObject("Image"), results), analysis.AnalysisInterface)
	require.NoError(t, err)

	p, err := analysis.ReadPayload(h)
	require.NoError(t, err)
	assert.Empty(t, p.Header)
	require.Len(t, p.Tables, 1)

	row, ok := p.Tables[0].RowByLabel("Z2")
	require.True(t, ok)
	assert.Equal(t, []any{2, 0.1, "4^(1/2) (p) COS (A)"}, row)
}

func TestReadPayload_UnresolvableSettings(t *testing.T) {
	s := newSession(t)
	settings := interop.NewMapObject("ZOSAPI.Analysis.Settings.IAS_Unknown", nil)

	h, err := s.Attach(analysisObject(settings, resultsObject()), analysis.AnalysisInterface)
	require.NoError(t, err)

	_, err = analysis.ReadPayload(h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrResolution))
}

func TestReadPayload_ClosedSession(t *testing.T) {
	s := newSession(t)
	h, err := s.Attach(analysisObject(settingsObject("Image"), resultsObject()), analysis.AnalysisInterface)
	require.NoError(t, err)
	s.Close()

	_, err = analysis.ReadPayload(h)
	assert.True(t, errors.Is(err, errors.ErrSessionClosed))
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRun(t *testing.T) {
	set, err := rules.Load()
	require.NoError(t, err)
	symbols, err := rules.Symbols()
	require.NoError(t, err)
	conv := convert.New(set, result.DefaultCatalog(), append(rules.Options(), convert.WithConstants(symbols))...)

	s := newSession(t)
	h, err := s.Attach(analysisObject(settingsObject("Image"), resultsObject()), analysis.AnalysisInterface)
	require.NoError(t, err)

	rec, warnings, err := analysis.Run(context.Background(), h, conv)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "fft_mtf", rec.Metadata.Analysis)
	assert.Equal(t, "64x64", rec.Settings["sampling"])
	assert.Equal(t, "Modulation", rec.Settings["type"])
	assert.Equal(t, []string{"Ray aiming is off.", "Plain note."}, rec.Messages)

	table, ok := rec.Table()
	require.True(t, ok)
	assert.Equal(t, 3, table.Len())
}
