// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zosgo/zosgo/internal/errors"
	"github.com/zosgo/zosgo/internal/result"
)

const mtfExport = "# FftMtf\n" +
	"Polychromatic Diffraction MTF\n" +
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
	"10\t0.9121\t0.9087\n" +
	"20\t0.7311\t0.7202\n"

// setup points the archive at a temporary directory and writes the MTF
// export there.
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ZOSGO_STORE_PATH", filepath.Join(dir, "archive.db"))
	t.Setenv("ZOSGO_LOG_LEVEL", "error")

	path := filepath.Join(dir, "doublet_mtf.txt")
	require.NoError(t, os.WriteFile(path, []byte(mtfExport), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// ---------------------------------------------------------------------------
// convert / validate / show
// ---------------------------------------------------------------------------

func TestConvert(t *testing.T) {
	payload := setup(t)

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		errContains string
		validate    func(t *testing.T, stdout string)
	}{
		{
			name: "with constants",
			args: []string{"convert", "--constants", payload},
			validate: func(t *testing.T, stdout string) {
				rec, err := result.DefaultCatalog().Decode([]byte(strings.TrimSpace(stdout)))
				require.NoError(t, err)
				assert.Equal(t, "fft_mtf", rec.Metadata.Analysis)
				assert.Equal(t, "64x64", rec.Settings["sampling"])
			},
		},
		{
			name:        "without constants the raw code fails validation",
			args:        []string{"convert", payload},
			wantErr:     true,
			errContains: "sampling",
		},
		{
			name:        "missing file",
			args:        []string{"convert", filepath.Join(t.TempDir(), "missing.txt")},
			wantErr:     true,
			errContains: "missing.txt",
		},
		{
			name:        "format hint that no parser accepts",
			args:        []string{"convert", "--format", "csv", payload},
			wantErr:     true,
			errContains: "csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := run(t, tt.args...)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}
			require.NoError(t, err)
			if tt.validate != nil {
				tt.validate(t, stdout)
			}
		})
	}
}

func TestConvert_OutFileThenValidateAndShow(t *testing.T) {
	payload := setup(t)
	out := filepath.Join(t.TempDir(), "records", "mtf.json")

	stdout, _, err := run(t, "convert", "--constants", "-o", out, payload)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	stdout, _, err = run(t, "validate", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "valid fft_mtf record (version 1)")

	stdout, _, err = run(t, "show", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "fft_mtf")
	assert.Contains(t, stdout, "spatial_frequency")
	assert.Contains(t, stdout, "sampling: 64x64")
	assert.Contains(t, stdout, "0.9121")

	stdout, _, err = run(t, "show", "--rows", "1", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "1 of 3 rows")
}

func TestConvert_TextEndsWithSingleNewline(t *testing.T) {
	payload := setup(t)
	out := filepath.Join(t.TempDir(), "mtf.json")

	stdout, _, err := run(t, "convert", "--constants", payload)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(stdout, "}\n"))
	assert.False(t, strings.HasSuffix(stdout, "\n\n"))

	rec, err := result.DefaultCatalog().Decode([]byte(stdout))
	require.NoError(t, err)
	text, err := rec.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(text), stdout)

	_, _, err = run(t, "convert", "--constants", "-o", out, payload)
	require.NoError(t, err)
	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, stdout, string(written))
}

func TestValidate_Invalid(t *testing.T) {
	setup(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data": {}, "settings": {}}`), 0o644))

	_, _, err := run(t, "validate", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSchemaValidation))
	assert.Contains(t, err.Error(), "metadata")
}

// ---------------------------------------------------------------------------
// archive
// ---------------------------------------------------------------------------

func TestArchive(t *testing.T) {
	payload := setup(t)

	stdout, stderr, err := run(t, "convert", "--constants", "--archive", payload)
	require.NoError(t, err)
	var id string
	for _, line := range strings.Split(stderr, "\n") {
		if rest, ok := strings.CutPrefix(line, "archived "); ok {
			id = rest
		}
	}
	require.NotEmpty(t, id, stderr)

	listed, _, err := run(t, "archive", "list", "--analysis", "fft_mtf")
	require.NoError(t, err)
	assert.Contains(t, listed, id)
	assert.Contains(t, listed, payload)

	listed, _, err = run(t, "archive", "list", "--analysis", "wavefront_map")
	require.NoError(t, err)
	assert.NotContains(t, listed, id)

	got, _, err := run(t, "archive", "get", id)
	require.NoError(t, err)
	assert.Equal(t, stdout, got)

	_, _, err = run(t, "archive", "delete", id)
	require.NoError(t, err)

	_, _, err = run(t, "archive", "get", id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

// ---------------------------------------------------------------------------
// kinds / interfaces / version
// ---------------------------------------------------------------------------

func TestKinds(t *testing.T) {
	setup(t)
	stdout, _, err := run(t, "kinds")
	require.NoError(t, err)
	for _, name := range []string{"fft_mtf", "field_curvature_and_distortion", "wavefront_map", "zernike_standard_coefficients"} {
		assert.Contains(t, stdout, name)
	}
	assert.Contains(t, stdout, "FftMtf")
}

func TestInterfaces_FromEnv(t *testing.T) {
	setup(t)
	t.Setenv("ZOSGO_INTEROP_INTERFACES", "ZOSAPI.Analysis.Settings.Mtf.IAS_FftMtf,ZOSAPI.Custom.IFoo")

	stdout, _, err := run(t, "interfaces")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ZOSAPI.Analysis.Settings.IAS_\n")
	assert.Contains(t, stdout, "ZOSAPI.Analysis.Settings.Mtf.IAS_FftMtf\n")
	assert.Contains(t, stdout, "ZOSAPI.Custom.IFoo\n")
}

func TestVersion(t *testing.T) {
	setup(t)
	stdout, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "zosgo version dev\n", stdout)
}

func TestInvalidLogLevel(t *testing.T) {
	setup(t)
	_, _, err := run(t, "--log-level", "loud", "version")
	require.Error(t, err)
}
