// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Trace.Enabled)
	assert.False(t, cfg.Convert.Constants)
	assert.Empty(t, cfg.Rules.Dirs)
	assert.Empty(t, cfg.Interop.Interfaces)
	assert.Equal(t, DefaultStorePath(), cfg.Store.Path)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zosgo.yaml")
	src := `
log:
  level: debug
  format: json
rules:
  dirs: [/etc/zosgo/rules, ./rules]
convert:
  constants: true
  constants_file: /etc/zosgo/constants.yaml
store:
  path: /var/lib/zosgo/archive.db
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"/etc/zosgo/rules", "./rules"}, cfg.Rules.Dirs)
	assert.True(t, cfg.Convert.Constants)
	assert.Equal(t, "/etc/zosgo/constants.yaml", cfg.Convert.ConstantsFile)
	assert.Equal(t, "/var/lib/zosgo/archive.db", cfg.Store.Path)
}

func TestLoadEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zosgo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	t.Setenv("ZOSGO_LOG_LEVEL", "warn")
	t.Setenv("ZOSGO_CONVERT_CONSTANTS_FILE", "/tmp/constants.yaml")
	t.Setenv("ZOSGO_INTEROP_INTERFACES", "ZOSAPI.Tools.IOpticalSystemTools, ZOSAPI.Editors.IEditor")
	t.Setenv("ZOSGO_TRACE_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level, "environment wins over file")
	assert.Equal(t, "/tmp/constants.yaml", cfg.Convert.ConstantsFile)
	assert.Equal(t, []string{"ZOSAPI.Tools.IOpticalSystemTools", "ZOSAPI.Editors.IEditor"}, cfg.Interop.Interfaces)
	assert.True(t, cfg.Trace.Enabled)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "level", env: map[string]string{"ZOSGO_LOG_LEVEL": "loud"}, want: "log.level"},
		{name: "format", env: map[string]string{"ZOSGO_LOG_FORMAT": "xml"}, want: "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	k, v := envKey("ZOSGO_RULES_DIRS", "a, ,b")
	assert.Equal(t, "rules.dirs", k)
	assert.Equal(t, []string{"a", "b"}, v)

	k, v = envKey("ZOSGO_STORE_PATH", "/x_y")
	assert.Equal(t, "store.path", k)
	assert.Equal(t, "/x_y", v)
}
