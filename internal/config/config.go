// SPDX-License-Identifier: Apache-2.0

// Package config loads zosgo settings from defaults, an optional YAML file
// and ZOSGO_ environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ZOSGO_"

type Config struct {
	Log     LogConfig     `koanf:"log"`
	Trace   TraceConfig   `koanf:"trace"`
	Rules   RulesConfig   `koanf:"rules"`
	Interop InteropConfig `koanf:"interop"`
	Convert ConvertConfig `koanf:"convert"`
	Store   StoreConfig   `koanf:"store"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // text, json
}

type TraceConfig struct {
	Enabled bool `koanf:"enabled"`
}

type RulesConfig struct {
	// Dirs holds extra mapping rule directories, loaded after the built-ins.
	Dirs []string `koanf:"dirs"`
}

type InteropConfig struct {
	// Interfaces are registered for widening on top of the default set.
	Interfaces []string `koanf:"interfaces"`
}

type ConvertConfig struct {
	Constants     bool   `koanf:"constants"`
	ConstantsFile string `koanf:"constants_file"`
}

type StoreConfig struct {
	Path string `koanf:"path"`
}

// listKeys are split on commas when read from the environment.
var listKeys = map[string]bool{
	"rules.dirs":         true,
	"interop.interfaces": true,
}

// DefaultStorePath returns the archive location used when none is set.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".zosgo", "archive.db")
	}
	return filepath.Join(home, ".zosgo", "archive.db")
}

// Load reads the configuration. path may be empty.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Defaults
	k.Set("log.level", "info")
	k.Set("log.format", "text")
	k.Set("trace.enabled", false)
	k.Set("rules.dirs", []string{})
	k.Set("interop.interfaces", []string{})
	k.Set("convert.constants", false)
	k.Set("convert.constants_file", "")
	k.Set("store.path", DefaultStorePath())

	// 1. Load from file
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	// 2. Load from ENV (ZOSGO_CONVERT_CONSTANTS_FILE -> convert.constants_file)
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps ZOSGO_SECTION_SOME_KEY to section.some_key. Only the first
// underscore separates the section.
func envKey(name, value string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	key = strings.Replace(key, "_", ".", 1)
	if listKeys[key] {
		var items []string
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				items = append(items, s)
			}
		}
		return key, items
	}
	return key, value
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: expected text or json, got %q", c.Log.Format)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is empty")
	}
	return nil
}
