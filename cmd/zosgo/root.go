// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/zosgo/zosgo/internal/config"
	"github.com/zosgo/zosgo/internal/convert"
	"github.com/zosgo/zosgo/internal/convert/rules"
	"github.com/zosgo/zosgo/internal/interop"
	"github.com/zosgo/zosgo/internal/result"
	"github.com/zosgo/zosgo/internal/store"
	"github.com/zosgo/zosgo/internal/telemetry"
)

// app carries what every command shares once the root command has run.
type app struct {
	configPath string
	logLevel   string
	trace      bool

	cfg      *config.Config
	logger   *slog.Logger
	shutdown telemetry.ShutdownFunc
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "zosgo",
		Short: "Optical analysis results as validated records",
		Long: `zosgo turns the raw output of optical analyses into records that are
validated against a schema per analysis kind and exchanged as JSON text.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.shutdown == nil {
				return nil
			}
			return a.shutdown(context.Background())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file (YAML)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "Print trace spans to stderr")

	root.AddCommand(
		newConvertCmd(a),
		newValidateCmd(a),
		newShowCmd(a),
		newKindsCmd(a),
		newInterfacesCmd(a),
		newArchiveCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.trace {
		cfg.Trace.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	// Logs go to stderr so stdout stays clean for record text and MCP.
	a.logger = telemetry.ConfigureSlog(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if cfg.Trace.Enabled {
		shutdown, err := telemetry.InitTracing(cmd.ErrOrStderr(), "zosgo", version)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		a.shutdown = shutdown
	}
	return nil
}

// converter builds a converter over the built-in rules and the configured
// rule directories. Constant resolution runs when constants is set or the
// config enables it.
func (a *app) converter(constants bool) (*convert.Converter, error) {
	set, err := rules.Load(a.cfg.Rules.Dirs...)
	if err != nil {
		return nil, err
	}
	opts := append(rules.Options(), convert.WithLogger(a.logger))
	if constants || a.cfg.Convert.Constants {
		symbols, err := a.symbols()
		if err != nil {
			return nil, err
		}
		opts = append(opts, convert.WithConstants(symbols))
	}
	return convert.New(set, result.DefaultCatalog(), opts...), nil
}

func (a *app) symbols() (convert.SymbolTable, error) {
	symbols, err := rules.Symbols()
	if err != nil {
		return nil, err
	}
	if a.cfg.Convert.ConstantsFile != "" {
		extra, err := convert.LoadSymbols(a.cfg.Convert.ConstantsFile)
		if err != nil {
			return nil, err
		}
		symbols.Merge(extra)
	}
	return symbols, nil
}

// registry returns the default capability registry plus the configured
// interfaces.
func (a *app) registry() *interop.Registry {
	r := interop.DefaultRegistry()
	r.Register(a.cfg.Interop.Interfaces...)
	return r
}

func (a *app) openStore() (*store.Store, error) {
	path := a.cfg.Store.Path
	if path == "" {
		path = config.DefaultStorePath()
	}
	return store.Open(path, result.DefaultCatalog())
}

// readInput reads a file argument, or stdin for "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}
