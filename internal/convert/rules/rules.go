// SPDX-License-Identifier: Apache-2.0

// Package rules ships the built-in mapping rules, the host constant table
// and the post-processing hooks the rules refer to.
package rules

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/zosgo/zosgo/internal/convert"
)

//go:embed defs/*.yaml
var defs embed.FS

//go:embed constants.yaml
var constants []byte

// Builtin parses the embedded rules.
func Builtin() ([]*convert.Rule, error) {
	sub, err := fs.Sub(defs, "defs")
	if err != nil {
		return nil, err
	}
	return convert.LoadRules(sub)
}

// Load returns a rule set of the built-in rules followed by the rules found
// in dirs. A rule from dirs replaces the built-in rule of the same analysis.
func Load(dirs ...string) (*convert.RuleSet, error) {
	builtin, err := Builtin()
	if err != nil {
		return nil, fmt.Errorf("built-in rules: %w", err)
	}
	set, err := convert.NewRuleSet(builtin...)
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		extra, err := convert.LoadRuleDir(dir)
		if err != nil {
			return nil, err
		}
		for _, r := range extra {
			if err := set.Add(r); err != nil {
				return nil, err
			}
		}
	}
	return set, nil
}

// Symbols returns the built-in host constant table.
func Symbols() (convert.SymbolTable, error) {
	return convert.ParseSymbols(constants)
}

// Options returns converter options registering every built-in hook.
func Options() []convert.Option {
	hooks := Hooks()
	opts := make([]convert.Option, 0, len(hooks))
	for name, h := range hooks {
		opts = append(opts, convert.WithHook(name, h))
	}
	return opts
}
