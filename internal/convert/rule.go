// SPDX-License-Identifier: Apache-2.0

package convert

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/zosgo/zosgo/internal/convert/expr"
	"github.com/zosgo/zosgo/internal/errors"
	"github.com/zosgo/zosgo/internal/result"
)

// ruleDecl is the YAML declaration surface of a mapping rule.
type ruleDecl struct {
	Analysis            string            `yaml:"analysis"`
	LegacyName          string            `yaml:"legacy_name"`
	SettingsSchema      string            `yaml:"settings_schema"`
	Module              string            `yaml:"module"`
	Shape               string            `yaml:"shape"`
	Data                any               `yaml:"data"`
	Settings            any               `yaml:"settings"`
	SettingsReplaceKeys map[string]string `yaml:"settings_replace_keys"`
	Constants           map[string]string `yaml:"constants"`
	PostProcess         string            `yaml:"post_process"`
}

// Rule describes how the raw payload of one analysis kind becomes a record.
// A Rule is immutable once parsed.
type Rule struct {
	analysis       string
	legacyName     string
	settingsSchema string
	module         string
	shape          result.Shape
	data           *expr.Expr
	settings       *expr.Expr
	replaceKeys    map[string]string
	constants      map[string]string
	postProcess    string
	source         string
}

// Analysis returns the current analysis kind name.
func (r *Rule) Analysis() string { return r.analysis }

// LegacyName returns the old analysis kind name, if any.
func (r *Rule) LegacyName() string { return r.legacyName }

// SettingsSchema returns the settings schema name.
func (r *Rule) SettingsSchema() string { return r.settingsSchema }

// Module returns the module defining the analysis.
func (r *Rule) Module() string { return r.module }

// Shape returns the data shape.
func (r *Rule) Shape() result.Shape { return r.shape }

// PostProcess returns the name of the post-processing hook, if any.
func (r *Rule) PostProcess() string { return r.postProcess }

// Source returns where the rule was loaded from.
func (r *Rule) Source() string { return r.source }

// ReplaceKeys returns a copy of the explicit settings key renames.
func (r *Rule) ReplaceKeys() map[string]string {
	out := make(map[string]string, len(r.replaceKeys))
	for k, v := range r.replaceKeys {
		out[k] = v
	}
	return out
}

// Constants returns a copy of the settings key to constant type table.
func (r *Rule) Constants() map[string]string {
	out := make(map[string]string, len(r.constants))
	for k, v := range r.constants {
		out[k] = v
	}
	return out
}

var (
	defaultTabularData    = expr.MustParse(map[string]any{"table": "$.table", "snake": true})
	defaultStructuredData = expr.MustParse(map[string]any{"snake_keys": "$.fields"})
	defaultSettings       = expr.MustParse("$.settings")
)

// ParseRule parses a YAML rule declaration. source names the rule in errors.
func ParseRule(src []byte, source string) (*Rule, error) {
	var d ruleDecl
	if err := yaml.UnmarshalWithOptions(src, &d, yaml.Strict()); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidRule, fmt.Sprintf("parse %s", source), err).
			WithDetail("rule", source)
	}
	if d.Analysis == "" {
		return nil, errors.NewInvalidRule(source, "analysis is required")
	}

	r := &Rule{
		analysis:       d.Analysis,
		legacyName:     d.LegacyName,
		settingsSchema: d.SettingsSchema,
		module:         d.Module,
		shape:          result.Shape(d.Shape),
		replaceKeys:    d.SettingsReplaceKeys,
		constants:      d.Constants,
		postProcess:    d.PostProcess,
		source:         source,
	}
	if r.replaceKeys == nil {
		r.replaceKeys = map[string]string{}
	}
	if r.constants == nil {
		r.constants = map[string]string{}
	}

	switch r.shape {
	case result.ShapeTabular:
		r.data = defaultTabularData
	case result.ShapeStructured:
		r.data = defaultStructuredData
	default:
		return nil, errors.NewInvalidRule(d.Analysis, fmt.Sprintf("shape must be %s or %s, got %q", result.ShapeTabular, result.ShapeStructured, d.Shape))
	}
	r.settings = defaultSettings

	var err error
	if d.Data != nil {
		if r.data, err = expr.Parse(d.Data); err != nil {
			return nil, errors.NewInvalidRule(d.Analysis, "data: "+err.Error())
		}
	}
	if d.Settings != nil {
		if r.settings, err = expr.Parse(d.Settings); err != nil {
			return nil, errors.NewInvalidRule(d.Analysis, "settings: "+err.Error())
		}
	}
	return r, nil
}

// RuleSet indexes rules by current and legacy analysis name.
type RuleSet struct {
	mu    sync.RWMutex
	rules map[string]*Rule
	names map[string]*Rule
}

// NewRuleSet creates a rule set holding rules.
func NewRuleSet(rules ...*Rule) (*RuleSet, error) {
	s := &RuleSet{rules: make(map[string]*Rule), names: make(map[string]*Rule)}
	for _, r := range rules {
		if err := s.Add(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add adds a rule. A rule whose analysis or legacy name is already taken by
// another analysis is rejected; a rule for the same analysis replaces it.
func (s *RuleSet) Add(r *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{r.analysis, r.legacyName} {
		if name == "" {
			continue
		}
		if prev, ok := s.names[name]; ok && prev.analysis != r.analysis {
			return errors.NewInvalidRule(r.analysis, fmt.Sprintf("name %q already used by %s (%s)", name, prev.analysis, prev.source))
		}
	}
	if prev, ok := s.rules[r.analysis]; ok {
		delete(s.names, prev.analysis)
		delete(s.names, prev.legacyName)
	}
	s.rules[r.analysis] = r
	s.names[r.analysis] = r
	if r.legacyName != "" {
		s.names[r.legacyName] = r
	}
	return nil
}

// Lookup finds the rule for an analysis kind by current or legacy name.
func (s *RuleSet) Lookup(name string) (*Rule, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.names[name]
	return r, ok
}

// Rules returns the rules sorted by analysis name.
func (s *RuleSet) Rules() []*Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Rule, 0, len(s.rules))
	for _, r := range s.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].analysis < out[j].analysis })
	return out
}

// LoadRules parses every .yaml and .yml file under fsys.
func LoadRules(fsys fs.FS) ([]*Rule, error) {
	var rules []*Rule
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(path.Ext(p)) {
		case ".yaml", ".yml":
		default:
			return nil
		}
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read rule %s: %w", p, err)
		}
		r, err := ParseRule(src, p)
		if err != nil {
			return err
		}
		rules = append(rules, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// LoadRuleDir parses the rule files of a directory on disk.
func LoadRuleDir(dir string) ([]*Rule, error) {
	rules, err := LoadRules(os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("load rules from %s: %w", dir, err)
	}
	for _, r := range rules {
		r.source = filepath.Join(dir, filepath.FromSlash(r.source))
	}
	return rules, nil
}
