// SPDX-License-Identifier: Apache-2.0

// Package convert turns raw analysis payloads into validated result records
// using per-analysis mapping rules.
package convert

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/zosgo/zosgo/internal/convert/expr"
	"github.com/zosgo/zosgo/internal/convert/naming"
	"github.com/zosgo/zosgo/internal/errors"
	"github.com/zosgo/zosgo/internal/result"
)

var tracer = otel.Tracer("github.com/zosgo/zosgo/internal/convert")

// ConvertKey converts a host member name into a record key.
func ConvertKey(key string) string {
	return naming.ConvertKey(key)
}

// Hook post-processes a candidate record after metadata is attached.
type Hook func(ctx context.Context, candidate map[string]any, p *Payload) error

// Warning is a non-fatal problem met while converting one field.
type Warning struct {
	Key string
	Err *errors.Error
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %v", w.Key, w.Err)
}

// Outcome is the result of converting one payload.
type Outcome struct {
	Rule      *Rule
	Candidate map[string]any
	Warnings  []Warning
}

// Converter applies mapping rules. It is safe for concurrent use.
type Converter struct {
	rules   *RuleSet
	catalog *result.Catalog
	symbols SymbolTable
	hooks   map[string]Hook
	logger  *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithConstants enables resolution of integer settings codes to constant
// names using table. Without it the step is skipped.
func WithConstants(table SymbolTable) Option {
	return func(c *Converter) {
		c.symbols = table
	}
}

// WithHook registers a post-processing hook under name.
func WithHook(name string, h Hook) Option {
	return func(c *Converter) {
		c.hooks[name] = h
	}
}

// WithLogger sets the logger for conversion warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) {
		c.logger = l
	}
}

// New creates a converter over rules, validating records against catalog.
func New(rules *RuleSet, catalog *result.Catalog, opts ...Option) *Converter {
	c := &Converter{
		rules:   rules,
		catalog: catalog,
		hooks:   make(map[string]Hook),
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Rules returns the converter's rule set.
func (c *Converter) Rules() *RuleSet {
	return c.rules
}

// Catalog returns the catalog records are validated against.
func (c *Converter) Catalog() *result.Catalog {
	return c.catalog
}

// ConstantsEnabled reports whether constant resolution runs.
func (c *Converter) ConstantsEnabled() bool {
	return c.symbols != nil
}

// Convert maps a payload to a candidate record without validating it.
func (c *Converter) Convert(ctx context.Context, p *Payload) (*Outcome, error) {
	rule, ok := c.rules.Lookup(p.Analysis)
	if !ok {
		return nil, errors.NewRuleNotFound(p.Analysis)
	}
	return c.ConvertWith(ctx, rule, p)
}

// ConvertWith maps a payload with an explicit rule.
func (c *Converter) ConvertWith(ctx context.Context, rule *Rule, p *Payload) (*Outcome, error) {
	doc := p.Document()
	source := p.SourceName()

	data, err := rule.data.Eval(doc)
	if err != nil {
		return nil, errors.NewConversionConfiguration(rule.analysis, source, fmt.Errorf("data: %w", err))
	}
	if expr.IsOmitted(data) {
		return nil, errors.NewConversionConfiguration(rule.analysis, source, fmt.Errorf("data expression produced no value"))
	}

	rawSettings, err := rule.settings.Eval(doc)
	if err != nil {
		return nil, errors.NewConversionConfiguration(rule.analysis, source, fmt.Errorf("settings: %w", err))
	}
	settingsMap := map[string]any{}
	if !expr.IsOmitted(rawSettings) && rawSettings != nil {
		m, ok := rawSettings.(map[string]any)
		if !ok {
			return nil, errors.NewConversionConfiguration(rule.analysis, source, fmt.Errorf("settings expression produced %T, not a mapping", rawSettings))
		}
		settingsMap = m
	}
	settings := replaceKeys(settingsMap, rule.replaceKeys)

	out := &Outcome{Rule: rule}
	if c.symbols != nil {
		out.Warnings = c.resolveConstants(ctx, rule, settings)
	}

	header := strings.Join(p.Header, "\n")
	messages := make([]any, len(p.Messages))
	for i, m := range p.Messages {
		messages[i] = m
	}

	out.Candidate = map[string]any{
		"data":     data,
		"settings": settings,
		"header":   header,
		"messages": messages,
		"metadata": c.metadata(rule),
	}

	if rule.postProcess != "" {
		hook, ok := c.hooks[rule.postProcess]
		if !ok {
			return nil, errors.NewInvalidRule(rule.analysis, fmt.Sprintf("post_process hook %q is not registered", rule.postProcess))
		}
		if err := hook(ctx, out.Candidate, p); err != nil {
			return nil, errors.NewConversionConfiguration(rule.analysis, source, fmt.Errorf("post_process %s: %w", rule.postProcess, err))
		}
	}
	return out, nil
}

func (c *Converter) metadata(rule *Rule) map[string]any {
	md := result.Metadata{
		Analysis: rule.analysis,
		Data:     result.DataMetadata{Shape: rule.shape, Module: rule.module},
		Settings: result.SettingsMetadata{Schema: rule.settingsSchema, Module: rule.module},
	}
	if spec, ok := c.catalog.Lookup(rule.analysis); ok {
		md.Version = spec.Version
		md.Data.Schema = spec.DataSchema
	}
	return map[string]any{
		"analysis": md.Analysis,
		"version":  md.Version,
		"data": map[string]any{
			"shape":  string(md.Data.Shape),
			"schema": md.Data.Schema,
			"module": md.Data.Module,
		},
		"settings": map[string]any{
			"schema": md.Settings.Schema,
			"module": md.Settings.Module,
		},
	}
}

// replaceKeys renames settings keys recursively. An explicit override is
// matched against the raw key first, then the converted key, and wins over
// the generic conversion.
func replaceKeys(settings map[string]any, overrides map[string]string) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		out[targetKey(k, overrides)] = replaceValue(v, overrides)
	}
	return out
}

func replaceValue(v any, overrides map[string]string) any {
	switch t := v.(type) {
	case map[string]any:
		return replaceKeys(t, overrides)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = replaceValue(e, overrides)
		}
		return out
	default:
		return v
	}
}

func targetKey(key string, overrides map[string]string) string {
	if to, ok := overrides[key]; ok {
		return to
	}
	converted := naming.ConvertKey(key)
	if to, ok := overrides[converted]; ok {
		return to
	}
	return converted
}

// resolveConstants replaces integer codes in settings by constant names.
// Failures are returned as warnings and leave the raw value in place.
func (c *Converter) resolveConstants(ctx context.Context, rule *Rule, settings map[string]any) []Warning {
	keys := make([]string, 0, len(rule.constants))
	for k := range rule.constants {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var warnings []Warning
	for _, key := range keys {
		constant := rule.constants[key]
		v, ok := settings[key]
		if !ok {
			continue
		}
		code, isCode := constantCode(v)
		if !isCode {
			continue
		}
		name, found := c.symbols.Lookup(constant, code)
		if !found {
			err := errors.NewConstantLookup(key, v, constant)
			c.logger.WarnContext(ctx, "constant lookup failed",
				"analysis", rule.analysis,
				"key", key,
				"value", v,
				"constant", constant,
			)
			warnings = append(warnings, Warning{Key: key, Err: err})
			continue
		}
		settings[key] = name
	}
	return warnings
}

// Record converts a payload and validates the candidate. A candidate the
// catalog rejects is reported as a rule defect.
func (c *Converter) Record(ctx context.Context, p *Payload) (*result.Record, []Warning, error) {
	ctx, span := tracer.Start(ctx, "convert.Record")
	defer span.End()
	span.SetAttributes(
		attribute.String("analysis", p.Analysis),
		attribute.String("source", p.SourceName()),
	)

	rec, warnings, err := c.record(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, warnings, err
	}
	span.SetAttributes(attribute.Int("warnings", len(warnings)))
	return rec, warnings, nil
}

func (c *Converter) record(ctx context.Context, p *Payload) (*result.Record, []Warning, error) {
	out, err := c.Convert(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	rec, err := c.catalog.Build(out.Candidate)
	if err != nil {
		return nil, out.Warnings, errors.NewConversionConfiguration(out.Rule.analysis, p.SourceName(), err).
			WithDetail("rule_source", out.Rule.source)
	}
	return rec, out.Warnings, nil
}

// BatchResult is the outcome of one payload of a batch.
type BatchResult struct {
	Source   string
	Record   *result.Record
	Warnings []Warning
	Err      error
}

// RecordAll converts a batch of payloads. A failing payload is reported in
// its result and the rest of the batch continues.
func (c *Converter) RecordAll(ctx context.Context, payloads []*Payload) []BatchResult {
	ctx, span := tracer.Start(ctx, "convert.RecordAll")
	defer span.End()

	results := make([]BatchResult, len(payloads))
	failed := 0
	for i, p := range payloads {
		rec, warnings, err := c.Record(ctx, p)
		results[i] = BatchResult{Source: p.SourceName(), Record: rec, Warnings: warnings, Err: err}
		if err != nil {
			failed++
			c.logger.ErrorContext(ctx, "record conversion failed", "source", p.SourceName(), "error", err)
		}
	}
	span.SetAttributes(attribute.Int("payloads", len(payloads)), attribute.Int("failed", failed))
	return results
}
