// SPDX-License-Identifier: Apache-2.0

package payload

import (
	"context"
	"fmt"

	"github.com/zosgo/zosgo/internal/convert"
)

type Pipeline struct {
	parsers    []Parser
	classifier *Classifier
}

// NewPipeline creates a new Pipeline with the provided parsers.
// The Classifier is created internally.
func NewPipeline(parsers ...Parser) *Pipeline {
	return &Pipeline{
		parsers:    parsers,
		classifier: NewClassifier(),
	}
}

// RunResult is the output of a successful pipeline run.
type RunResult struct {
	Payload    *convert.Payload
	ParserUsed string
	// Reclassified counts header lines moved to messages.
	Reclassified int
}

func (p *Pipeline) Run(ctx context.Context, source Source) (*convert.Payload, error) {
	result, err := p.RunWithMeta(ctx, source)
	if err != nil {
		return nil, err
	}
	return result.Payload, nil
}

func (p *Pipeline) RunWithMeta(ctx context.Context, source Source) (RunResult, error) {
	parser, err := p.selectParser(source)
	if err != nil {
		return RunResult{}, err
	}

	pl, err := parser.Parse(ctx, source)
	if err != nil {
		return RunResult{}, fmt.Errorf("parser %q failed: %w", parser.Name(), err)
	}
	if pl.Analysis == "" {
		return RunResult{}, fmt.Errorf("parser %q: source %q names no analysis kind", parser.Name(), source.ID)
	}
	if pl.Source == "" {
		pl.Source = source.ID
	}

	moved := p.classifier.Apply(pl)
	return RunResult{
		Payload:      pl,
		ParserUsed:   parser.Name(),
		Reclassified: moved,
	}, nil
}

// selectParser returns the first registered parser that can handle the given source.
func (p *Pipeline) selectParser(source Source) (Parser, error) {
	for _, parser := range p.parsers {
		if parser.CanHandle(source) {
			return parser, nil
		}
	}
	return nil, fmt.Errorf("unsupported payload format: no parser found for source %q (format hint: %q)", source.ID, source.Format)
}

// RegisteredParsers returns the names of all currently registered parsers.
func (p *Pipeline) RegisteredParsers() []string {
	names := make([]string, len(p.parsers))
	for i, parser := range p.parsers {
		names[i] = parser.Name()
	}
	return names
}
