// SPDX-License-Identifier: Apache-2.0

// Package parsers holds the payload parsers of the ingestion pipeline.
package parsers

import "github.com/zosgo/zosgo/internal/payload"

// Default returns a pipeline with every parser registered. The text parser
// comes first so its '#' title is not mistaken for YAML.
func Default() *payload.Pipeline {
	return payload.NewPipeline(
		NewTextParser(),
		NewStructuredParser(),
	)
}
