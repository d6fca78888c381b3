// SPDX-License-Identifier: Apache-2.0

// Package payload ingests raw analysis payload files exported from the host.
package payload

import (
	"context"

	"github.com/zosgo/zosgo/internal/convert"
)

// Source describes the raw input to the ingestion pipeline.
type Source struct {
	// Content is the raw file content.
	Content []byte
	// Format is an optional hint: json, yaml or text.
	Format string
	// ID names the source, typically its file path.
	ID string
}

// Parser turns one kind of raw file into a payload.
type Parser interface {
	CanHandle(source Source) bool
	Parse(ctx context.Context, source Source) (*convert.Payload, error)
	Name() string
}
