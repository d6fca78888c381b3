// SPDX-License-Identifier: Apache-2.0

// Package tool exposes conversion and validation as MCP tools.
package tool

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zosgo/zosgo/internal/convert"
	"github.com/zosgo/zosgo/internal/payload"
	"github.com/zosgo/zosgo/internal/payload/parsers"
	"github.com/zosgo/zosgo/internal/store"
)

// Tools holds the dependencies of the tool handlers.
type Tools struct {
	conv     *convert.Converter
	pipeline *payload.Pipeline
	archive  *store.Store
	logger   *slog.Logger
}

// Option configures Tools.
type Option func(*Tools)

// WithArchive lets convert_analysis_result archive records on request.
func WithArchive(s *store.Store) Option {
	return func(t *Tools) {
		t.archive = s
	}
}

// WithLogger sets the logger used by the handlers.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tools) {
		t.logger = l
	}
}

// New creates the tool handlers over conv.
func New(conv *convert.Converter, opts ...Option) *Tools {
	t := &Tools{
		conv:     conv,
		pipeline: parsers.Default(),
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Register adds every tool to server.
func (t *Tools) Register(server *mcp.Server) {
	mcp.AddTool(server, MetadataConvertAnalysisResult, t.ConvertAnalysisResult)
	mcp.AddTool(server, MetadataValidateResultText, t.ValidateResultText)
	mcp.AddTool(server, MetadataListAnalysisKinds, t.ListAnalysisKinds)
}

// NewServer creates an MCP server with every tool registered.
func (t *Tools) NewServer(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "zosgo", Version: version}, nil)
	t.Register(server)
	return server
}
