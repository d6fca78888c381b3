// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "warn", "json"))

	logger.Info("dropped")
	logger.Warn("constant lookup failed", "key", "sampling")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "constant lookup failed", line["msg"])
	assert.Equal(t, "sampling", line["key"])
	assert.NotContains(t, line, "trace_id")
}

func TestHandler_TraceIDs(t *testing.T) {
	var spans bytes.Buffer
	shutdown, err := InitTracing(&spans, "zosgo-test", "v0.0.0")
	require.NoError(t, err)
	defer func() { require.NoError(t, shutdown(context.Background())) }()

	ctx, span := otel.Tracer("test").Start(context.Background(), "convert")
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "info", "json")).With("component", "convert")
	logger.InfoContext(ctx, "converted")
	span.End()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
	assert.Equal(t, "convert", line["component"])

	assert.Contains(t, spans.String(), `"Name": "convert"`)
}

func TestConfigureSlog(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := ConfigureSlog(&buf, "debug", "text")
	assert.Same(t, logger, slog.Default())

	slog.Debug("widened capability", "declared", "IAS_")
	assert.Contains(t, buf.String(), "declared=IAS_")
}
