package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogger_WritesJSONWithAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info").
		WithService("dispatch").
		WithRideRequest("r1").
		WithError(errors.New("boom"))

	log.Info("dispatched", "driver_id", "d1", "version", 1)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "dispatched", got["msg"])
	assert.Equal(t, "dispatch", got["service"])
	assert.Equal(t, "r1", got["ride_request_id"])
	assert.Equal(t, "boom", got["error"])
	assert.Equal(t, "d1", got["driver_id"])
	assert.EqualValues(t, 1, got["version"])
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn")

	log.Info("hidden")
	assert.Zero(t, buf.Len())

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContext(t *testing.T) {
	fallback := Nop()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))

	l := Nop().WithRequestID("req-1")
	ctx := l.WithContext(context.Background())
	assert.Same(t, l, FromContext(ctx, fallback))
}

func TestWithError_Nil(t *testing.T) {
	l := Nop()
	assert.Same(t, l, l.WithError(nil))
}
