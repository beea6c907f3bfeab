package observability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/couchcryptid/covid-dashboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	tests := []struct {
		name      string
		level     string
		format    string
		debugOn   bool
		infoOn    bool
		handlerIs func(slog.Handler) bool
	}{
		{"json info", "info", "json", false, true, isJSON},
		{"text debug", "debug", "text", true, true, isText},
		{"TEXT upper-case format", "warn", "TEXT", false, false, isText},
		{"unknown level defaults to info", "bogus", "json", false, true, isJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(&config.Config{LogLevel: tt.level, LogFormat: tt.format})
			require.NotNil(t, logger)

			ctx := context.Background()
			assert.Equal(t, tt.debugOn, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.infoOn, logger.Enabled(ctx, slog.LevelInfo))
			assert.True(t, logger.Enabled(ctx, slog.LevelError))
			assert.True(t, tt.handlerIs(logger.Handler()))
			assert.Same(t, logger, slog.Default())
		})
	}
}

func isJSON(h slog.Handler) bool {
	_, ok := h.(*slog.JSONHandler)
	return ok
}

func isText(h slog.Handler) bool {
	_, ok := h.(*slog.TextHandler)
	return ok
}
