package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLevels(t *testing.T) {
	ctx := context.Background()

	assert.True(t, New("debug").Enabled(ctx, slog.LevelDebug))
	assert.False(t, New("info").Enabled(ctx, slog.LevelDebug))
	assert.False(t, New("warn").Enabled(ctx, slog.LevelInfo))

	// unknown and empty names fall back to info
	assert.True(t, New("bogus").Enabled(ctx, slog.LevelInfo))
	assert.False(t, New("").Enabled(ctx, slog.LevelDebug))
}
