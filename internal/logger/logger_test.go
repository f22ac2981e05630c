package logger

import (
	"testing"

	"claudygod/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	dev, err := NewLogger(&config.App{Mode: config.AppModeDevelop, LogLevel: "debug"})
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zap.DebugLevel))

	prod, err := NewLogger(&config.App{Mode: config.AppModeProduction, LogLevel: "warn"})
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zap.InfoLevel))
	assert.True(t, prod.Core().Enabled(zap.WarnLevel))

	_, err = NewLogger(&config.App{Mode: config.AppModeProduction, LogLevel: "loud"})
	assert.Error(t, err)
}
