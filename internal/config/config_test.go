package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	config, err := NewManager().Load()
	require.NoError(t, err)

	assert.NotEmpty(t, config.User)
	assert.Equal(t, 22, config.Port)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, 5*time.Second, config.AuthTimeout)
	assert.Zero(t, config.CommandTimeout)
	assert.Equal(t, "info", config.LogLevel)
	assert.Equal(t, "append", config.LogMode)
	assert.Equal(t, "text", config.LogFormat)
	assert.Equal(t, DefaultParallelWidth, config.ParallelWidth)
}

func TestLoadEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("REMOTE_USER", "deploy")
	t.Setenv("REMOTE_PORT", "2222")
	t.Setenv("REMOTE_TIMEOUT", "10s")
	t.Setenv("REMOTE_LOG_LEVEL", "debug")

	config, err := NewManager().Load()
	require.NoError(t, err)

	assert.Equal(t, "deploy", config.User)
	assert.Equal(t, 2222, config.Port)
	assert.Equal(t, 10*time.Second, config.Timeout)
	assert.Equal(t, "debug", config.LogLevel)
}

func TestSetOverridesEnvironment(t *testing.T) {
	t.Setenv("REMOTE_PORT", "2222")

	m := NewManager()
	m.Set("port", 8022)
	config, err := m.Load()
	require.NoError(t, err)

	assert.Equal(t, 8022, config.Port)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"port out of range", "port", 70000},
		{"unknown log level", "log-level", "verbose"},
		{"unknown log mode", "log-mode", "rotate"},
		{"unknown log format", "log-format", "xml"},
		{"zero parallel width", "parallel-width", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager()
			m.Set(tt.key, tt.value)
			_, err := m.Load()
			require.Error(t, err)
			assert.Equal(t, errors.Setup, errors.CategoryOf(err))
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
