package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "human_in_the_loop", cfg.GlobalMode)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, time.Minute, cfg.TickInterval)
	assert.Equal(t, 50, cfg.RunLogCap)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("GLOBAL_MODE", "autonomous")
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("TICK_INTERVAL", "30s")
	t.Setenv("RUN_LOG_CAP", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "autonomous", cfg.GlobalMode)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, 30*time.Second, cfg.TickInterval)
	assert.Equal(t, 10, cfg.RunLogCap)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown global mode", "GLOBAL_MODE", "yolo"},
		{"unknown environment", "APP_ENV", "qa"},
		{"bogus timezone", "TIMEZONE", "Mars/Olympus_Mons"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
