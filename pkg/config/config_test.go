package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 7, cfg.MinPlayersRequired)
	assert.Equal(t, 15*time.Minute, cfg.OptimizationCacheTTL)
	assert.Equal(t, 10*time.Second, cfg.ExternalAPITimeout)
	assert.Equal(t, 30*time.Second, cfg.OptimizationTimeoutDuration())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CorsOrigins)
	assert.Equal(t, 60, cfg.OptimizeRateLimit)
	assert.Equal(t, "0 15 * * *", cfg.PredictionSchedule)

	opt := cfg.OptimizerDefaults()
	assert.Equal(t, 60000, opt.Budget)
	assert.Equal(t, 1.5, opt.PremiumMultiplier)
	assert.Equal(t, 1, opt.PremiumCount)
	assert.Equal(t, 5, opt.StandardCount)
	assert.Equal(t, 200000, opt.MaxNodes)
	assert.Equal(t, 4, opt.Workers)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("OPTIMIZER_BUDGET", "50000")
	t.Setenv("OPTIMIZER_PREMIUM_MULTIPLIER", "2")
	t.Setenv("OPTIMIZATION_CACHE_TTL", "1h")
	t.Setenv("CORS_ORIGINS", "https://showdown.example.com")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 50000, cfg.OptimizerDefaults().Budget)
	assert.Equal(t, 2.0, cfg.OptimizerDefaults().PremiumMultiplier)
	assert.Equal(t, time.Hour, cfg.OptimizationCacheTTL)
	assert.Equal(t, []string{"https://showdown.example.com"}, cfg.CorsOrigins)
}
