package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	return LoadConfig()
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "all", cfg.Search.IngredientPolicy)
	assert.Equal(t, 8, cfg.Search.IngredientLimit)
	assert.Equal(t, 5, cfg.Search.CriteriaLimit)
	assert.True(t, cfg.Search.StripPlural)
	assert.Equal(t, 5000.0, cfg.Search.NameWeights.FullMatch)
	assert.Equal(t, 0.5, cfg.Search.NameWeights.LengthPenalty)
	assert.Equal(t, time.Duration(0), cfg.Dataset.TTL)
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, "csv", cfg.History.Backend)
	assert.False(t, cfg.OpenRouter.Enabled)
	assert.Equal(t, time.Second, cfg.DedupWindow)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("APP_SEARCH_INGREDIENT_POLICY", "any")
	t.Setenv("APP_SEARCH_NAME_WEIGHTS_MIN_SCORE", "750")
	t.Setenv("DATASET_PATH", "/tmp/receitas.csv")
	t.Setenv("APP_DATASET_TTL", "5m")
	t.Setenv("APP_SESSION_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, "any", cfg.Search.IngredientPolicy)
	assert.Equal(t, 750.0, cfg.Search.NameWeights.MinScore)
	assert.Equal(t, "/tmp/receitas.csv", cfg.Dataset.Path)
	assert.Equal(t, 5*time.Minute, cfg.Dataset.TTL)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, "redis:6379", cfg.Session.Redis.Addr)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown policy", map[string]string{"APP_SEARCH_INGREDIENT_POLICY": "most"}},
		{"zero limit", map[string]string{"APP_SEARCH_NAME_LIMIT": "0"}},
		{"unknown session backend", map[string]string{"APP_SESSION_BACKEND": "etcd"}},
		{"sql backend without dsn", map[string]string{"APP_HISTORY_BACKEND": "sqlite", "DATABASE_URL": ""}},
		{"fallback without key", map[string]string{"APP_OPENROUTER_ENABLED": "true", "OPENROUTER_API_KEY": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(t)
			assert.Error(t, err)
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk-o...cdef", maskAPIKey("sk-or-1234567890abcdef"))
}
