package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig_Defaults(t *testing.T) {
	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 15*time.Second, cfg.IBGE.RequestTimeout)
	assert.Equal(t, 24*time.Hour, cfg.IBGE.MunicipalityCacheTTL)
	assert.InDelta(t, 5.0, cfg.IBGE.RequestsPerSecond, 0)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Repositories.Postgres.Enabled)
	assert.Equal(t, 10, cfg.Reports.KeepPerMunicipality)
}

func TestInitConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GOOGLE_GEMINI_API_KEY", "key-from-env")
	t.Setenv("SESSION_JWT_SECRET", "secret-from-env")
	t.Setenv("HTTP_PORT", "9001")
	t.Setenv("POSTGRES_ENABLED", "true")

	cfg, err := InitConfig()
	require.NoError(t, err)

	assert.Equal(t, "key-from-env", cfg.Gemini.APIKey)
	assert.Equal(t, "secret-from-env", cfg.Session.JWTSecret)
	assert.Equal(t, "9001", cfg.Server.HTTPPort)
	assert.True(t, cfg.Repositories.Postgres.Enabled)
}

func TestEmbeddedConfigIsPresent(t *testing.T) {
	assert.Contains(t, string(embeddedConfig), "localidadesURL")
}
