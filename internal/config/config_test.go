package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default().Bitskins.RetryShifts, cfg.Bitskins.RetryShifts)
	require.Equal(t, 730, cfg.Bitskins.AppID)
	require.Equal(t, "5.50", cfg.FX.DefaultRate)
	require.Equal(t, 90, cfg.Steam.MaxPoints)
}

func TestLoad_FileThenEnv(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"port": "9000"},
		"bitskins": {"api_key": "from-file", "search_limit": 25, "retry_shifts": [0, -1, -2]},
		"steam": {"cache_ttl_sec": 60}
	}`), 0o600))
	t.Setenv("BITSKINS_API_KEY", "from-env")
	t.Setenv("BITSKINS_SECRET", "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SKINWATCH_CSFLOAT_MAX_CONCURRENCY", "3")

	// Act
	cfg, err := Load(path)

	// Assert
	require.NoError(t, err)
	require.Equal(t, "9000", cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Bitskins.APIKey)
	require.Equal(t, "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", cfg.Bitskins.Secret)
	require.Equal(t, 25, cfg.Bitskins.SearchLimit)
	require.Equal(t, 20, cfg.Bitskins.HistoryLimit)
	require.Equal(t, []int{0, -1, -2}, cfg.Bitskins.RetryShifts)
	require.Equal(t, 60, cfg.Steam.CacheTTLSeconds)
	require.Equal(t, "localhost:6379", cfg.Cache.RedisAddr)
	require.Equal(t, 3, cfg.CSFloat.MaxConcurrency)
	require.NoError(t, cfg.Validate())
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	err := cfg.Validate()
	require.ErrorContains(t, err, "bitskins.api_key")
	require.ErrorContains(t, err, "bitskins.secret")

	cfg.Bitskins.APIKey, cfg.Bitskins.Secret = "k", "s"
	require.NoError(t, cfg.Validate())

	cfg.FX.DefaultRate = "-1"
	require.ErrorContains(t, cfg.Validate(), "fx.default_rate")
}

func TestFXRate(t *testing.T) {
	t.Parallel()

	require.True(t, FX{DefaultRate: "5.43"}.Rate().Equal(decimal.RequireFromString("5.43")))
	require.True(t, FX{DefaultRate: "abc"}.Rate().Equal(decimal.RequireFromString("5.50")))
}
