package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Port    int           `env:"SAMPLE_CFG_PORT" envDefault:"3000"`
	Secret  string        `env:"SAMPLE_CFG_SECRET"`
	Expiry  time.Duration `env:"SAMPLE_CFG_EXPIRY" envDefault:"15m"`
	Origins []string      `env:"SAMPLE_CFG_ORIGINS" envDefault:"*" envSeparator:","`
}

func TestLoad_Defaults(t *testing.T) {
	var cfg sampleConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.Expiry)
	assert.Equal(t, []string{"*"}, cfg.Origins)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("SAMPLE_CFG_PORT", "8080")
	t.Setenv("SAMPLE_CFG_EXPIRY", "1h")
	t.Setenv("SAMPLE_CFG_ORIGINS", "https://a.app,https://b.app")

	var cfg sampleConfig
	require.NoError(t, Load(&cfg))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, time.Hour, cfg.Expiry)
	assert.Equal(t, []string{"https://a.app", "https://b.app"}, cfg.Origins)
}

func TestLoad_InvalidType(t *testing.T) {
	t.Setenv("SAMPLE_CFG_PORT", "not-a-number")

	var cfg sampleConfig
	err := Load(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestLoadDotEnv_DoesNotOverrideExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SAMPLE_CFG_SECRET=from-file\nSAMPLE_CFG_PORT=4000\n"), 0o600))

	t.Setenv("SAMPLE_CFG_PORT", "5000")
	t.Setenv("SAMPLE_CFG_SECRET", "")
	require.NoError(t, os.Unsetenv("SAMPLE_CFG_SECRET"))

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv("SAMPLE_CFG_SECRET") })

	var cfg sampleConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "from-file", cfg.Secret)
}
