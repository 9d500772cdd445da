package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setEnvs sets multiple env vars for the duration of the test.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

var (
	accessSecret  = strings.Repeat("a", 32)
	refreshSecret = strings.Repeat("r", 32)
)

func TestLoad_DevelopmentDefaults(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "development"})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, StoragePostgres, cfg.StorageDriver)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessExpiry)
	assert.Equal(t, 720*time.Hour, cfg.JWTRefreshExpiry)
	assert.Equal(t, 30*24*time.Hour, cfg.CookieMaxAge())
	assert.Equal(t, 8*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 200*time.Millisecond, cfg.SlowQueryThreshold())
	assert.Equal(t, 5, cfg.LoginMaxAttempts)
	assert.False(t, cfg.KafkaEnabled)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_GoogleClientIDsMerged(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":       "development",
		"GOOGLE_CLIENT_IDS": "web.apps,ios.apps",
		"GOOGLE_CLIENT_ID":  "android.apps",
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"web.apps", "ios.apps", "android.apps"}, cfg.GoogleClientIDs)
}

func TestLoad_Production_RequiresSecrets(t *testing.T) {
	setEnvs(t, map[string]string{"ENVIRONMENT": "production"})

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set")
}

func TestLoad_Production_ValidSecrets(t *testing.T) {
	setEnvs(t, map[string]string{
		"ENVIRONMENT":        "production",
		"JWT_ACCESS_SECRET":  accessSecret,
		"JWT_REFRESH_SECRET": refreshSecret,
	})

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Environment:      "staging",
			Port:             3000,
			StorageDriver:    StorageMongo,
			JWTAccessSecret:  accessSecret,
			JWTRefreshSecret: refreshSecret,
			JWTCookieDays:    30,
			LoginMaxAttempts: 5,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "port out of range", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "invalid HTTP port"},
		{name: "unknown driver", mutate: func(c *Config) { c.StorageDriver = "sqlite" }, wantErr: "unknown STORAGE_DRIVER"},
		{name: "short secret", mutate: func(c *Config) { c.JWTAccessSecret = "short" }, wantErr: "at least 32 characters"},
		{name: "same secrets", mutate: func(c *Config) { c.JWTRefreshSecret = accessSecret }, wantErr: "must differ"},
		{name: "zero cookie days", mutate: func(c *Config) { c.JWTCookieDays = 0 }, wantErr: "JWT_COOKIE_EXPIRES_IN"},
		{name: "dev skips secrets", mutate: func(c *Config) {
			c.Environment = "development"
			c.JWTAccessSecret = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
