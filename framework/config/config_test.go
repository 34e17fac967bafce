package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "katapult", cfg.App.Name)
	assert.Equal(t, 80, cfg.HTTP.Port)
	assert.Equal(t, 443, cfg.HTTP.HTTPSPort)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "sqlite", cfg.DB.Driver)
	assert.True(t, cfg.Auth.AllowRegistration)
	assert.False(t, cfg.Auth.GuardPathAccess)
	assert.False(t, cfg.Admin.GuardPages)
	assert.Empty(t, cfg.CORS.Origins)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PrefixedEnv(t *testing.T) {
	t.Setenv("KATAPULT_HTTP_PORT", "8080")
	t.Setenv("KATAPULT_SESSION_FILES", "true")
	t.Setenv("KATAPULT_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(viper.New(), noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.True(t, cfg.Session.Files)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)
}

func TestLoad_LegacyEnvNames(t *testing.T) {
	t.Setenv("DB_TYPE", "postgres")
	t.Setenv("PG_HOST", "db.internal")
	t.Setenv("PG_NAME", "katapult")
	t.Setenv("PG_USER", "app")
	t.Setenv("PG_PASS", "secret")
	t.Setenv("APP_NAME", "legacy")

	cfg, err := Load(viper.New(), noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "legacy", cfg.App.Name)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KATAPULT_DATA_DIR=/srv/katapult\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("KATAPULT_DATA_DIR") })

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/katapult", cfg.DataDir)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "katapult.yaml")
	yaml := "http:\n  port: 0\n  https_port: 8443\nweb:\n  subpages: [login, admin]\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	cfg, err := Load(v, noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.HTTP.Port)
	assert.Equal(t, 8443, cfg.HTTP.HTTPSPort)
	assert.Equal(t, []string{"login", "admin"}, cfg.Web.Subpages)
}

func TestLoad_BadConfigFile(t *testing.T) {
	v := viper.New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load(v, noEnvFile(t))
	assert.ErrorContains(t, err, "config: read")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			HTTP: HTTPConfig{Port: 80, HTTPSPort: 443},
			DB:   DBConfig{Driver: "sqlite", File: "k.db"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"port range", func(c *Config) { c.HTTP.Port = 70000 }, "http port 70000 out of range"},
		{"no listeners", func(c *Config) { c.HTTP.Port, c.HTTP.HTTPSPort = 0, 0 }, "both http and https are disabled"},
		{"negative timeout", func(c *Config) { c.Session.TimeoutSeconds = -1 }, "session timeout"},
		{"sqlite file", func(c *Config) { c.DB.File = "" }, "sqlite needs --db-file"},
		{"postgres fields", func(c *Config) { c.DB.Driver = "postgres" }, "postgres needs --db-host"},
		{"driver", func(c *Config) { c.DB.Driver = "mysql" }, `unknown db driver "mysql"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("KATAPULT_TEST_INT", "42")
	t.Setenv("KATAPULT_TEST_BOOL", "yes")

	assert.Equal(t, 42, GetInt("KATAPULT_TEST_INT", 1))
	assert.Equal(t, 7, GetInt("KATAPULT_TEST_MISSING", 7))
	assert.True(t, GetBool("KATAPULT_TEST_BOOL_MISSING", true))
	assert.False(t, GetBool("KATAPULT_TEST_BOOL", false), "unparseable bool falls back")
	assert.Equal(t, "fallback", Get("KATAPULT_TEST_MISSING", "fallback"))
}
