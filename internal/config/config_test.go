package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so stray config.yaml or
// .env files in the package directory are not picked up
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
	assert.True(t, cfg.Security.RateLimit.Enabled)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, "data", cfg.Paths.DataDir)
	assert.Equal(t, 4, cfg.Sources.DiscoveryConcurrency)
	assert.Equal(t, "0", cfg.Sources.Tabs["primary"])
	assert.True(t, cfg.Features.RemoteFetch)
	assert.Equal(t, "€", cfg.Locale.CurrencySymbol)
	assert.Equal(t, 16*time.Millisecond, cfg.Embed.FrameInterval)
	assert.False(t, cfg.Sources.UsesSheetsAPI())
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := chdirTemp(t)

	yamlCfg := `
server:
  port: 9090
sources:
  document_id: doc-from-file
  candidate_tabs: ["11", "22"]
locale:
  language: fi
features:
  discovery: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlCfg), 0o644))

	t.Setenv("DASH_SERVER_PORT", "7070")
	t.Setenv("DASH_SOURCES_TABS", "primary:5,rnd:42")
	t.Setenv("DASH_SOURCES_API_KEY", "k")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env wins over file")
	assert.Equal(t, "doc-from-file", cfg.Sources.DocumentID)
	assert.Equal(t, []string{"11", "22"}, cfg.Sources.CandidateTabs)
	assert.Equal(t, map[string]string{"primary": "5", "rnd": "42"}, cfg.Sources.Tabs)
	assert.Equal(t, "fi", cfg.Locale.Language)
	assert.False(t, cfg.Features.Discovery)
	assert.True(t, cfg.Features.RemoteFetch, "unset keys keep defaults")
	assert.True(t, cfg.Sources.UsesSheetsAPI())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DASH_PATHS_DATA_DIR=/srv/data\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("DASH_PATHS_DATA_DIR") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", cfg.Paths.DataDir)
}

func TestLoad_ExplicitFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\n"), 0o644))
	t.Setenv("DASH_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err, "port 0 is rejected")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero read timeout", func(c *Config) { c.Server.ReadTimeout = 0 }, true},
		{"no origins with cors", func(c *Config) { c.Security.AllowedOrigins = nil }, true},
		{"no origins without cors", func(c *Config) { c.Security.AllowedOrigins = nil; c.Security.EnableCORS = false }, false},
		{"zero concurrency", func(c *Config) { c.Sources.DiscoveryConcurrency = 0 }, true},
		{"negative concurrency", func(c *Config) { c.Sources.DiscoveryConcurrency = -2 }, true},
		{"zero fetch timeout", func(c *Config) { c.Sources.FetchTimeout = 0 }, true},
		{"bad locale", func(c *Config) { c.Locale.Language = "??" }, true},
		{"bad symbol position", func(c *Config) { c.Locale.SymbolPosition = "middle" }, true},
		{"zero frame interval", func(c *Config) { c.Embed.FrameInterval = 0 }, true},
		{"negative memo", func(c *Config) { c.Cache.MemoSize = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_NormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Output = "syslog"
	cfg.Logging.FilePath = ""
	require.NoError(t, cfg.validate())
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, "logs/app.log", cfg.Logging.FilePath)
}
