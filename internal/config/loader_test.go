package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const debugLevel = "debug"

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName+".yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	if loader == nil || loader.v == nil {
		t.Fatal("NewLoader() returned an unusable loader")
	}
	assert.Same(t, viper.GetViper(), loader.GetViper())

	assert.NotNil(t, NewLoaderWithViper(nil).GetViper())
}

// TestLoadWithNoConfigFile tests loading with no config file present.
func TestLoadWithNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected default log level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Expected default port 8000, got %d", cfg.Server.Port)
	}
	assert.Equal(t, []string{"zh-Hans"}, cfg.OCR.Languages)
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "log_level: warn\n")
	t.Chdir(dir)

	loader := newTestLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Contains(t, loader.GetConfigFileUsed(), ConfigFileName+".yaml")
}

// TestLoadWithValidYAMLFile tests loading from a valid YAML file.
func TestLoadWithValidYAMLFile(t *testing.T) {
	configFile := writeConfig(t, t.TempDir(), `
log_level: debug
verbose: true
ocr:
  languages: [en-US, zh-Hans]
  threshold: 0.1
  min_confidence: 0.2
output:
  format: json
server:
  host: 127.0.0.1
  port: 9090
  token: secret
  rate_limit:
    enabled: true
    requests_per_minute: 5
`)

	cfg, err := newTestLoader().LoadWithFile(configFile)
	require.NoError(t, err)

	if cfg.LogLevel != debugLevel {
		t.Errorf("Expected log level '%s', got %s", debugLevel, cfg.LogLevel)
	}
	if !cfg.Verbose {
		t.Error("Expected verbose to be true")
	}
	assert.Equal(t, []string{"en-US", "zh-Hans"}, cfg.OCR.Languages)
	assert.InDelta(t, 0.1, cfg.OCR.Threshold, 1e-12)
	assert.InDelta(t, 0.2, cfg.OCR.MinConfidence, 1e-12)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Server.Token)
	assert.True(t, cfg.Server.RateLimit.Enabled)
	assert.Equal(t, 5, cfg.Server.RateLimit.RequestsPerMinute)
	// untouched keys keep their defaults
	assert.Equal(t, 1000, cfg.Server.RateLimit.RequestsPerHour)
	assert.Equal(t, 50, cfg.Server.MaxUploadMB)
}

// TestLoadWithInvalidYAMLFile tests loading from an invalid YAML file.
func TestLoadWithInvalidYAMLFile(t *testing.T) {
	configFile := writeConfig(t, t.TempDir(), `
log_level: debug
  invalid indentation
    more bad indentation
`)

	_, err := newTestLoader().LoadWithFile(configFile)
	assert.Error(t, err)
}

func TestLoadWithNonExistentFile(t *testing.T) {
	_, err := newTestLoader().LoadWithFile("/nonexistent/path/to/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadWithValidationFailure(t *testing.T) {
	configFile := writeConfig(t, t.TempDir(), "log_level: invalid_level\nserver:\n  port: 0\n")

	_, err := newTestLoader().LoadWithFile(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestLoadWithoutValidation(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "log_level: invalid_level\nserver:\n  port: -1\n")
	t.Chdir(dir)

	cfg, err := newTestLoader().LoadWithoutValidation()
	require.NoError(t, err)
	assert.Equal(t, "invalid_level", cfg.LogLevel)
	assert.Equal(t, -1, cfg.Server.Port)
}

// TestEnvironmentVariableOverride tests environment variable override.
func TestEnvironmentVariableOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MACOCR_LOG_LEVEL", "debug")
	t.Setenv("MACOCR_SERVER_PORT", "9999")
	t.Setenv("MACOCR_SERVER_TOKEN", "from-env")
	t.Setenv("MACOCR_OCR_THRESHOLD", "0.2")
	t.Setenv("MACOCR_SERVER_RATE_LIMIT_ENABLED", "true")

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, debugLevel, cfg.LogLevel)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Server.Token)
	assert.InDelta(t, 0.2, cfg.OCR.Threshold, 1e-12)
	assert.True(t, cfg.Server.RateLimit.Enabled)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	configFile := writeConfig(t, t.TempDir(), "server:\n  port: 9090\n")
	t.Setenv("MACOCR_SERVER_PORT", "7070")

	cfg, err := newTestLoader().LoadWithFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generated.yaml")
	require.NoError(t, GenerateDefaultConfigFile(path))

	cfg, err := newTestLoader().LoadWithFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Port, cfg.Server.Port)
	assert.Equal(t, DefaultConfig().OCR.Languages, cfg.OCR.Languages)
}

func TestGenerateDefaultConfigFileWithEmptyFilename(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, GenerateDefaultConfigFile(""))
	_, err := os.Stat(filepath.Join(dir, "macocr.yaml"))
	assert.NoError(t, err)
}

func TestGetConfigSearchPaths(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	paths := GetConfigSearchPaths()
	require.NotEmpty(t, paths)
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join(xdg, "macocr"))
	assert.Equal(t, "/etc/macocr", paths[len(paths)-1])
}
