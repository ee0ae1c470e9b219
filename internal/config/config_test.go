package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"porter/internal/backend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "site", cfg.Workflow)
	assert.Equal(t, DialogsFyne, cfg.Dialogs)
	assert.Zero(t, cfg.CommandTimeout)
}

func TestDecodeMergesOverDefaults(t *testing.T) {
	cfg := Default()
	err := cfg.Decode([]byte(`
workflow: images
command_timeout: 90s
shutdown_timeout: 3s
commands:
  convert_images:
    command: /opt/porter/convert
    args: [--quiet]
    env:
      RAYON_NUM_THREADS: 4
`))
	require.NoError(t, err)

	assert.Equal(t, "images", cfg.Workflow)
	assert.Equal(t, 90*time.Second, cfg.CommandTimeout)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "info", cfg.LogLevel)

	convert := cfg.Commands[string(backend.ConvertImages)]
	assert.Equal(t, "/opt/porter/convert", convert.Command)
	assert.Equal(t, []string{"--quiet"}, convert.Args)
	assert.Equal(t, "4", convert.Env["RAYON_NUM_THREADS"])

	// untouched entries survive the merge
	assert.Equal(t, string(backend.CreateSite), cfg.Commands[string(backend.CreateSite)].Command)
	require.NoError(t, cfg.Validate())
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Decode([]byte("workflw: images\n")))
}

func TestDecodeEmptyDocument(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Decode([]byte("")))
	assert.Equal(t, Default(), cfg)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(envMap(map[string]string{
		EnvWorkflow: "images",
		EnvDialogs:  DialogsNative,
		EnvLogLevel: "warning",
	}))
	assert.Equal(t, "images", cfg.Workflow)
	assert.Equal(t, DialogsNative, cfg.Dialogs)
	assert.Equal(t, "warning", cfg.LogLevel)

	cfg.ApplyEnv(envMap(map[string]string{EnvDebug: "1", EnvLogLevel: "error"}))
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown workflow", func(c *Config) { c.Workflow = "video" }},
		{"unknown dialogs", func(c *Config) { c.Dialogs = "gtk" }},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }},
		{"negative timeout", func(c *Config) { c.CommandTimeout = -time.Second }},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }},
		{"missing command", func(c *Config) { delete(c.Commands, string(backend.CreateSite)) }},
		{"blank command", func(c *Config) {
			c.Commands[string(backend.CreateSite)] = backend.ProcessConfig{Command: " "}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvWorkflow, "")
	t.Setenv(EnvDialogs, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvDebug, "")

	path := filepath.Join(t.TempDir(), "porter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dialogs: native\nlog_format: json\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DialogsNative, cfg.Dialogs)
	assert.Equal(t, "json", cfg.LogFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRegistryIsACopy(t *testing.T) {
	cfg := Default()
	registry := cfg.Registry()
	delete(registry, string(backend.CreateSite))

	assert.Contains(t, cfg.Commands, string(backend.CreateSite))
}
