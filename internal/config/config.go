package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"porter/internal/backend"
	"porter/internal/models"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Dialog providers
const (
	DialogsFyne   = "fyne"
	DialogsNative = "native"
)

// Environment overrides
const (
	EnvWorkflow = "PORTER_WORKFLOW"
	EnvDialogs  = "PORTER_DIALOGS"
	EnvLogLevel = "LOG_LEVEL"
	EnvDebug    = "DEBUG"
)

// Config is the complete runtime configuration of the shell.
type Config struct {
	Workflow        string                           `yaml:"workflow" mapstructure:"workflow"`
	Dialogs         string                           `yaml:"dialogs" mapstructure:"dialogs"`
	LogLevel        string                           `yaml:"log_level" mapstructure:"log_level"`
	LogFormat       string                           `yaml:"log_format" mapstructure:"log_format"`
	MetricsAddr     string                           `yaml:"metrics_addr" mapstructure:"metrics_addr"`
	CommandTimeout  time.Duration                    `yaml:"command_timeout" mapstructure:"command_timeout"`
	ShutdownTimeout time.Duration                    `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	BaseDir         string                           `yaml:"base_dir" mapstructure:"base_dir"`
	Commands        map[string]backend.ProcessConfig `yaml:"commands" mapstructure:"commands"`
}

// Default returns the configuration used when no file is given. Each command
// runs an executable of the same name found on PATH.
func Default() *Config {
	return &Config{
		Workflow:  "site",
		Dialogs:   DialogsFyne,
		LogLevel:  "info",
		LogFormat: "console",

		ShutdownTimeout: 10 * time.Second,

		Commands: map[string]backend.ProcessConfig{
			string(backend.ConvertImages): {Command: string(backend.ConvertImages)},
			string(backend.CreateSite):    {Command: string(backend.CreateSite)},
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.Decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// Decode merges YAML data into cfg. Keys missing from data keep their
// current values; durations accept strings such as "90s".
func (c *Config) Decode(data []byte) error {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           c,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}

// ApplyEnv overrides fields from the environment. DEBUG=1 wins over
// LOG_LEVEL.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvWorkflow); ok && v != "" {
		c.Workflow = v
	}
	if v, ok := lookup(EnvDialogs); ok && v != "" {
		c.Dialogs = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvDebug); ok && v == "1" {
		c.LogLevel = "debug"
	}
}

// Validate checks the values that cannot be repaired at runtime.
func (c *Config) Validate() error {
	workflow, err := models.LookupWorkflow(c.Workflow)
	if err != nil {
		return err
	}

	switch strings.ToLower(c.Dialogs) {
	case DialogsFyne, DialogsNative:
	default:
		return fmt.Errorf("unknown dialogs %q (known: %s, %s)", c.Dialogs, DialogsFyne, DialogsNative)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}

	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must not be negative, got %s", c.CommandTimeout)
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %s", c.ShutdownTimeout)
	}

	proc, ok := c.Commands[string(workflow.Command)]
	if !ok || strings.TrimSpace(proc.Command) == "" {
		return fmt.Errorf("no executable configured for command %s", workflow.Command)
	}
	return nil
}

// Registry returns a copy of the command table for the invoker.
func (c *Config) Registry() map[string]backend.ProcessConfig {
	out := make(map[string]backend.ProcessConfig, len(c.Commands))
	for name, proc := range c.Commands {
		out[name] = proc
	}
	return out
}
