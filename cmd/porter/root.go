package main

import (
	"fmt"
	"os"

	"porter/internal/config"

	"github.com/spf13/cobra"
)

// options holds the command line overrides of the configuration file.
type options struct {
	configPath  string
	workflow    string
	dialogs     string
	logLevel    string
	metricsAddr string
}

var rootOpts options

var rootCmd = &cobra.Command{
	Use:   "porter",
	Short: "Porter is a desktop shell for external conversion commands",
	Long: `Porter lets you pick files and folders with dialogs and hands them to an
external command backend (convert_images, create_site), showing its progress
and result in a single window.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, rootOpts)
		if err != nil {
			return err
		}
		return runShell(cfg)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	bindFlags(rootCmd, &rootOpts)
}

// bindFlags registers the persistent flags shared by every subcommand.
func bindFlags(cmd *cobra.Command, opts *options) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&opts.workflow, "workflow", "", "Workflow to show (images, site)")
	flags.StringVar(&opts.dialogs, "dialogs", "", "Dialog provider (fyne, native)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

// loadConfig layers file, environment and explicitly set flags, then
// validates the result.
func loadConfig(cmd *cobra.Command, opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("workflow") {
		cfg.Workflow = opts.workflow
	}
	if flags.Changed("dialogs") {
		cfg.Dialogs = opts.dialogs
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = opts.metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
