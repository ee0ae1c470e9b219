package main

import (
	"fmt"
	"io"
	"os/exec"
	"sort"

	"porter/internal/config"
	"porter/internal/models"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration and locate backend executables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, rootOpts)
		if err != nil {
			return err
		}
		return reportConfig(cmd.OutOrStdout(), cfg, exec.LookPath)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

// reportConfig prints the active workflow and where each command resolves.
// It fails when the workflow's own command cannot be found.
func reportConfig(w io.Writer, cfg *config.Config, lookPath func(string) (string, error)) error {
	workflow, err := models.LookupWorkflow(cfg.Workflow)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "workflow: %s (%s)\n", workflow.Name, workflow.Command)
	fmt.Fprintf(w, "dialogs:  %s\n", cfg.Dialogs)

	names := make([]string, 0, len(cfg.Commands))
	for name := range cfg.Commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var missing error
	for _, name := range names {
		proc := cfg.Commands[name]
		resolved, err := lookPath(proc.Command)
		if err != nil {
			fmt.Fprintf(w, "  %-16s %s (not found)\n", name, proc.Command)
			if name == string(workflow.Command) {
				missing = fmt.Errorf("executable for %s: %w", name, err)
			}
			continue
		}
		fmt.Fprintf(w, "  %-16s %s\n", name, resolved)
	}
	return missing
}
