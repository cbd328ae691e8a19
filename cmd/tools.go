package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to models",
	RunE:  runTools,
}

func runTools(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return err
	}

	registry := tools.DefaultRegistry(cfg.WorkspacePath())

	fmt.Printf("%s Tools (workspace: %s)\n\n", logo, cfg.WorkspacePath())
	for _, desc := range registry.Descriptors() {
		fmt.Printf("  %-14s %s\n", desc.Name, desc.Description)
	}
	return nil
}
