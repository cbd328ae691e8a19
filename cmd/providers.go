package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/providers"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List supported providers and their configuration",
	RunE:  runProviders,
}

func runProviders(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return err
	}

	fmt.Printf("%s Providers\n\n", logo)
	for _, spec := range providers.Specs {
		pc := cfg.Providers.ByName(spec.Name)

		mark := "(not set)"
		switch {
		case pc.APIKey != "":
			mark = "✓"
		case os.Getenv(spec.EnvKey) != "":
			mark = "✓ (" + spec.EnvKey + ")"
		}

		model := pc.Model
		if model == "" {
			model = spec.DefaultModel
		}

		fmt.Printf("  %-18s %s\n", spec.Label(), mark)
		fmt.Printf("    id: %s  aliases: %s\n", spec.Name, strings.Join(spec.Aliases, ", "))
		fmt.Printf("    model: %s\n", model)
	}

	fmt.Printf("\nDefault provider: %s\n", cfg.Routing.DefaultProvider)
	if cfg.Routing.ClassifierEndpoint != "" {
		fmt.Println("Auto routing: classifier configured ✓")
	} else {
		fmt.Println("Auto routing: no classifier (auto falls back to the default provider)")
	}
	return nil
}
