package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/providers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show switchboard status",
	RunE:  runStatus,
}

func runStatus(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	fmt.Printf("%s switchboard Status\n\n", logo)

	fmt.Printf("Config:    %s %s\n", cfgPath, existsMark(cfgPath))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  (could not load config: %v)\n", err)
		return nil
	}

	fmt.Printf("Workspace: %s %s\n", cfg.WorkspacePath(), existsMark(cfg.WorkspacePath()))
	fmt.Printf("Sessions:  %s %s\n", cfg.SessionsDir(), existsMark(cfg.SessionsDir()))
	fmt.Printf("Routing:   default=%s", cfg.Routing.DefaultProvider)
	if cfg.Routing.ClassifierEndpoint != "" {
		fmt.Print("  classifier=✓")
	}
	fmt.Println()

	fmt.Println("\nProviders:")
	for _, spec := range providers.Specs {
		pc := cfg.Providers.ByName(spec.Name)
		switch {
		case pc.APIKey != "":
			fmt.Printf("  %-20s ✓\n", spec.Label())
		case os.Getenv(spec.EnvKey) != "":
			fmt.Printf("  %-20s ✓ (env)\n", spec.Label())
		default:
			fmt.Printf("  %-20s (not set)\n", spec.Label())
		}
	}

	fmt.Println("\nChannels:")
	fmt.Printf("  telegram: %s\n", enabledMark(cfg.Channels.Telegram.Enabled))
	fmt.Printf("  slack:    %s\n", enabledMark(cfg.Channels.Slack.Enabled))

	if n := len(cfg.Cron.Jobs); n > 0 {
		fmt.Printf("\nCron jobs: %d\n", n)
	}
	return nil
}

func existsMark(path string) string {
	if _, err := os.Stat(path); err == nil {
		return "✓"
	}
	return "✗"
}

func enabledMark(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
