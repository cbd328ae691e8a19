package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/switchboard-ai/switchboard/internal/config"
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Initialize configuration and workspace",
	RunE:  runOnboard,
}

func runOnboard(_ *cobra.Command, _ []string) error {
	cfgPath := config.ConfigPath()

	if _, err := os.Stat(cfgPath); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgPath)
		fmt.Printf("Press Enter to refresh (keep existing values) or Ctrl+C to cancel: ")
		fmt.Scanln()
		existing, loadErr := config.Load(cfgPath)
		if loadErr != nil {
			def := config.DefaultConfig()
			existing = &def
		}
		if err := config.Save(existing, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Config refreshed at %s\n", cfgPath)
	} else {
		cfg := config.DefaultConfig()
		if err := config.Save(&cfg, cfgPath); err != nil {
			return err
		}
		fmt.Printf("✓ Created config at %s\n", cfgPath)
	}

	def := config.DefaultConfig()
	if err := os.MkdirAll(def.WorkspacePath(), 0o755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	fmt.Printf("✓ Workspace at %s\n", def.WorkspacePath())

	fmt.Printf("\n%s switchboard is ready!\n\n", logo)
	fmt.Println("Next steps:")
	fmt.Printf("  1. Add provider API keys to %s\n", cfgPath)
	fmt.Println("     (or set ANTHROPIC_API_KEY / OPENAI_API_KEY / GEMINI_API_KEY)")
	fmt.Printf("  2. Chat: switchboard chat -m \"Hello!\"\n")
	return nil
}
