// Package cmd implements the switchboard CLI using cobra.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"
const logo = "🔀"

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "switchboard",
	Short: logo + " switchboard — multi-provider LLM chat",
	Long:  logo + " switchboard — one chat surface over Anthropic, OpenAI, and Gemini with classifier-driven routing",
}

// Execute runs the root command and exits on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = version

	rootCmd.AddCommand(onboardCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(gatewayCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(statusCmd)
}
