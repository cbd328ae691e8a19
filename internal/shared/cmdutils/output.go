// Package cmdutils holds small output helpers shared by the CLI commands.
package cmdutils

import (
	"fmt"

	"github.com/switchboard-ai/switchboard/internal/schema"
)

const logo = "🔀"

// PrintResponse prints one model reply with the switchboard banner.
func PrintResponse(text string) {
	if text == "" {
		return
	}

	fmt.Printf("\n%s switchboard\n%s\n\n", logo, text)
}

// PrintTurnInfo prints the routing and token summary for one turn.
func PrintTurnInfo(result schema.TurnResult) {
	if result.ProviderUsed == "" {
		return
	}
	via := result.ProviderUsed
	if result.ModelUsed != "" {
		via += "/" + result.ModelUsed
	}
	routed := "direct"
	if result.WasClassified {
		routed = "auto"
	}
	if result.FallbackReason != "" {
		routed = "fallback: " + result.FallbackReason
	}
	fmt.Printf("  [%s · %s · %d tokens this turn · %d total]\n",
		via, routed, result.Usage.Total(), result.TotalTokens)
}
