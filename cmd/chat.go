package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/dependency"
	"github.com/switchboard-ai/switchboard/internal/orchestrator"
	"github.com/switchboard-ai/switchboard/internal/providers"
	"github.com/switchboard-ai/switchboard/internal/router"
	"github.com/switchboard-ai/switchboard/internal/schema"
	"github.com/switchboard-ai/switchboard/internal/shared/cmdutils"
)

var (
	chatMessage  string
	chatSession  string
	chatProvider string
	chatMode     string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a model",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "cli:direct", "Session ID")
	chatCmd.Flags().StringVarP(&chatProvider, "provider", "p", "auto", "Provider id, alias, or \"auto\"")
	chatCmd.Flags().StringVar(&chatMode, "mode", "", "Mode preamble (deep_research, think, write_code, image)")
}

var exitCommands = map[string]bool{
	"exit":  true,
	"quit":  true,
	"/exit": true,
	"/quit": true,
	":q":    true,
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}
	orch := container.Orchestrator()

	if chatMessage != "" {
		return runSingleMessage(orch, chatMessage)
	}
	return runInteractive(orch)
}

// runSingleMessage runs one turn and prints the response.
func runSingleMessage(orch *orchestrator.Orchestrator, message string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	fmt.Fprintf(os.Stderr, "  ↳ thinking...\n")
	result, err := orch.Chat(ctx, orchestrator.Request{
		SessionID:        chatSession,
		Message:          schema.NewUserText(message),
		ProviderSelector: chatProvider,
		Mode:             chatMode,
	})
	if err != nil {
		return err
	}

	cmdutils.PrintResponse(result.ResponseText)
	cmdutils.PrintTurnInfo(result)
	return nil
}

// runInteractive starts the REPL: each line is one turn against the same
// session. "/provider", "/mode" and "/reset" adjust the session in place.
func runInteractive(orch *orchestrator.Orchestrator) error {
	fmt.Printf("%s Interactive mode (type 'exit' or Ctrl+C to quit)\n", logo)
	fmt.Println("Commands: /provider <name|auto>, /mode <name>, /reset")
	fmt.Println()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	listenForSignals(cancel)

	selector := chatProvider
	mode := chatMode

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if exitCommands[strings.ToLower(line)] {
			fmt.Println("Goodbye!")
			return nil
		}

		if handled := handleReplCommand(orch, line, &selector, &mode); handled {
			continue
		}

		result, err := orch.Chat(ctx, orchestrator.Request{
			SessionID:        chatSession,
			Message:          schema.NewUserText(line),
			ProviderSelector: selector,
			Mode:             mode,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		cmdutils.PrintResponse(result.ResponseText)
		cmdutils.PrintTurnInfo(result)
	}
}

// handleReplCommand processes slash commands, returning true when line
// was a command.
func handleReplCommand(orch *orchestrator.Orchestrator, line string, selector, mode *string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/reset":
		if err := orch.Reset(chatSession); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return true
		}
		fmt.Println("Conversation reset.")
		return true
	case "/provider":
		if len(fields) < 2 {
			fmt.Printf("Current provider: %s\n", *selector)
			return true
		}
		name := fields[1]
		if strings.EqualFold(name, router.SelectorAuto) {
			*selector = router.SelectorAuto
			fmt.Println("Provider: auto")
			return true
		}
		spec := providers.FindByName(name)
		if spec == nil {
			fmt.Printf("Unknown provider %q (available: %v)\n", name, providers.Names())
			return true
		}
		*selector = spec.Name
		fmt.Printf("Provider: %s\n", spec.Label())
		return true
	case "/mode":
		if len(fields) < 2 {
			*mode = ""
			fmt.Println("Mode cleared.")
			return true
		}
		if _, ok := orchestrator.ModePreambles[fields[1]]; !ok {
			fmt.Printf("Unknown mode %q\n", fields[1])
			return true
		}
		*mode = fields[1]
		fmt.Printf("Mode: %s\n", *mode)
		return true
	}
	return false
}

// listenForSignals cancels ctx on SIGINT or SIGTERM and exits.
func listenForSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nGoodbye!")
		cancel()
		os.Exit(0)
	}()
}
