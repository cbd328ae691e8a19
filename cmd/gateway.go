package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/switchboard-ai/switchboard/internal/config"
	"github.com/switchboard-ai/switchboard/internal/dependency"
)

var (
	gatewayHost string
	gatewayPort int
)

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the switchboard service: HTTP API, chat channels, and cron",
	RunE:  runGateway,
}

func init() {
	gatewayCmd.Flags().StringVar(&gatewayHost, "host", "", "Listen host (overrides config)")
	gatewayCmd.Flags().IntVarP(&gatewayPort, "port", "p", 0, "Listen port (overrides config)")
}

func runGateway(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if gatewayHost != "" {
		cfg.Gateway.Host = gatewayHost
	}
	if gatewayPort != 0 {
		cfg.Gateway.Port = gatewayPort
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if enabled := container.Channels().EnabledChannels(); len(enabled) > 0 {
		fmt.Printf("✓ Channels enabled: %s\n", strings.Join(enabled, ", "))
	} else {
		fmt.Println("No chat channels enabled.")
	}
	if n := container.Cron().Jobs(); n > 0 {
		fmt.Printf("✓ Cron jobs: %d\n", n)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return container.Loop().Run(gctx) })
	g.Go(func() error { return container.Channels().StartAll(gctx) })
	g.Go(func() error { return container.Cron().Start(gctx) })
	g.Go(func() error { return container.Gateway().Run(gctx) })

	fmt.Printf("%s Gateway running on http://%s. Press Ctrl+C to stop.\n", logo, container.Gateway().Addr())

	if err := g.Wait(); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "gateway error: %v\n", err)
		return err
	}
	fmt.Println("\nShutdown complete.")
	return nil
}
