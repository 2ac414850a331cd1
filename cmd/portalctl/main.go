// Package main provides the helpdesk portal administration CLI.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-portal/cmd/portalctl/commands"
	"github.com/spec-kit/helpdesk-portal/internal/config"
	"github.com/spec-kit/helpdesk-portal/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	rootCmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Helpdesk portal administration tool",
		Long: `Helpdesk portal administration tool.

Runs migrations and escalation sweeps outside the API server and
offers helpers for inspecting SLA arithmetic and minting test tokens.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.MigrateCommand(cfg, logger))
	rootCmd.AddCommand(commands.EscalateCommand(cfg, logger))
	rootCmd.AddCommand(commands.BusinessDaysCommand(cfg))
	rootCmd.AddCommand(commands.TokenCommand(cfg))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
