package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-portal/internal/app"
	"github.com/spec-kit/helpdesk-portal/internal/config"
)

// EscalateCommand runs one unassigned-ticket escalation sweep and waits for its
// notifications to go out.
func EscalateCommand(cfg *config.Config, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "escalate",
		Short: "Run the unassigned ticket escalation sweep once",
		Long: `Run the unassigned ticket escalation sweep once.

Tickets already notified today are skipped, so running this next to the
API server's scheduled sweep does not send duplicates.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.Postgres.RunMigrations = false
			container, err := app.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer container.Close()

			scheduler, err := container.NewScheduler()
			if err != nil {
				return err
			}
			result, err := scheduler.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d due=%d notified=%d suppressed=%d\n",
				result.Scanned, result.Due, result.Notified, result.Suppressed)
			return nil
		},
	}
}
