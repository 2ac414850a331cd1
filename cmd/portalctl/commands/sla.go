package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-portal/internal/config"
	"github.com/spec-kit/helpdesk-portal/internal/sla"
)

const dateLayout = "2006-01-02"

// BusinessDaysCommand prints the business days between two dates and the
// escalation tier they fall in.
func BusinessDaysCommand(cfg *config.Config) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "business-days",
		Short: "Count business days between two dates",
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := cfg.Escalation.Location()
			if err != nil {
				return err
			}
			start, err := time.ParseInLocation(dateLayout, from, loc)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			end := time.Now().In(loc)
			if to != "" {
				if end, err = time.ParseInLocation(dateLayout, to, loc); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			policy := sla.Policy{
				WarningDays:                   cfg.Escalation.WarningDays,
				CriticalDays:                  cfg.Escalation.CriticalDays,
				UnassignedNotifyThresholdDays: cfg.Escalation.UnassignedNotifyThresholdDays,
			}
			days := sla.BusinessDaysBetween(start, end)
			fmt.Fprintf(cmd.OutOrStdout(), "business_days=%d tier=%s\n", days, policy.Classify(days))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "End date (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("from")

	return cmd
}
