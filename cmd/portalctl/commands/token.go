package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk-portal/internal/auth"
	"github.com/spec-kit/helpdesk-portal/internal/config"
)

// TokenCommand mints a bearer token for a profile, signed with the configured
// secret. Intended for local testing against the API.
func TokenCommand(cfg *config.Config) *cobra.Command {
	var profileID, email string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, expires, err := auth.NewTokenManager(cfg.Auth).GenerateToken(profileID, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&profileID, "profile", "", "Profile ID to use as the token subject")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	_ = cmd.MarkFlagRequired("profile")

	return cmd
}
