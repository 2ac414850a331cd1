package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-portal/internal/auth"
	"github.com/spec-kit/helpdesk-portal/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{JWTSecret: "cli-secret", AccessTokenTTLMinutes: 5},
		Escalation: config.EscalationConfig{
			Timezone:                      "UTC",
			WarningDays:                   3,
			CriticalDays:                  10,
			UnassignedNotifyThresholdDays: 2,
		},
	}
}

func TestBusinessDaysCommand(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"same day", []string{"--from", "2024-06-03", "--to", "2024-06-03"}, "business_days=1 tier=normal"},
		{"friday to monday", []string{"--from", "2024-06-07", "--to", "2024-06-10"}, "business_days=2 tier=normal"},
		{"over a week", []string{"--from", "2024-06-03", "--to", "2024-06-13"}, "business_days=9 tier=warning"},
		{"past critical", []string{"--from", "2024-05-01", "--to", "2024-06-03"}, "business_days=24 tier=critical"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := BusinessDaysCommand(testConfig())
			cmd.SetOut(&out)
			cmd.SetArgs(tc.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tc.want, strings.TrimSpace(out.String()))
		})
	}
}

func TestBusinessDaysCommandRejectsBadDate(t *testing.T) {
	cmd := BusinessDaysCommand(testConfig())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--from", "03/06/2024"})

	assert.Error(t, cmd.Execute())
}

func TestTokenCommandMintsParseableToken(t *testing.T) {
	cfg := testConfig()
	var out bytes.Buffer
	cmd := TokenCommand(cfg)
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--profile", "u-alice", "--email", "alice@example.com"})

	require.NoError(t, cmd.Execute())

	claims, err := auth.NewTokenManager(cfg.Auth).ParseToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-alice", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestTokenCommandRequiresProfile(t *testing.T) {
	cmd := TokenCommand(testConfig())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	assert.Error(t, cmd.Execute())
}
