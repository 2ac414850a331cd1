package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("ESCALATION_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "helpdesk-portal", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 3, cfg.Escalation.WarningDays)
	assert.Equal(t, 10, cfg.Escalation.CriticalDays)
	assert.Equal(t, 2, cfg.Escalation.UnassignedNotifyThresholdDays)
	assert.Equal(t, 36*time.Hour, cfg.Escalation.DedupeTTL())
	assert.False(t, cfg.Notification.Enabled)

	loc, err := cfg.Escalation.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ESCALATION_WARNING_DAYS", "5")
	t.Setenv("ESCALATION_CRITICAL_DAYS", "15")
	t.Setenv("ESCALATION_TIMEZONE", "Europe/Berlin")
	t.Setenv("NOTIFY_ENABLED", "true")
	t.Setenv("NOTIFY_PORTAL_URL", "https://helpdesk.example.com/")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 30, cfg.App.RequestTimeoutSeconds)
	assert.Equal(t, 5, cfg.Escalation.WarningDays)
	assert.Equal(t, 15, cfg.Escalation.CriticalDays)
	assert.True(t, cfg.Notification.Enabled)
	assert.Equal(t, "https://helpdesk.example.com", cfg.Notification.PortalURL)
}

func TestLoadRejectsInvertedThresholds(t *testing.T) {
	t.Setenv("ESCALATION_WARNING_DAYS", "12")
	t.Setenv("ESCALATION_CRITICAL_DAYS", "10")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownTimezone(t *testing.T) {
	t.Setenv("ESCALATION_TIMEZONE", "Mars/Olympus_Mons")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "primary")

	_, err := Load()
	assert.Error(t, err)
}
