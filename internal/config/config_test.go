package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Setenv("PLATFORM_EMAIL", "me@example.com")
	t.Setenv("PLATFORM_PASSWORD", "secret")
}

func Test_Config_DefaultFile_ShouldLoad(t *testing.T) {
	setCredentials(t)

	cfg, err := Load("../../configs/config.yaml")

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Session.MaxLoginAttempts)
	assert.Equal(t, 2*time.Hour, cfg.Scheduler.DiscoveryInterval)
	assert.Equal(t, 3, cfg.Limits.MaxEmptyBatches)
	assert.Equal(t, 720*time.Hour, cfg.Retention.JobRetention)
	assert.False(t, cfg.Bot.Enabled())
	assert.False(t, cfg.AI.Enabled())
}

func Test_Config_EnvironmentOverrideWorksCorrect(t *testing.T) {
	setCredentials(t)
	t.Setenv("TG_TOKEN", "overrideToken")
	t.Setenv("TG_CHAT_ID", "42")
	t.Setenv("AI_KEY", "overrideKey")
	t.Setenv("AI_MODEL", "super_duper_model")
	t.Setenv("DISCOVERY_INTERVAL", "3h")
	t.Setenv("MAX_APPLICATIONS_PER_DAY", "5")
	t.Setenv("HEADLESS", "false")
	t.Setenv("INTERACTIVE", "true")
	t.Setenv("DB_CONNECTION_STRING", "newConnectionString")

	cfg, err := Load("../../configs/config.yaml")

	require.NoError(t, err)
	assert.Equal(t, "me@example.com", cfg.Session.Email)
	assert.Equal(t, "overrideToken", cfg.Bot.Token)
	assert.Equal(t, int64(42), cfg.Bot.ChatID)
	assert.Equal(t, "overrideKey", cfg.AI.Key)
	assert.Equal(t, "super_duper_model", cfg.AI.Model)
	assert.Equal(t, 3*time.Hour, cfg.Scheduler.DiscoveryInterval)
	assert.Equal(t, 5, cfg.Limits.MaxApplicationsPerDay)
	assert.False(t, cfg.Browser.Headless)
	assert.True(t, cfg.Session.Interactive)
	assert.Equal(t, "newConnectionString", cfg.DB.ConnectionString)
}

func Test_Config_MissingCredentials_ShouldFail(t *testing.T) {
	t.Setenv("PLATFORM_EMAIL", "")
	t.Setenv("PLATFORM_PASSWORD", "")

	_, err := Load("../../configs/config.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
	assert.Contains(t, err.Error(), "password")
}

func Test_Config_InteractiveWithoutBot_ShouldFail(t *testing.T) {
	setCredentials(t)
	t.Setenv("INTERACTIVE", "true")

	_, err := Load("../../configs/config.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot.token")
}

func Test_Config_MinimalFile_ShouldFallBackToDefaults(t *testing.T) {
	setCredentials(t)
	t.Setenv("PLATFORM_BASE_URL", "https://jobs.example.com")
	file := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte("limits:\n  min_match_score: 55\n"), 0o600))

	cfg, err := Load(file)

	require.NoError(t, err)
	assert.Equal(t, 55, cfg.Limits.MinMatchScore)
	assert.Equal(t, 10, cfg.Limits.MaxApplicationsPerDay)
	assert.Equal(t, "0 3 * * *", cfg.Scheduler.MaintenanceCron)
	assert.Equal(t, LevelInfo, cfg.Logger.LogLevel)
}

func Test_Config_InvalidBusinessHours_ShouldFail(t *testing.T) {
	setCredentials(t)
	file := filepath.Join(t.TempDir(), "config.yaml")
	content := "session:\n  base_url: https://jobs.example.com\nscheduler:\n  business_hours_start: 18\n  business_hours_end: 9\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

	_, err := Load(file)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "business hours")
}
