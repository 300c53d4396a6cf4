package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "test-signing-key")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "development")

	require.NoError(t, LoadConfig())

	assert.Equal(t, "development", AppConfig.Environment)
	assert.Equal(t, "5000", AppConfig.ServerPort)
	assert.Equal(t, "campuscms", AppConfig.DBName)
	assert.Equal(t, 587, AppConfig.SMTP.Port)
	assert.Equal(t, 5, AppConfig.SendWorkers)
	assert.False(t, AppConfig.IMAP.Enabled)
	assert.False(t, AppConfig.Redis.Enabled)
}

func TestLoadConfigRequiresDBPassword(t *testing.T) {
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("JWT_SECRET", "test-signing-key")

	err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PASSWORD")
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("JWT_SECRET", "")

	err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadConfigProductionRequiresAdminHash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_PASSWORD_HASH")
}

func TestLoadConfigEnablesOptionalServices(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IMAP_HOST", "imap.uni.edu")
	t.Setenv("REDIS_ADDRESS", "localhost:6379")
	t.Setenv("SEND_WORKERS", "12")
	t.Setenv("SEND_REQUEST_TIMEOUT_SECONDS", "10")

	require.NoError(t, LoadConfig())

	assert.True(t, AppConfig.IMAP.Enabled)
	assert.Equal(t, "imap.uni.edu", AppConfig.IMAP.Host)
	assert.Equal(t, 993, AppConfig.IMAP.Port)
	assert.True(t, AppConfig.Redis.Enabled)
	assert.Equal(t, 12, AppConfig.SendWorkers)
	assert.Equal(t, "10s", AppConfig.SendRequestTimeout.String())
}

func TestGetEnvAsIntFallback(t *testing.T) {
	t.Setenv("TEST_INT_VALUE", "not-a-number")
	assert.Equal(t, 7, getEnvAsInt("TEST_INT_VALUE", 7))

	t.Setenv("TEST_INT_VALUE", "42")
	assert.Equal(t, 42, getEnvAsInt("TEST_INT_VALUE", 7))
}

func TestMaskPassword(t *testing.T) {
	masked := maskPassword("host=localhost password=hunter2 dbname=campuscms")
	assert.NotContains(t, masked, "hunter2")
	assert.Contains(t, masked, "password=*****")

	assert.Equal(t, "host=localhost", maskPassword("host=localhost"))
}
