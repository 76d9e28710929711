package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithDefaults_Succeeds(t *testing.T) {
	// Ensure envs are clean to use defaults
	os.Unsetenv("DB_PATH")
	os.Unsetenv("GRPC_ADDRESS")
	os.Unsetenv("HTTP_ADDRESS")
	os.Unsetenv("JWT_SECRET")
	os.Unsetenv("SERVICES")
	cfg, err := LoadWithDefaults()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.GRPC.Address)
	assert.NotEmpty(t, cfg.HTTP.Address)
	assert.NotEmpty(t, cfg.Database.Path)
	assert.NotEmpty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, 30*time.Minute, cfg.RateLimit.CleanupInterval)
	assert.True(t, cfg.HasService(ServiceUsers))
	assert.True(t, cfg.HasService(ServiceBlog))
	assert.True(t, cfg.HasService(ServiceAdmin))
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	// Clear JWT_SECRET ensures error
	os.Unsetenv("JWT_SECRET")
	t.Setenv("DB_PATH", "test.db")
	t.Setenv("GRPC_ADDRESS", ":1234")
	_, err := Load()
	require.Error(t, err)

	// When set, it should succeed
	t.Setenv("JWT_SECRET", "x")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test.db", cfg.Database.Path)
}

func TestLoadForEnvironment_DevSecretOnlyInDevelopment(t *testing.T) {
	os.Unsetenv("JWT_SECRET")
	t.Setenv("LOG_DEVELOPMENT", "false")
	_, err := LoadForEnvironment()
	require.Error(t, err)

	t.Setenv("LOG_DEVELOPMENT", "true")
	cfg, err := LoadForEnvironment()
	require.NoError(t, err)
	assert.True(t, cfg.UsesDevSecret())

	t.Setenv("LOG_DEVELOPMENT", "false")
	t.Setenv("JWT_SECRET", "prod-secret")
	cfg, err = LoadForEnvironment()
	require.NoError(t, err)
	assert.False(t, cfg.UsesDevSecret())
}

func TestLoad_ServicesSubset(t *testing.T) {
	t.Setenv("SERVICES", "Blog, admin")
	cfg, err := LoadWithDefaults()
	require.NoError(t, err)
	assert.False(t, cfg.HasService(ServiceUsers))
	assert.True(t, cfg.HasService(ServiceBlog))
	assert.True(t, cfg.HasService(ServiceAdmin))

	t.Setenv("SERVICES", "blog,search")
	_, err = LoadWithDefaults()
	require.Error(t, err)
}

func TestLoad_InvalidNumbers(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "lots")
	_, err := LoadWithDefaults()
	require.Error(t, err)
}

func TestString_MasksSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "super-secret-value")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, strings.Contains(cfg.String(), "super-secret-value"))
}
