package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
db:
  name: booking_test
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "booking_test", cfg.Database.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 6, cfg.Identity.PasswordMinLength)
	assert.True(t, cfg.Identity.PasswordRequireDigit)
	assert.True(t, cfg.Audit.TrailEnabled)
	assert.Equal(t, "admin", cfg.Admin.UserName)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  jwt_secret: "0123456789abcdef0123456789abcdef"
server:
  port: 9000
`)
	t.Setenv("SRB_SERVER_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoad_ShortSecretRejected(t *testing.T) {
	path := writeConfigFile(t, `
auth:
  jwt_secret: "too-short"
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Auth:     AuthConfig{JWTSecret: "0123456789abcdef0123456789abcdef", AccessTokenTTL: time.Hour},
			Identity: IdentityConfig{PasswordMinLength: 6},
			Admin:    AdminConfig{UserName: "admin", Email: "admin@localhost"},
		}
	}

	assert.NoError(t, valid().Validate())

	c := valid()
	c.Server.Port = 70000
	assert.Error(t, c.Validate())

	c = valid()
	c.Auth.JWTSecret = ""
	assert.Error(t, c.Validate())

	c = valid()
	c.Admin.Email = ""
	assert.Error(t, c.Validate())
}
