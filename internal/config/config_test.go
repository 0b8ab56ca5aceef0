package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stumpfworks/asterisk-ami/internal/config"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "amictl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, "ami:\n  username: admin\n  secret: s3cr3t-value\n")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.AMI.Host)
	assert.Equal(t, 5038, cfg.AMI.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.API.Enabled)
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	path := writeConfigFile(t, "ami:\n  host: 10.0.0.5\n")
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoadRejectsAPIEnabledWithoutPort(t *testing.T) {
	path := writeConfigFile(t, "ami:\n  username: admin\n  secret: s3cr3t-value\napi:\n  enabled: true\n  port: 0\n")
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestAMIConfigAddress(t *testing.T) {
	cfg := config.AMIConfig{Host: "asterisk.lan", Port: 5038}
	assert.Equal(t, "asterisk.lan:5038", cfg.Address())
}
