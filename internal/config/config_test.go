package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
provider:
  name: Acme
  domain: acme.example.com
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3001, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "Acme", cfg.Provider.Name)
	assert.Equal(t, 32, cfg.Session.SSEBufferSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("MCPI_DOMAIN", "from-env.example.com")
	path := writeTempConfig(t, `
provider:
  domain: ${MCPI_DOMAIN}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.example.com", cfg.Provider.Domain)
}

func TestLoadLeavesUnsetVarPlaceholderIntact(t *testing.T) {
	path := writeTempConfig(t, `
provider:
  domain: ${MCPI_UNSET_VAR}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "${MCPI_UNSET_VAR}", cfg.Provider.Domain)
}

func TestReferralsAsWire(t *testing.T) {
	cfg := &Config{Referrals: []ReferralConfig{
		{Name: "Partner", Domain: "partner.example.com", Relationship: "affiliate"},
	}}
	wire := cfg.ReferralsAsWire()
	require.Len(t, wire, 1)
	assert.Equal(t, "Partner", wire[0].Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
