package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/embedscan/internal/core/domain"
)

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"short", "****"},
		{"12345678", "****"},
		{"abcd1234efgh", "abcd...efgh"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, maskAPIKey(tt.key))
		})
	}
}

func TestSettingsShowCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.values[accessTokenKey] = "abcd1234efgh"

	out, err := execute("settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "File: /tmp/embedscan/config.toml")
	assert.Contains(t, out, "Backend: Redis list (BLPOP)")
	assert.Contains(t, out, "Access Token: abcd...efgh")
	assert.Contains(t, out, "Majority Threshold: 0.50")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsCmd_DefaultsToShow(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("settings")
	require.NoError(t, err)
	assert.Contains(t, out, "Access Token: (not set)")
}

func TestSettingsShowCmd_ValidationWarning(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.validateErr = domain.ErrInvalidInput

	out, err := execute("settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Warning:")
}

func TestSettingsKeysCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.values[accessTokenKey] = "secret-token"

	out, err := execute("settings", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "queue.key = (default)")
	assert.Contains(t, out, accessTokenKey+" = ********")
}

func TestSettingsSetCmd(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("settings", "set", "queue.key", "uploads")
	require.NoError(t, err)
	assert.Equal(t, "uploads", ts.settings.values["queue.key"])
	assert.Contains(t, out, "Set queue.key = uploads")
}

func TestSettingsSetCmd_Error(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.settings.setErr = domain.ErrInvalidInput

	_, err := execute("settings", "set", "nope", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsSetCmd_RequiresTwoArgs(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("settings", "set", "queue.key")
	assert.Error(t, err)
}
