// file: internal/config/persistence_test.go
// version: 2.0.0
// guid: 5e6f7a8b-9c0d-1e2f-3a4b-5c6d7e8f9a0b

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestRender_MasksSecrets(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)
	viper.Set("auth.api_key_hashes", []string{"hash-one"})
	InitConfig()

	data, err := Render(AppConfig, false)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "cf0jYiqkIXNYh2EnJr1RqHIYJbKOGoGk")
	assert.NotContains(t, string(data), "hash-one")
	assert.Contains(t, string(data), redacted)

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	server := decoded["server"].(map[string]any)
	assert.Equal(t, 7790, server["port"])
	assert.Equal(t, "1m0s", decoded["ratelimit"].(map[string]any)["window"])

	// The caller's config is untouched.
	assert.Equal(t, []string{"hash-one"}, AppConfig.Auth.APIKeyHashes)
}

func TestSaveConfigToFile_RoundTripsThroughViper(t *testing.T) {
	resetConfigTestState()
	t.Cleanup(resetConfigTestState)
	InitConfig()
	cfg := AppConfig
	cfg.Server.Port = 9999
	cfg.Credentials.Validity = 48 * time.Hour

	path := filepath.Join(t.TempDir(), "conf", "config.yaml")
	require.NoError(t, SaveConfigToFile(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	assert.Error(t, SaveConfigToFile(cfg, path), "existing file is not overwritten")

	resetConfigTestState()
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())
	InitConfig()
	assert.Equal(t, 9999, AppConfig.Server.Port)
	assert.Equal(t, 48*time.Hour, AppConfig.Credentials.Validity)
	assert.Equal(t, "cf0jYiqkIXNYh2EnJr1RqHIYJbKOGoGk", AppConfig.Hardcover.SearchKey)
}

func TestSaveConfigToFile_EmptyPath(t *testing.T) {
	assert.Error(t, SaveConfigToFile(Config{}, ""))
}
