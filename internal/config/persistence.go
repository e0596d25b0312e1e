// file: internal/config/persistence.go
// version: 2.0.0
// guid: 9c8d7e6f-5a4b-3c2d-1e0f-9a8b7c6d5e4f

package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// redacted replaces secrets in rendered output.
const redacted = "<redacted>"

// Render returns the effective configuration as YAML. Secrets are masked unless
// includeSecrets is set.
func Render(cfg Config, includeSecrets bool) ([]byte, error) {
	if !includeSecrets {
		if cfg.Hardcover.SearchKey != "" {
			cfg.Hardcover.SearchKey = redacted
		}
		if len(cfg.Auth.APIKeyHashes) > 0 {
			masked := make([]string, len(cfg.Auth.APIKeyHashes))
			for i := range masked {
				masked[i] = redacted
			}
			cfg.Auth.APIKeyHashes = masked
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// SaveConfigToFile writes cfg as a YAML config file that viper can read back.
// It refuses to overwrite an existing file.
func SaveConfigToFile(cfg Config, path string) error {
	if path == "" {
		return fmt.Errorf("cannot determine config file path")
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file %s already exists", path)
	}

	data, err := Render(cfg, true)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}

	// Write with restrictive permissions since it may contain secrets
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Printf("[INFO] Configuration saved to file: %s", path)
	return nil
}
