// Package config loads driftwood configuration from a global file in
// the user's home directory and a repository-local file, with the local
// file taking precedence.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config represents driftwood configuration
type Config struct {
	Store StoreConfig `json:"store"`
	Diff  DiffConfig  `json:"diff"`
}

// StoreConfig selects and locates the schema persistence backend
type StoreConfig struct {
	// Backend is "dir" (versioned JSON files) or "bolt" (bbolt database)
	Backend string `json:"backend"`
	// Dir is the schema directory used by the dir backend
	Dir string `json:"dir,omitempty"`
}

// DiffConfig tunes the diff engine
type DiffConfig struct {
	// RenameThreshold is the key-similarity cutoff separating renames
	// from moves, 0.0-1.0
	RenameThreshold float64 `json:"rename_threshold"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "dir",
			Dir:     filepath.Join(".driftwood", "schemas"),
		},
		Diff: DiffConfig{
			RenameThreshold: 0.5,
		},
	}
}

// globalConfigPath returns the path to the global config file
func globalConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".driftwoodconfig"), nil
}

// repoConfigPath returns the path to the repository config file
func repoConfigPath() string {
	return filepath.Join(".driftwood", "config")
}

// LoadConfig loads configuration from both global and repository config
// files. Repository config takes precedence over global config.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	globalPath, err := globalConfigPath()
	if err == nil {
		if data, err := os.ReadFile(globalPath); err == nil {
			var globalCfg Config
			if err := json.Unmarshal(data, &globalCfg); err == nil {
				mergeConfig(cfg, &globalCfg)
			}
		}
	}

	repoPath := repoConfigPath()
	if data, err := os.ReadFile(repoPath); err == nil {
		var repoCfg Config
		if err := json.Unmarshal(data, &repoCfg); err == nil {
			mergeConfig(cfg, &repoCfg)
		}
	}

	return cfg, nil
}

// SaveRepoConfig saves configuration to the repository config file
func SaveRepoConfig(cfg *Config) error {
	repoPath := repoConfigPath()

	if err := os.MkdirAll(filepath.Dir(repoPath), 0755); err != nil {
		return fmt.Errorf("failed to create .driftwood directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(repoPath, data, 0644)
}

// GetValue retrieves a configuration value by key (e.g., "store.backend")
func GetValue(key string) (string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return "", err
	}

	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid config key: %s (expected format: section.key)", key)
	}

	switch parts[0] {
	case "store":
		switch parts[1] {
		case "backend":
			return cfg.Store.Backend, nil
		case "dir":
			return cfg.Store.Dir, nil
		default:
			return "", fmt.Errorf("unknown store config field: %s", parts[1])
		}
	case "diff":
		switch parts[1] {
		case "rename_threshold":
			return strconv.FormatFloat(cfg.Diff.RenameThreshold, 'g', -1, 64), nil
		default:
			return "", fmt.Errorf("unknown diff config field: %s", parts[1])
		}
	default:
		return "", fmt.Errorf("unknown config section: %s", parts[0])
	}
}

// SetValue sets a repository configuration value by key
func SetValue(key, value string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return fmt.Errorf("invalid config key: %s (expected format: section.key)", key)
	}

	switch parts[0] {
	case "store":
		switch parts[1] {
		case "backend":
			if value != "dir" && value != "bolt" {
				return fmt.Errorf("store.backend must be \"dir\" or \"bolt\", got %q", value)
			}
			cfg.Store.Backend = value
		case "dir":
			cfg.Store.Dir = value
		default:
			return fmt.Errorf("unknown store config field: %s", parts[1])
		}
	case "diff":
		switch parts[1] {
		case "rename_threshold":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil || f < 0 || f > 1 {
				return fmt.Errorf("diff.rename_threshold must be a number in [0,1], got %q", value)
			}
			cfg.Diff.RenameThreshold = f
		default:
			return fmt.Errorf("unknown diff config field: %s", parts[1])
		}
	default:
		return fmt.Errorf("unknown config section: %s", parts[0])
	}

	return SaveRepoConfig(cfg)
}

// mergeConfig merges source config into destination config.
// Only non-empty values from source override destination.
func mergeConfig(dst, src *Config) {
	if src.Store.Backend != "" {
		dst.Store.Backend = src.Store.Backend
	}
	if src.Store.Dir != "" {
		dst.Store.Dir = src.Store.Dir
	}
	if src.Diff.RenameThreshold != 0 {
		dst.Diff.RenameThreshold = src.Diff.RenameThreshold
	}
}
