package prismcli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// Config is the on-disk, JSONC-formatted configuration for prismctl,
// loaded from .prismctl.json in the working directory if present.
type Config struct {
	DirectoryName   string `json:"directory_name,omitempty"`
	ParentDirectory string `json:"parent_directory,omitempty"`
	MaxDiskBytes    uint64 `json:"max_disk_bytes,omitempty"`
	MaxMemory       uint32 `json:"max_memory,omitempty"`
	JitterLoMS      uint64 `json:"jitter_lo_ms,omitempty"`
	JitterHiMS      uint64 `json:"jitter_hi_ms,omitempty"`
}

// ConfigFileName is the default config file name, read from the current
// working directory.
const ConfigFileName = ".prismctl.json"

// LoadConfig reads and parses path, allowing JSON-with-comments (JSONC) via
// hujson. A missing file yields the zero Config, not an error.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}

		return Config{}, fmt.Errorf("prismcli: read config %q: %w", path, err)
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("prismcli: invalid JSONC in %q: %w", path, err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("prismcli: invalid config %q: %w", path, err)
	}

	return cfg, nil
}

// DefaultConfigPath returns the default config file path under dir.
func DefaultConfigPath(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}
