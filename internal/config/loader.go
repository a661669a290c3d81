package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when the filters file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadFiltersFile loads keyword filter mappings from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadFiltersFile(path string) (*FilterFile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var ff FilterFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, err
	}

	if ff.Keywords == nil {
		ff.Keywords = make(map[string]map[string]string)
	}

	return &ff, nil
}

// FindFiltersFile searches for the filters file in the following order:
// 1. If path is specified, use it directly
// 2. Look for wbwatch.yaml in the current directory
// 3. Look for wbwatch.yaml in the XDG config directory
//
// Returns the path to the file if found, or empty string if not found.
func FindFiltersFile(path string) string {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultFiltersFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), DefaultFiltersFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
