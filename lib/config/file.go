package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
)

var ErrNoConfigFile = errors.New("no bundlekit configuration file found")

// FileNames are the configuration files DetectFile looks for, in order.
var FileNames = []string{"bundlekit.toml", "bundlekit.json", "bundlekit.jsonc"}

// DetectFile returns the path of the first configuration file found in root.
func DetectFile(root string) (string, error) {
	for _, name := range FileNames {
		path := filepath.Join(root, name)
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", err
		}
		if !info.IsDir() {
			return path, nil
		}
	}

	return "", ErrNoConfigFile
}

// ReadFile parses a toml, json or jsonc configuration file into a map.
func ReadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	values := map[string]any{}
	switch filepath.Ext(path) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &values); err != nil {
			return nil, fmt.Errorf("invalid configuration file %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &values); err != nil {
			return nil, fmt.Errorf("invalid configuration file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("invalid configuration file %s: unsupported format", path)
	}

	return values, nil
}
