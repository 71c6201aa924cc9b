package utils

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
)

// AppInfo is the subset of appinfo/info.xml the build needs.
type AppInfo struct {
	ID      string `xml:"id"`
	Version string `xml:"version"`
}

// FindAppInfo returns the path of the nearest appinfo/info.xml at or above dir.
func FindAppInfo(dir string) (string, bool) {
	for {
		candidate := filepath.Join(dir, "appinfo", "info.xml")
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func ReadAppInfo(path string) (*AppInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var info AppInfo
	if err := xml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &info, nil
}
