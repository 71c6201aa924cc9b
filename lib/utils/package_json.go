package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type PackageJSON struct {
	Name           string          `json:"name,omitempty"`
	Version        string          `json:"version,omitempty"`
	Private        bool            `json:"private,omitempty"`
	License        string          `json:"license,omitempty"`
	Licenses       json.RawMessage `json:"licenses,omitempty"`       // legacy, list of strings or {type} objects
	Author         json.RawMessage `json:"author,omitempty"`         // string or {name, email}
	PackageManager string          `json:"packageManager,omitempty"` // e.g., "pnpm@8.6.0"
}

func ReadPackageJSON(dir string) (*PackageJSON, error) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil, err
	}

	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("invalid package.json in %s: %w", dir, err)
	}
	return &pkg, nil
}

// LicenseExpression returns the SPDX expression of the package, combining legacy
// "licenses" lists with OR. Compound expressions are wrapped in parentheses.
func (p *PackageJSON) LicenseExpression() string {
	license := p.License
	if license == "" && len(p.Licenses) > 0 {
		var entries []json.RawMessage
		if err := json.Unmarshal(p.Licenses, &entries); err == nil {
			var parts []string
			for _, entry := range entries {
				var s string
				if json.Unmarshal(entry, &s) == nil {
					parts = append(parts, s)
					continue
				}
				var obj struct {
					Type string `json:"type"`
				}
				if json.Unmarshal(entry, &obj) == nil && obj.Type != "" {
					parts = append(parts, obj.Type)
				}
			}
			license = strings.Join(parts, " OR ")
		} else {
			_ = json.Unmarshal(p.Licenses, &license)
		}
	}

	license = strings.TrimSpace(license)
	if strings.Contains(license, " ") && !strings.HasPrefix(license, "(") {
		license = "(" + license + ")"
	}
	return license
}

// AuthorName returns the author as "Name <mail>", falling back to "<name> developers".
func (p *PackageJSON) AuthorName() string {
	if len(p.Author) > 0 {
		var s string
		if json.Unmarshal(p.Author, &s) == nil && s != "" {
			return s
		}
		var obj struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Mail  string `json:"mail"`
		}
		if json.Unmarshal(p.Author, &obj) == nil && obj.Name != "" {
			mail := obj.Email
			if mail == "" {
				mail = obj.Mail
			}
			if mail != "" {
				return fmt.Sprintf("%s <%s>", obj.Name, mail)
			}
			return obj.Name
		}
	}
	return p.Name + " developers"
}

// FindPackageJSON walks up from dir until it finds a package.json, stopping at stop.
// An empty stop walks up to the file system root.
func FindPackageJSON(dir, stop string) (string, error) {
	for {
		candidate := filepath.Join(dir, "package.json")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir || dir == stop {
			return "", errors.New("no package.json found")
		}
		dir = parent
	}
}
