package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DetectPackageManager reads the "packageManager" field of package.json and falls
// back to the lock files found in rootDir. npm is the default.
func DetectPackageManager(rootDir string) (string, error) {
	pkg, err := ReadPackageJSON(rootDir)
	if err != nil {
		return "", err
	}

	if before, _, found := strings.Cut(pkg.PackageManager, "@"); found {
		logDetected(before)
		return before, nil
	}

	lockFiles := []struct {
		file string
		pm   string
	}{
		{"bun.lock", "bun"},
		{"bun.lockb", "bun"},
		{"pnpm-lock.yaml", "pnpm"},
		{"yarn.lock", "yarn"},
		{"package-lock.json", "npm"},
	}

	for _, lf := range lockFiles {
		if _, err := os.Stat(filepath.Join(rootDir, lf.file)); err == nil {
			logDetected(lf.pm)
			return lf.pm, nil
		}
	}

	return "npm", nil
}

// ExecutableCommand returns the command that runs a package binary with pm,
// e.g. "pnpm dlx tsc" or "npx tsc".
func ExecutableCommand(pm string, args ...string) (string, []string, error) {
	switch pm {
	case "npm":
		return "npx", args, nil
	case "yarn", "pnpm":
		return pm, append([]string{"exec"}, args...), nil
	case "bun":
		return "bunx", args, nil
	}
	return "", nil, fmt.Errorf("invalid package manager %s", pm)
}

func logDetected(pm string) {
	LogWithColor(Default, fmt.Sprintf("Detected \033[1m`%s`\033[0m package manager", pm))
}
