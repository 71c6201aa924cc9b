package plugins

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"sync"

	"github.com/github/go-spdx/v2/spdxexp"
	"golang.org/x/mod/semver"
	"micromachine.dev/bundlekit/lib/output"
	"micromachine.dev/bundlekit/lib/utils"
)

// Package is the license relevant information of a bundled npm package.
type Package struct {
	Name    string
	Version string
	License string
	Author  string
}

// PackageResolver maps bundled modules to the npm packages they belong to.
// It is safe for concurrent use.
type PackageResolver struct {
	Root string
	// OverwriteLicenses replaces the license of packages by "name" or "name@version".
	OverwriteLicenses map[string]string
	// ValidateLicenses checks that every license is a valid SPDX expression.
	ValidateLicenses bool

	mu       sync.Mutex
	packages map[string]*Package
	licenses map[string]string
}

// ChunkPackages returns the packages of every module in the chunk, deduplicated and
// sorted by name and version. A chunk without modules is attributed to esbuild.
func (r *PackageResolver) ChunkPackages(chunk *output.Chunk) ([]Package, error) {
	if len(chunk.Modules) == 0 {
		return []Package{esbuildPackage()}, nil
	}

	seen := make(map[Package]bool)
	var packages []Package
	var errs []error

	for _, module := range chunk.Modules {
		dir, ok := r.moduleDir(module)
		if !ok {
			slog.Debug("Skipping virtual module", slog.String("module", module))
			continue
		}

		pkg, err := r.findPackage(dir)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if pkg == nil || seen[*pkg] {
			continue
		}
		seen[*pkg] = true
		packages = append(packages, *pkg)
	}

	SortPackages(packages)
	return packages, errors.Join(errs...)
}

// SortPackages orders packages by name, then by semantic version.
func SortPackages(packages []Package) {
	slices.SortFunc(packages, func(a, b Package) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		va, vb := "v"+a.Version, "v"+b.Version
		if semver.IsValid(va) && semver.IsValid(vb) {
			return semver.Compare(va, vb)
		}
		return strings.Compare(a.Version, b.Version)
	})
}

func (r *PackageResolver) moduleDir(module string) (string, bool) {
	if filepath.IsAbs(module) {
		return filepath.Dir(module), true
	}
	// esbuild prefixes modules from plugin namespaces with "<namespace>:"
	if strings.Contains(module, ":") {
		return "", false
	}
	return filepath.Dir(filepath.Join(r.Root, filepath.FromSlash(module))), true
}

func (r *PackageResolver) findPackage(dir string) (*Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findPackageLocked(dir)
}

func (r *PackageResolver) findPackageLocked(dir string) (*Package, error) {
	if r.packages == nil {
		r.packages = make(map[string]*Package)
	}
	if pkg, ok := r.packages[dir]; ok {
		return pkg, nil
	}

	if dir == "" || dir == "." || dir == string(filepath.Separator) || dir == filepath.Dir(r.Root) {
		return nil, nil
	}

	pkgJSON, err := utils.ReadPackageJSON(dir)
	if errors.Is(err, os.ErrNotExist) {
		pkg, err := r.findPackageLocked(filepath.Dir(dir))
		if err != nil {
			return nil, err
		}
		r.packages[dir] = pkg
		return pkg, nil
	}
	if err != nil {
		return nil, err
	}

	// private and nameless package.json files belong to the package above them
	if pkgJSON.Private || pkgJSON.Name == "" {
		parent, err := r.findPackageLocked(filepath.Dir(dir))
		if err != nil {
			return nil, err
		}
		if parent != nil {
			r.packages[dir] = parent
			return parent, nil
		}
	}

	license, err := r.verifyLicense(pkgJSON.LicenseExpression(), pkgJSON.Name, pkgJSON.Version)
	if err != nil {
		return nil, err
	}

	pkg := &Package{
		Name:    pkgJSON.Name,
		Version: pkgJSON.Version,
		License: license,
		Author:  pkgJSON.AuthorName(),
	}
	r.packages[dir] = pkg
	return pkg, nil
}

func (r *PackageResolver) verifyLicense(license, name, version string) (string, error) {
	if r.licenses == nil {
		r.licenses = make(map[string]string)
	}
	key := name + "@" + version
	if cached, ok := r.licenses[key]; ok {
		return cached, nil
	}

	if l, ok := r.OverwriteLicenses[name]; ok && name != "" {
		r.licenses[key] = l
		return l, nil
	}
	if l, ok := r.OverwriteLicenses[key]; ok && name != "" && version != "" {
		r.licenses[key] = l
		return l, nil
	}

	if license == "" {
		return "", fmt.Errorf("no license information for package %s @ %s, consider using the overwrite licenses option", name, version)
	}
	if r.ValidateLicenses {
		if valid, invalid := spdxexp.ValidateLicenses([]string{license}); !valid {
			return "", fmt.Errorf("invalid license information %q for package %s @ %s: %s", license, name, version, strings.Join(invalid, ", "))
		}
	}

	r.licenses[key] = license
	return license, nil
}

func esbuildPackage() Package {
	version := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == "github.com/evanw/esbuild" {
				version = strings.TrimPrefix(dep.Version, "v")
			}
		}
	}
	return Package{Name: "esbuild", Version: version, License: "MIT", Author: "Evan Wallace"}
}
