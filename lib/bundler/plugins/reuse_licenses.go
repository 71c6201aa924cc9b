package plugins

import (
	"fmt"
	"slices"
	"strings"

	"micromachine.dev/bundlekit/lib/output"
)

// REUSELicensesPlugin writes a REUSE compliant "<chunk>.license" file next to every
// chunk, listing the licenses, copyright holders and packages bundled into it.
type REUSELicensesPlugin struct {
	Resolver *PackageResolver
	// IncludeSourceMaps also writes "<chunk>.map.license" for external source maps.
	IncludeSourceMaps bool
}

func (p *REUSELicensesPlugin) Name() string {
	return "reuse-licenses"
}

func (p *REUSELicensesPlugin) GenerateBundle(opts *output.Options, bundle *output.Bundle) error {
	for _, name := range bundle.ChunkFileNames() {
		chunk := bundle.Chunks[name]

		packages, err := p.Resolver.ChunkPackages(chunk)
		if err != nil {
			return fmt.Errorf("could not collect licenses of %s: %w", chunk.FileName, err)
		}

		source := []byte(REUSELicenseText(packages))

		if _, err := bundle.EmitAsset(output.EmittedAsset{
			Name:     chunk.Name + ".license",
			FileName: chunk.FileName + ".license",
			Source:   source,
		}); err != nil {
			return err
		}

		if p.IncludeSourceMaps && (opts.Sourcemap == output.SourcemapLinked || opts.Sourcemap == output.SourcemapHidden) {
			if _, err := bundle.EmitAsset(output.EmittedAsset{
				Name:     chunk.Name + ".map.license",
				FileName: chunk.FileName + ".map.license",
				Source:   source,
			}); err != nil {
				return err
			}
		}
	}

	return nil
}

// REUSELicenseText renders the content of a .license file for packages, which must be sorted.
func REUSELicenseText(packages []Package) string {
	var licenses, authors []string
	var list strings.Builder

	list.WriteString("This file is generated from multiple sources. Included packages:\n")
	for _, pkg := range packages {
		fmt.Fprintf(&list, "- %s\n\t- version: %s\n\t- license: %s\n", pkg.Name, pkg.Version, pkg.License)
		licenses = append(licenses, pkg.License)
		authors = append(authors, pkg.Author)
	}

	var sb strings.Builder
	for i, license := range sortedUnique(licenses) {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("SPDX-License-Identifier: " + license)
	}
	sb.WriteByte('\n')
	for i, author := range sortedUnique(authors) {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("SPDX-FileCopyrightText: " + author)
	}
	sb.WriteString("\n\n")
	sb.WriteString(list.String())

	return sb.String()
}

func sortedUnique(values []string) []string {
	out := slices.Clone(values)
	slices.Sort(out)
	return slices.Compact(out)
}
