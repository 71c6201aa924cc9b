package plugins

import (
	"bytes"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"micromachine.dev/bundlekit/lib/output"
)

// DefaultThirdPartyLicenseFile is used when no license file is configured.
const DefaultThirdPartyLicenseFile = "dist/vendor.LICENSE.txt"

var thirdPartyTemplate = template.Must(template.New("vendor").Parse(`This file is generated from multiple sources. Included packages:
{{range .}}- {{.Name}}
	- version: {{.Version}}
	- license: {{.License}}
{{end}}`))

// ThirdPartyLicensePlugin writes a single file listing every third party package
// bundled into the output. File is relative to the project root.
type ThirdPartyLicensePlugin struct {
	Resolver *PackageResolver
	File     string
	// Project is the name of the package being built, it is left out of the list.
	Project string
}

func (p *ThirdPartyLicensePlugin) Name() string {
	return "third-party-license"
}

// Banner is the comment that points readers of the bundle to the license file.
func (p *ThirdPartyLicensePlugin) Banner() string {
	return fmt.Sprintf("/*! third party licenses: %s */", p.File)
}

func (p *ThirdPartyLicensePlugin) GenerateBundle(opts *output.Options, bundle *output.Bundle) error {
	fileName, err := p.fileName(opts.Dir)
	if err != nil {
		return err
	}

	seen := make(map[Package]bool)
	var packages []Package
	for _, name := range bundle.ChunkFileNames() {
		chunkPackages, err := p.Resolver.ChunkPackages(bundle.Chunks[name])
		if err != nil {
			return fmt.Errorf("could not collect third party licenses: %w", err)
		}
		for _, pkg := range chunkPackages {
			if pkg.Name == p.Project || seen[pkg] {
				continue
			}
			seen[pkg] = true
			packages = append(packages, pkg)
		}
	}
	SortPackages(packages)

	var buf bytes.Buffer
	if err := thirdPartyTemplate.Execute(&buf, packages); err != nil {
		return err
	}

	_, err = bundle.EmitAsset(output.EmittedAsset{
		Name:     path.Base(fileName),
		FileName: fileName,
		Source:   buf.Bytes(),
	})
	return err
}

// fileName returns the license file relative to the output directory dir.
func (p *ThirdPartyLicensePlugin) fileName(dir string) (string, error) {
	file := p.File
	if file == "" {
		file = DefaultThirdPartyLicenseFile
	}
	if dir == "" {
		dir = "."
	}

	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(file))
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("third party license file %s is outside of the output directory %s", file, dir)
	}
	return rel, nil
}
