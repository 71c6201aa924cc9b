package config

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"micromachine.dev/bundlekit/lib/bundler/plugins"
	"micromachine.dev/bundlekit/lib/output"
)

// coreJSExternal keeps core-js polyfills out of libraries, the app using the library
// decides which polyfills it needs.
var coreJSExternal = regexp.MustCompile(`^core-js/`)

// CreateLibConfig creates the configuration of a library with one output per format.
func CreateLibConfig(entries map[string]string, opts LibOptions, env Env) (*Config, error) {
	outDir := opts.OutDir
	if outDir == "" {
		outDir = "dist"
	}

	// the license file must live inside the output directory
	licenseFile := path.Join(filepath.ToSlash(outDir), path.Base(plugins.DefaultThirdPartyLicenseFile))
	cfg, err := newBaseConfig(entries, opts.BaseOptions, env, licenseFile)
	if err != nil {
		return nil, err
	}
	cfg.Profile = ProfileLib
	// identifiers and syntax only, whitespace minification breaks some library builds
	cfg.MinifyWhitespace = false

	formats := opts.Formats
	if len(formats) == 0 {
		formats = []output.Format{output.FormatES}
	}

	assetNames := withFallback(opts.AssetFileNames, libAssetNames)
	for _, format := range formats {
		ext, err := libExtension(format)
		if err != nil {
			return nil, err
		}
		cfg.Outputs = append(cfg.Outputs, &output.Options{
			Format:         format,
			Dir:            outDir,
			EntryFileNames: "[name]",
			ChunkFileNames: "chunks/[name]-[hash]",
			Extension:      ext,
			AssetFileNames: assetNames,
			Sourcemap:      cfg.Sourcemap,
		})
	}

	modules, patterns, err := plugins.ParseExternal(opts.ExternalDependencies)
	if err != nil {
		return nil, err
	}
	external := &plugins.ExternalFilePlugin{
		Modules:  modules,
		Patterns: append([]*regexp.Regexp{coreJSExternal}, patterns...),
	}
	cfg.ESBuildPlugins = append(cfg.ESBuildPlugins, external.New())

	cfg.Plugins = append([]output.Plugin{plugins.ImportCSSPlugin{}}, cfg.Plugins...)

	if opts.Declarations != nil {
		cfg.Declarations = *opts.Declarations
	} else if _, err := os.Stat(filepath.Join(env.Root, "tsconfig.json")); err == nil {
		cfg.Declarations = true
	}

	return finish(cfg, opts.BaseOptions), nil
}

func libExtension(format output.Format) (string, error) {
	switch format {
	case output.FormatES:
		return ".mjs", nil
	case output.FormatCJS:
		return ".cjs", nil
	case output.FormatIIFE:
		return ".iife.js", nil
	}
	return "", fmt.Errorf("unsupported library format %q", format)
}

func libAssetNames(info output.AssetInfo) string {
	if cssExtension.MatchString(extensionOf(info.Name)) {
		return "[name].css"
	}
	return "[name]-[hash][extname]"
}
