package config

import (
	"encoding/json"
	"errors"
	"maps"

	"github.com/evanw/esbuild/pkg/api"
	"micromachine.dev/bundlekit/lib/bundler/plugins"
	"micromachine.dev/bundlekit/lib/output"
)

var errNoEntries = errors.New("no entries configured")

// CreateBaseConfig creates a configuration that builds entries into dist/ as ES modules.
func CreateBaseConfig(entries map[string]string, opts BaseOptions, env Env) (*Config, error) {
	cfg, err := newBaseConfig(entries, opts, env, plugins.DefaultThirdPartyLicenseFile)
	if err != nil {
		return nil, err
	}

	cfg.Profile = ProfileBase
	cfg.Outputs = []*output.Options{{
		Format:         output.FormatES,
		Dir:            "dist",
		EntryFileNames: "[name]",
		ChunkFileNames: "chunks/[name]-[hash]",
		Extension:      ".mjs",
		AssetFileNames: withFallback(opts.AssetFileNames, output.Template(output.DefaultAssetFileNames)),
		Sourcemap:      cfg.Sourcemap,
	}}

	return finish(cfg, opts), nil
}

func newBaseConfig(entries map[string]string, opts BaseOptions, env Env, licenseFile string) (*Config, error) {
	if len(entries) == 0 {
		return nil, errNoEntries
	}

	minify := boolOr(opts.Minify, !env.IsDev())
	sourcemap := output.SourcemapHidden
	if env.IsDev() {
		sourcemap = output.SourcemapLinked
	}

	target := opts.Target
	if len(target) == 0 {
		target = DefaultTarget
	}

	mode, _ := json.Marshal(env.Mode)

	cfg := &Config{
		Root:             env.Root,
		Mode:             env.Mode,
		Entries:          maps.Clone(entries),
		Minify:           minify,
		MinifyWhitespace: minify,
		Sourcemap:        sourcemap,
		Target:           target,
		Define: map[string]string{
			"process.env.NODE_ENV": string(mode),
		},
		LegalComments: api.LegalCommentsInline,
		Loader:        maps.Clone(defaultLoaders),
	}
	if env.ConfigFile != "" {
		cfg.WatchFiles = append(cfg.WatchFiles, env.ConfigFile)
	}

	if opts.NodePolyfills != nil && !opts.NodePolyfills.Disabled {
		polyfills := &plugins.NodePolyfillsPlugin{
			BasePath:        env.Root,
			ProtocolImports: opts.NodePolyfills.ProtocolImports,
			Exclude:         opts.NodePolyfills.Exclude,
			Globals:         opts.NodePolyfills.Globals,
		}
		cfg.ESBuildPlugins = append(cfg.ESBuildPlugins, polyfills.New())
	}

	if len(opts.Replace) > 0 {
		replace := &plugins.ReplacePlugin{
			Root:    env.Root,
			Include: append(append([]string{}, plugins.DefaultReplaceInclude...), opts.ReplaceInclude...),
			Values:  opts.Replace,
		}
		cfg.ESBuildPlugins = append(cfg.ESBuildPlugins, replace.New())
	}

	resolver := &plugins.PackageResolver{Root: env.Root}
	if opts.Licenses != nil {
		resolver.OverwriteLicenses = opts.Licenses.Overwrite
		resolver.ValidateLicenses = opts.Licenses.Validate
		cfg.Plugins = append(cfg.Plugins, &plugins.REUSELicensesPlugin{
			Resolver:          resolver,
			IncludeSourceMaps: opts.Licenses.IncludeSourceMaps,
		})
	}

	if opts.ThirdPartyLicense != nil {
		licenseFile = *opts.ThirdPartyLicense
	}
	if licenseFile != "" {
		thirdParty := &plugins.ThirdPartyLicensePlugin{
			Resolver: resolver,
			File:     licenseFile,
			Project:  env.PackageName,
		}
		cfg.Banner = thirdParty.Banner()
		// runs last so every other plugin is done with the bundle
		cfg.Plugins = append(cfg.Plugins, thirdParty)
	}

	return cfg, nil
}

// finish inlines styles when requested and applies the user override.
func finish(cfg *Config, opts BaseOptions) *Config {
	if opts.InlineCSS {
		cfg.Plugins = append([]output.Plugin{plugins.InjectCSSPlugin{}}, cfg.Plugins...)
	}
	if opts.Override != nil {
		opts.Override(cfg)
	}
	return cfg
}

// withFallback asks custom first and uses fallback when it returns an empty name.
func withFallback(custom, fallback output.AssetNamer) output.AssetNamer {
	if custom == nil {
		return fallback
	}
	return func(info output.AssetInfo) string {
		if name := custom(info); name != "" {
			return name
		}
		return fallback(info)
	}
}
