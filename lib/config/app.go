package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"micromachine.dev/bundlekit/lib/bundler/plugins"
	"micromachine.dev/bundlekit/lib/cssentry"
	"micromachine.dev/bundlekit/lib/output"
	"micromachine.dev/bundlekit/lib/utils"
)

// DefaultAppThirdPartyLicenseFile is the vendor license file of apps.
const DefaultAppThirdPartyLicenseFile = "js/vendor.LICENSE.txt"

var (
	imageExtension = regexp.MustCompile(`(?i)png|jpe?g|svg|gif|tiff|bmp|ico`)
	cssExtension   = regexp.MustCompile(`(?i)css`)
	fontExtension  = regexp.MustCompile(`(?i)woff2?|ttf|otf`)
)

// CreateAppConfig creates the configuration of an app. The app is built into the
// project root: scripts into js/, styles into css/ and images into img/.
func CreateAppConfig(entries map[string]string, opts AppOptions, env Env) (*Config, error) {
	if opts.NodePolyfills == nil {
		opts.NodePolyfills = &NodePolyfillsOptions{ProtocolImports: true}
	}

	appName, appVersion, err := appIdentity(opts.AppName, env)
	if err != nil {
		return nil, err
	}
	utils.LogWithColor(utils.Info, fmt.Sprintf("Building %s for %s", appName, env.Mode))

	// inlining is handled below, before the CSS entry points
	base := opts.BaseOptions
	base.InlineCSS = false

	cfg, err := newBaseConfig(entries, base, env, DefaultAppThirdPartyLicenseFile)
	if err != nil {
		return nil, err
	}
	cfg.Profile = ProfileApp

	prefix := appName + "-"
	if opts.AssetsPrefix != nil {
		prefix = *opts.AssetsPrefix
	}
	prefix = strings.NewReplacer("/", "-", `\`, "-").Replace(prefix)

	name, _ := json.Marshal(appName)
	version, _ := json.Marshal(appVersion)

	cfg.Outputs = []*output.Options{{
		Format:         output.FormatES,
		Dir:            "",
		EntryFileNames: "js/" + prefix + "[name]",
		ChunkFileNames: "js/[name]-[hash].chunk",
		Extension:      ".mjs",
		AssetFileNames: withFallback(opts.AssetFileNames, appAssetNames(prefix)),
		Intro:          fmt.Sprintf("const appName = %s; const appVersion = %s;", name, version),
		Sourcemap:      cfg.Sourcemap,
	}}

	var appPlugins []output.Plugin
	if opts.InlineCSS {
		appPlugins = append(appPlugins, plugins.InjectCSSPlugin{})
	} else if boolOr(opts.CSSCodeSplit, true) {
		appPlugins = append(appPlugins, cssentry.New(cssentry.Options{
			CreateEmptyEntryPoints: opts.CreateEmptyCSSEntryPoints,
		}))
	} else {
		appPlugins = append(appPlugins, plugins.MergeCSSPlugin{})
	}

	if boolOr(opts.EmptyOutputDirectory, true) {
		appPlugins = append(appPlugins, &plugins.EmptyDirPlugin{
			Root:        env.Root,
			Directories: opts.EmptyDirectories,
		})
	}

	cfg.Plugins = append(appPlugins, cfg.Plugins...)

	if path, ok := utils.FindAppInfo(env.Root); ok {
		cfg.WatchFiles = append(cfg.WatchFiles, path)
	}

	return finish(cfg, base), nil
}

// appIdentity resolves the app name and version from appinfo/info.xml, the options and
// the package.
func appIdentity(appName string, env Env) (string, string, error) {
	appVersion := env.PackageVersion

	if path, ok := utils.FindAppInfo(env.Root); ok {
		info, err := utils.ReadAppInfo(path)
		if err != nil {
			return "", "", err
		}
		if info.Version != "" {
			appVersion = info.Version
		}
		if info.ID != "" && appName == "" {
			appName = info.ID
		}
	}

	if appName == "" {
		slog.Warn("No app name configured, falling back to name from `package.json`")
		appName = env.PackageName
	}

	return appName, appVersion, nil
}

// appAssetNames sorts assets into img/, css/, css/fonts/ and dist/ by extension.
func appAssetNames(prefix string) output.AssetNamer {
	return func(info output.AssetInfo) string {
		ext := extensionOf(info.Name)

		switch {
		case imageExtension.MatchString(ext):
			return "img/[name][extname]"
		case cssExtension.MatchString(ext):
			return "css/" + prefix + "[name].css"
		case fontExtension.MatchString(ext):
			return "css/fonts/[name][extname]"
		}
		return "dist/[name]-[hash][extname]"
	}
}

// extensionOf returns the part of name after the last dot, or name itself.
func extensionOf(name string) string {
	return name[strings.LastIndex(name, ".")+1:]
}
