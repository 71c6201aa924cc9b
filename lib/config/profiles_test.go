package config

import (
	"path/filepath"
	"testing"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"micromachine.dev/bundlekit/lib/bundler/plugins"
	"micromachine.dev/bundlekit/lib/cssentry"
	"micromachine.dev/bundlekit/lib/output"
)

var mainEntry = map[string]string{"main": "src/main.js"}

func testEnv(t *testing.T, mode string) Env {
	t.Helper()
	return Env{
		Root:           t.TempDir(),
		Mode:           mode,
		PackageName:    "@nextcloud/vite-config",
		PackageVersion: "2.0.0",
	}
}

func pluginNames(cfg *Config) []string {
	var names []string
	for _, p := range cfg.Plugins {
		names = append(names, p.Name())
	}
	return names
}

func assetName(t *testing.T, cfg *Config, name string) string {
	t.Helper()
	require.Len(t, cfg.Outputs, 1)
	return cfg.Outputs[0].AssetFileNames(output.AssetInfo{Name: name})
}

func TestBaseConfigMinify(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		minify *bool
		want   bool
	}{
		{"production default", ModeProduction, nil, true},
		{"development default", ModeDevelopment, nil, false},
		{"disabled", ModeProduction, new(bool), false},
		{"enabled in development", ModeDevelopment, func() *bool { b := true; return &b }(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := CreateBaseConfig(mainEntry, BaseOptions{Minify: tt.minify}, testEnv(t, tt.mode))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Minify)
			assert.Equal(t, tt.want, cfg.MinifyWhitespace)
		})
	}
}

func TestBaseConfigDefaults(t *testing.T) {
	cfg, err := CreateBaseConfig(mainEntry, BaseOptions{}, testEnv(t, ModeProduction))
	require.NoError(t, err)

	assert.Equal(t, ProfileBase, cfg.Profile)
	assert.Equal(t, output.SourcemapHidden, cfg.Sourcemap)
	assert.Equal(t, DefaultTarget, cfg.Target)
	assert.Equal(t, `"production"`, cfg.Define["process.env.NODE_ENV"])
	assert.Equal(t, api.LegalCommentsInline, cfg.LegalComments)
	assert.Equal(t, "/*! third party licenses: dist/vendor.LICENSE.txt */", cfg.Banner)
	assert.Equal(t, []string{"third-party-license"}, pluginNames(cfg))
	assert.Empty(t, cfg.ESBuildPlugins)

	require.Len(t, cfg.Outputs, 1)
	assert.Equal(t, "dist", cfg.Outputs[0].Dir)
	assert.Equal(t, ".mjs", cfg.Outputs[0].Extension)

	dev, err := CreateBaseConfig(mainEntry, BaseOptions{}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)
	assert.Equal(t, output.SourcemapLinked, dev.Sourcemap)
}

func TestBaseConfigPlugins(t *testing.T) {
	disabled := ""
	cfg, err := CreateBaseConfig(mainEntry, BaseOptions{
		Replace:           map[string]string{"appName": `"x"`},
		NodePolyfills:     &NodePolyfillsOptions{},
		ThirdPartyLicense: &disabled,
		Licenses:          &LicenseOptions{Validate: true},
		InlineCSS:         true,
	}, testEnv(t, ModeProduction))
	require.NoError(t, err)

	assert.Empty(t, cfg.Banner)
	assert.Equal(t, []string{"css-injected-by-js", "reuse-licenses"}, pluginNames(cfg))

	var names []string
	for _, p := range cfg.ESBuildPlugins {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"node-polyfills", "replace"}, names)
}

func TestBaseConfigRequiresEntries(t *testing.T) {
	_, err := CreateBaseConfig(nil, BaseOptions{}, testEnv(t, ModeProduction))
	assert.Error(t, err)
}

func TestBaseConfigOverride(t *testing.T) {
	cfg, err := CreateBaseConfig(mainEntry, BaseOptions{
		Override: func(c *Config) { c.Target = []string{"es2022"} },
	}, testEnv(t, ModeProduction))
	require.NoError(t, err)
	assert.Equal(t, []string{"es2022"}, cfg.Target)
}

func TestAppConfigIntro(t *testing.T) {
	cfg, err := CreateAppConfig(mainEntry, AppOptions{}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)
	assert.Regexp(t, `appName = "@nextcloud/vite-config"`, cfg.Outputs[0].Intro)
	assert.Regexp(t, `appVersion = "2.0.0"`, cfg.Outputs[0].Intro)

	cfg, err = CreateAppConfig(mainEntry, AppOptions{AppName: "spreed"}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)
	assert.Regexp(t, `appName = "spreed"`, cfg.Outputs[0].Intro)
}

func TestAppConfigAppInfo(t *testing.T) {
	env := testEnv(t, ModeProduction)
	writeFile(t, filepath.Join(env.Root, "appinfo", "info.xml"), `<?xml version="1.0"?>
<info>
	<id>viewer</id>
	<name>Viewer</name>
	<version>3.1.0</version>
</info>`)

	cfg, err := CreateAppConfig(mainEntry, AppOptions{}, env)
	require.NoError(t, err)

	out := cfg.Outputs[0]
	assert.Equal(t, `const appName = "viewer"; const appVersion = "3.1.0";`, out.Intro)
	assert.Equal(t, "js/viewer-[name]", out.EntryFileNames)
	assert.Equal(t, "css/viewer-main.css", out.NameAsset(output.AssetInfo{Name: "main.css"}))
	assert.Contains(t, cfg.WatchFiles, filepath.Join(env.Root, "appinfo", "info.xml"))
}

func TestAppConfigOutput(t *testing.T) {
	cfg, err := CreateAppConfig(mainEntry, AppOptions{}, testEnv(t, ModeProduction))
	require.NoError(t, err)

	out := cfg.Outputs[0]
	assert.Equal(t, "", out.Dir)
	assert.Equal(t, "js/@nextcloud-vite-config-[name]", out.EntryFileNames)
	assert.Equal(t, "js/[name]-[hash].chunk", out.ChunkFileNames)
	assert.Equal(t, ".mjs", out.Extension)
	assert.Equal(t, "/*! third party licenses: js/vendor.LICENSE.txt */", cfg.Banner)
}

func TestAppConfigMovesCSS(t *testing.T) {
	cfg, err := CreateAppConfig(mainEntry, AppOptions{AppName: "files"}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)

	assert.Regexp(t, `^css/[^/]+\.css`, assetName(t, cfg, "some.css"))
	assert.Regexp(t, `^css/[^/]+\.css`, assetName(t, cfg, "other/file.css"))
	assert.Equal(t, "css/files-file.css", cfg.Outputs[0].NameAsset(output.AssetInfo{Name: "other/file.css"}))
}

func TestAppConfigMovesImages(t *testing.T) {
	cfg, err := CreateAppConfig(mainEntry, AppOptions{}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)

	for _, name := range []string{"some.png", "some.svg", "some.jpg", "some.ico"} {
		assert.Equal(t, "img/[name][extname]", assetName(t, cfg, name), name)
	}
}

func TestAppConfigMovesFonts(t *testing.T) {
	cfg, err := CreateAppConfig(mainEntry, AppOptions{}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)

	for _, name := range []string{"some.woff", "some.woff2", "some.otf", "some.ttf"} {
		assert.Equal(t, "css/fonts/[name][extname]", assetName(t, cfg, name), name)
	}
	assert.Equal(t, "dist/[name]-[hash][extname]", assetName(t, cfg, "data.json"))
}

func TestAppConfigCustomAssetNames(t *testing.T) {
	cfg, err := CreateAppConfig(mainEntry, AppOptions{
		BaseOptions: BaseOptions{
			AssetFileNames: func(info output.AssetInfo) string {
				if info.Name == "main.png" {
					return "img/main.png"
				}
				return ""
			},
		},
	}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)

	assert.Equal(t, "img/main.png", assetName(t, cfg, "main.png"))
	assert.Equal(t, "img/[name][extname]", assetName(t, cfg, "foo.png"))
}

func TestAppConfigCSSEntryPoints(t *testing.T) {
	cfg, err := CreateAppConfig(mainEntry, AppOptions{}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)
	assert.Contains(t, pluginNames(cfg), cssentry.New(cssentry.Options{}).Name())
	assert.NotContains(t, pluginNames(cfg), plugins.InjectCSSPlugin{}.Name())

	cfg, err = CreateAppConfig(mainEntry, AppOptions{BaseOptions: BaseOptions{InlineCSS: true}}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)
	assert.NotContains(t, pluginNames(cfg), cssentry.New(cssentry.Options{}).Name())
	assert.Equal(t, 1, countOf(pluginNames(cfg), plugins.InjectCSSPlugin{}.Name()))

	split := false
	cfg, err = CreateAppConfig(mainEntry, AppOptions{CSSCodeSplit: &split}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)
	assert.NotContains(t, pluginNames(cfg), cssentry.New(cssentry.Options{}).Name())
	assert.Contains(t, pluginNames(cfg), plugins.MergeCSSPlugin{}.Name())
}

func TestAppConfigEmptyOutputDirectory(t *testing.T) {
	cfg, err := CreateAppConfig(mainEntry, AppOptions{}, testEnv(t, ModeProduction))
	require.NoError(t, err)
	assert.Contains(t, pluginNames(cfg), "empty-js-dir")

	keep := false
	cfg, err = CreateAppConfig(mainEntry, AppOptions{EmptyOutputDirectory: &keep}, testEnv(t, ModeProduction))
	require.NoError(t, err)
	assert.NotContains(t, pluginNames(cfg), "empty-js-dir")
}

func TestAppConfigNodePolyfills(t *testing.T) {
	cfg, err := CreateAppConfig(mainEntry, AppOptions{}, testEnv(t, ModeProduction))
	require.NoError(t, err)
	require.Len(t, cfg.ESBuildPlugins, 1)
	assert.Equal(t, "node-polyfills", cfg.ESBuildPlugins[0].Name)

	cfg, err = CreateAppConfig(mainEntry, AppOptions{
		BaseOptions: BaseOptions{NodePolyfills: &NodePolyfillsOptions{Disabled: true}},
	}, testEnv(t, ModeProduction))
	require.NoError(t, err)
	assert.Empty(t, cfg.ESBuildPlugins)
}

func TestLibConfigMinify(t *testing.T) {
	cfg, err := CreateLibConfig(mainEntry, LibOptions{}, testEnv(t, ModeProduction))
	require.NoError(t, err)
	assert.True(t, cfg.Minify)
	assert.False(t, cfg.MinifyWhitespace)

	enabled := true
	cfg, err = CreateLibConfig(mainEntry, LibOptions{BaseOptions: BaseOptions{Minify: &enabled}}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)
	assert.True(t, cfg.Minify)
	assert.False(t, cfg.MinifyWhitespace)

	cfg, err = CreateLibConfig(mainEntry, LibOptions{}, testEnv(t, ModeDevelopment))
	require.NoError(t, err)
	assert.False(t, cfg.Minify)
}

func TestLibConfigOutputs(t *testing.T) {
	cfg, err := CreateLibConfig(mainEntry, LibOptions{
		Formats: []output.Format{output.FormatES, output.FormatCJS},
	}, testEnv(t, ModeProduction))
	require.NoError(t, err)

	require.Len(t, cfg.Outputs, 2)
	assert.Equal(t, ".mjs", cfg.Outputs[0].Extension)
	assert.Equal(t, ".cjs", cfg.Outputs[1].Extension)
	for _, out := range cfg.Outputs {
		assert.Equal(t, "dist", out.Dir)
		assert.Equal(t, "[name]", out.EntryFileNames)
		assert.Equal(t, "chunks/[name]-[hash]", out.ChunkFileNames)
		assert.Equal(t, "[name].css", out.AssetFileNames(output.AssetInfo{Name: "main.css"}))
		assert.Equal(t, "[name]-[hash][extname]", out.AssetFileNames(output.AssetInfo{Name: "logo.png"}))
	}

	assert.Equal(t, "import-css-libmode", pluginNames(cfg)[0])
	assert.False(t, cfg.Declarations)

	_, err = CreateLibConfig(mainEntry, LibOptions{Formats: []output.Format{"umd"}}, testEnv(t, ModeProduction))
	assert.Error(t, err)
}

func TestLibConfigOutDir(t *testing.T) {
	cfg, err := CreateLibConfig(mainEntry, LibOptions{OutDir: "build"}, testEnv(t, ModeProduction))
	require.NoError(t, err)

	require.Len(t, cfg.Outputs, 1)
	assert.Equal(t, "build", cfg.Outputs[0].Dir)
	assert.Equal(t, "/*! third party licenses: build/vendor.LICENSE.txt */", cfg.Banner)

	var thirdParty *plugins.ThirdPartyLicensePlugin
	for _, p := range cfg.Plugins {
		if tp, ok := p.(*plugins.ThirdPartyLicensePlugin); ok {
			thirdParty = tp
		}
	}
	require.NotNil(t, thirdParty)
	assert.Equal(t, "build/vendor.LICENSE.txt", thirdParty.File)
	require.NoError(t, thirdParty.GenerateBundle(cfg.Outputs[0], output.NewBundle()))
}

func TestLibConfigExternals(t *testing.T) {
	_, err := CreateLibConfig(mainEntry, LibOptions{ExternalDependencies: []string{"/(/"}}, testEnv(t, ModeProduction))
	assert.Error(t, err)

	cfg, err := CreateLibConfig(mainEntry, LibOptions{ExternalDependencies: []string{"vue"}}, testEnv(t, ModeProduction))
	require.NoError(t, err)
	require.NotEmpty(t, cfg.ESBuildPlugins)
	assert.Equal(t, "external-files", cfg.ESBuildPlugins[len(cfg.ESBuildPlugins)-1].Name)
}

func TestLibConfigDeclarations(t *testing.T) {
	env := testEnv(t, ModeProduction)
	writeFile(t, filepath.Join(env.Root, "tsconfig.json"), `{}`)

	cfg, err := CreateLibConfig(mainEntry, LibOptions{}, env)
	require.NoError(t, err)
	assert.True(t, cfg.Declarations)

	off := false
	cfg, err = CreateLibConfig(mainEntry, LibOptions{Declarations: &off}, env)
	require.NoError(t, err)
	assert.False(t, cfg.Declarations)
}

func countOf(values []string, v string) int {
	n := 0
	for _, value := range values {
		if value == v {
			n++
		}
	}
	return n
}
