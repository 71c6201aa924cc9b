package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad(t *testing.T) {
	t.Setenv("npm_package_name", "")
	t.Setenv("npm_package_version", "")

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "package.json"), `{"name": "@nextcloud/text", "version": "4.0.0"}`)
	writeFile(t, filepath.Join(root, "bundlekit.toml"), `
profile = "lib"
formats = ["es", "cjs"]
external = ["vue", "/^@nextcloud\\//"]
third_party_license = false

[entries]
MainEntry = "src/main.ts"

[replace]
appName = '"text"'

[node_polyfills]
protocol_imports = true
exclude = ["crypto"]
`)

	file, env, err := Load(viper.New(), root, "")
	require.NoError(t, err)

	assert.Equal(t, ProfileLib, file.Profile)
	assert.Equal(t, ModeProduction, env.Mode)
	assert.Equal(t, root, env.Root)
	assert.Equal(t, filepath.Join(root, "bundlekit.toml"), env.ConfigFile)
	assert.Equal(t, "@nextcloud/text", env.PackageName)
	assert.Equal(t, "4.0.0", env.PackageVersion)
	assert.Equal(t, map[string]string{"MainEntry": "src/main.ts"}, file.Entries)
	assert.Equal(t, map[string]string{"appName": `"text"`}, file.Replace)
	assert.Equal(t, []string{"es", "cjs"}, file.Formats)

	opts, err := file.baseOptions()
	require.NoError(t, err)
	require.NotNil(t, opts.NodePolyfills)
	assert.True(t, opts.NodePolyfills.ProtocolImports)
	assert.Equal(t, []string{"crypto"}, opts.NodePolyfills.Exclude)
	require.NotNil(t, opts.ThirdPartyLicense)
	assert.Empty(t, *opts.ThirdPartyLicense)
}

func TestLoadEnvironment(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bundlekit.json"), `{"mode": "production", "app_name": "files"}`)

	t.Setenv("BUNDLEKIT_MODE", "development")
	t.Setenv("BUNDLEKIT_MINIFY", "true")
	t.Setenv("npm_package_name", "files-app")
	t.Setenv("npm_package_version", "1.2.3")

	file, env, err := Load(viper.New(), root, "")
	require.NoError(t, err)

	assert.Equal(t, ModeDevelopment, env.Mode)
	assert.Equal(t, "files", file.AppName)
	require.NotNil(t, file.Minify)
	assert.True(t, *file.Minify)
	assert.Equal(t, "files-app", env.PackageName)
	assert.Equal(t, "1.2.3", env.PackageVersion)
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Setenv("BUNDLEKIT_MODE", "")
	file, env, err := Load(viper.New(), t.TempDir(), "")
	require.NoError(t, err)

	assert.Equal(t, ProfileApp, file.Profile)
	assert.Equal(t, ModeProduction, env.Mode)
	assert.Empty(t, env.ConfigFile)
}

func TestLoadNearestPackageJSON(t *testing.T) {
	t.Setenv("npm_package_name", "")
	t.Setenv("npm_package_version", "")

	workspace := t.TempDir()
	writeFile(t, filepath.Join(workspace, "package.json"), `{"name": "@nextcloud/files", "version": "3.1.0"}`)
	root := filepath.Join(workspace, "packages", "viewer")
	require.NoError(t, os.MkdirAll(root, 0755))

	_, env, err := Load(viper.New(), root, "")
	require.NoError(t, err)
	assert.Equal(t, "@nextcloud/files", env.PackageName)
	assert.Equal(t, "3.1.0", env.PackageVersion)
}

func TestLoadExplicitConfigFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "configs", "build.jsonc"), `{"profile": "base", /* comment */ "entries": {"main": "index.js"}}`)

	file, env, err := Load(viper.New(), root, "configs/build.jsonc")
	require.NoError(t, err)
	assert.Equal(t, ProfileBase, file.Profile)
	assert.Equal(t, filepath.Join(root, "configs", "build.jsonc"), env.ConfigFile)
}

func TestLoadInvalidMode(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bundlekit.toml"), `mode = "staging"`)

	_, _, err := Load(viper.New(), root, "")
	assert.ErrorContains(t, err, `invalid mode "staging"`)
}

func TestFileConfigUnknownProfile(t *testing.T) {
	f := &File{Profile: "website", Entries: map[string]string{"main": "src/main.js"}}
	_, err := f.Config(Env{Root: t.TempDir(), Mode: ModeProduction})
	assert.ErrorContains(t, err, `unknown profile "website"`)
}

func TestBaseOptionsNodePolyfills(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		nilOpts  bool
		disabled bool
	}{
		{"unset", nil, true, false},
		{"enabled", true, false, false},
		{"disabled", false, false, true},
		{"env string", "true", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := (&File{NodePolyfills: tt.value}).baseOptions()
			require.NoError(t, err)
			if tt.nilOpts {
				assert.Nil(t, opts.NodePolyfills)
				return
			}
			require.NotNil(t, opts.NodePolyfills)
			assert.Equal(t, tt.disabled, opts.NodePolyfills.Disabled)
		})
	}

	_, err := (&File{NodePolyfills: 42}).baseOptions()
	assert.Error(t, err)
}
