package config

import "micromachine.dev/bundlekit/lib/output"

type NodePolyfillsOptions struct {
	// Disabled turns off polyfills a profile would add by default.
	Disabled bool `mapstructure:"-"`
	// ProtocolImports also polyfills "node:" prefixed imports.
	ProtocolImports bool     `mapstructure:"protocol_imports"`
	Exclude         []string `mapstructure:"exclude"`
	// Globals injects Buffer, process and global.
	Globals bool `mapstructure:"globals"`
}

type LicenseOptions struct {
	// Overwrite sets the license of packages by "name" or "name@version".
	Overwrite         map[string]string `mapstructure:"overwrite"`
	Validate          bool              `mapstructure:"validate"`
	IncludeSourceMaps bool              `mapstructure:"include_source_maps"`
}

// BaseOptions are shared by all profiles.
type BaseOptions struct {
	// Replace replaces identifiers in the project sources with the given code.
	Replace        map[string]string
	ReplaceInclude []string
	InlineCSS      bool
	// Minify defaults to true in production mode.
	Minify *bool
	// NodePolyfills configures Node.js polyfills. nil uses the profile default.
	NodePolyfills *NodePolyfillsOptions
	// ThirdPartyLicense is the vendor license file. nil uses the profile default,
	// an empty string disables the file.
	ThirdPartyLicense *string
	// Licenses enables a REUSE .license file per chunk when set.
	Licenses *LicenseOptions
	// AssetFileNames can name assets before the profile does. Returning "" falls back
	// to the profile naming.
	AssetFileNames output.AssetNamer
	Target         []string
	// Override is called with the final configuration.
	Override func(*Config)
}

type AppOptions struct {
	BaseOptions
	// AppName defaults to the id in appinfo/info.xml, then to the package name.
	AppName string
	// AssetsPrefix defaults to "<AppName>-".
	AssetsPrefix *string
	// CSSCodeSplit keeps one stylesheet per entry, defaults to true.
	CSSCodeSplit              *bool
	CreateEmptyCSSEntryPoints bool
	// EmptyOutputDirectory empties js/ before the first build, defaults to true.
	EmptyOutputDirectory *bool
	// EmptyDirectories are emptied together with js/.
	EmptyDirectories []string
}

type LibOptions struct {
	BaseOptions
	// ExternalDependencies are kept out of the bundle. "/expr/" values are regular expressions.
	ExternalDependencies []string
	// Formats defaults to ES modules only.
	Formats []output.Format
	// Declarations defaults to true when the project has a tsconfig.json.
	Declarations *bool
	OutDir       string
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
