package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"micromachine.dev/bundlekit/lib/output"
	"micromachine.dev/bundlekit/lib/utils"
)

// File is the content of a bundlekit configuration file. Every key can be set with a
// BUNDLEKIT_ prefixed environment variable, e.g. BUNDLEKIT_APP_NAME.
type File struct {
	Profile string            `mapstructure:"profile"`
	Mode    string            `mapstructure:"mode"`
	Entries map[string]string `mapstructure:"entries"`

	Minify            *bool             `mapstructure:"minify"`
	Target            []string          `mapstructure:"target"`
	Replace           map[string]string `mapstructure:"replace"`
	ReplaceInclude    []string          `mapstructure:"replace_include"`
	InlineCSS         bool              `mapstructure:"inline_css"`
	NodePolyfills     any               `mapstructure:"node_polyfills"`
	ThirdPartyLicense any               `mapstructure:"third_party_license"`
	Licenses          *LicenseOptions   `mapstructure:"licenses"`

	AppName                   string   `mapstructure:"app_name"`
	AssetsPrefix              *string  `mapstructure:"assets_prefix"`
	CSSCodeSplit              *bool    `mapstructure:"css_code_split"`
	CreateEmptyCSSEntryPoints bool     `mapstructure:"create_empty_css_entry_points"`
	EmptyOutputDirectory      *bool    `mapstructure:"empty_output_directory"`
	EmptyDirectories          []string `mapstructure:"empty_directories"`

	External     []string `mapstructure:"external"`
	Formats      []string `mapstructure:"formats"`
	Declarations *bool    `mapstructure:"declarations"`
	OutDir       string   `mapstructure:"out_dir"`

	PackageName    string `mapstructure:"package_name"`
	PackageVersion string `mapstructure:"package_version"`
}

var fileKeys = []string{
	"profile", "mode", "minify", "target", "replace_include", "inline_css", "node_polyfills",
	"third_party_license", "app_name", "assets_prefix", "css_code_split",
	"create_empty_css_entry_points", "empty_output_directory", "empty_directories",
	"external", "formats", "declarations", "out_dir",
}

// Load reads the configuration of the project in root. configFile overrides the
// detected file. Flags bound to v before the call take precedence over everything.
func Load(v *viper.Viper, root, configFile string) (*File, Env, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, Env{}, fmt.Errorf("could not resolve absolute path: %w", err)
	}

	if configFile == "" {
		configFile, err = DetectFile(absRoot)
		if errors.Is(err, ErrNoConfigFile) {
			slog.Debug("No configuration file, using defaults", slog.String("root", absRoot))
			configFile = ""
		} else if err != nil {
			return nil, Env{}, err
		}
	} else if !filepath.IsAbs(configFile) {
		configFile = filepath.Join(absRoot, configFile)
	}

	// viper lower cases keys in place, entry aliases and replaced identifiers are case sensitive
	var entries, replace map[string]string
	if configFile != "" {
		values, err := ReadFile(configFile)
		if err != nil {
			return nil, Env{}, err
		}
		entries, _ = stringMap(values["entries"])
		replace, _ = stringMap(values["replace"])
		if err := v.MergeConfigMap(values); err != nil {
			return nil, Env{}, fmt.Errorf("could not merge %s: %w", configFile, err)
		}
	}

	v.SetDefault("profile", ProfileApp)
	v.SetDefault("mode", ModeProduction)

	v.SetEnvPrefix("BUNDLEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range fileKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, Env{}, err
		}
	}
	if err := v.BindEnv("package_name", "npm_package_name"); err != nil {
		return nil, Env{}, err
	}
	if err := v.BindEnv("package_version", "npm_package_version"); err != nil {
		return nil, Env{}, err
	}

	var file File
	if err := v.Unmarshal(&file); err != nil {
		return nil, Env{}, fmt.Errorf("invalid configuration: %w", err)
	}

	if entries != nil {
		file.Entries = entries
	}
	if replace != nil {
		file.Replace = replace
	}

	// outside of npm scripts the nearest package.json is the source of truth
	if file.PackageName == "" || file.PackageVersion == "" {
		if pkg, err := readNearestPackageJSON(absRoot); err == nil {
			if file.PackageName == "" {
				file.PackageName = pkg.Name
			}
			if file.PackageVersion == "" {
				file.PackageVersion = pkg.Version
			}
		}
	}

	if file.Mode != ModeProduction && file.Mode != ModeDevelopment {
		return nil, Env{}, fmt.Errorf("invalid mode %q: must be %s or %s", file.Mode, ModeProduction, ModeDevelopment)
	}

	env := Env{
		Root:           absRoot,
		Mode:           file.Mode,
		PackageName:    file.PackageName,
		PackageVersion: file.PackageVersion,
		ConfigFile:     configFile,
	}
	return &file, env, nil
}

// Config creates the build configuration of the profile selected in the file.
func (f *File) Config(env Env) (*Config, error) {
	base, err := f.baseOptions()
	if err != nil {
		return nil, err
	}

	switch f.Profile {
	case ProfileApp:
		return CreateAppConfig(f.Entries, AppOptions{
			BaseOptions:               base,
			AppName:                   f.AppName,
			AssetsPrefix:              f.AssetsPrefix,
			CSSCodeSplit:              f.CSSCodeSplit,
			CreateEmptyCSSEntryPoints: f.CreateEmptyCSSEntryPoints,
			EmptyOutputDirectory:      f.EmptyOutputDirectory,
			EmptyDirectories:          f.EmptyDirectories,
		}, env)
	case ProfileLib:
		formats := make([]output.Format, len(f.Formats))
		for i, format := range f.Formats {
			formats[i] = output.Format(format)
		}
		return CreateLibConfig(f.Entries, LibOptions{
			BaseOptions:          base,
			ExternalDependencies: f.External,
			Formats:              formats,
			Declarations:         f.Declarations,
			OutDir:               f.OutDir,
		}, env)
	case ProfileBase:
		return CreateBaseConfig(f.Entries, base, env)
	}

	return nil, fmt.Errorf("unknown profile %q: must be %s, %s or %s", f.Profile, ProfileApp, ProfileLib, ProfileBase)
}

func (f *File) baseOptions() (BaseOptions, error) {
	opts := BaseOptions{
		Replace:        f.Replace,
		ReplaceInclude: f.ReplaceInclude,
		InlineCSS:      f.InlineCSS,
		Minify:         f.Minify,
		Licenses:       f.Licenses,
		Target:         f.Target,
	}

	switch v := f.NodePolyfills.(type) {
	case nil:
	case bool:
		opts.NodePolyfills = &NodePolyfillsOptions{Disabled: !v}
	case string:
		opts.NodePolyfills = &NodePolyfillsOptions{Disabled: v != "true"}
	case map[string]any:
		var polyfills NodePolyfillsOptions
		if err := mapstructure.WeakDecode(v, &polyfills); err != nil {
			return opts, fmt.Errorf("invalid node_polyfills: %w", err)
		}
		opts.NodePolyfills = &polyfills
	default:
		return opts, fmt.Errorf("invalid node_polyfills: expected a boolean or a table, got %T", v)
	}

	switch v := f.ThirdPartyLicense.(type) {
	case nil:
	case bool:
		if !v {
			opts.ThirdPartyLicense = new(string)
		}
	case string:
		if v == "false" {
			v = ""
		}
		opts.ThirdPartyLicense = &v
	default:
		return opts, fmt.Errorf("invalid third_party_license: expected false or a file name, got %T", v)
	}

	return opts, nil
}

func readNearestPackageJSON(dir string) (*utils.PackageJSON, error) {
	pkgDir, err := utils.FindPackageJSON(dir, "")
	if err != nil {
		return nil, err
	}
	return utils.ReadPackageJSON(pkgDir)
}

func stringMap(value any) (map[string]string, bool) {
	m, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = fmt.Sprint(v)
	}
	return out, true
}
