// Package config turns bundlekit.toml (or .json / .jsonc) into build configurations.
//
// A project picks one of three profiles. The base profile carries what every build
// shares: minification, source maps, string replacement, Node.js polyfills and
// license files. The app profile builds a Nextcloud style app into js/, css/ and img/
// of the project root. The lib profile builds a library into dist/, one output per
// module format.
package config

import (
	"github.com/evanw/esbuild/pkg/api"
	"micromachine.dev/bundlekit/lib/output"
)

const (
	ModeProduction  = "production"
	ModeDevelopment = "development"
)

const (
	ProfileApp  = "app"
	ProfileLib  = "lib"
	ProfileBase = "base"
)

// DefaultTarget matches the browsers supporting native ES modules, dynamic imports
// and import.meta.
var DefaultTarget = []string{"es2020", "edge88", "firefox78", "chrome87", "safari14"}

// Env describes the invocation a configuration is created for.
type Env struct {
	Root    string
	Mode    string
	Command string
	// PackageName and PackageVersion come from npm or the project package.json.
	PackageName    string
	PackageVersion string
	// ConfigFile is the configuration file in use, if any.
	ConfigFile string
}

func (e Env) IsDev() bool {
	return e.Mode == ModeDevelopment
}

// Config is a resolved build configuration, ready for the bundler.
type Config struct {
	Root    string
	Mode    string
	Profile string
	// Entries maps entry aliases to source files relative to Root.
	Entries map[string]string
	Outputs []*output.Options

	Minify           bool
	MinifyWhitespace bool
	Sourcemap        output.Sourcemap
	Target           []string
	Define           map[string]string
	LegalComments    api.LegalComments
	// Banner is prepended to every JavaScript file.
	Banner string
	Loader map[string]api.Loader
	// Declarations runs tsc to emit type declarations after the build.
	Declarations bool

	ESBuildPlugins []api.Plugin
	Plugins        []output.Plugin

	// WatchFiles are rebuilt on change in watch mode, next to the sources.
	WatchFiles []string
}

var defaultLoaders = map[string]api.Loader{
	".png":   api.LoaderFile,
	".jpg":   api.LoaderFile,
	".jpeg":  api.LoaderFile,
	".gif":   api.LoaderFile,
	".svg":   api.LoaderFile,
	".ico":   api.LoaderFile,
	".bmp":   api.LoaderFile,
	".tiff":  api.LoaderFile,
	".webp":  api.LoaderFile,
	".woff":  api.LoaderFile,
	".woff2": api.LoaderFile,
	".ttf":   api.LoaderFile,
	".otf":   api.LoaderFile,
	".eot":   api.LoaderFile,
}
