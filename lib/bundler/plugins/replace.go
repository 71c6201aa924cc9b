package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/evanw/esbuild/pkg/api"
)

var DefaultReplaceInclude = []string{"src/**/*", "lib/**/*"}

// ReplacePlugin replaces whole identifiers like `appName` with configured values in
// source files matching Include. Assignments to a replaced identifier are left alone.
type ReplacePlugin struct {
	Root    string
	Include []string
	Values  map[string]string
}

var scriptLoaders = map[string]api.Loader{
	".js":  api.LoaderJS,
	".mjs": api.LoaderJS,
	".cjs": api.LoaderJS,
	".jsx": api.LoaderJSX,
	".ts":  api.LoaderTS,
	".mts": api.LoaderTS,
	".cts": api.LoaderTS,
	".tsx": api.LoaderTSX,
}

func (p *ReplacePlugin) New() api.Plugin {
	return api.Plugin{
		Name: "replace",
		Setup: func(build api.PluginBuild) {
			if len(p.Values) == 0 {
				return
			}

			keys := make([]string, 0, len(p.Values))
			for k := range p.Values {
				keys = append(keys, regexp.QuoteMeta(k))
			}
			// longest first so "process.env.FOO" wins over "process"
			slices.SortFunc(keys, func(a, b string) int { return len(b) - len(a) })
			re := regexp.MustCompile(fmt.Sprintf(`\b(%s)\b`, strings.Join(keys, "|")))

			build.OnLoad(api.OnLoadOptions{Filter: `\.[mc]?[jt]sx?$`}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				if !p.included(args.Path) {
					return api.OnLoadResult{}, nil
				}

				data, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				contents, changed := p.replace(re, string(data))
				if !changed {
					return api.OnLoadResult{}, nil
				}

				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     scriptLoaders[filepath.Ext(args.Path)],
					ResolveDir: filepath.Dir(args.Path),
				}, nil
			})
		},
	}
}

func (p *ReplacePlugin) included(path string) bool {
	rel, err := filepath.Rel(p.Root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)

	include := p.Include
	if len(include) == 0 {
		include = DefaultReplaceInclude
	}
	for _, pattern := range include {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (p *ReplacePlugin) replace(re *regexp.Regexp, source string) (string, bool) {
	var b strings.Builder
	last := 0
	changed := false

	for _, m := range re.FindAllStringIndex(source, -1) {
		if isAssignment(source[m[1]:]) {
			continue
		}
		b.WriteString(source[last:m[0]])
		b.WriteString(p.Values[source[m[0]:m[1]]])
		last = m[1]
		changed = true
	}
	b.WriteString(source[last:])

	return b.String(), changed
}

// isAssignment reports whether rest starts with "=" but not "==" or "=>".
func isAssignment(rest string) bool {
	rest = strings.TrimLeft(rest, " \t")
	return strings.HasPrefix(rest, "=") && !strings.HasPrefix(rest, "==") && !strings.HasPrefix(rest, "=>")
}
