package plugins

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// ExternalFilePlugin keeps imports out of the bundle. An import is external when its
// extension is listed in Extensions, when it equals one of Modules or when it matches
// one of Patterns. Modules must match the whole import: "foo" does not match "foo/bar".
type ExternalFilePlugin struct {
	Extensions []string
	Modules    []string
	Patterns   []*regexp.Regexp
}

// ParseExternal splits user supplied externals into exact module names and regular
// expressions. Values written as /expr/ are regular expressions.
func ParseExternal(values []string) ([]string, []*regexp.Regexp, error) {
	var modules []string
	var patterns []*regexp.Regexp

	for _, v := range values {
		if len(v) > 2 && strings.HasPrefix(v, "/") && strings.HasSuffix(v, "/") {
			re, err := regexp.Compile(v[1 : len(v)-1])
			if err != nil {
				return nil, nil, fmt.Errorf("invalid external pattern %s: %w", v, err)
			}
			patterns = append(patterns, re)
			continue
		}
		modules = append(modules, v)
	}

	return modules, patterns, nil
}

func (p *ExternalFilePlugin) IsExternal(path string) bool {
	if slices.Contains(p.Extensions, filepath.Ext(path)) {
		return true
	}
	if slices.Contains(p.Modules, path) {
		return true
	}
	for _, re := range p.Patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

func (p *ExternalFilePlugin) New() api.Plugin {
	return api.Plugin{
		Name: "external-files",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind == api.ResolveEntryPoint || !p.IsExternal(args.Path) {
					return api.OnResolveResult{}, nil
				}

				return api.OnResolveResult{
					Path:     args.Path,
					External: true,
				}, nil
			})
		},
	}
}
