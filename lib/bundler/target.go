package bundler

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

var esVersions = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var engineNames = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ios":     api.EngineIOS,
	"node":    api.EngineNode,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

var engineRe = regexp.MustCompile(`^([a-z]+)(\d+(?:\.\d+)*)$`)

// parseTarget splits targets like "es2020" and "chrome87" into the esbuild language
// target and engine versions. Unknown targets are ignored with a warning.
func parseTarget(targets []string) (api.Target, []api.Engine) {
	target := api.DefaultTarget
	var engines []api.Engine

	for _, t := range targets {
		t = strings.ToLower(strings.TrimSpace(t))
		if es, ok := esVersions[t]; ok {
			target = es
			continue
		}

		m := engineRe.FindStringSubmatch(t)
		if m == nil {
			slog.Warn("Ignoring unknown build target", slog.String("target", t))
			continue
		}
		name, ok := engineNames[m[1]]
		if !ok {
			slog.Warn("Ignoring unknown build target", slog.String("target", t))
			continue
		}
		engines = append(engines, api.Engine{Name: name, Version: m[2]})
	}

	return target, engines
}
