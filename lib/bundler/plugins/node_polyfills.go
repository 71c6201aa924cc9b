package plugins

import (
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

const requiredNodeBuiltInNamespace = "node-built-in-modules"
const emptyPolyfillNamespace = "node-polyfill-empty"
const nodeGlobalsNamespace = "node-polyfill-globals"

// nodeBuiltinModules is require('module').builtinModules without internal modules.
var nodeBuiltinModules = []string{
	"assert", "assert/strict", "async_hooks", "buffer", "child_process", "cluster",
	"console", "constants", "crypto", "dgram", "diagnostics_channel", "dns", "dns/promises",
	"domain", "events", "fs", "fs/promises", "http", "http2", "https", "inspector", "module",
	"net", "os", "path", "path/posix", "path/win32", "perf_hooks", "process", "punycode",
	"querystring", "readline", "readline/promises", "repl", "stream", "stream/consumers",
	"stream/promises", "stream/web", "string_decoder", "sys", "timers", "timers/promises",
	"tls", "trace_events", "tty", "url", "util", "util/types", "v8", "vm", "wasi",
	"worker_threads", "zlib",
}

// nodePolyfills maps builtins to the browser packages replacing them. Builtins without
// an entry resolve to an empty module.
var nodePolyfills = map[string]string{
	"assert":         "assert/",
	"assert/strict":  "assert/",
	"buffer":         "buffer/",
	"console":        "console-browserify",
	"constants":      "constants-browserify",
	"crypto":         "crypto-browserify",
	"domain":         "domain-browser",
	"events":         "events/",
	"http":           "stream-http",
	"https":          "https-browserify",
	"os":             "os-browserify/browser.js",
	"path":           "path-browserify",
	"path/posix":     "path-browserify",
	"process":        "process/browser.js",
	"punycode":       "punycode/",
	"querystring":    "querystring-es3",
	"stream":         "stream-browserify",
	"string_decoder": "string_decoder/",
	"sys":            "util/",
	"timers":         "timers-browserify",
	"tty":            "tty-browserify",
	"url":            "url/",
	"util":           "util/",
	"vm":             "vm-browserify",
	"zlib":           "browserify-zlib",
}

var nodeModulesReStr = fmt.Sprintf(`^(node:)?(%s)$`, strings.Join(quoteAll(nodeBuiltinModules), "|"))
var nodeModulesRe = regexp.MustCompile(nodeModulesReStr)

// NodePolyfillsPlugin replaces imports of Node.js builtins with browser polyfills.
type NodePolyfillsPlugin struct {
	BasePath string
	// ProtocolImports also handles "node:" prefixed imports.
	ProtocolImports bool
	// Exclude lists builtins that are left alone.
	Exclude []string
	// Globals injects Buffer, process and global.
	Globals bool
}

func (p *NodePolyfillsPlugin) New() api.Plugin {
	return api.Plugin{
		Name: "node-polyfills",
		Setup: func(build api.PluginBuild) {
			p.handleRequireCallsToNodeJSBuiltins(build)
			p.handleBuiltinImports(build)
			if p.Globals {
				p.handleNodeJSGlobals(build)
			}
		},
	}
}

// builtin returns the builtin name of path if the plugin should polyfill it.
func (p *NodePolyfillsPlugin) builtin(path string) (string, bool) {
	m := nodeModulesRe.FindStringSubmatch(path)
	if m == nil {
		return "", false
	}
	if m[1] != "" && !p.ProtocolImports {
		return "", false
	}
	if slices.Contains(p.Exclude, m[2]) {
		return "", false
	}
	return m[2], true
}

/**
 * `require()` calls of builtins are turned into a virtual ES module that imports the
 * polyfill and re-exports it as module.exports.
 */
func (p *NodePolyfillsPlugin) handleRequireCallsToNodeJSBuiltins(build api.PluginBuild) {
	build.OnResolve(api.OnResolveOptions{Filter: nodeModulesReStr}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
		name, ok := p.builtin(args.Path)
		if !ok || args.Kind != api.ResolveJSRequireCall {
			return api.OnResolveResult{}, nil
		}

		return api.OnResolveResult{
			Namespace: requiredNodeBuiltInNamespace,
			Path:      name,
		}, nil
	})

	build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: requiredNodeBuiltInNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
		contents := fmt.Sprintf(`import * as lib from '%s';
					module.exports = "default" in lib ? lib.default : lib;`, args.Path)
		return api.OnLoadResult{
			Contents:   &contents,
			Loader:     api.LoaderJS,
			ResolveDir: p.BasePath,
		}, nil
	})
}

func (p *NodePolyfillsPlugin) handleBuiltinImports(build api.PluginBuild) {
	build.OnResolve(api.OnResolveOptions{Filter: nodeModulesReStr}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
		name, ok := p.builtin(args.Path)
		if !ok {
			return api.OnResolveResult{}, nil
		}

		polyfill, ok := nodePolyfills[name]
		if !ok {
			return api.OnResolveResult{Namespace: emptyPolyfillNamespace, Path: name}, nil
		}

		resolveDir := args.ResolveDir
		if resolveDir == "" {
			resolveDir = p.BasePath
		}
		result := build.Resolve(polyfill, api.ResolveOptions{
			ResolveDir: resolveDir,
			Kind:       api.ResolveJSImportStatement,
		})
		if len(result.Errors) > 0 {
			return api.OnResolveResult{}, fmt.Errorf("could not resolve polyfill %s for node builtin %s, is it installed?", polyfill, name)
		}

		return api.OnResolveResult{Path: result.Path, Namespace: result.Namespace}, nil
	})

	build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: emptyPolyfillNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
		contents := "export default {};"
		return api.OnLoadResult{
			Contents: &contents,
			Loader:   api.LoaderJS,
		}, nil
	})
}

/**
 * Inject a virtual module exporting `Buffer`, `process` and `global`, so esbuild
 * replaces the free variables of the same name with the polyfills.
 */
func (p *NodePolyfillsPlugin) handleNodeJSGlobals(build api.PluginBuild) {
	virtualModule := pathResolve(p.BasePath, "_virtual_node_polyfill_globals.js")
	build.InitialOptions.Inject = append(build.InitialOptions.Inject, virtualModule)

	build.OnResolve(api.OnResolveOptions{Filter: `_virtual_node_polyfill_globals\.js$`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
		return api.OnResolveResult{
			Path:      args.Path,
			Namespace: nodeGlobalsNamespace,
		}, nil
	})

	build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: nodeGlobalsNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
		contents := `
				import { Buffer } from "buffer";
				import process from "process";
				const global = globalThis;
				export { Buffer, process, global };
			`
		return api.OnLoadResult{
			Contents:   &contents,
			Loader:     api.LoaderJS,
			ResolveDir: p.BasePath,
		}, nil
	})
}

func pathResolve(paths ...string) string {
	for i := len(paths) - 1; i >= 0; i-- {
		if filepath.IsAbs(paths[i]) {
			return filepath.Clean(filepath.Join(paths[i:]...))
		}
	}
	abs, _ := filepath.Abs(filepath.Join(paths...))
	return abs
}

func quoteAll(values []string) []string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = regexp.QuoteMeta(v)
	}
	return quoted
}
