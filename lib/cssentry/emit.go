package cssentry

import (
	"fmt"
	"path"
	"strings"

	"micromachine.dev/bundlekit/lib/output"
)

// AggregatorSource builds the content of a CSS entry point placed in dir that imports
// every file of css in order.
func AggregatorSource(dir string, css []string) []byte {
	var sb strings.Builder
	sb.WriteString(Sentinel)
	sb.WriteByte('\n')

	for _, file := range css {
		fmt.Fprintf(&sb, "@import '%s';\n", importPath(dir, file))
	}

	return []byte(sb.String())
}

// AggregatorDir is the directory the namer places stylesheets in, so entry points land
// next to the chunk CSS they import.
func AggregatorDir(namer output.AssetNamer) string {
	name := namer(output.AssetInfo{Name: "name.css"})
	dir := path.Dir(path.Clean(name))
	if dir == "." {
		return ""
	}
	return dir
}

// EntryBaseName strips the extension from an entry chunk file name: "js/main.mjs" -> "main".
func EntryBaseName(fileName string) string {
	base := path.Base(fileName)
	return strings.TrimSuffix(base, path.Ext(base))
}

func importPath(dir, file string) string {
	if dir == "" {
		dir = "."
	}
	return output.RelativeTo(dir, file)
}
