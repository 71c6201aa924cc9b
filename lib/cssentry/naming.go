package cssentry

import (
	"regexp"
	"strings"

	"micromachine.dev/bundlekit/lib/output"
)

// Sentinel is the first line of every generated CSS entry point.
const Sentinel = "/* extracted by css-entry-points-plugin */"

// ChunkSuffix replaces the extension of stylesheets that are not entry points.
const ChunkSuffix = ".chunk.css"

var cssExtension = regexp.MustCompile(`(\.css|\.\[ext\]|\[extname\])$`)

// WrapAssetNames wraps orig so stylesheets emitted by esbuild get the ".chunk.css"
// suffix. Generated entry points keep the name orig gives them, which keeps the two
// kinds of CSS files from ever sharing a file name.
func WrapAssetNames(orig output.AssetNamer) output.AssetNamer {
	return func(info output.AssetInfo) string {
		name := orig(info)
		if strings.HasSuffix(info.Name, ".css") && !info.Synthesized {
			return cssExtension.ReplaceAllString(name, ChunkSuffix)
		}
		return name
	}
}
