package output

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strings"
)

// AssetInfo is what an AssetNamer gets to see about an asset before it has a file name.
type AssetInfo struct {
	// Name is the logical name of the asset, e.g. "main.css".
	Name string
	// OriginalFileName is the path of the source file the asset was created from, if any.
	OriginalFileName string
	Source           []byte
	// Synthesized marks assets created by output plugins rather than by esbuild.
	Synthesized bool
}

// AssetNamer returns the file name (or file name pattern) for an asset.
type AssetNamer func(info AssetInfo) string

// Template turns a constant pattern like "assets/[name].[ext]" into an AssetNamer.
func Template(pattern string) AssetNamer {
	return func(AssetInfo) string {
		return pattern
	}
}

// Expand replaces the [name], [ext], [extname] and [hash] placeholders of pattern.
func Expand(pattern string, info AssetInfo) string {
	base := path.Base(info.Name)
	ext := path.Ext(base)

	r := strings.NewReplacer(
		"[name]", strings.TrimSuffix(base, ext),
		"[extname]", ext,
		"[ext]", strings.TrimPrefix(ext, "."),
		"[hash]", ContentHash(info.Source),
	)

	return path.Clean(r.Replace(pattern))
}

// ContentHash is the short content hash used for [hash].
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:8]
}
