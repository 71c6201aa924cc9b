package output

type Format string

const (
	FormatES   Format = "es"
	FormatCJS  Format = "cjs"
	FormatIIFE Format = "iife"
)

type Sourcemap string

const (
	SourcemapNone   Sourcemap = ""
	SourcemapInline Sourcemap = "inline"
	SourcemapLinked Sourcemap = "linked"
	// SourcemapHidden writes .map files without referencing them from the output.
	SourcemapHidden Sourcemap = "hidden"
)

// Options describes one output target of a build. Library builds usually have one
// target per module format, app builds a single ES target.
type Options struct {
	Format Format
	// Dir is the output directory, relative to the project root.
	Dir string
	// EntryFileNames and ChunkFileNames are esbuild name templates without extension.
	EntryFileNames string
	ChunkFileNames string
	// Extension is appended to every JS file, e.g. ".mjs".
	Extension      string
	AssetFileNames AssetNamer
	// Intro is prepended to every chunk.
	Intro     string
	Sourcemap Sourcemap
}

// DefaultAssetFileNames is used by targets that do not configure AssetFileNames.
const DefaultAssetFileNames = "assets/[name]-[hash][extname]"

// Namer returns the configured asset namer or the default one.
func (o *Options) Namer() AssetNamer {
	if o.AssetFileNames == nil {
		return Template(DefaultAssetFileNames)
	}
	return o.AssetFileNames
}

// NameAsset resolves the final file name of an asset.
func (o *Options) NameAsset(info AssetInfo) string {
	return Expand(o.Namer()(info), info)
}
