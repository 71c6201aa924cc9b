package cssentry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"micromachine.dev/bundlekit/lib/output"
)

// realCSS adds a stylesheet the way the bundler does: named through the target's namer.
func realCSS(t *testing.T, opts *output.Options, b *output.Bundle, name, source string) string {
	t.Helper()
	info := output.AssetInfo{Name: name, Source: []byte(source)}
	fileName := opts.NameAsset(info)
	_, err := b.EmitAsset(output.EmittedAsset{Name: name, FileName: fileName, Source: info.Source})
	require.NoError(t, err)
	return fileName
}

func configured(p *Plugin, pattern string) *output.Options {
	opts := &output.Options{AssetFileNames: output.Template(pattern)}
	p.ConfigureOutputs([]*output.Options{opts})
	return opts
}

func TestGenerateBundleEmptyEntries(t *testing.T) {
	for _, createEmpty := range []bool{false, true} {
		p := New(Options{CreateEmptyEntryPoints: createEmpty})
		opts := configured(p, "assets/[name].[ext]")

		b := output.NewBundle()
		b.AddChunk(&output.Chunk{Name: "main", FileName: "main.js", IsEntry: true})

		require.NoError(t, p.GenerateBundle(opts, b))

		asset, ok := b.Assets["assets/main.css"]
		if !createEmpty {
			assert.False(t, ok, "no entry point expected without styles")
			continue
		}
		require.True(t, ok)
		assert.Equal(t, Sentinel+"\n", string(asset.Source))
		assert.True(t, asset.Synthesized)
		assert.Equal(t, "\x00main.css", asset.Name)
	}
}

func TestGenerateBundleSkipsOnlyEmptyEntries(t *testing.T) {
	p := New(Options{})
	opts := configured(p, "[name].[ext]")

	b := output.NewBundle()
	css := realCSS(t, opts, b, "b.css", ".b{}")
	b.AddChunk(&output.Chunk{Name: "a", FileName: "a.js", IsEntry: true})
	b.AddChunk(&output.Chunk{Name: "b", FileName: "b.js", IsEntry: true, ImportedCSS: []string{css}})

	require.NoError(t, p.GenerateBundle(opts, b))

	assert.NotContains(t, b.Assets, "a.css")
	assert.Contains(t, b.Assets, "b.css")
}

func TestGenerateBundleAvoidsNameCollisions(t *testing.T) {
	p := New(Options{})
	opts := configured(p, "[name].css")

	b := output.NewBundle()
	css := realCSS(t, opts, b, "main.css", ".main{}")
	b.AddChunk(&output.Chunk{Name: "main", FileName: "main.js", IsEntry: true, ImportedCSS: []string{css}})

	require.NoError(t, p.GenerateBundle(opts, b))

	assert.Equal(t, "main.chunk.css", css)
	require.Contains(t, b.Assets, "main.css")
	assert.Equal(t, Sentinel+"\n@import './main.chunk.css';\n", string(b.Assets["main.css"].Source))
}

func TestGenerateBundleDirectoryPlacement(t *testing.T) {
	p := New(Options{})
	opts := configured(p, "assets/[name].[ext]")

	b := output.NewBundle()
	css := realCSS(t, opts, b, "main.css", ".main{}")
	b.AddChunk(&output.Chunk{Name: "main", FileName: "js/main.mjs", IsEntry: true, ImportedCSS: []string{css}})

	require.NoError(t, p.GenerateBundle(opts, b))

	require.Contains(t, b.Assets, "assets/main.css")
	assert.Contains(t, string(b.Assets["assets/main.css"].Source), "@import './main.chunk.css';")
}

func TestGenerateBundleIgnoresNonEntries(t *testing.T) {
	p := New(Options{CreateEmptyEntryPoints: true})
	opts := configured(p, "[name].[ext]")

	b := output.NewBundle()
	b.AddChunk(&output.Chunk{Name: "shared", FileName: "chunks/shared.js"})

	require.NoError(t, p.GenerateBundle(opts, b))
	assert.Empty(t, b.Assets)
}

func TestGenerateBundleFailsOnTakenFileName(t *testing.T) {
	p := New(Options{CreateEmptyEntryPoints: true})
	opts := &output.Options{AssetFileNames: output.Template("[name].css")}

	b := output.NewBundle()
	b.AddAsset(&output.Asset{Name: "main.css", FileName: "main.css"})
	b.AddChunk(&output.Chunk{Name: "main", FileName: "main.js", IsEntry: true})

	assert.Error(t, p.GenerateBundle(opts, b))
}

// Two entries: "first" loads no styles, "second" imports a global stylesheet and
// dynamically imports a module. Dynamic imports never contribute CSS.
func TestGenerateBundleEntries(t *testing.T) {
	p := New(Options{})
	opts := configured(p, "assets/[name].[ext]")

	b := output.NewBundle()
	global := realCSS(t, opts, b, "second.css", "body{}")
	lazy := realCSS(t, opts, b, "shared.css", ".lazy{}")

	b.AddChunk(&output.Chunk{Name: "first", FileName: "first.js", IsEntry: true})
	b.AddChunk(&output.Chunk{
		Name:        "second",
		FileName:    "second.js",
		IsEntry:     true,
		ImportedCSS: []string{global},
	})
	b.AddChunk(&output.Chunk{Name: "shared", FileName: "chunks/shared.js", ImportedCSS: []string{lazy}})

	require.NoError(t, p.GenerateBundle(opts, b))

	assert.NotContains(t, b.Assets, "assets/first.css")
	require.Contains(t, b.Assets, "assets/second.css")

	source := string(b.Assets["assets/second.css"].Source)
	assert.Equal(t, Sentinel+"\n@import './second.chunk.css';\n", source)
	assert.Regexp(t, `@import '\./[^.]+\.chunk\.css'`, source)
}

func TestGenerateBundleSharedChunksPerEntry(t *testing.T) {
	p := New(Options{})
	opts := configured(p, "[name].[ext]")

	b := output.NewBundle()
	shared := realCSS(t, opts, b, "shared.css", ".s{}")
	b.AddChunk(&output.Chunk{Name: "shared", FileName: "shared.js", ImportedCSS: []string{shared}})
	b.AddChunk(&output.Chunk{Name: "a", FileName: "a.js", IsEntry: true, Imports: []string{"shared.js"}})
	b.AddChunk(&output.Chunk{Name: "b", FileName: "b.js", IsEntry: true, Imports: []string{"shared.js"}})

	require.NoError(t, p.GenerateBundle(opts, b))

	for _, name := range []string{"a.css", "b.css"} {
		require.Contains(t, b.Assets, name)
		assert.Contains(t, string(b.Assets[name].Source), "@import './shared.chunk.css';")
	}
}

func TestAggregatorSourceRelativeImports(t *testing.T) {
	source := AggregatorSource("css", []string{"css/a.chunk.css", "styles/b.chunk.css"})
	assert.Equal(t, Sentinel+"\n@import './a.chunk.css';\n@import '../styles/b.chunk.css';\n", string(source))
}

func TestAggregatorDir(t *testing.T) {
	assert.Equal(t, "assets", AggregatorDir(output.Template("assets/[name].[ext]")))
	assert.Equal(t, "", AggregatorDir(output.Template("[name].css")))
	assert.Equal(t, "css/app", AggregatorDir(WrapAssetNames(output.Template("css/app/[name].css"))))
}
