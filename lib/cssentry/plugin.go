// Package cssentry creates one CSS entry point per JavaScript entry point.
//
// esbuild writes the styles a JavaScript entry imports next to it, but with code
// splitting the styles of shared chunks end up in their own files and nothing tells
// the consumer which of them an entry needs. The plugin renames every stylesheet
// esbuild emits to "*.chunk.css" and then writes "<entry>.css" files that @import
// all stylesheets an entry loads synchronously.
package cssentry

import (
	"fmt"
	"log/slog"
	"path"

	"micromachine.dev/bundlekit/lib/output"
)

type Options struct {
	// CreateEmptyEntryPoints also writes entry points for JavaScript entries without styles.
	CreateEmptyEntryPoints bool
}

type Plugin struct {
	options Options
	wrapped map[*output.Options]bool
}

func New(options Options) *Plugin {
	return &Plugin{
		options: options,
		wrapped: make(map[*output.Options]bool),
	}
}

func (p *Plugin) Name() string {
	return "css-entry-points-plugin"
}

// ConfigureOutputs installs the asset name wrapper on every target that has an asset
// namer. Targets are wrapped at most once.
func (p *Plugin) ConfigureOutputs(targets []*output.Options) {
	for _, target := range targets {
		if target.AssetFileNames == nil || p.wrapped[target] {
			continue
		}
		target.AssetFileNames = WrapAssetNames(target.AssetFileNames)
		p.wrapped[target] = true
	}
}

func (p *Plugin) GenerateBundle(opts *output.Options, bundle *output.Bundle) error {
	graph := GraphFromBundle(bundle)
	dir := AggregatorDir(opts.Namer())

	for _, name := range bundle.ChunkFileNames() {
		chunk := bundle.Chunks[name]
		if !chunk.IsEntry {
			continue
		}

		if err := p.emitEntry(bundle, dir, chunk, CollectCSS(graph, name)); err != nil {
			return err
		}
	}

	return nil
}

func (p *Plugin) emitEntry(bundle *output.Bundle, dir string, chunk *output.Chunk, css []string) error {
	if len(css) == 0 && !p.options.CreateEmptyEntryPoints {
		slog.Debug("Skipping CSS entry point without styles", slog.String("entry", chunk.FileName))
		return nil
	}

	cssName := EntryBaseName(chunk.FileName) + ".css"
	fileName := path.Join(dir, cssName)

	_, err := bundle.EmitAsset(output.EmittedAsset{
		Name:        "\x00" + cssName,
		FileName:    fileName,
		Source:      AggregatorSource(dir, css),
		Synthesized: true,
	})
	if err != nil {
		return fmt.Errorf("could not emit CSS entry point for %s: %w", chunk.FileName, err)
	}

	slog.Debug("Emitted CSS entry point", slog.String("file", fileName), slog.Int("imports", len(css)))
	return nil
}
