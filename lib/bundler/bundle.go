package bundler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"micromachine.dev/bundlekit/lib/config"
	"micromachine.dev/bundlekit/lib/output"
	"micromachine.dev/bundlekit/lib/utils"
)

var ErrBuildFailed = errors.New("build failed")

type Bundle struct {
	Config *config.Config
	// PackageManager runs tsc for declarations. It is detected when empty.
	PackageManager string

	configured bool
	// watching logs build errors as they happen, there is no caller to return them to.
	watching bool
}

// Pack builds every output target of the configuration and writes the result.
func (b *Bundle) Pack(ctx context.Context) error {
	start := time.Now()
	utils.LogWithColor(utils.Cyan, "Bundling...")

	b.configureOutputs()

	for _, target := range b.Config.Outputs {
		if err := b.packTarget(ctx, target); err != nil {
			return err
		}
	}

	if b.Config.Declarations {
		if err := b.emitDeclarations(); err != nil {
			return err
		}
	}

	utils.LogDone("Bundling completed", start)
	return nil
}

func (b *Bundle) packTarget(ctx context.Context, target *output.Options) error {
	buildCtx, ctxErr := api.Context(b.buildOptions(target))
	if ctxErr != nil {
		return fmt.Errorf("%w: %w", ErrBuildFailed, messagesError(ctxErr.Errors))
	}
	defer buildCtx.Dispose()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			buildCtx.Cancel()
		case <-done:
		}
	}()

	result := buildCtx.Rebuild()
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("%w: %w", ErrBuildFailed, messagesError(result.Errors))
	}
	return nil
}

// configureOutputs lets output plugins adjust the targets, once per Bundle.
func (b *Bundle) configureOutputs() {
	if b.configured {
		return
	}
	for _, p := range b.Config.Plugins {
		if configurer, ok := p.(output.OutputConfigurer); ok {
			configurer.ConfigureOutputs(b.Config.Outputs)
		}
	}
	b.configured = true
}

func (b *Bundle) buildOptions(target *output.Options) api.BuildOptions {
	cfg := b.Config

	aliases := slices.Sorted(maps.Keys(cfg.Entries))
	entryPoints := make([]api.EntryPoint, 0, len(aliases))
	for _, alias := range aliases {
		entryPoints = append(entryPoints, api.EntryPoint{
			InputPath:  cfg.Entries[alias],
			OutputPath: alias,
		})
	}

	esTarget, engines := parseTarget(cfg.Target)

	var banner []string
	for _, part := range []string{cfg.Banner, target.Intro} {
		if part != "" {
			banner = append(banner, part)
		}
	}

	plugins := slices.Clone(cfg.ESBuildPlugins)
	plugins = append(plugins, b.outputPlugin(target))

	return api.BuildOptions{
		EntryPointsAdvanced: entryPoints,
		AbsWorkingDir:       cfg.Root,
		Outdir:              filepath.Join(cfg.Root, target.Dir),
		EntryNames:          target.EntryFileNames,
		ChunkNames:          target.ChunkFileNames,
		AssetNames:          "assets/[name]-[hash]",
		OutExtension:        map[string]string{".js": target.Extension},
		Bundle:              true,
		Write:               false,
		Metafile:            true,
		Splitting:           target.Format == output.FormatES,
		Format:              esbuildFormat(target.Format),
		Platform:            api.PlatformBrowser,
		Target:              esTarget,
		Engines:             engines,
		MinifyIdentifiers:   cfg.Minify,
		MinifySyntax:        cfg.Minify,
		MinifyWhitespace:    cfg.MinifyWhitespace,
		Sourcemap:           esbuildSourcemap(target.Sourcemap),
		LegalComments:       cfg.LegalComments,
		Define:              cfg.Define,
		Loader:              cfg.Loader,
		Banner:              map[string]string{"js": strings.Join(banner, "\n")},
		LogLevel:            api.LogLevelSilent,
		Plugins:             plugins,
	}
}

// outputPlugin runs the output plugins on the result of every build and writes it.
func (b *Bundle) outputPlugin(target *output.Options) api.Plugin {
	return api.Plugin{
		Name: "bundlekit-output",
		Setup: func(build api.PluginBuild) {
			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				for _, w := range result.Warnings {
					slog.Warn(formatMessage(w))
				}
				if len(result.Errors) > 0 {
					if b.watching {
						for _, m := range result.Errors {
							slog.Error(fmt.Sprintf("✗ %s", formatMessage(m)))
						}
					}
					return api.OnEndResult{}, nil
				}

				if err := b.generate(result, target); err != nil {
					if b.watching {
						slog.Error(fmt.Sprintf("✗ %v", err))
					}
					return api.OnEndResult{
						Errors: []api.Message{{Text: err.Error(), PluginName: "bundlekit-output"}},
					}, nil
				}
				return api.OnEndResult{}, nil
			})
		},
	}
}

func (b *Bundle) generate(result *api.BuildResult, target *output.Options) error {
	bundle, err := toBundle(result, b.Config.Root, target, b.Config.Entries)
	if err != nil {
		return err
	}

	for _, p := range b.Config.Plugins {
		generator, ok := p.(output.BundleGenerator)
		if !ok {
			continue
		}
		if err := generator.GenerateBundle(target, bundle); err != nil {
			return fmt.Errorf("[%s] %w", p.Name(), err)
		}
	}

	outDir := filepath.Join(b.Config.Root, target.Dir)
	if err := bundle.Write(outDir); err != nil {
		return err
	}

	logFiles(target.Dir, bundle)
	return nil
}

func (b *Bundle) emitDeclarations() error {
	pm := b.PackageManager
	if pm == "" {
		detected, err := utils.DetectPackageManager(b.Config.Root)
		if err != nil {
			return fmt.Errorf("could not detect package manager: %w", err)
		}
		pm = detected
	}

	outDir := "dist"
	if len(b.Config.Outputs) > 0 && b.Config.Outputs[0].Dir != "" {
		outDir = b.Config.Outputs[0].Dir
	}

	start := time.Now()
	utils.LogWithColor(utils.Default, "Emitting type declarations...")
	err := b.RunExecutableCommand(pm, "tsc", "--declaration", "--emitDeclarationOnly", "--outDir", outDir)
	if err != nil {
		return fmt.Errorf("could not emit type declarations: %w", err)
	}
	utils.LogDone("Type declarations emitted", start)
	return nil
}

func (b *Bundle) RunExecutableCommand(pm string, args ...string) error {
	name, args, err := utils.ExecutableCommand(pm, args...)
	if err != nil {
		return err
	}
	return b.RunCommand(name, args...)
}

func (b *Bundle) RunCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Dir = b.Config.Root
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func esbuildFormat(format output.Format) api.Format {
	switch format {
	case output.FormatCJS:
		return api.FormatCommonJS
	case output.FormatIIFE:
		return api.FormatIIFE
	}
	return api.FormatESModule
}

func esbuildSourcemap(sourcemap output.Sourcemap) api.SourceMap {
	switch sourcemap {
	case output.SourcemapInline:
		return api.SourceMapInline
	case output.SourcemapLinked:
		return api.SourceMapLinked
	case output.SourcemapHidden:
		return api.SourceMapExternal
	}
	return api.SourceMapNone
}

func messagesError(messages []api.Message) error {
	errs := make([]error, len(messages))
	for i, m := range messages {
		errs[i] = errors.New(formatMessage(m))
	}
	return errors.Join(errs...)
}

func formatMessage(m api.Message) string {
	text := m.Text
	if m.PluginName != "" {
		text = fmt.Sprintf("[%s] %s", m.PluginName, text)
	}
	if m.Location != nil {
		text = fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, text)
	}
	return text
}

func logFiles(dir string, bundle *output.Bundle) {
	files := append(bundle.ChunkFileNames(), bundle.AssetFileNames()...)
	for _, name := range files {
		size := 0
		if c, ok := bundle.Chunks[name]; ok {
			size = len(c.Code)
		} else {
			size = len(bundle.Assets[name].Source)
		}
		utils.LogWithColor(utils.Muted, fmt.Sprintf("  %-60s %8.2f kB", filepath.ToSlash(filepath.Join(dir, name)), float64(size)/1000))
	}
}
