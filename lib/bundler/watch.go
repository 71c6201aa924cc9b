package bundler

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/fsnotify/fsnotify"
	"micromachine.dev/bundlekit/lib/bundler/plugins"
	"micromachine.dev/bundlekit/lib/config"
	"micromachine.dev/bundlekit/lib/output"
	"micromachine.dev/bundlekit/lib/utils"
)

const watchDebounce = 200 * time.Millisecond

// Reload creates a fresh configuration after a configuration file changed.
type Reload func() (*config.Config, error)

// Watch rebuilds on source changes until ctx is done. Changes to the configuration
// file or appinfo/info.xml reload the configuration and restart the build contexts.
func (b *Bundle) Watch(ctx context.Context, reload Reload) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer fsw.Close() //nolint:errcheck

	b.watching = true
	contexts, err := b.startWatching()
	if err != nil {
		return err
	}
	defer func() {
		disposeAll(contexts)
	}()

	if err := watchFiles(fsw, b.Config.WatchFiles); err != nil {
		return err
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	restart := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			mu.Lock()
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			return nil

		case evt, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("file watcher closed unexpectedly")
			}
			if !slices.Contains(b.Config.WatchFiles, filepath.Clean(evt.Name)) {
				continue
			}
			if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Rename) {
				continue
			}

			mu.Lock()
			if timer == nil {
				timer = time.AfterFunc(watchDebounce, func() {
					select {
					case restart <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(watchDebounce)
			}
			mu.Unlock()

		case <-restart:
			utils.LogWithColor(utils.Cyan, "Configuration changed, restarting...")

			cfg, err := reload()
			if err != nil {
				slog.Error(fmt.Sprintf("✗ %v", err))
				continue
			}

			disposeAll(contexts)
			contexts = nil

			keepEmptyDir(b.Config.Plugins, cfg.Plugins)
			b.Config = cfg
			b.configured = false
			if err := watchFiles(fsw, cfg.WatchFiles); err != nil {
				return err
			}

			contexts, err = b.startWatching()
			if err != nil {
				slog.Error(fmt.Sprintf("✗ %v", err))
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("file watcher closed unexpectedly")
			}
			slog.Warn(fmt.Sprintf("file watcher: %v", err))
		}
	}
}

// startWatching creates one esbuild context per target and starts its watch mode.
func (b *Bundle) startWatching() ([]api.BuildContext, error) {
	b.configureOutputs()

	var contexts []api.BuildContext
	for _, target := range b.Config.Outputs {
		buildCtx, ctxErr := api.Context(b.buildOptions(target))
		if ctxErr != nil {
			disposeAll(contexts)
			return nil, fmt.Errorf("%w: %w", ErrBuildFailed, messagesError(ctxErr.Errors))
		}
		contexts = append(contexts, buildCtx)

		if err := buildCtx.Watch(api.WatchOptions{}); err != nil {
			disposeAll(contexts)
			return nil, fmt.Errorf("could not watch %s: %w", target.Dir, err)
		}
	}

	utils.LogWithColor(utils.Info, "Watching for changes...")
	return contexts, nil
}

// watchFiles watches the directories of files, editors often replace files on save.
func watchFiles(fsw *fsnotify.Watcher, files []string) error {
	for _, file := range files {
		dir := filepath.Dir(file)
		if slices.Contains(fsw.WatchList(), dir) {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			return fmt.Errorf("could not watch %s: %w", dir, err)
		}
	}
	return nil
}

// keepEmptyDir hands the EmptyDirPlugin of the previous configuration to the reloaded
// one, output directories are emptied once per process.
func keepEmptyDir(prev, next []output.Plugin) {
	var kept *plugins.EmptyDirPlugin
	for _, p := range prev {
		if emptyDir, ok := p.(*plugins.EmptyDirPlugin); ok {
			kept = emptyDir
		}
	}
	if kept == nil {
		return
	}

	for i, p := range next {
		if emptyDir, ok := p.(*plugins.EmptyDirPlugin); ok && emptyDir.Root == kept.Root {
			next[i] = kept
		}
	}
}

func disposeAll(contexts []api.BuildContext) {
	for _, c := range contexts {
		c.Dispose()
	}
}
