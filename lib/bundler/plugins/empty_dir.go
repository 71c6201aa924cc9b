package plugins

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"micromachine.dev/bundlekit/lib/output"
)

// EmptyDirPlugin removes "js/" and Directories below Root before the first bundle is
// written. Later rebuilds of the same process leave the directories alone.
type EmptyDirPlugin struct {
	Root        string
	Directories []string

	once sync.Once
	err  error
}

func (p *EmptyDirPlugin) Name() string {
	return "empty-js-dir"
}

func (p *EmptyDirPlugin) GenerateBundle(*output.Options, *output.Bundle) error {
	p.once.Do(func() {
		p.err = p.empty()
	})
	return p.err
}

func (p *EmptyDirPlugin) empty() error {
	dirs := append([]string{}, p.Directories...)
	dirs = append(dirs, "js")

	for _, dir := range dirs {
		target := filepath.Join(p.Root, dir)
		rel, err := filepath.Rel(p.Root, target)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("refusing to empty %s: not a directory below %s", dir, p.Root)
		}

		if _, err := os.Stat(target); os.IsNotExist(err) {
			continue
		}
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("could not empty %s: %w", dir, err)
		}
		slog.Debug("Emptied output directory", slog.String("dir", dir))
	}
	return nil
}
