package output

import (
	"fmt"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
)

// Chunk is an emitted JavaScript file.
type Chunk struct {
	// Name is the entry alias for entry chunks and the base name for shared chunks.
	Name     string
	FileName string
	IsEntry  bool
	// Imports holds the file names of statically imported chunks. Dynamically imported
	// chunks load on demand and are not listed.
	Imports []string
	// ImportedCSS holds the file names of the stylesheets this chunk pulls in synchronously.
	ImportedCSS []string
	// Modules are the input paths that contributed code to this chunk.
	Modules []string
	Code    []byte
	Map     []byte
}

// Asset is an emitted non-JavaScript file.
type Asset struct {
	// Name is the logical name. Internal assets use a "\x00" prefix.
	Name        string
	FileName    string
	Source      []byte
	Map         []byte
	Synthesized bool
}

// EmittedAsset is the request an output plugin makes to add a file to the bundle.
type EmittedAsset struct {
	Name        string
	FileName    string
	Source      []byte
	Synthesized bool
}

// Bundle is the set of files produced for one output target, keyed by file name.
type Bundle struct {
	Chunks map[string]*Chunk
	Assets map[string]*Asset
}

func NewBundle() *Bundle {
	return &Bundle{
		Chunks: make(map[string]*Chunk),
		Assets: make(map[string]*Asset),
	}
}

func (b *Bundle) AddChunk(c *Chunk) {
	b.Chunks[c.FileName] = c
}

func (b *Bundle) AddAsset(a *Asset) {
	b.Assets[a.FileName] = a
}

// EmitAsset registers a new asset. File names must be unique within the bundle.
func (b *Bundle) EmitAsset(e EmittedAsset) (*Asset, error) {
	fileName := path.Clean(e.FileName)
	if _, ok := b.Chunks[fileName]; ok {
		return nil, fmt.Errorf("cannot emit %q: a chunk with this file name already exists", fileName)
	}
	if _, ok := b.Assets[fileName]; ok {
		return nil, fmt.Errorf("cannot emit %q: an asset with this file name already exists", fileName)
	}

	a := &Asset{
		Name:        e.Name,
		FileName:    fileName,
		Source:      e.Source,
		Synthesized: e.Synthesized,
	}
	b.AddAsset(a)
	return a, nil
}

// RemoveAsset drops an asset from the bundle so it is not written.
func (b *Bundle) RemoveAsset(fileName string) {
	delete(b.Assets, fileName)
}

// ChunkFileNames returns the chunk file names in a stable order.
func (b *Bundle) ChunkFileNames() []string {
	return slices.Sorted(maps.Keys(b.Chunks))
}

// AssetFileNames returns the asset file names in a stable order.
func (b *Bundle) AssetFileNames() []string {
	return slices.Sorted(maps.Keys(b.Assets))
}

// Write writes every chunk, asset and source map below dir.
func (b *Bundle) Write(dir string) error {
	for _, name := range b.ChunkFileNames() {
		c := b.Chunks[name]
		if err := writeFile(dir, c.FileName, c.Code); err != nil {
			return err
		}
		if c.Map != nil {
			if err := writeFile(dir, c.FileName+".map", c.Map); err != nil {
				return err
			}
		}
	}

	for _, name := range b.AssetFileNames() {
		a := b.Assets[name]
		if err := writeFile(dir, a.FileName, a.Source); err != nil {
			return err
		}
		if a.Map != nil {
			if err := writeFile(dir, a.FileName+".map", a.Map); err != nil {
				return err
			}
		}
	}

	return nil
}

func writeFile(dir, name string, data []byte) error {
	target := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("could not create directory for %s: %w", name, err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", name, err)
	}
	return nil
}
