package bundler

import (
	"encoding/json"
	"fmt"
	"maps"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"micromachine.dev/bundlekit/lib/output"
)

type metafile struct {
	Outputs map[string]metaOutput `json:"outputs"`
}

type metaOutput struct {
	Imports []struct {
		Path     string `json:"path"`
		Kind     string `json:"kind"`
		External bool   `json:"external"`
	} `json:"imports"`
	EntryPoint string `json:"entryPoint"`
	CSSBundle  string `json:"cssBundle"`
	Inputs     map[string]struct {
		BytesInOutput int `json:"bytesInOutput"`
	} `json:"inputs"`
}

// converter turns an esbuild result into the bundle of one output target. Keys are
// paths relative to the project root as esbuild reports them in the metafile.
type converter struct {
	root    string
	target  *output.Options
	aliases map[string]string

	meta     metafile
	contents map[string][]byte
	bundle   *output.Bundle
	// renamed maps the original location of stylesheets and files to their final one,
	// both relative to the output directory.
	renamed map[string]string
	css     map[string]*output.Asset
	files   map[string]*output.Asset
}

func toBundle(result *api.BuildResult, root string, target *output.Options, entries map[string]string) (*output.Bundle, error) {
	c := &converter{
		root:     root,
		target:   target,
		aliases:  make(map[string]string, len(entries)),
		contents: make(map[string][]byte, len(result.OutputFiles)),
		bundle:   output.NewBundle(),
		renamed:  make(map[string]string),
		css:      make(map[string]*output.Asset),
		files:    make(map[string]*output.Asset),
	}

	for alias, input := range entries {
		c.aliases[path.Clean(filepath.ToSlash(input))] = alias
	}

	if err := json.Unmarshal([]byte(result.Metafile), &c.meta); err != nil {
		return nil, fmt.Errorf("invalid metafile: %w", err)
	}

	for _, file := range result.OutputFiles {
		rel, err := filepath.Rel(root, file.Path)
		if err != nil {
			return nil, err
		}
		c.contents[filepath.ToSlash(rel)] = file.Contents
	}

	keys := slices.Sorted(maps.Keys(c.meta.Outputs))
	for _, key := range keys {
		switch ext := path.Ext(key); {
		case ext == ".map":
		case ext == ".css":
			c.addStylesheet(key)
		case ext == ".js" || ext == c.target.Extension:
			c.addChunk(key)
		default:
			c.addFile(key)
		}
	}

	c.linkStylesheets()
	c.rewriteReferences()

	return c.bundle, nil
}

// fileName returns key relative to the output directory.
func (c *converter) fileName(key string) string {
	dir := c.target.Dir
	if dir == "" || dir == "." {
		return key
	}
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(key))
	if err != nil {
		return key
	}
	return filepath.ToSlash(rel)
}

func (c *converter) addChunk(key string) {
	out := c.meta.Outputs[key]
	fileName := c.fileName(key)

	chunk := &output.Chunk{
		FileName: fileName,
		Code:     c.contents[key],
		Map:      c.contents[key+".map"],
	}

	if alias, ok := c.aliases[out.EntryPoint]; ok {
		chunk.Name = alias
		chunk.IsEntry = true
	} else if out.EntryPoint != "" {
		chunk.Name = baseName(out.EntryPoint)
	} else {
		chunk.Name = baseName(fileName)
	}

	for _, imp := range out.Imports {
		if imp.External {
			continue
		}
		if imp.Kind == "import-statement" || imp.Kind == "require-call" {
			chunk.Imports = append(chunk.Imports, c.fileName(imp.Path))
		}
	}

	for input, info := range out.Inputs {
		if info.BytesInOutput > 0 {
			chunk.Modules = append(chunk.Modules, input)
		}
	}
	slices.Sort(chunk.Modules)

	c.bundle.AddChunk(chunk)
}

// addStylesheet names a stylesheet through the asset namer. Its logical name is the
// name of the chunk it belongs to.
func (c *converter) addStylesheet(key string) {
	out := c.meta.Outputs[key]
	name := baseName(key)
	original := out.EntryPoint

	if alias, ok := c.aliases[out.EntryPoint]; ok {
		name = alias
	} else if owner, ok := c.owner(key); ok {
		ownerOut := c.meta.Outputs[owner]
		if alias, ok := c.aliases[ownerOut.EntryPoint]; ok {
			name = alias
		} else if ownerOut.EntryPoint != "" {
			name = baseName(ownerOut.EntryPoint)
		} else {
			name = baseName(c.fileName(owner))
		}
		original = ownerOut.EntryPoint
	}

	info := output.AssetInfo{
		Name:             name + ".css",
		OriginalFileName: original,
		Source:           c.contents[key],
	}
	c.addAsset(key, info, c.css)
}

// addFile names a file loader asset (images, fonts) through the asset namer.
func (c *converter) addFile(key string) {
	out := c.meta.Outputs[key]
	inputs := slices.Sorted(maps.Keys(out.Inputs))

	info := output.AssetInfo{
		Name:   path.Base(key),
		Source: c.contents[key],
	}
	if len(inputs) == 1 {
		info.Name = path.Base(inputs[0])
		info.OriginalFileName = inputs[0]
	}
	c.addAsset(key, info, c.files)
}

func (c *converter) addAsset(key string, info output.AssetInfo, kind map[string]*output.Asset) {
	fileName := c.uniqueFileName(c.target.NameAsset(info))

	asset := &output.Asset{
		Name:     info.Name,
		FileName: fileName,
		Source:   info.Source,
		Map:      c.contents[key+".map"],
	}
	c.bundle.AddAsset(asset)
	c.renamed[c.fileName(key)] = fileName
	kind[c.fileName(key)] = asset
}

// uniqueFileName appends a counter to the base name of fileName while it is taken,
// e.g. "css/index.css" becomes "css/index2.css".
func (c *converter) uniqueFileName(fileName string) string {
	if _, ok := c.bundle.Assets[fileName]; !ok {
		return fileName
	}

	ext := path.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d%s", base, i, ext)
		if _, ok := c.bundle.Assets[candidate]; !ok {
			return candidate
		}
	}
}

func (c *converter) owner(cssKey string) (string, bool) {
	for key, out := range c.meta.Outputs {
		if out.CSSBundle == cssKey {
			return key, true
		}
	}
	return "", false
}

func (c *converter) linkStylesheets() {
	for key, out := range c.meta.Outputs {
		if out.CSSBundle == "" {
			continue
		}
		chunk, ok := c.bundle.Chunks[c.fileName(key)]
		if !ok {
			continue
		}
		if renamed, ok := c.renamed[c.fileName(out.CSSBundle)]; ok {
			chunk.ImportedCSS = append(chunk.ImportedCSS, renamed)
		}
	}
}

// rewriteReferences fixes the paths esbuild wrote for moved files: url() references
// in stylesheets, file loader URLs in chunks and source map links of stylesheets.
func (c *converter) rewriteReferences() {
	for _, chunk := range c.bundle.Chunks {
		chunk.Code = c.rewriteFileURLs(chunk.Code, chunk.FileName, chunk.FileName)
	}

	for from, asset := range c.css {
		asset.Source = c.rewriteFileURLs(asset.Source, from, asset.FileName)
		if asset.Map == nil {
			continue
		}
		asset.Source = []byte(strings.Replace(string(asset.Source),
			"sourceMappingURL="+path.Base(from)+".map",
			"sourceMappingURL="+path.Base(asset.FileName)+".map", 1))
		if m, err := relocateSourceMap(asset.Map, path.Dir(from), path.Dir(asset.FileName)); err == nil {
			asset.Map = m
		}
	}
}

func (c *converter) rewriteFileURLs(code []byte, from, to string) []byte {
	if len(c.files) == 0 {
		return code
	}

	s := string(code)
	for _, old := range slices.Sorted(maps.Keys(c.files)) {
		oldRef := output.RelativeTo(path.Dir(from), old)
		newRef := output.RelativeTo(path.Dir(to), c.files[old].FileName)
		if oldRef == newRef {
			continue
		}
		for _, delim := range [][2]string{{`"`, `"`}, {`'`, `'`}, {`(`, `)`}} {
			s = strings.ReplaceAll(s, delim[0]+oldRef+delim[1], delim[0]+newRef+delim[1])
		}
	}
	return []byte(s)
}

// relocateSourceMap rewrites the sources of a source map moved from one directory to another.
func relocateSourceMap(data []byte, from, to string) ([]byte, error) {
	if from == to {
		return data, nil
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	sources, _ := m["sources"].([]any)
	for i, s := range sources {
		source, ok := s.(string)
		if !ok || strings.Contains(source, ":") || path.IsAbs(source) {
			continue
		}
		sources[i] = strings.TrimPrefix(output.RelativeTo(to, path.Join(from, source)), "./")
	}
	return json.Marshal(m)
}

func baseName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
