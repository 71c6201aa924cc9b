package plugins

import (
	"bytes"

	"micromachine.dev/bundlekit/lib/output"
)

// MergeCSSPlugin combines all stylesheets of the bundle into a single "style.css".
type MergeCSSPlugin struct{}

func (MergeCSSPlugin) Name() string {
	return "merge-css"
}

func (MergeCSSPlugin) GenerateBundle(opts *output.Options, bundle *output.Bundle) error {
	var merged bytes.Buffer
	var files []string
	seen := make(map[string]bool)

	for _, name := range bundle.ChunkFileNames() {
		for _, file := range bundle.Chunks[name].ImportedCSS {
			asset, ok := bundle.Assets[file]
			if !ok || seen[file] {
				continue
			}
			seen[file] = true
			files = append(files, file)
			merged.Write(asset.Source)
			if !bytes.HasSuffix(asset.Source, []byte("\n")) {
				merged.WriteByte('\n')
			}
		}
	}
	if len(files) == 0 {
		return nil
	}

	for _, file := range files {
		bundle.RemoveAsset(file)
	}

	info := output.AssetInfo{Name: "style.css", Source: merged.Bytes()}
	asset, err := bundle.EmitAsset(output.EmittedAsset{
		Name:     info.Name,
		FileName: opts.NameAsset(info),
		Source:   info.Source,
	})
	if err != nil {
		return err
	}

	for _, chunk := range bundle.Chunks {
		if len(chunk.ImportedCSS) > 0 {
			chunk.ImportedCSS = []string{asset.FileName}
		}
	}
	return nil
}
