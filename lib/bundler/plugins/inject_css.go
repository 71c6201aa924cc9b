package plugins

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"micromachine.dev/bundlekit/lib/output"
)

const injectStyleScript = `(function(){try{if(typeof document!=="undefined"){var s=document.createElement("style");s.appendChild(document.createTextNode(%s));document.head.appendChild(s)}}catch(e){console.error("could not inject styles",e)}})();`

// InjectCSSPlugin moves the styles of every chunk into its code. The chunk adds them
// to the document as a <style> element when it is loaded.
type InjectCSSPlugin struct{}

func (InjectCSSPlugin) Name() string {
	return "css-injected-by-js"
}

func (InjectCSSPlugin) GenerateBundle(_ *output.Options, bundle *output.Bundle) error {
	var inlined []string

	for _, name := range bundle.ChunkFileNames() {
		chunk := bundle.Chunks[name]
		if len(chunk.ImportedCSS) == 0 {
			continue
		}

		var css []byte
		for _, file := range chunk.ImportedCSS {
			asset, ok := bundle.Assets[file]
			if !ok {
				return fmt.Errorf("stylesheet %s imported by %s is missing", file, chunk.FileName)
			}
			css = append(css, asset.Source...)
			inlined = append(inlined, file)
		}

		literal, err := json.Marshal(string(css))
		if err != nil {
			return err
		}
		if err := chunk.Prepend(fmt.Sprintf(injectStyleScript, literal)); err != nil {
			return err
		}
		chunk.ImportedCSS = nil

		slog.Debug("Inlined styles", slog.String("chunk", chunk.FileName), slog.Int("bytes", len(css)))
	}

	for _, file := range inlined {
		bundle.RemoveAsset(file)
	}
	return nil
}
