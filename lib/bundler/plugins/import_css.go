package plugins

import (
	"fmt"
	"path"

	"micromachine.dev/bundlekit/lib/output"
)

// ImportCSSPlugin adds imports of the extracted stylesheets back to the chunks using
// them, so consumers of a library decide what to do with the styles.
type ImportCSSPlugin struct{}

func (ImportCSSPlugin) Name() string {
	return "import-css-libmode"
}

func (ImportCSSPlugin) GenerateBundle(opts *output.Options, bundle *output.Bundle) error {
	for _, name := range bundle.ChunkFileNames() {
		chunk := bundle.Chunks[name]
		dir := path.Dir(chunk.FileName)

		// prepend in reverse so the imports keep their order
		for i := len(chunk.ImportedCSS) - 1; i >= 0; i-- {
			spec := output.RelativeTo(dir, chunk.ImportedCSS[i])

			line := fmt.Sprintf("require('%s');", spec)
			if opts.Format == output.FormatES {
				line = fmt.Sprintf("import '%s';", spec)
			}

			if err := chunk.Prepend(line); err != nil {
				return err
			}
		}
	}
	return nil
}
