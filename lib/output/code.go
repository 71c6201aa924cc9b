package output

import (
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Prepend adds line in front of the chunk code. Source map mappings are shifted by one
// line so they keep pointing at the right positions.
func (c *Chunk) Prepend(line string) error {
	c.Code = append([]byte(line+"\n"), c.Code...)
	if c.Map == nil {
		return nil
	}

	var m map[string]any
	if err := json.Unmarshal(c.Map, &m); err != nil {
		return fmt.Errorf("invalid source map for %s: %w", c.FileName, err)
	}
	mappings, _ := m["mappings"].(string)
	m["mappings"] = ";" + mappings

	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	c.Map = data
	return nil
}

// RelativeTo returns the import specifier of file as seen from dir, e.g.
// "./main.chunk.css" or "../css/app.css". Both paths are relative to the output dir.
func RelativeTo(dir, file string) string {
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(file))
	if err != nil {
		rel = path.Base(file)
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "./") && !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}
