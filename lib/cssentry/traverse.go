package cssentry

import "micromachine.dev/bundlekit/lib/output"

// Node is the part of a chunk the traversal needs.
type Node struct {
	Imports []string
	CSS     []string
}

// Graph maps chunk file names to their static imports and directly imported CSS.
type Graph map[string]Node

func GraphFromBundle(b *output.Bundle) Graph {
	g := make(Graph, len(b.Chunks))
	for name, c := range b.Chunks {
		g[name] = Node{Imports: c.Imports, CSS: c.ImportedCSS}
	}
	return g
}

// CollectCSS returns every stylesheet the chunk id loads synchronously: its own CSS
// first, then the CSS of its static imports, deepest dependencies first. Each file
// appears once. Unknown chunks are treated as having neither imports nor CSS.
func CollectCSS(g Graph, id string) []string {
	c := &collector{
		graph:   g,
		visited: map[string]bool{id: true},
		seen:    make(map[string]bool),
	}

	node := g[id]
	c.add(node.CSS)
	c.walk(node.Imports)

	return c.css
}

type collector struct {
	graph   Graph
	visited map[string]bool
	seen    map[string]bool
	css     []string
}

func (c *collector) walk(ids []string) {
	for _, id := range ids {
		if c.visited[id] {
			continue
		}
		c.visited[id] = true

		node, ok := c.graph[id]
		if !ok {
			continue
		}

		c.walk(node.Imports)
		c.add(node.CSS)
	}
}

func (c *collector) add(files []string) {
	for _, f := range files {
		if c.seen[f] {
			continue
		}
		c.seen[f] = true
		c.css = append(c.css, f)
	}
}
