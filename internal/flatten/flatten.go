package flatten

import (
	"strings"

	"github.com/dgallion1/mindoutline/internal/doctree"
)

// Entry is one node of an outline in document order, with enough context
// to rebuild its position without the tree.
type Entry struct {
	Index      int          `json:"index"`
	ID         string       `json:"id"`
	ParentID   string       `json:"parent_id,omitempty"`
	Kind       doctree.Kind `json:"kind"`
	Level      int          `json:"level"`
	Text       string       `json:"text"`
	Breadcrumb []string     `json:"breadcrumb,omitempty"`
	Children   int          `json:"children"`
}

// Config controls flattening.
type Config struct {
	MaxLevel int // Deepest level to emit; 0 means no limit.
}

// Flatten walks the forest depth-first and returns its nodes in document
// order. Breadcrumbs hold the ancestor texts, root first.
func Flatten(forest []*doctree.Node, cfg Config) []Entry {
	var entries []Entry
	for _, n := range forest {
		walkNode(n, "", nil, cfg, &entries)
	}
	return entries
}

func walkNode(node *doctree.Node, parentID string, breadcrumb []string, cfg Config, entries *[]Entry) {
	if cfg.MaxLevel > 0 && node.Level > cfg.MaxLevel {
		return
	}
	*entries = append(*entries, Entry{
		Index:      len(*entries),
		ID:         node.ID,
		ParentID:   parentID,
		Kind:       node.Kind,
		Level:      node.Level,
		Text:       node.Text,
		Breadcrumb: copyBreadcrumb(breadcrumb),
		Children:   len(node.Children),
	})

	bc := append(copyBreadcrumb(breadcrumb), node.Text)
	for _, child := range node.Children {
		walkNode(child, node.ID, bc, cfg, entries)
	}
}

// Markdown writes the forest back out as a heading/bullet outline. Bullets
// are indented by spacesPerIndent per bullet ancestor below their heading.
// Parsing the result with the same spacing reproduces the tree shape.
func Markdown(forest []*doctree.Node, spacesPerIndent int) string {
	if spacesPerIndent <= 0 {
		spacesPerIndent = 2
	}
	var b strings.Builder
	var visit func(nodes []*doctree.Node, bulletDepth int)
	visit = func(nodes []*doctree.Node, bulletDepth int) {
		for _, n := range nodes {
			if d := n.Kind.HeadingDepth(); d > 0 {
				b.WriteString(strings.Repeat("#", d))
				b.WriteString(" ")
				b.WriteString(n.Text)
				b.WriteString("\n")
				visit(n.Children, 0)
				continue
			}
			b.WriteString(strings.Repeat(" ", bulletDepth*spacesPerIndent))
			b.WriteString("- ")
			b.WriteString(n.Text)
			b.WriteString("\n")
			visit(n.Children, bulletDepth+1)
		}
	}
	visit(forest, 0)
	return b.String()
}

func copyBreadcrumb(bc []string) []string {
	if len(bc) == 0 {
		return nil
	}
	out := make([]string, len(bc))
	copy(out, bc)
	return out
}
