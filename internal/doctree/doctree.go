package doctree

import (
	"crypto/sha256"
	"fmt"
	"strconv"
)

// Kind is the closed set of node tags.
type Kind string

const (
	KindRoot     Kind = "root"
	KindUnknown  Kind = "unknown"
	KindHeading1 Kind = "heading-1"
	KindHeading2 Kind = "heading-2"
	KindHeading3 Kind = "heading-3"
	KindHeading4 Kind = "heading-4"
	KindHeading5 Kind = "heading-5"
	KindHeading6 Kind = "heading-6"
	KindBullet   Kind = "bullet"

	// Reserved for future line-kind detection. The outline parser never
	// produces these.
	KindImage Kind = "image"
	KindQuote Kind = "quote"
	KindCode  Kind = "code"
	KindTask  Kind = "task"
	KindLink  Kind = "link"
	KindMath  Kind = "math"
)

// MaxHeadingDepth is the deepest markdown heading (######).
const MaxHeadingDepth = 6

// HeadingKind returns the kind for a markdown heading depth (1-6).
// Depths outside that range are KindUnknown.
func HeadingKind(depth int) Kind {
	if depth < 1 || depth > MaxHeadingDepth {
		return KindUnknown
	}
	return Kind("heading-" + strconv.Itoa(depth))
}

// HeadingDepth returns the markdown depth of a heading kind, or 0.
func (k Kind) HeadingDepth() int {
	switch k {
	case KindHeading1:
		return 1
	case KindHeading2:
		return 2
	case KindHeading3:
		return 3
	case KindHeading4:
		return 4
	case KindHeading5:
		return 5
	case KindHeading6:
		return 6
	}
	return 0
}

// IsHeading reports whether k is one of heading-1..heading-6.
func (k Kind) IsHeading() bool {
	return k.HeadingDepth() > 0
}

// Node is one heading or bullet of an outline. Nodes are never mutated
// after the parser returns them.
type Node struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	Kind     Kind    `json:"kind"`
	Level    int     `json:"level"`    // Tree depth; the implicit root is 0.
	Children []*Node `json:"children"` // Document order.
}

// Tree is a parsed source document.
type Tree struct {
	Title       string         `json:"title"`  // Frontmatter title or filename
	Source      string         `json:"source"` // Original filename
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	ContentHash string         `json:"content_hash"`
	Nodes       []*Node        `json:"nodes"` // Children of the implicit root
}

// Walk visits every node of the forest in document (pre-order) order.
// parent is nil for root-level nodes. Returning false from fn skips the
// node's children.
func Walk(forest []*Node, fn func(n, parent *Node) bool) {
	var visit func(nodes []*Node, parent *Node)
	visit = func(nodes []*Node, parent *Node) {
		for _, n := range nodes {
			if fn(n, parent) {
				visit(n.Children, n)
			}
		}
	}
	visit(forest, nil)
}

// Counts tallies node kinds in a forest.
type Counts struct {
	Nodes    int `json:"nodes"`
	Headings int `json:"headings"`
	Bullets  int `json:"bullets"`
	MaxLevel int `json:"max_level"`
}

// Count walks the forest and tallies its nodes.
func Count(forest []*Node) Counts {
	var c Counts
	Walk(forest, func(n, _ *Node) bool {
		c.Nodes++
		switch {
		case n.Kind.IsHeading():
			c.Headings++
		case n.Kind == KindBullet:
			c.Bullets++
		}
		if n.Level > c.MaxLevel {
			c.MaxLevel = n.Level
		}
		return true
	})
	return c
}

// HashContent returns the hex SHA-256 of a document's source bytes.
func HashContent(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
