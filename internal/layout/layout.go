// Package layout positions outline nodes for a left-to-right mind map.
//
// Columns follow depth. Leaves take consecutive rows and every parent is
// centred between its first and last visible child, so sibling spacing is
// constant and subtrees never overlap.
package layout

import "github.com/dgallion1/mindoutline/internal/doctree"

const (
	DefaultGapX = 220
	DefaultGapY = 80

	// RootID is the ID of the synthetic root emitted when Options.RootLabel
	// is set.
	RootID = "root"
)

// Options controls spacing and visibility.
type Options struct {
	GapX      float64         // Horizontal distance between depth columns.
	GapY      float64         // Vertical distance between leaf rows.
	Collapsed map[string]bool // Node IDs whose descendants are hidden.
	RootLabel string          // When set, a visible root node is drawn with this text.
}

// Node is a positioned outline node.
type Node struct {
	ID          string       `json:"id"`
	ParentID    string       `json:"parent_id,omitempty"`
	Text        string       `json:"text"`
	HTML        string       `json:"html,omitempty"`
	Kind        doctree.Kind `json:"kind"`
	Level       int          `json:"level"`
	Depth       int          `json:"depth"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	Collapsible bool         `json:"collapsible"`
	Collapsed   bool         `json:"collapsed"`
}

type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is the laid-out outline.
type Graph struct {
	Nodes  []Node  `json:"nodes"`
	Edges  []Edge  `json:"edges"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type state struct {
	opts  Options
	graph *Graph
	rows  int
}

// Layout positions every visible node of the forest. Nodes are emitted in
// document order.
func Layout(forest []*doctree.Node, opts Options) Graph {
	if opts.GapX <= 0 {
		opts.GapX = DefaultGapX
	}
	if opts.GapY <= 0 {
		opts.GapY = DefaultGapY
	}

	g := Graph{Nodes: []Node{}, Edges: []Edge{}}
	s := &state{opts: opts, graph: &g}

	if opts.RootLabel != "" {
		root := &doctree.Node{ID: RootID, Text: opts.RootLabel, Kind: doctree.KindRoot, Children: forest}
		s.place(root, "", 0)
	} else {
		for _, n := range forest {
			s.place(n, "", 0)
		}
	}

	for _, n := range g.Nodes {
		if n.X > g.Width {
			g.Width = n.X
		}
		if n.Y > g.Height {
			g.Height = n.Y
		}
	}
	return g
}

// place appends n and its visible subtree and returns n's y coordinate.
func (s *state) place(n *doctree.Node, parentID string, depth int) float64 {
	collapsed := s.opts.Collapsed[n.ID] && len(n.Children) > 0
	idx := len(s.graph.Nodes)
	s.graph.Nodes = append(s.graph.Nodes, Node{
		ID:          n.ID,
		ParentID:    parentID,
		Text:        n.Text,
		Kind:        n.Kind,
		Level:       n.Level,
		Depth:       depth,
		X:           float64(depth) * s.opts.GapX,
		Collapsible: len(n.Children) > 0,
		Collapsed:   collapsed,
	})
	if parentID != "" {
		s.graph.Edges = append(s.graph.Edges, Edge{From: parentID, To: n.ID})
	}

	var y float64
	if collapsed || len(n.Children) == 0 {
		y = float64(s.rows) * s.opts.GapY
		s.rows++
	} else {
		first := s.place(n.Children[0], n.ID, depth+1)
		last := first
		for _, c := range n.Children[1:] {
			last = s.place(c, n.ID, depth+1)
		}
		y = (first + last) / 2
	}
	s.graph.Nodes[idx].Y = y
	return y
}

// Index maps node IDs to their position in g.Nodes.
func (g Graph) Index() map[string]int {
	m := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		m[n.ID] = i
	}
	return m
}
