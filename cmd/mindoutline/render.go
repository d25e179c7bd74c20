package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/links"
)

// Monokai Pro palette.
const (
	colorTitle   = "#FF6188"
	colorHeading = "#FFD866"
	colorBullet  = "#FCFCFA"
	colorLink    = "#AB9DF2"
	colorDim     = "#727072"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorTitle))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorHeading))
	bulletStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorBullet))
	linkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(colorLink))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim))
)

// renderTree draws the outline with box-drawing branches. The tree title
// stands in for the implicit root.
func renderTree(t *doctree.Tree) string {
	title := t.Title
	if title == "" {
		title = t.Source
	}
	root := tree.Root(titleStyle.Render(title))
	addChildren(root, t.Nodes)
	return root.String()
}

func addChildren(parent *tree.Tree, nodes []*doctree.Node) {
	parent.Enumerator(tree.RoundedEnumerator).EnumeratorStyle(dimStyle)
	for _, n := range nodes {
		label := nodeLabel(n)
		if len(n.Children) == 0 {
			parent.Child(label)
			continue
		}
		sub := tree.Root(label)
		addChildren(sub, n.Children)
		parent.Child(sub)
	}
}

func nodeLabel(n *doctree.Node) string {
	if n.Kind.IsHeading() {
		return headingStyle.Render(n.Text)
	}
	return bulletStyle.Render(n.Text)
}

// renderLinks prints one line per link: breadcrumb, label and target.
func renderLinks(found []links.NodeLink) string {
	if len(found) == 0 {
		return dimStyle.Render("no links") + "\n"
	}
	var b strings.Builder
	for _, l := range found {
		target := l.Target
		if l.Section != "" {
			target += "#" + l.Section
		}
		fmt.Fprintf(&b, "%s  %s %s %s\n",
			dimStyle.Render(strings.Join(l.Breadcrumb, " › ")),
			l.Label,
			dimStyle.Render("→"),
			linkStyle.Render(target),
		)
	}
	return b.String()
}
