// Package links finds link syntax inside outline node text. The outline
// parser never interprets links; this package reads the raw Text fields.
package links

import (
	"regexp"
	"strings"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Kind distinguishes link syntaxes.
type Kind string

const (
	KindWiki     Kind = "wiki"     // [[Target#Section|Alias]]
	KindMarkdown Kind = "markdown" // [label](destination)
	KindAuto     Kind = "auto"     // <https://example.com>
)

// Link is one link found in a piece of text.
type Link struct {
	Kind     Kind   `json:"kind"`
	Target   string `json:"target"`
	Section  string `json:"section,omitempty"`
	Label    string `json:"label"`
	External bool   `json:"external"`
}

// NodeLink is a link together with the node it was found in.
type NodeLink struct {
	Link
	NodeID     string   `json:"node_id"`
	Breadcrumb []string `json:"breadcrumb"`
}

var (
	wikiLink = regexp.MustCompile(`\[\[([^\[\]|#]*)(?:#([^\[\]|]*))?(?:\|([^\[\]]*))?\]\]`)
	scheme   = regexp.MustCompile(`^[a-z][a-z\d+\-.]*:`)
)

var md = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// IsExternal reports whether href carries a URI scheme (https:, mailto:,
// obsidian:). Everything else is a note reference inside the vault.
func IsExternal(href string) bool {
	return scheme.MatchString(strings.ToLower(strings.TrimSpace(href)))
}

// Extract returns the links in s in order of appearance: wiki links first
// pass, then markdown and autolinks from the goldmark inline tree.
func Extract(s string) []Link {
	var out []Link
	for _, m := range wikiLink.FindAllStringSubmatch(s, -1) {
		target := strings.TrimSpace(m[1])
		section := strings.TrimSpace(m[2])
		if target == "" && section == "" {
			continue
		}
		label := strings.TrimSpace(m[3])
		if label == "" {
			switch {
			case section == "":
				label = target
			case target == "":
				label = section
			default:
				label = target + " > " + section
			}
		}
		out = append(out, Link{Kind: KindWiki, Target: target, Section: section, Label: label, External: false})
	}

	// Wiki links are removed first so goldmark does not read "[[a]]" as a
	// bracketed label.
	rest := wikiLink.ReplaceAllString(s, " ")
	src := []byte(rest)
	doc := md.Parser().Parse(text.NewReader(src))
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Link:
			dest := string(node.Destination)
			out = append(out, Link{
				Kind:     KindMarkdown,
				Target:   dest,
				Label:    plainText(node, src),
				External: IsExternal(dest),
			})
			return ast.WalkSkipChildren, nil
		case *ast.AutoLink:
			dest := string(node.URL(src))
			out = append(out, Link{
				Kind:     KindAuto,
				Target:   dest,
				Label:    string(node.Label(src)),
				External: IsExternal(dest),
			})
		}
		return ast.WalkContinue, nil
	})
	return out
}

// Collect extracts the links of every node in the forest, with the
// heading/bullet path leading to each node.
func Collect(forest []*doctree.Node) []NodeLink {
	var out []NodeLink
	var visit func(nodes []*doctree.Node, trail []string)
	visit = func(nodes []*doctree.Node, trail []string) {
		for _, n := range nodes {
			bc := append(append([]string(nil), trail...), n.Text)
			for _, l := range Extract(n.Text) {
				out = append(out, NodeLink{Link: l, NodeID: n.ID, Breadcrumb: bc})
			}
			visit(n.Children, bc)
		}
	}
	visit(forest, nil)
	return out
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
			continue
		}
		b.WriteString(plainText(c, src))
	}
	return b.String()
}
