package parser

import (
	"io"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/frontmatter"
)

// MarkdownParser handles Markdown notes: frontmatter is split off, then the
// body goes through the outline parser line by line.
type MarkdownParser struct {
	Options Options
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	// Malformed frontmatter is left in the body, like any other text.
	note, _ := frontmatter.Split(string(src))

	tree := ParseText(note.Body, filename, p.Options)
	tree.ContentHash = doctree.HashContent(src)
	if len(note.Frontmatter) > 0 {
		tree.Frontmatter = note.Frontmatter
	}
	if title := note.Title(); title != "" {
		tree.Title = title
	}
	return tree, nil
}
