package parser

import (
	"io"

	"github.com/dgallion1/mindoutline/internal/doctree"
)

// TextParser handles plain text outlines. No frontmatter handling.
type TextParser struct {
	Options Options
}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Tree, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return ParseText(string(src), filename, p.Options), nil
}
