package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/outline"
)

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	input := `# Title

Intro text.

## Section A

- point one
  - detail
- point two

### Subsection A1

## Section B
`
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tree.Title != "doc" {
		t.Errorf("expected title %q, got %q", "doc", tree.Title)
	}
	if tree.Source != "doc.md" {
		t.Errorf("expected source %q, got %q", "doc.md", tree.Source)
	}

	// Top-level: one h1 ("Title")
	if len(tree.Nodes) != 1 {
		t.Fatalf("expected 1 top-level node (h1), got %d", len(tree.Nodes))
	}
	h1 := tree.Nodes[0]
	if h1.Text != "Title" || h1.Kind != doctree.KindHeading1 {
		t.Errorf("expected h1 %q, got %s %q", "Title", h1.Kind, h1.Text)
	}

	// h1 has two h2 children: "Section A" and "Section B"
	if len(h1.Children) != 2 {
		t.Fatalf("expected 2 h2 children, got %d", len(h1.Children))
	}
	secA := h1.Children[0]
	if secA.Text != "Section A" {
		t.Errorf("expected %q, got %q", "Section A", secA.Text)
	}

	// Section A: two bullets then the h3.
	if len(secA.Children) != 3 {
		t.Fatalf("expected 3 children under Section A, got %d", len(secA.Children))
	}
	if secA.Children[0].Text != "point one" || secA.Children[0].Level != 3 {
		t.Errorf("expected bullet %q at level 3, got %q at %d", "point one", secA.Children[0].Text, secA.Children[0].Level)
	}
	if len(secA.Children[0].Children) != 1 || secA.Children[0].Children[0].Text != "detail" {
		t.Errorf("expected nested bullet %q", "detail")
	}
	if secA.Children[2].Kind != doctree.KindHeading3 {
		t.Errorf("expected h3 last, got %s", secA.Children[2].Kind)
	}

	if h1.Children[1].Text != "Section B" {
		t.Errorf("expected %q, got %q", "Section B", h1.Children[1].Text)
	}
}

func TestMarkdownParser_Frontmatter(t *testing.T) {
	input := "---\ntitle: Project Map\ntags:\n  - planning\n  - q4\n---\n# Goals\n- ship\n"
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(input), "notes/project.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "Project Map" {
		t.Errorf("expected frontmatter title, got %q", tree.Title)
	}
	// YAML list items must not leak into the outline as bullets.
	if len(tree.Nodes) != 1 || tree.Nodes[0].Text != "Goals" {
		t.Fatalf("expected single Goals heading, got %d nodes", len(tree.Nodes))
	}
	if len(tree.Nodes[0].Children) != 1 {
		t.Errorf("expected 1 bullet under Goals, got %d", len(tree.Nodes[0].Children))
	}
	if tree.Frontmatter["tags"] == nil {
		t.Error("expected tags in frontmatter")
	}
	if tree.ContentHash != doctree.HashContent([]byte(input)) {
		t.Error("expected content hash of the full source")
	}
}

func TestMarkdownParser_SpacesPerIndent(t *testing.T) {
	input := "- a\n    - b\n  - c\n"
	p := &MarkdownParser{Options: Options{SpacesPerIndent: 4}}
	tree, err := p.Parse(strings.NewReader(input), "x.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// With 4-space units "  - c" is indent 0, a sibling of a.
	if len(tree.Nodes) != 2 {
		t.Fatalf("expected 2 root bullets, got %d", len(tree.Nodes))
	}
	if len(tree.Nodes[0].Children) != 1 || tree.Nodes[0].Children[0].Text != "b" {
		t.Errorf("expected b nested under a")
	}
}

func TestMarkdownParser_RandomIDs(t *testing.T) {
	p := &MarkdownParser{Options: Options{IDs: outline.RandomIDs}}
	tree, err := p.Parse(strings.NewReader("# A\n- b"), "x.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Nodes[0].ID == "0" {
		t.Errorf("expected random id, got positional %q", tree.Nodes[0].ID)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	tree, err := p.Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Nodes) != 0 {
		t.Errorf("expected 0 nodes for empty input, got %d", len(tree.Nodes))
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"dir/plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		tree, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if tree.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, tree.Title)
		}
	}
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"a.md", "*parser.MarkdownParser"},
		{"a.MARKDOWN", "*parser.MarkdownParser"},
		{"a.txt", "*parser.TextParser"},
		{"a.htm", "*parser.HTMLParser"},
		{"a.pdf", "*parser.PDFParser"},
		{"a.docx", "*parser.DOCXParser"},
		{"a.csv", "*parser.CSVParser"},
	}
	for _, tt := range tests {
		p, err := ForFile(tt.filename, Options{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.filename, err)
		}
		if got := typeName(p); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.filename, tt.want, got)
		}
	}
	if _, err := ForFile("a.xlsx", Options{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if IsSupportedExtension("x.exe") || !IsSupportedExtension("X.MD") {
		t.Error("unexpected IsSupportedExtension result")
	}
}

func typeName(p Parser) string {
	switch p.(type) {
	case *MarkdownParser:
		return "*parser.MarkdownParser"
	case *TextParser:
		return "*parser.TextParser"
	case *HTMLParser:
		return "*parser.HTMLParser"
	case *PDFParser:
		return "*parser.PDFParser"
	case *DOCXParser:
		return "*parser.DOCXParser"
	case *CSVParser:
		return "*parser.CSVParser"
	}
	return "unknown"
}
