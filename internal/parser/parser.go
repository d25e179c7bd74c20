package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/outline"
)

// Parser converts raw document bytes into an outline Tree.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Tree, error)
}

// Options are shared by all format parsers.
type Options struct {
	// SpacesPerIndent is the bullet indentation width of markdown and text
	// sources. Zero means outline.DefaultSpacesPerIndent; negative values
	// make any indentation count as one unit.
	SpacesPerIndent int
	IDs             outline.IDStrategy

	PDFFallbackPdftotext bool
	// CSVHeader drops the first row of CSV sources.
	CSVHeader bool
}

// AnyIndent makes any nonzero indentation count as one unit.
const AnyIndent = -1

// ExplicitIndent maps an indentation width a caller asked for to an
// Options value. A zero Options field means the default width, but an
// explicit request of zero or less means AnyIndent.
func ExplicitIndent(n int) int {
	if n <= 0 {
		return AnyIndent
	}
	return n
}

func (o Options) outlineOptions() outline.Options {
	spaces := o.SpacesPerIndent
	if spaces == 0 {
		spaces = outline.DefaultSpacesPerIndent
	}
	return outline.Options{SpacesPerIndent: spaces, IDs: o.IDs}
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
	".csv":      true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".md", ".markdown":
		return &MarkdownParser{Options: opts}, nil
	case ".txt":
		return &TextParser{Options: opts}, nil
	case ".html", ".htm":
		return &HTMLParser{Options: opts}, nil
	case ".pdf":
		return &PDFParser{Options: opts}, nil
	case ".docx":
		return &DOCXParser{Options: opts}, nil
	case ".csv":
		return &CSVParser{Options: opts, Header: opts.CSVHeader}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ParseText runs the outline parser over already-decoded outline text.
func ParseText(src, filename string, opts Options) *doctree.Tree {
	return &doctree.Tree{
		Title:       titleFromFilename(filename),
		Source:      filename,
		ContentHash: doctree.HashContent([]byte(src)),
		Nodes:       outline.ParseWith(src, opts.outlineOptions()),
	}
}

func titleFromFilename(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// outlineWriter renders structure recovered from rich formats as outline
// text, so every format goes through the same outline parser.
type outlineWriter struct {
	buf strings.Builder
}

// writerIndent is the indentation width outlineWriter emits.
const writerIndent = 2

func (w *outlineWriter) heading(depth int, text string) {
	text = singleLine(text)
	if text == "" {
		return
	}
	depth = max(1, min(depth, doctree.MaxHeadingDepth))
	w.buf.WriteString(strings.Repeat("#", depth))
	w.buf.WriteByte(' ')
	w.buf.WriteString(text)
	w.buf.WriteByte('\n')
}

func (w *outlineWriter) bullet(indent int, text string) {
	text = singleLine(text)
	if text == "" {
		return
	}
	w.buf.WriteString(strings.Repeat(" ", max(indent, 0)*writerIndent))
	w.buf.WriteString("- ")
	w.buf.WriteString(text)
	w.buf.WriteByte('\n')
}

func (w *outlineWriter) String() string {
	return w.buf.String()
}

// tree parses the written outline. IDs follow opts, indentation is the
// writer's own.
func (w *outlineWriter) tree(filename, title string, opts Options) *doctree.Tree {
	src := w.String()
	opts.SpacesPerIndent = writerIndent
	t := ParseText(src, filename, opts)
	if title != "" {
		t.Title = title
	}
	return t
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
