// Package render turns node text into inline HTML for the mind map view.
package render

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var wikiLink = regexp.MustCompile(`\[\[([^\[\]|]*)(?:\|([^\[\]]*))?\]\]`)

// WikiPrefix marks hrefs produced from [[wiki links]] so the front end can
// route them to the vault instead of the browser.
const WikiPrefix = "wiki:"

// Renderer converts markdown inline syntax to HTML. Raw HTML in node text is
// escaped.
type Renderer struct {
	md goldmark.Markdown
}

func New() *Renderer {
	return &Renderer{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Inline renders a single label. Block wrappers goldmark adds around a lone
// paragraph are removed.
func (r *Renderer) Inline(text string) (string, error) {
	src := wikiLink.ReplaceAllStringFunc(text, func(m string) string {
		sub := wikiLink.FindStringSubmatch(m)
		target := strings.TrimSpace(sub[1])
		label := strings.TrimSpace(sub[2])
		if label == "" {
			label = target
		}
		return "[" + escapeLabel(label) + "](<" + WikiPrefix + url.PathEscape(target) + ">)"
	})

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render %q: %w", text, err)
	}
	out := strings.TrimSpace(buf.String())
	if strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") && strings.Count(out, "<p>") == 1 {
		out = out[len("<p>") : len(out)-len("</p>")]
	}
	return out, nil
}

// RenderTree renders every node in the forest, keyed by node ID.
func (r *Renderer) RenderTree(forest []*doctree.Node) (map[string]string, error) {
	out := make(map[string]string)
	var firstErr error
	doctree.Walk(forest, func(n, _ *doctree.Node) bool {
		html, err := r.Inline(n.Text)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out[n.ID] = html
		return true
	})
	return out, firstErr
}

func escapeLabel(s string) string {
	r := strings.NewReplacer(`[`, `\[`, `]`, `\]`)
	return r.Replace(s)
}
