// Package outline turns markdown-like outline text (# headings and
// indented bullet lists) into a tree of doctree nodes in a single forward
// pass.
package outline

import (
	"strings"
	"unicode"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/google/uuid"
)

// DefaultSpacesPerIndent is the indentation width used when callers have
// no preference.
const DefaultSpacesPerIndent = 2

// IDStrategy selects how node ids are generated.
type IDStrategy int

const (
	// PathIDs derives ids from the parent id and sibling index ("0-2-1").
	// Re-parsing the same text yields the same ids.
	PathIDs IDStrategy = iota
	// RandomIDs assigns a random UUID to every node.
	RandomIDs
)

// ParseIDStrategy maps a config value ("path" or "uuid") to a strategy.
// Unknown values fall back to PathIDs.
func ParseIDStrategy(s string) IDStrategy {
	if strings.EqualFold(strings.TrimSpace(s), "uuid") {
		return RandomIDs
	}
	return PathIDs
}

// Options controls a parse.
type Options struct {
	SpacesPerIndent int
	IDs             IDStrategy
}

// Parse builds the outline forest for src. The returned nodes are the
// children of an implicit root. Parse never fails; empty or blank input
// yields an empty forest.
func Parse(src string, spacesPerIndent int) []*doctree.Node {
	return ParseWith(src, Options{SpacesPerIndent: spacesPerIndent})
}

// ParseWith is Parse with explicit options.
func ParseWith(src string, opts Options) []*doctree.Node {
	b := newBuilder(opts)
	for _, raw := range strings.Split(src, "\n") {
		b.line(raw)
	}
	return b.root.Children
}

// entry is one slot of the context stack.
type entry struct {
	node   *doctree.Node
	bullet bool
	indent int // indentation units; only meaningful for bullets
}

// builder holds the state of one parse. stack is indexed by tree depth:
// stack[d] is the most recently emitted node at depth d on the open branch,
// or nil. stack[0] is always the implicit root.
type builder struct {
	opts    Options
	root    *doctree.Node
	stack   []*entry
	context int // depth of the current heading context
}

func newBuilder(opts Options) *builder {
	root := &doctree.Node{Kind: doctree.KindRoot, Children: []*doctree.Node{}}
	return &builder{
		opts:  opts,
		root:  root,
		stack: []*entry{{node: root}},
	}
}

func (b *builder) line(raw string) {
	line := strings.TrimRightFunc(raw, unicode.IsSpace)
	if line == "" {
		return
	}
	if h, ok := ParseHeadingLine(line); ok {
		b.heading(h)
		return
	}
	if bl, ok := ParseBulletLine(line, b.opts.SpacesPerIndent); ok {
		b.bullet(bl)
	}
}

func (b *builder) heading(h Heading) {
	parent := b.headingParent(h.Depth)
	node := b.attach(parent, h.Text, doctree.HeadingKind(h.Depth), h.Depth)

	b.place(h.Depth, &entry{node: node})
	// Lists left open above this heading are finished.
	for d := 1; d < h.Depth; d++ {
		if e := b.stack[d]; e != nil && e.bullet {
			b.stack[d] = nil
		}
	}
	b.context = h.Depth
}

// headingParent returns the deepest open heading (or the root) shallower
// than depth. Open bullets are skipped, so a heading that interrupts a
// list attaches to the list's heading rather than to a list item.
func (b *builder) headingParent(depth int) *doctree.Node {
	for d := min(depth-1, len(b.stack)-1); d > 0; d-- {
		if e := b.stack[d]; e != nil && !e.bullet {
			return e.node
		}
	}
	return b.root
}

func (b *builder) bullet(bl Bullet) {
	parent := b.bulletParent(bl.Indent)
	level := parent.Level + 1
	node := b.attach(parent, bl.Text, doctree.KindBullet, level)
	b.place(level, &entry{node: node, bullet: true, indent: bl.Indent})
}

// bulletParent resolves the parent of a bullet with the given indentation.
// Open list items are checked from the deepest up: an item indented at
// least as far as the new bullet is a sibling (or a deeper, now finished
// branch) and is skipped; the first item indented less is the parent.
// Without one, the bullet hangs directly under the heading context. An
// indentation jump therefore never creates empty intermediate levels.
func (b *builder) bulletParent(indent int) *doctree.Node {
	ctx := b.contextNode()
	for d := len(b.stack) - 1; d > b.context; d-- {
		e := b.stack[d]
		if e == nil || !e.bullet {
			continue
		}
		if e.indent < indent {
			return e.node
		}
	}
	return ctx
}

// contextNode returns the current heading context, falling back to the
// root if the stack no longer holds it.
func (b *builder) contextNode() *doctree.Node {
	if b.context > 0 && b.context < len(b.stack) {
		if e := b.stack[b.context]; e != nil && !e.bullet {
			return e.node
		}
	}
	b.context = 0
	return b.root
}

// place truncates the stack to depth, padding with empty slots when a
// heading skips levels, and records e at stack[depth].
func (b *builder) place(depth int, e *entry) {
	if len(b.stack) > depth {
		b.stack = b.stack[:depth]
	}
	for len(b.stack) < depth {
		b.stack = append(b.stack, nil)
	}
	b.stack = append(b.stack, e)
}

func (b *builder) attach(parent *doctree.Node, text string, kind doctree.Kind, level int) *doctree.Node {
	n := &doctree.Node{
		ID:       b.nextID(parent),
		Text:     text,
		Kind:     kind,
		Level:    level,
		Children: []*doctree.Node{},
	}
	parent.Children = append(parent.Children, n)
	return n
}

func (b *builder) nextID(parent *doctree.Node) string {
	if b.opts.IDs == RandomIDs {
		return uuid.NewString()
	}
	return ChildID(parent.ID, len(parent.Children))
}
