package outline

import (
	"fmt"
	"strings"
	"testing"

	"github.com/dgallion1/mindoutline/internal/doctree"
)

// shape renders a forest compactly as text(level)[children...].
func shape(forest []*doctree.Node) string {
	parts := make([]string, 0, len(forest))
	for _, n := range forest {
		s := fmt.Sprintf("%s(%d)", n.Text, n.Level)
		if len(n.Children) > 0 {
			s += "[" + shape(n.Children) + "]"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ",")
}

func TestParse_Scenarios(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"single h1", "# H1", "H1(1)"},
		{"h1 then h2", "# H1\n## H2", "H1(1)[H2(2)]"},
		{"decreasing headings", "## H2\n# H1", "H2(2),H1(1)"},
		{"bullet without heading", "- B1", "B1(1)"},
		{"nested bullet then sibling", "# H1\n- B1\n  - B1.1\n- B2", "H1(1)[B1(2)[B1.1(3)],B2(2)]"},
		{"tab indent jump", "- L1\n\t- L3A.1\n\t- L3A.2", "L1(1)[L3A.1(2),L3A.2(2)]"},
		{"heading interrupts list", "- Item A\n  - Item A.1\n## New Heading\n- Item B", "Item A(1)[Item A.1(2)],New Heading(2)[Item B(3)]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shape(Parse(tt.src, DefaultSpacesPerIndent))
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParse_HeadingsAndBullets(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"sibling h2s", "# H1\n## H2a\n## H2b", "H1(1)[H2a(2),H2b(2)]"},
		{"heading jump", "# H1\n### H3", "H1(1)[H3(3)]"},
		{"h1 then bullet", "# H1\n- B1", "H1(1)[B1(2)]"},
		{"bullet then h2 under h1", "# H1\n- B1\n## H2", "H1(1)[B1(2),H2(2)]"},
		{"nested list then h2", "# H1\n- B1\n  - B1.1\n## H2", "H1(1)[B1(2)[B1.1(3)],H2(2)]"},
		{"new top-level h1 after list", "# H1a\n- B1\n# H1b", "H1a(1)[B1(2)],H1b(1)"},
		{"bullet context resets", "- B_root\n# H1\n- B_h1", "B_root(1),H1(1)[B_h1(2)]"},
		{"indented bullet under h2", "# H1a\n## H2\n  - B1\n# H1b", "H1a(1)[H2(2)[B1(3)]],H1b(1)"},
		{"h3 inside list attaches to h1", "# H1\n- B1\n  - B1.1\n### H3", "H1(1)[B1(2)[B1.1(3)],H3(3)]"},
		{"tab nested bullet", "- B1\n\t- B1.1", "B1(1)[B1.1(2)]"},
		{"deep indent under heading", "# H1\n    - B_DeepIndent", "H1(1)[B_DeepIndent(2)]"},
		{"equal indentation under heading", "# H1\n  - B1\n  - B2\n    - B2.1", "H1(1)[B1(2),B2(2)[B2.1(3)]]"},
		{"shallower heading closes branch", "# A\n## B\n### C\n- c1\n## D", "A(1)[B(2)[C(3)[c1(4)]],D(2)]"},
		{"outdent between jumps", "- A\n    - B\n  - C", "A(1)[B(2),C(2)]"},
		{"star and plus markers", "* one\n+ two\n  * two.a", "one(1),two(1)[two.a(2)]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shape(Parse(tt.src, DefaultSpacesPerIndent))
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestParse_SiblingsAfterDeepChildren(t *testing.T) {
	src := `- L1
  - L2 A
    - L3 A.1
    - L3 A.2
    - L3 A.3
  - L2 B`
	want := "L1(1)[L2 A(2)[L3 A.1(3),L3 A.2(3),L3 A.3(3)],L2 B(2)]"
	if got := shape(Parse(src, 2)); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}

	src = `- Parent Bullet (PB)
  - Child Bullet 1 (CB1)
  - Child Bullet 2 (CB2)
- Sibling of Parent Bullet (SPB)`
	want = "Parent Bullet (PB)(1)[Child Bullet 1 (CB1)(2),Child Bullet 2 (CB2)(2)],Sibling of Parent Bullet (SPB)(1)"
	if got := shape(Parse(src, 2)); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParse_EmptyAndBlank(t *testing.T) {
	for _, src := range []string{"", "   \n\n  ", "\t\n", "\r\n\r\n"} {
		forest := Parse(src, 2)
		if forest == nil {
			t.Fatalf("expected empty non-nil forest for %q", src)
		}
		if len(forest) != 0 {
			t.Errorf("expected 0 nodes for %q, got %d", src, len(forest))
		}
	}
}

func TestParse_IgnoresNonStructuralLines(t *testing.T) {
	src := "# Title\nSome paragraph.\n```\n- not really code\n```\n| a | b |\n> quote\n#NoSpace\n####### seven\n- real"
	// The bullet inside the fence is still a bullet line: fences are not
	// parsed, so they do not hide their contents.
	want := "Title(1)[not really code(2),real(2)]"
	if got := shape(Parse(src, 2)); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParse_TrimsText(t *testing.T) {
	forest := Parse("#   Spaced heading   \r\n  -   item text  \t", 2)
	if len(forest) != 1 {
		t.Fatalf("expected 1 root node, got %d", len(forest))
	}
	if forest[0].Text != "Spaced heading" {
		t.Errorf("expected heading text %q, got %q", "Spaced heading", forest[0].Text)
	}
	if len(forest[0].Children) != 1 || forest[0].Children[0].Text != "item text" {
		t.Errorf("expected one child %q, got %s", "item text", shape(forest[0].Children))
	}
}

func TestParse_Kinds(t *testing.T) {
	forest := Parse("# One\n## Two\n###### Six\n- bullet", 2)
	var kinds []doctree.Kind
	doctree.Walk(forest, func(n, _ *doctree.Node) bool {
		kinds = append(kinds, n.Kind)
		return true
	})
	want := []doctree.Kind{doctree.KindHeading1, doctree.KindHeading2, doctree.KindHeading6, doctree.KindBullet}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d nodes, got %d", len(want), len(kinds))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("node %d: expected kind %q, got %q", i, want[i], kinds[i])
		}
	}
}

func TestParse_PathIDs(t *testing.T) {
	forest := Parse("# H1\n- B1\n  - B1.1\n- B2\n# H1b", 2)
	want := map[string]string{
		"H1":   "0",
		"B1":   "0-0",
		"B1.1": "0-0-0",
		"B2":   "0-1",
		"H1b":  "1",
	}
	doctree.Walk(forest, func(n, _ *doctree.Node) bool {
		if want[n.Text] != n.ID {
			t.Errorf("%s: expected id %q, got %q", n.Text, want[n.Text], n.ID)
		}
		return true
	})
}

func TestParse_RandomIDsAreUnique(t *testing.T) {
	forest := ParseWith("# A\n- a\n- b\n## B\n- c", Options{SpacesPerIndent: 2, IDs: RandomIDs})
	seen := map[string]bool{}
	doctree.Walk(forest, func(n, _ *doctree.Node) bool {
		if n.ID == "" {
			t.Errorf("%s: empty id", n.Text)
		}
		if seen[n.ID] {
			t.Errorf("duplicate id %q", n.ID)
		}
		seen[n.ID] = true
		return true
	})
	if len(seen) != 5 {
		t.Errorf("expected 5 ids, got %d", len(seen))
	}
}

func TestParse_Idempotent(t *testing.T) {
	src := "# A\n- a\n    - deep\n  - mid\n## B\n\t- tab\n# C"
	first := shape(Parse(src, 2))
	second := shape(Parse(src, 2))
	if first != second {
		t.Errorf("expected identical structure, got %q and %q", first, second)
	}
}

func TestParse_SpacesPerIndent(t *testing.T) {
	src := "- a\n    - b\n        - c"
	if got, want := shape(Parse(src, 4)), "a(1)[b(2)[c(3)]]"; got != want {
		t.Errorf("indent 4: expected %q, got %q", want, got)
	}
	// Non-positive width: any indentation is exactly one unit, so b and c
	// are siblings.
	if got, want := shape(Parse(src, 0)), "a(1)[b(2),c(2)]"; got != want {
		t.Errorf("indent 0: expected %q, got %q", want, got)
	}
}

func TestParseIDStrategy(t *testing.T) {
	if ParseIDStrategy("uuid") != RandomIDs {
		t.Error("expected uuid to select RandomIDs")
	}
	if ParseIDStrategy(" UUID ") != RandomIDs {
		t.Error("expected case-insensitive match")
	}
	if ParseIDStrategy("path") != PathIDs || ParseIDStrategy("") != PathIDs {
		t.Error("expected PathIDs fallback")
	}
}

// checkInvariants verifies structural invariants that hold for any input.
func checkInvariants(t *testing.T, forest []*doctree.Node) {
	t.Helper()
	ids := map[string]bool{}
	doctree.Walk(forest, func(n, parent *doctree.Node) bool {
		if ids[n.ID] {
			t.Errorf("duplicate id %q", n.ID)
		}
		ids[n.ID] = true

		parentLevel := 0
		if parent != nil {
			parentLevel = parent.Level
		}
		switch {
		case n.Kind == doctree.KindBullet:
			if n.Level != parentLevel+1 {
				t.Errorf("bullet %q: level %d, parent level %d", n.Text, n.Level, parentLevel)
			}
		case n.Kind.IsHeading():
			if n.Level != n.Kind.HeadingDepth() {
				t.Errorf("heading %q: level %d, depth %d", n.Text, n.Level, n.Kind.HeadingDepth())
			}
			if parent != nil && (parent.Kind == doctree.KindBullet || parent.Level >= n.Level) {
				t.Errorf("heading %q attached under %s %q", n.Text, parent.Kind, parent.Text)
			}
		default:
			t.Errorf("unexpected kind %q", n.Kind)
		}
		if n.Text != strings.TrimSpace(n.Text) {
			t.Errorf("untrimmed text %q", n.Text)
		}
		return true
	})
}

func FuzzParse(f *testing.F) {
	seeds := []string{
		"",
		"# H1\n- B1\n  - B1.1\n- B2",
		"- L1\n\t- L3A.1\n\t- L3A.2",
		"- Item A\n  - Item A.1\n## New Heading\n- Item B",
		"###### six\n# one\n          - far\n- near\n###",
		"-\n- \n#\n# \n*  *\n+\t+",
	}
	for _, s := range seeds {
		f.Add(s, 2)
	}
	f.Add("  - a\n - b\n   - c", 0)
	f.Add("\t\t- a\n- b", -3)
	f.Fuzz(func(t *testing.T, src string, spaces int) {
		forest := Parse(src, spaces)
		checkInvariants(t, forest)
		if shape(forest) != shape(Parse(src, spaces)) {
			t.Errorf("parse is not deterministic for %q", src)
		}
	})
}
