package outline

import (
	"regexp"
	"strconv"
	"strings"
)

// TabWidth is the number of columns a tab expands to before indentation
// units are computed.
const TabWidth = 4

var (
	headingLine = regexp.MustCompile(`^(#{1,6}) +(.*)$`)
	bulletLine  = regexp.MustCompile(`^(\s*)[-*+] +(.*)$`)
)

// Heading is a classified heading line.
type Heading struct {
	Depth int // Number of # markers, 1-6.
	Text  string
}

// Bullet is a classified bullet line.
type Bullet struct {
	Indent int // Indentation units.
	Text   string
}

// ParseHeadingLine classifies line as a heading. "#NoSpace" and seven or
// more markers are not headings.
func ParseHeadingLine(line string) (Heading, bool) {
	m := headingLine.FindStringSubmatch(line)
	if m == nil {
		return Heading{}, false
	}
	return Heading{Depth: len(m[1]), Text: strings.TrimSpace(m[2])}, true
}

// ParseBulletLine classifies line as a bullet ("-", "*" or "+" followed by
// at least one space) and measures its indentation.
func ParseBulletLine(line string, spacesPerIndent int) (Bullet, bool) {
	m := bulletLine.FindStringSubmatch(line)
	if m == nil {
		return Bullet{}, false
	}
	return Bullet{
		Indent: IndentUnits(m[1], spacesPerIndent),
		Text:   strings.TrimSpace(m[2]),
	}, true
}

// IndentUnits converts leading whitespace into indentation units. Tabs
// count as TabWidth columns. A non-positive spacesPerIndent makes any
// nonzero indentation exactly one unit.
func IndentUnits(ws string, spacesPerIndent int) int {
	cols := 0
	for _, r := range ws {
		if r == '\t' {
			cols += TabWidth
		} else {
			cols++
		}
	}
	if spacesPerIndent <= 0 {
		if cols > 0 {
			return 1
		}
		return 0
	}
	return cols / spacesPerIndent
}

// ChildID builds a positional id such as "0-2-1": first root-level node,
// its third child, that child's second child.
func ChildID(parentID string, index int) string {
	if parentID == "" {
		return strconv.Itoa(index)
	}
	return parentID + "-" + strconv.Itoa(index)
}
