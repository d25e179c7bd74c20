// Package frontmatter splits YAML frontmatter from note content.
package frontmatter

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Note is a document split into frontmatter and body.
type Note struct {
	Frontmatter map[string]any
	Body        string
}

// Split separates a leading "---" YAML block from content. Content without
// a well-formed block is returned unchanged with empty frontmatter; the
// block's lines must not reach the outline parser, where "- item" YAML
// sequences would read as bullets.
func Split(content string) (Note, error) {
	note := Note{Frontmatter: map[string]any{}, Body: content}

	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return note, nil
	}

	rest := normalized[4:]
	var yamlContent, body string
	switch {
	case strings.HasPrefix(rest, "---\n"):
		body = rest[4:]
	case rest == "---":
	default:
		end := strings.Index(rest, "\n---\n")
		if end == -1 {
			if !strings.HasSuffix(rest, "\n---") {
				return note, nil
			}
			end = len(rest) - 4
			yamlContent = rest[:end]
		} else {
			yamlContent = rest[:end]
			body = rest[end+5:]
		}
	}

	var fm map[string]any
	if err := yaml.Unmarshal([]byte(yamlContent), &fm); err != nil {
		return note, fmt.Errorf("parse frontmatter: %w", err)
	}
	if fm != nil {
		note.Frontmatter = fm
	}
	note.Body = body
	return note, nil
}

// Title returns the frontmatter "title" value, if it is a non-empty string.
func (n Note) Title() string {
	if v, ok := n.Frontmatter["title"].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
