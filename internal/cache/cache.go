// Package cache memoizes parsed outlines keyed by content, so unchanged
// documents are not re-parsed.
package cache

import (
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/dgallion1/mindoutline/internal/doctree"
	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultSize = 256

// Cache holds parsed trees. Cached trees are shared between callers and must
// be treated as read-only.
type Cache struct {
	trees  *lru.Cache[string, *doctree.Tree]
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Len    int   `json:"len"`
}

func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	trees, err := lru.New[string, *doctree.Tree](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cache{trees: trees}, nil
}

// Key identifies a parse: the caller's name for the document, the content
// hash and the indentation width.
func Key(name string, src []byte, spacesPerIndent int) string {
	return name + "\x00" + doctree.HashContent(src) + "\x00" + strconv.Itoa(spacesPerIndent)
}

// Parse returns the cached tree for (name, src, spacesPerIndent) or calls
// parse and stores its result. Errors are not cached.
func (c *Cache) Parse(name string, src []byte, spacesPerIndent int, parse func() (*doctree.Tree, error)) (*doctree.Tree, error) {
	key := Key(name, src, spacesPerIndent)
	if tree, ok := c.trees.Get(key); ok {
		c.hits.Add(1)
		return tree, nil
	}
	c.misses.Add(1)

	tree, err := parse()
	if err != nil {
		return nil, err
	}
	c.trees.Add(key, tree)
	return tree, nil
}

// Purge drops every cached tree. Counters are kept.
func (c *Cache) Purge() {
	c.trees.Purge()
}

func (c *Cache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Len:    c.trees.Len(),
	}
}
