package pipeline

import (
	"bytes"
	"time"

	"github.com/dgallion1/mindoutline/internal/cache"
	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/parser"
	"github.com/dgallion1/mindoutline/internal/stats"
)

// DocumentParser parses documents through the shared tree cache and records
// parse timings. Returned trees may be shared; callers copy before mutating.
type DocumentParser struct {
	opts  parser.Options
	trees *cache.Cache
	stats *stats.ParseStats
}

func NewDocumentParser(opts parser.Options, trees *cache.Cache, st *stats.ParseStats) *DocumentParser {
	return &DocumentParser{opts: opts, trees: trees, stats: st}
}

func (d *DocumentParser) Options() parser.Options { return d.opts }

// Parse picks a parser by the extension of name.
func (d *DocumentParser) Parse(name string, data []byte) (*doctree.Tree, error) {
	return d.ParseWith(name, data, d.opts.SpacesPerIndent)
}

// ParseWith overrides the indentation width for one call.
func (d *DocumentParser) ParseWith(name string, data []byte, spacesPerIndent int) (*doctree.Tree, error) {
	opts := d.opts
	opts.SpacesPerIndent = spacesPerIndent
	p, err := parser.ForFile(name, opts)
	if err != nil {
		return nil, err
	}
	return d.trees.Parse(name, data, spacesPerIndent, func() (*doctree.Tree, error) {
		start := time.Now()
		t, err := p.Parse(bytes.NewReader(data), name)
		if err != nil {
			return nil, err
		}
		d.stats.Record(time.Since(start), doctree.Count(t.Nodes).Nodes)
		return t, nil
	})
}
