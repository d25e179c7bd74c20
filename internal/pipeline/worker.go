package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/mindoutline/internal/cache"
	"github.com/dgallion1/mindoutline/internal/config"
	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/layout"
	"github.com/dgallion1/mindoutline/internal/links"
	"github.com/dgallion1/mindoutline/internal/render"
	"github.com/dgallion1/mindoutline/internal/stats"
)

// Worker processes a single outline job.
type Worker struct {
	parser   *DocumentParser
	gapX     float64
	gapY     float64
	renderer *render.Renderer
	log      *slog.Logger
}

func NewWorker(cfg config.Config, trees *cache.Cache, st *stats.ParseStats, log *slog.Logger) *Worker {
	return &Worker{
		parser:   NewDocumentParser(cfg.ParserOptions(), trees, st),
		gapX:     cfg.LayoutGapX,
		gapY:     cfg.LayoutGapY,
		renderer: render.New(),
		log:      log,
	}
}

// Process parses the job's document, lays it out and collects its links.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	tree, err := w.parse(job)
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(fmt.Sprintf("parse: %s", err))
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	job.releaseFileData()

	counts := doctree.Count(tree.Nodes)
	job.SetCounts(counts)
	log.Info("parsed document", "nodes", counts.Nodes, "max_level", counts.MaxLevel)

	if err := ctx.Err(); err != nil {
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	// Phase 2: Layout
	job.SetStatus(StatusLayout, "layout")
	opts := job.Layout
	if opts.GapX <= 0 {
		opts.GapX = w.gapX
	}
	if opts.GapY <= 0 {
		opts.GapY = w.gapY
	}
	if job.ShowRoot && opts.RootLabel == "" {
		opts.RootLabel = tree.Title
	}
	graph, err := LayoutWithLabels(w.renderer, tree.Nodes, opts)
	if err != nil {
		// Plain text labels still work.
		log.Warn("render labels", "error", err)
		job.AddError(fmt.Sprintf("render: %s", err))
	}

	found := links.Collect(tree.Nodes)
	job.SetLinks(len(found))

	job.SetResult(&Result{Tree: tree, Graph: graph, Links: found})
	job.SetStatus(StatusCompleted, "done")
	log.Info("job complete", "links", len(found))
}

// parse goes through the tree cache; a title override produces a copy so
// the shared cached tree is never mutated.
func (w *Worker) parse(job *Job) (*doctree.Tree, error) {
	tree, err := w.parser.Parse(job.Filename, job.FileData())
	if err != nil {
		return nil, err
	}
	if job.Title != "" && job.Title != tree.Title {
		cp := *tree
		cp.Title = job.Title
		tree = &cp
	}
	return tree, nil
}

// LayoutWithLabels lays out the forest and fills in rendered HTML labels.
// The graph is complete even when rendering fails; labels fall back to Text.
func LayoutWithLabels(r *render.Renderer, forest []*doctree.Node, opts layout.Options) (layout.Graph, error) {
	g := layout.Layout(forest, opts)
	html, err := r.RenderTree(forest)
	for i := range g.Nodes {
		if h, ok := html[g.Nodes[i].ID]; ok {
			g.Nodes[i].HTML = h
		}
	}
	return g, err
}
