package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/layout"
	"github.com/dgallion1/mindoutline/internal/links"
	"github.com/dgallion1/mindoutline/internal/outline"
	"github.com/dgallion1/mindoutline/internal/parser"
	"github.com/dgallion1/mindoutline/internal/pipeline"
)

// defaultOutlineName is used when a raw outline body names no file.
const defaultOutlineName = "outline.md"

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tree":   tree,
		"counts": doctree.Count(tree.Nodes),
	})
}

func (s *Server) handleOutlineLayout(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	opts, err := s.layoutOptions(r, tree.Title)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	graph, err := pipeline.LayoutWithLabels(s.renderer, tree.Nodes, opts)
	if err != nil {
		s.log.Warn("render labels", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"title": tree.Title,
		"graph": graph,
	})
}

func (s *Server) handleOutlineLinks(w http.ResponseWriter, r *http.Request) {
	tree, ok := s.parseBody(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"links": filterLinks(links.Collect(tree.Nodes), r.URL.Query().Get("external")),
	})
}

// parseBody reads a raw document body and parses it. Query parameters:
// filename (picks the format), indent (spaces per level) and ids
// (path|uuid). On failure the error response has been written.
func (s *Server) parseBody(w http.ResponseWriter, r *http.Request) (*doctree.Tree, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
			return nil, false
		}
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return nil, false
	}

	q := r.URL.Query()
	name := defaultOutlineName
	if f := q.Get("filename"); f != "" {
		name = sanitizeFilename(f)
		if !parser.IsSupportedExtension(name) {
			jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(name)), http.StatusUnsupportedMediaType)
			return nil, false
		}
	}

	opts := s.deps.Parser.Options()
	if v := q.Get("indent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "indent must be an integer", http.StatusBadRequest)
			return nil, false
		}
		opts.SpacesPerIndent = parser.ExplicitIndent(n)
	}
	sameIDs := true
	if v := q.Get("ids"); v != "" {
		if v != "path" && v != "uuid" {
			jsonError(w, `ids must be "path" or "uuid"`, http.StatusBadRequest)
			return nil, false
		}
		ids := outline.ParseIDStrategy(v)
		sameIDs = ids == opts.IDs
		opts.IDs = ids
	}

	var tree *doctree.Tree
	if sameIDs {
		tree, err = s.deps.Parser.ParseWith(name, data, opts.SpacesPerIndent)
	} else {
		// A different ID strategy bypasses the shared cache.
		tree, err = s.parseUncached(name, data, opts)
	}
	if err != nil {
		jsonError(w, "parse: "+err.Error(), http.StatusUnprocessableEntity)
		return nil, false
	}
	return tree, true
}

func (s *Server) parseUncached(name string, data []byte, opts parser.Options) (*doctree.Tree, error) {
	p, err := parser.ForFile(name, opts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	tree, err := p.Parse(bytes.NewReader(data), name)
	if err != nil {
		return nil, err
	}
	s.deps.Stats.Record(time.Since(start), doctree.Count(tree.Nodes).Nodes)
	return tree, nil
}

// layoutOptions reads collapsed (comma-separated node IDs), root ("true"
// for the document title or any other label) and gap_x/gap_y.
func (s *Server) layoutOptions(r *http.Request, title string) (layout.Options, error) {
	q := r.URL.Query()
	opts := layout.Options{GapX: s.cfg.LayoutGapX, GapY: s.cfg.LayoutGapY}

	if v := q.Get("collapsed"); v != "" {
		opts.Collapsed = make(map[string]bool)
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				opts.Collapsed[id] = true
			}
		}
	}
	switch root := q.Get("root"); root {
	case "", "false":
	case "true":
		opts.RootLabel = title
	default:
		opts.RootLabel = root
	}
	for key, dst := range map[string]*float64{"gap_x": &opts.GapX, "gap_y": &opts.GapY} {
		if v := q.Get(key); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f <= 0 {
				return layout.Options{}, fmt.Errorf("%s must be a positive number", key)
			}
			*dst = f
		}
	}
	return opts, nil
}

// filterLinks keeps external ("true") or internal ("false") links; any
// other value keeps all.
func filterLinks(all []links.NodeLink, external string) []links.NodeLink {
	out := []links.NodeLink{}
	for _, l := range all {
		switch external {
		case "true":
			if !l.External {
				continue
			}
		case "false":
			if l.External {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
