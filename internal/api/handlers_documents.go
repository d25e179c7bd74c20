package api

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/dgallion1/mindoutline/internal/doctree"
	"github.com/dgallion1/mindoutline/internal/flatten"
	"github.com/dgallion1/mindoutline/internal/links"
	"github.com/dgallion1/mindoutline/internal/pipeline"
	"github.com/dgallion1/mindoutline/internal/vault"
	"github.com/go-chi/chi/v5"
)

// handleListDocuments lists the supported files of the vault.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	files, err := s.deps.Vault.List(r.Context())
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []vault.File{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": files})
}

// handleGetDocument parses a vault file. view selects the representation:
// tree (default), layout or flat.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, tree, ok := s.loadDocument(w, r)
	if !ok {
		return
	}

	resp := map[string]any{"document": doc.File}
	switch view := r.URL.Query().Get("view"); view {
	case "", "tree":
		resp["tree"] = tree
		resp["counts"] = doctree.Count(tree.Nodes)
	case "layout":
		opts, err := s.layoutOptions(r, tree.Title)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		graph, err := pipeline.LayoutWithLabels(s.renderer, tree.Nodes, opts)
		if err != nil {
			s.log.Warn("render labels", "path", doc.Path, "error", err)
		}
		resp["title"] = tree.Title
		resp["graph"] = graph
	case "flat":
		entries := flatten.Flatten(tree.Nodes, flatten.Config{})
		if entries == nil {
			entries = []flatten.Entry{}
		}
		resp["title"] = tree.Title
		resp["entries"] = entries
	default:
		jsonError(w, "view must be tree, layout or flat", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDocumentLinks(w http.ResponseWriter, r *http.Request) {
	doc, tree, ok := s.loadDocument(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"document": doc.File,
		"links":    filterLinks(links.Collect(tree.Nodes), r.URL.Query().Get("external")),
	})
}

// loadDocument reads and parses the vault file named by the wildcard path.
func (s *Server) loadDocument(w http.ResponseWriter, r *http.Request) (vault.Document, *doctree.Tree, bool) {
	rel, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || rel == "" {
		jsonError(w, "document path is required", http.StatusBadRequest)
		return vault.Document{}, nil, false
	}
	doc, err := s.deps.Vault.Read(rel)
	if err != nil {
		jsonError(w, err.Error(), vaultErrorStatus(err))
		return vault.Document{}, nil, false
	}
	tree, err := s.deps.Parser.Parse(doc.Path, doc.Content)
	if err != nil {
		jsonError(w, "parse: "+err.Error(), http.StatusUnprocessableEntity)
		return vault.Document{}, nil, false
	}
	return doc, tree, true
}

func vaultErrorStatus(err error) int {
	switch {
	case errors.Is(err, vault.ErrOutsideRoot):
		return http.StatusForbidden
	case errors.Is(err, vault.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, vault.ErrUnsupported):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}
