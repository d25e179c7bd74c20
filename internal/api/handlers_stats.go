package api

import (
	"net/http"
)

func (s *Server) handleParseStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"parse": s.deps.Stats.Snapshot(),
		"cache": s.deps.Trees.Stats(),
	}
	if s.deps.Orchestrator != nil {
		resp["queue_depth"] = s.deps.Orchestrator.QueueDepth()
	}
	if s.deps.Watches != nil {
		resp["watched_documents"] = s.deps.Watches.Len()
	}
	writeJSON(w, http.StatusOK, resp)
}
