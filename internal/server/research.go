package server

import (
	"net/http"

	"github.com/goalmap/goalmap/internal/ingest"
)

const maxCSVBody = 10 << 20

// handleResearchIngest replaces the auto-ingested children of ?parent= with
// the research-tab CSV in the request body.
func (s *Server) handleResearchIngest(w http.ResponseWriter, r *http.Request) {
	parent := r.URL.Query().Get("parent")
	if parent == "" {
		parent = s.opts.ResearchParent
	}

	body := http.MaxBytesReader(w, r.Body, maxCSVBody)
	res, err := ingest.Research(s.db, body, parent, ingest.Options{
		DefaultPriority:  s.opts.DefaultPriority,
		DefaultDecayRate: s.opts.DefaultDecayRate,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "research ingest completed",
		"parent":     parent,
		"deleted":    res.Deleted,
		"renumbered": res.Renumbered,
		"created":    res.Created,
	})
}
