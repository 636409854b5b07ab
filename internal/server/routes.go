package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/goalmap/goalmap/internal/api"
	"github.com/goalmap/goalmap/internal/hierarchy"
	"github.com/goalmap/goalmap/internal/priority"
	"github.com/goalmap/goalmap/internal/store"
)

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	var goals []store.Goal
	var err error

	done := r.URL.Query().Get("done")
	switch done {
	case "":
		goals, err = s.db.ListGoals()
	case "false":
		goals, err = s.db.ListOpenGoals()
	default:
		var want bool
		if want, err = strconv.ParseBool(done); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "done must be true or false")
			return
		}
		goals, err = s.db.ListGoals()
		goals = filterDone(goals, want)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	s.engine.Decorate(goals)
	writeJSON(w, http.StatusOK, api.FromGoals(goals))
}

func filterDone(goals []store.Goal, done bool) []store.Goal {
	out := goals[:0]
	for _, g := range goals {
		if g.Done == done {
			out = append(out, g)
		}
	}
	return out
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var in api.GoalInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.HierarchyID == nil || *in.HierarchyID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "hierarchyId required")
		return
	}
	if in.Description == nil || *in.Description == "" {
		writeErrorMessage(w, http.StatusBadRequest, "description required")
		return
	}

	g := in.NewGoal(s.opts.DefaultPriority, s.opts.DefaultDecayRate)
	if err := s.db.CreateGoal(g); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.FromGoal(g))
}

func (s *Server) handleGoalTree(w http.ResponseWriter, r *http.Request) {
	goals, err := s.db.ListGoals()
	if err != nil {
		writeError(w, err)
		return
	}
	s.engine.Decorate(goals)
	writeJSON(w, http.StatusOK, api.Tree(goals))
}

func (s *Server) handleNextID(w http.ResponseWriter, r *http.Request) {
	parent := r.URL.Query().Get("parent")
	if parent != "" && !hierarchy.Valid(parent) {
		writeErrorMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid parent %q", parent))
		return
	}
	ids, err := s.db.HierarchyIDs()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"parent":      parent,
		"hierarchyId": hierarchy.NextChildID(parent, ids),
	})
}

// loadGoal fetches the goal named by the {id} URL param, writing a 404 when
// it does not exist.
func (s *Server) loadGoal(w http.ResponseWriter, r *http.Request) (*store.Goal, bool) {
	id := chi.URLParam(r, "id")
	g, err := s.db.GetGoal(id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if g == nil {
		writeErrorMessage(w, http.StatusNotFound, "goal not found")
		return nil, false
	}
	return g, true
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	g, ok := s.loadGoal(w, r)
	if !ok {
		return
	}
	g.EffectivePriority = g.Effective(s.engine.Now())
	writeJSON(w, http.StatusOK, api.FromGoal(g))
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	var in api.GoalInput
	if !decodeJSON(w, r, &in) {
		return
	}
	g, err := s.db.UpdateGoal(chi.URLParam(r, "id"), in.Patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromGoal(g))
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteGoal(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	g, err := s.engine.Select()
	if errors.Is(err, priority.ErrEmptyCandidateSet) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "empty"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromGoal(g))
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	g, err := s.engine.Accept(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromGoal(g))
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	g, err := s.engine.Reject(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromGoal(g))
}
