package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/goalmap/goalmap/internal/api"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.db.ListEvents()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromEvents(events))
}

func (s *Server) handleGoalEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.db.ListEventsByGoal(chi.URLParam(r, "goalID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromEvents(events))
}

func (s *Server) handleEventsInRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseRangeBound(q.Get("startDate"), false)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "startDate: "+err.Error())
		return
	}
	end, err := parseRangeBound(q.Get("endDate"), true)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "endDate: "+err.Error())
		return
	}
	if end.Before(start) {
		writeErrorMessage(w, http.StatusBadRequest, "endDate is before startDate")
		return
	}

	events, err := s.db.ListEventsInRange(start.UnixMilli(), end.UnixMilli())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromEvents(events))
}

// parseRangeBound accepts RFC 3339 timestamps or plain dates. A plain end
// date covers the whole day.
func parseRangeBound(v string, end bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("required")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date", v)
	}
	if end {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return t, nil
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var in api.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.GoalID == nil || *in.GoalID == "" {
		writeErrorMessage(w, http.StatusBadRequest, "goalId required")
		return
	}

	e := in.NewEvent()
	if err := s.db.CreateEvent(e); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.FromEvent(e))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in api.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	e, err := s.db.UpdateEvent(chi.URLParam(r, "id"), in.Patch())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.FromEvent(e))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteEvent(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
