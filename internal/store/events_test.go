package store

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func eventIDs(events []GoalEvent) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.Notes
	}
	return ids
}

func TestCreateEvent(t *testing.T) {
	db := testDB(t)
	g := mustCreate(t, db, newGoal("1", "a"))

	dur := 45.0
	e := &GoalEvent{GoalID: g.ID, Date: 1_700_000_000_000, Duration: &dur, Notes: "first session"}
	if err := db.CreateEvent(e); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if e.ID == "" {
		t.Error("expected generated ID")
	}
	if e.Status != EventPlanned {
		t.Errorf("Status = %q, want planned", e.Status)
	}

	got, err := db.GetEvent(e.ID)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if diff := cmp.Diff(e, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateEventValidation(t *testing.T) {
	db := testDB(t)
	g := mustCreate(t, db, newGoal("1", "a"))
	neg := -1.0

	tests := []struct {
		name  string
		event *GoalEvent
	}{
		{"unknown goal", &GoalEvent{GoalID: "missing", Date: 1}},
		{"missing date", &GoalEvent{GoalID: g.ID}},
		{"bad status", &GoalEvent{GoalID: g.ID, Date: 1, Status: "abandoned"}},
		{"negative duration", &GoalEvent{GoalID: g.ID, Date: 1, Duration: &neg}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := db.CreateEvent(tt.event); !errors.Is(err, ErrInvalid) {
				t.Errorf("error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestListEventsOrdering(t *testing.T) {
	db := testDB(t)
	a := mustCreate(t, db, newGoal("1", "a"))
	b := mustCreate(t, db, newGoal("2", "b"))

	for _, e := range []*GoalEvent{
		{GoalID: a.ID, Date: 3000, Notes: "a-3"},
		{GoalID: a.ID, Date: 1000, Notes: "a-1"},
		{GoalID: b.ID, Date: 2000, Notes: "b-2"},
		{GoalID: a.ID, Date: 5000, Notes: "a-5"},
	} {
		if err := db.CreateEvent(e); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	all, err := db.ListEvents()
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if diff := cmp.Diff([]string{"a-5", "a-3", "b-2", "a-1"}, eventIDs(all)); diff != "" {
		t.Errorf("ListEvents order (-want +got):\n%s", diff)
	}

	byGoal, err := db.ListEventsByGoal(a.ID)
	if err != nil {
		t.Fatalf("ListEventsByGoal: %v", err)
	}
	if diff := cmp.Diff([]string{"a-5", "a-3", "a-1"}, eventIDs(byGoal)); diff != "" {
		t.Errorf("ListEventsByGoal order (-want +got):\n%s", diff)
	}

	inRange, err := db.ListEventsInRange(1000, 3000)
	if err != nil {
		t.Fatalf("ListEventsInRange: %v", err)
	}
	if diff := cmp.Diff([]string{"a-1", "b-2", "a-3"}, eventIDs(inRange)); diff != "" {
		t.Errorf("ListEventsInRange order (-want +got):\n%s", diff)
	}
}

func TestUpdateEvent(t *testing.T) {
	db := testDB(t)
	g := mustCreate(t, db, newGoal("1", "a"))
	e := &GoalEvent{GoalID: g.ID, Date: 1000, Notes: "draft"}
	if err := db.CreateEvent(e); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	status := EventCompleted
	dur := 30.0
	updated, err := db.UpdateEvent(e.ID, EventPatch{Status: &status, Duration: &dur})
	if err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}
	if updated.Status != EventCompleted || *updated.Duration != 30 || updated.Notes != "draft" {
		t.Errorf("patch not applied cleanly: %+v", updated)
	}

	bad := "abandoned"
	if _, err := db.UpdateEvent(e.ID, EventPatch{Status: &bad}); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad status: error = %v, want ErrInvalid", err)
	}
	if _, err := db.UpdateEvent("missing", EventPatch{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: error = %v, want ErrNotFound", err)
	}
}

func TestDeleteGoalCascadesEvents(t *testing.T) {
	db := testDB(t)
	g := mustCreate(t, db, newGoal("1", "a"))
	e := &GoalEvent{GoalID: g.ID, Date: 1000}
	if err := db.CreateEvent(e); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if err := db.DeleteGoal(g.ID); err != nil {
		t.Fatalf("DeleteGoal: %v", err)
	}
	if got, _ := db.GetEvent(e.ID); got != nil {
		t.Error("event survived goal deletion")
	}
}

func TestDeleteEvent(t *testing.T) {
	db := testDB(t)
	g := mustCreate(t, db, newGoal("1", "a"))
	e := &GoalEvent{GoalID: g.ID, Date: 1000}
	if err := db.CreateEvent(e); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}

	if err := db.DeleteEvent(e.ID); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if err := db.DeleteEvent(e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: error = %v, want ErrNotFound", err)
	}
}
