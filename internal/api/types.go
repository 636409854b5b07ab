// Package api holds the JSON shapes goalmap speaks over HTTP and writes to
// export snapshots, and the conversions to and from store records.
package api

import (
	"time"

	"github.com/goalmap/goalmap/internal/hierarchy"
	"github.com/goalmap/goalmap/internal/store"
)

// Goal is the wire form of a goal.
type Goal struct {
	ID                string     `json:"id"`
	HierarchyID       string     `json:"hierarchyId"`
	Description       string     `json:"description"`
	GoalType          string     `json:"goalType"`
	Done              bool       `json:"done"`
	Status            string     `json:"status"`
	Priority          float64    `json:"priority"`
	DecayRate         float64    `json:"decayRate"`
	LastSelected      time.Time  `json:"lastSelected"`
	EffectivePriority float64    `json:"effectivePriority"`
	Score             float64    `json:"score"`
	Assessment        float64    `json:"assessment"`
	CommunityValue    float64    `json:"communityValue"`
	Start             string     `json:"start"`
	End               string     `json:"end"`
	StartDate         *time.Time `json:"startDate,omitempty"`
	EndDate           *time.Time `json:"endDate,omitempty"`
	AutoIngest        bool       `json:"autoIngest"`
	Link              string     `json:"link,omitempty"`
	Summary           string     `json:"summary,omitempty"`
	Tier              string     `json:"tier,omitempty"`
	Domain            string     `json:"domain,omitempty"`
	Subtopic          string     `json:"subtopic,omitempty"`
	Tags              string     `json:"tags,omitempty"`
	NextActionDate    string     `json:"nextActionDate,omitempty"`
	ActionNote        string     `json:"actionNote,omitempty"`
	DateAdded         string     `json:"dateAdded,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// GoalInput is a create or update body. Absent fields stay nil.
type GoalInput struct {
	HierarchyID    *string    `json:"hierarchyId"`
	Description    *string    `json:"description"`
	GoalType       *string    `json:"goalType"`
	Done           *bool      `json:"done"`
	Status         *string    `json:"status"`
	Priority       *float64   `json:"priority"`
	DecayRate      *float64   `json:"decayRate"`
	LastSelected   *time.Time `json:"lastSelected"`
	Score          *float64   `json:"score"`
	Assessment     *float64   `json:"assessment"`
	CommunityValue *float64   `json:"communityValue"`
	Start          *string    `json:"start"`
	End            *string    `json:"end"`
	StartDate      *time.Time `json:"startDate"`
	EndDate        *time.Time `json:"endDate"`
	AutoIngest     *bool      `json:"autoIngest"`
	Link           *string    `json:"link"`
	Summary        *string    `json:"summary"`
	Tier           *string    `json:"tier"`
	Domain         *string    `json:"domain"`
	Subtopic       *string    `json:"subtopic"`
	Tags           *string    `json:"tags"`
	NextActionDate *string    `json:"nextActionDate"`
	ActionNote     *string    `json:"actionNote"`
	DateAdded      *string    `json:"dateAdded"`
}

// Event is the wire form of a goal event. Duration is in minutes.
type Event struct {
	ID        string    `json:"id"`
	GoalID    string    `json:"goalId"`
	Date      time.Time `json:"date"`
	Duration  *float64  `json:"duration,omitempty"`
	Notes     string    `json:"notes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EventInput is an event create or update body.
type EventInput struct {
	GoalID   *string    `json:"goalId"`
	Date     *time.Time `json:"date"`
	Duration *float64   `json:"duration"`
	Notes    *string    `json:"notes"`
	Status   *string    `json:"status"`
}

// TreeNode is a goal with its children nested under it.
type TreeNode struct {
	Goal
	Level    int        `json:"level"`
	Children []TreeNode `json:"children"`
}

// Snapshot is the export file format.
type Snapshot struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Goals      []Goal    `json:"goals"`
	Events     []Event   `json:"events"`
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func fromMillisPtr(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}

func toMillisPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

// FromGoal converts a store record to its wire form.
func FromGoal(g *store.Goal) Goal {
	return Goal{
		ID:                g.ID,
		HierarchyID:       g.HierarchyID,
		Description:       g.Description,
		GoalType:          g.GoalType,
		Done:              g.Done,
		Status:            g.Status,
		Priority:          g.Priority,
		DecayRate:         g.DecayRate,
		LastSelected:      fromMillis(g.LastSelected),
		EffectivePriority: g.EffectivePriority,
		Score:             g.Score,
		Assessment:        g.Assessment,
		CommunityValue:    g.CommunityValue,
		Start:             g.Start,
		End:               g.End,
		StartDate:         fromMillisPtr(g.StartDate),
		EndDate:           fromMillisPtr(g.EndDate),
		AutoIngest:        g.AutoIngest,
		Link:              g.Link,
		Summary:           g.Summary,
		Tier:              g.Tier,
		Domain:            g.Domain,
		Subtopic:          g.Subtopic,
		Tags:              g.Tags,
		NextActionDate:    g.NextActionDate,
		ActionNote:        g.ActionNote,
		DateAdded:         g.DateAdded,
		CreatedAt:         fromMillis(g.CreatedAt),
		UpdatedAt:         fromMillis(g.UpdatedAt),
	}
}

// FromGoals converts a list, never returning nil.
func FromGoals(goals []store.Goal) []Goal {
	out := make([]Goal, len(goals))
	for i := range goals {
		out[i] = FromGoal(&goals[i])
	}
	return out
}

// Patch returns the store update carrying the fields present in in.
func (in GoalInput) Patch() store.GoalPatch {
	return store.GoalPatch{
		HierarchyID:    in.HierarchyID,
		Description:    in.Description,
		GoalType:       in.GoalType,
		Done:           in.Done,
		Status:         in.Status,
		Priority:       in.Priority,
		DecayRate:      in.DecayRate,
		LastSelected:   toMillisPtr(in.LastSelected),
		Score:          in.Score,
		Assessment:     in.Assessment,
		CommunityValue: in.CommunityValue,
		Start:          in.Start,
		End:            in.End,
		StartDate:      toMillisPtr(in.StartDate),
		EndDate:        toMillisPtr(in.EndDate),
		AutoIngest:     in.AutoIngest,
		Link:           in.Link,
		Summary:        in.Summary,
		Tier:           in.Tier,
		Domain:         in.Domain,
		Subtopic:       in.Subtopic,
		Tags:           in.Tags,
		NextActionDate: in.NextActionDate,
		ActionNote:     in.ActionNote,
		DateAdded:      in.DateAdded,
	}
}

// NewGoal builds a goal for creation. Priority and decay rate fall back to
// the given defaults when absent.
func (in GoalInput) NewGoal(defaultPriority, defaultDecayRate float64) *store.Goal {
	g := &store.Goal{
		Priority:  defaultPriority,
		DecayRate: defaultDecayRate,
	}
	in.Patch().Apply(g)
	return g
}

// FromEvent converts a store event to its wire form.
func FromEvent(e *store.GoalEvent) Event {
	return Event{
		ID:        e.ID,
		GoalID:    e.GoalID,
		Date:      fromMillis(e.Date),
		Duration:  e.Duration,
		Notes:     e.Notes,
		Status:    e.Status,
		CreatedAt: fromMillis(e.CreatedAt),
		UpdatedAt: fromMillis(e.UpdatedAt),
	}
}

// FromEvents converts a list, never returning nil.
func FromEvents(events []store.GoalEvent) []Event {
	out := make([]Event, len(events))
	for i := range events {
		out[i] = FromEvent(&events[i])
	}
	return out
}

// NewEvent builds an event for creation.
func (in EventInput) NewEvent() *store.GoalEvent {
	e := &store.GoalEvent{}
	if in.GoalID != nil {
		e.GoalID = *in.GoalID
	}
	if in.Date != nil {
		e.Date = in.Date.UnixMilli()
	}
	e.Duration = in.Duration
	if in.Notes != nil {
		e.Notes = *in.Notes
	}
	if in.Status != nil {
		e.Status = *in.Status
	}
	return e
}

// Patch returns the store update carrying the fields present in in. GoalID
// is ignored; events do not move between goals.
func (in EventInput) Patch() store.EventPatch {
	return store.EventPatch{
		Date:     toMillisPtr(in.Date),
		Duration: in.Duration,
		Notes:    in.Notes,
		Status:   in.Status,
	}
}

// Tree nests goals by hierarchy id.
func Tree(goals []store.Goal) []TreeNode {
	roots := hierarchy.Build(goals, func(g store.Goal) string { return g.HierarchyID })
	return treeNodes(roots)
}

func treeNodes(nodes []*hierarchy.Node[store.Goal]) []TreeNode {
	out := make([]TreeNode, len(nodes))
	for i, n := range nodes {
		out[i] = TreeNode{
			Goal:     FromGoal(&n.Item),
			Level:    n.Level,
			Children: treeNodes(n.Children),
		}
	}
	return out
}
