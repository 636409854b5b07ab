package store

import (
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/goalmap/goalmap/internal/hierarchy"
	"github.com/goalmap/goalmap/internal/priority"
	"github.com/google/uuid"
)

// Goal statuses.
const (
	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusCancelled  = "Cancelled"
)

// DefaultGoalType is used when a goal is created without a type.
const DefaultGoalType = "General"

var validStatuses = map[string]bool{
	StatusNotStarted: true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusCancelled:  true,
}

// Goal represents one goal row. Timestamps are unix milliseconds.
type Goal struct {
	ID          string
	HierarchyID string
	Description string
	GoalType    string
	Done        bool
	Status      string

	Priority          float64
	DecayRate         float64
	LastSelected      int64
	EffectivePriority float64 // display cache, see priority.Effective

	Score          float64
	Assessment     float64
	CommunityValue float64

	Start     string
	End       string
	StartDate *int64
	EndDate   *int64

	AutoIngest     bool
	Link           string
	Summary        string
	Tier           string
	Domain         string
	Subtopic       string
	Tags           string
	NextActionDate string
	ActionNote     string
	DateAdded      string

	CreatedAt int64
	UpdatedAt int64
}

// PriorityGoal returns the fields the priority model works on.
func (g *Goal) PriorityGoal() priority.Goal {
	return priority.Goal{
		ID:                g.ID,
		BasePriority:      g.Priority,
		DecayRate:         g.DecayRate,
		LastSelected:      time.UnixMilli(g.LastSelected),
		Done:              g.Done,
		EffectivePriority: g.EffectivePriority,
	}
}

// Effective recomputes g's effective priority at now.
func (g *Goal) Effective(now time.Time) float64 {
	return priority.Effective(g.Priority, g.DecayRate, time.UnixMilli(g.LastSelected), now)
}

// GoalPatch is a partial goal update. Nil fields are left unchanged.
type GoalPatch struct {
	HierarchyID    *string
	Description    *string
	GoalType       *string
	Done           *bool
	Status         *string
	Priority       *float64
	DecayRate      *float64
	LastSelected   *int64
	Score          *float64
	Assessment     *float64
	CommunityValue *float64
	Start          *string
	End            *string
	StartDate      *int64
	EndDate        *int64
	AutoIngest     *bool
	Link           *string
	Summary        *string
	Tier           *string
	Domain         *string
	Subtopic       *string
	Tags           *string
	NextActionDate *string
	ActionNote     *string
	DateAdded      *string
}

// Apply copies the non-nil fields of p onto g.
func (p GoalPatch) Apply(g *Goal) {
	setString(&g.HierarchyID, p.HierarchyID)
	setString(&g.Description, p.Description)
	setString(&g.GoalType, p.GoalType)
	if p.Done != nil {
		g.Done = *p.Done
	}
	setString(&g.Status, p.Status)
	setFloat(&g.Priority, p.Priority)
	setFloat(&g.DecayRate, p.DecayRate)
	if p.LastSelected != nil {
		g.LastSelected = *p.LastSelected
	}
	setFloat(&g.Score, p.Score)
	setFloat(&g.Assessment, p.Assessment)
	setFloat(&g.CommunityValue, p.CommunityValue)
	setString(&g.Start, p.Start)
	setString(&g.End, p.End)
	if p.StartDate != nil {
		v := *p.StartDate
		g.StartDate = &v
	}
	if p.EndDate != nil {
		v := *p.EndDate
		g.EndDate = &v
	}
	if p.AutoIngest != nil {
		g.AutoIngest = *p.AutoIngest
	}
	setString(&g.Link, p.Link)
	setString(&g.Summary, p.Summary)
	setString(&g.Tier, p.Tier)
	setString(&g.Domain, p.Domain)
	setString(&g.Subtopic, p.Subtopic)
	setString(&g.Tags, p.Tags)
	setString(&g.NextActionDate, p.NextActionDate)
	setString(&g.ActionNote, p.ActionNote)
	setString(&g.DateAdded, p.DateAdded)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// validateGoal checks required fields and priority inputs.
func validateGoal(g *Goal, now time.Time) error {
	g.HierarchyID = strings.TrimSpace(g.HierarchyID)
	if !hierarchy.Valid(g.HierarchyID) {
		return fmt.Errorf("%w: hierarchy id %q", ErrInvalid, g.HierarchyID)
	}
	if strings.TrimSpace(g.Description) == "" {
		return fmt.Errorf("%w: description required", ErrInvalid)
	}
	if strings.TrimSpace(g.GoalType) == "" {
		return fmt.Errorf("%w: goal type required", ErrInvalid)
	}
	if !validStatuses[g.Status] {
		return fmt.Errorf("%w: status %q", ErrInvalid, g.Status)
	}
	if g.StartDate != nil && g.EndDate != nil && *g.EndDate < *g.StartDate {
		return fmt.Errorf("%w: end date before start date", ErrInvalid)
	}
	return priority.Validate(g.PriorityGoal(), now)
}

const goalColumns = `id, hierarchy_id, description, goal_type, done, status,
	priority, decay_rate, last_selected, effective_priority,
	score, assessment, community_value,
	start_text, end_text, start_date, end_date,
	auto_ingest, link, summary, tier, domain, subtopic, tags, next_action_date, action_note, date_added,
	created_at, updated_at`

// ValidateGoal fills the defaults CreateGoal would apply and checks g
// without writing anything. Imports run it over a whole batch first.
func ValidateGoal(g *Goal) error {
	return prepareGoal(g, time.Now())
}

func prepareGoal(g *Goal, now time.Time) error {
	if strings.TrimSpace(g.GoalType) == "" {
		g.GoalType = DefaultGoalType
	}
	if g.Status == "" {
		g.Status = StatusNotStarted
	}
	if g.LastSelected == 0 {
		g.LastSelected = now.UnixMilli()
	}
	return validateGoal(g, now)
}

// CreateGoal inserts a new goal. An empty ID gets a fresh UUID, an empty
// type and status get their defaults, and a zero LastSelected is set to now.
func (db *DB) CreateGoal(g *Goal) error {
	now := time.Now()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := prepareGoal(g, now); err != nil {
		return err
	}
	g.EffectivePriority = g.Effective(now)
	g.CreatedAt = now.UnixMilli()
	g.UpdatedAt = g.CreatedAt

	_, err := db.Exec(`
		INSERT INTO goals (`+goalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, goalArgs(g)...)
	if isUniqueViolation(err) {
		return fmt.Errorf("create goal %s: %w", g.HierarchyID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func goalArgs(g *Goal) []any {
	return []any{
		g.ID, g.HierarchyID, g.Description, g.GoalType, boolInt(g.Done), g.Status,
		g.Priority, g.DecayRate, g.LastSelected, g.EffectivePriority,
		g.Score, g.Assessment, g.CommunityValue,
		g.Start, g.End, g.StartDate, g.EndDate,
		boolInt(g.AutoIngest), g.Link, g.Summary, g.Tier, g.Domain, g.Subtopic, g.Tags,
		g.NextActionDate, g.ActionNote, g.DateAdded,
		g.CreatedAt, g.UpdatedAt,
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// GetGoal returns a goal by id, or nil if not found.
func (db *DB) GetGoal(id string) (*Goal, error) {
	rows, err := db.Query(`SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	defer rows.Close()
	goals, err := scanGoals(rows)
	if err != nil || len(goals) == 0 {
		return nil, err
	}
	return &goals[0], nil
}

// GetGoalByHierarchyID returns a goal by its dotted id, or nil if not found.
func (db *DB) GetGoalByHierarchyID(hierarchyID string) (*Goal, error) {
	rows, err := db.Query(`SELECT `+goalColumns+` FROM goals WHERE hierarchy_id = ?`, hierarchyID)
	if err != nil {
		return nil, fmt.Errorf("get goal by hierarchy id: %w", err)
	}
	defer rows.Close()
	goals, err := scanGoals(rows)
	if err != nil || len(goals) == 0 {
		return nil, err
	}
	return &goals[0], nil
}

// ListGoals returns every goal in hierarchy order.
func (db *DB) ListGoals() ([]Goal, error) {
	rows, err := db.Query(`SELECT ` + goalColumns + ` FROM goals`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()
	return sortedGoals(rows)
}

// ListOpenGoals returns goals not marked done, in hierarchy order.
func (db *DB) ListOpenGoals() ([]Goal, error) {
	rows, err := db.Query(`SELECT ` + goalColumns + ` FROM goals WHERE done = 0`)
	if err != nil {
		return nil, fmt.Errorf("list open goals: %w", err)
	}
	defer rows.Close()
	return sortedGoals(rows)
}

// ListChildren returns the direct children of parent in hierarchy order.
func (db *DB) ListChildren(parent string) ([]Goal, error) {
	rows, err := db.Query(`SELECT `+goalColumns+` FROM goals WHERE hierarchy_id LIKE ? ESCAPE '\'`,
		escapeLike(parent)+".%")
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	all, err := sortedGoals(rows)
	if err != nil {
		return nil, err
	}
	var children []Goal
	for _, g := range all {
		if hierarchy.IsChildOf(g.HierarchyID, parent) {
			children = append(children, g)
		}
	}
	return children, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// HierarchyIDs returns every goal's dotted id.
func (db *DB) HierarchyIDs() ([]string, error) {
	rows, err := db.Query(`SELECT hierarchy_id FROM goals`)
	if err != nil {
		return nil, fmt.Errorf("hierarchy ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan hierarchy id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateGoal applies patch to the goal with the given id and rewrites the
// row, refreshing the effective priority cache. The whole row is written, so
// concurrent updates to one goal resolve last-writer-wins.
func (db *DB) UpdateGoal(id string, patch GoalPatch) (*Goal, error) {
	g, err := db.GetGoal(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("update goal %s: %w", id, ErrNotFound)
	}

	now := time.Now()
	patch.Apply(g)
	if err := validateGoal(g, now); err != nil {
		return nil, err
	}
	g.EffectivePriority = g.Effective(now)
	g.UpdatedAt = now.UnixMilli()

	_, err = db.Exec(`
		UPDATE goals SET hierarchy_id = ?, description = ?, goal_type = ?, done = ?, status = ?,
			priority = ?, decay_rate = ?, last_selected = ?, effective_priority = ?,
			score = ?, assessment = ?, community_value = ?,
			start_text = ?, end_text = ?, start_date = ?, end_date = ?,
			auto_ingest = ?, link = ?, summary = ?, tier = ?, domain = ?, subtopic = ?, tags = ?,
			next_action_date = ?, action_note = ?, date_added = ?, updated_at = ?
		WHERE id = ?
	`, g.HierarchyID, g.Description, g.GoalType, boolInt(g.Done), g.Status,
		g.Priority, g.DecayRate, g.LastSelected, g.EffectivePriority,
		g.Score, g.Assessment, g.CommunityValue,
		g.Start, g.End, g.StartDate, g.EndDate,
		boolInt(g.AutoIngest), g.Link, g.Summary, g.Tier, g.Domain, g.Subtopic, g.Tags,
		g.NextActionDate, g.ActionNote, g.DateAdded, g.UpdatedAt,
		g.ID)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("update goal %s: %w", g.HierarchyID, ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}
	return g, nil
}

// UpdatePriority writes only the priority model fields of one goal. This is
// the write path for accept and reject.
func (db *DB) UpdatePriority(id string, basePriority float64, lastSelected int64, effective float64) error {
	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		UPDATE goals SET priority = ?, last_selected = ?, effective_priority = ?, updated_at = ?
		WHERE id = ?
	`, basePriority, lastSelected, effective, now, id)
	if err != nil {
		return fmt.Errorf("update priority: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("update priority %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetHierarchyID renames one goal.
func (db *DB) SetHierarchyID(id, hierarchyID string) error {
	if !hierarchy.Valid(hierarchyID) {
		return fmt.Errorf("%w: hierarchy id %q", ErrInvalid, hierarchyID)
	}
	result, err := db.Exec(`UPDATE goals SET hierarchy_id = ?, updated_at = ? WHERE id = ?`,
		hierarchyID, time.Now().UnixMilli(), id)
	if isUniqueViolation(err) {
		return fmt.Errorf("rename goal to %s: %w", hierarchyID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("set hierarchy id: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("set hierarchy id %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteGoal removes a goal. Its events go with it.
func (db *DB) DeleteGoal(id string) error {
	result, err := db.Exec(`DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("delete goal %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteAllGoals empties the goals table and returns how many rows went.
func (db *DB) DeleteAllGoals() (int, error) {
	result, err := db.Exec(`DELETE FROM goals`)
	if err != nil {
		return 0, fmt.Errorf("delete all goals: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// DeleteAutoIngestChildren removes the auto-ingested direct children of
// parent, leaving parent and hand-made children alone.
func (db *DB) DeleteAutoIngestChildren(parent string) (int, error) {
	children, err := db.ListChildren(parent)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, c := range children {
		if !c.AutoIngest {
			continue
		}
		if err := db.DeleteGoal(c.ID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// RefreshEffectivePriorities rewrites the effective priority cache of every
// goal whose stored value has drifted from the value at now.
func (db *DB) RefreshEffectivePriorities(now time.Time) (int, error) {
	goals, err := db.ListGoals()
	if err != nil {
		return 0, err
	}
	return db.refreshGoals(goals, now)
}

// refreshGoals writes the cache for a snapshot of goals. A row whose priority
// inputs changed after the snapshot was taken is skipped, leaving the value
// its writer cached.
func (db *DB) refreshGoals(goals []Goal, now time.Time) (int, error) {
	updated := 0
	for i := range goals {
		eff := goals[i].Effective(now)
		if eff == goals[i].EffectivePriority {
			continue
		}
		result, err := db.Exec(`
			UPDATE goals SET effective_priority = ?
			WHERE id = ? AND priority = ? AND decay_rate = ? AND last_selected = ?
		`, eff, goals[i].ID, goals[i].Priority, goals[i].DecayRate, goals[i].LastSelected)
		if err != nil {
			return updated, fmt.Errorf("refresh effective priority: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			updated++
		}
	}
	return updated, nil
}

func sortedGoals(rows *sql.Rows) ([]Goal, error) {
	goals, err := scanGoals(rows)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(goals, func(a, b Goal) int {
		return hierarchy.Compare(a.HierarchyID, b.HierarchyID)
	})
	return goals, nil
}

func scanGoals(rows *sql.Rows) ([]Goal, error) {
	var goals []Goal
	for rows.Next() {
		var g Goal
		var done, autoIngest int
		var startDate, endDate sql.NullInt64
		var start, end, link, summary, tier, domain, subtopic, tags, nextAction, actionNote, dateAdded sql.NullString
		if err := rows.Scan(&g.ID, &g.HierarchyID, &g.Description, &g.GoalType, &done, &g.Status,
			&g.Priority, &g.DecayRate, &g.LastSelected, &g.EffectivePriority,
			&g.Score, &g.Assessment, &g.CommunityValue,
			&start, &end, &startDate, &endDate,
			&autoIngest, &link, &summary, &tier, &domain, &subtopic, &tags, &nextAction, &actionNote, &dateAdded,
			&g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.Done = done != 0
		g.AutoIngest = autoIngest != 0
		g.Start = start.String
		g.End = end.String
		g.Link = link.String
		g.Summary = summary.String
		g.Tier = tier.String
		g.Domain = domain.String
		g.Subtopic = subtopic.String
		g.Tags = tags.String
		g.NextActionDate = nextAction.String
		g.ActionNote = actionNote.String
		g.DateAdded = dateAdded.String
		if startDate.Valid {
			g.StartDate = &startDate.Int64
		}
		if endDate.Valid {
			g.EndDate = &endDate.Int64
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}
