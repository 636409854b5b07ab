package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Goal event statuses.
const (
	EventCompleted  = "completed"
	EventInProgress = "in-progress"
	EventPlanned    = "planned"
)

var validEventStatuses = map[string]bool{
	EventCompleted:  true,
	EventInProgress: true,
	EventPlanned:    true,
}

// GoalEvent is a dated entry in a goal's work log. Date and timestamps are
// unix milliseconds; Duration is in minutes.
type GoalEvent struct {
	ID        string
	GoalID    string
	Date      int64
	Duration  *float64
	Notes     string
	Status    string
	CreatedAt int64
	UpdatedAt int64
}

// EventPatch is a partial event update. Nil fields are left unchanged.
type EventPatch struct {
	Date     *int64
	Duration *float64
	Notes    *string
	Status   *string
}

func validateEvent(e *GoalEvent) error {
	if e.Date == 0 {
		return fmt.Errorf("%w: event date required", ErrInvalid)
	}
	if !validEventStatuses[e.Status] {
		return fmt.Errorf("%w: event status %q", ErrInvalid, e.Status)
	}
	if e.Duration != nil && *e.Duration < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalid)
	}
	return nil
}

// CreateEvent inserts an event for an existing goal.
func (db *DB) CreateEvent(e *GoalEvent) error {
	if e.Status == "" {
		e.Status = EventPlanned
	}
	if err := validateEvent(e); err != nil {
		return err
	}
	goal, err := db.GetGoal(e.GoalID)
	if err != nil {
		return err
	}
	if goal == nil {
		return fmt.Errorf("%w: goal %q does not exist", ErrInvalid, e.GoalID)
	}

	now := time.Now().UnixMilli()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = now
	e.UpdatedAt = now

	_, err = db.Exec(`
		INSERT INTO goal_events (id, goal_id, date, duration, notes, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.GoalID, e.Date, e.Duration, e.Notes, e.Status, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// GetEvent returns an event by id, or nil if not found.
func (db *DB) GetEvent(id string) (*GoalEvent, error) {
	rows, err := db.Query(`
		SELECT id, goal_id, date, duration, notes, status, created_at, updated_at
		FROM goal_events WHERE id = ?
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	defer rows.Close()
	events, err := scanEvents(rows)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return &events[0], nil
}

// ListEvents returns every event, newest first.
func (db *DB) ListEvents() ([]GoalEvent, error) {
	rows, err := db.Query(`
		SELECT id, goal_id, date, duration, notes, status, created_at, updated_at
		FROM goal_events ORDER BY date DESC, created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListEventsByGoal returns a goal's events, newest first.
func (db *DB) ListEventsByGoal(goalID string) ([]GoalEvent, error) {
	rows, err := db.Query(`
		SELECT id, goal_id, date, duration, notes, status, created_at, updated_at
		FROM goal_events WHERE goal_id = ? ORDER BY date DESC, created_at DESC
	`, goalID)
	if err != nil {
		return nil, fmt.Errorf("list events by goal: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListEventsInRange returns events dated within [start, end], oldest first.
func (db *DB) ListEventsInRange(start, end int64) ([]GoalEvent, error) {
	rows, err := db.Query(`
		SELECT id, goal_id, date, duration, notes, status, created_at, updated_at
		FROM goal_events WHERE date >= ? AND date <= ? ORDER BY date ASC, created_at ASC
	`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list events in range: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// UpdateEvent applies patch to one event.
func (db *DB) UpdateEvent(id string, patch EventPatch) (*GoalEvent, error) {
	e, err := db.GetEvent(id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("update event %s: %w", id, ErrNotFound)
	}

	if patch.Date != nil {
		e.Date = *patch.Date
	}
	if patch.Duration != nil {
		v := *patch.Duration
		e.Duration = &v
	}
	if patch.Notes != nil {
		e.Notes = *patch.Notes
	}
	if patch.Status != nil {
		e.Status = *patch.Status
	}
	if err := validateEvent(e); err != nil {
		return nil, err
	}
	e.UpdatedAt = time.Now().UnixMilli()

	_, err = db.Exec(`
		UPDATE goal_events SET date = ?, duration = ?, notes = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, e.Date, e.Duration, e.Notes, e.Status, e.UpdatedAt, e.ID)
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

// DeleteEvent removes one event.
func (db *DB) DeleteEvent(id string) error {
	result, err := db.Exec(`DELETE FROM goal_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("delete event %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]GoalEvent, error) {
	var events []GoalEvent
	for rows.Next() {
		var e GoalEvent
		var duration sql.NullFloat64
		var notes sql.NullString
		if err := rows.Scan(&e.ID, &e.GoalID, &e.Date, &duration, &notes, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if duration.Valid {
			d := duration.Float64
			e.Duration = &d
		}
		e.Notes = notes.String
		events = append(events, e)
	}
	return events, rows.Err()
}
