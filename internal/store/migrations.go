package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "goals: hierarchical goal records with priority decay inputs",
		SQL: `
CREATE TABLE goals (
    id                 TEXT PRIMARY KEY,
    hierarchy_id       TEXT NOT NULL UNIQUE,
    description        TEXT NOT NULL,
    goal_type          TEXT NOT NULL,
    done               INTEGER NOT NULL DEFAULT 0,
    status             TEXT NOT NULL DEFAULT 'Not Started'
                       CHECK (status IN ('Not Started', 'In Progress', 'Completed', 'Cancelled')),

    -- Priority model
    priority           REAL NOT NULL DEFAULT 1.0 CHECK (priority >= 0),
    decay_rate         REAL NOT NULL DEFAULT 0.001 CHECK (decay_rate >= 0),
    last_selected      INTEGER NOT NULL,
    effective_priority REAL NOT NULL DEFAULT 0,

    -- Assessment
    score              REAL NOT NULL DEFAULT 0,
    assessment         REAL NOT NULL DEFAULT 0,
    community_value    REAL NOT NULL DEFAULT 0,

    -- Schedule
    start_text         TEXT,
    end_text           TEXT,
    start_date         INTEGER,
    end_date           INTEGER,

    -- Research ingestion
    auto_ingest        INTEGER NOT NULL DEFAULT 0,
    link               TEXT,
    summary            TEXT,
    tier               TEXT,
    domain             TEXT,
    subtopic           TEXT,
    tags               TEXT,
    next_action_date   TEXT,
    action_note        TEXT,
    date_added         TEXT,

    created_at         INTEGER NOT NULL,
    updated_at         INTEGER NOT NULL
);

CREATE INDEX idx_goals_done        ON goals(done);
CREATE INDEX idx_goals_auto_ingest ON goals(auto_ingest);
`,
	},
	{
		Version:     2,
		Description: "goal_events: dated work log entries per goal",
		SQL: `
CREATE TABLE goal_events (
    id          TEXT PRIMARY KEY,
    goal_id     TEXT NOT NULL,
    date        INTEGER NOT NULL,
    duration    REAL,
    notes       TEXT,
    status      TEXT NOT NULL DEFAULT 'planned'
                CHECK (status IN ('completed', 'in-progress', 'planned')),
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,

    FOREIGN KEY (goal_id) REFERENCES goals(id) ON DELETE CASCADE
);

CREATE INDEX idx_events_goal_date ON goal_events(goal_id, date);
CREATE INDEX idx_events_date      ON goal_events(date);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
