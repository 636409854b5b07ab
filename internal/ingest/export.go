package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/natefinch/atomic"

	"github.com/goalmap/goalmap/internal/api"
	"github.com/goalmap/goalmap/internal/store"
)

// Export writes every goal and event to path as one JSON snapshot. The file
// is replaced atomically, so readers never see a partial export.
func Export(db *store.DB, path, version string, now time.Time) (api.Snapshot, error) {
	goals, err := db.ListGoals()
	if err != nil {
		return api.Snapshot{}, err
	}
	events, err := db.ListEvents()
	if err != nil {
		return api.Snapshot{}, err
	}

	for i := range goals {
		goals[i].EffectivePriority = goals[i].Effective(now)
	}
	snap := api.Snapshot{
		Version:    version,
		ExportedAt: now.UTC(),
		Goals:      api.FromGoals(goals),
		Events:     api.FromEvents(events),
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return snap, fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return snap, fmt.Errorf("write snapshot: %w", err)
	}
	return snap, nil
}
