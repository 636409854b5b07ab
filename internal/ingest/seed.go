package ingest

import (
	"fmt"
	"io"

	"github.com/goalmap/goalmap/internal/store"
)

// Goals CSV columns.
const (
	colNaming         = "Naming"
	colDescription    = "Description"
	colGoalType       = "Goal Type"
	colDone           = "Done"
	colPriority       = "Priority"
	colScore          = "Score"
	colAssessment     = "Assessment"
	colCommunityValue = "Community Value"
	colStart          = "Start"
	colEnd            = "End"
)

// SeedCSV imports a goals spreadsheet. Every row is parsed and validated
// before anything is deleted or written, so a bad file leaves the store
// untouched.
func SeedCSV(db *store.DB, r io.Reader, opts Options) (Result, error) {
	var res Result

	records, err := readCSV(r)
	if err != nil {
		return res, fmt.Errorf("seed csv: %w", err)
	}

	goals := make([]*store.Goal, 0, len(records))
	for i, rec := range records {
		g, err := goalFromRecord(rec, opts)
		if err != nil {
			// +2: one for the header, one for 1-based line numbers.
			return res, fmt.Errorf("seed csv line %d: %w", i+2, err)
		}
		goals = append(goals, g)
	}

	existing, err := existingIDs(db, opts.Truncate)
	if err != nil {
		return res, err
	}
	if err := checkBatch(goals, existing, func(i int) string {
		return fmt.Sprintf("seed csv line %d", i+2)
	}); err != nil {
		return res, err
	}

	if opts.Truncate {
		if res.Deleted, err = db.DeleteAllGoals(); err != nil {
			return res, err
		}
	}
	res.Created, err = create(db, goals)
	return res, err
}

func goalFromRecord(rec map[string]string, opts Options) (*store.Goal, error) {
	g := &store.Goal{
		HierarchyID: rec[colNaming],
		Description: rec[colDescription],
		GoalType:    rec[colGoalType],
		DecayRate:   opts.DefaultDecayRate,
		Start:       rec[colStart],
		End:         rec[colEnd],
	}
	if g.HierarchyID == "" {
		return nil, fmt.Errorf("%w: %s is blank", store.ErrInvalid, colNaming)
	}

	var err error
	if g.Done, err = parseDone(rec[colDone]); err != nil {
		return nil, fmt.Errorf("%s: %w", colDone, err)
	}
	if g.Done {
		g.Status = store.StatusCompleted
	}
	if g.Priority, err = parseFloat(rec[colPriority], opts.DefaultPriority); err != nil {
		return nil, fmt.Errorf("%s: %w", colPriority, err)
	}
	if g.Score, err = parseFloat(rec[colScore], 0); err != nil {
		return nil, fmt.Errorf("%s: %w", colScore, err)
	}
	if g.Assessment, err = parseFloat(rec[colAssessment], 0); err != nil {
		return nil, fmt.Errorf("%s: %w", colAssessment, err)
	}
	if g.CommunityValue, err = parseFloat(rec[colCommunityValue], 0); err != nil {
		return nil, fmt.Errorf("%s: %w", colCommunityValue, err)
	}
	return g, nil
}
