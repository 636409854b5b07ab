// Package ingest loads goals from seed files: a goals CSV, a YAML goal list,
// and research-tab CSV exports that land as children of one parent goal.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goalmap/goalmap/internal/store"
)

// Options controls a seed import.
type Options struct {
	// Truncate deletes every existing goal before importing.
	Truncate bool

	// DefaultPriority and DefaultDecayRate fill blank priority cells.
	DefaultPriority  float64
	DefaultDecayRate float64
}

// Result counts what an import changed.
type Result struct {
	Deleted    int
	Renumbered int
	Created    int
}

// readCSV parses a CSV with a header row into records keyed by header name.
// Header names are trimmed; blank lines are skipped.
func readCSV(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var records []map[string]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if isBlank(row) {
			continue
		}
		rec := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(row) {
				rec[name] = strings.TrimSpace(row[i])
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseFloat reads an optional number cell; blank yields def.
func parseFloat(s string, def float64) (float64, error) {
	if s == "" {
		return def, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseDone accepts "1", "0" and anything strconv.ParseBool does. Blank is
// false.
func parseDone(s string) (bool, error) {
	switch s {
	case "":
		return false, nil
	case "yes", "Yes", "YES":
		return true, nil
	case "no", "No", "NO":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// create inserts goals in order, stopping at the first failure.
func create(db *store.DB, goals []*store.Goal) (int, error) {
	for i, g := range goals {
		if err := db.CreateGoal(g); err != nil {
			return i, fmt.Errorf("goal %s: %w", g.HierarchyID, err)
		}
	}
	return len(goals), nil
}

// checkBatch validates every goal of an import before anything is deleted
// or written. existing holds the hierarchy ids that will still be in the
// store when the batch lands.
func checkBatch(goals []*store.Goal, existing []string, label func(i int) string) error {
	taken := make(map[string]bool, len(existing)+len(goals))
	for _, id := range existing {
		taken[id] = true
	}
	for i, g := range goals {
		if err := store.ValidateGoal(g); err != nil {
			return fmt.Errorf("%s: %w", label(i), err)
		}
		if taken[g.HierarchyID] {
			return fmt.Errorf("%s: goal %s: %w", label(i), g.HierarchyID, store.ErrDuplicate)
		}
		taken[g.HierarchyID] = true
	}
	return nil
}

// existingIDs returns the ids an import must not collide with: none when
// the store is about to be truncated.
func existingIDs(db *store.DB, truncate bool) ([]string, error) {
	if truncate {
		return nil, nil
	}
	return db.HierarchyIDs()
}
