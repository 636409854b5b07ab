package ingest

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/goalmap/goalmap/internal/hierarchy"
	"github.com/goalmap/goalmap/internal/store"
)

// DefaultResearchParent is where research tabs land unless told otherwise.
const DefaultResearchParent = "1.9"

// ResearchGoalType is the goal type given to ingested research tabs.
const ResearchGoalType = "Bookmark"

// Research tab CSV columns.
const (
	colTitle          = "title"
	colLink           = "link"
	colSummary        = "summary"
	colTabPriority    = "priority"
	colTier           = "tier"
	colDomain         = "domain"
	colSubtopic       = "subtopic"
	colTags           = "tags"
	colNextActionDate = "next_action_date"
	colActionNote     = "action_note"
	colDateAdded      = "date_added"
)

// Research replaces the auto-ingested children of parent with one child per
// CSV row. Children created by hand are kept; if deleting the old batch left
// gaps in their numbering they are renumbered 1..n, carrying their
// descendants with them. New children are appended after the last one.
//
// When every row's priority falls in [80, 100] the file is on a percentage
// scale and priorities are divided by 100. Every row is validated before the
// old batch is deleted.
func Research(db *store.DB, r io.Reader, parent string, opts Options) (Result, error) {
	var res Result
	if parent == "" {
		parent = DefaultResearchParent
	}
	if !hierarchy.Valid(parent) {
		return res, fmt.Errorf("%w: parent %q", store.ErrInvalid, parent)
	}

	records, err := readCSV(r)
	if err != nil {
		return res, fmt.Errorf("research csv: %w: %v", store.ErrInvalid, err)
	}
	priorities, err := parseResearchRows(records, opts.DefaultPriority)
	if err != nil {
		return res, err
	}

	goals := make([]*store.Goal, len(records))
	for i, rec := range records {
		goals[i] = &store.Goal{
			HierarchyID:    fmt.Sprintf("%s.%d", parent, i+1),
			Description:    rec[colTitle],
			GoalType:       ResearchGoalType,
			Priority:       priorities[i],
			DecayRate:      opts.DefaultDecayRate,
			Start:          rec[colNextActionDate],
			AutoIngest:     true,
			Link:           rec[colLink],
			Summary:        rec[colSummary],
			Tier:           rec[colTier],
			Domain:         rec[colDomain],
			Subtopic:       rec[colSubtopic],
			Tags:           rec[colTags],
			NextActionDate: rec[colNextActionDate],
			ActionNote:     rec[colActionNote],
			DateAdded:      rec[colDateAdded],
		}
		if goals[i].Description == "" {
			goals[i].Description = goals[i].Link
		}
	}
	// Final ids are only known after the old batch is gone; the provisional
	// ones above are distinct, which is all the check needs.
	if err := checkBatch(goals, nil, func(i int) string {
		return fmt.Sprintf("research csv line %d", i+2)
	}); err != nil {
		return res, err
	}

	if res.Deleted, err = db.DeleteAutoIngestChildren(parent); err != nil {
		return res, err
	}
	if res.Renumbered, err = renumberChildren(db, parent); err != nil {
		return res, err
	}

	ids, err := db.HierarchyIDs()
	if err != nil {
		return res, err
	}
	next := hierarchy.NextChildID(parent, ids)
	n, _ := strconv.Atoi(next[strings.LastIndex(next, ".")+1:])
	for i, g := range goals {
		g.HierarchyID = fmt.Sprintf("%s.%d", parent, n+i)
	}
	res.Created, err = create(db, goals)
	return res, err
}

// parseResearchRows checks every row and returns the priorities to store.
func parseResearchRows(records []map[string]string, def float64) ([]float64, error) {
	out := make([]float64, len(records))
	percent := len(records) > 0
	for i, rec := range records {
		if rec[colTitle] == "" && rec[colLink] == "" {
			return nil, fmt.Errorf("research csv line %d: %w: title and link are blank", i+2, store.ErrInvalid)
		}
		p, err := parseFloat(rec[colTabPriority], def)
		if err != nil {
			return nil, fmt.Errorf("research csv line %d: %w: %s: %v", i+2, store.ErrInvalid, colTabPriority, err)
		}
		out[i] = p
		if p < 80 || p > 100 {
			percent = false
		}
	}
	if percent {
		for i := range out {
			out[i] /= 100
		}
	}
	return out, nil
}

// renumberChildren closes gaps in parent's child numbering. It only acts
// when the highest child number exceeds the child count.
func renumberChildren(db *store.DB, parent string) (int, error) {
	children, err := db.ListChildren(parent)
	if err != nil || len(children) == 0 {
		return 0, err
	}
	last := hierarchy.Segments(children[len(children)-1].HierarchyID)
	highest, err := strconv.Atoi(last[len(last)-1])
	if err != nil || highest <= len(children) {
		return 0, nil
	}

	ids, err := db.HierarchyIDs()
	if err != nil {
		return 0, err
	}
	renamed := 0
	for i, c := range children {
		newID := fmt.Sprintf("%s.%d", parent, i+1)
		if newID == c.HierarchyID {
			continue
		}
		if err := renameSubtree(db, c, newID, ids); err != nil {
			return renamed, err
		}
		renamed++
	}
	return renamed, nil
}

func renameSubtree(db *store.DB, root store.Goal, newID string, ids []string) error {
	if err := db.SetHierarchyID(root.ID, newID); err != nil {
		return err
	}
	prefix := root.HierarchyID + "."
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		g, err := db.GetGoalByHierarchyID(id)
		if err != nil {
			return err
		}
		if g == nil {
			continue
		}
		if err := db.SetHierarchyID(g.ID, newID+"."+strings.TrimPrefix(id, prefix)); err != nil {
			return err
		}
	}
	return nil
}
