package ingest

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/goalmap/goalmap/internal/store"
)

// goalFile is the YAML import format:
//
//	goals:
//	  - hierarchyId: "1.2"
//	    description: Learn Go
//	    priority: 2
type goalFile struct {
	Goals []yamlGoal `yaml:"goals"`
}

type yamlGoal struct {
	HierarchyID    string   `yaml:"hierarchyId"`
	Description    string   `yaml:"description"`
	GoalType       string   `yaml:"goalType"`
	Done           bool     `yaml:"done"`
	Status         string   `yaml:"status"`
	Priority       *float64 `yaml:"priority"`
	DecayRate      *float64 `yaml:"decayRate"`
	Score          float64  `yaml:"score"`
	Assessment     float64  `yaml:"assessment"`
	CommunityValue float64  `yaml:"communityValue"`
	Start          string   `yaml:"start"`
	End            string   `yaml:"end"`
	Link           string   `yaml:"link"`
	Summary        string   `yaml:"summary"`
	Tags           string   `yaml:"tags"`
}

// ImportYAML imports a YAML goal list. The whole document is decoded and
// validated before anything is deleted or written.
func ImportYAML(db *store.DB, r io.Reader, opts Options) (Result, error) {
	var res Result

	var file goalFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && err != io.EOF {
		return res, fmt.Errorf("parse yaml: %w", err)
	}

	goals := make([]*store.Goal, len(file.Goals))
	for i, yg := range file.Goals {
		g := &store.Goal{
			HierarchyID:    yg.HierarchyID,
			Description:    yg.Description,
			GoalType:       yg.GoalType,
			Done:           yg.Done,
			Status:         yg.Status,
			Priority:       opts.DefaultPriority,
			DecayRate:      opts.DefaultDecayRate,
			Score:          yg.Score,
			Assessment:     yg.Assessment,
			CommunityValue: yg.CommunityValue,
			Start:          yg.Start,
			End:            yg.End,
			Link:           yg.Link,
			Summary:        yg.Summary,
			Tags:           yg.Tags,
		}
		if yg.Priority != nil {
			g.Priority = *yg.Priority
		}
		if yg.DecayRate != nil {
			g.DecayRate = *yg.DecayRate
		}
		if g.HierarchyID == "" {
			return res, fmt.Errorf("yaml goal %d: %w: hierarchyId is blank", i+1, store.ErrInvalid)
		}
		goals[i] = g
	}

	existing, err := existingIDs(db, opts.Truncate)
	if err != nil {
		return res, err
	}
	if err := checkBatch(goals, existing, func(i int) string {
		return fmt.Sprintf("yaml goal %d", i+1)
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
