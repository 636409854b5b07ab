package engine

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/goalmap/goalmap/internal/priority"
	"github.com/goalmap/goalmap/internal/store"
)

// Engine runs the priority model against stored goals: weighted selection,
// accept/reject feedback, and upkeep of the effective priority cache.
type Engine struct {
	DB       *store.DB
	Selector *priority.Selector

	// Now is the clock. Tests pin it.
	Now func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new Engine. A nil selector uses the default random source.
func New(db *store.DB, selector *priority.Selector) *Engine {
	if selector == nil {
		selector = priority.NewSelector()
	}
	return &Engine{
		DB:       db,
		Selector: selector,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Select draws one open goal, weighted toward low effective priority. The
// returned goal carries its effective priority at the time of the draw.
// With no open goals it returns priority.ErrEmptyCandidateSet.
func (e *Engine) Select() (*store.Goal, error) {
	goals, err := e.DB.ListOpenGoals()
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	candidates := make([]priority.Goal, len(goals))
	byID := make(map[string]int, len(goals))
	for i := range goals {
		candidates[i] = goals[i].PriorityGoal()
		byID[goals[i].ID] = i
	}

	picked, err := e.Selector.Select(candidates, e.Now())
	if err != nil {
		return nil, err
	}
	g := goals[byID[picked.ID]]
	g.EffectivePriority = picked.EffectivePriority
	return &g, nil
}

// Accept applies the accept rule to one goal and persists it.
func (e *Engine) Accept(id string) (*store.Goal, error) {
	return e.feedback(id, priority.Accept)
}

// Reject applies the reject rule to one goal and persists it.
func (e *Engine) Reject(id string) (*store.Goal, error) {
	return e.feedback(id, priority.Reject)
}

func (e *Engine) feedback(id string, rule func(*priority.Goal, time.Time)) (*store.Goal, error) {
	g, err := e.DB.GetGoal(id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("goal %s: %w", id, store.ErrNotFound)
	}

	pg := g.PriorityGoal()
	rule(&pg, e.Now())
	if err := priority.ValidateValues(pg.BasePriority, pg.DecayRate); err != nil {
		return nil, fmt.Errorf("goal %s: %w", g.HierarchyID, err)
	}
	g.Priority = pg.BasePriority
	g.LastSelected = pg.LastSelected.UnixMilli()
	g.EffectivePriority = pg.EffectivePriority

	if err := e.DB.UpdatePriority(g.ID, g.Priority, g.LastSelected, g.EffectivePriority); err != nil {
		return nil, err
	}
	return g, nil
}

// Decorate recomputes effective priority on goals about to be shown.
func (e *Engine) Decorate(goals []store.Goal) {
	now := e.Now()
	for i := range goals {
		goals[i].EffectivePriority = goals[i].Effective(now)
	}
}

// Refresh rewrites the stored effective priority of every goal that has
// drifted since it was last written.
func (e *Engine) Refresh() (int, error) {
	return e.DB.RefreshEffectivePriorities(e.Now())
}

// StartRefreshTimer refreshes the cache once now and then on every interval
// until Stop is called.
func (e *Engine) StartRefreshTimer(interval time.Duration) {
	e.refreshAndLog()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.refreshAndLog()
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *Engine) refreshAndLog() {
	if updated, err := e.Refresh(); err != nil {
		log.Printf("refresh error: %v", err)
	} else if updated > 0 {
		log.Printf("refresh: updated %d goals", updated)
	}
}

// Stop shuts down the engine's background goroutines.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
}
