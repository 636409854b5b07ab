package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/goalmap/goalmap/internal/api"
	"github.com/goalmap/goalmap/internal/config"
	"github.com/goalmap/goalmap/internal/hierarchy"
	"github.com/goalmap/goalmap/internal/store"
)

var (
	idStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Strikethrough(true)
	pickStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("24")).Padding(0, 1)
)

// loadConfig reads the config file named by $GOALMAP_CONFIG or the default
// location.
func loadConfig() (config.Config, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(path)
}

// openDB is a helper that opens the database for CLI commands.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

// withDB loads config, opens the database and runs fn.
func withDB(fn func(cfg config.Config, db *store.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	return fn(cfg, db)
}

// resolveGoal finds a goal by UUID or hierarchy id.
func resolveGoal(db *store.DB, ref string) (*store.Goal, error) {
	g, err := db.GetGoalByHierarchyID(ref)
	if err != nil || g != nil {
		return g, err
	}
	g, err = db.GetGoal(ref)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("goal %s: %w", ref, store.ErrNotFound)
	}
	return g, nil
}

// view converts g for display with its effective priority at now.
func view(g *store.Goal, now time.Time) api.Goal {
	v := api.FromGoal(g)
	v.EffectivePriority = g.Effective(now)
	return v
}

// printGoal writes one goal line:
//
//	1.2  Learn Go  [2.00 → 1.43, picked 3 days ago]
func printGoal(w io.Writer, g api.Goal, indent int, now time.Time) {
	desc := g.Description
	if g.Done {
		desc = doneStyle.Render(desc)
	}
	meta := fmt.Sprintf("[%.2f → %.2f, picked %s]",
		g.Priority, g.EffectivePriority, humanize.RelTime(g.LastSelected, now, "ago", "from now"))
	fmt.Fprintf(w, "%s%s  %s  %s\n",
		strings.Repeat("  ", indent), idStyle.Render(g.HierarchyID), desc, mutedStyle.Render(meta))
}

// printPick writes the selection banner for g.
func printPick(w io.Writer, g api.Goal, now time.Time) {
	fmt.Fprintln(w, pickStyle.Render("Next up: "+g.HierarchyID))
	fmt.Fprintf(w, "%s\n", g.Description)
	if p := hierarchy.Path(hierarchy.Parent(g.HierarchyID)); p != "" {
		fmt.Fprintln(w, mutedStyle.Render("under "+p))
	}
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("effective priority %.3f, last picked %s",
		g.EffectivePriority, humanize.RelTime(g.LastSelected, now, "ago", "from now"))))
	fmt.Fprintln(w, mutedStyle.Render("id "+g.ID))
}
