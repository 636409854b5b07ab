package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goalmap/goalmap/internal/api"
	"github.com/goalmap/goalmap/internal/client"
	"github.com/goalmap/goalmap/internal/config"
	"github.com/goalmap/goalmap/internal/engine"
	"github.com/goalmap/goalmap/internal/hierarchy"
	"github.com/goalmap/goalmap/internal/priority"
	"github.com/goalmap/goalmap/internal/store"
)

// --- list command ---

var listAll bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List open goals in hierarchy order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg config.Config, db *store.DB) error {
			var goals []store.Goal
			var err error
			if listAll {
				goals, err = db.ListGoals()
			} else {
				goals, err = db.ListOpenGoals()
			}
			if err != nil {
				return err
			}
			if len(goals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No goals.")
				return nil
			}
			now := time.Now()
			for i := range goals {
				printGoal(cmd.OutOrStdout(), view(&goals[i], now), 0, now)
			}
			return nil
		})
	},
}

// --- add command ---

var (
	addType     string
	addPriority float64
	addDecay    float64
)

var addCmd = &cobra.Command{
	Use:   "add <hierarchy-id|parent.> <description>",
	Short: "Add a goal",
	Long: `Add a goal. A hierarchy id ending in "." allocates the next free child
of that parent, so "add 1.2. Write tests" creates 1.2.N.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg config.Config, db *store.DB) error {
			hid := args[0]
			if parent, ok := strings.CutSuffix(hid, "."); ok {
				ids, err := db.HierarchyIDs()
				if err != nil {
					return err
				}
				hid = hierarchy.NextChildID(parent, ids)
			}

			g := &store.Goal{
				HierarchyID: hid,
				Description: args[1],
				GoalType:    addType,
				Priority:    cfg.Priority.DefaultPriority,
				DecayRate:   cfg.Priority.DefaultDecayRate,
			}
			if cmd.Flags().Changed("priority") {
				g.Priority = addPriority
			}
			if cmd.Flags().Changed("decay") {
				g.DecayRate = addDecay
			}
			if err := db.CreateGoal(g); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "added %s\n", g.HierarchyID)
			now := time.Now()
			printGoal(cmd.OutOrStdout(), view(g, now), 0, now)
			return nil
		})
	},
}

// --- tree command ---

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Show goals as a tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg config.Config, db *store.DB) error {
			goals, err := db.ListGoals()
			if err != nil {
				return err
			}
			now := time.Now()
			roots := hierarchy.Build(goals, func(g store.Goal) string { return g.HierarchyID })
			hierarchy.Walk(roots, func(n *hierarchy.Node[store.Goal]) {
				depth := len(hierarchy.Ancestors(n.ID))
				printGoal(cmd.OutOrStdout(), view(&n.Item, now), depth, now)
			})
			return nil
		})
	},
}

// --- select / accept / reject commands ---

// serverURL backs --server on select, accept and reject. A bare --server
// means $GOALMAP_URL or the default address.
var serverURL string

// remoteClient returns a client for --server after checking the server is
// up, or nil when the flag was not given.
func remoteClient(cmd *cobra.Command) (*client.Client, error) {
	if !cmd.Flags().Changed("server") {
		return nil, nil
	}
	c := client.New(strings.TrimSpace(serverURL))
	if !c.Healthy() {
		return nil, fmt.Errorf("goalmap server at %s is not reachable", c.URL())
	}
	return c, nil
}

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Pick the next goal to work on",
	Long: `Pick one open goal, favouring goals whose effective priority has decayed
the most. With --server the pick is made by a running goalmap server.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		c, err := remoteClient(cmd)
		if err != nil {
			return err
		}
		if c != nil {
			g, err := c.Select()
			if errors.Is(err, client.ErrEmpty) {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to select.")
				return nil
			}
			if err != nil {
				return err
			}
			printPick(cmd.OutOrStdout(), g, now)
			return nil
		}

		return withDB(func(cfg config.Config, db *store.DB) error {
			g, err := engine.New(db, nil).Select()
			if errors.Is(err, priority.ErrEmptyCandidateSet) {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to select.")
				return nil
			}
			if err != nil {
				return err
			}
			printPick(cmd.OutOrStdout(), api.FromGoal(g), now)
			return nil
		})
	},
}

var acceptCmd = &cobra.Command{
	Use:   "accept <id>",
	Short: "Accept a goal: lower its priority and reset its clock",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return feedback(cmd, args[0], rule{
			verb:   "accepted",
			local:  (*engine.Engine).Accept,
			remote: (*client.Client).Accept,
		})
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a goal: raise its priority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return feedback(cmd, args[0], rule{
			verb:   "rejected",
			local:  (*engine.Engine).Reject,
			remote: (*client.Client).Reject,
		})
	},
}

// rule is one feedback action, run against the local database or a server.
type rule struct {
	verb   string
	local  func(*engine.Engine, string) (*store.Goal, error)
	remote func(*client.Client, string) (api.Goal, error)
}

// feedback applies r to the goal named by ref, a UUID or hierarchy id.
func feedback(cmd *cobra.Command, ref string, r rule) error {
	c, err := remoteClient(cmd)
	if err != nil {
		return err
	}
	if c != nil {
		before, err := c.Resolve(ref)
		if err != nil {
			return err
		}
		after, err := r.remote(c, before.ID)
		if err != nil {
			return err
		}
		reportFeedback(cmd, r.verb, before.Priority, after)
		return nil
	}

	return withDB(func(cfg config.Config, db *store.DB) error {
		g, err := resolveGoal(db, ref)
		if err != nil {
			return err
		}
		updated, err := r.local(engine.New(db, nil), g.ID)
		if err != nil {
			return err
		}
		reportFeedback(cmd, r.verb, g.Priority, api.FromGoal(updated))
		return nil
	})
}

func reportFeedback(cmd *cobra.Command, verb string, before float64, after api.Goal) {
	fmt.Fprintf(os.Stderr, "%s %s: priority %.3f → %.3f\n", verb, after.HierarchyID, before, after.Priority)
	printGoal(cmd.OutOrStdout(), after, 0, time.Now())
}

func init() {
	listCmd.Flags().BoolVarP(&listAll, "all", "a", false, "Include done goals")

	addCmd.Flags().StringVarP(&addType, "type", "t", "", "Goal type (default General)")
	addCmd.Flags().Float64VarP(&addPriority, "priority", "p", 0, "Base priority (default from config)")
	addCmd.Flags().Float64Var(&addDecay, "decay", 0, "Decay rate per minute (default from config)")

	for _, c := range []*cobra.Command{selectCmd, acceptCmd, rejectCmd} {
		c.Flags().StringVar(&serverURL, "server", "", "Use a running server instead of the local database (--server=URL, default $GOALMAP_URL)")
		c.Flags().Lookup("server").NoOptDefVal = " "
	}
}
