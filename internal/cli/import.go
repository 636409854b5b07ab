package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/goalmap/goalmap/internal/config"
	"github.com/goalmap/goalmap/internal/ingest"
	"github.com/goalmap/goalmap/internal/store"
)

// --- import command ---

var (
	importTruncate bool
	importParent   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import goals from a file",
}

var importCSVCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Import a goals spreadsheet (Naming, Description, Goal Type, Done, Priority, ...)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(args[0], func(db *store.DB, r io.Reader, _ config.Config, opts ingest.Options) (ingest.Result, error) {
			return ingest.SeedCSV(db, r, opts)
		})
	},
}

var importYAMLCmd = &cobra.Command{
	Use:   "yaml <file>",
	Short: "Import a YAML goal list",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(args[0], func(db *store.DB, r io.Reader, _ config.Config, opts ingest.Options) (ingest.Result, error) {
			return ingest.ImportYAML(db, r, opts)
		})
	},
}

var importResearchCmd = &cobra.Command{
	Use:   "research <file>",
	Short: "Replace the auto-ingested research tabs under a parent goal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runImport(args[0], func(db *store.DB, r io.Reader, cfg config.Config, opts ingest.Options) (ingest.Result, error) {
			parent := importParent
			if parent == "" {
				parent = cfg.Ingest.ResearchParent
			}
			return ingest.Research(db, r, parent, opts)
		})
	},
}

type importFunc func(db *store.DB, r io.Reader, cfg config.Config, opts ingest.Options) (ingest.Result, error)

func runImport(path string, fn importFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return withDB(func(cfg config.Config, db *store.DB) error {
		res, err := fn(db, f, cfg, ingest.Options{
			Truncate:         importTruncate,
			DefaultPriority:  cfg.Priority.DefaultPriority,
			DefaultDecayRate: cfg.Priority.DefaultDecayRate,
		})
		if err != nil {
			return fmt.Errorf("import %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "imported %s: %d created, %d deleted, %d renumbered\n",
			path, res.Created, res.Deleted, res.Renumbered)
		return nil
	})
}

// --- export command ---

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write every goal and event to a JSON snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(cfg config.Config, db *store.DB) error {
			snap, err := ingest.Export(db, args[0], VersionString(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "exported %d goals and %d events to %s\n",
				len(snap.Goals), len(snap.Events), args[0])
			return nil
		})
	},
}

func init() {
	importCSVCmd.Flags().BoolVar(&importTruncate, "truncate", false, "Delete all goals before importing")
	importYAMLCmd.Flags().BoolVar(&importTruncate, "truncate", false, "Delete all goals before importing")
	importResearchCmd.Flags().StringVar(&importParent, "parent", "", "Parent goal (default from config, 1.9)")

	importCmd.AddCommand(importCSVCmd)
	importCmd.AddCommand(importYAMLCmd)
	importCmd.AddCommand(importResearchCmd)
}
