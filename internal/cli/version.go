package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/goalmap/goalmap/internal/config"
	"github.com/goalmap/goalmap/internal/store"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionVerbose bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "goalmap %s (commit: %s, built: %s)\n", Version, vcsCommit(), BuildDate)
		if !versionVerbose {
			return nil
		}
		fmt.Fprintf(w, "  go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return withDB(func(cfg config.Config, db *store.DB) error {
			v, err := db.SchemaVersion()
			if err != nil {
				return fmt.Errorf("schema version: %w", err)
			}
			fmt.Fprintf(w, "  db: %s (schema v%d)\n", db.Path, v)
			return nil
		})
	},
}

func init() {
	versionCmd.Flags().BoolVarP(&versionVerbose, "verbose", "v", false, "Also print the Go runtime and database schema version")
}

// vcsCommit falls back to the revision stamped by the Go toolchain when
// Commit was not set with -ldflags.
func vcsCommit() string {
	if Commit != "unknown" {
		return Commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Commit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return Commit
}

// VersionString returns the version reported by /api/health and exports.
func VersionString() string {
	return fmt.Sprintf("%s (%s)", Version, vcsCommit())
}
