package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goalmap/goalmap/internal/api"
	"github.com/goalmap/goalmap/internal/client"
	"github.com/goalmap/goalmap/internal/engine"
	"github.com/goalmap/goalmap/internal/priority"
	"github.com/goalmap/goalmap/internal/server"
	"github.com/goalmap/goalmap/internal/store"
)

// testEnv points the CLI at a fresh database file and no config file.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "goalmap.db")
	t.Setenv("GOALMAP_DB", dbPath)
	t.Setenv("GOALMAP_CONFIG", filepath.Join(dir, "config.toml"))
	t.Setenv("GOALMAP_PORT", "")
	return dbPath
}

// run executes the root command with args and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag to its default. Command flags live in
// package globals and would otherwise leak between runs.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func openTestDB(t *testing.T, path string) *store.DB {
	t.Helper()
	db, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestVersion(t *testing.T) {
	out := mustRun(t, "version")
	assert.True(t, strings.HasPrefix(out, "goalmap dev"), out)
}

func TestVersionVerbose(t *testing.T) {
	dbPath := testEnv(t)

	out := mustRun(t, "version", "--verbose")
	assert.Contains(t, out, "go: ")
	assert.Contains(t, out, dbPath)
	assert.Contains(t, out, "schema v2")
}

func TestAddListTree(t *testing.T) {
	testEnv(t)

	mustRun(t, "add", "1", "Health")
	mustRun(t, "add", "1.", "Run", "--priority", "3")
	mustRun(t, "add", "1.", "Sleep", "--type", "Habit")

	out := mustRun(t, "list")
	assert.Contains(t, out, "Health")
	assert.Contains(t, out, "1.1")
	assert.Contains(t, out, "1.2")
	assert.Less(t, strings.Index(out, "Run"), strings.Index(out, "Sleep"))

	out = mustRun(t, "tree")
	assert.Contains(t, out, "\n  1.1  Run")
	assert.Contains(t, out, "[3.00 → 3.00")
}

func TestAddRejectsDuplicate(t *testing.T) {
	testEnv(t)

	mustRun(t, "add", "1", "Health")
	_, err := run(t, "add", "1", "Again")
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestSelectEmpty(t *testing.T) {
	testEnv(t)

	out := mustRun(t, "select")
	assert.Contains(t, out, "Nothing to select.")
}

func TestSelectAcceptReject(t *testing.T) {
	dbPath := testEnv(t)
	mustRun(t, "add", "1", "Health", "--priority", "2")

	out := mustRun(t, "select")
	assert.Contains(t, out, "Next up: 1")
	assert.Contains(t, out, "Health")

	mustRun(t, "reject", "1")
	db := openTestDB(t, dbPath)
	g, err := db.GetGoalByHierarchyID("1")
	require.NoError(t, err)
	assert.InDelta(t, 2.2, g.Priority, 1e-9)

	mustRun(t, "accept", g.ID)
	g, err = db.GetGoalByHierarchyID("1")
	require.NoError(t, err)
	assert.InDelta(t, 1.98, g.Priority, 1e-9)

	_, err = run(t, "accept", "9.9")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// testRemote starts a goalmap server over its own in-memory database.
func testRemote(t *testing.T) (string, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	eng := engine.New(db, &priority.Selector{Float64: func() float64 { return 0 }})
	t.Cleanup(eng.Stop)
	ts := httptest.NewServer(server.New(db, eng, "test", server.Options{}))
	t.Cleanup(ts.Close)
	return ts.URL, db
}

func TestFeedbackAgainstServer(t *testing.T) {
	dbPath := testEnv(t)
	url, remote := testRemote(t)
	require.NoError(t, remote.CreateGoal(&store.Goal{HierarchyID: "1", Description: "Health", Priority: 2}))

	out := mustRun(t, "select", "--server="+url)
	assert.Contains(t, out, "Next up: 1")

	mustRun(t, "accept", "1", "--server="+url)
	g, err := remote.GetGoalByHierarchyID("1")
	require.NoError(t, err)
	assert.InDelta(t, 1.8, g.Priority, 1e-9)

	out = mustRun(t, "reject", g.ID, "--server="+url)
	assert.Contains(t, out, "Health")
	g, err = remote.GetGoalByHierarchyID("1")
	require.NoError(t, err)
	assert.InDelta(t, 1.98, g.Priority, 1e-9)

	_, err = run(t, "accept", "9.9", "--server="+url)
	assert.ErrorIs(t, err, client.ErrNotFound)

	goals, err := openTestDB(t, dbPath).ListGoals()
	require.NoError(t, err)
	assert.Empty(t, goals, "the local database is not touched")
}

func TestServerUnreachable(t *testing.T) {
	testEnv(t)

	_, err := run(t, "reject", "1", "--server=http://127.0.0.1:1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not reachable")
}

func TestAddUsesConfigDefaults(t *testing.T) {
	dbPath := testEnv(t)
	cfgPath := filepath.Join(filepath.Dir(dbPath), "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[priority]\ndefault_priority = 5\ndefault_decay_rate = 0.01\n"), 0o644))

	mustRun(t, "add", "1", "Health")
	mustRun(t, "add", "2", "Work", "--priority", "0.5")

	db := openTestDB(t, dbPath)
	health, err := db.GetGoalByHierarchyID("1")
	require.NoError(t, err)
	assert.Equal(t, 5.0, health.Priority)
	assert.Equal(t, 0.01, health.DecayRate)

	work, err := db.GetGoalByHierarchyID("2")
	require.NoError(t, err)
	assert.Equal(t, 0.5, work.Priority)
}

func TestImportAndExport(t *testing.T) {
	dbPath := testEnv(t)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "goals.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Naming,Description,Priority\n1,Health,2\n1.9,Research,1\n"), 0o644))
	mustRun(t, "import", "csv", csvPath)

	researchPath := filepath.Join(dir, "tabs.csv")
	require.NoError(t, os.WriteFile(researchPath, []byte("title,link,priority\nPaper,https://p.example,90\n"), 0o644))
	mustRun(t, "import", "research", researchPath)

	yamlPath := filepath.Join(dir, "goals.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("goals:\n  - hierarchyId: \"5\"\n    description: Travel\n"), 0o644))
	mustRun(t, "import", "yaml", yamlPath)

	db := openTestDB(t, dbPath)
	paper, err := db.GetGoalByHierarchyID("1.9.1")
	require.NoError(t, err)
	require.NotNil(t, paper)
	assert.True(t, paper.AutoIngest)

	exportPath := filepath.Join(dir, "snapshot.json")
	mustRun(t, "export", exportPath)
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var snap api.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Len(t, snap.Goals, 4)

	mustRun(t, "import", "csv", "--truncate", csvPath)
	goals, err := db.ListGoals()
	require.NoError(t, err)
	assert.Len(t, goals, 2)
}

func TestImportMissingFile(t *testing.T) {
	testEnv(t)

	_, err := run(t, "import", "csv", filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
