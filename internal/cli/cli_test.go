package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/provenance/internal/paths"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// run executes prov with args and returns its standard output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// mustRun is run for commands expected to succeed.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "prov %s", strings.Join(args, " "))
	return out
}

// setupCLI initializes a workspace with project "lab" and returns its top
// directory.
func setupCLI(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(paths.EnvDir, "")
	top := t.TempDir()
	out := mustRun(t, "-d", top, "init", "--owner", "alice", "lab")
	assert.Contains(t, out, "Created project lab (")
	return top
}

func writeFile(t *testing.T, top, name, content string) string {
	t.Helper()
	path := filepath.Join(top, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out := mustRun(t, "version")
	assert.Contains(t, out, "prov v"+Version)
	assert.Contains(t, out, modulePath)

	out = mustRun(t, "--version")
	assert.Equal(t, "prov "+Version+"\n", out)
}

func TestOutsideWorkspace(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := run(t, "-d", t.TempDir(), "project", "list")
	assert.ErrorIs(t, err, paths.ErrNoWorkspace)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestInitTwice(t *testing.T) {
	top := setupCLI(t)
	_, err := run(t, "-d", top, "init", "lab")
	assert.ErrorIs(t, err, types.ErrConflict)
}

func TestProjectCommands(t *testing.T) {
	top := setupCLI(t)

	out := mustRun(t, "-d", top, "project", "create", "-m", "field work", "field")
	assert.Contains(t, out, "Created new project field (")

	out = mustRun(t, "-d", top, "p", "l")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "lab")
	lines := strings.Split(out, "\n")
	var activeLine string
	for _, l := range lines {
		if strings.HasPrefix(l, "*") {
			activeLine = l
		}
	}
	assert.Contains(t, activeLine, "field")

	out = mustRun(t, "-d", top, "project", "set", "lab")
	assert.Contains(t, out, "Changed active project to lab")

	out = mustRun(t, "-d", top, "-p", "field", "project", "info")
	assert.Contains(t, out, "name:  field")
	assert.Contains(t, out, "owner: alice")
	assert.Contains(t, out, "abstract:\n  field work")

	mustRun(t, "-d", top, "project", "abstract", "-m", "soil samples")
	out = mustRun(t, "-d", top, "--json", "project", "info")
	var p types.Project
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "lab", p.Name)
	assert.Equal(t, "soil samples", types.Deref(p.Metadata))

	mustRun(t, "-d", top, "project", "edit", "-m", "# Lab journal")
	mustRun(t, "-d", top, "project", "append", "-m", "sampled plot 4")
	out = mustRun(t, "-d", top, "project", "show")
	assert.True(t, strings.HasPrefix(out, "project: lab\n# Lab journal\n### "))
	assert.Contains(t, out, "\n\nsampled plot 4\n")

	out = mustRun(t, "-d", top, "project", "remove", "field")
	assert.Contains(t, out, "Removed project field")
}

func TestJournalEditor(t *testing.T) {
	top := setupCLI(t)
	var gotInitial string
	editFunc = func(dir, initial string) (string, error) {
		assert.Equal(t, top, dir)
		gotInitial = initial
		return "typed in editor", nil
	}
	t.Cleanup(func() { editFunc = editInEditor })

	mustRun(t, "-d", top, "project", "abstract", "-m", "old")
	mustRun(t, "-d", top, "project", "abstract")
	assert.Equal(t, "old", gotInitial)

	mustRun(t, "-d", top, "experiment", "create", "run1")
	mustRun(t, "-d", top, "experiment", "append")
	out := mustRun(t, "-d", top, "experiment", "show")
	assert.Contains(t, out, "typed in editor")

	editFunc = func(string, string) (string, error) {
		return "", types.InvalidArgument("editor", "$EDITOR is not set")
	}
	_, err := run(t, "-d", top, "experiment", "edit")
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestExperimentCommands(t *testing.T) {
	top := setupCLI(t)

	out := mustRun(t, "-d", top, "experiment", "create", "-m", "baseline", "run1")
	assert.Contains(t, out, "Created new experiment run1 (")
	mustRun(t, "-d", top, "e", "c", "run2")

	out = mustRun(t, "-d", top, "experiment", "list")
	assert.True(t, strings.HasPrefix(out, "project: lab ("))
	assert.Contains(t, out, "run1")

	out = mustRun(t, "-d", top, "experiment", "set", "run1")
	assert.Contains(t, out, "Changed active experiment to run1")

	out = mustRun(t, "-d", top, "experiment", "info")
	assert.Contains(t, out, "name:    run1")
	assert.Contains(t, out, "abstract:\n  baseline")

	out = mustRun(t, "-d", top, "experiment", "lock")
	assert.Contains(t, out, "locked: true")
	out = mustRun(t, "-d", top, "-e", "run2", "experiment", "info")
	assert.Contains(t, out, "name:    run2")
	assert.NotContains(t, out, "locked:")

	_, err := run(t, "-d", top, "-e", "nope", "experiment", "info")
	assert.ErrorIs(t, err, types.ErrNotFound)

	out = mustRun(t, "-d", top, "experiment", "remove", "run2")
	assert.Contains(t, out, "Removed experiment run2")
}

func TestFileWorkflow(t *testing.T) {
	top := setupCLI(t)
	textfile := filepath.Join(t.TempDir(), "prov.prom")
	t.Setenv("PROV_METRICS_TEXTFILE", textfile)

	mustRun(t, "-d", top, "experiment", "create", "run1")
	raw := writeFile(t, top, "raw.csv", "a,b\n1,2\n")
	model := writeFile(t, top, "model.bin", "weights")
	out := mustRun(t, "-d", top, "file", "add", "input", raw)
	assert.Contains(t, out, "Added input "+raw+" (")
	mustRun(t, "-d", top, "f", "a", "output", model)

	out = mustRun(t, "-d", top, "file", "list")
	assert.Contains(t, out, "raw.csv")
	assert.Contains(t, out, "Total: 2 file(s)")

	out = mustRun(t, "-d", top, "--json", "file", "info", "raw.csv")
	var rec types.FileRecord
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, types.RoleInput, rec.Role)
	assert.Equal(t, int64(8), rec.Size)

	mustRun(t, "-d", top, "experiment", "create", "run2")
	mustRun(t, "-d", top, "file", "add", "input", model)
	mustRun(t, "-d", top, "file", "add", "output", writeFile(t, top, "report.txt", "good"))

	out = mustRun(t, "-d", top, "file", "track", "report.txt")
	assert.Equal(t, []string{
		"report.txt output  <- lab::run2",
		" model.bin input  <- lab::run1",
		"  raw.csv input  <- ",
	}, strings.Split(strings.TrimSuffix(out, "\n"), "\n"))

	out = mustRun(t, "-d", top, "file", "info", "model.bin")
	assert.Contains(t, out, "creator:  lab::run1")

	_, err := run(t, "-d", top, "-e", "run1", "file", "unlink", "model.bin")
	assert.ErrorIs(t, err, types.ErrIntegrityViolation)
	assert.Equal(t, exitUserError, exitCode(err))

	_, err = run(t, "-d", top, "file", "add", "none", raw)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	out = mustRun(t, "-d", top, "verify")
	assert.Contains(t, out, "Store and ledger are consistent.")

	require.NoError(t, os.Remove(raw))
	out, err = run(t, "-d", top, "verify")
	assert.True(t, errors.Is(err, errInconsistent))
	assert.Contains(t, out, "raw.csv: does not exist")

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `prov_operations_total{operation="verify",outcome="ok"}`)
}

func TestFileRoleAndUnlink(t *testing.T) {
	top := setupCLI(t)
	mustRun(t, "-d", top, "experiment", "create", "run1")
	notes := writeFile(t, top, "notes.md", "todo")
	mustRun(t, "-d", top, "file", "add", "input", notes)

	out := mustRun(t, "-d", top, "file", "role", "notes.md", "note")
	assert.Contains(t, out, "Changed notes.md to note")
	mustRun(t, "-d", top, "file", "abstract", "-m", "meeting", "notes.md")

	out = mustRun(t, "-d", top, "file", "list", "--role", "note")
	assert.Contains(t, out, "notes.md")
	out = mustRun(t, "-d", top, "file", "list", "--role", "input")
	assert.Contains(t, out, "No files found.")

	out = mustRun(t, "-d", top, "file", "unlink", "notes.md")
	assert.Contains(t, out, "Removed note notes.md (")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, exitSuccess},
		{types.NotFound("file", "x"), exitUserError},
		{types.Integrity("file", "x", "used"), exitUserError},
		{errors.New("unknown flag"), exitUserError},
		{types.ErrStorage, exitSysError},
		{types.ErrBackendDetached, exitSysError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.err), "%v", tt.err)
	}
}
