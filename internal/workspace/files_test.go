package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

func TestAddFile_MovesIntoStore(t *testing.T) {
	ctx := context.Background()
	w := setupWorkspace(t)
	e, err := w.CreateExperiment(ctx, "", "run1", "")
	require.NoError(t, err)
	path := writeFile(t, w, "data/a.csv", "alpha")

	rec, err := w.AddFile(ctx, Selection{}, path, types.RoleInput)
	require.NoError(t, err)
	assert.Equal(t, e.UUID, rec.Experiment)
	assert.Equal(t, filepath.Join("data", "a.csv"), types.Deref(rec.Path))
	assert.Equal(t, "a.csv", types.Deref(rec.Name))
	assert.Equal(t, "alice", types.Deref(rec.Owner))
	assert.Equal(t, int64(5), rec.Size)
	assert.Nil(t, rec.Creator, "inputs have no creator")

	assert.True(t, isSymlink(t, path))
	has, err := w.Store().Has(rec.Hash)
	require.NoError(t, err)
	assert.True(t, has)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(data))
}

func TestAddFile_Rejections(t *testing.T) {
	ctx := context.Background()
	w := setupWorkspace(t)
	_, err := w.CreateExperiment(ctx, "", "run1", "")
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "x.csv")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	tests := []struct {
		name string
		path string
		role types.Role
	}{
		{"role none", writeFile(t, w, "n.csv", "n"), types.RoleNone},
		{"outside workspace", outside, types.RoleInput},
		{"missing file", filepath.Join(w.Top(), "missing.csv"), types.RoleInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.AddFile(ctx, Selection{}, tt.path, tt.role)
			assert.ErrorIs(t, err, types.ErrInvalidArgument)
		})
	}
	assert.False(t, isSymlink(t, outside))
}

func TestAddFile_RestoresOnRefusedMapping(t *testing.T) {
	ctx := context.Background()
	w := setupWorkspace(t)
	_, err := w.CreateExperiment(ctx, "", "run1", "")
	require.NoError(t, err)

	_, err = w.AddFile(ctx, Selection{}, writeFile(t, w, "a.csv", "same"), types.RoleInput)
	require.NoError(t, err)

	dup := writeFile(t, w, "b.csv", "same")
	_, err = w.AddFile(ctx, Selection{}, dup, types.RoleInput)
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.False(t, isSymlink(t, dup), "refused file is put back")
	data, err := os.ReadFile(dup)
	require.NoError(t, err)
	assert.Equal(t, "same", string(data))

	empty := writeFile(t, w, "empty.csv", "")
	_, err = w.AddFile(ctx, Selection{}, empty, types.RoleInput)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	assert.False(t, isSymlink(t, empty))
}

func TestAddFile_RegistersExistingLink(t *testing.T) {
	ctx := context.Background()
	w := setupWorkspace(t)
	run1, err := w.CreateExperiment(ctx, "", "run1", "")
	require.NoError(t, err)
	path := writeFile(t, w, "model.bin", "weights")
	out, err := w.AddFile(ctx, Selection{}, path, types.RoleOutput)
	require.NoError(t, err)
	require.NotNil(t, out.Creator)
	assert.Equal(t, run1.UUID, *out.Creator)

	_, err = w.CreateExperiment(ctx, "", "run2", "")
	require.NoError(t, err)
	in, err := w.AddFile(ctx, Selection{}, path, types.RoleInput)
	require.NoError(t, err)
	assert.Equal(t, out.Hash, in.Hash)
	assert.Equal(t, out.Size, in.Size)
	assert.Equal(t, run1.UUID, *in.Creator)

	creator, err := w.Creator(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "lab::run1", creator)

	_, err = w.UnlinkFile(ctx, Selection{Experiment: "run1"}, "model.bin")
	assert.ErrorIs(t, err, types.ErrIntegrityViolation, "output still used by run2")
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()
	w := setupWorkspace(t)
	_, err := w.CreateExperiment(ctx, "", "run1", "")
	require.NoError(t, err)
	rec, err := w.AddFile(ctx, Selection{}, writeFile(t, w, "data/a.csv", "alpha"), types.RoleInput)
	require.NoError(t, err)

	byHash, err := w.LoadFile(ctx, Selection{}, rec.Hash.String())
	require.NoError(t, err)
	assert.Equal(t, rec.Hash, byHash.Hash)

	byPath, err := w.LoadFile(ctx, Selection{}, filepath.Join(w.Top(), "data", "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, rec.Hash, byPath.Hash)

	byRel, err := w.LoadFile(ctx, Selection{}, filepath.Join("data", "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, rec.Hash, byRel.Hash)

	_, err = w.LoadFile(ctx, Selection{}, "nope.csv")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUnlinkFile(t *testing.T) {
	ctx := context.Background()
	w := setupWorkspace(t)
	_, err := w.CreateExperiment(ctx, "", "run1", "")
	require.NoError(t, err)
	in := writeFile(t, w, "raw.csv", "raw")
	out := writeFile(t, w, "model.bin", "weights")
	_, err = w.AddFile(ctx, Selection{}, in, types.RoleInput)
	require.NoError(t, err)
	_, err = w.AddFile(ctx, Selection{}, out, types.RoleOutput)
	require.NoError(t, err)

	_, err = w.UnlinkFile(ctx, Selection{}, "model.bin")
	require.NoError(t, err)
	assert.False(t, isSymlink(t, out), "created output is restored")
	require.NoError(t, os.WriteFile(out, []byte("retrained"), 0o644), "restored copy is writable")

	_, err = w.UnlinkFile(ctx, Selection{}, "raw.csv")
	require.NoError(t, err)
	assert.True(t, isSymlink(t, in), "inputs stay linked")

	_, err = w.UnlinkFile(ctx, Selection{}, "raw.csv")
	assert.ErrorIs(t, err, types.ErrNotFound)

	list, err := w.ListFiles(ctx, Selection{}, types.RoleNone)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSetFileRoleAndAbstract(t *testing.T) {
	ctx := context.Background()
	w := setupWorkspace(t)
	_, err := w.CreateExperiment(ctx, "", "run1", "")
	require.NoError(t, err)
	_, err = w.AddFile(ctx, Selection{}, writeFile(t, w, "notes.md", "todo"), types.RoleInput)
	require.NoError(t, err)

	rec, err := w.SetFileRole(ctx, Selection{}, "notes.md", types.RoleNote)
	require.NoError(t, err)
	assert.Equal(t, types.RoleNote, rec.Role)

	rec, err = w.SetFileAbstract(ctx, Selection{}, "notes.md", "meeting notes")
	require.NoError(t, err)
	assert.Equal(t, "meeting notes", types.Deref(rec.Metadata))

	notes, err := w.ListFiles(ctx, Selection{}, types.RoleNote)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
	inputs, err := w.ListFiles(ctx, Selection{}, types.RoleInput)
	require.NoError(t, err)
	assert.Empty(t, inputs)
}

func TestTrackFileAndAssets(t *testing.T) {
	ctx := context.Background()
	w := setupWorkspace(t)
	_, err := w.CreateExperiment(ctx, "", "run1", "")
	require.NoError(t, err)
	_, err = w.AddFile(ctx, Selection{}, writeFile(t, w, "raw.csv", "raw"), types.RoleInput)
	require.NoError(t, err)
	model := writeFile(t, w, "model.bin", "weights")
	_, err = w.AddFile(ctx, Selection{}, model, types.RoleOutput)
	require.NoError(t, err)

	_, err = w.CreateExperiment(ctx, "", "run2", "")
	require.NoError(t, err)
	_, err = w.AddFile(ctx, Selection{}, model, types.RoleInput)
	require.NoError(t, err)
	_, err = w.AddFile(ctx, Selection{}, writeFile(t, w, "report.txt", "good"), types.RoleOutput)
	require.NoError(t, err)

	tree, err := w.TrackFile(ctx, Selection{}, "report.txt", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, tree.Count())
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "model.bin", types.Deref(tree.Children[0].Node.Path))
	require.Len(t, tree.Children[0].Children, 1)
	assert.Equal(t, "raw.csv", types.Deref(tree.Children[0].Children[0].Node.Path))

	assets, err := w.ProjectAssets(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "lab", assets.Project.Name)
	require.Len(t, assets.Experiments, 2)
	total := 0
	for _, ea := range assets.Experiments {
		total += len(ea.Files)
	}
	assert.Equal(t, 4, total)
}
