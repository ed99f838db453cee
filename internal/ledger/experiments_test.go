package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

func TestExperiments_RequireBoundProject(t *testing.T) {
	l, _ := setupLedger(t)

	_, err := l.Experiments(types.Unbound[types.Project]())
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	_, err = l.Experiments(types.Bind(types.Project{Name: "no uuid"}))
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestExperiments_NamesScopedToProject(t *testing.T) {
	l, _ := setupLedger(t)
	ctx := context.Background()
	lab1 := mustProject(t, l, "lab1")
	lab2 := mustProject(t, l, "lab2")

	run1 := mustExperiment(t, l, lab1, "run1")
	other := mustExperiment(t, l, lab2, "run1")
	assert.NotEqual(t, run1.UUID, other.UUID)
	assert.Equal(t, lab1.UUID, run1.Project)
	assert.Equal(t, lab2.UUID, other.Project)

	reg, err := l.Experiments(types.Bind(lab1))
	require.NoError(t, err)
	_, err = reg.Create(ctx, types.Experiment{Name: "run1"})
	assert.ErrorIs(t, err, types.ErrConflict)
	assert.Contains(t, err.Error(), "lab1")

	_, err = reg.Get(ctx, other.UUID)
	assert.ErrorIs(t, err, types.ErrNotFound, "experiments of other projects are invisible")

	got, err := reg.GetByName(ctx, "run1")
	require.NoError(t, err)
	assert.Equal(t, run1.UUID, got.UUID)
}

func TestExperiments_CreateRejectsEmptyName(t *testing.T) {
	l, _ := setupLedger(t)
	reg, err := l.Experiments(types.Bind(mustProject(t, l, "lab1")))
	require.NoError(t, err)

	_, err = reg.Create(context.Background(), types.Experiment{})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestExperiments_UpdatePersistsLocked(t *testing.T) {
	l, _ := setupLedger(t)
	ctx := context.Background()
	p := mustProject(t, l, "lab1")
	e := mustExperiment(t, l, p, "run1")
	assert.False(t, e.Locked)

	reg, err := l.Experiments(types.Bind(p))
	require.NoError(t, err)

	e.Locked = true
	e.Metadata = types.StringPtr("baseline run")
	_, err = reg.Update(ctx, e)
	require.NoError(t, err)

	got, err := reg.Get(ctx, e.UUID)
	require.NoError(t, err)
	assert.True(t, got.Locked)
	assert.Equal(t, "baseline run", types.Deref(got.Metadata))

	_, err = reg.Update(ctx, types.Experiment{UUID: uuid.New(), Name: "ghost"})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestExperiments_RemoveBlockedByMappings(t *testing.T) {
	l, _ := setupLedger(t)
	ctx := context.Background()
	p := mustProject(t, l, "lab1")
	e := mustExperiment(t, l, p, "run1")
	files := mustFiles(t, l, e)
	mustMap(t, files, "data", types.RoleInput, "data.csv")

	reg, err := l.Experiments(types.Bind(p))
	require.NoError(t, err)

	_, err = reg.Remove(ctx, e.UUID)
	assert.ErrorIs(t, err, types.ErrIntegrityViolation)
	assert.Contains(t, err.Error(), "files still reference it")

	_, err = files.Unmap(ctx, hashOf("data"))
	require.NoError(t, err)

	h, err := reg.Remove(ctx, e.UUID)
	require.NoError(t, err)
	assert.False(t, h.IsBound())
}

func TestExperiments_RemoveBlockedAsCreator(t *testing.T) {
	l, b := setupLedger(t)
	ctx := context.Background()
	p := mustProject(t, l, "lab1")
	e := mustExperiment(t, l, p, "run1")
	files := mustFiles(t, l, e)
	mustMap(t, files, "model", types.RoleOutput, "model.bin")

	_, err := files.Unmap(ctx, hashOf("model"))
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, b, `SELECT COUNT(*) FROM files`))

	reg, err := l.Experiments(types.Bind(p))
	require.NoError(t, err)
	_, err = reg.Remove(ctx, e.UUID)
	assert.ErrorIs(t, err, types.ErrIntegrityViolation, "content records still name the experiment as creator")
}

func TestExperiments_ListAndJournal(t *testing.T) {
	l, _ := setupLedger(t)
	ctx := context.Background()
	p := mustProject(t, l, "lab1")
	reg, err := l.Experiments(types.Bind(p))
	require.NoError(t, err)

	second := time.Unix(200, 0)
	first := time.Unix(100, 0)
	_, err = reg.Create(ctx, types.Experiment{Name: "b", CTime: &second})
	require.NoError(t, err)
	a, err := reg.Create(ctx, types.Experiment{Name: "a", CTime: &first})
	require.NoError(t, err)
	mustExperiment(t, l, mustProject(t, l, "lab2"), "elsewhere")

	list, err := reg.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)

	require.NoError(t, reg.AppendJournal(ctx, a.UUID, "note"))
	text, err := reg.Journal(ctx, a.UUID)
	require.NoError(t, err)
	assert.Equal(t, "note", text)
}
