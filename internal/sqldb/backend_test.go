package sqldb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

// setupBackend attaches a SQLite backend in a temp directory.
func setupBackend(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(context.Background(), types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestBackend_Attach(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	b := NewBackend()
	config := types.Config{Backend: types.BackendSQLite, DataDir: tmpDir}

	require.NoError(t, b.Attach(ctx, config))
	assert.True(t, b.Attached())
	assert.Equal(t, SQLite, b.Dialect())
	assert.Equal(t, config, b.Config())

	_, err := os.Stat(filepath.Join(tmpDir, DBFileName))
	require.NoError(t, err, "database file not created")

	assert.ErrorIs(t, b.Attach(ctx, config), types.ErrAlreadyAttached)
	require.NoError(t, b.Detach())
}

func TestBackend_AttachInvalidConfig(t *testing.T) {
	b := NewBackend()
	err := b.Attach(context.Background(), types.Config{Backend: "mysql"})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
	assert.False(t, b.Attached())
}

func TestBackend_Detach(t *testing.T) {
	b := NewBackend()
	require.NoError(t, b.Attach(context.Background(), types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))

	require.NoError(t, b.Detach())
	require.NoError(t, b.Detach(), "detach must be idempotent")

	_, err := b.Exec(context.Background(), "DELETE FROM config")
	assert.ErrorIs(t, err, types.ErrBackendDetached)
	assert.ErrorIs(t, err, types.ErrStorage)

	var n int
	err = b.QueryRow(context.Background(), "SELECT COUNT(*) FROM config").Scan(&n)
	assert.ErrorIs(t, err, types.ErrBackendDetached)
}

func TestBackend_SchemaAndSeed(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	for _, table := range Tables {
		var n int
		err := b.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
		require.NoError(t, err, table)
	}

	rows, err := b.Query(ctx, "SELECT id, role FROM file_roles ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	var got []string
	for rows.Next() {
		var id int64
		var name string
		require.NoError(t, rows.Scan(&id, &name))
		got = append(got, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"input", "output", "note", "program", "nixpath"}, got)
}

func TestBackend_Check(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()
	require.NoError(t, b.Check(ctx))

	_, err := b.Exec(ctx, "DROP TABLE file_map")
	require.NoError(t, err)
	err = b.Check(ctx)
	assert.ErrorIs(t, err, types.ErrStorage)
	assert.Contains(t, err.Error(), "sqlite table file_map")

	require.NoError(t, b.Detach())
	assert.ErrorIs(t, b.Check(ctx), types.ErrBackendDetached)
}

func TestBackend_ReattachKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	config := types.Config{Backend: types.BackendSQLite, DataDir: dir}

	b := NewBackend()
	require.NoError(t, b.Attach(ctx, config))
	_, err := b.Exec(ctx, "INSERT INTO config (name, value_string) VALUES (?, ?)", "owner", "ada")
	require.NoError(t, err)
	require.NoError(t, b.Detach())

	b = NewBackend()
	require.NoError(t, b.Attach(ctx, config))
	defer b.Detach()

	var owner string
	require.NoError(t, b.QueryRow(ctx, "SELECT value_string FROM config WHERE name = ?", "owner").Scan(&owner))
	assert.Equal(t, "ada", owner)

	var roles int
	require.NoError(t, b.QueryRow(ctx, "SELECT COUNT(*) FROM file_roles").Scan(&roles))
	assert.Equal(t, 5, roles, "seeding must not duplicate rows")
}

func TestBackend_ConstraintClassification(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	_, err := b.Exec(ctx, "INSERT INTO projects (uuid, name) VALUES (?, ?)", "p1", "lab1")
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		args  []any
		want  error
	}{
		{
			name:  "duplicate unique name is a conflict",
			query: "INSERT INTO projects (uuid, name) VALUES (?, ?)",
			args:  []any{"p2", "lab1"},
			want:  types.ErrConflict,
		},
		{
			name:  "duplicate primary key is a conflict",
			query: "INSERT INTO projects (uuid, name) VALUES (?, ?)",
			args:  []any{"p1", "lab2"},
			want:  types.ErrConflict,
		},
		{
			name:  "dangling foreign key is an integrity violation",
			query: "INSERT INTO experiments (uuid, project, name) VALUES (?, ?, ?)",
			args:  []any{"e1", "missing", "run1"},
			want:  types.ErrIntegrityViolation,
		},
		{
			name:  "negative size violates check",
			query: "INSERT INTO files (hash, size) VALUES (?, ?)",
			args:  []any{[]byte{1}, -1},
			want:  types.ErrInvalidArgument,
		},
		{
			name:  "missing name violates not null",
			query: "INSERT INTO projects (uuid) VALUES (?)",
			args:  []any{"p3"},
			want:  types.ErrInvalidArgument,
		},
		{
			name:  "syntax error is a storage error",
			query: "INSERT INTO nowhere VALUES (?)",
			args:  []any{1},
			want:  types.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Exec(ctx, tt.query, tt.args...)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBackend_ForeignKeyBlocksDelete(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	_, err := b.Exec(ctx, "INSERT INTO projects (uuid, name) VALUES (?, ?)", "p1", "lab1")
	require.NoError(t, err)
	_, err = b.Exec(ctx, "INSERT INTO experiments (uuid, project, name) VALUES (?, ?, ?)", "e1", "p1", "run1")
	require.NoError(t, err)

	_, err = b.Exec(ctx, "DELETE FROM projects WHERE uuid = ?", "p1")
	assert.ErrorIs(t, err, types.ErrIntegrityViolation)
}

func TestBackend_FileMapRoleCheck(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	_, err := b.Exec(ctx, "INSERT INTO projects (uuid, name) VALUES (?, ?)", "p1", "lab1")
	require.NoError(t, err)
	_, err = b.Exec(ctx, "INSERT INTO experiments (uuid, project, name) VALUES (?, ?, ?)", "e1", "p1", "run1")
	require.NoError(t, err)
	_, err = b.Exec(ctx, "INSERT INTO files (hash, size) VALUES (?, ?)", []byte{1, 2}, 3)
	require.NoError(t, err)

	_, err = b.Exec(ctx, "INSERT INTO file_map (uuid, hash, role) VALUES (?, ?, ?)", "e1", []byte{1, 2}, 5)
	assert.ErrorIs(t, err, types.ErrInvalidArgument, "role 5 is outside the mapping check")

	_, err = b.Exec(ctx, "INSERT INTO file_map (uuid, hash, role) VALUES (?, ?, ?)", "e1", []byte{1, 2}, 1)
	require.NoError(t, err)
}
