package sqldb

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

func TestDialect_Rebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		in      string
		want    string
	}{
		{"sqlite untouched", SQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{"postgres numbered", Postgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{"postgres skips literals", Postgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{"postgres without params", Postgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dialect.Rebind(tt.in))
		})
	}
}

func TestDialect_DDLFor(t *testing.T) {
	pg := ddlFor(Postgres, createFiles)
	assert.Contains(t, pg, "hash BYTEA PRIMARY KEY")
	assert.Contains(t, pg, "size BIGINT NOT NULL")
	assert.Contains(t, pg, "ctime BIGINT")
	assert.NotContains(t, pg, "BLOB")

	assert.Equal(t, createFiles, ddlFor(SQLite, createFiles))
}

func TestClassify_Postgres(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{pgUniqueViolation, types.ErrConflict},
		{pgForeignKeyViolation, types.ErrIntegrityViolation},
		{pgCheckViolation, types.ErrInvalidArgument},
		{pgNotNullViolation, types.ErrInvalidArgument},
		{"40001", types.ErrStorage},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			cause := &pgconn.PgError{Code: tt.code}
			err := Classify(cause)
			assert.ErrorIs(t, err, tt.want)
			var perr *pgconn.PgError
			assert.True(t, errors.As(err, &perr), "driver error must stay in the chain")
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	assert.NoError(t, Classify(nil))

	already := types.NotFound("project", "lab1")
	assert.Same(t, already, Classify(already))

	err := Classify(errors.New("boom"))
	assert.ErrorIs(t, err, types.ErrStorage)
}

func TestConstraintKindFromMessage(t *testing.T) {
	assert.Equal(t, types.ErrConflict, constraintKindFromMessage("UNIQUE constraint failed: projects.name"))
	assert.Equal(t, types.ErrIntegrityViolation, constraintKindFromMessage("FOREIGN KEY constraint failed"))
	assert.Equal(t, types.ErrInvalidArgument, constraintKindFromMessage("CHECK constraint failed: size >= 0"))
	assert.Equal(t, types.ErrStorage, constraintKindFromMessage("something else"))
}
