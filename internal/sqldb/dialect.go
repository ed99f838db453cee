package sqldb

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

// Dialect describes the differences between the supported databases that
// the ledger statements care about.
type Dialect struct {
	Name   string
	driver string

	// numbered placeholders ($1, $2, ...) instead of '?'
	numbered bool
}

var (
	SQLite   = Dialect{Name: types.BackendSQLite, driver: "sqlite"}
	Postgres = Dialect{Name: types.BackendPostgres, driver: "pgx", numbered: true}
)

var errDetached = fmt.Errorf("%w: %w", types.ErrStorage, types.ErrBackendDetached)

func dialectFor(backend string) Dialect {
	if backend == types.BackendPostgres {
		return Postgres
	}
	return SQLite
}

// Rebind rewrites '?' placeholders for the dialect. Question marks inside
// single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if !d.numbered || !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// PostgreSQL SQLSTATE codes for constraint violations.
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// Classify maps a driver error onto the error taxonomy: unique and primary
// key violations are ErrConflict, foreign key violations are
// ErrIntegrityViolation, check and not-null violations are
// ErrInvalidArgument, and everything else is ErrStorage. The driver error
// stays in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if types.Kind(err) != nil {
		return err
	}
	return &types.Error{Kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		switch serr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return types.ErrConflict
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return types.ErrIntegrityViolation
		case sqlite3.SQLITE_CONSTRAINT_CHECK, sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return types.ErrInvalidArgument
		}
		if serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return constraintKindFromMessage(serr.Error())
		}
		return types.ErrStorage
	}

	var perr *pgconn.PgError
	if errors.As(err, &perr) {
		switch perr.Code {
		case pgUniqueViolation:
			return types.ErrConflict
		case pgForeignKeyViolation:
			return types.ErrIntegrityViolation
		case pgCheckViolation, pgNotNullViolation:
			return types.ErrInvalidArgument
		}
	}
	return types.ErrStorage
}

// constraintKindFromMessage covers connections without extended result
// codes, where only the primary SQLITE_CONSTRAINT code is reported.
func constraintKindFromMessage(msg string) error {
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return types.ErrConflict
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return types.ErrIntegrityViolation
	case strings.Contains(msg, "CHECK constraint failed"), strings.Contains(msg, "NOT NULL constraint failed"):
		return types.ErrInvalidArgument
	}
	return types.ErrStorage
}
