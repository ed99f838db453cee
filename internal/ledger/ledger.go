// Package ledger is the provenance core: the project and experiment
// registries, the file ledger with its dependency guard, and the lineage
// walk. Every call goes straight to the relational store; values returned
// from loads are snapshots.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/internal/sqldb"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// Executor runs parameterized statements against the relational store.
// *sqldb.Backend implements it.
type Executor interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRow(ctx context.Context, query string, args ...any) *sqldb.Row
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ledger hands out registries and file ledgers that share one executor.
type Ledger struct {
	db  Executor
	log *zap.Logger
	now func() time.Time
}

// New returns a Ledger over db. A nil logger is replaced by a no-op logger.
func New(db Executor, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{db: db, log: log, now: time.Now}
}

// Projects returns the project registry.
func (l *Ledger) Projects() *Projects {
	return &Projects{ledger: l, journal: journal{db: l.db, table: "projects", entity: entityProject}}
}

// Experiments returns the experiment registry of a project. It fails with
// ErrInvalidArgument, before touching the store, when the handle is unbound.
func (l *Ledger) Experiments(project types.Handle[types.Project]) (*Experiments, error) {
	p, ok := project.Get()
	if !ok || p.UUID == uuid.Nil {
		return nil, types.InvalidArgument(entityExperiment, "project handle is unbound")
	}
	return &Experiments{
		ledger:  l,
		project: p,
		journal: journal{db: l.db, table: "experiments", entity: entityExperiment, scope: "project", scopeID: p.UUID},
	}, nil
}

// Files returns the file ledger bound to an experiment. It fails with
// ErrInvalidArgument when the handle is unbound.
func (l *Ledger) Files(experiment types.Handle[types.Experiment]) (*Files, error) {
	e, ok := experiment.Get()
	if !ok || e.UUID == uuid.Nil {
		return nil, types.InvalidArgument(entityFile, "experiment handle is unbound")
	}
	return &Files{ledger: l, experiment: e}, nil
}

const (
	entityProject    = "project"
	entityExperiment = "experiment"
	entityFile       = "file"
)

// newUUID generates a UUID v7 for new records.
func newUUID() (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generating UUID v7: %w", err)
	}
	return id, nil
}

// scanner is satisfied by *sqldb.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// storeErr attaches the record identity to a classified store error.
func storeErr(err error, entity, key, rule string) error {
	var te *types.Error
	if errors.As(err, &te) && te.Entity == "" {
		if rule == "" {
			rule = defaultRule(te.Kind)
		}
		return &types.Error{Kind: te.Kind, Entity: entity, Key: key, Rule: rule, Err: te.Err}
	}
	return fmt.Errorf("%s %s: %w", entity, key, err)
}

// ruleFor returns rule when err is of the given kind and "" otherwise, so
// other failures keep their default rule.
func ruleFor(err, kind error, rule string) string {
	if errors.Is(err, kind) {
		return rule
	}
	return ""
}

func defaultRule(kind error) string {
	switch kind {
	case types.ErrConflict:
		return "already exists"
	case types.ErrIntegrityViolation:
		return "rejected by a referential constraint"
	case types.ErrInvalidArgument:
		return "rejected by a column constraint"
	}
	return ""
}

// rowsAffected returns the number of rows a statement changed.
func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %w", types.ErrStorage, err)
	}
	return n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0)
	return &t
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func uuidPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}
