package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

const experimentColumns = `uuid, project, name, metadata, owner, ctime, journal, locked`

// Experiments is the experiment registry of one project. Names are unique
// within the project, and lookups never return experiments of other
// projects.
type Experiments struct {
	ledger  *Ledger
	project types.Project
	journal journal
}

// Project returns the project the registry is bound to.
func (e *Experiments) Project() types.Project {
	return e.project
}

// Create inserts an experiment named draft.Name under the bound project and
// returns the stored record.
func (e *Experiments) Create(ctx context.Context, draft types.Experiment) (types.Experiment, error) {
	if draft.Name == "" {
		return types.Experiment{}, types.InvalidArgument(entityExperiment, "name must not be empty")
	}
	id, err := newUUID()
	if err != nil {
		return types.Experiment{}, err
	}

	_, err = e.ledger.db.Exec(ctx,
		`INSERT INTO experiments (`+experimentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.project.UUID, draft.Name, nullString(draft.Metadata), nullString(draft.Owner),
		nullTime(draft.CTime), nullString(types.StringPtr(draft.Journal)), boolInt(draft.Locked))
	if err != nil {
		return types.Experiment{}, storeErr(err, entityExperiment, draft.Name,
			ruleFor(err, types.ErrConflict, fmt.Sprintf("name already used in project %s", e.project.Name)))
	}
	e.ledger.log.Debug("experiment created",
		zap.Stringer("uuid", id), zap.String("name", draft.Name), zap.Stringer("project", e.project.UUID))
	return e.Get(ctx, id)
}

// Get loads an experiment of the bound project by UUID.
func (e *Experiments) Get(ctx context.Context, id uuid.UUID) (types.Experiment, error) {
	row := e.ledger.db.QueryRow(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE uuid = ? AND project = ?`, id, e.project.UUID)
	return e.load(row, id.String())
}

// GetByName loads an experiment of the bound project by name.
func (e *Experiments) GetByName(ctx context.Context, name string) (types.Experiment, error) {
	row := e.ledger.db.QueryRow(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE name = ? AND project = ?`, name, e.project.UUID)
	return e.load(row, name)
}

func (e *Experiments) load(row scanner, key string) (types.Experiment, error) {
	exp, err := hydrateExperiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Experiment{}, types.NotFound(entityExperiment, key)
	}
	if err != nil {
		return types.Experiment{}, storeErr(err, entityExperiment, key, "")
	}
	return exp, nil
}

// Update persists name, metadata, owner, ctime and locked of exp keyed by
// its UUID and returns the stored record.
func (e *Experiments) Update(ctx context.Context, exp types.Experiment) (types.Experiment, error) {
	if exp.UUID == uuid.Nil {
		return types.Experiment{}, types.InvalidArgument(entityExperiment, "uuid is unset")
	}
	if exp.Name == "" {
		return types.Experiment{}, types.InvalidArgument(entityExperiment, "name must not be empty")
	}
	res, err := e.ledger.db.Exec(ctx,
		`UPDATE experiments SET name = ?, metadata = ?, owner = ?, ctime = ?, locked = ?
		 WHERE uuid = ? AND project = ?`,
		exp.Name, nullString(exp.Metadata), nullString(exp.Owner), nullTime(exp.CTime), boolInt(exp.Locked),
		exp.UUID, e.project.UUID)
	if err != nil {
		return types.Experiment{}, storeErr(err, entityExperiment, exp.UUID.String(),
			ruleFor(err, types.ErrConflict, fmt.Sprintf("name already used in project %s", e.project.Name)))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return types.Experiment{}, err
	}
	if n == 0 {
		return types.Experiment{}, types.NotFound(entityExperiment, exp.UUID.String())
	}
	return e.Get(ctx, exp.UUID)
}

// Remove deletes an experiment and returns an unbound handle. The store
// refuses the delete with ErrIntegrityViolation while file mappings or
// content records reference it.
func (e *Experiments) Remove(ctx context.Context, id uuid.UUID) (types.Handle[types.Experiment], error) {
	res, err := e.ledger.db.Exec(ctx, `DELETE FROM experiments WHERE uuid = ? AND project = ?`, id, e.project.UUID)
	if err != nil {
		return types.Handle[types.Experiment]{}, storeErr(err, entityExperiment, id.String(), ruleFor(err, types.ErrIntegrityViolation, "files still reference it"))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return types.Handle[types.Experiment]{}, err
	}
	if n == 0 {
		return types.Handle[types.Experiment]{}, types.NotFound(entityExperiment, id.String())
	}
	e.ledger.log.Debug("experiment removed", zap.Stringer("uuid", id))
	return types.Unbound[types.Experiment](), nil
}

// List returns the experiments of the bound project ordered by creation
// time, then name.
func (e *Experiments) List(ctx context.Context) ([]types.Experiment, error) {
	rows, err := e.ledger.db.Query(ctx,
		`SELECT `+experimentColumns+` FROM experiments WHERE project = ? ORDER BY COALESCE(ctime, 0), name`,
		e.project.UUID)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	defer rows.Close()

	var out []types.Experiment
	for rows.Next() {
		exp, err := hydrateExperiment(rows)
		if err != nil {
			return nil, storeErr(err, entityExperiment, "", "")
		}
		out = append(out, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}
	return out, nil
}

// Journal returns the journal text of an experiment.
func (e *Experiments) Journal(ctx context.Context, id uuid.UUID) (string, error) {
	return e.journal.get(ctx, id)
}

// SetJournal replaces the journal text of an experiment.
func (e *Experiments) SetJournal(ctx context.Context, id uuid.UUID, text string) error {
	return e.journal.set(ctx, id, text)
}

// AppendJournal appends text to the journal of an experiment.
func (e *Experiments) AppendJournal(ctx context.Context, id uuid.UUID, text string) error {
	return e.journal.append(ctx, id, text)
}

func hydrateExperiment(row scanner) (types.Experiment, error) {
	var (
		exp                      types.Experiment
		metadata, owner, journal sql.NullString
		ctime                    sql.NullInt64
		locked                   int64
	)
	if err := row.Scan(&exp.UUID, &exp.Project, &exp.Name, &metadata, &owner, &ctime, &journal, &locked); err != nil {
		return types.Experiment{}, err
	}
	exp.Metadata = stringPtr(metadata)
	exp.Owner = stringPtr(owner)
	exp.CTime = timePtr(ctime)
	exp.Journal = journal.String
	exp.Locked = locked != 0
	return exp, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
