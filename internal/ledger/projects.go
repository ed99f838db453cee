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

const projectColumns = `uuid, name, metadata, owner, ctime, journal`

// Projects is the project registry. Project names are globally unique.
type Projects struct {
	ledger  *Ledger
	journal journal
}

// Create inserts a project named draft.Name with a new UUID and the
// optional fields of draft, and returns the stored record.
func (p *Projects) Create(ctx context.Context, draft types.Project) (types.Project, error) {
	if draft.Name == "" {
		return types.Project{}, types.InvalidArgument(entityProject, "name must not be empty")
	}
	id, err := newUUID()
	if err != nil {
		return types.Project{}, err
	}

	_, err = p.ledger.db.Exec(ctx,
		`INSERT INTO projects (`+projectColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		id, draft.Name, nullString(draft.Metadata), nullString(draft.Owner), nullTime(draft.CTime),
		nullString(types.StringPtr(draft.Journal)))
	if err != nil {
		return types.Project{}, storeErr(err, entityProject, draft.Name, ruleFor(err, types.ErrConflict, "name already used"))
	}
	p.ledger.log.Debug("project created", zap.Stringer("uuid", id), zap.String("name", draft.Name))
	return p.Get(ctx, id)
}

// Get loads a project by UUID.
func (p *Projects) Get(ctx context.Context, id uuid.UUID) (types.Project, error) {
	row := p.ledger.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE uuid = ?`, id)
	return p.load(row, id.String())
}

// GetByName loads a project by name.
func (p *Projects) GetByName(ctx context.Context, name string) (types.Project, error) {
	row := p.ledger.db.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE name = ?`, name)
	return p.load(row, name)
}

func (p *Projects) load(row scanner, key string) (types.Project, error) {
	prj, err := hydrateProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Project{}, types.NotFound(entityProject, key)
	}
	if err != nil {
		return types.Project{}, storeErr(err, entityProject, key, "")
	}
	return prj, nil
}

// Update persists name, metadata, owner and ctime of prj keyed by its UUID
// and returns the stored record. The journal is written only through the
// journal methods.
func (p *Projects) Update(ctx context.Context, prj types.Project) (types.Project, error) {
	if prj.UUID == uuid.Nil {
		return types.Project{}, types.InvalidArgument(entityProject, "uuid is unset")
	}
	if prj.Name == "" {
		return types.Project{}, types.InvalidArgument(entityProject, "name must not be empty")
	}
	res, err := p.ledger.db.Exec(ctx,
		`UPDATE projects SET name = ?, metadata = ?, owner = ?, ctime = ? WHERE uuid = ?`,
		prj.Name, nullString(prj.Metadata), nullString(prj.Owner), nullTime(prj.CTime), prj.UUID)
	if err != nil {
		return types.Project{}, storeErr(err, entityProject, prj.UUID.String(), ruleFor(err, types.ErrConflict, "name already used"))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return types.Project{}, err
	}
	if n == 0 {
		return types.Project{}, types.NotFound(entityProject, prj.UUID.String())
	}
	return p.Get(ctx, prj.UUID)
}

// Remove deletes a project and returns an unbound handle. The store refuses
// the delete with ErrIntegrityViolation while experiments reference it.
func (p *Projects) Remove(ctx context.Context, id uuid.UUID) (types.Handle[types.Project], error) {
	res, err := p.ledger.db.Exec(ctx, `DELETE FROM projects WHERE uuid = ?`, id)
	if err != nil {
		return types.Handle[types.Project]{}, storeErr(err, entityProject, id.String(), ruleFor(err, types.ErrIntegrityViolation, "experiments still reference it"))
	}
	n, err := rowsAffected(res)
	if err != nil {
		return types.Handle[types.Project]{}, err
	}
	if n == 0 {
		return types.Handle[types.Project]{}, types.NotFound(entityProject, id.String())
	}
	p.ledger.log.Debug("project removed", zap.Stringer("uuid", id))
	return types.Unbound[types.Project](), nil
}

// List returns all projects ordered by creation time, then name.
func (p *Projects) List(ctx context.Context) ([]types.Project, error) {
	rows, err := p.ledger.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects ORDER BY COALESCE(ctime, 0), name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var out []types.Project
	for rows.Next() {
		prj, err := hydrateProject(rows)
		if err != nil {
			return nil, storeErr(err, entityProject, "", "")
		}
		out = append(out, prj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return out, nil
}

// Journal returns the journal text of a project.
func (p *Projects) Journal(ctx context.Context, id uuid.UUID) (string, error) {
	return p.journal.get(ctx, id)
}

// SetJournal replaces the journal text of a project.
func (p *Projects) SetJournal(ctx context.Context, id uuid.UUID, text string) error {
	return p.journal.set(ctx, id, text)
}

// AppendJournal appends text to the journal of a project.
func (p *Projects) AppendJournal(ctx context.Context, id uuid.UUID, text string) error {
	return p.journal.append(ctx, id, text)
}

func hydrateProject(row scanner) (types.Project, error) {
	var (
		prj                      types.Project
		metadata, owner, journal sql.NullString
		ctime                    sql.NullInt64
	)
	if err := row.Scan(&prj.UUID, &prj.Name, &metadata, &owner, &ctime, &journal); err != nil {
		return types.Project{}, err
	}
	prj.Metadata = stringPtr(metadata)
	prj.Owner = stringPtr(owner)
	prj.CTime = timePtr(ctime)
	prj.Journal = journal.String
	return prj, nil
}
