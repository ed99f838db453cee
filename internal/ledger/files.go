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

const (
	fileColumns = `m.uuid, f.hash, f.size, f.name, f.creator, f.owner, f.ctime, f.metadata, m.role, m.path`
	fileFrom    = ` FROM file_map m JOIN files f ON f.hash = m.hash`
	fileOrder   = ` ORDER BY m.role, m.path, m.hash`
)

// Files is the file ledger bound to one experiment. Content records are
// shared by every experiment mapping the same hash; mappings belong to the
// bound experiment.
type Files struct {
	ledger     *Ledger
	experiment types.Experiment
}

// Experiment returns the experiment the ledger is bound to.
func (f *Files) Experiment() types.Experiment {
	return f.experiment
}

// Exists reports whether a content record for hash exists, mapped or not.
func (f *Files) Exists(ctx context.Context, hash types.Hash) (bool, error) {
	var n int64
	if err := f.ledger.db.QueryRow(ctx, `SELECT COUNT(*) FROM files WHERE hash = ?`, hash.Bytes()).Scan(&n); err != nil {
		return false, storeErr(err, entityFile, hash.String(), "")
	}
	return n > 0, nil
}

// IsMapped reports whether hash is mapped into the bound experiment.
func (f *Files) IsMapped(ctx context.Context, hash types.Hash) (bool, error) {
	var n int64
	err := f.ledger.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM file_map WHERE uuid = ? AND hash = ?`, f.experiment.UUID, hash.Bytes()).Scan(&n)
	if err != nil {
		return false, storeErr(err, entityFile, hash.String(), "")
	}
	return n > 0, nil
}

// Create registers rec in the bound experiment. rec needs a hash, a
// positive size and a mappable role.
//
// When no content record exists for the hash one is inserted from rec; its
// creator is the bound experiment when the role is output and empty
// otherwise, and its ctime defaults to now. The mapping is inserted next and
// fails with ErrConflict when the hash is already mapped here. The bool
// result reports whether the content record was new.
//
// The two inserts are independent statements. If the mapping insert fails
// after a new content record was written, that record stays behind without
// a mapping.
func (f *Files) Create(ctx context.Context, rec types.FileRecord) (types.FileRecord, bool, error) {
	if rec.Hash.IsZero() {
		return types.FileRecord{}, false, types.InvalidArgument(entityFile, "hash is unset")
	}
	if rec.Size <= 0 {
		return types.FileRecord{}, false, types.InvalidArgument(entityFile, "size must be positive")
	}
	role, err := rec.Role.Persisted()
	if err != nil {
		return types.FileRecord{}, false, err
	}

	exists, err := f.Exists(ctx, rec.Hash)
	if err != nil {
		return types.FileRecord{}, false, err
	}
	if !exists {
		var creator *uuid.UUID
		if rec.Role == types.RoleOutput {
			creator = &f.experiment.UUID
		}
		ctime := rec.CTime
		if ctime == nil {
			now := f.ledger.now()
			ctime = &now
		}
		_, err := f.ledger.db.Exec(ctx,
			`INSERT INTO files (hash, size, name, creator, owner, ctime, metadata) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.Hash.Bytes(), rec.Size, nullString(rec.Name), nullUUID(creator), nullString(rec.Owner),
			nullTime(ctime), nullString(rec.Metadata))
		if err != nil {
			return types.FileRecord{}, false, storeErr(err, entityFile, rec.Hash.String(), "")
		}
	}

	_, err = f.ledger.db.Exec(ctx,
		`INSERT INTO file_map (uuid, hash, role, path) VALUES (?, ?, ?, ?)`,
		f.experiment.UUID, rec.Hash.Bytes(), role, nullString(rec.Path))
	if err != nil {
		return types.FileRecord{}, false, storeErr(err, entityFile, rec.Hash.String(),
			ruleFor(err, types.ErrConflict, fmt.Sprintf("already mapped into experiment %s", f.experiment.Name)))
	}

	f.ledger.log.Debug("file mapped",
		zap.Stringer("experiment", f.experiment.UUID),
		zap.Stringer("hash", rec.Hash),
		zap.Stringer("role", rec.Role),
		zap.Bool("new_content", !exists))

	stored, err := f.Load(ctx, rec.Hash)
	if err != nil {
		return types.FileRecord{}, false, err
	}
	return stored, !exists, nil
}

// Load returns the mapping of hash in the bound experiment.
func (f *Files) Load(ctx context.Context, hash types.Hash) (types.FileRecord, error) {
	row := f.ledger.db.QueryRow(ctx,
		`SELECT `+fileColumns+fileFrom+` WHERE m.uuid = ? AND m.hash = ?`, f.experiment.UUID, hash.Bytes())
	return f.load(row, hash.String())
}

// LoadByPath returns the mapping at path in the bound experiment.
func (f *Files) LoadByPath(ctx context.Context, path string) (types.FileRecord, error) {
	row := f.ledger.db.QueryRow(ctx,
		`SELECT `+fileColumns+fileFrom+` WHERE m.uuid = ? AND m.path = ?`, f.experiment.UUID, path)
	return f.load(row, path)
}

func (f *Files) load(row scanner, key string) (types.FileRecord, error) {
	rec, err := hydrateFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.FileRecord{}, &types.Error{
			Kind:   types.ErrNotFound,
			Entity: entityFile,
			Key:    key,
			Rule:   fmt.Sprintf("not mapped into experiment %s", f.experiment.Name),
		}
	}
	if err != nil {
		return types.FileRecord{}, storeErr(err, entityFile, key, "")
	}
	return rec, nil
}

// OutputIsUsed reports whether any input mapping anywhere references a hash
// that the bound experiment maps as output. This guard applies to the whole
// experiment, not to a single file.
func (f *Files) OutputIsUsed(ctx context.Context) (bool, error) {
	var n int64
	err := f.ledger.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM file_map
		 WHERE role = ? AND hash IN (SELECT hash FROM file_map WHERE uuid = ? AND role = ?)`,
		int64(types.RoleInput), f.experiment.UUID, int64(types.RoleOutput)).Scan(&n)
	if err != nil {
		return false, storeErr(err, entityExperiment, f.experiment.UUID.String(), "")
	}
	return n > 0, nil
}

// guard fails with ErrIntegrityViolation when OutputIsUsed.
func (f *Files) guard(ctx context.Context, hash types.Hash) error {
	used, err := f.OutputIsUsed(ctx)
	if err != nil {
		return err
	}
	if used {
		return types.Integrity(entityFile, hash.String(),
			fmt.Sprintf("output of experiment %s is used as input elsewhere", f.experiment.Name))
	}
	return nil
}

// Unmap detaches hash from the bound experiment and returns an unbound
// handle. The content record and other experiments' mappings are kept.
func (f *Files) Unmap(ctx context.Context, hash types.Hash) (types.Handle[types.FileRecord], error) {
	mapped, err := f.IsMapped(ctx, hash)
	if err != nil {
		return types.Handle[types.FileRecord]{}, err
	}
	if !mapped {
		return types.Handle[types.FileRecord]{}, types.NotFound(entityFile, hash.String())
	}
	if err := f.guard(ctx, hash); err != nil {
		return types.Handle[types.FileRecord]{}, err
	}

	_, err = f.ledger.db.Exec(ctx, `DELETE FROM file_map WHERE uuid = ? AND hash = ?`, f.experiment.UUID, hash.Bytes())
	if err != nil {
		return types.Handle[types.FileRecord]{}, storeErr(err, entityFile, hash.String(), "")
	}
	f.ledger.log.Debug("file unmapped", zap.Stringer("experiment", f.experiment.UUID), zap.Stringer("hash", hash))
	return types.Unbound[types.FileRecord](), nil
}

// ChangeRole sets the role of the mapping of hash. When the current role is
// output the change is subject to the same guard as Unmap.
func (f *Files) ChangeRole(ctx context.Context, hash types.Hash, role types.Role) (types.FileRecord, error) {
	id, err := role.Persisted()
	if err != nil {
		return types.FileRecord{}, err
	}
	cur, err := f.Load(ctx, hash)
	if err != nil {
		return types.FileRecord{}, err
	}
	if cur.Role == types.RoleOutput {
		if err := f.guard(ctx, hash); err != nil {
			return types.FileRecord{}, err
		}
	}

	_, err = f.ledger.db.Exec(ctx,
		`UPDATE file_map SET role = ? WHERE uuid = ? AND hash = ?`, id, f.experiment.UUID, hash.Bytes())
	if err != nil {
		return types.FileRecord{}, storeErr(err, entityFile, hash.String(), "")
	}
	f.ledger.log.Debug("file role changed",
		zap.Stringer("hash", hash), zap.Stringer("from", cur.Role), zap.Stringer("to", role))
	return f.Load(ctx, hash)
}

// Update writes the name, owner and metadata of rec onto its content
// record. Role and path are mapping fields and are not touched.
func (f *Files) Update(ctx context.Context, rec types.FileRecord) (types.FileRecord, error) {
	if rec.Hash.IsZero() {
		return types.FileRecord{}, types.InvalidArgument(entityFile, "hash is unset")
	}
	if _, err := f.Load(ctx, rec.Hash); err != nil {
		return types.FileRecord{}, err
	}
	_, err := f.ledger.db.Exec(ctx,
		`UPDATE files SET name = ?, owner = ?, metadata = ? WHERE hash = ?`,
		nullString(rec.Name), nullString(rec.Owner), nullString(rec.Metadata), rec.Hash.Bytes())
	if err != nil {
		return types.FileRecord{}, storeErr(err, entityFile, rec.Hash.String(), "")
	}
	return f.Load(ctx, rec.Hash)
}

// List returns the mappings of the bound experiment ordered by role, then
// path. RoleNone lists every role.
func (f *Files) List(ctx context.Context, role types.Role) ([]types.FileRecord, error) {
	return f.ledger.mappings(ctx, f.experiment.UUID, role)
}

// ResolveCreator returns "project::experiment" for the creator of rec, or
// "" when rec has no creator.
func (f *Files) ResolveCreator(ctx context.Context, rec types.FileRecord) (string, error) {
	return f.ledger.ResolveCreator(ctx, rec)
}

// Track walks the lineage of hash starting from its mapping in the bound
// experiment.
func (f *Files) Track(ctx context.Context, hash types.Hash, maxDepth int) (types.FileTree, error) {
	rec, err := f.Load(ctx, hash)
	if err != nil {
		return types.FileTree{}, err
	}
	return f.ledger.Track(ctx, rec, 0, maxDepth)
}

// ResolveCreator returns "project::experiment" for the creator of rec, or
// "" when rec has no creator.
func (l *Ledger) ResolveCreator(ctx context.Context, rec types.FileRecord) (string, error) {
	if rec.Creator == nil {
		return "", nil
	}
	var project, experiment string
	err := l.db.QueryRow(ctx,
		`SELECT p.name, e.name FROM experiments e JOIN projects p ON p.uuid = e.project WHERE e.uuid = ?`,
		*rec.Creator).Scan(&project, &experiment)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.NotFound(entityExperiment, rec.Creator.String())
	}
	if err != nil {
		return "", storeErr(err, entityExperiment, rec.Creator.String(), "")
	}
	return project + "::" + experiment, nil
}

// AllFiles returns every mapping in the store joined with its content
// record, ordered by experiment, role and path.
func (l *Ledger) AllFiles(ctx context.Context) ([]types.FileRecord, error) {
	rows, err := l.db.Query(ctx, `SELECT `+fileColumns+fileFrom+` ORDER BY m.uuid, m.role, m.path, m.hash`)
	if err != nil {
		return nil, fmt.Errorf("list all files: %w", err)
	}
	return collectFiles(rows)
}

// mappings returns the mappings of one experiment, optionally filtered by
// role.
func (l *Ledger) mappings(ctx context.Context, experiment uuid.UUID, role types.Role) ([]types.FileRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if role == types.RoleNone {
		rows, err = l.db.Query(ctx, `SELECT `+fileColumns+fileFrom+` WHERE m.uuid = ?`+fileOrder, experiment)
	} else {
		rows, err = l.db.Query(ctx,
			`SELECT `+fileColumns+fileFrom+` WHERE m.uuid = ? AND m.role = ?`+fileOrder, experiment, int64(role))
	}
	if err != nil {
		return nil, fmt.Errorf("list files of %s: %w", experiment, err)
	}
	return collectFiles(rows)
}

func collectFiles(rows *sql.Rows) ([]types.FileRecord, error) {
	defer rows.Close()
	var out []types.FileRecord
	for rows.Next() {
		rec, err := hydrateFile(rows)
		if err != nil {
			return nil, storeErr(err, entityFile, "", "")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrStorage, err)
	}
	return out, nil
}

func hydrateFile(row scanner) (types.FileRecord, error) {
	var (
		rec                         types.FileRecord
		hash                        []byte
		name, owner, metadata, path sql.NullString
		creator                     uuid.NullUUID
		ctime                       sql.NullInt64
		role                        int64
	)
	err := row.Scan(&rec.Experiment, &hash, &rec.Size, &name, &creator, &owner, &ctime, &metadata, &role, &path)
	if err != nil {
		return types.FileRecord{}, err
	}
	if rec.Hash, err = types.HashFromBytes(hash); err != nil {
		return types.FileRecord{}, err
	}
	if rec.Role, err = types.RoleFromPersisted(role); err != nil {
		return types.FileRecord{}, err
	}
	rec.Name = stringPtr(name)
	rec.Creator = uuidPtr(creator)
	rec.Owner = stringPtr(owner)
	rec.CTime = timePtr(ctime)
	rec.Metadata = stringPtr(metadata)
	rec.Path = stringPtr(path)
	return rec, nil
}
