package sqldb

import (
	"context"
	"database/sql"
)

// conn returns the open database or ErrBackendDetached.
func (b *Backend) conn() (*sql.DB, Dialect, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, Dialect{}, errDetached
	}
	return b.db, b.dialect, nil
}

// Exec runs a statement that returns no rows.
func (b *Backend) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db, d, err := b.conn()
	if err != nil {
		return nil, err
	}
	res, err := db.ExecContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return nil, Classify(err)
	}
	return res, nil
}

// QueryRow runs a query expected to return at most one row. Errors are
// deferred to Row.Scan; a detached backend yields ErrBackendDetached there.
func (b *Backend) QueryRow(ctx context.Context, query string, args ...any) *Row {
	db, d, err := b.conn()
	if err != nil {
		return &Row{err: err}
	}
	return &Row{row: db.QueryRowContext(ctx, d.Rebind(query), args...)}
}

// Query runs a query returning any number of rows. The caller must close
// the rows before issuing dependent statements.
func (b *Backend) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db, d, err := b.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, d.Rebind(query), args...)
	if err != nil {
		return nil, Classify(err)
	}
	return rows, nil
}

// Row wraps *sql.Row so that scan failures are classified like every other
// backend error. sql.ErrNoRows is passed through unchanged.
type Row struct {
	row *sql.Row
	err error
}

// Scan decodes the row into dest. A column count or type mismatch fails the
// call.
func (r *Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	err := r.row.Scan(dest...)
	if err == nil || err == sql.ErrNoRows {
		return err
	}
	return Classify(err)
}
