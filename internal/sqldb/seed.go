package sqldb

import (
	"context"
	"database/sql"

	"github.com/mesh-intelligence/provenance/pkg/types"
)

// roleSeed is the content of file_roles. Id 5 predates the mapping check
// constraint and is kept so existing databases stay readable.
var roleSeed = []struct {
	id   types.Role
	name string
}{
	{types.RoleInput, "input"},
	{types.RoleOutput, "output"},
	{types.RoleNote, "note"},
	{types.RoleProgram, "program"},
	{types.RoleAuxiliaryPath, "nixpath"},
}

// seedRoles inserts missing file_roles rows. Existing rows are left alone,
// so seeding is idempotent across attaches.
func seedRoles(ctx context.Context, db *sql.DB, d Dialect) error {
	stmt := d.Rebind(`INSERT INTO file_roles (id, role) VALUES (?, ?) ON CONFLICT (id) DO NOTHING`)
	for _, r := range roleSeed {
		if _, err := db.ExecContext(ctx, stmt, int64(r.id), r.name); err != nil {
			return err
		}
	}
	return nil
}
