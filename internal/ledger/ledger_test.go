package ledger

import (
	"context"
	"crypto/sha256"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/provenance/internal/sqldb"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// setupLedger attaches a SQLite backend in a temp directory and returns a
// ledger over it together with the backend for direct queries.
func setupLedger(t *testing.T) (*Ledger, *sqldb.Backend) {
	t.Helper()
	b := sqldb.NewBackend()
	require.NoError(t, b.Attach(context.Background(), types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}))
	t.Cleanup(func() { b.Detach() })
	return New(b, zap.NewNop()), b
}

func hashOf(s string) types.Hash {
	return types.Hash(sha256.Sum256([]byte(s)))
}

func mustProject(t *testing.T, l *Ledger, name string) types.Project {
	t.Helper()
	p, err := l.Projects().Create(context.Background(), types.Project{Name: name})
	require.NoError(t, err)
	return p
}

func mustExperiment(t *testing.T, l *Ledger, p types.Project, name string) types.Experiment {
	t.Helper()
	reg, err := l.Experiments(types.Bind(p))
	require.NoError(t, err)
	e, err := reg.Create(context.Background(), types.Experiment{Name: name})
	require.NoError(t, err)
	return e
}

func mustFiles(t *testing.T, l *Ledger, e types.Experiment) *Files {
	t.Helper()
	f, err := l.Files(types.Bind(e))
	require.NoError(t, err)
	return f
}

// mustMap registers content under role at path and returns the stored record.
func mustMap(t *testing.T, f *Files, content string, role types.Role, path string) types.FileRecord {
	t.Helper()
	rec, _, err := f.Create(context.Background(), types.FileRecord{
		Hash: hashOf(content),
		Size: int64(len(content)),
		Name: types.StringPtr(path),
		Role: role,
		Path: types.StringPtr(path),
	})
	require.NoError(t, err)
	return rec
}

func countRows(t *testing.T, b *sqldb.Backend, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, b.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func fixedNow(l *Ledger, at time.Time) {
	l.now = func() time.Time { return at }
}
